package main

import (
	"os"

	"github.com/ShraddheyWamanSatpute/Stock-Pulse/cmd/stockpulse/commands"
)

// Unified CLI entry point: go run ./cmd/stockpulse [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
