package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	envFile string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "stockpulse",
	Short: "StockPulse - NSE market data pipeline and scoring engine",
	Long: `StockPulse Unified CLI

Extraction pipeline and deterministic scoring engine for NSE equities:
authenticated upstream fetch, canonical normalization, tiered persistence
and rule-based scoring.

Usage:
  go run ./cmd/stockpulse [command]

Examples:
  go run ./cmd/stockpulse api
  go run ./cmd/stockpulse extract --symbols RELIANCE,TCS
  go run ./cmd/stockpulse score RELIANCE
  go run ./cmd/stockpulse test-conn`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "env file (default is .env)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
