package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// testConnCmd represents the test-conn command
var testConnCmd = &cobra.Command{
	Use:   "test-conn",
	Short: "Test the upstream API connection",
	Long: `Tests authentication and connectivity against the upstream API.

This command:
- Loads credentials from config
- Exchanges the TOTP for a session token
- Fetches a probe quote
- Prints client call statistics

Example:
  go run ./cmd/stockpulse test-conn`,
	RunE: runTestConn,
}

func init() {
	rootCmd.AddCommand(testConnCmd)
}

func runTestConn(cmd *cobra.Command, args []string) error {
	fmt.Println("=== StockPulse Upstream Connection Test ===")

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	fmt.Println("Loading configuration...")
	app, err := buildStack(ctx, false)
	if err != nil {
		return fmt.Errorf("❌ Failed to load config: %w", err)
	}
	fmt.Printf("✅ Config loaded (ENV: %s)\n", app.cfg.Env)
	fmt.Printf("   Base URL: %s\n\n", app.cfg.Groww.BaseURL)

	fmt.Println("Exchanging TOTP for session token...")
	start := time.Now()
	if _, err := app.session.Token(ctx); err != nil {
		return fmt.Errorf("❌ Authentication failed: %w", err)
	}
	fmt.Printf("✅ Session token acquired in %v\n\n", time.Since(start).Round(time.Millisecond))

	fmt.Println("Fetching probe quote...")
	start = time.Now()
	if err := app.client.TestConnection(ctx); err != nil {
		return fmt.Errorf("❌ Probe fetch failed: %w", err)
	}
	fmt.Printf("✅ Probe quote fetched in %v\n\n", time.Since(start).Round(time.Millisecond))

	snap := app.client.Metrics()
	fmt.Println("📊 Client Statistics:")
	fmt.Printf("   Total Calls: %d\n", snap.TotalCalls)
	fmt.Printf("   Success Calls: %d\n", snap.SuccessCalls)
	fmt.Printf("   Retries: %d\n", snap.Retries)
	fmt.Printf("   Auth Refreshes: %d\n", snap.AuthRefreshes)
	fmt.Printf("   Latency (avg): %v\n", snap.LatencyAvg.Round(time.Millisecond))

	fmt.Println("\n✅ All tests passed!")
	return nil
}
