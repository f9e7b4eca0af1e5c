package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ShraddheyWamanSatpute/Stock-Pulse/internal/pipeline"
)

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Run a one-shot extraction job",
	Long: `Runs a single extraction job and waits for it to finish.

This command:
- Fetches quotes for the tracked universe (or --symbols)
- Normalizes payloads into canonical records
- Persists through every configured storage tier

Example:
  go run ./cmd/stockpulse extract
  go run ./cmd/stockpulse extract --symbols RELIANCE,TCS,INFY`,
	RunE: runExtract,
}

var (
	extractSymbols string
)

func init() {
	rootCmd.AddCommand(extractCmd)

	// Flags
	extractCmd.Flags().StringVar(&extractSymbols, "symbols", "", "comma-separated symbols (default: full universe)")
}

func runExtract(cmd *cobra.Command, args []string) error {
	fmt.Println("=== StockPulse Extraction ===")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := buildStack(ctx, true)
	if err != nil {
		return err
	}
	defer app.close(context.Background())

	var job *pipeline.ExtractionJob
	if extractSymbols != "" {
		symbols := splitSymbols(extractSymbols)
		job, err = app.orch.TriggerSymbols(ctx, symbols, "manual")
	} else {
		job, err = app.orch.Trigger(ctx, "manual")
	}
	if err != nil {
		return fmt.Errorf("trigger job: %w", err)
	}

	snap := job.Snapshot()
	fmt.Println()
	PrintKeyValue("Job ID", snap.ID, 10)
	PrintKeyValue("Symbols", fmt.Sprintf("%d", len(snap.Symbols)), 10)
	PrintSeparator()

	for !job.CurrentStatus().Terminal() {
		select {
		case <-ctx.Done():
			PrintWarning("Interrupted, cancelling job...")
			app.orch.Cancel()
		case <-time.After(500 * time.Millisecond):
		}
		processed, total := job.Progress()
		fmt.Printf("\r   progress: %d/%d", processed, total)
	}
	fmt.Println()

	snap = job.Snapshot()
	PrintSeparator()
	PrintKeyValue("Status", string(snap.Status), 10)
	PrintKeyValue("Succeeded", fmt.Sprintf("%d", snap.Succeeded), 10)
	PrintKeyValue("Failed", fmt.Sprintf("%d", snap.Failed), 10)
	PrintKeyValue("Duration", job.Duration().Round(time.Millisecond).String(), 10)
	if snap.FatalReason != "" {
		PrintKeyValue("Reason", snap.FatalReason, 10)
	}

	if len(snap.Errors) > 0 {
		fmt.Println()
		PrintWarning(fmt.Sprintf("%d symbols failed:", len(snap.Errors)))
		failed := make([]string, 0, len(snap.Errors))
		for sym, msg := range snap.Errors {
			failed = append(failed, fmt.Sprintf("%s: %s", sym, msg))
		}
		sort.Strings(failed)
		PrintList(failed)
	}

	fmt.Println()
	switch snap.Status {
	case pipeline.StatusSuccess:
		PrintSuccess("Extraction completed")
		return nil
	case pipeline.StatusPartial:
		PrintWarning("Extraction completed with failures")
		return nil
	default:
		PrintError("Extraction failed")
		return fmt.Errorf("job %s finished with status %s", snap.ID, snap.Status)
	}
}

// splitSymbols parses a comma-separated symbol list, uppercased and trimmed.
func splitSymbols(raw string) []string {
	parts := strings.Split(raw, ",")
	symbols := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.ToUpper(strings.TrimSpace(p)); s != "" {
			symbols = append(symbols, s)
		}
	}
	return symbols
}
