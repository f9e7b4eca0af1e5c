package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ShraddheyWamanSatpute/Stock-Pulse/internal/scoring"
)

// scoreCmd represents the score command
var scoreCmd = &cobra.Command{
	Use:   "score [symbol]",
	Short: "Fetch and score a single symbol",
	Long: `Fetches a live quote for one symbol and runs the scoring engine on it.

This command:
- Authenticates against the upstream API
- Fetches and normalizes the symbol's quote
- Prints sub-scores, triggered rules and the final verdict

No storage tier is touched; the result is printed only.

Example:
  go run ./cmd/stockpulse score RELIANCE
  go run ./cmd/stockpulse score TCS`,
	Args: cobra.ExactArgs(1),
	RunE: runScore,
}

func init() {
	rootCmd.AddCommand(scoreCmd)
}

func runScore(cmd *cobra.Command, args []string) error {
	symbol := strings.ToUpper(strings.TrimSpace(args[0]))

	fmt.Println("=== StockPulse Scoring ===")
	fmt.Println()

	ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
	defer cancel()

	app, err := buildStack(ctx, false)
	if err != nil {
		return err
	}

	rec, err := app.client.Quote(ctx, symbol)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", symbol, err)
	}

	result := scoring.NewEngine().Score(rec)

	PrintDoubleSeparator()
	fmt.Printf("  %s\n", result.Symbol)
	PrintSeparator()
	PrintKeyValue("Verdict", result.Verdict, 12)
	PrintKeyValue("Short-term", fmt.Sprintf("%.1f / 100", result.ShortTermScore), 12)
	PrintKeyValue("Long-term", fmt.Sprintf("%.1f / 100", result.LongTermScore), 12)
	PrintKeyValue("Confidence", fmt.Sprintf("%.1f%%", result.Confidence), 12)
	PrintKeyValue("Fields", fmt.Sprintf("%d (%.0f%% complete)", len(rec.Fields), rec.Completeness()*100), 12)
	PrintSeparator()

	fmt.Println("  Sub-scores")
	PrintKeyValue("Fundamental", fmt.Sprintf("%.1f", result.SubScores.Fundamental), 12)
	PrintKeyValue("Valuation", fmt.Sprintf("%.1f", result.SubScores.Valuation), 12)
	PrintKeyValue("Technical", fmt.Sprintf("%.1f", result.SubScores.Technical), 12)
	PrintKeyValue("Quality", fmt.Sprintf("%.1f", result.SubScores.Quality), 12)
	PrintKeyValue("Risk", fmt.Sprintf("%.1f", result.SubScores.Risk), 12)

	printTriggered("Deal-breakers", result.DealBreakers)
	printTriggered("Penalties", result.Penalties)
	printTriggered("Boosters", result.Boosters)

	PrintSeparator()
	PrintKeyValue("Short checklist", checklistSummary(result.ShortChecklist), 15)
	PrintKeyValue("Long checklist", checklistSummary(result.LongChecklist), 15)
	if len(result.Indeterminate) > 0 {
		PrintKeyValue("Indeterminate", fmt.Sprintf("%d rules (missing fields)", len(result.Indeterminate)), 15)
	}
	PrintDoubleSeparator()
	return nil
}

func printTriggered(title string, outcomes []scoring.RuleOutcome) {
	var hits []string
	for _, o := range outcomes {
		if o.Triggered {
			hits = append(hits, fmt.Sprintf("%s %s", o.ID, o.Name))
		}
	}
	if len(hits) == 0 {
		return
	}
	fmt.Printf("  %s\n", title)
	PrintList(hits)
}

func checklistSummary(r scoring.ChecklistResult) string {
	return fmt.Sprintf("%s (%d passed, %d failed)", r.Verdict, r.Passed, r.Failed)
}
