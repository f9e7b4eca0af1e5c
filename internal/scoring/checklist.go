package scoring

import (
	"github.com/ShraddheyWamanSatpute/Stock-Pulse/internal/canonical"
)

// ChecklistItem is one boolean criterion. Passing means the condition holds;
// a missing input makes the item indeterminate, which is excluded from both
// tallies and reported separately; an unknown can neither pass nor fail.
type ChecklistItem struct {
	ID          string
	Description string
	DealBreaker bool
	// Check returns (passed, ok); ok=false means indeterminate.
	Check func(rec *canonical.Record) (bool, bool)
}

// passWhenAbove passes when the field exceeds the threshold.
func passWhenAbove(field string, threshold float64) func(*canonical.Record) (bool, bool) {
	return func(rec *canonical.Record) (bool, bool) {
		v, ok := rec.Float(field)
		if !ok {
			return false, false
		}
		return v > threshold, true
	}
}

// passWhenBelow passes when the field is under the threshold.
func passWhenBelow(field string, threshold float64) func(*canonical.Record) (bool, bool) {
	return func(rec *canonical.Record) (bool, bool) {
		v, ok := rec.Float(field)
		if !ok {
			return false, false
		}
		return v < threshold, true
	}
}

// ShortTermChecklist gates a trade-horizon entry.
var ShortTermChecklist = []ChecklistItem{
	{ID: "ST1", Description: "RSI out of the overbought zone",
		Check: passWhenBelow("rsi_14", 70)},
	{ID: "ST2", Description: "RSI out of the oversold zone",
		Check: passWhenAbove("rsi_14", 30)},
	{ID: "ST3", Description: "price above 50-day average",
		Check: func(rec *canonical.Record) (bool, bool) {
			pct, ok := pctAbove(rec, "close", "sma_50")
			return pct > 0, ok
		}},
	{ID: "ST4", Description: "positive day momentum",
		Check: passWhenAbove("price_change_percent", 0)},
	{ID: "ST5", Description: "MACD above its signal line",
		Check: func(rec *canonical.Record) (bool, bool) {
			macd, mok := rec.Float("macd")
			signal, sok := rec.Float("macd_signal")
			if !mok || !sok {
				return false, false
			}
			return macd > signal, true
		}},
	{ID: "ST6", Description: "no heavy promoter pledging", DealBreaker: true,
		Check: passWhenBelow("promoter_pledging", 50)},
	{ID: "ST7", Description: "not in free fall",
		Check: passWhenAbove("price_change_percent", -5)},
	{ID: "ST8", Description: "liquid enough to trade",
		Check: passWhenAbove("volume", 100000)},
}

// LongTermChecklist gates an investment-horizon entry.
var LongTermChecklist = []ChecklistItem{
	{ID: "LT1", Description: "profitable", DealBreaker: true,
		Check: passWhenAbove("net_profit", 0)},
	{ID: "LT2", Description: "interest obligations covered", DealBreaker: true,
		Check: passWhenAbove("interest_coverage", 2.0)},
	{ID: "LT3", Description: "debt under control",
		Check: passWhenBelow("debt_to_equity", 1.5)},
	{ID: "LT4", Description: "revenue growing",
		Check: passWhenAbove("revenue_growth_yoy", 0)},
	{ID: "LT5", Description: "earnings growing",
		Check: passWhenAbove("eps_growth_yoy", 0)},
	{ID: "LT6", Description: "double-digit return on equity",
		Check: passWhenAbove("roe", 10)},
	{ID: "LT7", Description: "promoters hold a meaningful stake",
		Check: passWhenAbove("promoter_holding", 30)},
	{ID: "LT8", Description: "promoters are not selling out", DealBreaker: true,
		Check: passWhenAbove("promoter_holding_change", -10)},
	{ID: "LT9", Description: "operations generate cash",
		Check: passWhenAbove("operating_cash_flow", 0)},
	{ID: "LT10", Description: "valuation not euphoric",
		Check: passWhenBelow("pe_ratio", 100)},
}

// ChecklistResult reports one checklist evaluation. The verdict is drawn
// from determinate items only; indeterminate items are listed but sit
// outside both the numerator and the denominator.
type ChecklistResult struct {
	Passed            int      `json:"passed"`
	Failed            int      `json:"failed"`
	Indeterminate     []string `json:"indeterminate,omitempty"`
	FailedItems       []string `json:"failed_items,omitempty"`
	DealBreakerFailed bool     `json:"deal_breaker_failed"`
	Verdict           string   `json:"verdict"`
}

// Checklist verdicts.
const (
	ChecklistPass         = "PASS"
	ChecklistBorderline   = "BORDERLINE"
	ChecklistFail         = "FAIL"
	ChecklistInsufficient = "INSUFFICIENT DATA"
)

func evaluateChecklist(items []ChecklistItem, rec *canonical.Record) ChecklistResult {
	var result ChecklistResult

	for _, item := range items {
		passed, ok := item.Check(rec)
		if !ok {
			result.Indeterminate = append(result.Indeterminate, item.ID)
			continue
		}
		if passed {
			result.Passed++
			continue
		}
		result.Failed++
		result.FailedItems = append(result.FailedItems, item.ID)
		if item.DealBreaker {
			result.DealBreakerFailed = true
		}
	}

	determinate := result.Passed + result.Failed
	switch {
	case result.DealBreakerFailed:
		result.Verdict = ChecklistFail
	case determinate == 0:
		result.Verdict = ChecklistInsufficient
	case float64(result.Passed)/float64(determinate) >= 0.7:
		result.Verdict = ChecklistPass
	case float64(result.Passed)/float64(determinate) >= 0.5:
		result.Verdict = ChecklistBorderline
	default:
		result.Verdict = ChecklistFail
	}
	return result
}
