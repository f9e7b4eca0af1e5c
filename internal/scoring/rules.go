package scoring

import (
	"github.com/ShraddheyWamanSatpute/Stock-Pulse/internal/canonical"
)

// RuleKind separates the three tiers of the rule table.
type RuleKind string

const (
	KindDealBreaker RuleKind = "deal_breaker"
	KindPenalty     RuleKind = "penalty"
	KindBooster     RuleKind = "booster"
)

// Rule is one data-driven scoring rule. Evaluate returns (triggered, ok):
// ok=false means the record lacks the fields the rule needs, and the rule is
// treated as indeterminate, never as a pass.
type Rule struct {
	ID       string
	Name     string
	Kind     RuleKind
	Evaluate func(rec *canonical.Record) (triggered, ok bool)

	// Magnitudes are points subtracted (penalty) or added (booster) per
	// horizon. Deal-breakers carry no magnitude: they cap, not subtract.
	ShortMagnitude float64
	LongMagnitude  float64
}

// Predicate helpers. Each returns indeterminate when a needed field is
// absent so that missing data can never satisfy a condition.

func below(field string, threshold float64) func(*canonical.Record) (bool, bool) {
	return func(rec *canonical.Record) (bool, bool) {
		v, ok := rec.Float(field)
		if !ok {
			return false, false
		}
		return v < threshold, true
	}
}

func above(field string, threshold float64) func(*canonical.Record) (bool, bool) {
	return func(rec *canonical.Record) (bool, bool) {
		v, ok := rec.Float(field)
		if !ok {
			return false, false
		}
		return v > threshold, true
	}
}

func within(field string, lo, hi float64) func(*canonical.Record) (bool, bool) {
	return func(rec *canonical.Record) (bool, bool) {
		v, ok := rec.Float(field)
		if !ok {
			return false, false
		}
		return v >= lo && v <= hi, true
	}
}

// fieldBelowField compares two fields; indeterminate when either is missing.
func fieldBelowField(a, b string) func(*canonical.Record) (bool, bool) {
	return func(rec *canonical.Record) (bool, bool) {
		av, aok := rec.Float(a)
		bv, bok := rec.Float(b)
		if !aok || !bok {
			return false, false
		}
		return av < bv, true
	}
}

func allOf(preds ...func(*canonical.Record) (bool, bool)) func(*canonical.Record) (bool, bool) {
	return func(rec *canonical.Record) (bool, bool) {
		for _, p := range preds {
			triggered, ok := p(rec)
			if !ok {
				return false, false
			}
			if !triggered {
				return false, true
			}
		}
		return true, true
	}
}

// DealBreakers are hard disqualifiers: any one of them caps both composite
// scores at the ceiling regardless of every other signal.
var DealBreakers = []Rule{
	{ID: "D1", Name: "interest coverage below 2x", Kind: KindDealBreaker,
		Evaluate: below("interest_coverage", 2.0)},
	{ID: "D2", Name: "debt/equity above 3x", Kind: KindDealBreaker,
		Evaluate: above("debt_to_equity", 3.0)},
	{ID: "D3", Name: "promoter pledging above 50%", Kind: KindDealBreaker,
		Evaluate: above("promoter_pledging", 50)},
	{ID: "D4", Name: "net loss", Kind: KindDealBreaker,
		Evaluate: below("net_profit", 0)},
	{ID: "D5", Name: "promoter holding fell more than 10pp", Kind: KindDealBreaker,
		Evaluate: below("promoter_holding_change", -10)},
	{ID: "D6", Name: "current ratio below 0.8", Kind: KindDealBreaker,
		Evaluate: below("current_ratio", 0.8)},
	{ID: "D7", Name: "EPS collapsed more than 50%", Kind: KindDealBreaker,
		Evaluate: below("eps_growth_yoy", -50)},
	{ID: "D8", Name: "negative operating cash flow despite profit", Kind: KindDealBreaker,
		Evaluate: allOf(below("operating_cash_flow", 0), above("net_profit", 0))},
	{ID: "D9", Name: "P/E above 100", Kind: KindDealBreaker,
		Evaluate: above("pe_ratio", 100)},
	{ID: "D10", Name: "revenue collapsed more than 30%", Kind: KindDealBreaker,
		Evaluate: below("revenue_growth_yoy", -30)},
}

// Penalties subtract per-horizon points. Short-term leans on technicals,
// long-term on balance-sheet and ownership signals.
var Penalties = []Rule{
	{ID: "P1", Name: "overbought (RSI above 80)", Kind: KindPenalty,
		Evaluate: above("rsi_14", 80), ShortMagnitude: 8, LongMagnitude: 2},
	{ID: "P2", Name: "free-fall (RSI below 20)", Kind: KindPenalty,
		Evaluate: below("rsi_14", 20), ShortMagnitude: 6, LongMagnitude: 2},
	{ID: "P3", Name: "trading below 200-day average", Kind: KindPenalty,
		Evaluate: fieldBelowField("close", "sma_200"), ShortMagnitude: 5, LongMagnitude: 8},
	{ID: "P4", Name: "leveraged (debt/equity above 2x)", Kind: KindPenalty,
		Evaluate: above("debt_to_equity", 2.0), ShortMagnitude: 4, LongMagnitude: 8},
	{ID: "P5", Name: "promoter pledging above 25%", Kind: KindPenalty,
		Evaluate: above("promoter_pledging", 25), ShortMagnitude: 5, LongMagnitude: 7},
	{ID: "P6", Name: "promoter holding slipping", Kind: KindPenalty,
		Evaluate: below("promoter_holding_change", -2), ShortMagnitude: 4, LongMagnitude: 6},
	{ID: "P7", Name: "foreign institutions exiting", Kind: KindPenalty,
		Evaluate: below("fii_holding_change", -2), ShortMagnitude: 4, LongMagnitude: 3},
	{ID: "P8", Name: "thin operating margin", Kind: KindPenalty,
		Evaluate: below("operating_margin", 8), ShortMagnitude: 3, LongMagnitude: 6},
	{ID: "P9", Name: "stretched valuation (P/E above 60)", Kind: KindPenalty,
		Evaluate: above("pe_ratio", 60), ShortMagnitude: 4, LongMagnitude: 6},
	{ID: "P10", Name: "tight liquidity (current ratio below 1.2)", Kind: KindPenalty,
		Evaluate: below("current_ratio", 1.2), ShortMagnitude: 3, LongMagnitude: 5},
}

// Boosters add per-horizon points. Their combined contribution is capped
// before application so stacked positives cannot mask a weak base score.
var Boosters = []Rule{
	{ID: "B1", Name: "high return on equity", Kind: KindBooster,
		Evaluate: above("roe", 20), ShortMagnitude: 3, LongMagnitude: 6},
	{ID: "B2", Name: "strong revenue growth", Kind: KindBooster,
		Evaluate: above("revenue_growth_yoy", 15), ShortMagnitude: 4, LongMagnitude: 6},
	{ID: "B3", Name: "strong EPS growth", Kind: KindBooster,
		Evaluate: above("eps_growth_yoy", 20), ShortMagnitude: 4, LongMagnitude: 6},
	{ID: "B4", Name: "established uptrend", Kind: KindBooster,
		Evaluate:       allOf(fieldBelowField("sma_50", "close"), fieldBelowField("sma_200", "sma_50")),
		ShortMagnitude: 6, LongMagnitude: 3},
	{ID: "B5", Name: "healthy momentum (RSI 45-60)", Kind: KindBooster,
		Evaluate: within("rsi_14", 45, 60), ShortMagnitude: 4, LongMagnitude: 1},
	{ID: "B6", Name: "majority promoter ownership", Kind: KindBooster,
		Evaluate: above("promoter_holding", 50), ShortMagnitude: 2, LongMagnitude: 5},
	{ID: "B7", Name: "foreign institutions accumulating", Kind: KindBooster,
		Evaluate: above("fii_holding_change", 2), ShortMagnitude: 4, LongMagnitude: 3},
	{ID: "B8", Name: "cash generative", Kind: KindBooster,
		Evaluate:       allOf(above("operating_cash_flow", 0), above("free_cash_flow", 0)),
		ShortMagnitude: 2, LongMagnitude: 5},
	{ID: "B9", Name: "near-zero leverage", Kind: KindBooster,
		Evaluate: below("debt_to_equity", 0.5), ShortMagnitude: 2, LongMagnitude: 5},
}

// RuleOutcome is one evaluated rule in a ScoreResult.
type RuleOutcome struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Kind       RuleKind `json:"kind"`
	Triggered  bool     `json:"triggered"`
	ShortDelta float64  `json:"short_delta,omitempty"`
	LongDelta  float64  `json:"long_delta,omitempty"`
}

// evaluateRules runs one rule table, splitting outcomes into determinate
// results and indeterminate rule ids.
func evaluateRules(rules []Rule, rec *canonical.Record) (outcomes []RuleOutcome, indeterminate []string) {
	for _, rule := range rules {
		triggered, ok := rule.Evaluate(rec)
		if !ok {
			indeterminate = append(indeterminate, rule.ID)
			continue
		}
		out := RuleOutcome{
			ID:        rule.ID,
			Name:      rule.Name,
			Kind:      rule.Kind,
			Triggered: triggered,
		}
		if triggered {
			out.ShortDelta = rule.ShortMagnitude
			out.LongDelta = rule.LongMagnitude
		}
		outcomes = append(outcomes, out)
	}
	return outcomes, indeterminate
}
