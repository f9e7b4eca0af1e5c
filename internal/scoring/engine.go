package scoring

import (
	"time"

	"github.com/ShraddheyWamanSatpute/Stock-Pulse/internal/canonical"
)

// Verdict bands over the long-term composite.
const (
	VerdictStrongBuy   = "STRONG BUY"
	VerdictBuy         = "BUY"
	VerdictHold        = "HOLD"
	VerdictAvoid       = "AVOID"
	VerdictStrongAvoid = "STRONG AVOID"
)

const (
	dealBreakerCeiling = 35.0
	boosterSumCap      = 30.0
	neutralSubScore    = 50.0
)

// Horizon weight vectors. The short-term vector is technicals-heavy; the
// long-term vector leans on fundamentals and quality.
var (
	shortTermWeights = weights{Fundamental: 0.15, Valuation: 0.15, Technical: 0.40, Quality: 0.10, Risk: 0.20}
	longTermWeights  = weights{Fundamental: 0.30, Valuation: 0.20, Technical: 0.10, Quality: 0.25, Risk: 0.15}
)

type weights struct {
	Fundamental, Valuation, Technical, Quality, Risk float64
}

// SubScores are the five 0-100 component scores.
type SubScores struct {
	Fundamental float64 `json:"fundamental"`
	Valuation   float64 `json:"valuation"`
	Technical   float64 `json:"technical"`
	Quality     float64 `json:"quality"`
	Risk        float64 `json:"risk"`
}

// ScoreResult is the full output of one scoring pass. It is reproducible
// from the record alone: same input, same result.
type ScoreResult struct {
	Symbol         string          `json:"symbol"`
	ShortTermScore float64         `json:"short_term_score"`
	LongTermScore  float64         `json:"long_term_score"`
	Verdict        string          `json:"verdict"`
	Confidence     float64         `json:"confidence"`
	SubScores      SubScores       `json:"sub_scores"`
	DealBreakers   []RuleOutcome   `json:"deal_breakers"`
	Penalties      []RuleOutcome   `json:"penalties"`
	Boosters       []RuleOutcome   `json:"boosters"`
	Indeterminate  []string        `json:"indeterminate_rules,omitempty"`
	ShortChecklist ChecklistResult `json:"short_checklist"`
	LongChecklist  ChecklistResult `json:"long_checklist"`
	ComputedAt     time.Time       `json:"computed_at"`
}

// Engine is the pure scoring function. It does no I/O and holds no state
// beyond the clock, which is injectable for deterministic tests.
type Engine struct {
	now func() time.Time
}

func NewEngine() *Engine {
	return &Engine{now: time.Now}
}

// Score runs the fixed tier order: sub-scores, deal-breakers, penalties,
// boosters, model-confidence adjustment, clamp, verdict, confidence,
// checklists. The order is part of the contract: each tier operates on the
// previous tier's output.
func (e *Engine) Score(rec *canonical.Record) *ScoreResult {
	now := e.now()
	result := &ScoreResult{
		Symbol:     rec.Symbol,
		ComputedAt: now,
	}

	// 1. Weighted sub-scores and the two base composites.
	result.SubScores = computeSubScores(rec)
	st := composite(result.SubScores, shortTermWeights)
	lt := composite(result.SubScores, longTermWeights)

	// 2. Deal-breakers. Any trigger caps both composites at the ceiling;
	// the cap is re-applied after every later adjustment.
	dbOutcomes, dbIndet := evaluateRules(DealBreakers, rec)
	result.DealBreakers = dbOutcomes
	result.Indeterminate = append(result.Indeterminate, dbIndet...)
	capped := anyTriggered(dbOutcomes)

	// 3. Penalties: cumulative, unbounded below zero until the final clamp.
	penOutcomes, penIndet := evaluateRules(Penalties, rec)
	result.Penalties = penOutcomes
	result.Indeterminate = append(result.Indeterminate, penIndet...)
	for _, p := range penOutcomes {
		if p.Triggered {
			st -= p.ShortDelta
			lt -= p.LongDelta
		}
	}

	// 4. Boosters: the summed addition is capped before application.
	boostOutcomes, boostIndet := evaluateRules(Boosters, rec)
	result.Boosters = boostOutcomes
	result.Indeterminate = append(result.Indeterminate, boostIndet...)
	var stBoost, ltBoost float64
	for _, b := range boostOutcomes {
		if b.Triggered {
			stBoost += b.ShortDelta
			ltBoost += b.LongDelta
		}
	}
	st += min(stBoost, boosterSumCap)
	lt += min(ltBoost, boosterSumCap)

	// 5. Bounded model-confidence adjustment.
	determinate := len(dbOutcomes) + len(penOutcomes) + len(boostOutcomes)
	total := determinate + len(result.Indeterminate)
	modelConfidence := modelConfidenceScore(determinate, total)
	adjustment := clamp((modelConfidence/100-0.5)*20, -10, 10)
	st += adjustment
	lt += adjustment

	// 6. Ceiling, clamp, verdict.
	if capped {
		st = min(st, dealBreakerCeiling)
		lt = min(lt, dealBreakerCeiling)
	}
	result.ShortTermScore = clamp(st, 0, 100)
	result.LongTermScore = clamp(lt, 0, 100)
	result.Verdict = verdictFor(result.LongTermScore)

	// 7. Confidence from provenance.
	result.Confidence = confidence(rec, now, modelConfidence)

	// 8. Checklists.
	result.ShortChecklist = evaluateChecklist(ShortTermChecklist, rec)
	result.LongChecklist = evaluateChecklist(LongTermChecklist, rec)

	return result
}

func computeSubScores(rec *canonical.Record) SubScores {
	return SubScores{
		Fundamental: fundamentalScore(rec),
		Valuation:   valuationScore(rec),
		Technical:   technicalScore(rec),
		Quality:     qualityScore(rec),
		Risk:        riskScore(rec),
	}
}

func composite(s SubScores, w weights) float64 {
	return s.Fundamental*w.Fundamental +
		s.Valuation*w.Valuation +
		s.Technical*w.Technical +
		s.Quality*w.Quality +
		s.Risk*w.Risk
}

func anyTriggered(outcomes []RuleOutcome) bool {
	for _, o := range outcomes {
		if o.Triggered {
			return true
		}
	}
	return false
}

// modelConfidenceScore is the determinate-rule fraction on a 0-100 scale.
// An empty record scores zero: no rule could be evaluated at all.
func modelConfidenceScore(determinate, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(determinate) / float64(total) * 100
}

// confidence blends the provenance-derived terms with source agreement and
// model confidence on a 0-100 scale.
func confidence(rec *canonical.Record, now time.Time, modelConfidence float64) float64 {
	completeness := rec.Completeness() * 100
	freshness := rec.Freshness(now) * 100

	// A value corroborated by two or more sources is trusted fully; a
	// single-source record carries a flat discount.
	agreement := 75.0
	if len(rec.Sources) >= 2 {
		agreement = 100.0
	}

	score := 0.40*completeness + 0.30*freshness + 0.15*agreement + 0.15*modelConfidence
	return clamp(score, 0, 100)
}

func verdictFor(longTerm float64) string {
	switch {
	case longTerm >= 80:
		return VerdictStrongBuy
	case longTerm >= 65:
		return VerdictBuy
	case longTerm >= 50:
		return VerdictHold
	case longTerm >= 35:
		return VerdictAvoid
	default:
		return VerdictStrongAvoid
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
