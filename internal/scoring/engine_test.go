package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShraddheyWamanSatpute/Stock-Pulse/internal/canonical"
)

func recordWith(t *testing.T, fields map[string]float64) *canonical.Record {
	t.Helper()
	rec := canonical.NewRecord("TESTCO", time.Now())
	rec.AddSource("groww")
	for name, v := range fields {
		rec.Set(name, v, rec.AsOf)
	}
	return rec
}

// strongFields describes a company every booster likes and no rule flags.
func strongFields() map[string]float64 {
	return map[string]float64{
		"close": 110, "sma_50": 100, "sma_200": 90,
		"rsi_14": 55, "macd": 2, "macd_signal": 1,
		"price_change_percent": 1.2, "volume": 5_000_000,
		"revenue_growth_yoy": 20, "eps_growth_yoy": 25,
		"operating_margin": 22, "net_profit_margin": 15,
		"net_profit": 500, "roe": 25,
		"debt_to_equity": 0.3, "current_ratio": 2.2, "interest_coverage": 12,
		"operating_cash_flow": 400, "free_cash_flow": 300,
		"pe_ratio": 22, "pb_ratio": 3, "dividend_yield": 1.5,
		"promoter_holding": 55, "promoter_holding_change": 0.5,
		"promoter_pledging": 0, "fii_holding": 22, "fii_holding_change": 3,
	}
}

func TestStrongRecordScoresHighAndPassesChecklists(t *testing.T) {
	result := NewEngine().Score(recordWith(t, strongFields()))

	assert.Greater(t, result.LongTermScore, 65.0)
	assert.Greater(t, result.ShortTermScore, 60.0)
	assert.Contains(t, []string{VerdictStrongBuy, VerdictBuy}, result.Verdict)
	assert.False(t, anyTriggered(result.DealBreakers))
	assert.Equal(t, ChecklistPass, result.ShortChecklist.Verdict)
	assert.Equal(t, ChecklistPass, result.LongChecklist.Verdict)
}

func TestInterestCoverageDealBreakerCapsBothScores(t *testing.T) {
	fields := strongFields()
	fields["interest_coverage"] = 1.5

	result := NewEngine().Score(recordWith(t, fields))

	var d1 *RuleOutcome
	for i := range result.DealBreakers {
		if result.DealBreakers[i].ID == "D1" {
			d1 = &result.DealBreakers[i]
		}
	}
	require.NotNil(t, d1)
	assert.True(t, d1.Triggered)

	// Every booster still fires, yet the ceiling holds.
	assert.LessOrEqual(t, result.ShortTermScore, 35.0)
	assert.LessOrEqual(t, result.LongTermScore, 35.0)
	assert.Contains(t, []string{VerdictAvoid, VerdictStrongAvoid}, result.Verdict)
}

func TestDealBreakerCapIsACeilingNotASubtraction(t *testing.T) {
	// A record that is already terrible must not be lifted toward 35.
	fields := map[string]float64{
		"net_profit": -100, "interest_coverage": 0.5, "debt_to_equity": 5,
		"current_ratio": 0.4, "promoter_pledging": 80, "revenue_growth_yoy": -40,
		"eps_growth_yoy": -60, "operating_margin": 2, "roe": -5,
		"rsi_14": 15, "close": 80, "sma_50": 100, "sma_200": 110,
		"pe_ratio": 120,
	}
	result := NewEngine().Score(recordWith(t, fields))

	assert.Less(t, result.LongTermScore, 35.0)
	assert.Equal(t, VerdictStrongAvoid, result.Verdict)
}

func TestBoosterSumIsCapped(t *testing.T) {
	fields := strongFields()
	result := NewEngine().Score(recordWith(t, fields))

	var ltSum float64
	triggered := 0
	for _, b := range result.Boosters {
		if b.Triggered {
			ltSum += b.LongDelta
			triggered++
		}
	}
	// The table is built so a flawless record trips every booster and the
	// raw sum exceeds the cap, proving the cap path runs.
	assert.Equal(t, len(Boosters), triggered)
	assert.Greater(t, ltSum, boosterSumCap)
	assert.LessOrEqual(t, result.LongTermScore, 100.0)
}

func TestScoresAlwaysClampedToRange(t *testing.T) {
	records := []map[string]float64{
		strongFields(),
		{"net_profit": -1000, "debt_to_equity": 10, "rsi_14": 5, "pe_ratio": 300,
			"promoter_pledging": 90, "current_ratio": 0.1, "interest_coverage": 0.1,
			"revenue_growth_yoy": -80, "eps_growth_yoy": -90, "operating_margin": -10},
		{},
		{"rsi_14": 50},
	}
	engine := NewEngine()
	for _, fields := range records {
		result := engine.Score(recordWith(t, fields))
		assert.GreaterOrEqual(t, result.ShortTermScore, 0.0)
		assert.LessOrEqual(t, result.ShortTermScore, 100.0)
		assert.GreaterOrEqual(t, result.LongTermScore, 0.0)
		assert.LessOrEqual(t, result.LongTermScore, 100.0)
		assert.GreaterOrEqual(t, result.Confidence, 0.0)
		assert.LessOrEqual(t, result.Confidence, 100.0)
	}
}

func TestMissingDataIsNeverAFalsePass(t *testing.T) {
	// An empty record can trigger nothing: every rule is indeterminate.
	result := NewEngine().Score(recordWith(t, nil))

	assert.Empty(t, result.DealBreakers)
	assert.Empty(t, result.Penalties)
	assert.Empty(t, result.Boosters)
	assert.Len(t, result.Indeterminate, len(DealBreakers)+len(Penalties)+len(Boosters))
	assert.Equal(t, ChecklistInsufficient, result.ShortChecklist.Verdict)
	assert.Equal(t, ChecklistInsufficient, result.LongChecklist.Verdict)
}

func TestIndeterminateChecklistItemsExcludedFromBothTallies(t *testing.T) {
	// Only RSI present: two short-term items are determinate.
	result := evaluateChecklist(ShortTermChecklist, recordWith(t, map[string]float64{"rsi_14": 50}))

	assert.Equal(t, 2, result.Passed)
	assert.Equal(t, 0, result.Failed)
	assert.Len(t, result.Indeterminate, len(ShortTermChecklist)-2)
	assert.Equal(t, ChecklistPass, result.Verdict)
}

func TestChecklistDealBreakerForcesFail(t *testing.T) {
	fields := strongFields()
	fields["net_profit"] = -50

	result := evaluateChecklist(LongTermChecklist, recordWith(t, fields))

	assert.True(t, result.DealBreakerFailed)
	assert.Equal(t, ChecklistFail, result.Verdict)
}

func TestVerdictBands(t *testing.T) {
	cases := []struct {
		score   float64
		verdict string
	}{
		{95, VerdictStrongBuy}, {80, VerdictStrongBuy},
		{79.9, VerdictBuy}, {65, VerdictBuy},
		{64.9, VerdictHold}, {50, VerdictHold},
		{49.9, VerdictAvoid}, {35, VerdictAvoid},
		{34.9, VerdictStrongAvoid}, {0, VerdictStrongAvoid},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.verdict, verdictFor(tc.score), "score %.1f", tc.score)
	}
}

func TestConfidenceWeightedSum(t *testing.T) {
	rec := recordWith(t, strongFields())
	now := time.Now()

	completeness := rec.Completeness() * 100
	freshness := rec.Freshness(now) * 100
	model := 100.0 // strongFields makes every rule determinate
	expected := 0.40*completeness + 0.30*freshness + 0.15*75 + 0.15*model

	got := confidence(rec, now, model)
	assert.InDelta(t, expected, got, 0.001)

	// A second agreeing source lifts the agreement term to 100.
	rec.AddSource("nse")
	withAgreement := confidence(rec, now, model)
	assert.InDelta(t, expected+0.15*25, withAgreement, 0.001)
}

func TestScoringIsDeterministic(t *testing.T) {
	engine := NewEngine()
	fixed := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	engine.now = func() time.Time { return fixed }

	rec := canonical.NewRecord("TESTCO", fixed.Add(-time.Hour))
	rec.AddSource("groww")
	for name, v := range strongFields() {
		rec.Set(name, v, rec.AsOf)
	}

	first := engine.Score(rec)
	second := engine.Score(rec)
	assert.Equal(t, first, second)
}

func TestSubScoreNeutralWhenCategoryEmpty(t *testing.T) {
	rec := recordWith(t, map[string]float64{"rsi_14": 55})
	sub := computeSubScores(rec)

	assert.Equal(t, neutralSubScore, sub.Fundamental)
	assert.Equal(t, neutralSubScore, sub.Valuation)
	assert.Equal(t, neutralSubScore, sub.Quality)
	assert.Equal(t, neutralSubScore, sub.Risk)
	assert.Greater(t, sub.Technical, neutralSubScore)
}
