package scoring

import (
	"math"

	"github.com/ShraddheyWamanSatpute/Stock-Pulse/internal/canonical"
)

// Sub-scores average the available signals in their category onto a 0-100
// scale. A category with no usable signal at all sits at the neutral
// midpoint so a sparse record biases toward HOLD rather than an extreme.

type signalAcc struct {
	sum float64
	n   int
}

func (a *signalAcc) add(v float64) {
	a.sum += v
	a.n++
}

func (a *signalAcc) value() float64 {
	if a.n == 0 {
		return neutralSubScore
	}
	return a.sum / float64(a.n)
}

// scaleUp maps v linearly from [lo,hi] to [0,100]; higher is better.
func scaleUp(v, lo, hi float64) float64 {
	return clamp((v-lo)/(hi-lo)*100, 0, 100)
}

// scaleDown maps v linearly from [lo,hi] to [100,0]; lower is better.
func scaleDown(v, lo, hi float64) float64 {
	return 100 - scaleUp(v, lo, hi)
}

func fundamentalScore(rec *canonical.Record) float64 {
	var acc signalAcc
	if v, ok := rec.Float("revenue_growth_yoy"); ok {
		acc.add(scaleUp(v, -20, 30))
	}
	if v, ok := rec.Float("eps_growth_yoy"); ok {
		acc.add(scaleUp(v, -25, 40))
	}
	if v, ok := rec.Float("operating_margin"); ok {
		acc.add(scaleUp(v, 0, 30))
	}
	if v, ok := rec.Float("net_profit_margin"); ok {
		acc.add(scaleUp(v, 0, 25))
	}
	if v, ok := rec.Float("roe"); ok {
		acc.add(scaleUp(v, 0, 30))
	}
	return acc.value()
}

func valuationScore(rec *canonical.Record) float64 {
	var acc signalAcc
	if v, ok := rec.Float("pe_ratio"); ok {
		acc.add(scaleDown(v, 10, 80))
	}
	if v, ok := rec.Float("pb_ratio"); ok {
		acc.add(scaleDown(v, 1, 12))
	}
	if v, ok := rec.Float("dividend_yield"); ok {
		acc.add(scaleUp(v, 0, 4))
	}
	if v, ok := rec.Float("ev_to_ebitda"); ok {
		acc.add(scaleDown(v, 5, 40))
	}
	return acc.value()
}

func technicalScore(rec *canonical.Record) float64 {
	var acc signalAcc
	if v, ok := rec.Float("rsi_14"); ok {
		// Best around the mid-50s: both exhaustion extremes score low.
		acc.add(clamp(100-math.Abs(v-55)*2.2, 0, 100))
	}
	if pct, ok := pctAbove(rec, "close", "sma_50"); ok {
		acc.add(scaleUp(pct, -10, 10))
	}
	if pct, ok := pctAbove(rec, "close", "sma_200"); ok {
		acc.add(scaleUp(pct, -15, 15))
	}
	if macd, ok := rec.Float("macd"); ok {
		if signal, ok := rec.Float("macd_signal"); ok {
			if macd > signal {
				acc.add(70)
			} else {
				acc.add(30)
			}
		}
	}
	return acc.value()
}

func qualityScore(rec *canonical.Record) float64 {
	var acc signalAcc
	if v, ok := rec.Float("promoter_holding"); ok {
		acc.add(scaleUp(v, 20, 70))
	}
	if v, ok := rec.Float("promoter_pledging"); ok {
		acc.add(scaleDown(v, 0, 50))
	}
	if v, ok := rec.Float("fii_holding"); ok {
		acc.add(scaleUp(v, 0, 30))
	}
	if v, ok := rec.Float("operating_cash_flow"); ok {
		if v > 0 {
			acc.add(80)
		} else {
			acc.add(20)
		}
	}
	if v, ok := rec.Float("free_cash_flow"); ok {
		if v > 0 {
			acc.add(75)
		} else {
			acc.add(25)
		}
	}
	return acc.value()
}

func riskScore(rec *canonical.Record) float64 {
	var acc signalAcc
	if v, ok := rec.Float("debt_to_equity"); ok {
		acc.add(scaleDown(v, 0, 3))
	}
	if v, ok := rec.Float("current_ratio"); ok {
		acc.add(scaleUp(v, 0.5, 2.5))
	}
	if v, ok := rec.Float("interest_coverage"); ok {
		acc.add(scaleUp(v, 0, 10))
	}
	if v, ok := rec.Float("volatility_30d"); ok {
		acc.add(scaleDown(v, 10, 60))
	}
	return acc.value()
}

// pctAbove is the percentage distance of field a above field b.
func pctAbove(rec *canonical.Record, a, b string) (float64, bool) {
	av, aok := rec.Float(a)
	bv, bok := rec.Float(b)
	if !aok || !bok || bv == 0 {
		return 0, false
	}
	return (av - bv) / bv * 100, true
}
