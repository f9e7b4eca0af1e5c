package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/ShraddheyWamanSatpute/Stock-Pulse/internal/canonical"
	"github.com/ShraddheyWamanSatpute/Stock-Pulse/internal/scoring"
	"github.com/ShraddheyWamanSatpute/Stock-Pulse/internal/store"
	"github.com/ShraddheyWamanSatpute/Stock-Pulse/pkg/logger"
)

// MarketHandler serves screener, analysis and mover queries off the storage
// tiers. No upstream calls happen here.
type MarketHandler struct {
	timeseries *store.TimeseriesStore
	cache      *store.CacheStore
	engine     *scoring.Engine
	logger     *logger.Logger
}

func NewMarketHandler(ts *store.TimeseriesStore, cache *store.CacheStore, engine *scoring.Engine, log *logger.Logger) *MarketHandler {
	return &MarketHandler{timeseries: ts, cache: cache, engine: engine, logger: log}
}

// Screener filters the latest snapshot per symbol.
func (h *MarketHandler) Screener(w http.ResponseWriter, r *http.Request) {
	var req store.ScreenerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rows, err := h.timeseries.Screen(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(rows),
		"results": rows,
	})
}

// Analysis scores one symbol from its latest stored rows, read-through
// cached under the analysis TTL.
func (h *MarketHandler) Analysis(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]

	var cached scoring.ScoreResult
	if found, err := h.cache.GetAnalysis(r.Context(), symbol, &cached); err == nil && found {
		writeJSON(w, http.StatusOK, map[string]interface{}{"analysis": cached, "cached": true})
		return
	}

	rec, err := h.assembleRecord(r.Context(), symbol)
	if err != nil {
		writeError(w, http.StatusNotFound, "no stored data for "+symbol)
		return
	}

	result := h.engine.Score(rec)
	if err := h.cache.SetAnalysis(r.Context(), symbol, result); err != nil {
		h.logger.WithError(err).WithField("symbol", symbol).Debug("Analysis cache write failed")
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"analysis": result, "cached": false})
}

// Movers returns the cached gainer/loser leaderboards.
func (h *MarketHandler) Movers(w http.ResponseWriter, r *http.Request) {
	n := int64(queryInt(r, "limit", 10))

	gainers, err := h.cache.TopGainers(r.Context(), n)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "mover cache unavailable")
		return
	}
	losers, err := h.cache.TopLosers(r.Context(), n)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "mover cache unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"gainers": gainers,
		"losers":  losers,
	})
}

// Prices returns daily history for one symbol, newest first.
func (h *MarketHandler) Prices(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]
	limit := queryInt(r, "limit", 30)

	rows, err := h.timeseries.PriceHistory(r.Context(), symbol, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "price history query failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"symbol": symbol,
		"prices": rows,
	})
}

// assembleRecord rebuilds a canonical record from the latest stored row of
// each table. Field timestamps come from their row's period, so freshness
// reflects how stale each tier actually is.
func (h *MarketHandler) assembleRecord(ctx context.Context, symbol string) (*canonical.Record, error) {
	price, err := h.timeseries.LatestPrice(ctx, symbol)
	if err != nil {
		return nil, err
	}

	rec := canonical.NewRecord(symbol, price.Date)
	rec.AddSource("timeseries")

	setIf(rec, "open", price.Open, price.Date)
	setIf(rec, "high", price.High, price.Date)
	setIf(rec, "low", price.Low, price.Date)
	setIf(rec, "close", price.Close, price.Date)
	setIf(rec, "prev_close", price.PrevClose, price.Date)
	setIf(rec, "volume", price.Volume, price.Date)
	setIf(rec, "price_change_percent", price.ChangePercent, price.Date)
	setIf(rec, "week_52_high", price.Week52High, price.Date)
	setIf(rec, "week_52_low", price.Week52Low, price.Date)

	if inds, err := h.timeseries.IndicatorHistory(ctx, symbol, 1); err == nil && len(inds) > 0 {
		ind := inds[0]
		setIf(rec, "sma_20", ind.SMA20, ind.Date)
		setIf(rec, "sma_50", ind.SMA50, ind.Date)
		setIf(rec, "sma_200", ind.SMA200, ind.Date)
		setIf(rec, "rsi_14", ind.RSI14, ind.Date)
		setIf(rec, "macd", ind.MACD, ind.Date)
		setIf(rec, "macd_signal", ind.MACDSignal, ind.Date)
		setIf(rec, "atr_14", ind.ATR14, ind.Date)
		setIf(rec, "adx_14", ind.ADX14, ind.Date)
	}

	if funds, err := h.timeseries.FundamentalsHistory(ctx, symbol, 1); err == nil && len(funds) > 0 {
		f := funds[0]
		setIf(rec, "revenue", f.Revenue, f.PeriodEnd)
		setIf(rec, "revenue_growth_yoy", f.RevenueGrowthYoY, f.PeriodEnd)
		setIf(rec, "net_profit", f.NetProfit, f.PeriodEnd)
		setIf(rec, "net_profit_margin", f.NetProfitMargin, f.PeriodEnd)
		setIf(rec, "operating_margin", f.OperatingMargin, f.PeriodEnd)
		setIf(rec, "eps", f.EPS, f.PeriodEnd)
		setIf(rec, "eps_growth_yoy", f.EPSGrowthYoY, f.PeriodEnd)
		setIf(rec, "roe", f.ROE, f.PeriodEnd)
		setIf(rec, "roce", f.ROCE, f.PeriodEnd)
		setIf(rec, "debt_to_equity", f.DebtToEquity, f.PeriodEnd)
		setIf(rec, "current_ratio", f.CurrentRatio, f.PeriodEnd)
		setIf(rec, "interest_coverage", f.InterestCoverage, f.PeriodEnd)
		setIf(rec, "operating_cash_flow", f.OperatingCF, f.PeriodEnd)
		setIf(rec, "free_cash_flow", f.FreeCashFlow, f.PeriodEnd)
		setIf(rec, "market_cap", f.MarketCap, f.PeriodEnd)
		setIf(rec, "pe_ratio", f.PERatio, f.PeriodEnd)
		setIf(rec, "pb_ratio", f.PBRatio, f.PeriodEnd)
		setIf(rec, "dividend_yield", f.DividendYield, f.PeriodEnd)
	}

	if shs, err := h.timeseries.ShareholdingHistory(ctx, symbol, 1); err == nil && len(shs) > 0 {
		sh := shs[0]
		setIf(rec, "promoter_holding", sh.PromoterHolding, sh.QuarterEnd)
		setIf(rec, "promoter_holding_change", sh.PromoterHoldingChange, sh.QuarterEnd)
		setIf(rec, "promoter_pledging", sh.PromoterPledging, sh.QuarterEnd)
		setIf(rec, "fii_holding", sh.FIIHolding, sh.QuarterEnd)
		setIf(rec, "fii_holding_change", sh.FIIHoldingChange, sh.QuarterEnd)
		setIf(rec, "dii_holding", sh.DIIHolding, sh.QuarterEnd)
		setIf(rec, "public_holding", sh.PublicHolding, sh.QuarterEnd)
	}

	return rec, nil
}

func setIf(rec *canonical.Record, name string, v *float64, at time.Time) {
	if v != nil {
		rec.Set(name, *v, at)
	}
}
