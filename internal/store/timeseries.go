package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ShraddheyWamanSatpute/Stock-Pulse/internal/canonical"
)

// DailyPrice is one row of prices_daily.
type DailyPrice struct {
	Symbol        string    `json:"symbol"`
	Date          time.Time `json:"date"`
	Open          *float64  `json:"open,omitempty"`
	High          *float64  `json:"high,omitempty"`
	Low           *float64  `json:"low,omitempty"`
	Close         *float64  `json:"close,omitempty"`
	PrevClose     *float64  `json:"prev_close,omitempty"`
	Volume        *float64  `json:"volume,omitempty"`
	Turnover      *float64  `json:"turnover,omitempty"`
	VWAP          *float64  `json:"vwap,omitempty"`
	DeliveryPct   *float64  `json:"delivery_pct,omitempty"`
	Week52High    *float64  `json:"week_52_high,omitempty"`
	Week52Low     *float64  `json:"week_52_low,omitempty"`
	ChangePercent *float64  `json:"price_change_percent,omitempty"`
}

// IndicatorRow is one row of technical_indicators.
type IndicatorRow struct {
	Symbol         string    `json:"symbol"`
	Date           time.Time `json:"date"`
	SMA20          *float64  `json:"sma_20,omitempty"`
	SMA50          *float64  `json:"sma_50,omitempty"`
	SMA200         *float64  `json:"sma_200,omitempty"`
	RSI14          *float64  `json:"rsi_14,omitempty"`
	MACD           *float64  `json:"macd,omitempty"`
	MACDSignal     *float64  `json:"macd_signal,omitempty"`
	BollingerUpper *float64  `json:"bollinger_upper,omitempty"`
	BollingerLower *float64  `json:"bollinger_lower,omitempty"`
	ATR14          *float64  `json:"atr_14,omitempty"`
	ADX14          *float64  `json:"adx_14,omitempty"`
}

// FundamentalsRow is one row of fundamentals_quarterly.
type FundamentalsRow struct {
	Symbol           string    `json:"symbol"`
	PeriodEnd        time.Time `json:"period_end"`
	PeriodType       string    `json:"period_type"`
	Revenue          *float64  `json:"revenue,omitempty"`
	RevenueGrowthYoY *float64  `json:"revenue_growth_yoy,omitempty"`
	NetProfit        *float64  `json:"net_profit,omitempty"`
	NetProfitMargin  *float64  `json:"net_profit_margin,omitempty"`
	OperatingMargin  *float64  `json:"operating_margin,omitempty"`
	EPS              *float64  `json:"eps,omitempty"`
	EPSGrowthYoY     *float64  `json:"eps_growth_yoy,omitempty"`
	ROE              *float64  `json:"roe,omitempty"`
	ROCE             *float64  `json:"roce,omitempty"`
	DebtToEquity     *float64  `json:"debt_to_equity,omitempty"`
	CurrentRatio     *float64  `json:"current_ratio,omitempty"`
	InterestCoverage *float64  `json:"interest_coverage,omitempty"`
	OperatingCF      *float64  `json:"operating_cash_flow,omitempty"`
	FreeCashFlow     *float64  `json:"free_cash_flow,omitempty"`
	MarketCap        *float64  `json:"market_cap,omitempty"`
	PERatio          *float64  `json:"pe_ratio,omitempty"`
	PBRatio          *float64  `json:"pb_ratio,omitempty"`
	DividendYield    *float64  `json:"dividend_yield,omitempty"`
}

// ShareholdingRow is one row of shareholding_quarterly.
type ShareholdingRow struct {
	Symbol                string    `json:"symbol"`
	QuarterEnd            time.Time `json:"quarter_end"`
	PromoterHolding       *float64  `json:"promoter_holding,omitempty"`
	PromoterHoldingChange *float64  `json:"promoter_holding_change,omitempty"`
	PromoterPledging      *float64  `json:"promoter_pledging,omitempty"`
	FIIHolding            *float64  `json:"fii_holding,omitempty"`
	FIIHoldingChange      *float64  `json:"fii_holding_change,omitempty"`
	DIIHolding            *float64  `json:"dii_holding,omitempty"`
	PublicHolding         *float64  `json:"public_holding,omitempty"`
}

// TableStats carries per-table row counts for the health endpoint.
type TableStats struct {
	Prices       int64 `json:"prices_daily"`
	Indicators   int64 `json:"technical_indicators"`
	Fundamentals int64 `json:"fundamentals_quarterly"`
	Shareholding int64 `json:"shareholding_quarterly"`
}

// TimeseriesStore is the authoritative relational sink. Each canonical
// record fans out into up to four tables keyed by their natural composite
// keys; re-extraction of the same day or quarter updates in place.
type TimeseriesStore struct {
	pool *pgxpool.Pool
}

func NewTimeseriesStore(pool *pgxpool.Pool) *TimeseriesStore {
	return &TimeseriesStore{pool: pool}
}

// fv pulls a canonical field as a nullable column value.
func fv(rec *canonical.Record, name string) *float64 {
	if v, ok := rec.Float(name); ok {
		return &v
	}
	return nil
}

// SaveRecord splits a canonical record across the four tables. A table is
// touched only when the record carries at least one of its columns, so a
// price-only tick never writes empty fundamentals rows.
func (s *TimeseriesStore) SaveRecord(ctx context.Context, rec *canonical.Record) error {
	day := rec.AsOf.Truncate(24 * time.Hour)

	if hasAny(rec, "open", "high", "low", "close", "volume") {
		if err := s.upsertPrice(ctx, rec, day); err != nil {
			return fmt.Errorf("prices_daily upsert for %s: %w", rec.Symbol, err)
		}
	}
	if hasAny(rec, "sma_50", "sma_200", "rsi_14", "macd", "atr_14") {
		if err := s.upsertIndicators(ctx, rec, day); err != nil {
			return fmt.Errorf("technical_indicators upsert for %s: %w", rec.Symbol, err)
		}
	}
	if hasAny(rec, "revenue", "net_profit", "eps", "roe", "debt_to_equity", "pe_ratio", "market_cap") {
		if err := s.upsertFundamentals(ctx, rec, day); err != nil {
			return fmt.Errorf("fundamentals_quarterly upsert for %s: %w", rec.Symbol, err)
		}
	}
	if hasAny(rec, "promoter_holding", "fii_holding", "dii_holding", "promoter_pledging") {
		if err := s.upsertShareholding(ctx, rec, day); err != nil {
			return fmt.Errorf("shareholding_quarterly upsert for %s: %w", rec.Symbol, err)
		}
	}
	return nil
}

func hasAny(rec *canonical.Record, names ...string) bool {
	for _, n := range names {
		if rec.Has(n) {
			return true
		}
	}
	return false
}

func (s *TimeseriesStore) upsertPrice(ctx context.Context, rec *canonical.Record, day time.Time) error {
	query := `
		INSERT INTO prices_daily (
			symbol, date, open, high, low, close, prev_close, volume,
			turnover, vwap, delivery_pct, week_52_high, week_52_low,
			price_change_percent, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW())
		ON CONFLICT (symbol, date) DO UPDATE SET
			open = COALESCE(EXCLUDED.open, prices_daily.open),
			high = COALESCE(EXCLUDED.high, prices_daily.high),
			low = COALESCE(EXCLUDED.low, prices_daily.low),
			close = COALESCE(EXCLUDED.close, prices_daily.close),
			prev_close = COALESCE(EXCLUDED.prev_close, prices_daily.prev_close),
			volume = COALESCE(EXCLUDED.volume, prices_daily.volume),
			turnover = COALESCE(EXCLUDED.turnover, prices_daily.turnover),
			vwap = COALESCE(EXCLUDED.vwap, prices_daily.vwap),
			delivery_pct = COALESCE(EXCLUDED.delivery_pct, prices_daily.delivery_pct),
			week_52_high = COALESCE(EXCLUDED.week_52_high, prices_daily.week_52_high),
			week_52_low = COALESCE(EXCLUDED.week_52_low, prices_daily.week_52_low),
			price_change_percent = COALESCE(EXCLUDED.price_change_percent, prices_daily.price_change_percent),
			updated_at = NOW()
	`
	_, err := s.pool.Exec(ctx, query,
		rec.Symbol, day,
		fv(rec, "open"), fv(rec, "high"), fv(rec, "low"), fv(rec, "close"),
		fv(rec, "prev_close"), fv(rec, "volume"), fv(rec, "turnover"),
		fv(rec, "vwap"), fv(rec, "delivery_pct"),
		fv(rec, "week_52_high"), fv(rec, "week_52_low"),
		fv(rec, "price_change_percent"),
	)
	return err
}

func (s *TimeseriesStore) upsertIndicators(ctx context.Context, rec *canonical.Record, day time.Time) error {
	query := `
		INSERT INTO technical_indicators (
			symbol, date, sma_20, sma_50, sma_200, rsi_14, macd, macd_signal,
			bollinger_upper, bollinger_lower, atr_14, adx_14, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW())
		ON CONFLICT (symbol, date) DO UPDATE SET
			sma_20 = COALESCE(EXCLUDED.sma_20, technical_indicators.sma_20),
			sma_50 = COALESCE(EXCLUDED.sma_50, technical_indicators.sma_50),
			sma_200 = COALESCE(EXCLUDED.sma_200, technical_indicators.sma_200),
			rsi_14 = COALESCE(EXCLUDED.rsi_14, technical_indicators.rsi_14),
			macd = COALESCE(EXCLUDED.macd, technical_indicators.macd),
			macd_signal = COALESCE(EXCLUDED.macd_signal, technical_indicators.macd_signal),
			bollinger_upper = COALESCE(EXCLUDED.bollinger_upper, technical_indicators.bollinger_upper),
			bollinger_lower = COALESCE(EXCLUDED.bollinger_lower, technical_indicators.bollinger_lower),
			atr_14 = COALESCE(EXCLUDED.atr_14, technical_indicators.atr_14),
			adx_14 = COALESCE(EXCLUDED.adx_14, technical_indicators.adx_14),
			updated_at = NOW()
	`
	_, err := s.pool.Exec(ctx, query,
		rec.Symbol, day,
		fv(rec, "sma_20"), fv(rec, "sma_50"), fv(rec, "sma_200"),
		fv(rec, "rsi_14"), fv(rec, "macd"), fv(rec, "macd_signal"),
		fv(rec, "bollinger_upper"), fv(rec, "bollinger_lower"),
		fv(rec, "atr_14"), fv(rec, "adx_14"),
	)
	return err
}

func (s *TimeseriesStore) upsertFundamentals(ctx context.Context, rec *canonical.Record, day time.Time) error {
	periodEnd := day
	if v, ok := rec.Str("period_end"); ok {
		if parsed, err := time.Parse("2006-01-02", v); err == nil {
			periodEnd = parsed
		}
	}
	periodType := "quarterly"
	if v, ok := rec.Str("period_type"); ok {
		periodType = v
	}

	query := `
		INSERT INTO fundamentals_quarterly (
			symbol, period_end, period_type, revenue, revenue_growth_yoy,
			net_profit, net_profit_margin, operating_margin, eps, eps_growth_yoy,
			roe, roce, debt_to_equity, current_ratio, interest_coverage,
			operating_cash_flow, free_cash_flow, market_cap, pe_ratio, pb_ratio,
			dividend_yield, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, NOW())
		ON CONFLICT (symbol, period_end, period_type) DO UPDATE SET
			revenue = COALESCE(EXCLUDED.revenue, fundamentals_quarterly.revenue),
			revenue_growth_yoy = COALESCE(EXCLUDED.revenue_growth_yoy, fundamentals_quarterly.revenue_growth_yoy),
			net_profit = COALESCE(EXCLUDED.net_profit, fundamentals_quarterly.net_profit),
			net_profit_margin = COALESCE(EXCLUDED.net_profit_margin, fundamentals_quarterly.net_profit_margin),
			operating_margin = COALESCE(EXCLUDED.operating_margin, fundamentals_quarterly.operating_margin),
			eps = COALESCE(EXCLUDED.eps, fundamentals_quarterly.eps),
			eps_growth_yoy = COALESCE(EXCLUDED.eps_growth_yoy, fundamentals_quarterly.eps_growth_yoy),
			roe = COALESCE(EXCLUDED.roe, fundamentals_quarterly.roe),
			roce = COALESCE(EXCLUDED.roce, fundamentals_quarterly.roce),
			debt_to_equity = COALESCE(EXCLUDED.debt_to_equity, fundamentals_quarterly.debt_to_equity),
			current_ratio = COALESCE(EXCLUDED.current_ratio, fundamentals_quarterly.current_ratio),
			interest_coverage = COALESCE(EXCLUDED.interest_coverage, fundamentals_quarterly.interest_coverage),
			operating_cash_flow = COALESCE(EXCLUDED.operating_cash_flow, fundamentals_quarterly.operating_cash_flow),
			free_cash_flow = COALESCE(EXCLUDED.free_cash_flow, fundamentals_quarterly.free_cash_flow),
			market_cap = COALESCE(EXCLUDED.market_cap, fundamentals_quarterly.market_cap),
			pe_ratio = COALESCE(EXCLUDED.pe_ratio, fundamentals_quarterly.pe_ratio),
			pb_ratio = COALESCE(EXCLUDED.pb_ratio, fundamentals_quarterly.pb_ratio),
			dividend_yield = COALESCE(EXCLUDED.dividend_yield, fundamentals_quarterly.dividend_yield),
			updated_at = NOW()
	`
	_, err := s.pool.Exec(ctx, query,
		rec.Symbol, periodEnd, periodType,
		fv(rec, "revenue"), fv(rec, "revenue_growth_yoy"),
		fv(rec, "net_profit"), fv(rec, "net_profit_margin"),
		fv(rec, "operating_margin"), fv(rec, "eps"), fv(rec, "eps_growth_yoy"),
		fv(rec, "roe"), fv(rec, "roce"), fv(rec, "debt_to_equity"),
		fv(rec, "current_ratio"), fv(rec, "interest_coverage"),
		fv(rec, "operating_cash_flow"), fv(rec, "free_cash_flow"),
		fv(rec, "market_cap"), fv(rec, "pe_ratio"), fv(rec, "pb_ratio"),
		fv(rec, "dividend_yield"),
	)
	return err
}

func (s *TimeseriesStore) upsertShareholding(ctx context.Context, rec *canonical.Record, day time.Time) error {
	quarterEnd := day
	if v, ok := rec.Str("quarter_end"); ok {
		if parsed, err := time.Parse("2006-01-02", v); err == nil {
			quarterEnd = parsed
		}
	}

	query := `
		INSERT INTO shareholding_quarterly (
			symbol, quarter_end, promoter_holding, promoter_holding_change,
			promoter_pledging, fii_holding, fii_holding_change, dii_holding,
			public_holding, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		ON CONFLICT (symbol, quarter_end) DO UPDATE SET
			promoter_holding = COALESCE(EXCLUDED.promoter_holding, shareholding_quarterly.promoter_holding),
			promoter_holding_change = COALESCE(EXCLUDED.promoter_holding_change, shareholding_quarterly.promoter_holding_change),
			promoter_pledging = COALESCE(EXCLUDED.promoter_pledging, shareholding_quarterly.promoter_pledging),
			fii_holding = COALESCE(EXCLUDED.fii_holding, shareholding_quarterly.fii_holding),
			fii_holding_change = COALESCE(EXCLUDED.fii_holding_change, shareholding_quarterly.fii_holding_change),
			dii_holding = COALESCE(EXCLUDED.dii_holding, shareholding_quarterly.dii_holding),
			public_holding = COALESCE(EXCLUDED.public_holding, shareholding_quarterly.public_holding),
			updated_at = NOW()
	`
	_, err := s.pool.Exec(ctx, query,
		rec.Symbol, quarterEnd,
		fv(rec, "promoter_holding"), fv(rec, "promoter_holding_change"),
		fv(rec, "promoter_pledging"), fv(rec, "fii_holding"),
		fv(rec, "fii_holding_change"), fv(rec, "dii_holding"),
		fv(rec, "public_holding"),
	)
	return err
}

// PriceHistory returns up to limit most recent daily rows, newest first.
func (s *TimeseriesStore) PriceHistory(ctx context.Context, symbol string, limit int) ([]*DailyPrice, error) {
	query := `
		SELECT symbol, date, open, high, low, close, prev_close, volume,
			turnover, vwap, delivery_pct, week_52_high, week_52_low,
			price_change_percent
		FROM prices_daily
		WHERE symbol = $1
		ORDER BY date DESC
		LIMIT $2
	`
	rows, err := s.pool.Query(ctx, query, symbol, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var prices []*DailyPrice
	for rows.Next() {
		var p DailyPrice
		if err := rows.Scan(&p.Symbol, &p.Date, &p.Open, &p.High, &p.Low,
			&p.Close, &p.PrevClose, &p.Volume, &p.Turnover, &p.VWAP,
			&p.DeliveryPct, &p.Week52High, &p.Week52Low, &p.ChangePercent); err != nil {
			return nil, err
		}
		prices = append(prices, &p)
	}
	return prices, rows.Err()
}

// LatestPrice returns the most recent daily row for a symbol.
func (s *TimeseriesStore) LatestPrice(ctx context.Context, symbol string) (*DailyPrice, error) {
	prices, err := s.PriceHistory(ctx, symbol, 1)
	if err != nil {
		return nil, err
	}
	if len(prices) == 0 {
		return nil, fmt.Errorf("no price rows for %s", symbol)
	}
	return prices[0], nil
}

// IndicatorHistory returns up to limit indicator rows, newest first.
func (s *TimeseriesStore) IndicatorHistory(ctx context.Context, symbol string, limit int) ([]*IndicatorRow, error) {
	query := `
		SELECT symbol, date, sma_20, sma_50, sma_200, rsi_14, macd,
			macd_signal, bollinger_upper, bollinger_lower, atr_14, adx_14
		FROM technical_indicators
		WHERE symbol = $1
		ORDER BY date DESC
		LIMIT $2
	`
	rows, err := s.pool.Query(ctx, query, symbol, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*IndicatorRow
	for rows.Next() {
		var r IndicatorRow
		if err := rows.Scan(&r.Symbol, &r.Date, &r.SMA20, &r.SMA50, &r.SMA200,
			&r.RSI14, &r.MACD, &r.MACDSignal, &r.BollingerUpper,
			&r.BollingerLower, &r.ATR14, &r.ADX14); err != nil {
			return nil, err
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

// FundamentalsHistory returns up to limit quarters, newest first.
func (s *TimeseriesStore) FundamentalsHistory(ctx context.Context, symbol string, limit int) ([]*FundamentalsRow, error) {
	query := `
		SELECT symbol, period_end, period_type, revenue, revenue_growth_yoy,
			net_profit, net_profit_margin, operating_margin, eps,
			eps_growth_yoy, roe, roce, debt_to_equity, current_ratio,
			interest_coverage, operating_cash_flow, free_cash_flow,
			market_cap, pe_ratio, pb_ratio, dividend_yield
		FROM fundamentals_quarterly
		WHERE symbol = $1
		ORDER BY period_end DESC
		LIMIT $2
	`
	rows, err := s.pool.Query(ctx, query, symbol, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*FundamentalsRow
	for rows.Next() {
		var f FundamentalsRow
		if err := rows.Scan(&f.Symbol, &f.PeriodEnd, &f.PeriodType, &f.Revenue,
			&f.RevenueGrowthYoY, &f.NetProfit, &f.NetProfitMargin,
			&f.OperatingMargin, &f.EPS, &f.EPSGrowthYoY, &f.ROE, &f.ROCE,
			&f.DebtToEquity, &f.CurrentRatio, &f.InterestCoverage,
			&f.OperatingCF, &f.FreeCashFlow, &f.MarketCap, &f.PERatio,
			&f.PBRatio, &f.DividendYield); err != nil {
			return nil, err
		}
		out = append(out, &f)
	}
	return out, rows.Err()
}

// ShareholdingHistory returns up to limit quarters, newest first.
func (s *TimeseriesStore) ShareholdingHistory(ctx context.Context, symbol string, limit int) ([]*ShareholdingRow, error) {
	query := `
		SELECT symbol, quarter_end, promoter_holding, promoter_holding_change,
			promoter_pledging, fii_holding, fii_holding_change, dii_holding,
			public_holding
		FROM shareholding_quarterly
		WHERE symbol = $1
		ORDER BY quarter_end DESC
		LIMIT $2
	`
	rows, err := s.pool.Query(ctx, query, symbol, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*ShareholdingRow
	for rows.Next() {
		var sh ShareholdingRow
		if err := rows.Scan(&sh.Symbol, &sh.QuarterEnd, &sh.PromoterHolding,
			&sh.PromoterHoldingChange, &sh.PromoterPledging, &sh.FIIHolding,
			&sh.FIIHoldingChange, &sh.DIIHolding, &sh.PublicHolding); err != nil {
			return nil, err
		}
		out = append(out, &sh)
	}
	return out, rows.Err()
}

// Stats counts rows per table for the health endpoint.
func (s *TimeseriesStore) Stats(ctx context.Context) (*TableStats, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM prices_daily),
			(SELECT COUNT(*) FROM technical_indicators),
			(SELECT COUNT(*) FROM fundamentals_quarterly),
			(SELECT COUNT(*) FROM shareholding_quarterly)
	`
	var st TableStats
	err := s.pool.QueryRow(ctx, query).Scan(
		&st.Prices, &st.Indicators, &st.Fundamentals, &st.Shareholding,
	)
	if err != nil {
		return nil, err
	}
	return &st, nil
}
