package store

import (
	"context"
	"fmt"
	"strings"
)

// ScreenerFilter is one predicate over the latest snapshot of a symbol.
type ScreenerFilter struct {
	Field string   `json:"field"`
	Op    string   `json:"op"`
	Value float64  `json:"value"`
	Upper *float64 `json:"upper,omitempty"` // second bound for "between"
}

// ScreenerRequest selects symbols whose latest rows satisfy every filter.
type ScreenerRequest struct {
	Filters  []ScreenerFilter `json:"filters"`
	SortBy   string           `json:"sort_by,omitempty"`
	SortDesc bool             `json:"sort_desc,omitempty"`
	Limit    int              `json:"limit,omitempty"`
}

// ScreenerRow is one matched symbol with the columns consumers sort on.
type ScreenerRow struct {
	Symbol           string   `json:"symbol"`
	Close            *float64 `json:"close,omitempty"`
	ChangePercent    *float64 `json:"price_change_percent,omitempty"`
	Volume           *float64 `json:"volume,omitempty"`
	RSI14            *float64 `json:"rsi_14,omitempty"`
	SMA50            *float64 `json:"sma_50,omitempty"`
	SMA200           *float64 `json:"sma_200,omitempty"`
	PERatio          *float64 `json:"pe_ratio,omitempty"`
	PBRatio          *float64 `json:"pb_ratio,omitempty"`
	MarketCap        *float64 `json:"market_cap,omitempty"`
	ROE              *float64 `json:"roe,omitempty"`
	DebtToEquity     *float64 `json:"debt_to_equity,omitempty"`
	InterestCoverage *float64 `json:"interest_coverage,omitempty"`
	EPSGrowthYoY     *float64 `json:"eps_growth_yoy,omitempty"`
	RevenueGrowthYoY *float64 `json:"revenue_growth_yoy,omitempty"`
	PromoterHolding  *float64 `json:"promoter_holding,omitempty"`
	PromoterPledging *float64 `json:"promoter_pledging,omitempty"`
	FIIHolding       *float64 `json:"fii_holding,omitempty"`
}

const defaultScreenerLimit = 100

// screenerColumns whitelists the filterable/sortable fields and maps them to
// columns of the joined latest-snapshot query. Requests naming anything else
// are rejected before SQL is built.
var screenerColumns = map[string]string{
	"close":                "p.close",
	"price_change_percent": "p.price_change_percent",
	"volume":               "p.volume",
	"rsi_14":               "t.rsi_14",
	"sma_50":               "t.sma_50",
	"sma_200":              "t.sma_200",
	"pe_ratio":             "f.pe_ratio",
	"pb_ratio":             "f.pb_ratio",
	"market_cap":           "f.market_cap",
	"roe":                  "f.roe",
	"debt_to_equity":       "f.debt_to_equity",
	"current_ratio":        "f.current_ratio",
	"interest_coverage":    "f.interest_coverage",
	"eps_growth_yoy":       "f.eps_growth_yoy",
	"revenue_growth_yoy":   "f.revenue_growth_yoy",
	"net_profit":           "f.net_profit",
	"dividend_yield":       "f.dividend_yield",
	"promoter_holding":     "s.promoter_holding",
	"promoter_pledging":    "s.promoter_pledging",
	"fii_holding":          "s.fii_holding",
	"dii_holding":          "s.dii_holding",
}

var screenerOps = map[string]string{
	"gt":  ">",
	"lt":  "<",
	"gte": ">=",
	"lte": "<=",
	"eq":  "=",
}

// Screen joins the latest row of each table per symbol and applies the
// filters. Symbols missing a joined table simply carry NULLs there, so a
// price-only symbol still screens on price fields.
func (s *TimeseriesStore) Screen(ctx context.Context, req ScreenerRequest) ([]*ScreenerRow, error) {
	where, args, err := buildScreenerWhere(req.Filters)
	if err != nil {
		return nil, err
	}

	orderBy := "p.symbol ASC"
	if req.SortBy != "" {
		col, ok := screenerColumns[req.SortBy]
		if !ok {
			return nil, fmt.Errorf("unknown sort field %q", req.SortBy)
		}
		dir := "ASC"
		if req.SortDesc {
			dir = "DESC"
		}
		orderBy = fmt.Sprintf("%s %s NULLS LAST", col, dir)
	}

	limit := req.Limit
	if limit <= 0 || limit > defaultScreenerLimit {
		limit = defaultScreenerLimit
	}

	query := fmt.Sprintf(`
		WITH latest_prices AS (
			SELECT DISTINCT ON (symbol) * FROM prices_daily
			ORDER BY symbol, date DESC
		),
		latest_indicators AS (
			SELECT DISTINCT ON (symbol) * FROM technical_indicators
			ORDER BY symbol, date DESC
		),
		latest_fundamentals AS (
			SELECT DISTINCT ON (symbol) * FROM fundamentals_quarterly
			ORDER BY symbol, period_end DESC
		),
		latest_shareholding AS (
			SELECT DISTINCT ON (symbol) * FROM shareholding_quarterly
			ORDER BY symbol, quarter_end DESC
		)
		SELECT p.symbol, p.close, p.price_change_percent, p.volume,
			t.rsi_14, t.sma_50, t.sma_200,
			f.pe_ratio, f.pb_ratio, f.market_cap, f.roe, f.debt_to_equity,
			f.interest_coverage, f.eps_growth_yoy, f.revenue_growth_yoy,
			s.promoter_holding, s.promoter_pledging, s.fii_holding
		FROM latest_prices p
		LEFT JOIN latest_indicators t ON t.symbol = p.symbol
		LEFT JOIN latest_fundamentals f ON f.symbol = p.symbol
		LEFT JOIN latest_shareholding s ON s.symbol = p.symbol
		%s
		ORDER BY %s
		LIMIT %d
	`, where, orderBy, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*ScreenerRow
	for rows.Next() {
		var r ScreenerRow
		if err := rows.Scan(&r.Symbol, &r.Close, &r.ChangePercent, &r.Volume,
			&r.RSI14, &r.SMA50, &r.SMA200, &r.PERatio, &r.PBRatio,
			&r.MarketCap, &r.ROE, &r.DebtToEquity, &r.InterestCoverage,
			&r.EPSGrowthYoY, &r.RevenueGrowthYoY, &r.PromoterHolding,
			&r.PromoterPledging, &r.FIIHolding); err != nil {
			return nil, err
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

// buildScreenerWhere turns validated filters into a WHERE clause with
// positional args.
func buildScreenerWhere(filters []ScreenerFilter) (string, []interface{}, error) {
	if len(filters) == 0 {
		return "", nil, nil
	}

	var (
		clauses []string
		args    []interface{}
	)
	for _, f := range filters {
		col, ok := screenerColumns[f.Field]
		if !ok {
			return "", nil, fmt.Errorf("unknown screener field %q", f.Field)
		}

		if f.Op == "between" {
			if f.Upper == nil {
				return "", nil, fmt.Errorf("between filter on %q needs an upper bound", f.Field)
			}
			args = append(args, f.Value, *f.Upper)
			clauses = append(clauses,
				fmt.Sprintf("%s BETWEEN $%d AND $%d", col, len(args)-1, len(args)))
			continue
		}

		op, ok := screenerOps[f.Op]
		if !ok {
			return "", nil, fmt.Errorf("unknown screener operator %q", f.Op)
		}
		args = append(args, f.Value)
		clauses = append(clauses, fmt.Sprintf("%s %s $%d", col, op, len(args)))
	}

	return "WHERE " + strings.Join(clauses, " AND "), args, nil
}
