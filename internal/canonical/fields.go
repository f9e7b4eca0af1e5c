package canonical

// Category groups canonical fields the way downstream consumers query them.
type Category string

const (
	CategoryMaster       Category = "master_data"
	CategoryPriceVolume  Category = "price_volume"
	CategoryDerived      Category = "derived_metrics"
	CategoryIncome       Category = "income_statement"
	CategoryBalance      Category = "balance_sheet"
	CategoryCashFlow     Category = "cash_flow"
	CategoryRatios       Category = "ratios"
	CategoryValuation    Category = "valuation"
	CategoryShareholding Category = "shareholding"
	CategoryCorpActions  Category = "corporate_actions"
	CategoryNews         Category = "news_sentiment"
	CategoryTechnical    Category = "technical_indicators"
	CategoryQualitative  Category = "qualitative_metadata"
)

// FieldDef describes one canonical field. Aliases are the alternative names a
// consumer may look the value up under; Set() populates all of them so a
// producer/consumer naming mismatch can never drop data. Expected fields feed
// the completeness term of the confidence score.
type FieldDef struct {
	Name     string
	Category Category
	Aliases  []string
	Expected bool
}

// Fields is the canonical field registry.
var Fields = []FieldDef{
	// Master data
	{Name: "symbol", Category: CategoryMaster, Expected: true},
	{Name: "company_name", Category: CategoryMaster, Aliases: []string{"name"}},
	{Name: "isin", Category: CategoryMaster},
	{Name: "exchange", Category: CategoryMaster, Aliases: []string{"exchange_code"}},
	{Name: "series", Category: CategoryMaster},
	{Name: "sector", Category: CategoryMaster},
	{Name: "industry", Category: CategoryMaster},

	// Price / volume
	{Name: "open", Category: CategoryPriceVolume, Aliases: []string{"day_open"}, Expected: true},
	{Name: "high", Category: CategoryPriceVolume, Aliases: []string{"day_high"}, Expected: true},
	{Name: "low", Category: CategoryPriceVolume, Aliases: []string{"day_low"}, Expected: true},
	{Name: "close", Category: CategoryPriceVolume, Aliases: []string{"ltp", "current_price", "last_price"}, Expected: true},
	{Name: "prev_close", Category: CategoryPriceVolume, Aliases: []string{"previous_close"}, Expected: true},
	{Name: "volume", Category: CategoryPriceVolume, Aliases: []string{"total_traded_volume"}, Expected: true},
	{Name: "turnover", Category: CategoryPriceVolume, Aliases: []string{"total_traded_value"}},
	{Name: "total_trades", Category: CategoryPriceVolume},
	{Name: "vwap", Category: CategoryPriceVolume, Aliases: []string{"average_price"}},
	{Name: "delivery_qty", Category: CategoryPriceVolume, Aliases: []string{"delivery_quantity"}},
	{Name: "delivery_pct", Category: CategoryPriceVolume, Aliases: []string{"delivery_percentage"}},
	{Name: "upper_circuit", Category: CategoryPriceVolume, Aliases: []string{"upper_circuit_limit"}},
	{Name: "lower_circuit", Category: CategoryPriceVolume, Aliases: []string{"lower_circuit_limit"}},
	{Name: "week_52_high", Category: CategoryPriceVolume, Aliases: []string{"high_52w"}},
	{Name: "week_52_low", Category: CategoryPriceVolume, Aliases: []string{"low_52w"}},

	// Derived metrics
	{Name: "price_change", Category: CategoryDerived, Aliases: []string{"net_change"}},
	{Name: "price_change_percent", Category: CategoryDerived, Aliases: []string{"change_percent", "day_change_perc"}, Expected: true},
	{Name: "volatility_30d", Category: CategoryDerived},

	// Income statement
	{Name: "revenue", Category: CategoryIncome, Aliases: []string{"sales", "total_income"}, Expected: true},
	{Name: "revenue_growth_yoy", Category: CategoryIncome, Aliases: []string{"sales_growth"}, Expected: true},
	{Name: "operating_profit", Category: CategoryIncome},
	{Name: "operating_margin", Category: CategoryIncome, Aliases: []string{"opm"}, Expected: true},
	{Name: "net_profit", Category: CategoryIncome, Aliases: []string{"pat"}, Expected: true},
	{Name: "net_profit_margin", Category: CategoryIncome, Aliases: []string{"npm"}, Expected: true},
	{Name: "eps", Category: CategoryIncome, Aliases: []string{"earnings_per_share"}, Expected: true},
	{Name: "eps_growth_yoy", Category: CategoryIncome, Expected: true},
	{Name: "ebitda", Category: CategoryIncome},

	// Balance sheet
	{Name: "total_assets", Category: CategoryBalance},
	{Name: "total_equity", Category: CategoryBalance, Aliases: []string{"shareholders_equity"}},
	{Name: "total_debt", Category: CategoryBalance, Aliases: []string{"borrowings"}, Expected: true},
	{Name: "cash_and_equiv", Category: CategoryBalance, Aliases: []string{"cash_and_equivalents"}},
	{Name: "reserves", Category: CategoryBalance},

	// Cash flow
	{Name: "operating_cash_flow", Category: CategoryCashFlow, Aliases: []string{"cfo"}, Expected: true},
	{Name: "investing_cash_flow", Category: CategoryCashFlow},
	{Name: "financing_cash_flow", Category: CategoryCashFlow},
	{Name: "free_cash_flow", Category: CategoryCashFlow, Aliases: []string{"fcf"}, Expected: true},

	// Ratios
	{Name: "roe", Category: CategoryRatios, Aliases: []string{"return_on_equity"}, Expected: true},
	{Name: "roce", Category: CategoryRatios, Aliases: []string{"return_on_capital_employed"}},
	{Name: "debt_to_equity", Category: CategoryRatios, Aliases: []string{"de_ratio"}, Expected: true},
	{Name: "current_ratio", Category: CategoryRatios, Expected: true},
	{Name: "interest_coverage", Category: CategoryRatios, Aliases: []string{"interest_coverage_ratio"}, Expected: true},
	{Name: "asset_turnover", Category: CategoryRatios},

	// Valuation
	{Name: "market_cap", Category: CategoryValuation, Aliases: []string{"mcap"}, Expected: true},
	{Name: "pe_ratio", Category: CategoryValuation, Aliases: []string{"pe", "price_to_earnings"}, Expected: true},
	{Name: "pb_ratio", Category: CategoryValuation, Aliases: []string{"pb", "price_to_book"}, Expected: true},
	{Name: "book_value", Category: CategoryValuation},
	{Name: "dividend_yield", Category: CategoryValuation, Expected: true},
	{Name: "face_value", Category: CategoryValuation},
	{Name: "ev_to_ebitda", Category: CategoryValuation},

	// Shareholding
	{Name: "promoter_holding", Category: CategoryShareholding, Expected: true},
	{Name: "promoter_pledging", Category: CategoryShareholding, Aliases: []string{"pledged_percentage"}, Expected: true},
	{Name: "fii_holding", Category: CategoryShareholding, Expected: true},
	{Name: "dii_holding", Category: CategoryShareholding, Expected: true},
	{Name: "public_holding", Category: CategoryShareholding},
	{Name: "mf_holding", Category: CategoryShareholding},
	{Name: "insurance_holding", Category: CategoryShareholding},
	{Name: "promoter_holding_change", Category: CategoryShareholding, Expected: true},
	{Name: "fii_holding_change", Category: CategoryShareholding, Expected: true},
	{Name: "num_shareholders", Category: CategoryShareholding},

	// Corporate actions
	{Name: "dividend_per_share", Category: CategoryCorpActions},
	{Name: "ex_dividend_date", Category: CategoryCorpActions},
	{Name: "split_ratio", Category: CategoryCorpActions},
	{Name: "bonus_ratio", Category: CategoryCorpActions},

	// News / sentiment
	{Name: "news_sentiment", Category: CategoryNews, Aliases: []string{"sentiment_score"}},
	{Name: "news_count_7d", Category: CategoryNews},

	// Technical indicators
	{Name: "sma_20", Category: CategoryTechnical},
	{Name: "sma_50", Category: CategoryTechnical, Expected: true},
	{Name: "sma_200", Category: CategoryTechnical, Expected: true},
	{Name: "ema_12", Category: CategoryTechnical},
	{Name: "ema_26", Category: CategoryTechnical},
	{Name: "rsi_14", Category: CategoryTechnical, Aliases: []string{"rsi"}, Expected: true},
	{Name: "macd", Category: CategoryTechnical},
	{Name: "macd_signal", Category: CategoryTechnical},
	{Name: "bollinger_upper", Category: CategoryTechnical},
	{Name: "bollinger_lower", Category: CategoryTechnical},
	{Name: "atr_14", Category: CategoryTechnical},
	{Name: "adx_14", Category: CategoryTechnical},
	{Name: "obv", Category: CategoryTechnical},
	{Name: "support_level", Category: CategoryTechnical},
	{Name: "resistance_level", Category: CategoryTechnical},

	// Qualitative / metadata
	{Name: "data_source", Category: CategoryQualitative},
	{Name: "period_end", Category: CategoryQualitative},
	{Name: "period_type", Category: CategoryQualitative},
	{Name: "quarter_end", Category: CategoryQualitative},
}

var (
	fieldIndex map[string]FieldDef
	aliasIndex map[string]string // any accepted name -> canonical name
	expected   []string
)

func init() {
	fieldIndex = make(map[string]FieldDef, len(Fields))
	aliasIndex = make(map[string]string)
	for _, f := range Fields {
		fieldIndex[f.Name] = f
		aliasIndex[f.Name] = f.Name
		for _, a := range f.Aliases {
			aliasIndex[a] = f.Name
		}
		if f.Expected {
			expected = append(expected, f.Name)
		}
	}
}

// Lookup resolves any accepted field name (canonical or alias) to its
// definition. The boolean reports whether the name is known.
func Lookup(name string) (FieldDef, bool) {
	canonical, ok := aliasIndex[name]
	if !ok {
		return FieldDef{}, false
	}
	return fieldIndex[canonical], true
}

// ExpectedFields returns the canonical names used for the completeness term.
func ExpectedFields() []string {
	out := make([]string, len(expected))
	copy(out, expected)
	return out
}

// FieldsByCategory returns the registry grouped by category.
func FieldsByCategory() map[Category][]FieldDef {
	out := make(map[Category][]FieldDef)
	for _, f := range Fields {
		out[f.Category] = append(out[f.Category], f)
	}
	return out
}
