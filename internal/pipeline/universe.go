package pipeline

import (
	"fmt"
	"sort"
	"sync"
)

// Universe categories.
const (
	CategoryNifty50     = "nifty_50"
	CategoryNiftyNext50 = "nifty_next_50"
	CategoryMidSmallCap = "mid_small_caps"
)

// defaultUniverse is the built-in NSE coverage: the Nifty 50, the Nifty Next
// 50 and a curated mid/small-cap set.
var defaultUniverse = map[string][]string{
	CategoryNifty50: {
		"ADANIENT", "ADANIPORTS", "APOLLOHOSP", "ASIANPAINT", "AXISBANK",
		"BAJAJ-AUTO", "BAJFINANCE", "BAJAJFINSV", "BEL", "BHARTIARTL",
		"BPCL", "BRITANNIA", "CIPLA", "COALINDIA", "DRREDDY",
		"EICHERMOT", "GRASIM", "HCLTECH", "HDFCBANK", "HDFCLIFE",
		"HEROMOTOCO", "HINDALCO", "HINDUNILVR", "ICICIBANK", "INDUSINDBK",
		"INFY", "ITC", "JSWSTEEL", "KOTAKBANK", "LT",
		"M&M", "MARUTI", "NESTLEIND", "NTPC", "ONGC",
		"POWERGRID", "RELIANCE", "SBILIFE", "SBIN", "SHRIRAMFIN",
		"SUNPHARMA", "TATACONSUM", "TATAMOTORS", "TATASTEEL", "TCS",
		"TECHM", "TITAN", "TRENT", "ULTRACEMCO", "WIPRO",
	},
	CategoryNiftyNext50: {
		"ABB", "ADANIENSOL", "ADANIGREEN", "ADANIPOWER", "AMBUJACEM",
		"BAJAJHLDNG", "BANKBARODA", "BERGEPAINT", "BOSCHLTD", "CANBK",
		"CHOLAFIN", "COLPAL", "DABUR", "DLF", "DMART",
		"GAIL", "GODREJCP", "HAL", "HAVELLS", "ICICIGI",
		"ICICIPRULI", "INDHOTEL", "INDIGO", "IOC", "IRCTC",
		"IRFC", "JINDALSTEL", "JIOFIN", "LICI", "LODHA",
		"LTIM", "MARICO", "MOTHERSON", "NAUKRI", "PFC",
		"PIDILITIND", "PNB", "RECLTD", "SAIL", "SHREECEM",
		"SIEMENS", "SRF", "TATAPOWER", "TORNTPHARM", "TVSMOTOR",
		"UNITDSPR", "VBL", "VEDL", "ZOMATO", "ZYDUSLIFE",
	},
	CategoryMidSmallCap: {
		"AARTIIND", "ABCAPITAL", "ALKEM", "APLAPOLLO", "ASHOKLEY",
		"ASTRAL", "AUROPHARMA", "BALKRISIND", "BANDHANBNK", "BATAINDIA",
		"BHARATFORG", "BHEL", "BIOCON", "CGPOWER", "COFORGE",
		"CONCOR", "CROMPTON", "CUMMINSIND", "DALBHARAT", "DEEPAKNTR",
		"DIXON", "ESCORTS", "EXIDEIND", "FEDERALBNK", "GLENMARK",
		"GMRINFRA", "GODREJPROP", "GUJGASLTD", "IDFCFIRSTB", "IPCALAB",
		"JUBLFOOD", "LAURUSLABS", "LICHSGFIN", "MPHASIS", "MUTHOOTFIN",
		"OBEROIRLTY", "PAGEIND", "PERSISTENT", "PETRONET", "POLYCAB",
		"SUNTV", "TATACOMM", "VOLTAS",
	},
}

// Universe is the thread-safe symbol registry the orchestrator draws from.
type Universe struct {
	mu         sync.RWMutex
	categories map[string][]string
}

// NewUniverse starts from the built-in defaults.
func NewUniverse() *Universe {
	cats := make(map[string][]string, len(defaultUniverse))
	for cat, symbols := range defaultUniverse {
		cats[cat] = append([]string(nil), symbols...)
	}
	return &Universe{categories: cats}
}

// Symbols returns every symbol across categories, deduplicated and sorted.
func (u *Universe) Symbols() []string {
	u.mu.RLock()
	defer u.mu.RUnlock()

	seen := make(map[string]struct{})
	var out []string
	for _, symbols := range u.categories {
		for _, s := range symbols {
			if _, dup := seen[s]; dup {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

// Categories returns a copy of the category map.
func (u *Universe) Categories() map[string][]string {
	u.mu.RLock()
	defer u.mu.RUnlock()

	out := make(map[string][]string, len(u.categories))
	for cat, symbols := range u.categories {
		out[cat] = append([]string(nil), symbols...)
	}
	return out
}

// Count returns the total number of distinct symbols.
func (u *Universe) Count() int {
	return len(u.Symbols())
}

// Add puts a symbol into a category, creating the category if needed.
// Adding an already-present symbol is a no-op.
func (u *Universe) Add(category, symbol string) error {
	if category == "" || symbol == "" {
		return fmt.Errorf("category and symbol are required")
	}
	u.mu.Lock()
	defer u.mu.Unlock()

	for _, s := range u.categories[category] {
		if s == symbol {
			return nil
		}
	}
	u.categories[category] = append(u.categories[category], symbol)
	return nil
}

// Remove drops a symbol from every category it appears in.
func (u *Universe) Remove(symbol string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()

	removed := false
	for cat, symbols := range u.categories {
		kept := symbols[:0]
		for _, s := range symbols {
			if s == symbol {
				removed = true
				continue
			}
			kept = append(kept, s)
		}
		u.categories[cat] = kept
	}
	return removed
}
