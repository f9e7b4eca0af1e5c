package canonical

import (
	"time"
)

// freshnessHorizon is the field age at which the freshness contribution of a
// field decays to zero.
const freshnessHorizon = 30 * 24 * time.Hour

// Record is the single normalized representation of a symbol's data used by
// every downstream consumer. Fields holds values under the canonical name and
// under every registered alias; Availability and LastUpdated are the
// provenance maps. Invariant: a populated field always has entries in both
// provenance maps (Set is the only writer, and it maintains this).
type Record struct {
	Symbol string    `json:"symbol"`
	AsOf   time.Time `json:"as_of"`

	Fields       map[string]interface{} `json:"fields"`
	Availability map[string]bool        `json:"field_availability"`
	LastUpdated  map[string]time.Time   `json:"field_last_updated"`

	// Source names that contributed fields, e.g. "groww_quote".
	Sources []string `json:"sources,omitempty"`
}

// NewRecord creates an empty record for a symbol.
func NewRecord(symbol string, asOf time.Time) *Record {
	return &Record{
		Symbol:       symbol,
		AsOf:         asOf,
		Fields:       make(map[string]interface{}),
		Availability: make(map[string]bool),
		LastUpdated:  make(map[string]time.Time),
	}
}

// Set stores a value under the field's canonical name and every alias, each
// with its own provenance entry. Unknown field names are stored as-is so a
// provider can carry extra data without being rejected; they simply have no
// aliases and do not count toward completeness.
func (r *Record) Set(name string, value interface{}, at time.Time) {
	def, known := Lookup(name)
	if !known {
		r.put(name, value, at)
		return
	}
	r.put(def.Name, value, at)
	for _, alias := range def.Aliases {
		r.put(alias, value, at)
	}
}

func (r *Record) put(name string, value interface{}, at time.Time) {
	r.Fields[name] = value
	r.Availability[name] = true
	r.LastUpdated[name] = at
}

// AddSource records a contributing data source once.
func (r *Record) AddSource(source string) {
	for _, s := range r.Sources {
		if s == source {
			return
		}
	}
	r.Sources = append(r.Sources, source)
}

// Has reports whether a field (by any accepted name) is populated.
func (r *Record) Has(name string) bool {
	return r.Availability[resolve(name)]
}

// Float returns a numeric field value. The boolean is false when the field is
// absent or not numeric; callers must treat that as "no data", never as zero.
func (r *Record) Float(name string) (float64, bool) {
	v, ok := r.Fields[resolve(name)]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// Str returns a string field value.
func (r *Record) Str(name string) (string, bool) {
	v, ok := r.Fields[resolve(name)]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Age returns how old a field value is relative to now.
func (r *Record) Age(name string, now time.Time) (time.Duration, bool) {
	at, ok := r.LastUpdated[resolve(name)]
	if !ok {
		return 0, false
	}
	return now.Sub(at), true
}

// Completeness is the fraction of expected canonical fields that are present,
// in [0, 1]. It reads only the availability provenance map.
func (r *Record) Completeness() float64 {
	names := ExpectedFields()
	if len(names) == 0 {
		return 0
	}
	present := 0
	for _, name := range names {
		if r.Availability[name] {
			present++
		}
	}
	return float64(present) / float64(len(names))
}

// Freshness is the mean age-decay of the present expected fields, in [0, 1].
// A field updated now contributes 1.0, decaying linearly to 0 at the 30-day
// horizon. A record with no present expected fields has freshness 0.
func (r *Record) Freshness(now time.Time) float64 {
	names := ExpectedFields()
	var sum float64
	count := 0
	for _, name := range names {
		at, ok := r.LastUpdated[name]
		if !ok {
			continue
		}
		age := now.Sub(at)
		if age < 0 {
			age = 0
		}
		score := 1.0 - float64(age)/float64(freshnessHorizon)
		if score < 0 {
			score = 0
		}
		sum += score
		count++
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

// resolve maps any accepted name to the canonical one; unknown names pass
// through unchanged so extra provider fields remain addressable.
func resolve(name string) string {
	if canonical, ok := aliasIndex[name]; ok {
		return canonical
	}
	return name
}
