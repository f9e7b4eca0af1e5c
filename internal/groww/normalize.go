package groww

import (
	"strconv"
	"strings"
	"time"

	"github.com/ShraddheyWamanSatpute/Stock-Pulse/internal/canonical"
	"github.com/ShraddheyWamanSatpute/Stock-Pulse/pkg/logger"
)

// Normalizer turns decoded upstream payloads into canonical records.
// Provider field names are resolved through the canonical alias registry,
// numeric strings are coerced, and fields the provider omitted stay absent,
// never zero-filled.
type Normalizer struct {
	log    *logger.Logger
	source string
}

func NewNormalizer(log *logger.Logger) *Normalizer {
	return &Normalizer{log: log, source: "groww"}
}

// Transform builds a canonical record for symbol from a decoded payload.
// Values that cannot be coerced are dropped with a warning rather than
// poisoning the record. A payload yielding zero usable fields is a
// NormalizationError.
func (n *Normalizer) Transform(symbol string, payload map[string]interface{}, asOf time.Time) (*canonical.Record, error) {
	rec := canonical.NewRecord(symbol, asOf)
	rec.AddSource(n.source)

	kept := 0
	for name, raw := range payload {
		val, ok := coerce(raw)
		if !ok {
			n.log.Warnf("dropping unparseable field %s=%v for %s", name, raw, symbol)
			continue
		}
		if val == nil {
			continue
		}
		rec.Set(name, val, asOf)
		kept++
	}

	if kept == 0 {
		return nil, &NormalizationError{Reason: "no usable fields in payload for " + symbol}
	}
	return rec, nil
}

// coerce maps a raw JSON value onto the value stored in the record.
// Returns (nil, true) for values that should be silently skipped,
// (nil, false) for values that are malformed and worth a warning.
func coerce(raw interface{}) (interface{}, bool) {
	switch v := raw.(type) {
	case nil:
		return nil, true
	case float64:
		return v, true
	case bool:
		return v, true
	case string:
		s := strings.TrimSpace(v)
		if s == "" || s == "-" || strings.EqualFold(s, "na") || strings.EqualFold(s, "n/a") {
			return nil, true
		}
		if looksNumeric(s) {
			f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
			if err != nil {
				return nil, false
			}
			return f, true
		}
		return s, true
	case []interface{}:
		return v, true
	default:
		return nil, false
	}
}

// looksNumeric reports whether s is intended as a number, so that symbols
// and plain text pass through untouched while "12,345.6" gets parsed and
// "12a" gets rejected instead of silently kept as text.
func looksNumeric(s string) bool {
	seenDigit := false
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
			seenDigit = true
		case r == '.' || r == ',':
		case (r == '-' || r == '+') && i == 0:
		default:
			return false
		}
	}
	return seenDigit
}
