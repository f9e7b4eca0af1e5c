package groww

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShraddheyWamanSatpute/Stock-Pulse/pkg/logger"
)

func decode(t *testing.T, raw string) map[string]interface{} {
	t.Helper()
	fields, err := decodeEnvelope([]byte(raw))
	require.NoError(t, err)
	return fields
}

func TestDecodeEnvelopeThreeShapesAreEquivalent(t *testing.T) {
	wrapped := decode(t, `{"status":"SUCCESS","payload":{"ltp":100.5,"volume":1200}}`)
	nested := decode(t, `{"data":{"ltp":100.5,"volume":1200}}`)
	flat := decode(t, `{"ltp":100.5,"volume":1200}`)

	assert.Equal(t, wrapped, nested)
	assert.Equal(t, nested, flat)
}

func TestDecodeEnvelopeFailureStatus(t *testing.T) {
	_, err := decodeEnvelope([]byte(`{"status":"FAILURE","payload":{"ltp":1}}`))
	var normErr *NormalizationError
	assert.ErrorAs(t, err, &normErr)
}

func TestDecodeEnvelopeFailureStatusWithoutPayload(t *testing.T) {
	_, err := decodeEnvelope([]byte(`{"status":"failure"}`))
	var normErr *NormalizationError
	require.ErrorAs(t, err, &normErr)
	assert.Contains(t, normErr.Reason, "failure")
}

func TestDecodeEnvelopeRejectsNonObject(t *testing.T) {
	for _, raw := range []string{`[]`, `"text"`, `42`, `{`} {
		_, err := decodeEnvelope([]byte(raw))
		assert.Error(t, err, raw)
	}
}

func TestFlattenIsDeterministicAcrossBlocks(t *testing.T) {
	// "close" appears in two nested blocks and "ltp" collides with a
	// top-level scalar: the scalar wins and the alphabetically first block
	// wins, on every decode.
	raw := `{"ltp":100.0,"ohlc":{"close":11,"ltp":999.0},"depth":{"close":42}}`
	first := decode(t, raw)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, decode(t, raw))
	}
	assert.Equal(t, 100.0, first["ltp"])
	assert.Equal(t, 42.0, first["close"], "depth sorts before ohlc")
}

func TestDecodeEnvelopeFlattensNestedBlocks(t *testing.T) {
	fields := decode(t, `{"symbol":"TCS","ohlc":{"open":10,"high":12,"low":9,"close":11}}`)
	assert.Equal(t, float64(11), fields["close"])
	assert.Equal(t, "TCS", fields["symbol"])
}

func TestTransformThreeShapesProduceIdenticalRecords(t *testing.T) {
	n := NewNormalizer(logger.NewNop())
	asOf := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)

	bodies := []string{
		`{"status":"success","payload":{"ltp":"2,450.50","pe_ratio":28.4,"sector":"IT"}}`,
		`{"data":{"ltp":"2,450.50","pe_ratio":28.4,"sector":"IT"}}`,
		`{"ltp":"2,450.50","pe_ratio":28.4,"sector":"IT"}`,
	}

	var prev map[string]interface{}
	for _, body := range bodies {
		fields, err := decodeEnvelope([]byte(body))
		require.NoError(t, err)
		rec, err := n.Transform("TCS", fields, asOf)
		require.NoError(t, err)

		closeV, closeOK := rec.Float("close")
		assert.InDelta(t, 2450.50, mustFloat(t, closeV, closeOK), 0.001)
		peV, peOK := rec.Float("pe_ratio")
		assert.InDelta(t, 28.4, mustFloat(t, peV, peOK), 0.001)
		if prev != nil {
			assert.Equal(t, prev, rec.Fields)
		}
		prev = rec.Fields
	}
}

func TestTransformDropsMalformedNumbersKeepsText(t *testing.T) {
	n := NewNormalizer(logger.NewNop())
	payload := map[string]interface{}{
		"ltp":      "12a.5", // malformed, dropped
		"pe_ratio": "28.4",  // numeric string, coerced
		"sector":   "Banking",
		"volume":   nil,  // skipped silently
		"na_field": "NA", // placeholder, skipped
	}

	rec, err := n.Transform("HDFCBANK", payload, time.Now())
	require.NoError(t, err)

	assert.False(t, rec.Has("close"))
	assert.True(t, rec.Has("pe_ratio"))
	assert.False(t, rec.Has("volume"))

	sector, ok := rec.Str("sector")
	require.True(t, ok)
	assert.Equal(t, "Banking", sector)
}

func TestTransformEmptyPayloadFailsSymbol(t *testing.T) {
	n := NewNormalizer(logger.NewNop())
	_, err := n.Transform("TCS", map[string]interface{}{"x": nil}, time.Now())

	var normErr *NormalizationError
	assert.ErrorAs(t, err, &normErr)
}

func TestCoerceRoundTripThroughJSONTypes(t *testing.T) {
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(`{"f":1.5,"b":true,"s":"RELIANCE","n":"-3.25"}`), &payload))

	f, ok := coerce(payload["f"])
	require.True(t, ok)
	assert.Equal(t, 1.5, f)

	b, ok := coerce(payload["b"])
	require.True(t, ok)
	assert.Equal(t, true, b)

	s, ok := coerce(payload["s"])
	require.True(t, ok)
	assert.Equal(t, "RELIANCE", s)

	n, ok := coerce(payload["n"])
	require.True(t, ok)
	assert.Equal(t, -3.25, n)
}

func mustFloat(t *testing.T, v float64, ok bool) float64 {
	t.Helper()
	require.True(t, ok)
	return v
}
