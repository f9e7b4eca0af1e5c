package canonical

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_SetPopulatesAliases(t *testing.T) {
	now := time.Now()
	rec := NewRecord("RELIANCE", now)

	rec.Set("ltp", 2855.4, now)

	// A single upstream last price must be readable under every alias.
	for _, name := range []string{"close", "ltp", "current_price", "last_price"} {
		v, ok := rec.Float(name)
		require.True(t, ok, "expected %s to be populated", name)
		assert.Equal(t, 2855.4, v)
		assert.True(t, rec.Availability[name], "availability missing for %s", name)
		assert.False(t, rec.LastUpdated[name].IsZero(), "last_updated missing for %s", name)
	}
}

func TestRecord_ProvenanceInvariant(t *testing.T) {
	now := time.Now()
	rec := NewRecord("TCS", now)

	rec.Set("roe", 42.1, now)
	rec.Set("unknown_extra", 1.0, now)

	// Every populated field has entries in both provenance maps.
	for name := range rec.Fields {
		assert.True(t, rec.Availability[name], "availability missing for %s", name)
		_, ok := rec.LastUpdated[name]
		assert.True(t, ok, "last_updated missing for %s", name)
	}
}

func TestRecord_MissingFieldIsNotZero(t *testing.T) {
	rec := NewRecord("INFY", time.Now())

	_, ok := rec.Float("interest_coverage")
	assert.False(t, ok, "absent field must report not-ok, not zero")
	assert.False(t, rec.Has("interest_coverage"))
}

func TestRecord_Completeness(t *testing.T) {
	now := time.Now()
	rec := NewRecord("HDFCBANK", now)
	assert.Equal(t, 0.0, rec.Completeness())

	for _, name := range ExpectedFields() {
		rec.Set(name, 1.0, now)
	}
	assert.Equal(t, 1.0, rec.Completeness())
}

func TestRecord_FreshnessDecay(t *testing.T) {
	now := time.Now()
	rec := NewRecord("SBIN", now)

	rec.Set("close", 812.0, now)
	fresh := rec.Freshness(now)
	assert.InDelta(t, 1.0, fresh, 0.001)

	// Same field 15 days old decays to about half.
	rec2 := NewRecord("SBIN", now)
	rec2.Set("close", 812.0, now.Add(-15*24*time.Hour))
	assert.InDelta(t, 0.5, rec2.Freshness(now), 0.01)

	// Beyond the horizon the contribution floors at zero.
	rec3 := NewRecord("SBIN", now)
	rec3.Set("close", 812.0, now.Add(-90*24*time.Hour))
	assert.Equal(t, 0.0, rec3.Freshness(now))
}

func TestLookup(t *testing.T) {
	def, ok := Lookup("current_price")
	require.True(t, ok)
	assert.Equal(t, "close", def.Name)

	def, ok = Lookup("rsi")
	require.True(t, ok)
	assert.Equal(t, "rsi_14", def.Name)

	_, ok = Lookup("nonsense_field")
	assert.False(t, ok)
}

func TestFieldsByCategory(t *testing.T) {
	byCat := FieldsByCategory()
	// All 13 categories of the schema are represented.
	assert.Len(t, byCat, 13)
	assert.NotEmpty(t, byCat[CategoryTechnical])
	assert.NotEmpty(t, byCat[CategoryShareholding])
}
