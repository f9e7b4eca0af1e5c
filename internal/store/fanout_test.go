package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShraddheyWamanSatpute/Stock-Pulse/internal/canonical"
	"github.com/ShraddheyWamanSatpute/Stock-Pulse/pkg/logger"
)

type fakeSink struct {
	name     string
	critical bool
	err      error
	calls    []string
	order    *[]string
}

func (f *fakeSink) Name() string   { return f.name }
func (f *fakeSink) Critical() bool { return f.critical }

func (f *fakeSink) Save(_ context.Context, jobID string, rec *canonical.Record) error {
	f.calls = append(f.calls, rec.Symbol)
	if f.order != nil {
		*f.order = append(*f.order, f.name)
	}
	return f.err
}

func testRecord(symbol string) *canonical.Record {
	rec := canonical.NewRecord(symbol, time.Now())
	rec.Set("close", 100.0, rec.AsOf)
	return rec
}

func TestFanoutWritesSinksInOrder(t *testing.T) {
	var order []string
	first := &fakeSink{name: "timeseries", critical: true, order: &order}
	second := &fakeSink{name: "cache", order: &order}
	third := &fakeSink{name: "audit", order: &order}

	f := NewFanout(logger.NewNop(), nil, first, second, third)
	err := f.Persist(context.Background(), "job-1", testRecord("TCS"))

	require.NoError(t, err)
	assert.Equal(t, []string{"timeseries", "cache", "audit"}, order)
}

func TestFanoutCriticalFailureStopsAndPropagates(t *testing.T) {
	boom := errors.New("connection refused")
	critical := &fakeSink{name: "timeseries", critical: true, err: boom}
	cache := &fakeSink{name: "cache"}

	f := NewFanout(logger.NewNop(), nil, critical, cache)
	err := f.Persist(context.Background(), "job-1", testRecord("TCS"))

	require.Error(t, err)
	var tierErr *TierUnavailableError
	require.ErrorAs(t, err, &tierErr)
	assert.Equal(t, "timeseries", tierErr.Tier)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, cache.calls, "sinks after a critical failure must not run")
}

func TestFanoutBestEffortFailureIsSwallowed(t *testing.T) {
	critical := &fakeSink{name: "timeseries", critical: true}
	cache := &fakeSink{name: "cache", err: errors.New("redis down")}
	audit := &fakeSink{name: "audit"}

	f := NewFanout(logger.NewNop(), nil, critical, cache, audit)
	err := f.Persist(context.Background(), "job-1", testRecord("INFY"))

	require.NoError(t, err)
	assert.Equal(t, []string{"INFY"}, critical.calls)
	assert.Equal(t, []string{"INFY"}, audit.calls, "later sinks still run after a best-effort failure")
}

func TestScreenerWhereBuilding(t *testing.T) {
	upper := 30.0
	where, args, err := buildScreenerWhere([]ScreenerFilter{
		{Field: "pe_ratio", Op: "lt", Value: 25},
		{Field: "roe", Op: "gte", Value: 15},
		{Field: "rsi_14", Op: "between", Value: 20, Upper: &upper},
	})

	require.NoError(t, err)
	assert.Equal(t, "WHERE f.pe_ratio < $1 AND f.roe >= $2 AND t.rsi_14 BETWEEN $3 AND $4", where)
	assert.Equal(t, []interface{}{25.0, 15.0, 20.0, 30.0}, args)
}

func TestScreenerWhereRejectsUnknownFieldAndOp(t *testing.T) {
	_, _, err := buildScreenerWhere([]ScreenerFilter{{Field: "password", Op: "eq", Value: 1}})
	assert.Error(t, err)

	_, _, err = buildScreenerWhere([]ScreenerFilter{{Field: "roe", Op: "like", Value: 1}})
	assert.Error(t, err)

	_, _, err = buildScreenerWhere([]ScreenerFilter{{Field: "rsi_14", Op: "between", Value: 20}})
	assert.Error(t, err, "between without upper bound")
}

func TestScreenerWhereEmptyFilters(t *testing.T) {
	where, args, err := buildScreenerWhere(nil)
	require.NoError(t, err)
	assert.Empty(t, where)
	assert.Empty(t, args)
}
