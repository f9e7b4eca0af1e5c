package store

import (
	"context"
	"fmt"

	"github.com/ShraddheyWamanSatpute/Stock-Pulse/internal/canonical"
	"github.com/ShraddheyWamanSatpute/Stock-Pulse/pkg/logger"
	"github.com/ShraddheyWamanSatpute/Stock-Pulse/pkg/metrics"
)

// TierUnavailableError means a critical sink rejected a write. The
// orchestrator treats this as fatal for the job: continuing would silently
// drop authoritative data while the caches keep serving.
type TierUnavailableError struct {
	Tier  string
	Cause error
}

func (e *TierUnavailableError) Error() string {
	return fmt.Sprintf("storage tier %s unavailable: %v", e.Tier, e.Cause)
}

func (e *TierUnavailableError) Unwrap() error { return e.Cause }

// Sink is one persistence destination for canonical records. Critical sinks
// abort the fan-out on failure; best-effort sinks are logged and skipped.
type Sink interface {
	Name() string
	Critical() bool
	Save(ctx context.Context, jobID string, rec *canonical.Record) error
}

// Fanout writes each record to an ordered sink list. Order matters: the
// authoritative tier is written before any derived tier so a cache can never
// get ahead of the database.
type Fanout struct {
	sinks []Sink
	log   *logger.Logger
	prom  *metrics.PipelineMetrics
}

func NewFanout(log *logger.Logger, prom *metrics.PipelineMetrics, sinks ...Sink) *Fanout {
	return &Fanout{
		sinks: sinks,
		log:   log.WithField("module", "fanout"),
		prom:  prom,
	}
}

// Persist writes rec through every sink in order.
func (f *Fanout) Persist(ctx context.Context, jobID string, rec *canonical.Record) error {
	for _, sink := range f.sinks {
		err := sink.Save(ctx, jobID, rec)
		if err == nil {
			continue
		}
		if f.prom != nil {
			f.prom.SinkFailure(sink.Name())
		}
		if sink.Critical() {
			return &TierUnavailableError{Tier: sink.Name(), Cause: err}
		}
		f.log.WithError(err).WithFields(map[string]interface{}{
			"sink":   sink.Name(),
			"symbol": rec.Symbol,
		}).Warn("Best-effort sink write failed")
	}
	return nil
}

// TimeseriesSink adapts the relational store as the critical sink.
type TimeseriesSink struct {
	Store *TimeseriesStore
}

func (s *TimeseriesSink) Name() string   { return "timeseries" }
func (s *TimeseriesSink) Critical() bool { return true }

func (s *TimeseriesSink) Save(ctx context.Context, _ string, rec *canonical.Record) error {
	return s.Store.SaveRecord(ctx, rec)
}

// CacheSink adapts the Redis tier as a best-effort sink.
type CacheSink struct {
	Store *CacheStore
}

func (s *CacheSink) Name() string   { return "cache" }
func (s *CacheSink) Critical() bool { return false }

func (s *CacheSink) Save(ctx context.Context, _ string, rec *canonical.Record) error {
	return s.Store.SaveRecord(ctx, rec)
}

// AuditSink adapts the document tier as a best-effort sink. Nil store (audit
// disabled) is a no-op.
type AuditSink struct {
	Store *AuditStore
}

func (s *AuditSink) Name() string   { return "audit" }
func (s *AuditSink) Critical() bool { return false }

func (s *AuditSink) Save(ctx context.Context, jobID string, rec *canonical.Record) error {
	if s.Store == nil {
		return nil
	}
	return s.Store.AppendExtraction(ctx, jobID, rec)
}
