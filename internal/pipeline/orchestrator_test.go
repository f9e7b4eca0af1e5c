package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShraddheyWamanSatpute/Stock-Pulse/internal/canonical"
	"github.com/ShraddheyWamanSatpute/Stock-Pulse/internal/groww"
	"github.com/ShraddheyWamanSatpute/Stock-Pulse/internal/store"
	"github.com/ShraddheyWamanSatpute/Stock-Pulse/pkg/config"
	"github.com/ShraddheyWamanSatpute/Stock-Pulse/pkg/logger"
)

type fakeFetcher struct {
	mu    sync.Mutex
	calls map[string]int
	fail  map[string]error
	delay time.Duration
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{calls: make(map[string]int), fail: make(map[string]error)}
}

func (f *fakeFetcher) Quote(ctx context.Context, symbol string) (*canonical.Record, error) {
	f.mu.Lock()
	f.calls[symbol]++
	err := f.fail[symbol]
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.delay):
		}
	}
	if err != nil {
		return nil, err
	}
	rec := canonical.NewRecord(symbol, time.Now())
	rec.Set("close", 100.0, rec.AsOf)
	return rec, nil
}

func (f *fakeFetcher) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

type fakePersister struct {
	mu      sync.Mutex
	symbols []string
	err     error
}

func (p *fakePersister) Persist(_ context.Context, _ string, rec *canonical.Record) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.symbols = append(p.symbols, rec.Symbol)
	return p.err
}

type fakeAuth struct {
	calls atomic.Int64
	err   error
}

func (a *fakeAuth) Token(context.Context) (string, error) {
	a.calls.Add(1)
	return "tok", a.err
}

func testPipelineConfig() config.PipelineConfig {
	return config.PipelineConfig{
		Interval:     time.Minute,
		Concurrency:  4,
		HistorySize:  5,
		EventLogSize: 10,
	}
}

func smallUniverse(symbols ...string) *Universe {
	u := &Universe{categories: map[string][]string{"test": symbols}}
	return u
}

func newTestOrchestrator(u *Universe, f Fetcher, p Persister, a Authenticator) *Orchestrator {
	return NewOrchestrator(testPipelineConfig(), u, f, p, a, nil, nil, logger.NewNop(), nil)
}

func waitTerminal(t *testing.T, job *ExtractionJob) JobSnapshot {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if job.CurrentStatus().Terminal() {
			return job.Snapshot()
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s did not reach a terminal state", job.ID)
	return JobSnapshot{}
}

func TestDefaultUniverseShape(t *testing.T) {
	u := NewUniverse()
	cats := u.Categories()

	assert.Len(t, cats[CategoryNifty50], 50)
	assert.Len(t, cats[CategoryNiftyNext50], 50)
	assert.Len(t, cats[CategoryMidSmallCap], 43)
	assert.Equal(t, 143, u.Count(), "default universe must hold 143 distinct symbols")
}

func TestUniverseAddRemove(t *testing.T) {
	u := NewUniverse()
	before := u.Count()

	require.NoError(t, u.Add(CategoryMidSmallCap, "NEWCO"))
	assert.Equal(t, before+1, u.Count())

	// duplicate add is a no-op
	require.NoError(t, u.Add(CategoryMidSmallCap, "NEWCO"))
	assert.Equal(t, before+1, u.Count())

	assert.True(t, u.Remove("NEWCO"))
	assert.False(t, u.Remove("NEWCO"))
	assert.Equal(t, before, u.Count())
}

func TestRunProcessesEverySymbolExactlyOnce(t *testing.T) {
	u := NewUniverse()
	fetcher := newFakeFetcher()
	persister := &fakePersister{}
	o := newTestOrchestrator(u, fetcher, persister, &fakeAuth{})

	job, err := o.Trigger(context.Background(), "manual")
	require.NoError(t, err)
	snap := waitTerminal(t, job)

	assert.Equal(t, StatusSuccess, snap.Status)
	assert.Equal(t, 143, snap.Succeeded)
	assert.Equal(t, 0, snap.Failed)

	fetcher.mu.Lock()
	defer fetcher.mu.Unlock()
	assert.Len(t, fetcher.calls, 143, "no symbol omitted")
	for sym, n := range fetcher.calls {
		assert.Equal(t, 1, n, "symbol %s fetched more than once", sym)
	}
}

func TestRunIsolatesSymbolFailures(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.fail["B"] = &groww.APIError{Status: 502, Attempts: 5, Cause: errors.New("bad gateway")}
	o := newTestOrchestrator(smallUniverse("A", "B", "C"), fetcher, &fakePersister{}, &fakeAuth{})

	job, err := o.Trigger(context.Background(), "manual")
	require.NoError(t, err)
	snap := waitTerminal(t, job)

	assert.Equal(t, StatusPartial, snap.Status)
	assert.Equal(t, 2, snap.Succeeded)
	assert.Equal(t, 1, snap.Failed)
	assert.Contains(t, snap.Errors, "B")
}

func TestRunAllSymbolsFailedIsFailed(t *testing.T) {
	fetcher := newFakeFetcher()
	for _, s := range []string{"A", "B"} {
		fetcher.fail[s] = errors.New("boom")
	}
	o := newTestOrchestrator(smallUniverse("A", "B"), fetcher, &fakePersister{}, &fakeAuth{})

	job, err := o.Trigger(context.Background(), "manual")
	require.NoError(t, err)
	snap := waitTerminal(t, job)

	assert.Equal(t, StatusFailed, snap.Status)
}

func TestAuthPreflightFailureSkipsAllSymbolWork(t *testing.T) {
	fetcher := newFakeFetcher()
	auth := &fakeAuth{err: &groww.AuthenticationError{Cause: errors.New("bad totp")}}
	o := newTestOrchestrator(smallUniverse("A", "B", "C"), fetcher, &fakePersister{}, auth)

	job, err := o.Trigger(context.Background(), "manual")
	require.NoError(t, err)
	snap := waitTerminal(t, job)

	assert.Equal(t, StatusFailed, snap.Status)
	assert.NotEmpty(t, snap.FatalReason)
	assert.Equal(t, 0, fetcher.totalCalls(), "no symbol may be fetched after a failed preflight")
}

func TestAuthLossMidJobAbortsJob(t *testing.T) {
	symbols := []string{"A", "B", "C", "D", "E", "F", "G", "H"}
	fetcher := newFakeFetcher()
	fetcher.delay = 10 * time.Millisecond
	fetcher.fail["A"] = &groww.AuthenticationError{Cause: errors.New("token revoked")}
	o := newTestOrchestrator(smallUniverse(symbols...), fetcher, &fakePersister{}, &fakeAuth{})

	job, err := o.Trigger(context.Background(), "manual")
	require.NoError(t, err)
	snap := waitTerminal(t, job)

	assert.Equal(t, StatusFailed, snap.Status)
	assert.Contains(t, snap.FatalReason, "authentication")
}

func TestCriticalTierFailureAbortsJob(t *testing.T) {
	persister := &fakePersister{err: &store.TierUnavailableError{Tier: "timeseries", Cause: errors.New("down")}}
	o := newTestOrchestrator(smallUniverse("A", "B", "C"), newFakeFetcher(), persister, &fakeAuth{})

	job, err := o.Trigger(context.Background(), "manual")
	require.NoError(t, err)
	snap := waitTerminal(t, job)

	assert.Equal(t, StatusFailed, snap.Status)
	assert.Contains(t, snap.FatalReason, "storage tier")
}

// gatedFetcher parks every Quote call until released, so a test can hold a
// fetch in flight across a cancellation.
type gatedFetcher struct {
	entered chan string
	release chan struct{}
}

func newGatedFetcher() *gatedFetcher {
	return &gatedFetcher{entered: make(chan string, 16), release: make(chan struct{})}
}

func (f *gatedFetcher) Quote(ctx context.Context, symbol string) (*canonical.Record, error) {
	f.entered <- symbol
	<-f.release
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rec := canonical.NewRecord(symbol, time.Now())
	rec.Set("close", 100.0, rec.AsOf)
	return rec, nil
}

func TestCancellationFinalizesPartial(t *testing.T) {
	var symbols []string
	for i := 0; i < 40; i++ {
		symbols = append(symbols, fmt.Sprintf("SYM%02d", i))
	}
	fetcher := newFakeFetcher()
	fetcher.delay = 20 * time.Millisecond
	o := newTestOrchestrator(smallUniverse(symbols...), fetcher, &fakePersister{}, &fakeAuth{})

	job, err := o.Trigger(context.Background(), "manual")
	require.NoError(t, err)

	// Let a few symbols complete, then cancel.
	time.Sleep(60 * time.Millisecond)
	require.True(t, o.Cancel())

	snap := waitTerminal(t, job)
	assert.Equal(t, StatusPartial, snap.Status)
	assert.Greater(t, snap.Succeeded, 0)
	processed := snap.Succeeded + snap.Failed
	assert.Less(t, processed, len(symbols), "cancellation must stop dispatching new symbols")
}

func TestCancellationDrainsInFlightFetches(t *testing.T) {
	fetcher := newGatedFetcher()
	persister := &fakePersister{}
	o := newTestOrchestrator(smallUniverse("A"), fetcher, persister, &fakeAuth{})

	job, err := o.Trigger(context.Background(), "manual")
	require.NoError(t, err)

	// Cancel while the only fetch is parked inside Quote, then let it finish.
	sym := <-fetcher.entered
	require.Equal(t, "A", sym)
	require.True(t, o.Cancel())
	close(fetcher.release)

	snap := waitTerminal(t, job)
	assert.Equal(t, StatusPartial, snap.Status)
	assert.Equal(t, 1, snap.Succeeded, "the in-flight fetch must run to completion")
	assert.Empty(t, snap.Errors, "cancellation must not fail the in-flight symbol")

	persister.mu.Lock()
	defer persister.mu.Unlock()
	assert.Equal(t, []string{"A"}, persister.symbols)
}

func TestCancelledJobWithNoSuccessIsPartial(t *testing.T) {
	job := NewJob([]string{"A"}, "manual")
	require.True(t, job.Start())
	job.SymbolFailed("A", errors.New("boom"))
	job.FinishPartial("cancelled")

	assert.Equal(t, StatusPartial, job.CurrentStatus())
}

func TestTriggerRejectedWhileJobInFlight(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.delay = 50 * time.Millisecond
	o := newTestOrchestrator(smallUniverse("A", "B", "C", "D"), fetcher, &fakePersister{}, &fakeAuth{})

	job, err := o.Trigger(context.Background(), "manual")
	require.NoError(t, err)

	_, err = o.Trigger(context.Background(), "manual")
	assert.ErrorIs(t, err, ErrJobInFlight)

	waitTerminal(t, job)
	_, err = o.Trigger(context.Background(), "manual")
	assert.NoError(t, err, "a terminal job must not block new triggers")
}

func TestTerminalJobIsNeverReopened(t *testing.T) {
	job := NewJob([]string{"A"}, "manual")
	require.True(t, job.Start())
	job.SymbolSucceeded()
	job.Finish()
	require.Equal(t, StatusSuccess, job.CurrentStatus())

	assert.False(t, job.Start())
	job.Fail("late failure")
	assert.Equal(t, StatusSuccess, job.CurrentStatus(), "terminal status must not change")
}

func TestHistoryRingIsBounded(t *testing.T) {
	o := newTestOrchestrator(smallUniverse("A"), newFakeFetcher(), &fakePersister{}, &fakeAuth{})

	var last *ExtractionJob
	for i := 0; i < 8; i++ {
		job, err := o.Trigger(context.Background(), "manual")
		require.NoError(t, err)
		waitTerminal(t, job)
		last = job
	}

	history := o.History(0)
	assert.Len(t, history, 5, "history capped at the configured size")
	assert.Equal(t, last.ID, history[0].ID, "newest job first")

	m := o.Metrics()
	assert.Equal(t, 8, m.TotalJobs)
	assert.Equal(t, 1.0, m.SuccessRate)
}

func TestJobLookupFindsCurrentAndHistorical(t *testing.T) {
	o := newTestOrchestrator(smallUniverse("A"), newFakeFetcher(), &fakePersister{}, &fakeAuth{})

	job, err := o.Trigger(context.Background(), "manual")
	require.NoError(t, err)
	waitTerminal(t, job)

	found, ok := o.Job(job.ID)
	require.True(t, ok)
	assert.Equal(t, job.ID, found.ID)

	_, ok = o.Job("no-such-id")
	assert.False(t, ok)
}

func TestSchedulerTriggersOnInterval(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping scheduler timing test in short mode")
	}

	cfg := testPipelineConfig()
	cfg.Interval = 50 * time.Millisecond
	fetcher := newFakeFetcher()
	o := NewOrchestrator(cfg, smallUniverse("A"), fetcher, &fakePersister{}, &fakeAuth{}, nil, nil, logger.NewNop(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	o.StartScheduler(ctx)
	time.Sleep(180 * time.Millisecond)
	o.StopScheduler()

	calls := fetcher.totalCalls()
	assert.GreaterOrEqual(t, calls, 2, "ticker should have fired at least twice")

	// No further runs after stop.
	time.Sleep(120 * time.Millisecond)
	assert.Equal(t, calls, fetcher.totalCalls())
}

func TestReconfigureValidatesInterval(t *testing.T) {
	o := newTestOrchestrator(smallUniverse("A"), newFakeFetcher(), &fakePersister{}, &fakeAuth{})

	assert.Error(t, o.Reconfigure(10*time.Second))
	require.NoError(t, o.Reconfigure(5*time.Minute))
	assert.Equal(t, 5*time.Minute, o.Interval())
}

func TestEventLogIsBounded(t *testing.T) {
	o := newTestOrchestrator(smallUniverse("A"), newFakeFetcher(), &fakePersister{}, &fakeAuth{})

	for i := 0; i < 12; i++ {
		o.recordEvent("info", "", fmt.Sprintf("event %d", i))
	}

	events := o.Events(0)
	assert.Len(t, events, 10)
	assert.Equal(t, "event 11", events[0].Message, "newest event first")
}
