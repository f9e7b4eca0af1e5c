package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ShraddheyWamanSatpute/Stock-Pulse/internal/canonical"
	"github.com/ShraddheyWamanSatpute/Stock-Pulse/internal/groww"
	"github.com/ShraddheyWamanSatpute/Stock-Pulse/internal/store"
	"github.com/ShraddheyWamanSatpute/Stock-Pulse/pkg/config"
	"github.com/ShraddheyWamanSatpute/Stock-Pulse/pkg/logger"
	"github.com/ShraddheyWamanSatpute/Stock-Pulse/pkg/metrics"
)

// Fetcher produces one canonical record per symbol.
type Fetcher interface {
	Quote(ctx context.Context, symbol string) (*canonical.Record, error)
}

// Persister fans a record out to the storage tiers.
type Persister interface {
	Persist(ctx context.Context, jobID string, rec *canonical.Record) error
}

// Authenticator is the credential preflight. A job that cannot authenticate
// fails before any symbol work starts.
type Authenticator interface {
	Token(ctx context.Context) (string, error)
}

// JobAuditor appends job documents to the audit tier. Optional.
type JobAuditor interface {
	AppendJob(ctx context.Context, doc store.JobDocument) error
}

// StatusPublisher caches the orchestrator status blob. Optional.
type StatusPublisher interface {
	SetPipelineStatus(ctx context.Context, status interface{}) error
}

// Event is one entry of the bounded in-memory event log.
type Event struct {
	Time    time.Time `json:"time"`
	Level   string    `json:"level"`
	JobID   string    `json:"job_id,omitempty"`
	Message string    `json:"message"`
}

// Metrics aggregates run statistics across the orchestrator's lifetime.
type Metrics struct {
	TotalJobs        int           `json:"total_jobs"`
	SucceededJobs    int           `json:"succeeded_jobs"`
	PartialJobs      int           `json:"partial_jobs"`
	FailedJobs       int           `json:"failed_jobs"`
	SuccessRate      float64       `json:"success_rate"`
	SymbolsProcessed int           `json:"symbols_processed"`
	AvgJobDuration   time.Duration `json:"avg_job_duration_ns"`
	LastRun          time.Time     `json:"last_run,omitempty"`
	NextRun          time.Time     `json:"next_run,omitempty"`
	SchedulerRunning bool          `json:"scheduler_running"`
	Interval         time.Duration `json:"interval_ns"`
}

// Status is the externally visible orchestrator state.
type Status struct {
	Running    bool         `json:"running"`
	CurrentJob *JobSnapshot `json:"current_job,omitempty"`
	Universe   int          `json:"universe_size"`
	Metrics    Metrics      `json:"metrics"`
}

// Orchestrator owns the extraction lifecycle: the interval scheduler, the
// worker pool, job history and the event log. One job runs at a time;
// triggers arriving while a job is in flight are rejected, not queued.
type Orchestrator struct {
	cfg      config.PipelineConfig
	universe *Universe
	fetcher  Fetcher
	persist  Persister
	auth     Authenticator
	auditor  JobAuditor
	status   StatusPublisher
	log      *logger.Logger
	prom     *metrics.PipelineMetrics

	mu           sync.Mutex
	current      *ExtractionJob
	cancelJob    context.CancelFunc // hard abort, fatal paths only
	stopDispatch chan struct{}      // soft cancel: closed to stop dispatching
	history      []*ExtractionJob   // ring, newest last
	events       []Event            // ring, newest last
	interval     time.Duration
	ticker       *time.Ticker
	stopTicker   chan struct{}
	running      bool
	lastRun      time.Time
	nextRun      time.Time
	totalDur     time.Duration
	finished     int
	succeeded    int
	partial      int
	failed       int
	symbolsDone  int

	cron *cron.Cron
}

// NewOrchestrator wires the pipeline. auditor and status may be nil.
func NewOrchestrator(
	cfg config.PipelineConfig,
	universe *Universe,
	fetcher Fetcher,
	persist Persister,
	auth Authenticator,
	auditor JobAuditor,
	status StatusPublisher,
	log *logger.Logger,
	prom *metrics.PipelineMetrics,
) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		universe: universe,
		fetcher:  fetcher,
		persist:  persist,
		auth:     auth,
		auditor:  auditor,
		status:   status,
		log:      log.WithField("module", "pipeline"),
		prom:     prom,
		interval: cfg.Interval,
	}
}

// ErrJobInFlight rejects a trigger while another job is running.
var ErrJobInFlight = errors.New("an extraction job is already running")

// Trigger starts a job over the full universe. Returns the job immediately;
// the run proceeds in the background.
func (o *Orchestrator) Trigger(ctx context.Context, trigger string) (*ExtractionJob, error) {
	return o.TriggerSymbols(ctx, o.universe.Symbols(), trigger)
}

// TriggerSymbols starts a job over an explicit symbol list.
func (o *Orchestrator) TriggerSymbols(ctx context.Context, symbols []string, trigger string) (*ExtractionJob, error) {
	if len(symbols) == 0 {
		return nil, fmt.Errorf("no symbols to extract")
	}

	job := NewJob(symbols, trigger)
	jobCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stop := make(chan struct{})

	o.mu.Lock()
	if o.current != nil && !o.current.CurrentStatus().Terminal() {
		o.mu.Unlock()
		cancel()
		return nil, ErrJobInFlight
	}
	o.current = job
	o.cancelJob = cancel
	o.stopDispatch = stop
	o.lastRun = time.Now()
	o.mu.Unlock()

	o.recordEvent("info", job.ID, fmt.Sprintf("job started (%s, %d symbols)", trigger, len(symbols)))

	go o.run(jobCtx, job, stop)
	return job, nil
}

// Cancel stops the in-flight job: no new symbols are dispatched, but
// fetches already in flight run to completion on a live context. The job
// finalizes as partial once the workers drain.
func (o *Orchestrator) Cancel() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.current == nil || o.current.CurrentStatus().Terminal() || o.stopDispatch == nil {
		return false
	}
	close(o.stopDispatch)
	o.stopDispatch = nil
	return true
}

// run executes one job to a terminal state.
func (o *Orchestrator) run(ctx context.Context, job *ExtractionJob, stop <-chan struct{}) {
	if !job.Start() {
		return
	}
	start := time.Now()

	// Credential preflight: an unauthenticatable job fails before any
	// symbol is touched.
	if _, err := o.auth.Token(ctx); err != nil {
		o.log.WithError(err).Error("Job authentication preflight failed")
		job.Fail(fmt.Sprintf("authentication: %v", err))
		o.finalize(ctx, job, start)
		return
	}

	concurrency := o.cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	var (
		wg        sync.WaitGroup
		fatalOnce sync.Once
	)
	sem := make(chan struct{}, concurrency)

	abort := func(reason string) {
		fatalOnce.Do(func() {
			o.recordEvent("error", job.ID, reason)
			o.mu.Lock()
			cancel := o.cancelJob
			o.mu.Unlock()
			if cancel != nil {
				cancel()
			}
			job.Fail(reason)
		})
	}

dispatch:
	for _, symbol := range job.Symbols {
		select {
		case <-stop:
			break dispatch
		default:
		}
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(sym string) {
			defer wg.Done()
			defer func() { <-sem }()
			o.processSymbol(ctx, job, sym, abort)
		}(symbol)
	}
	wg.Wait()

	// A cancel that landed after the last dispatch still counts: the job is
	// cancelled whenever the stop signal fired before the drain finished.
	cancelled := false
	select {
	case <-stop:
		cancelled = true
	default:
	}

	if cancelled && !job.CurrentStatus().Terminal() {
		job.FinishPartial("cancelled")
	} else {
		job.Finish()
	}
	o.finalize(ctx, job, start)
}

// processSymbol fetches, normalizes and persists one symbol. Per-symbol
// failures are recorded and isolated; authentication exhaustion and a lost
// critical storage tier abort the whole job.
func (o *Orchestrator) processSymbol(ctx context.Context, job *ExtractionJob, symbol string, abort func(string)) {
	if o.prom != nil {
		o.prom.SymbolStarted()
	}
	start := time.Now()
	outcome := "success"
	defer func() {
		if o.prom != nil {
			o.prom.SymbolFinished(outcome, time.Since(start))
		}
	}()

	rec, err := o.fetcher.Quote(ctx, symbol)
	if err != nil {
		outcome = "failed"
		job.SymbolFailed(symbol, err)

		var authErr *groww.AuthenticationError
		if errors.As(err, &authErr) {
			abort(fmt.Sprintf("authentication lost mid-job: %v", err))
			return
		}
		o.log.WithError(err).WithField("symbol", symbol).Warn("Symbol extraction failed")
		return
	}

	if err := o.persist.Persist(ctx, job.ID, rec); err != nil {
		outcome = "failed"
		job.SymbolFailed(symbol, err)

		var tierErr *store.TierUnavailableError
		if errors.As(err, &tierErr) {
			abort(fmt.Sprintf("storage tier lost: %v", err))
			return
		}
		o.log.WithError(err).WithField("symbol", symbol).Warn("Symbol persistence failed")
		return
	}

	job.SymbolSucceeded()
}

// finalize records the terminal job in history, metrics, audit and cache.
func (o *Orchestrator) finalize(ctx context.Context, job *ExtractionJob, start time.Time) {
	snap := job.Snapshot()
	duration := time.Since(start)

	o.mu.Lock()
	o.history = append(o.history, job)
	if len(o.history) > o.cfg.HistorySize {
		o.history = o.history[len(o.history)-o.cfg.HistorySize:]
	}
	o.finished++
	o.totalDur += duration
	o.symbolsDone += snap.Succeeded + snap.Failed
	switch snap.Status {
	case StatusSuccess:
		o.succeeded++
	case StatusPartial:
		o.partial++
	default:
		o.failed++
	}
	o.mu.Unlock()

	if o.prom != nil {
		o.prom.JobFinished(string(snap.Status), duration)
	}
	o.recordEvent("info", snap.ID, fmt.Sprintf("job finished: %s (%d ok, %d failed, %s)",
		snap.Status, snap.Succeeded, snap.Failed, duration.Round(time.Millisecond)))

	if o.auditor != nil {
		doc := store.JobDocument{
			JobID:      snap.ID,
			Status:     string(snap.Status),
			Symbols:    len(snap.Symbols),
			Succeeded:  snap.Succeeded,
			Failed:     snap.Failed,
			StartedAt:  snap.StartedAt,
			FinishedAt: snap.FinishedAt,
			Error:      snap.FatalReason,
		}
		if err := o.auditor.AppendJob(context.WithoutCancel(ctx), doc); err != nil {
			o.log.WithError(err).Warn("Job audit append failed")
		}
	}
	o.publishStatus(context.WithoutCancel(ctx))
}

func (o *Orchestrator) publishStatus(ctx context.Context) {
	if o.status == nil {
		return
	}
	if err := o.status.SetPipelineStatus(ctx, o.Status()); err != nil {
		o.log.WithError(err).Debug("Status cache write failed")
	}
}

// recordEvent appends to the bounded event log.
func (o *Orchestrator) recordEvent(level, jobID, msg string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, Event{Time: time.Now(), Level: level, JobID: jobID, Message: msg})
	if len(o.events) > o.cfg.EventLogSize {
		o.events = o.events[len(o.events)-o.cfg.EventLogSize:]
	}
}

// Events returns up to limit most recent events, newest first.
func (o *Orchestrator) Events(limit int) []Event {
	o.mu.Lock()
	defer o.mu.Unlock()
	if limit <= 0 || limit > len(o.events) {
		limit = len(o.events)
	}
	out := make([]Event, 0, limit)
	for i := len(o.events) - 1; i >= len(o.events)-limit; i-- {
		out = append(out, o.events[i])
	}
	return out
}

// History returns up to limit most recent jobs, newest first.
func (o *Orchestrator) History(limit int) []JobSnapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	if limit <= 0 || limit > len(o.history) {
		limit = len(o.history)
	}
	out := make([]JobSnapshot, 0, limit)
	for i := len(o.history) - 1; i >= len(o.history)-limit; i-- {
		out = append(out, o.history[i].Snapshot())
	}
	return out
}

// Job looks a job up by id in the current slot and history.
func (o *Orchestrator) Job(id string) (JobSnapshot, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.current != nil && o.current.ID == id {
		snap := o.current.Snapshot()
		return snap, true
	}
	for _, j := range o.history {
		if j.ID == id {
			return j.Snapshot(), true
		}
	}
	return JobSnapshot{}, false
}

// Status reports the orchestrator's externally visible state.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()

	st := Status{
		Running:  o.running,
		Universe: o.universe.Count(),
		Metrics:  o.metricsLocked(),
	}
	if o.current != nil {
		snap := o.current.Snapshot()
		st.CurrentJob = &snap
	}
	return st
}

// Metrics returns aggregate run statistics.
func (o *Orchestrator) Metrics() Metrics {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.metricsLocked()
}

func (o *Orchestrator) metricsLocked() Metrics {
	m := Metrics{
		TotalJobs:        o.finished,
		SucceededJobs:    o.succeeded,
		PartialJobs:      o.partial,
		FailedJobs:       o.failed,
		SymbolsProcessed: o.symbolsDone,
		LastRun:          o.lastRun,
		NextRun:          o.nextRun,
		SchedulerRunning: o.running,
		Interval:         o.interval,
	}
	if o.finished > 0 {
		m.SuccessRate = float64(o.succeeded) / float64(o.finished)
		m.AvgJobDuration = o.totalDur / time.Duration(o.finished)
	}
	return m
}

// StartScheduler begins the interval loop (and the EOD cron job when a
// schedule is configured). Idempotent.
func (o *Orchestrator) StartScheduler(ctx context.Context) {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return
	}
	o.running = true
	o.ticker = time.NewTicker(o.interval)
	o.stopTicker = make(chan struct{})
	o.nextRun = time.Now().Add(o.interval)
	ticker, stop := o.ticker, o.stopTicker
	o.mu.Unlock()

	o.log.WithField("interval", o.interval.String()).Info("Scheduler started")
	o.recordEvent("info", "", "scheduler started")

	go func() {
		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				o.StopScheduler()
				return
			case <-ticker.C:
				o.mu.Lock()
				o.nextRun = time.Now().Add(o.interval)
				o.mu.Unlock()
				if _, err := o.Trigger(ctx, "scheduler"); err != nil {
					o.log.WithError(err).Warn("Scheduled run skipped")
				}
			}
		}
	}()

	o.startCron(ctx)
}

// StopScheduler halts the interval loop. The in-flight job, if any, keeps
// running. Idempotent.
func (o *Orchestrator) StopScheduler() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.running {
		return
	}
	o.running = false
	o.ticker.Stop()
	close(o.stopTicker)
	o.nextRun = time.Time{}
	if o.cron != nil {
		o.cron.Stop()
		o.cron = nil
	}
	o.log.Info("Scheduler stopped")
}

// Reconfigure changes the interval, resetting the ticker in place when the
// scheduler is running.
func (o *Orchestrator) Reconfigure(interval time.Duration) error {
	if interval < time.Minute {
		return fmt.Errorf("interval must be at least 1m, got %s", interval)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.interval = interval
	if o.running {
		o.ticker.Reset(interval)
		o.nextRun = time.Now().Add(interval)
	}
	o.log.WithField("interval", interval.String()).Info("Scheduler reconfigured")
	return nil
}

// Interval returns the current schedule interval.
func (o *Orchestrator) Interval() time.Duration {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.interval
}

// startCron registers the daily EOD refresh. The interval ticker covers
// intraday; this one run captures the settled end-of-day values.
func (o *Orchestrator) startCron(ctx context.Context) {
	if o.cfg.EODSchedule == "" {
		return
	}
	c := cron.New(cron.WithSeconds())
	_, err := c.AddFunc(o.cfg.EODSchedule, func() {
		if _, err := o.Trigger(ctx, "eod"); err != nil {
			o.log.WithError(err).Warn("EOD run skipped")
		}
	})
	if err != nil {
		o.log.WithError(err).Error("Invalid EOD schedule")
		return
	}
	c.Start()

	o.mu.Lock()
	o.cron = c
	o.mu.Unlock()
}
