package pipeline

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// JobStatus is the lifecycle state of one extraction job.
type JobStatus string

const (
	StatusPending JobStatus = "pending"
	StatusRunning JobStatus = "running"
	StatusSuccess JobStatus = "success"
	StatusPartial JobStatus = "partial"
	StatusFailed  JobStatus = "failed"
)

// terminal statuses are never reopened.
func (s JobStatus) Terminal() bool {
	return s == StatusSuccess || s == StatusPartial || s == StatusFailed
}

// ExtractionJob tracks one pipeline run. All mutation goes through the
// methods so the status machine cannot be driven backwards.
type ExtractionJob struct {
	mu sync.Mutex

	ID          string            `json:"id"`
	Status      JobStatus         `json:"status"`
	Trigger     string            `json:"trigger"`
	Symbols     []string          `json:"symbols"`
	Succeeded   int               `json:"succeeded"`
	Failed      int               `json:"failed"`
	Errors      map[string]string `json:"errors,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	StartedAt   time.Time         `json:"started_at,omitempty"`
	FinishedAt  time.Time         `json:"finished_at,omitempty"`
	FatalReason string            `json:"fatal_reason,omitempty"`
}

// NewJob creates a pending job over the given symbols. trigger records what
// started it ("scheduler", "manual", "eod").
func NewJob(symbols []string, trigger string) *ExtractionJob {
	return &ExtractionJob{
		ID:        uuid.NewString(),
		Status:    StatusPending,
		Trigger:   trigger,
		Symbols:   append([]string(nil), symbols...),
		Errors:    make(map[string]string),
		CreatedAt: time.Now(),
	}
}

// Start moves pending -> running. Starting a non-pending job is a no-op so a
// finished job can never run again.
func (j *ExtractionJob) Start() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.Status != StatusPending {
		return false
	}
	j.Status = StatusRunning
	j.StartedAt = time.Now()
	return true
}

// SymbolSucceeded records one successful symbol.
func (j *ExtractionJob) SymbolSucceeded() {
	j.mu.Lock()
	j.Succeeded++
	j.mu.Unlock()
}

// SymbolFailed records one failed symbol with its error.
func (j *ExtractionJob) SymbolFailed(symbol string, err error) {
	j.mu.Lock()
	j.Failed++
	j.Errors[symbol] = err.Error()
	j.mu.Unlock()
}

// Finish resolves the terminal status from the tallies: every symbol ok is
// success, everything lost is failed, anything in between is partial.
// Finishing an already-terminal job is a no-op.
func (j *ExtractionJob) Finish() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.Status.Terminal() {
		return
	}

	switch {
	case j.Failed == 0 && j.Succeeded > 0:
		j.Status = StatusSuccess
	case j.Succeeded == 0:
		j.Status = StatusFailed
	default:
		j.Status = StatusPartial
	}
	j.FinishedAt = time.Now()
}

// Fail marks the job failed with a job-level reason, regardless of tallies.
func (j *ExtractionJob) Fail(reason string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.Status.Terminal() {
		return
	}
	j.Status = StatusFailed
	j.FatalReason = reason
	j.FinishedAt = time.Now()
}

// FinishPartial forces the partial terminal state after a cancellation,
// regardless of tallies: a cancelled job is partial even when no symbol
// completed before the cancel landed.
func (j *ExtractionJob) FinishPartial(reason string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.Status.Terminal() {
		return
	}
	j.Status = StatusPartial
	j.FatalReason = reason
	j.FinishedAt = time.Now()
}

// JobSnapshot is a point-in-time copy of a job, safe to serialize and to
// pass by value while workers keep mutating the original.
type JobSnapshot struct {
	ID          string            `json:"id"`
	Status      JobStatus         `json:"status"`
	Trigger     string            `json:"trigger"`
	Symbols     []string          `json:"symbols"`
	Succeeded   int               `json:"succeeded"`
	Failed      int               `json:"failed"`
	Errors      map[string]string `json:"errors,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	StartedAt   time.Time         `json:"started_at,omitempty"`
	FinishedAt  time.Time         `json:"finished_at,omitempty"`
	FatalReason string            `json:"fatal_reason,omitempty"`
}

// Snapshot returns a copy safe to serialize while workers keep mutating.
func (j *ExtractionJob) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()

	cp := JobSnapshot{
		ID:          j.ID,
		Status:      j.Status,
		Trigger:     j.Trigger,
		Symbols:     append([]string(nil), j.Symbols...),
		Succeeded:   j.Succeeded,
		Failed:      j.Failed,
		Errors:      make(map[string]string, len(j.Errors)),
		CreatedAt:   j.CreatedAt,
		StartedAt:   j.StartedAt,
		FinishedAt:  j.FinishedAt,
		FatalReason: j.FatalReason,
	}
	for k, v := range j.Errors {
		cp.Errors[k] = v
	}
	return cp
}

// Progress reports processed and total symbol counts.
func (j *ExtractionJob) Progress() (processed, total int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.Succeeded + j.Failed, len(j.Symbols)
}

// CurrentStatus reads the status under the lock.
func (j *ExtractionJob) CurrentStatus() JobStatus {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.Status
}

// Duration is wall time from start to finish, or to now while running.
func (j *ExtractionJob) Duration() time.Duration {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.StartedAt.IsZero() {
		return 0
	}
	if j.FinishedAt.IsZero() {
		return time.Since(j.StartedAt)
	}
	return j.FinishedAt.Sub(j.StartedAt)
}
