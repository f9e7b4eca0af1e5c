package groww

import (
	"sync"
	"time"
)

const recentErrorRingSize = 20

// APIMetrics accumulates per-process call statistics for the upstream
// client. It is independent of the Prometheus export so the numbers survive
// in API responses even when no scraper is attached.
type APIMetrics struct {
	mu sync.Mutex

	totalCalls     int64
	successCalls   int64
	failedCalls    int64
	retries        int64
	rateLimitHits  int64
	authRefreshes  int64
	latencySum     time.Duration
	latencyMin     time.Duration
	latencyMax     time.Duration
	latencySamples int64

	recentErrors []RecentError
}

// RecentError is one entry of the bounded error ring.
type RecentError struct {
	At      time.Time `json:"at"`
	Message string    `json:"message"`
}

// APISnapshot is a point-in-time copy of the counters, safe to serialize.
type APISnapshot struct {
	TotalCalls    int64         `json:"total_calls"`
	SuccessCalls  int64         `json:"success_calls"`
	FailedCalls   int64         `json:"failed_calls"`
	Retries       int64         `json:"retries"`
	RateLimitHits int64         `json:"rate_limit_hits"`
	AuthRefreshes int64         `json:"auth_refreshes"`
	LatencyMin    time.Duration `json:"latency_min_ns"`
	LatencyAvg    time.Duration `json:"latency_avg_ns"`
	LatencyMax    time.Duration `json:"latency_max_ns"`
	RecentErrors  []RecentError `json:"recent_errors"`
}

func NewAPIMetrics() *APIMetrics {
	return &APIMetrics{recentErrors: make([]RecentError, 0, recentErrorRingSize)}
}

func (m *APIMetrics) recordCall(latency time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalCalls++
	if err == nil {
		m.successCalls++
	} else {
		m.failedCalls++
		m.pushErrorLocked(err.Error())
	}

	m.latencySamples++
	m.latencySum += latency
	if m.latencyMin == 0 || latency < m.latencyMin {
		m.latencyMin = latency
	}
	if latency > m.latencyMax {
		m.latencyMax = latency
	}
}

func (m *APIMetrics) recordRetry() {
	m.mu.Lock()
	m.retries++
	m.mu.Unlock()
}

func (m *APIMetrics) recordRateLimitHit() {
	m.mu.Lock()
	m.rateLimitHits++
	m.mu.Unlock()
}

func (m *APIMetrics) recordAuthRefresh() {
	m.mu.Lock()
	m.authRefreshes++
	m.mu.Unlock()
}

func (m *APIMetrics) pushErrorLocked(msg string) {
	if len(m.recentErrors) == recentErrorRingSize {
		copy(m.recentErrors, m.recentErrors[1:])
		m.recentErrors = m.recentErrors[:recentErrorRingSize-1]
	}
	m.recentErrors = append(m.recentErrors, RecentError{At: time.Now(), Message: msg})
}

// Snapshot copies the counters under the lock.
func (m *APIMetrics) Snapshot() APISnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := APISnapshot{
		TotalCalls:    m.totalCalls,
		SuccessCalls:  m.successCalls,
		FailedCalls:   m.failedCalls,
		Retries:       m.retries,
		RateLimitHits: m.rateLimitHits,
		AuthRefreshes: m.authRefreshes,
		LatencyMin:    m.latencyMin,
		LatencyMax:    m.latencyMax,
		RecentErrors:  append([]RecentError(nil), m.recentErrors...),
	}
	if m.latencySamples > 0 {
		snap.LatencyAvg = m.latencySum / time.Duration(m.latencySamples)
	}
	return snap
}
