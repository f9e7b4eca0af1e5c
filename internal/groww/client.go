package groww

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/ShraddheyWamanSatpute/Stock-Pulse/internal/canonical"
	"github.com/ShraddheyWamanSatpute/Stock-Pulse/pkg/config"
	"github.com/ShraddheyWamanSatpute/Stock-Pulse/pkg/logger"
	"github.com/ShraddheyWamanSatpute/Stock-Pulse/pkg/metrics"
)

const (
	baseBackoff = 500 * time.Millisecond
	maxBackoff  = 8 * time.Second
)

// transientError marks a failure worth retrying: network trouble, a 5xx, or
// a body that is not valid JSON. Only these count against the breaker.
type transientError struct {
	status int
	cause  error
}

func (e *transientError) Error() string {
	if e.status > 0 {
		return fmt.Sprintf("transient upstream failure (status %d)", e.status)
	}
	return fmt.Sprintf("transient upstream failure: %v", e.cause)
}

func (e *transientError) Unwrap() error { return e.cause }

// httpResult is what one raw round trip produces.
type httpResult struct {
	status int
	body   []byte
}

// Client is the rate-limited upstream gateway. All quote traffic flows
// through two shared limiters (per-second and per-minute), a circuit breaker
// around the raw round trip, and a bounded retry loop. A 401 triggers one
// session refresh per logical request before counting as a failure.
type Client struct {
	cfg        config.GrowwConfig
	session    *Session
	httpClient *http.Client
	norm       *Normalizer
	log        *logger.Logger

	secondLimiter *rate.Limiter
	minuteLimiter *rate.Limiter
	breaker       *gobreaker.CircuitBreaker[httpResult]

	apiMetrics *APIMetrics
	prom       *metrics.PipelineMetrics
}

// NewClient builds a client sharing one session. prom may be nil when no
// Prometheus registry is wired (tests, one-shot CLI runs).
func NewClient(cfg config.GrowwConfig, session *Session, log *logger.Logger, prom *metrics.PipelineMetrics) *Client {
	c := &Client{
		cfg:        cfg,
		session:    session,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		norm:       NewNormalizer(log),
		log:        log.WithField("module", "groww_client"),
		// Per-second limiter allows a burst of one second's quota; the
		// per-minute limiter backstops sustained load.
		secondLimiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.RequestsPerSecond),
		minuteLimiter: rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), cfg.RequestsPerMinute),
		apiMetrics:    NewAPIMetrics(),
		prom:          prom,
	}

	c.breaker = gobreaker.NewCircuitBreaker[httpResult](gobreaker.Settings{
		Name:        "groww-upstream",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 10 && counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.log.Warnf("circuit breaker %s: %s -> %s", name, from, to)
		},
	})

	return c
}

// Metrics returns a snapshot of the client's call counters.
func (c *Client) Metrics() APISnapshot {
	return c.apiMetrics.Snapshot()
}

// Quote fetches and normalizes the full field set for one symbol.
func (c *Client) Quote(ctx context.Context, symbol string) (*canonical.Record, error) {
	asOf := time.Now()
	payload, err := c.fetchFields(ctx, "/v1/live-data/quote?symbol="+url.QueryEscape(symbol))
	if err != nil {
		return nil, err
	}
	return c.norm.Transform(symbol, payload, asOf)
}

// BulkQuotes fetches symbols with a bounded worker pool. Failures stay
// per-symbol: the returned error map carries each symbol's failure and never
// aborts the rest. Callers that treat an expired session as batch-fatal
// inspect the error map for an AuthenticationError themselves.
func (c *Client) BulkQuotes(ctx context.Context, symbols []string, concurrency int) (map[string]*canonical.Record, map[string]error) {
	if concurrency <= 0 {
		concurrency = c.cfg.Concurrency
	}

	records := make(map[string]*canonical.Record, len(symbols))
	failures := make(map[string]error)

	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, concurrency)

	for _, symbol := range symbols {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(sym string) {
			defer wg.Done()
			defer func() { <-sem }()

			rec, err := c.Quote(ctx, sym)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures[sym] = err
				return
			}
			records[sym] = rec
		}(symbol)
	}
	wg.Wait()

	return records, failures
}

// TestConnection performs a single authenticated probe so operators can
// verify credentials without running a job.
func (c *Client) TestConnection(ctx context.Context) error {
	if _, err := c.session.Token(ctx); err != nil {
		return err
	}
	_, err := c.fetchFields(ctx, "/v1/live-data/quote?symbol=RELIANCE")
	return err
}

// fetchFields runs the full request pipeline for one path: rate limiting,
// retries with exponential backoff, 401 handling, and envelope decoding.
func (c *Client) fetchFields(ctx context.Context, path string) (map[string]interface{}, error) {
	var (
		lastStatus int
		lastErr    error
		refreshed  bool
	)

	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 1 {
			c.apiMetrics.recordRetry()
			if c.prom != nil {
				c.prom.UpstreamRetry()
			}
			if err := sleepCtx(ctx, backoff(attempt-1)); err != nil {
				return nil, err
			}
		}

		if err := c.waitLimiters(ctx); err != nil {
			return nil, err
		}

		token, err := c.session.Token(ctx)
		if err != nil {
			return nil, err
		}

		start := time.Now()
		result, err := c.breaker.Execute(func() (httpResult, error) {
			return c.roundTrip(ctx, path, token)
		})
		c.apiMetrics.recordCall(time.Since(start), err)

		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			var te *transientError
			if errors.As(err, &te) {
				lastStatus, lastErr = te.status, err
				continue
			}
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				lastErr = err
				continue
			}
			return nil, err
		}

		switch {
		case result.status == http.StatusUnauthorized:
			// One refresh per logical request; a second 401 means the
			// credentials themselves are bad.
			if refreshed {
				return nil, &AuthenticationError{Cause: fmt.Errorf("still unauthorized after refresh")}
			}
			refreshed = true
			c.session.Invalidate()
			c.apiMetrics.recordAuthRefresh()
			if _, err := c.session.Token(ctx); err != nil {
				return nil, err
			}
			attempt-- // the refreshed retry does not consume the retry budget
			continue

		case result.status == http.StatusTooManyRequests:
			c.apiMetrics.recordRateLimitHit()
			lastStatus, lastErr = result.status, fmt.Errorf("upstream throttled the request")
			continue

		case result.status >= 400:
			// Remaining 4xx are not retryable.
			return nil, &APIError{Status: result.status, Attempts: attempt,
				Cause: fmt.Errorf("upstream rejected the request")}
		}

		if !json.Valid(result.body) {
			lastStatus, lastErr = result.status, fmt.Errorf("malformed response body")
			continue
		}
		return decodeEnvelope(result.body)
	}

	return nil, &APIError{Status: lastStatus, Attempts: c.cfg.MaxRetries, Cause: lastErr}
}

// waitLimiters blocks on both shared limiters, counting a wait only when a
// limiter actually delayed the caller.
func (c *Client) waitLimiters(ctx context.Context) error {
	if err := c.waitOne(ctx, c.secondLimiter); err != nil {
		return err
	}
	return c.waitOne(ctx, c.minuteLimiter)
}

func (c *Client) waitOne(ctx context.Context, lim *rate.Limiter) error {
	r := lim.Reserve()
	if !r.OK() {
		return fmt.Errorf("rate limiter cannot satisfy the request")
	}
	delay := r.Delay()
	if delay == 0 {
		return nil
	}
	c.apiMetrics.recordRateLimitHit()
	if c.prom != nil {
		c.prom.RateLimitWait()
	}
	if err := sleepCtx(ctx, delay); err != nil {
		r.Cancel()
		return err
	}
	return nil
}

// roundTrip performs one raw HTTP exchange. It returns an error only for
// failures the breaker should count: transport errors and 5xx responses.
func (c *Client) roundTrip(ctx context.Context, path, token string) (httpResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path, nil)
	if err != nil {
		return httpResult{}, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return httpResult{}, &transientError{cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return httpResult{}, &transientError{cause: err}
	}
	if resp.StatusCode >= 500 {
		return httpResult{}, &transientError{status: resp.StatusCode}
	}
	return httpResult{status: resp.StatusCode, body: body}, nil
}

func backoff(retries int) time.Duration {
	d := baseBackoff << retries
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
