package groww

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShraddheyWamanSatpute/Stock-Pulse/pkg/config"
	"github.com/ShraddheyWamanSatpute/Stock-Pulse/pkg/logger"
)

func newQuoteHandler(t *testing.T, dataCalls *atomic.Int64, respond func(w http.ResponseWriter, call int64)) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		require.NotEmpty(t, r.Header.Get("Authorization"))
		respond(w, dataCalls.Add(1))
	}
}

func newClientFixture(t *testing.T, handler http.HandlerFunc, mutate func(*config.GrowwConfig)) (*Client, *httptest.Server) {
	t.Helper()

	var exchanges atomic.Int64
	auth := newTokenServer(t, &exchanges, 3600)
	t.Cleanup(auth.Close)

	data := httptest.NewServer(handler)
	t.Cleanup(data.Close)

	cfg := testGrowwConfig(auth.URL, data.URL)
	if mutate != nil {
		mutate(&cfg)
	}
	session := NewSession(cfg, logger.NewNop())
	return NewClient(cfg, session, logger.NewNop(), nil), data
}

func TestClientQuoteHappyPath(t *testing.T) {
	var calls atomic.Int64
	client, _ := newClientFixture(t, newQuoteHandler(t, &calls, func(w http.ResponseWriter, _ int64) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  "success",
			"payload": map[string]interface{}{"ltp": 2450.5, "volume": 98000.0},
		})
	}), nil)

	rec, err := client.Quote(context.Background(), "TCS")
	require.NoError(t, err)

	assert.Equal(t, "TCS", rec.Symbol)
	px, ok := rec.Float("close")
	require.True(t, ok)
	assert.Equal(t, 2450.5, px)
	assert.Equal(t, int64(1), calls.Load())

	snap := client.Metrics()
	assert.Equal(t, int64(1), snap.TotalCalls)
	assert.Equal(t, int64(1), snap.SuccessCalls)
}

func TestClientRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int64
	client, _ := newClientFixture(t, newQuoteHandler(t, &calls, func(w http.ResponseWriter, call int64) {
		if call <= 2 {
			http.Error(w, "upstream busy", http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"ltp": 101.0})
	}), nil)

	rec, err := client.Quote(context.Background(), "INFY")
	require.NoError(t, err)
	assert.True(t, rec.Has("close"))
	assert.Equal(t, int64(3), calls.Load())
	assert.Equal(t, int64(2), client.Metrics().Retries)
}

func TestClientExhaustedRetriesReturnAPIError(t *testing.T) {
	var calls atomic.Int64
	client, _ := newClientFixture(t, newQuoteHandler(t, &calls, func(w http.ResponseWriter, _ int64) {
		http.Error(w, "upstream down", http.StatusInternalServerError)
	}), func(cfg *config.GrowwConfig) { cfg.MaxRetries = 2 })

	_, err := client.Quote(context.Background(), "INFY")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 2, apiErr.Attempts)
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.Equal(t, int64(2), calls.Load())
}

func TestClientMalformedBodyIsRetried(t *testing.T) {
	var calls atomic.Int64
	client, _ := newClientFixture(t, newQuoteHandler(t, &calls, func(w http.ResponseWriter, call int64) {
		if call == 1 {
			w.Write([]byte(`{"ltp": 10`)) // truncated
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"ltp": 10.0})
	}), nil)

	rec, err := client.Quote(context.Background(), "SBIN")
	require.NoError(t, err)
	assert.True(t, rec.Has("close"))
	assert.Equal(t, int64(2), calls.Load())
}

func TestClientUnauthorizedTriggersOneRefresh(t *testing.T) {
	var calls atomic.Int64
	client, _ := newClientFixture(t, newQuoteHandler(t, &calls, func(w http.ResponseWriter, call int64) {
		if call == 1 {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"ltp": 55.0})
	}), nil)

	rec, err := client.Quote(context.Background(), "ITC")
	require.NoError(t, err)
	assert.True(t, rec.Has("close"))
	assert.Equal(t, int64(2), calls.Load())
	assert.Equal(t, int64(1), client.Metrics().AuthRefreshes)
}

func TestClientRepeatedUnauthorizedIsAuthenticationError(t *testing.T) {
	var calls atomic.Int64
	client, _ := newClientFixture(t, newQuoteHandler(t, &calls, func(w http.ResponseWriter, _ int64) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}), nil)

	_, err := client.Quote(context.Background(), "ITC")
	require.Error(t, err)

	var authErr *AuthenticationError
	assert.ErrorAs(t, err, &authErr)
	assert.Equal(t, int64(2), calls.Load(), "exactly one refresh attempt per request")
}

func TestClientClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int64
	client, _ := newClientFixture(t, newQuoteHandler(t, &calls, func(w http.ResponseWriter, _ int64) {
		http.Error(w, "no such symbol", http.StatusNotFound)
	}), nil)

	_, err := client.Quote(context.Background(), "NOPE")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, int64(1), calls.Load())
}

func TestClientRateLimiterDelaysInsteadOfDropping(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping rate limiter timing test in short mode")
	}

	var calls atomic.Int64
	client, _ := newClientFixture(t, newQuoteHandler(t, &calls, func(w http.ResponseWriter, _ int64) {
		json.NewEncoder(w).Encode(map[string]interface{}{"ltp": 1.0})
	}), func(cfg *config.GrowwConfig) {
		cfg.RequestsPerSecond = 5
		cfg.RequestsPerMinute = 6000
	})

	start := time.Now()
	records, failures := client.BulkQuotes(context.Background(), []string{
		"A", "B", "C", "D", "E", "F", "G", "H", "I", "J",
	}, 10)

	assert.Empty(t, failures)
	assert.Len(t, records, 10)
	// Burst of 5 goes immediately, the rest are spaced at 200ms: the batch
	// cannot finish faster than roughly one second.
	assert.GreaterOrEqual(t, time.Since(start), 800*time.Millisecond)
	assert.Equal(t, int64(10), calls.Load())
}

func TestClientBulkQuotesIsolatesSymbolFailures(t *testing.T) {
	client, _ := newClientFixture(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("symbol") == "BAD" {
			http.Error(w, "no such symbol", http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"ltp": 9.0})
	}, nil)

	records, failures := client.BulkQuotes(context.Background(), []string{"OK1", "BAD", "OK2"}, 2)

	assert.Len(t, records, 2)
	require.Len(t, failures, 1)
	var apiErr *APIError
	assert.ErrorAs(t, failures["BAD"], &apiErr)
}

func TestClientCancellationStopsBatch(t *testing.T) {
	release := make(chan struct{})
	client, _ := newClientFixture(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
		json.NewEncoder(w).Encode(map[string]interface{}{"ltp": 1.0})
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
		close(release)
	}()

	_, failures := client.BulkQuotes(ctx, []string{"X", "Y"}, 1)
	assert.NotEmpty(t, failures)
}
