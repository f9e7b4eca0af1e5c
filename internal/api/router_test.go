package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShraddheyWamanSatpute/Stock-Pulse/internal/api/handlers"
	"github.com/ShraddheyWamanSatpute/Stock-Pulse/internal/canonical"
	"github.com/ShraddheyWamanSatpute/Stock-Pulse/internal/pipeline"
	"github.com/ShraddheyWamanSatpute/Stock-Pulse/pkg/config"
	"github.com/ShraddheyWamanSatpute/Stock-Pulse/pkg/logger"
)

type noopFetcher struct{}

func (noopFetcher) Quote(ctx context.Context, symbol string) (*canonical.Record, error) {
	rec := canonical.NewRecord(symbol, time.Now())
	rec.Set("close", 100.0, time.Now())
	return rec, nil
}

type noopPersister struct{}

func (noopPersister) Persist(ctx context.Context, jobID string, rec *canonical.Record) error {
	return nil
}

type noopAuth struct{}

func (noopAuth) Token(ctx context.Context) (string, error) { return "token", nil }

func testRouter(t *testing.T) http.Handler {
	t.Helper()

	log := logger.NewNop()
	universe := pipeline.NewUniverse()
	orch := pipeline.NewOrchestrator(config.PipelineConfig{
		Interval:     time.Minute,
		Concurrency:  4,
		HistorySize:  10,
		EventLogSize: 10,
	}, universe, noopFetcher{}, noopPersister{}, noopAuth{}, nil, nil, log, nil)

	return NewRouter(RouterDeps{
		Pipeline: handlers.NewPipelineHandler(orch, nil, log),
		Symbols:  handlers.NewSymbolsHandler(universe, log),
		Logger:   log,
	})
}

func TestRouter_SymbolEndpoints(t *testing.T) {
	router := testRouter(t)

	// Full universe listed
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest("GET", "/api/symbols", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var listResp struct {
		Symbols []string `json:"symbols"`
		Count   int      `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &listResp))
	assert.Equal(t, 143, listResp.Count)

	// Add a symbol
	body, _ := json.Marshal(map[string]string{"symbol": "NEWCO", "category": "mid_small_caps"})
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest("POST", "/api/symbols", bytes.NewReader(body)))
	require.Equal(t, http.StatusCreated, rr.Code)

	// Remove it again
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest("DELETE", "/api/symbols/NEWCO", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	// Removing an unknown symbol is a 404
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest("DELETE", "/api/symbols/NOSUCH", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRouter_CategoriesEndpoint(t *testing.T) {
	router := testRouter(t)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest("GET", "/api/symbol-categories", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var categories map[string][]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &categories))
	assert.Len(t, categories["nifty_50"], 50)
	assert.Len(t, categories["nifty_next_50"], 50)
	assert.Len(t, categories["mid_small_caps"], 43)
}

func TestRouter_PipelineStatusIdle(t *testing.T) {
	router := testRouter(t)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest("GET", "/api/pipeline/status", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var status pipeline.Status
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &status))
	assert.False(t, status.Running)
	assert.Nil(t, status.CurrentJob)
}

func TestRouter_SchedulerConfigValidation(t *testing.T) {
	router := testRouter(t)

	body, _ := json.Marshal(map[string]string{"interval": "5s"})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest("PUT", "/api/scheduler/config", bytes.NewReader(body)))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	body, _ = json.Marshal(map[string]string{"interval": "10m"})
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest("PUT", "/api/scheduler/config", bytes.NewReader(body)))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRouter_CancelWithoutJob(t *testing.T) {
	router := testRouter(t)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest("POST", "/api/pipeline/cancel", nil))
	assert.Equal(t, http.StatusConflict, rr.Code)
}
