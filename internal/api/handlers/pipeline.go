package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/ShraddheyWamanSatpute/Stock-Pulse/internal/groww"
	"github.com/ShraddheyWamanSatpute/Stock-Pulse/internal/pipeline"
	"github.com/ShraddheyWamanSatpute/Stock-Pulse/pkg/logger"
)

// PipelineHandler exposes the orchestrator control surface.
type PipelineHandler struct {
	orch   *pipeline.Orchestrator
	client *groww.Client
	logger *logger.Logger
}

func NewPipelineHandler(orch *pipeline.Orchestrator, client *groww.Client, log *logger.Logger) *PipelineHandler {
	return &PipelineHandler{orch: orch, client: client, logger: log}
}

type runRequest struct {
	Symbols []string `json:"symbols,omitempty"`
}

// Run triggers an extraction job, over an explicit symbol list when the body
// names one, over the full universe otherwise.
func (h *PipelineHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	var (
		job *pipeline.ExtractionJob
		err error
	)
	if len(req.Symbols) > 0 {
		job, err = h.orch.TriggerSymbols(r.Context(), req.Symbols, "manual")
	} else {
		job, err = h.orch.Trigger(r.Context(), "manual")
	}
	if err != nil {
		if errors.Is(err, pipeline.ErrJobInFlight) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	snap := job.Snapshot()
	writeJSON(w, http.StatusAccepted, snap)
}

// Cancel stops the in-flight job.
func (h *PipelineHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if !h.orch.Cancel() {
		writeError(w, http.StatusConflict, "no job is running")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelling"})
}

// Status reports the orchestrator snapshot.
func (h *PipelineHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.orch.Status())
}

// Jobs returns recent job history, newest first.
func (h *PipelineHandler) Jobs(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"jobs": h.orch.History(limit),
	})
}

// Job returns one job by id.
func (h *PipelineHandler) Job(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	job, ok := h.orch.Job(id)
	if !ok {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// Events returns the structured event log, newest first.
func (h *PipelineHandler) Events(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 100)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"events": h.orch.Events(limit),
	})
}

// Metrics reports aggregate pipeline metrics plus the upstream client's call
// counters.
func (h *PipelineHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"pipeline": h.orch.Metrics(),
		"api":      h.client.Metrics(),
	})
}

// StartScheduler begins the recurring extraction loop. The loop must outlive
// this request, so it runs detached from the request context.
func (h *PipelineHandler) StartScheduler(w http.ResponseWriter, r *http.Request) {
	h.orch.StartScheduler(context.WithoutCancel(r.Context()))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"scheduler": "running",
		"interval":  h.orch.Interval().String(),
	})
}

// StopScheduler halts the recurring loop; an in-flight job drains normally.
func (h *PipelineHandler) StopScheduler(w http.ResponseWriter, r *http.Request) {
	h.orch.StopScheduler()
	writeJSON(w, http.StatusOK, map[string]string{"scheduler": "stopped"})
}

type scheduleRequest struct {
	Interval string `json:"interval"`
}

// Configure changes the scheduler interval without a restart.
func (h *PipelineHandler) Configure(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	interval, err := time.ParseDuration(req.Interval)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid interval: "+req.Interval)
		return
	}
	if err := h.orch.Reconfigure(interval); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"interval": interval.String()})
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
