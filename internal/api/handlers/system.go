package handlers

import (
	"net/http"
	"time"

	"github.com/ShraddheyWamanSatpute/Stock-Pulse/internal/groww"
	"github.com/ShraddheyWamanSatpute/Stock-Pulse/internal/store"
	"github.com/ShraddheyWamanSatpute/Stock-Pulse/pkg/database"
	"github.com/ShraddheyWamanSatpute/Stock-Pulse/pkg/logger"
)

// SystemHandler serves the composite health check and the upstream probe.
type SystemHandler struct {
	db         *database.DB
	timeseries *store.TimeseriesStore
	cache      *store.CacheStore
	audit      *store.AuditStore
	client     *groww.Client
	logger     *logger.Logger
}

func NewSystemHandler(db *database.DB, ts *store.TimeseriesStore, cache *store.CacheStore, audit *store.AuditStore, client *groww.Client, log *logger.Logger) *SystemHandler {
	return &SystemHandler{db: db, timeseries: ts, cache: cache, audit: audit, client: client, logger: log}
}

type tierHealth struct {
	Status string      `json:"status"`
	Detail interface{} `json:"detail,omitempty"`
}

// Health reports every storage tier. Overall status degrades to "degraded"
// when any optional tier is down, and "unhealthy" when the authoritative
// tier is unreachable.
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tiers := make(map[string]tierHealth, 3)
	overall := "ok"

	if err := h.db.Ping(ctx); err != nil {
		tiers["timeseries"] = tierHealth{Status: "down", Detail: err.Error()}
		overall = "unhealthy"
	} else {
		th := tierHealth{Status: "ok"}
		detail := map[string]interface{}{"pool": h.db.Stats()}
		if stats, err := h.timeseries.Stats(ctx); err == nil {
			detail["rows"] = stats
		}
		th.Detail = detail
		tiers["timeseries"] = th
	}

	if !h.cache.Enabled() {
		tiers["cache"] = tierHealth{Status: "disabled"}
	} else if err := h.cache.Ping(ctx); err != nil {
		tiers["cache"] = tierHealth{Status: "down", Detail: err.Error()}
		if overall == "ok" {
			overall = "degraded"
		}
	} else {
		tiers["cache"] = tierHealth{Status: "ok"}
	}

	if h.audit == nil {
		tiers["audit"] = tierHealth{Status: "disabled"}
	} else if err := h.audit.Ping(ctx); err != nil {
		tiers["audit"] = tierHealth{Status: "down", Detail: err.Error()}
		if overall == "ok" {
			overall = "degraded"
		}
	} else {
		tiers["audit"] = tierHealth{Status: "ok"}
	}

	status := http.StatusOK
	if overall == "unhealthy" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]interface{}{
		"status":  overall,
		"tiers":   tiers,
		"time":    time.Now().UTC(),
		"service": "stockpulse",
	})
}

// TestAPI authenticates and fetches one symbol without persisting anything,
// for diagnosing credentials or endpoint trouble.
func (h *SystemHandler) TestAPI(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if err := h.client.TestConnection(r.Context()); err != nil {
		h.logger.WithError(err).Warn("Upstream probe failed")
		writeJSON(w, http.StatusBadGateway, map[string]interface{}{
			"ok":    false,
			"error": err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":      true,
		"latency": time.Since(start).String(),
	})
}
