package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/ShraddheyWamanSatpute/Stock-Pulse/internal/api/handlers"
	"github.com/ShraddheyWamanSatpute/Stock-Pulse/pkg/logger"
	"github.com/ShraddheyWamanSatpute/Stock-Pulse/pkg/metrics"
)

// RouterDeps carries everything the router wires up.
type RouterDeps struct {
	Pipeline  *handlers.PipelineHandler
	Symbols   *handlers.SymbolsHandler
	Market    *handlers.MarketHandler
	System    *handlers.SystemHandler
	Metrics   *metrics.PipelineMetrics
	WSHandler http.Handler
	Logger    *logger.Logger
}

// NewRouter configures the full HTTP surface. All routing lives here.
func NewRouter(deps RouterDeps) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", deps.System.Health).Methods("GET")
	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics.Handler()).Methods("GET")
	}
	if deps.WSHandler != nil {
		r.Handle("/ws", deps.WSHandler)
	}

	api := r.PathPrefix("/api").Subrouter()

	// Pipeline control
	api.HandleFunc("/pipeline/run", deps.Pipeline.Run).Methods("POST")
	api.HandleFunc("/pipeline/cancel", deps.Pipeline.Cancel).Methods("POST")
	api.HandleFunc("/pipeline/status", deps.Pipeline.Status).Methods("GET")
	api.HandleFunc("/pipeline/jobs", deps.Pipeline.Jobs).Methods("GET")
	api.HandleFunc("/pipeline/jobs/{id}", deps.Pipeline.Job).Methods("GET")
	api.HandleFunc("/pipeline/logs", deps.Pipeline.Events).Methods("GET")
	api.HandleFunc("/pipeline/metrics", deps.Pipeline.Metrics).Methods("GET")

	// Scheduler control
	api.HandleFunc("/scheduler/start", deps.Pipeline.StartScheduler).Methods("POST")
	api.HandleFunc("/scheduler/stop", deps.Pipeline.StopScheduler).Methods("POST")
	api.HandleFunc("/scheduler/config", deps.Pipeline.Configure).Methods("PUT")

	// Universe
	api.HandleFunc("/symbols", deps.Symbols.List).Methods("GET")
	api.HandleFunc("/symbols", deps.Symbols.Add).Methods("POST")
	api.HandleFunc("/symbols/{symbol}", deps.Symbols.Remove).Methods("DELETE")
	api.HandleFunc("/symbol-categories", deps.Symbols.Categories).Methods("GET")

	// Market data
	api.HandleFunc("/screener", deps.Market.Screener).Methods("POST")
	api.HandleFunc("/analysis/{symbol}", deps.Market.Analysis).Methods("GET")
	api.HandleFunc("/prices/{symbol}", deps.Market.Prices).Methods("GET")
	api.HandleFunc("/movers", deps.Market.Movers).Methods("GET")

	// Diagnostics
	api.HandleFunc("/test-api", deps.System.TestAPI).Methods("POST")

	r.Use(loggingMiddleware(deps.Logger))
	r.Use(recoveryMiddleware(deps.Logger))

	return r
}

// loggingMiddleware logs every request with method, path and duration.
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			next.ServeHTTP(w, r)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware turns handler panics into 500s.
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
