package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ShraddheyWamanSatpute/Stock-Pulse/internal/api"
	"github.com/ShraddheyWamanSatpute/Stock-Pulse/internal/api/handlers"
	"github.com/ShraddheyWamanSatpute/Stock-Pulse/internal/scoring"
	"github.com/ShraddheyWamanSatpute/Stock-Pulse/internal/ws"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the API server",
	Long: `Starts the REST API server.

This command:
- Serves the pipeline control and market data endpoints
- Runs the recurring extraction scheduler
- Streams live price updates over WebSocket

Endpoints:
  GET  /health                    - Composite health check
  POST /api/pipeline/run          - Trigger an extraction job
  GET  /api/pipeline/status       - Orchestrator status
  POST /api/screener              - Multi-table stock screener
  GET  /api/analysis/{symbol}     - Scored analysis for a symbol
  GET  /ws                        - Live price stream

Example:
  go run ./cmd/stockpulse api
  go run ./cmd/stockpulse api --port 8089`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port (overrides PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== StockPulse API Server ===")

	ctx := cmd.Context()

	// 1. Wire the application stack (config, logger, stores, pipeline)
	app, err := buildStack(ctx, true)
	if err != nil {
		return err
	}
	defer app.close(context.Background())

	// Override port if flag is set
	if apiPort != "" {
		app.cfg.Port = apiPort
	}

	log := app.log
	log.WithFields(map[string]interface{}{
		"port":     app.cfg.Port,
		"env":      app.cfg.Env,
		"universe": app.universe.Count(),
	}).Info("Initializing API server")

	// 2. Create scoring engine
	engine := scoring.NewEngine()

	// 3. Create WebSocket hub
	hub := ws.NewHub(app.cache, log)
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go hub.Run(hubCtx)

	// 4. Create handlers
	pipelineHandler := handlers.NewPipelineHandler(app.orch, app.client, log)
	symbolsHandler := handlers.NewSymbolsHandler(app.universe, log)
	marketHandler := handlers.NewMarketHandler(app.timeseries, app.cache, engine, log)
	systemHandler := handlers.NewSystemHandler(app.db, app.timeseries, app.cache, app.audit, app.client, log)

	// 5. Create router
	router := api.NewRouter(api.RouterDeps{
		Pipeline:  pipelineHandler,
		Symbols:   symbolsHandler,
		Market:    marketHandler,
		System:    systemHandler,
		Metrics:   app.metrics,
		WSHandler: hub,
		Logger:    log,
	})

	// 6. Create server
	server := api.New(app.cfg, log, router)

	// 7. Start the extraction scheduler
	if app.cfg.Pipeline.AutoStart {
		app.orch.StartScheduler(context.Background())
		log.WithField("interval", app.cfg.Pipeline.Interval.String()).Info("Extraction scheduler started")
	}
	defer app.orch.StopScheduler()

	// 8. Start server with graceful shutdown
	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	log.Info("API server started successfully")
	fmt.Printf("\n✅ Server running on http://localhost:%s\n", app.cfg.Port)
	fmt.Println("\nAvailable endpoints:")
	fmt.Println("  GET  /health")
	fmt.Println("  POST /api/pipeline/run")
	fmt.Println("  GET  /api/pipeline/status")
	fmt.Println("  POST /api/screener")
	fmt.Println("  GET  /api/analysis/{symbol}")
	fmt.Println("  GET  /ws")
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	hub.Stop()
	log.Info("Server stopped")
	return nil
}
