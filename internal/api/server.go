package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ShraddheyWamanSatpute/Stock-Pulse/pkg/config"
	"github.com/ShraddheyWamanSatpute/Stock-Pulse/pkg/logger"
)

// Server wraps the HTTP server lifecycle. Server tuning lives in this file
// and nowhere else; WebSocket connections are hijacked and manage their own
// deadlines.
type Server struct {
	httpServer *http.Server
	logger     *logger.Logger
	addr       string
}

// New creates the API server around a fully wired router.
func New(cfg *config.Config, log *logger.Logger, router http.Handler) *Server {
	addr := ":" + cfg.Port
	return &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: log,
		addr:   addr,
	}
}

// Start blocks serving requests until Shutdown.
func (s *Server) Start() error {
	s.logger.WithField("addr", s.addr).Info("Starting API server")

	err := s.httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down API server")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}
