package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/lcalzada-xor/vmscout/internal/adapters/web/handlers"
	"github.com/lcalzada-xor/vmscout/internal/adapters/web/websocket"
	"github.com/lcalzada-xor/vmscout/internal/core/ports"
)

// Deps are the services behind the HTTP API.
type Deps struct {
	Syncer      ports.FeedSyncer
	Matcher     ports.Matcher
	Jobs        ports.JobRunner
	Inventory   ports.InventoryService
	Exporter    ports.ReportExporter
	Recommender ports.Recommender
	WSManager   *websocket.WSManager

	APIKeyHash      string
	DefaultSyncDays int
	FeedRateLimit   int
	FeedRateWindow  time.Duration
	Logger          *slog.Logger
}

// Server handles HTTP and WebSocket connections.
type Server struct {
	Addr string

	FeedsHandler     *handlers.FeedsHandler
	JobsHandler      *handlers.JobsHandler
	MatchHandler     *handlers.MatchHandler
	InventoryHandler *handlers.InventoryHandler
	ReportHandler    *handlers.ReportHandler
	WSManager        *websocket.WSManager

	apiKeyHash     string
	feedRateLimit  int
	feedRateWindow time.Duration
	logger         *slog.Logger
	srv            *http.Server
}

// NewServer creates a new web server.
func NewServer(addr string, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.WSManager == nil {
		deps.WSManager = websocket.NewWSManager(nil, deps.Logger)
	}
	if deps.FeedRateLimit < 1 {
		deps.FeedRateLimit = 10
	}
	if deps.FeedRateWindow <= 0 {
		deps.FeedRateWindow = time.Minute
	}
	return &Server{
		Addr:             addr,
		FeedsHandler:     handlers.NewFeedsHandler(deps.Syncer, deps.Jobs, deps.DefaultSyncDays),
		JobsHandler:      handlers.NewJobsHandler(deps.Jobs),
		MatchHandler:     handlers.NewMatchHandler(deps.Matcher),
		InventoryHandler: handlers.NewInventoryHandler(deps.Inventory),
		ReportHandler:    handlers.NewReportHandler(deps.Inventory, deps.Exporter, deps.Recommender),
		WSManager:        deps.WSManager,
		apiKeyHash:       deps.APIKeyHash,
		feedRateLimit:    deps.FeedRateLimit,
		feedRateWindow:   deps.FeedRateWindow,
		logger:           deps.Logger.With("component", "http"),
	}
}

// Handler returns the instrumented router.
func (s *Server) Handler(ctx context.Context) http.Handler {
	return otelhttp.NewHandler(SetupRoutes(ctx, s), "vmscout-server")
}

// Run serves until ctx ends, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.srv = &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(ctx),
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		s.logger.Info("web server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("web server shutdown error", "error", err)
		}
	}()

	s.logger.Info("web server listening", "addr", s.Addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	// In-flight requests finish before Shutdown returns.
	<-shutdownDone
	return nil
}
