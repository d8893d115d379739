package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lcalzada-xor/vmscout/internal/adapters/kev"
	"github.com/lcalzada-xor/vmscout/internal/adapters/nvd"
	"github.com/lcalzada-xor/vmscout/internal/adapters/reporting"
	"github.com/lcalzada-xor/vmscout/internal/adapters/storage"
	webserver "github.com/lcalzada-xor/vmscout/internal/adapters/web/server"
	"github.com/lcalzada-xor/vmscout/internal/adapters/web/websocket"
	"github.com/lcalzada-xor/vmscout/internal/config"
	"github.com/lcalzada-xor/vmscout/internal/core/domain"
	"github.com/lcalzada-xor/vmscout/internal/core/services/feeds"
	"github.com/lcalzada-xor/vmscout/internal/core/services/inventory"
	"github.com/lcalzada-xor/vmscout/internal/core/services/jobs"
	"github.com/lcalzada-xor/vmscout/internal/core/services/matching"
	recommend "github.com/lcalzada-xor/vmscout/internal/core/services/reporting"
	"github.com/lcalzada-xor/vmscout/internal/telemetry"
)

// Application holds the core components of the application.
// It acts as the Facade for the entire system, orchestrating services and infrastructure.
type Application struct {
	Config    *config.Config
	Store     *storage.SQLiteAdapter
	Feeds     *feeds.Service
	Engine    *matching.Engine
	Jobs      *jobs.Runner
	Inventory *inventory.Service
	WSManager *websocket.WSManager
	WebServer *webserver.Server

	logger *slog.Logger
}

// New creates a new Application instance and bootstraps its components.
func New(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = slog.Default()
	}
	app := &Application{
		Config: cfg,
		logger: logger,
	}

	if err := app.bootstrap(); err != nil {
		return nil, fmt.Errorf("application bootstrap failed: %w", err)
	}

	return app, nil
}

// bootstrap orchestrates the initialization sequence.
func (app *Application) bootstrap() error {
	// 1. Foundation & Infrastructure
	telemetry.InitMetrics()

	if err := app.initStorage(); err != nil {
		return err
	}

	tables, err := matching.LoadTables(app.Config.TablesPath)
	if err != nil {
		return fmt.Errorf("failed to load matching tables: %w", err)
	}
	aliases, products := tables.Len()
	app.logger.Debug("matching tables loaded", "aliases", aliases, "products", products)

	// 2. Domain Services
	app.initFeeds()
	app.Engine = matching.NewEngine(app.Store, tables, matching.Config{
		TopK:    app.Config.TopK,
		Workers: app.Config.Workers,
		Logger:  app.logger,
	})
	app.Inventory = inventory.NewService(app.Store, app.logger)

	// 3. Jobs & Servers
	app.WSManager = websocket.NewWSManager(app.Config.AllowedOrigins, app.logger)
	app.Jobs = jobs.NewRunner(jobs.Config{Logger: app.logger})
	app.Jobs.Subscribe(app.WSManager)

	app.WebServer = webserver.NewServer(app.Config.Addr, webserver.Deps{
		Syncer:          app.Feeds,
		Matcher:         app.Engine,
		Jobs:            app.Jobs,
		Inventory:       app.Inventory,
		Exporter:        reporting.NewPDFExporter(),
		Recommender:     recommend.NewRecommendationEngine(),
		WSManager:       app.WSManager,
		APIKeyHash:      app.Config.APIKeyHash,
		DefaultSyncDays: app.Config.SyncDays,
		Logger:          app.logger,
	})

	return nil
}

func (app *Application) initStorage() error {
	store, err := storage.NewSQLiteAdapter(app.Config.DBPath)
	if err != nil {
		return fmt.Errorf("failed to init catalog storage: %w", err)
	}
	app.Store = store
	return nil
}

func (app *Application) initFeeds() {
	nvdClient := nvd.NewClient(nvd.Config{
		BaseURL:  app.Config.NVDURL,
		APIKey:   app.Config.NVDAPIKey,
		PageSize: app.Config.NVDPageSize,
		Limiter:  nvd.NewLimiter(app.Config.NVDAPIKey),
	})
	kevClient := kev.NewClient(app.Config.KEVURL, nil)

	app.Feeds = feeds.NewService(
		feeds.NewNVDSync(app.Store, nvdClient, feeds.NVDConfig{
			WindowDays:   app.Config.WindowDays,
			FallbackDays: app.Config.FallbackDays,
			Logger:       app.logger,
		}),
		feeds.NewKEVSync(app.Store, kevClient, app.logger),
	)
}

// Run starts the application components and manages their execution lifecycle.
// The store is closed only after the web server has drained and the job
// worker has stopped.
func (app *Application) Run(ctx context.Context) error {
	app.logger.Info("starting vmscout components")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// 1. Background Processing
	app.Jobs.Start(ctx)
	if app.Config.SyncInterval > 0 {
		app.logger.Info("periodic feed sync enabled", "interval", app.Config.SyncInterval, "days", app.Config.SyncDays)
		app.Jobs.Every(ctx, app.Config.SyncInterval, app.scheduledSyncs()...)
	}

	// 2. Servers
	serverDone := make(chan error, 1)
	go func() {
		if err := app.WebServer.Run(ctx); err != nil {
			serverDone <- fmt.Errorf("web server error: %w", err)
			return
		}
		serverDone <- nil
	}()

	app.logger.Info("vmscout ready")

	var runErr error
	select {
	case <-ctx.Done():
		app.logger.Info("termination signal received")
		runErr = <-serverDone
	case runErr = <-serverDone:
	}

	cancel()
	app.Jobs.Wait()

	if err := app.cleanup(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// scheduledSyncs is the periodic refresh: KEV first, then the last SyncDays of NVD.
func (app *Application) scheduledSyncs() []jobs.Scheduled {
	days := app.Config.SyncDays
	return []jobs.Scheduled{
		{Kind: domain.JobSyncKEV, Fn: func(ctx context.Context) (interface{}, error) {
			return app.Feeds.SyncKnownExploited(ctx)
		}},
		{Kind: domain.JobSyncNVD, Fn: func(ctx context.Context) (interface{}, error) {
			return app.Feeds.SyncVulnerabilities(ctx, days)
		}},
	}
}

// Close releases the store.
func (app *Application) Close() error {
	return app.cleanup()
}

func (app *Application) cleanup() error {
	if app.Store == nil {
		return nil
	}
	app.logger.Info("cleaning up resources")
	err := app.Store.Close()
	app.Store = nil
	return err
}
