package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/yungbote/coursegraph-backend/internal/data/catalogfile"
	repo "github.com/yungbote/coursegraph-backend/internal/data/repos/integrity"
	server "github.com/yungbote/coursegraph-backend/internal/http"
	"github.com/yungbote/coursegraph-backend/internal/jobs/pipeline/catalog_audit"
	"github.com/yungbote/coursegraph-backend/internal/jobs/pipeline/content_reindex"
	"github.com/yungbote/coursegraph-backend/internal/observability"
	"github.com/yungbote/coursegraph-backend/internal/platform/logger"
	"github.com/yungbote/coursegraph-backend/internal/progress"
	"github.com/yungbote/coursegraph-backend/internal/realtime"
	"github.com/yungbote/coursegraph-backend/internal/realtime/bus"
)

type App struct {
	Log     *logger.Logger
	Cfg     Config
	Clients Clients
	Engine  *progress.Engine
	Jobs    Jobs
	Server  *server.Server
	Metrics *observability.Collector
	Hub     *realtime.Hub

	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
	wg           sync.WaitGroup
}

func New(ctx context.Context) (*App, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return NewWithConfig(ctx, log, cfg)
}

func NewWithConfig(ctx context.Context, log *logger.Logger, cfg Config) (*App, error) {
	otelShutdown := observability.InitOTel(ctx, log, cfg.Otel)

	var metrics *observability.Collector
	if cfg.MetricsEnabled {
		metrics = observability.NewCollector(cfg.ServiceName)
	}

	clients, err := wireClients(ctx, log, cfg, metrics)
	if err != nil {
		log.Sync()
		return nil, err
	}

	var reports repo.ReportRepo
	if db := clients.DB(); db != nil {
		reports = repo.NewReportRepo(db, log)
	}

	opts := []progress.Option{progress.WithConcurrency(cfg.ResolveConcurrency)}
	if metrics != nil {
		opts = append(opts, progress.WithRecorder(metrics))
	}
	engine := progress.NewEngine(clients.Source, log, opts...)

	jobs, err := wireJobs(log, clients, reports, metrics)
	if err != nil {
		clients.close(ctx, log)
		log.Sync()
		return nil, err
	}

	hub := realtime.NewHub(log)

	return &App{
		Log:          log,
		Cfg:          cfg,
		Clients:      clients,
		Engine:       engine,
		Jobs:         jobs,
		Server:       wireServer(log, cfg, clients, engine, reports, jobs, hub, metrics),
		Metrics:      metrics,
		Hub:          hub,
		otelShutdown: otelShutdown,
	}, nil
}

// Start launches the background work: the catalog watcher, startup jobs and the audit
// schedule. It does not block.
func (a *App) Start(ctx context.Context) error {
	if a == nil || a.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	if err := a.Clients.Bus.StartForwarder(ctx, a.Hub.Broadcast); err != nil {
		return fmt.Errorf("start event forwarder: %w", err)
	}

	if a.Clients.FileStore != nil && a.Cfg.CatalogWatch {
		w, err := catalogfile.NewWatcher(a.Cfg.CatalogFile, a.Log)
		if err != nil {
			return fmt.Errorf("watch catalog file: %w", err)
		}
		a.goBackground(func() {
			w.Run(ctx, func(f *catalogfile.File) { a.onCatalogReload(ctx, f) })
		})
	}

	if a.Cfg.StartupJobs {
		a.goBackground(func() { a.Jobs.Worker.RunAll(ctx) })
	}
	if a.Cfg.AuditInterval > 0 {
		a.goBackground(func() { a.Jobs.Worker.Every(ctx, catalog_audit.JobType, a.Cfg.AuditInterval) })
	}
	return nil
}

func (a *App) onCatalogReload(ctx context.Context, f *catalogfile.File) {
	if ctx.Err() != nil {
		return
	}
	a.Clients.FileStore.Replace(f)
	if ev, err := bus.NewEvent(bus.EventCatalogReloaded, map[string]int{
		"courses": len(f.Courses),
		"users":   len(f.Users),
	}); err == nil {
		if err := a.Clients.Bus.Publish(ctx, ev); err != nil {
			a.Log.Warn("publish catalog reload", "error", err)
		}
	}
	a.Jobs.Worker.RunOnce(ctx, catalog_audit.JobType, nil)
	a.Jobs.Worker.RunOnce(ctx, content_reindex.JobType, nil)
}

func (a *App) goBackground(fn func()) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		fn()
	}()
}

func (a *App) Run() error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	a.Log.Info("HTTP server listening", "port", a.Cfg.Port)
	return a.Server.Run()
}

// Close stops the server, waits for background work and releases every client.
func (a *App) Close(ctx context.Context) {
	if a == nil {
		return
	}
	if a.Hub != nil {
		a.Hub.CloseAll()
	}
	if a.Server != nil {
		if err := a.Server.Shutdown(ctx); err != nil {
			a.Log.Warn("HTTP shutdown", "error", err)
		}
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	a.wg.Wait()
	a.Clients.close(ctx, a.Log)
	if a.otelShutdown != nil {
		if err := a.otelShutdown(ctx); err != nil {
			a.Log.Warn("otel shutdown", "error", err)
		}
	}
	a.Log.Sync()
}
