package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/vadim/glance/internal/config"
	httpcontroller "github.com/vadim/glance/internal/controller/http"
	"github.com/vadim/glance/internal/database"
	"github.com/vadim/glance/internal/domain/analytics/cache"
	"github.com/vadim/glance/internal/domain/analytics/dao"
	"github.com/vadim/glance/internal/domain/analytics/entity"
	"github.com/vadim/glance/internal/domain/analytics/policy"
	"github.com/vadim/glance/internal/domain/analytics/scheduler"
	"github.com/vadim/glance/internal/domain/analytics/service"
	"github.com/vadim/glance/internal/httpx/auth"
	"github.com/vadim/glance/internal/httpx/response"
	"github.com/vadim/glance/internal/observability"
	"github.com/vadim/glance/internal/storage"
)

// App is the main application container
type App struct {
	cfg        config.Config
	httpServer *http.Server
	router     *chi.Mux
	logger     *slog.Logger

	// Infrastructure
	pg      *pgxpool.Pool
	cache   *cache.ReportCache
	metrics *observability.Metrics

	// Domain policies (interfaces for HTTP handlers)
	analyticsPolicy *policy.Policy
	verifier        *auth.Verifier

	// Scheduler for exporting report snapshots
	scheduler *scheduler.Scheduler
}

// NewApp creates and initializes the application
func NewApp(ctx context.Context, cfg config.Config) (*App, error) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.Log.SlogLevel(),
	}))

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(registry)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(metrics.Middleware)
	r.Use(middleware.Timeout(30 * time.Second))

	app := &App{
		cfg:     cfg,
		router:  r,
		logger:  logger,
		metrics: metrics,
	}

	if err := app.initInfrastructure(ctx); err != nil {
		return nil, fmt.Errorf("initializing infrastructure: %w", err)
	}

	if err := app.initDomains(ctx); err != nil {
		app.closeInfrastructure()
		return nil, fmt.Errorf("initializing domains: %w", err)
	}

	app.registerRoutes()

	app.httpServer = &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      app.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return app, nil
}

// initInfrastructure connects to Postgres and, when configured, Redis
func (a *App) initInfrastructure(ctx context.Context) error {
	if a.cfg.Database.PostgresDSN == "" {
		return errors.New("DATABASE_URL is required")
	}
	if a.cfg.Auth.JWTSecret == "" {
		return errors.New("AUTH_JWT_SECRET is required")
	}

	pool, err := database.NewPostgresPool(ctx, a.cfg.Database)
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	a.pg = pool

	if a.cfg.Redis.URL != "" {
		rc, err := cache.NewReportCache(ctx, cache.Config{
			URL:      a.cfg.Redis.URL,
			PoolSize: a.cfg.Redis.PoolSize,
			TTL:      a.cfg.Analytics.CacheTTL,
		})
		if err != nil {
			a.pg.Close()
			return fmt.Errorf("connecting to redis: %w", err)
		}
		a.cache = rc
	} else {
		a.logger.Info("report cache disabled: REDIS_URL is not set")
	}

	return nil
}

// initDomains initializes domain layers (DAO, Service, Policy)
func (a *App) initDomains(ctx context.Context) error {
	widgetRepo := dao.NewWidgetPostgres(a.pg)
	eventRepo := dao.NewEventPostgres(a.pg)
	userRepo := dao.NewUserPostgres(a.pg)
	memberRepo := dao.NewMemberPostgres(a.pg)

	analyticsService := service.New(widgetRepo, eventRepo, userRepo)

	reportStore := storage.NewS3Storage(storage.S3Config{
		Endpoint:        a.cfg.S3.Endpoint,
		AccessKeyID:     a.cfg.S3.AccessKeyID,
		SecretAccessKey: a.cfg.S3.SecretAccessKey,
		Bucket:          a.cfg.S3.Bucket,
		Region:          a.cfg.S3.Region,
		PublicURL:       a.cfg.S3.PublicURL,
	})

	policyCfg := policy.Config{
		Store:        reportStore,
		ExportPeriod: entity.ParsePeriod(a.cfg.Analytics.ExportPeriod),
	}
	if a.cache != nil {
		policyCfg.Cache = a.cache
	}

	a.analyticsPolicy = policy.New(analyticsService, memberRepo, a.metrics, a.logger, policyCfg)
	a.verifier = auth.NewVerifier(a.cfg.Auth.JWTSecret, a.cfg.Auth.Audience)

	if a.cfg.Scheduler.Enabled {
		a.scheduler = scheduler.New(widgetRepo, a.analyticsPolicy, scheduler.Config{
			Interval:  a.cfg.Scheduler.Interval,
			BatchSize: a.cfg.Scheduler.BatchSize,
		}, a.logger)
	}

	return nil
}

// registerRoutes registers all HTTP routes
func (a *App) registerRoutes() {
	a.router.Get("/healthz", a.healthHandler)
	a.router.Get("/readyz", a.readyHandler)
	a.router.Method(http.MethodGet, "/metrics", a.metrics.Handler())

	swaggerHandler := httpcontroller.NewSwaggerHandler("Glance Analytics API", OpenAPISpec)
	swaggerHandler.RegisterRoutes(a.router)

	a.router.Route("/api/v1", func(r chi.Router) {
		r.Use(a.verifier.Middleware)

		analyticsHandler := httpcontroller.NewAnalyticsHandler(a.analyticsPolicy)
		analyticsHandler.RegisterRoutes(r)
	})
}

func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	response.OK(w, map[string]string{"status": "ok"})
}

// readyHandler reports ready only when the backing stores answer
func (a *App) readyHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := a.pg.Ping(ctx); err != nil {
		a.logger.Warn("readiness check failed", "dependency", "postgres", "error", err)
		response.ServiceUnavailable(w, "database unavailable")
		return
	}
	if a.cache != nil {
		if err := a.cache.Ping(ctx); err != nil {
			a.logger.Warn("readiness check failed", "dependency", "redis", "error", err)
			response.ServiceUnavailable(w, "cache unavailable")
			return
		}
	}

	response.OK(w, map[string]string{"status": "ready"})
}

// Run starts the application and blocks until shutdown signal
func (a *App) Run(ctx context.Context) error {
	if a.scheduler != nil {
		a.scheduler.Start(ctx)
	}

	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server", "addr", a.cfg.Server.Address())
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		a.closeInfrastructure()
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.logger.Info("received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		a.logger.Info("context cancelled")
	}

	return a.Shutdown(context.Background())
}

// Shutdown gracefully shuts down the application
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down...")

	if a.scheduler != nil {
		a.scheduler.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down HTTP server: %w", err)
	}

	a.closeInfrastructure()

	a.logger.Info("shutdown complete")
	return nil
}

func (a *App) closeInfrastructure() {
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Warn("closing redis", "error", err)
		}
	}
	if a.pg != nil {
		a.pg.Close()
	}
}
