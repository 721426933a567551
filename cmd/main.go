package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/pulse/internal/adapters/geo"
	"github.com/okian/pulse/internal/adapters/http/api"
	"github.com/okian/pulse/internal/adapters/http/site"
	"github.com/okian/pulse/internal/adapters/http/swagger"
	"github.com/okian/pulse/internal/adapters/repository"
	app "github.com/okian/pulse/internal/app"
	"github.com/okian/pulse/internal/config"
	"github.com/okian/pulse/internal/domain/window"
	"github.com/okian/pulse/pkg/logger"
	"github.com/okian/pulse/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 60 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	startupTimeout            = 15 * time.Second
	systemMetricsInterval     = 10 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() { _ = logger.Sync() }()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	if cfg.LogFormat != logger.FormatText {
		if err := logger.InitWithFormat(cfg.LogFormat, os.Stdout); err != nil {
			os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
			return
		}
	}
	metrics.Configure(
		metrics.WithNamespace(cfg.MetricsNamespace),
		metrics.WithSubsystem(cfg.MetricsSubsystem),
		metrics.WithHistogramBuckets(cfg.MetricsBucketsMS),
		metrics.WithConstLabels(cfg.MetricsLabels),
	)
	loggerInstance := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	startCtx, cancelStart := context.WithTimeout(ctx, startupTimeout)
	svc, err := buildService(startCtx, cfg, loggerInstance)
	cancelStart()
	if err != nil {
		loggerInstance.Error(ctx, "failed to build service", logger.Error(err))
		return
	}
	if err := svc.Start(ctx); err != nil {
		loggerInstance.Error(ctx, "failed to start service", logger.Error(err))
		return
	}
	defer svc.Stop()

	go startSystemMetricsUpdater(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(ctx, cfg, svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		loggerInstance.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr), logger.String("store", svc.StoreName()))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			loggerInstance.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	loggerInstance.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	loggerInstance.Info(ctx, "server stopped")
}

// buildService wires the store and the geolocation resolver chosen by cfg into a Service.
func buildService(ctx context.Context, cfg *config.Config, log logger.Logger) (*app.Service, error) {
	opts := []app.Option{
		app.WithLogger(log),
		app.WithHeatmapOffset(time.Duration(cfg.HeatmapOffsetHours) * time.Hour),
		app.WithRecentLimit(cfg.RecentActivityLimit),
		app.WithGeoLimit(cfg.GeoBatchLimit),
		app.WithQueryTimeout(time.Duration(cfg.QueryTimeoutMS) * time.Millisecond),
	}

	store, closer, err := buildStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	opts = append(opts, app.WithStore(store), app.WithCloser(closer))

	resolver, closer, err := buildResolver(ctx, cfg, log)
	if err != nil {
		if store, ok := store.(io.Closer); ok {
			_ = store.Close()
		}
		return nil, err
	}
	opts = append(opts, app.WithResolver(resolver), app.WithCloser(closer))

	return app.New(opts...), nil
}

// buildStore returns the configured event store and, when it holds resources, its closer.
func buildStore(ctx context.Context, cfg *config.Config, log logger.Logger) (repository.Store, io.Closer, error) {
	storeLog := log.Named("store")
	switch kind := cfg.ResolveStore(); kind {
	case config.StorePostgres:
		db, err := repository.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		store := repository.NewPostgresStore(db, repository.WithLogger(storeLog))
		return store, store, nil
	case config.StorePostgREST:
		if !cfg.BackendConfigured() {
			log.Warn(ctx, "backend credentials missing or malformed; serving empty results")
			return repository.NewDisabledStore(), nil, nil
		}
		return repository.NewPostgRESTStore(cfg.BackendURL, cfg.BackendKey,
			repository.WithLogger(storeLog),
			repository.WithPageSize(cfg.PageSize),
		), nil, nil
	default:
		log.Warn(ctx, "no backend configured; serving empty results", logger.String("store", kind))
		return repository.NewDisabledStore(), nil, nil
	}
}

// buildResolver returns the geolocation client behind the configured cache.
func buildResolver(ctx context.Context, cfg *config.Config, log logger.Logger) (geo.Resolver, io.Closer, error) {
	geoLog := log.Named("geo")
	client := geo.NewClient(
		geo.WithEndpoint(cfg.GeoEndpoint),
		geo.WithBatchLimit(cfg.GeoBatchLimit),
		geo.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.GeoTimeoutMS) * time.Millisecond}),
		geo.WithLogger(geoLog),
	)
	ttl := time.Duration(cfg.GeoCacheTTLSeconds) * time.Second

	if cfg.RedisURL != "" {
		cache, err := geo.NewRedisCache(cfg.RedisURL, ttl)
		if err != nil {
			return nil, nil, err
		}
		pingErr := cache.Ping(ctx)
		if pingErr == nil {
			return geo.NewCachedResolver(client, cache, geoLog), cache, nil
		}
		_ = cache.Close()
		geoLog.Warn(ctx, "redis geolocation cache unreachable; falling back", logger.Error(pingErr))
	}

	switch {
	case cfg.GeoCacheSize > 0:
		return geo.NewCachedResolver(client, geo.NewLRUCache(cfg.GeoCacheSize, ttl), geoLog), nil, nil
	default:
		return client, nil, nil
	}
}

// newMux registers the API, the API reference and the dashboard front-end.
func newMux(ctx context.Context, cfg *config.Config, svc *app.Service) *http.ServeMux {
	windows := window.NewParser(
		window.WithAllowedDays(cfg.AllowedWindowDays),
		window.WithDefaultDays(cfg.DefaultWindowDays),
	)

	mux := http.NewServeMux()
	api.NewServer(svc, windows).Register(ctx, mux)
	swagger.Register(ctx, mux)
	site.Register(ctx, mux)
	return mux
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)

	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
