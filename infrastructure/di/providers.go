package di

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"sitemap-sync/application/ports"
	"sitemap-sync/application/store"
	"sitemap-sync/infrastructure/config"
	"sitemap-sync/infrastructure/http/sitemapapi"
	"sitemap-sync/interfaces/http/rest"
	"sitemap-sync/pkg/observability"
)

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	if cfg.LogLevel != "" {
		level, err := zapcore.ParseLevel(strings.ToLower(cfg.LogLevel))
		if err != nil {
			return nil, err
		}
		zapCfg.Level = zap.NewAtomicLevelAt(level)
	}

	return zapCfg.Build()
}

// ProvideMetrics creates the metrics collector
func ProvideMetrics(cfg *config.Config) *observability.Collector {
	if !cfg.EnableMetrics {
		return nil
	}
	return observability.NewCollector("sitemap_sync")
}

// ProvideTracing installs the OTLP tracer provider when tracing is enabled.
// The cleanup flushes pending spans.
func ProvideTracing(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*observability.TracerProvider, func(), error) {
	if !cfg.EnableTracing {
		return nil, func() {}, nil
	}
	tp, err := observability.InitTracing(ctx, "sitemap-sync", cfg.Environment, cfg.OTLPEndpoint)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("Tracing enabled", zap.String("endpoint", cfg.OTLPEndpoint))
	cleanup := func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			logger.Error("Failed to shut down tracer provider", zap.Error(err))
		}
	}
	return tp, cleanup, nil
}

// ProvideSitemapClient creates the backend client
func ProvideSitemapClient(cfg *config.Config, logger *zap.Logger, metrics *observability.Collector) ports.SitemapClient {
	return sitemapapi.NewClient(sitemapapi.Options{
		BaseURL:     cfg.BackendBaseURL,
		Timeout:     cfg.BackendTimeout,
		MaxFailures: cfg.BreakerMaxFailures,
		OpenTimeout: cfg.BreakerOpenTimeout,
	}, logger, metrics)
}

// ProvideSessionRegistry creates the per-target session registry. The
// cleanup closes every open session.
func ProvideSessionRegistry(cfg *config.Config, client ports.SitemapClient, logger *zap.Logger, metrics *observability.Collector) (*store.SessionRegistry, func()) {
	sessions := store.NewSessionRegistry(client, cfg.Domain, logger, metrics)
	return sessions, sessions.CloseAll
}

// ProvideConfigWatcher starts hot reloading of the domain config file when
// enabled and pushes every valid change into the open sessions
func ProvideConfigWatcher(cfg *config.Config, sessions *store.SessionRegistry, logger *zap.Logger) (*config.Watcher, func(), error) {
	if !cfg.WatchConfig {
		return nil, func() {}, nil
	}
	watcher, err := config.NewWatcher(cfg.DomainConfigFile, cfg.Domain, logger.Named("config"))
	if err != nil {
		return nil, nil, err
	}
	watcher.OnChange(sessions.Configure)
	return watcher, watcher.Stop, nil
}

// ProvideRouter creates the HTTP router
func ProvideRouter(cfg *config.Config, sessions *store.SessionRegistry, metrics *observability.Collector, logger *zap.Logger) *rest.Router {
	return rest.NewRouter(cfg, sessions, metrics, logger)
}
