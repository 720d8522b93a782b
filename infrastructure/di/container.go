package di

import (
	"go.uber.org/zap"

	"sitemap-sync/application/ports"
	"sitemap-sync/application/store"
	"sitemap-sync/infrastructure/config"
	"sitemap-sync/interfaces/http/rest"
	"sitemap-sync/pkg/observability"
)

// Container holds all application dependencies
type Container struct {
	Config   *config.Config
	Logger   *zap.Logger
	Metrics  *observability.Collector
	Tracing  *observability.TracerProvider
	Client   ports.SitemapClient
	Sessions *store.SessionRegistry
	Watcher  *config.Watcher
	Router   *rest.Router
}
