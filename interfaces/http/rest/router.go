package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"sitemap-sync/application/store"
	"sitemap-sync/infrastructure/config"
	"sitemap-sync/interfaces/http/rest/handlers"
	"sitemap-sync/interfaces/http/rest/middleware"
	"sitemap-sync/pkg/errors"
	"sitemap-sync/pkg/observability"
)

// Router creates and configures the HTTP router
type Router struct {
	cfg      *config.Config
	sessions *store.SessionRegistry
	metrics  *observability.Collector
	logger   *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(
	cfg *config.Config,
	sessions *store.SessionRegistry,
	metrics *observability.Collector,
	logger *zap.Logger,
) *Router {
	return &Router{
		cfg:      cfg,
		sessions: sessions,
		metrics:  metrics,
		logger:   logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()
	errorHandler := errors.NewErrorHandler(rt.logger.Named("http"), rt.cfg.IsDevelopment())

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(errorHandler.Middleware)
	router.Use(middleware.Logger(rt.logger.Named("http"), rt.metrics))

	if rt.cfg.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   rt.cfg.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// Health check
	router.Get("/health", rt.healthCheck)
	if rt.cfg.EnableMetrics && rt.metrics != nil {
		router.Handle("/metrics", promhttp.HandlerFor(rt.metrics.GetRegistry(), promhttp.HandlerOpts{}))
	}

	sitemapHandler := handlers.NewSitemapHandler(rt.sessions, errorHandler, rt.logger)
	nodeHandler := handlers.NewNodeHandler(rt.sessions, errorHandler, rt.logger)

	router.Route("/api/v1/sitemaps", func(r chi.Router) {
		r.Get("/", sitemapHandler.ListSessions)

		r.Route("/{targetID}", func(r chi.Router) {
			r.Post("/load", sitemapHandler.Load)
			r.Get("/graph", sitemapHandler.GetGraph)
			r.Get("/state", sitemapHandler.GetState)
			r.Get("/pending", sitemapHandler.GetPending)
			r.Post("/undo", sitemapHandler.Undo)
			r.Post("/redo", sitemapHandler.Redo)
			r.Post("/save", sitemapHandler.Save)
			r.Post("/retry", sitemapHandler.Retry)
			r.Delete("/", sitemapHandler.CloseSession)

			// Node endpoints
			r.Post("/nodes", nodeHandler.CreateNode)
			r.Post("/nodes/delete", nodeHandler.DeleteNodes)
			r.Patch("/nodes/{nodeID}", nodeHandler.UpdateNode)
			r.Post("/nodes/{nodeID}/move", nodeHandler.MoveNode)

			// Edge endpoints
			r.Post("/connect", nodeHandler.Connect)
			r.Delete("/edges/{edgeID}", nodeHandler.Disconnect)

			// Canvas events
			r.Post("/changes", nodeHandler.ApplyChanges)
			r.Put("/selection", nodeHandler.SetSelection)
		})
	})

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"healthy"}`))
}
