package api

import (
	"net/http"

	"xof_converter/internal/api/middleware"
	"xof_converter/internal/domain"
	"xof_converter/internal/infra"
	"xof_converter/internal/service"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps are the services the HTTP surface is built on
type Deps struct {
	Resolver       *service.RateResolver
	Catalog        *domain.Catalog
	Favorites      *service.FavoritesStore
	Comparison     *service.ComparisonService
	Historical     *service.HistoricalService
	Preferences    *service.PreferenceService
	Health         HealthChecker
	Metrics        *infra.Metrics
	Session        SessionConfig
	IconsDir       string
	AllowedOrigins []string
}

// NewRouter creates and configures the HTTP router
func NewRouter(deps Deps) http.Handler {
	if deps.Metrics == nil {
		deps.Metrics = infra.GlobalMetrics
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.NewCORS(deps.AllowedOrigins).Handler)

	h := NewHandler(deps)
	var favorites favoritesSource
	if deps.Favorites != nil {
		favorites = deps.Favorites
	}
	hub := NewHub(deps.Resolver, deps.Catalog, favorites, deps.Metrics, deps.Session)

	r.Route("/api", func(r chi.Router) {
		r.Get("/currencies", h.Currencies)
		r.Get("/convert", h.Convert)
		r.Get("/compare", h.Compare)
		r.Get("/historical-rates", h.HistoricalRates)

		r.Route("/favorites", func(r chi.Router) {
			r.Get("/", h.ListFavorites)
			r.Post("/", h.SaveFavorite)
			r.Delete("/{id}", h.DeleteFavorite)
		})

		r.Route("/preferences", func(r chi.Router) {
			r.Get("/theme", h.GetTheme)
			r.Put("/theme", h.PutTheme)
		})

		r.Route("/system", func(r chi.Router) {
			r.Get("/health", h.Health)
		})
	})

	r.Get("/ws", hub.ServeWS)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		deps.Metrics,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	if deps.IconsDir != "" {
		r.Handle("/icons/*", http.StripPrefix("/icons/", http.FileServer(http.Dir(deps.IconsDir))))
	}

	return r
}
