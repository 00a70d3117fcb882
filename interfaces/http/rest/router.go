// Package rest wires the read-only HTTP API: narratives, timelines, health,
// and metrics. All mutation happens through the worker's detection and dedup
// cycles, never through HTTP.
package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"pulse-backend/application/ports"
	"pulse-backend/infrastructure/observability"
	"pulse-backend/interfaces/http/rest/handlers"
	"pulse-backend/interfaces/http/rest/middleware"
)

// Router creates and configures the HTTP router.
type Router struct {
	narrativeRepo ports.NarrativeRepository
	metrics       *observability.Collector
	logger        *zap.Logger
}

// NewRouter creates a new router instance.
func NewRouter(narrativeRepo ports.NarrativeRepository, metrics *observability.Collector, logger *zap.Logger) *Router {
	return &Router{
		narrativeRepo: narrativeRepo,
		metrics:       metrics,
		logger:        logger,
	}
}

// Setup configures all routes and middleware.
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID())
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)
	router.Method(http.MethodGet, "/metrics",
		promhttp.HandlerFor(rt.metrics.GetRegistry(), promhttp.HandlerOpts{}))

	router.Route("/api/v1", func(r chi.Router) {
		narrativeHandler := handlers.NewNarrativeHandler(rt.narrativeRepo, rt.logger)
		r.Route("/narratives", func(r chi.Router) {
			r.Get("/", narrativeHandler.ListNarratives)
			r.Get("/{narrativeID}", narrativeHandler.GetNarrative)
			r.Get("/{narrativeID}/timeline", narrativeHandler.GetTimeline)
		})
	})

	return router
}

func (rt *Router) healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy","version":"v1"}`))
}

func (rt *Router) readinessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}
