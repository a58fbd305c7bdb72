// Package httpapi is the REST surface of the matching service.
//
// Job routes expect an x-user-id header forwarded by the gateway. The
// booking-flow helpers (/estimates, /places, /service-area) do not.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Version is reported by /health.
const Version = "1.0.0"

// NewRouter mounts every route. gatherer backs /metrics; nil uses the default
// registry.
func NewRouter(jobs *JobsHandler, tools *ToolsHandler, gatherer prometheus.Gatherer) http.Handler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", healthHandler)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/jobs", jobs.Routes)

	r.Post("/estimates", tools.estimate)
	r.Get("/places/autocomplete", tools.autocomplete)
	r.Get("/places/{id}", tools.placeDetails)
	r.Post("/service-area/check", tools.checkArea)

	return r
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	jsonOK(w, map[string]string{
		"status":  "ok",
		"service": "helpr-matching",
		"version": Version,
	})
}
