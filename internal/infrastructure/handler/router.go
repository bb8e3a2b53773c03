package handler

import (
	"net/http"

	"github.com/damon-houk/fx-route-engine/internal/infrastructure/logger"
	"github.com/damon-houk/fx-route-engine/internal/infrastructure/metrics"
	"github.com/damon-houk/fx-route-engine/internal/infrastructure/middleware"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouteRegistrar is implemented by every handler that mounts routes
type RouteRegistrar interface {
	RegisterRoutes(router *mux.Router)
}

// NewRouter builds the service router with the request ID, logging and
// metrics middleware, the health probe, the metrics endpoint and the given
// handlers' routes. A nil gatherer serves the default Prometheus registry.
func NewRouter(log logger.Logger, rec *metrics.Recorder, gatherer prometheus.Gatherer, handlers ...RouteRegistrar) *mux.Router {
	if log == nil {
		log = logger.GetDefaultLogger()
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	router := mux.NewRouter()
	router.Use(middleware.RequestIDMiddleware)
	router.Use(middleware.LoggingMiddleware(log))
	router.Use(middleware.MetricsMiddleware(rec))

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		sendJSON(w, log, http.StatusOK, HealthResponse{Status: "ok"}, middleware.GetRequestID(r.Context()))
	}).Methods("GET")
	router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods("GET")

	for _, h := range handlers {
		h.RegisterRoutes(router)
	}

	return router
}
