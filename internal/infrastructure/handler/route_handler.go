package handler

import (
	"net/http"

	"github.com/damon-houk/fx-route-engine/internal/application/service"
	"github.com/damon-houk/fx-route-engine/internal/domain/entity"
	"github.com/damon-houk/fx-route-engine/internal/infrastructure/logger"
	"github.com/damon-houk/fx-route-engine/internal/infrastructure/middleware"
	"github.com/gorilla/mux"
)

// RouteHandler handles HTTP requests for payment route selection
type RouteHandler struct {
	routes *service.RouteService
	batch  *service.BatchOptimizer
	logger logger.Logger
}

// NewRouteHandler creates a new route handler
func NewRouteHandler(routes *service.RouteService, batch *service.BatchOptimizer, log logger.Logger) *RouteHandler {
	if log == nil {
		log = logger.GetDefaultLogger()
	}

	return &RouteHandler{
		routes: routes,
		batch:  batch,
		logger: log,
	}
}

// OptimizeRoute selects the best route for a single payment
func (h *RouteHandler) OptimizeRoute(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var req OptimizeRouteRequest
	if err := decodeAndValidate(r, &req); err != nil {
		h.logger.Warn("Invalid route request", map[string]interface{}{
			"request_id": requestID,
			"error":      err.Error(),
		})
		sendErrorResponse(w, h.logger, "Invalid request body", validationDescription(err), http.StatusBadRequest, requestID)
		return
	}

	corridor := entity.Corridor{FromCountry: req.FromCountry, ToCountry: req.ToCountry}
	recommendation, err := h.routes.OptimizePaymentRoute(r.Context(), corridor, req.Amount, req.Currency, entity.Urgency(req.Urgency))
	if err != nil {
		sendServiceError(w, h.logger, err, requestID)
		return
	}

	sendJSON(w, h.logger, http.StatusOK, recommendation, requestID)
}

// OptimizeBatch selects routes for a batch of payments. Item failures are
// reported inside the result, so the status is 200 whenever the body is valid.
func (h *RouteHandler) OptimizeBatch(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var req OptimizeBatchRequest
	if err := decodeAndValidate(r, &req); err != nil {
		h.logger.Warn("Invalid batch request", map[string]interface{}{
			"request_id": requestID,
			"error":      err.Error(),
		})
		sendErrorResponse(w, h.logger, "Invalid request body", validationDescription(err), http.StatusBadRequest, requestID)
		return
	}

	payments := make([]entity.PaymentRequest, len(req.Payments))
	for i, p := range req.Payments {
		payments[i] = entity.PaymentRequest{
			ID:             p.ID,
			FromCountry:    p.FromCountry,
			ToCountry:      p.ToCountry,
			Amount:         p.Amount,
			Currency:       p.Currency,
			TargetCurrency: p.TargetCurrency,
			Urgency:        entity.Urgency(p.Urgency),
		}
	}

	result := h.batch.OptimizeBatch(r.Context(), payments)
	sendJSON(w, h.logger, http.StatusOK, result, requestID)
}

// RecordOutcome feeds a delivery result into the provider's route history
func (h *RouteHandler) RecordOutcome(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var req RouteOutcomeRequest
	if err := decodeAndValidate(r, &req); err != nil {
		sendErrorResponse(w, h.logger, "Invalid request body", validationDescription(err), http.StatusBadRequest, requestID)
		return
	}

	corridor := entity.Corridor{FromCountry: req.FromCountry, ToCountry: req.ToCountry}
	if err := h.routes.RecordOutcome(r.Context(), req.Provider, corridor, *req.Success); err != nil {
		sendServiceError(w, h.logger, err, requestID)
		return
	}

	h.logger.Info("Route outcome recorded", map[string]interface{}{
		"request_id": requestID,
		"provider":   req.Provider,
		"corridor":   corridor.String(),
		"success":    *req.Success,
	})
	w.WriteHeader(http.StatusNoContent)
}

// RegisterRoutes registers the route handler routes
func (h *RouteHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/routes/optimize", h.OptimizeRoute).Methods("POST")
	router.HandleFunc("/routes/batch", h.OptimizeBatch).Methods("POST")
	router.HandleFunc("/routes/outcomes", h.RecordOutcome).Methods("POST")

	h.logger.Info("Route routes registered", map[string]interface{}{
		"routes": []string{
			"POST /routes/optimize",
			"POST /routes/batch",
			"POST /routes/outcomes",
		},
	})
}
