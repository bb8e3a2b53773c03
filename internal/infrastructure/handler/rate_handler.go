package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/damon-houk/fx-route-engine/internal/application/service"
	"github.com/damon-houk/fx-route-engine/internal/domain/entity"
	"github.com/damon-houk/fx-route-engine/internal/infrastructure/logger"
	"github.com/damon-houk/fx-route-engine/internal/infrastructure/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

const defaultQuoteSource = "manual"

// RateHandler handles HTTP requests for rates, conversions and quotes
type RateHandler struct {
	resolver    *service.RateResolver
	conversions *service.ConversionService
	quotes      *service.QuoteService
	logger      logger.Logger
}

// NewRateHandler creates a new rate handler
func NewRateHandler(resolver *service.RateResolver, conversions *service.ConversionService, quotes *service.QuoteService, log logger.Logger) *RateHandler {
	if log == nil {
		log = logger.GetDefaultLogger()
	}

	return &RateHandler{
		resolver:    resolver,
		conversions: conversions,
		quotes:      quotes,
		logger:      log,
	}
}

// GetRate resolves the rate for a currency pair
func (h *RateHandler) GetRate(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	vars := mux.Vars(r)

	h.logger.Info("Handling get rate request", map[string]interface{}{
		"request_id": requestID,
		"base":       vars["base"],
		"quote":      vars["quote"],
	})

	resolution, err := h.resolver.Resolve(r.Context(), vars["base"], vars["quote"])
	if err != nil {
		sendServiceError(w, h.logger, err, requestID)
		return
	}

	resp := RateResponse{
		Base:       resolution.Pair.Base,
		Quote:      resolution.Pair.Quote,
		Rate:       resolution.Rate,
		Tier:       string(resolution.Tier),
		Sources:    resolution.Sources,
		Confidence: resolution.Confidence,
		ResolvedAt: resolution.ResolvedAt.UTC().Format(time.RFC3339),
	}
	sendJSON(w, h.logger, http.StatusOK, resp, requestID)
}

// GetEnhancedRate resolves a rate together with its prediction and timing advice
func (h *RateHandler) GetEnhancedRate(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	vars := mux.Vars(r)

	enhanced, err := h.conversions.GetEnhancedRate(r.Context(), vars["base"], vars["quote"])
	if err != nil {
		sendServiceError(w, h.logger, err, requestID)
		return
	}

	sendJSON(w, h.logger, http.StatusOK, enhanced, requestID)
}

// Convert handles GET /convert?amount=&from=&to=
func (h *RateHandler) Convert(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	query := r.URL.Query()

	from, to, rawAmount := query.Get("from"), query.Get("to"), query.Get("amount")
	if from == "" || to == "" || rawAmount == "" {
		h.logger.Warn("Missing conversion parameters", map[string]interface{}{
			"request_id": requestID,
			"from":       from,
			"to":         to,
			"amount":     rawAmount,
		})
		sendErrorResponse(w, h.logger, "Missing parameters",
			"The 'amount', 'from' and 'to' query parameters are required", http.StatusBadRequest, requestID)
		return
	}

	amount, err := strconv.ParseFloat(rawAmount, 64)
	if err != nil {
		sendErrorResponse(w, h.logger, "Invalid amount",
			"The 'amount' query parameter must be a number", http.StatusBadRequest, requestID)
		return
	}

	result, err := h.conversions.Convert(r.Context(), amount, from, to)
	if err != nil {
		sendServiceError(w, h.logger, err, requestID)
		return
	}

	sendJSON(w, h.logger, http.StatusOK, result, requestID)
}

// OptimizeConversions returns per-pair advice for a batch of planned conversions
func (h *RateHandler) OptimizeConversions(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var req OptimizeConversionsRequest
	if err := decodeAndValidate(r, &req); err != nil {
		h.logger.Warn("Invalid conversion batch", map[string]interface{}{
			"request_id": requestID,
			"error":      err.Error(),
		})
		sendErrorResponse(w, h.logger, "Invalid request body", validationDescription(err), http.StatusBadRequest, requestID)
		return
	}

	requests := make([]service.ConversionRequest, len(req.Conversions))
	for i, c := range req.Conversions {
		id := c.ID
		if id == "" {
			id = uuid.New().String()
		}
		requests[i] = service.ConversionRequest{ID: id, Amount: c.Amount, From: c.From, To: c.To}
	}

	recommendations := h.conversions.OptimizeBatchConversions(r.Context(), requests)
	sendJSON(w, h.logger, http.StatusOK, recommendations, requestID)
}

// StoreQuote publishes a rate quote for the direct quote tier
func (h *RateHandler) StoreQuote(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var req StoreQuoteRequest
	if err := decodeAndValidate(r, &req); err != nil {
		h.logger.Warn("Invalid quote", map[string]interface{}{
			"request_id": requestID,
			"error":      err.Error(),
		})
		sendErrorResponse(w, h.logger, "Invalid request body", validationDescription(err), http.StatusBadRequest, requestID)
		return
	}

	quote := &entity.RateQuote{
		Base:   req.Base,
		Quote:  req.Quote,
		Rate:   req.Rate,
		Source: req.Source,
		Active: true,
	}
	if quote.Source == "" {
		quote.Source = defaultQuoteSource
	}
	if req.ExpiresAt != nil {
		quote.ExpiresAt = req.ExpiresAt.UTC()
	}

	stored, err := h.quotes.StoreQuote(r.Context(), quote)
	if err != nil {
		sendServiceError(w, h.logger, err, requestID)
		return
	}

	resp := StoreQuoteResponse{
		ID:         stored.ID,
		ObservedAt: stored.ObservedAt.UTC().Format(time.RFC3339),
	}
	sendJSON(w, h.logger, http.StatusCreated, resp, requestID)
}

// ClearCache drops every cached rate
func (h *RateHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	h.resolver.ClearCache(r.Context())

	h.logger.Info("Rate cache cleared", map[string]interface{}{
		"request_id": middleware.GetRequestID(r.Context()),
	})
	w.WriteHeader(http.StatusNoContent)
}

// InvalidatePair drops the cached rate for one pair
func (h *RateHandler) InvalidatePair(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	vars := mux.Vars(r)

	pair, err := entity.NewCurrencyPair(vars["base"], vars["quote"])
	if err != nil {
		sendServiceError(w, h.logger, err, requestID)
		return
	}

	h.resolver.Invalidate(r.Context(), pair)
	w.WriteHeader(http.StatusNoContent)
}

// RegisterRoutes registers the rate handler routes
func (h *RateHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/rates/cache", h.ClearCache).Methods("DELETE")
	router.HandleFunc("/rates/cache/{base}/{quote}", h.InvalidatePair).Methods("DELETE")
	router.HandleFunc("/rates/{base}/{quote}", h.GetRate).Methods("GET")
	router.HandleFunc("/rates/{base}/{quote}/enhanced", h.GetEnhancedRate).Methods("GET")
	router.HandleFunc("/convert", h.Convert).Methods("GET")
	router.HandleFunc("/conversions/optimize", h.OptimizeConversions).Methods("POST")
	router.HandleFunc("/quotes", h.StoreQuote).Methods("POST")

	h.logger.Info("Rate routes registered", map[string]interface{}{
		"routes": []string{
			"DELETE /rates/cache",
			"DELETE /rates/cache/{base}/{quote}",
			"GET /rates/{base}/{quote}",
			"GET /rates/{base}/{quote}/enhanced",
			"GET /convert",
			"POST /conversions/optimize",
			"POST /quotes",
		},
	})
}
