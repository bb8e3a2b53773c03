package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/damon-houk/fx-route-engine/internal/domain/entity"
	"github.com/damon-houk/fx-route-engine/internal/domain/repository"
	"github.com/damon-houk/fx-route-engine/internal/infrastructure/logger"
	"github.com/damon-houk/fx-route-engine/internal/infrastructure/middleware"
	"github.com/shopspring/decimal"
)

const (
	urgentMaxTime    = 24 * time.Hour
	economyCostRatio = 0.01
)

// RouteRecommendation is the best route for a payment plus the ranked
// alternatives
type RouteRecommendation struct {
	Corridor     entity.Corridor      `json:"corridor"`
	Amount       float64              `json:"amount"`
	Currency     string               `json:"currency"`
	Urgency      entity.Urgency       `json:"urgency"`
	Recommended  entity.ScoredRoute   `json:"recommended"`
	Alternatives []entity.ScoredRoute `json:"alternatives"`
	// Savings is the cost of the most expensive option minus the recommended one
	Savings float64 `json:"savings"`
}

// RouteService selects payment routes and records their outcomes
type RouteService struct {
	routes      repository.RouteOptionProvider
	performance repository.RoutePerformanceRepository
	scorer      *RouteScorer
	timeout     time.Duration
	logger      logger.Logger
}

// NewRouteService creates a route service
func NewRouteService(routes repository.RouteOptionProvider, performance repository.RoutePerformanceRepository, scorer *RouteScorer, timeout time.Duration, log logger.Logger) *RouteService {
	if log == nil {
		log = logger.GetDefaultLogger()
	}
	if scorer == nil {
		scorer = NewRouteScorer(performance, DefaultHistoryScore, timeout, log)
	}
	return &RouteService{
		routes:      routes,
		performance: performance,
		scorer:      scorer,
		timeout:     timeout,
		logger:      log,
	}
}

// OptimizePaymentRoute picks the best route through the corridor for the
// given amount, narrowed by urgency
func (s *RouteService) OptimizePaymentRoute(ctx context.Context, corridor entity.Corridor, amount float64, currency string, urgency entity.Urgency) (*RouteRecommendation, error) {
	requestID := middleware.GetRequestID(ctx)

	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return nil, entity.ErrInvalidAmount
	}
	currency, err := entity.NormalizeCurrency(currency)
	if err != nil {
		return nil, err
	}
	corridor = entity.Corridor{
		FromCountry: strings.ToUpper(strings.TrimSpace(corridor.FromCountry)),
		ToCountry:   strings.ToUpper(strings.TrimSpace(corridor.ToCountry)),
	}
	if urgency == "" {
		urgency = entity.UrgencyStandard
	}

	options, err := callWithTimeout(ctx, s.timeout, func(c context.Context) ([]entity.RouteOption, error) {
		return s.routes.ListRoutes(c, corridor.FromCountry, corridor.ToCountry, amount, currency)
	})
	if err != nil {
		s.logger.Error("Failed to list routes", map[string]interface{}{
			"request_id": requestID,
			"corridor":   corridor.String(),
			"error":      err.Error(),
		})
		return nil, fmt.Errorf("failed to list routes for %s: %w", corridor, err)
	}
	if len(options) == 0 {
		return nil, fmt.Errorf("%w for %s", entity.ErrNoRoutes, corridor)
	}

	candidates := filterByUrgency(options, amount, urgency)
	ranked, err := s.scorer.RankRoutes(ctx, corridor, candidates, amount)
	if err != nil {
		return nil, err
	}

	rec := &RouteRecommendation{
		Corridor:     corridor,
		Amount:       amount,
		Currency:     currency,
		Urgency:      urgency,
		Recommended:  ranked[0],
		Alternatives: ranked[1:],
		Savings:      routeSavings(options, ranked[0].Route),
	}

	s.logger.Info("Payment route selected", map[string]interface{}{
		"request_id":   requestID,
		"corridor":     corridor.String(),
		"provider":     rec.Recommended.Route.Provider,
		"score":        rec.Recommended.Score,
		"risk":         string(rec.Recommended.Risk),
		"candidates":   len(candidates),
		"urgency":      string(urgency),
		"savings":      rec.Savings,
		"alternatives": len(rec.Alternatives),
	})

	return rec, nil
}

// RecordOutcome feeds a delivery result back into the route history
func (s *RouteService) RecordOutcome(ctx context.Context, provider string, corridor entity.Corridor, success bool) error {
	if s.performance == nil {
		return fmt.Errorf("route performance tracking is not configured")
	}
	if strings.TrimSpace(provider) == "" {
		return fmt.Errorf("provider is required")
	}
	corridor = entity.Corridor{
		FromCountry: strings.ToUpper(strings.TrimSpace(corridor.FromCountry)),
		ToCountry:   strings.ToUpper(strings.TrimSpace(corridor.ToCountry)),
	}

	if err := s.performance.RecordOutcome(ctx, provider, corridor, success); err != nil {
		s.logger.Error("Failed to record route outcome", map[string]interface{}{
			"request_id": middleware.GetRequestID(ctx),
			"provider":   provider,
			"corridor":   corridor.String(),
			"error":      err.Error(),
		})
		return fmt.Errorf("failed to record route outcome: %w", err)
	}
	return nil
}

// filterByUrgency keeps the routes matching the urgency, or all of them when
// none match
func filterByUrgency(routes []entity.RouteOption, amount float64, urgency entity.Urgency) []entity.RouteOption {
	var keep func(entity.RouteOption) bool
	switch urgency {
	case entity.UrgencyUrgent:
		keep = func(r entity.RouteOption) bool { return r.EstimatedTime <= urgentMaxTime }
	case entity.UrgencyEconomy:
		keep = func(r entity.RouteOption) bool { return r.EstimatedCost/amount <= economyCostRatio }
	default:
		return routes
	}

	filtered := make([]entity.RouteOption, 0, len(routes))
	for _, r := range routes {
		if keep(r) {
			filtered = append(filtered, r)
		}
	}
	if len(filtered) == 0 {
		return routes
	}
	return filtered
}

func routeSavings(options []entity.RouteOption, chosen entity.RouteOption) float64 {
	highest := chosen.EstimatedCost
	for _, o := range options {
		if o.EstimatedCost > highest {
			highest = o.EstimatedCost
		}
	}
	savings, _ := decimal.NewFromFloat(highest).
		Sub(decimal.NewFromFloat(chosen.EstimatedCost)).
		Round(2).
		Float64()
	return savings
}
