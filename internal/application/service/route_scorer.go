package service

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/damon-houk/fx-route-engine/internal/domain/entity"
	"github.com/damon-houk/fx-route-engine/internal/domain/repository"
	"github.com/damon-houk/fx-route-engine/internal/infrastructure/logger"
	"github.com/damon-houk/fx-route-engine/internal/infrastructure/middleware"
)

// DefaultHistoryScore is used for a route with no recorded performance
const DefaultHistoryScore = 75.0

const (
	costWeight        = 0.30
	timeWeight        = 0.25
	reliabilityWeight = 0.20
	coverageWeight    = 0.15
	historyWeight     = 0.10

	timeHorizonHours = 72.0
	uncoveredScore   = 50.0
)

// RouteScorer ranks payment routes on cost, time, reliability, coverage and
// historical performance
type RouteScorer struct {
	performance    repository.RoutePerformanceRepository
	defaultHistory float64
	timeout        time.Duration
	logger         logger.Logger
}

// NewRouteScorer creates a scorer. performance may be nil, in which case
// every route gets the default history score.
func NewRouteScorer(performance repository.RoutePerformanceRepository, defaultHistory float64, timeout time.Duration, log logger.Logger) *RouteScorer {
	if defaultHistory <= 0 || defaultHistory > 100 {
		defaultHistory = DefaultHistoryScore
	}
	if log == nil {
		log = logger.GetDefaultLogger()
	}
	return &RouteScorer{
		performance:    performance,
		defaultHistory: defaultHistory,
		timeout:        timeout,
		logger:         log,
	}
}

// Score returns the composite score of a route in [0,100]
func (s *RouteScorer) Score(route entity.RouteOption, amount float64, destination string, historical float64) float64 {
	b := breakdown(route, amount, destination, historical)
	total := costWeight*b.Cost +
		timeWeight*b.Time +
		reliabilityWeight*b.Reliability +
		coverageWeight*b.Coverage +
		historyWeight*b.History
	return clamp(total, 0, 100)
}

// ScoreRoute scores a route and classifies its risk
func (s *RouteScorer) ScoreRoute(route entity.RouteOption, amount float64, destination string, historical float64) entity.ScoredRoute {
	return entity.ScoredRoute{
		Route:     route,
		Score:     s.Score(route, amount, destination, historical),
		Breakdown: breakdown(route, amount, destination, historical),
		Risk:      ClassifyRisk(route, amount, historical),
	}
}

// RankRoutes scores every route for the corridor, best first. Ties go to the
// cheaper route, then the faster one.
func (s *RouteScorer) RankRoutes(ctx context.Context, corridor entity.Corridor, routes []entity.RouteOption, amount float64) ([]entity.ScoredRoute, error) {
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return nil, entity.ErrInvalidAmount
	}
	if len(routes) == 0 {
		return nil, entity.ErrNoRoutes
	}

	scored := make([]entity.ScoredRoute, 0, len(routes))
	for _, route := range routes {
		history := s.historyScore(ctx, route.Provider, corridor)
		scored = append(scored, s.ScoreRoute(route, amount, corridor.ToCountry, history))
	}

	sort.SliceStable(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Route.EstimatedCost != b.Route.EstimatedCost {
			return a.Route.EstimatedCost < b.Route.EstimatedCost
		}
		return a.Route.EstimatedTime < b.Route.EstimatedTime
	})

	return scored, nil
}

// SelectBest returns the highest ranked route
func (s *RouteScorer) SelectBest(ctx context.Context, corridor entity.Corridor, routes []entity.RouteOption, amount float64) (*entity.ScoredRoute, error) {
	ranked, err := s.RankRoutes(ctx, corridor, routes, amount)
	if err != nil {
		return nil, err
	}
	best := ranked[0]
	return &best, nil
}

// historyScore falls back to the default on a miss, an error or a timeout
func (s *RouteScorer) historyScore(ctx context.Context, provider string, corridor entity.Corridor) float64 {
	if s.performance == nil {
		return s.defaultHistory
	}

	type lookup struct {
		score float64
		found bool
	}
	res, err := callWithTimeout(ctx, s.timeout, func(c context.Context) (lookup, error) {
		score, found, err := s.performance.Score(c, provider, corridor)
		return lookup{score: score, found: found}, err
	})
	if err != nil {
		s.logger.Warn("Route performance lookup failed", map[string]interface{}{
			"request_id": middleware.GetRequestID(ctx),
			"provider":   provider,
			"corridor":   corridor.String(),
			"error":      err.Error(),
		})
		return s.defaultHistory
	}
	if !res.found {
		return s.defaultHistory
	}
	return clamp(res.score, 0, 100)
}

func breakdown(route entity.RouteOption, amount float64, destination string, historical float64) entity.ScoreBreakdown {
	cost := 0.0
	if amount > 0 {
		cost = math.Max(0, 100-route.EstimatedCost/amount*100)
	}

	coverage := uncoveredScore
	if route.Covers(destination) {
		coverage = 100
	}

	return entity.ScoreBreakdown{
		Cost:        clamp(cost, 0, 100),
		Time:        clamp(100-route.EstimatedTime.Hours()/timeHorizonHours*100, 0, 100),
		Reliability: clamp(route.Reliability, 0, 1) * 100,
		Coverage:    coverage,
		History:     clamp(historical, 0, 100),
	}
}

// ClassifyRisk adds one penalty point per threshold crossed: 0 is low,
// 1-2 medium, 3 or more high
func ClassifyRisk(route entity.RouteOption, amount float64, historical float64) entity.RiskLevel {
	penalty := 0
	if route.Reliability < 0.95 {
		penalty++
	}
	if route.Reliability < 0.85 {
		penalty++
	}
	if amount > 0 && route.EstimatedCost/amount > 0.02 {
		penalty++
	}
	if route.EstimatedTime > 48*time.Hour {
		penalty++
	}
	if historical < 60 {
		penalty++
	}

	switch {
	case penalty == 0:
		return entity.RiskLow
	case penalty <= 2:
		return entity.RiskMedium
	default:
		return entity.RiskHigh
	}
}
