package repository

import (
	"context"

	"github.com/damon-houk/fx-route-engine/internal/domain/entity"
)

// RouteOptionProvider lists the routes available for a corridor. Costs in
// the returned options are computed for the given amount.
type RouteOptionProvider interface {
	ListRoutes(ctx context.Context, fromCountry, toCountry string, amount float64, currency string) ([]entity.RouteOption, error)
}

// RoutePerformanceRepository tracks how routes have performed historically
type RoutePerformanceRepository interface {
	// Score returns the smoothed historical score in [0,100] and whether one exists
	Score(ctx context.Context, provider string, corridor entity.Corridor) (float64, bool, error)

	// RecordOutcome folds a delivery outcome into the provider's score
	RecordOutcome(ctx context.Context, provider string, corridor entity.Corridor, success bool) error
}
