package repository

import (
	"context"

	"github.com/damon-houk/fx-route-engine/internal/domain/entity"
)

// HistoryRepository provides bounded historical series for a pair
type HistoryRepository interface {
	// GetHistory returns at most window samples, oldest first
	GetHistory(ctx context.Context, pair entity.CurrencyPair, window int) ([]entity.RateSample, error)

	// AppendSample records a new observation for the pair
	AppendSample(ctx context.Context, pair entity.CurrencyPair, sample entity.RateSample) error
}

// HourlyPatternSource provides intraday favorability scores keyed by UTC hour (0-23).
// Higher is more favorable for converting base into quote.
type HourlyPatternSource interface {
	GetHourlyPatterns(ctx context.Context, pair entity.CurrencyPair) (map[int]float64, error)
}
