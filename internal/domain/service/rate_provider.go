package service

import (
	"context"
)

// RateProvider is an external market-data source. Implementations must not
// retain state between calls beyond their own client resources.
type RateProvider interface {
	// Name identifies the provider in aggregation results and metrics
	Name() string

	// FetchRate returns the amount of quote for one unit of base
	FetchRate(ctx context.Context, base, quote string) (float64, error)
}
