package entity

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCurrency is returned for malformed currency codes
	ErrInvalidCurrency = errors.New("invalid currency code")
	// ErrInvalidAmount is returned for non-positive amounts
	ErrInvalidAmount = errors.New("amount must be a positive value")
	// ErrQuoteNotFound is returned by quote stores when no active quote exists
	ErrQuoteNotFound = errors.New("quote not found")
	// ErrSourceUnavailable marks a single provider failure. It never leaves the aggregator.
	ErrSourceUnavailable = errors.New("rate source unavailable")
	// ErrNoDataAvailable means every provider failed during one aggregation
	ErrNoDataAvailable = errors.New("no data available from any rate source")
	// ErrRateUnavailable means every resolution tier was exhausted
	ErrRateUnavailable = errors.New("no exchange rate available")
	// ErrDivisionGuard marks a derived rate whose denominator was zero
	ErrDivisionGuard = errors.New("zero denominator in derived rate")
	// ErrNoRoutes is returned when a corridor has no route options
	ErrNoRoutes = errors.New("no payment routes available")
)

// RateUnavailableError carries the pair that could not be resolved
type RateUnavailableError struct {
	Pair CurrencyPair
}

func (e *RateUnavailableError) Error() string {
	return fmt.Sprintf("%s for %s", ErrRateUnavailable.Error(), e.Pair)
}

// Is lets errors.Is match ErrRateUnavailable
func (e *RateUnavailableError) Is(target error) bool {
	return target == ErrRateUnavailable
}
