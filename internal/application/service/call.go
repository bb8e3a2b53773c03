// Package service implements the rate resolution and payment-route engine
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/damon-houk/fx-route-engine/internal/domain/entity"
)

// DefaultCallTimeout bounds every call to an external collaborator
const DefaultCallTimeout = 5 * time.Second

// callWithTimeout runs fn under its own deadline and returns as soon as the
// deadline passes, even if fn ignores its context. A panic in fn is returned
// as an entity.ErrSourceUnavailable error.
func callWithTimeout[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type reply struct {
		val T
		err error
	}
	ch := make(chan reply, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- reply{err: fmt.Errorf("%w: panic: %v", entity.ErrSourceUnavailable, r)}
			}
		}()
		v, err := fn(callCtx)
		ch <- reply{val: v, err: err}
	}()

	select {
	case <-callCtx.Done():
		var zero T
		return zero, callCtx.Err()
	case r := <-ch:
		return r.val, r.err
	}
}

// RateCache is the short-lived store the resolver consults first
type RateCache interface {
	Get(ctx context.Context, pair entity.CurrencyPair) (float64, bool)
	Put(ctx context.Context, pair entity.CurrencyPair, rate float64)
	Invalidate(ctx context.Context, pair entity.CurrencyPair)
	Clear(ctx context.Context)
}

// Aggregator produces a multi-source rate for a pair
type Aggregator interface {
	FetchAggregate(ctx context.Context, pair entity.CurrencyPair) (*entity.AggregatedRate, error)
}

// RateSource resolves a rate for a validated pair
type RateSource interface {
	ResolvePair(ctx context.Context, pair entity.CurrencyPair) (*entity.Resolution, error)
}
