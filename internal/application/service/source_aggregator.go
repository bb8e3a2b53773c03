package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/damon-houk/fx-route-engine/internal/domain/entity"
	domainservice "github.com/damon-houk/fx-route-engine/internal/domain/service"
	"github.com/damon-houk/fx-route-engine/internal/infrastructure/logger"
	"github.com/damon-houk/fx-route-engine/internal/infrastructure/metrics"
	"github.com/damon-houk/fx-route-engine/internal/infrastructure/middleware"
	"golang.org/x/sync/errgroup"
)

// WeightedProvider pairs a provider with its a-priori trust weight
type WeightedProvider struct {
	Provider domainservice.RateProvider
	Weight   float64
}

// ProviderResult is the outcome of one provider call: either a quote or a
// failure, never both
type ProviderResult struct {
	Source  string
	Weight  float64
	Quote   *entity.RateQuote
	Failure error
}

// OK reports whether the provider answered with a usable rate
func (r ProviderResult) OK() bool {
	return r.Failure == nil && r.Quote != nil
}

// SourceAggregator queries every configured provider concurrently and
// combines the answers into one weighted rate
type SourceAggregator struct {
	providers []WeightedProvider
	timeout   time.Duration
	logger    logger.Logger
	metrics   *metrics.Recorder
	now       func() time.Time
}

// NewSourceAggregator creates an aggregator. Providers with a non-positive
// weight are given weight 1.
func NewSourceAggregator(providers []WeightedProvider, timeout time.Duration, log logger.Logger, rec *metrics.Recorder) *SourceAggregator {
	if log == nil {
		log = logger.GetDefaultLogger()
	}
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}

	normalized := make([]WeightedProvider, 0, len(providers))
	for _, p := range providers {
		if p.Provider == nil {
			continue
		}
		if p.Weight <= 0 || math.IsNaN(p.Weight) || math.IsInf(p.Weight, 0) {
			p.Weight = 1
		}
		normalized = append(normalized, p)
	}

	return &SourceAggregator{
		providers: normalized,
		timeout:   timeout,
		logger:    log,
		metrics:   rec,
		now:       time.Now,
	}
}

// FetchAggregate returns the weighted rate of every responding provider. It
// fails with entity.ErrNoDataAvailable only when no provider responded.
func (a *SourceAggregator) FetchAggregate(ctx context.Context, pair entity.CurrencyPair) (*entity.AggregatedRate, error) {
	results := a.fanOut(ctx, pair)

	agg, err := a.aggregate(pair, results)
	if err != nil {
		a.logger.Warn("All rate sources failed", map[string]interface{}{
			"request_id": middleware.GetRequestID(ctx),
			"pair":       pair.String(),
			"providers":  len(a.providers),
		})
		return nil, err
	}

	a.logger.Debug("Aggregated rate", map[string]interface{}{
		"request_id": middleware.GetRequestID(ctx),
		"pair":       pair.String(),
		"rate":       agg.WeightedRate,
		"confidence": agg.Confidence,
		"responded":  len(agg.Sources),
		"failed":     len(agg.Failures),
	})

	return agg, nil
}

func (a *SourceAggregator) fanOut(ctx context.Context, pair entity.CurrencyPair) []ProviderResult {
	results := make([]ProviderResult, len(a.providers))

	var g errgroup.Group
	for i, wp := range a.providers {
		i, wp := i, wp
		g.Go(func() error {
			results[i] = a.call(ctx, wp, pair)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (a *SourceAggregator) call(ctx context.Context, wp WeightedProvider, pair entity.CurrencyPair) ProviderResult {
	name := wp.Provider.Name()
	result := ProviderResult{Source: name, Weight: wp.Weight}

	rate, err := callWithTimeout(ctx, a.timeout, func(c context.Context) (float64, error) {
		return wp.Provider.FetchRate(c, pair.Base, pair.Quote)
	})

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		a.metrics.RecordProviderCall(name, "timeout")
		result.Failure = fmt.Errorf("%w: %s timed out", entity.ErrSourceUnavailable, name)
	case err != nil:
		a.metrics.RecordProviderCall(name, "error")
		result.Failure = fmt.Errorf("%w: %s: %v", entity.ErrSourceUnavailable, name, err)
	case rate <= 0 || math.IsNaN(rate) || math.IsInf(rate, 0):
		a.metrics.RecordProviderCall(name, "malformed")
		result.Failure = fmt.Errorf("%w: %s returned malformed rate %v", entity.ErrSourceUnavailable, name, rate)
	default:
		a.metrics.RecordProviderCall(name, "ok")
		result.Quote = &entity.RateQuote{
			Base:       pair.Base,
			Quote:      pair.Quote,
			Rate:       rate,
			Source:     name,
			ObservedAt: a.now().UTC(),
			Active:     true,
		}
	}

	if result.Failure != nil {
		a.logger.Debug("Rate source failed", map[string]interface{}{
			"request_id": middleware.GetRequestID(ctx),
			"provider":   name,
			"pair":       pair.String(),
			"error":      result.Failure.Error(),
		})
	}

	return result
}

func (a *SourceAggregator) aggregate(pair entity.CurrencyPair, results []ProviderResult) (*entity.AggregatedRate, error) {
	var (
		contributions []entity.SourceContribution
		failures      []entity.SourceFailure
		totalWeight   float64
	)

	for _, r := range results {
		if !r.OK() {
			reason := "no response"
			if r.Failure != nil {
				reason = r.Failure.Error()
			}
			failures = append(failures, entity.SourceFailure{Source: r.Source, Reason: reason})
			continue
		}
		contributions = append(contributions, entity.SourceContribution{
			Source: r.Source,
			Rate:   r.Quote.Rate,
			Weight: r.Weight,
		})
		totalWeight += r.Weight
	}

	if len(contributions) == 0 {
		reasons := make([]string, 0, len(failures))
		for _, f := range failures {
			reasons = append(reasons, f.Reason)
		}
		return nil, fmt.Errorf("%w for %s: [%s]", entity.ErrNoDataAvailable, pair, strings.Join(reasons, "; "))
	}

	rates := make([]float64, len(contributions))
	weighted := 0.0
	for i := range contributions {
		contributions[i].Weight /= totalWeight
		weighted += contributions[i].Weight * contributions[i].Rate
		rates[i] = contributions[i].Rate
	}

	return &entity.AggregatedRate{
		Pair:         pair,
		WeightedRate: weighted,
		Sources:      contributions,
		Failures:     failures,
		Confidence:   agreementConfidence(rates),
		ObservedAt:   a.now().UTC(),
	}, nil
}

// agreementConfidence is 1 - coefficient of variation, clamped to [0,1].
// A single source is fully confident in itself.
func agreementConfidence(rates []float64) float64 {
	if len(rates) <= 1 {
		return 1
	}

	mean := meanOf(rates)
	if mean <= 0 {
		return 0
	}
	return clamp(1-stdDev(rates)/mean, 0, 1)
}
