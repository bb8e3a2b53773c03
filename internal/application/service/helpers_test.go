package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/damon-houk/fx-route-engine/internal/domain/entity"
	"github.com/damon-houk/fx-route-engine/internal/mocks"
)

// staticRates answers ResolvePair from a fixed table
type staticRates struct {
	mu    sync.Mutex
	rates map[entity.CurrencyPair]float64
	calls int
}

func newStaticRates(rates map[entity.CurrencyPair]float64) *staticRates {
	return &staticRates{rates: rates}
}

func (s *staticRates) ResolvePair(_ context.Context, pair entity.CurrencyPair) (*entity.Resolution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++

	if pair.IsIdentity() {
		return &entity.Resolution{Pair: pair, Rate: 1, Tier: entity.TierIdentity, Confidence: 1}, nil
	}
	rate, ok := s.rates[pair]
	if !ok {
		return nil, &entity.RateUnavailableError{Pair: pair}
	}
	return &entity.Resolution{Pair: pair, Rate: rate, Tier: entity.TierDirectQuote, Sources: []string{"static"}, Confidence: 1}, nil
}

// blockingProvider never answers before its context ends
type blockingProvider struct {
	name string
}

func (p *blockingProvider) Name() string { return p.name }

func (p *blockingProvider) FetchRate(ctx context.Context, _, _ string) (float64, error) {
	<-ctx.Done()
	return 0, ctx.Err()
}

// panickingProvider fails by writing to a nil map
type panickingProvider struct {
	name string
}

func (p *panickingProvider) Name() string { return p.name }

func (p *panickingProvider) FetchRate(_ context.Context, base, quote string) (float64, error) {
	var seen map[string]float64
	seen[base+quote] = 1
	return seen[base+quote], nil
}

// blockingQuotes never answers before its context ends
type blockingQuotes struct{}

func (blockingQuotes) FindLatestActiveQuote(ctx context.Context, _, _ string) (*entity.RateQuote, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (blockingQuotes) StoreQuote(context.Context, *entity.RateQuote) error { return nil }

// gatedAggregator counts calls and holds each one until release is closed
type gatedAggregator struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
	once    sync.Once
	rate    float64
}

func newGatedAggregator(rate float64) *gatedAggregator {
	return &gatedAggregator{
		started: make(chan struct{}),
		release: make(chan struct{}),
		rate:    rate,
	}
}

func (g *gatedAggregator) FetchAggregate(_ context.Context, pair entity.CurrencyPair) (*entity.AggregatedRate, error) {
	g.calls.Add(1)
	g.once.Do(func() { close(g.started) })
	<-g.release
	return &entity.AggregatedRate{
		Pair:         pair,
		WeightedRate: g.rate,
		Sources:      []entity.SourceContribution{{Source: "gated", Rate: g.rate, Weight: 1}},
		Confidence:   1,
	}, nil
}

// cancelAwareAggregator blocks until its context ends and records that it did
type cancelAwareAggregator struct {
	calls     atomic.Int32
	started   chan struct{}
	cancelled chan struct{}
	once      sync.Once
}

func newCancelAwareAggregator() *cancelAwareAggregator {
	return &cancelAwareAggregator{
		started:   make(chan struct{}),
		cancelled: make(chan struct{}),
	}
}

func (c *cancelAwareAggregator) FetchAggregate(ctx context.Context, _ entity.CurrencyPair) (*entity.AggregatedRate, error) {
	c.calls.Add(1)
	c.once.Do(func() { close(c.started) })
	<-ctx.Done()
	close(c.cancelled)
	return nil, ctx.Err()
}

func pair(base, quote string) entity.CurrencyPair {
	return entity.CurrencyPair{Base: base, Quote: quote}
}

// series builds hourly samples ending now from the given rates
func series(rates ...float64) []entity.RateSample {
	start := time.Now().Add(-time.Duration(len(rates)) * time.Hour)
	samples := make([]entity.RateSample, len(rates))
	for i, r := range rates {
		samples[i] = entity.RateSample{Rate: r, ObservedAt: start.Add(time.Duration(i) * time.Hour)}
	}
	return samples
}

func quietLogger() *mocks.MockLogger {
	return mocks.NewQuietLogger()
}
