package service

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/damon-houk/fx-route-engine/internal/domain/entity"
	"github.com/damon-houk/fx-route-engine/internal/domain/repository"
	"github.com/damon-houk/fx-route-engine/internal/infrastructure/logger"
	"github.com/damon-houk/fx-route-engine/internal/infrastructure/metrics"
	"github.com/damon-houk/fx-route-engine/internal/infrastructure/middleware"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultAnchorCurrency is the currency cross rates are triangulated through
	DefaultAnchorCurrency = "USD"
	// MaxTriangulationDepth bounds triangulation to a single hop via the anchor
	MaxTriangulationDepth = 1
)

// ResolverConfig holds the tunables of a RateResolver
type ResolverConfig struct {
	AnchorCurrency string
	LookupTimeout  time.Duration
}

// RateResolver walks the fallback chain: identity, cache, direct quote,
// reverse quote, triangulation, then the source aggregator.
type RateResolver struct {
	cache         RateCache
	quotes        repository.QuoteRepository
	aggregator    Aggregator
	history       repository.HistoryRepository
	anchor        string
	lookupTimeout time.Duration
	logger        logger.Logger
	metrics       *metrics.Recorder
	now           func() time.Time
	flight        singleflight.Group

	mu      sync.Mutex
	flights map[string]*flightState
}

// flightState is the context shared by every caller waiting on one
// coalesced resolution. It is cancelled when the last waiter leaves.
type flightState struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// NewRateResolver creates a resolver. The aggregator may be nil, in which
// case the chain ends after triangulation.
func NewRateResolver(cache RateCache, quotes repository.QuoteRepository, aggregator Aggregator, cfg ResolverConfig, log logger.Logger, rec *metrics.Recorder) *RateResolver {
	if log == nil {
		log = logger.GetDefaultLogger()
	}

	anchor, err := entity.NormalizeCurrency(cfg.AnchorCurrency)
	if err != nil {
		anchor = DefaultAnchorCurrency
	}
	timeout := cfg.LookupTimeout
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}

	return &RateResolver{
		cache:         cache,
		quotes:        quotes,
		aggregator:    aggregator,
		anchor:        anchor,
		lookupTimeout: timeout,
		logger:        log,
		metrics:       rec,
		now:           time.Now,
		flights:       make(map[string]*flightState),
	}
}

// WithHistory makes the resolver record every aggregated rate as a history
// sample, feeding the predictive analyzer
func (r *RateResolver) WithHistory(history repository.HistoryRepository) *RateResolver {
	r.history = history
	return r
}

// Anchor returns the triangulation anchor currency
func (r *RateResolver) Anchor() string {
	return r.anchor
}

// Resolve validates the currency codes and resolves the pair
func (r *RateResolver) Resolve(ctx context.Context, base, quote string) (*entity.Resolution, error) {
	pair, err := entity.NewCurrencyPair(base, quote)
	if err != nil {
		return nil, err
	}
	return r.ResolvePair(ctx, pair)
}

// ResolvePair resolves an already validated pair
func (r *RateResolver) ResolvePair(ctx context.Context, pair entity.CurrencyPair) (*entity.Resolution, error) {
	return r.resolve(ctx, pair, MaxTriangulationDepth)
}

// Invalidate drops a single cached pair
func (r *RateResolver) Invalidate(ctx context.Context, pair entity.CurrencyPair) {
	r.cache.Invalidate(ctx, pair)
}

// ClearCache drops every cached rate
func (r *RateResolver) ClearCache(ctx context.Context) {
	r.cache.Clear(ctx)
}

func (r *RateResolver) resolve(ctx context.Context, pair entity.CurrencyPair, depth int) (*entity.Resolution, error) {
	if pair.IsIdentity() {
		r.metrics.RecordResolution(string(entity.TierIdentity))
		return &entity.Resolution{
			Pair:       pair,
			Rate:       1,
			Tier:       entity.TierIdentity,
			Confidence: 1,
			ResolvedAt: r.now().UTC(),
		}, nil
	}

	key := fmt.Sprintf("%s#%d", pair, depth)
	fs, ch := r.join(ctx, key, pair, depth)
	defer r.leave(key, fs)

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("failed to resolve %s: %w", pair, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		out := *res.Val.(*entity.Resolution)
		return &out, nil
	}
}

// join registers the caller as a waiter on the key's shared resolution,
// starting one when none is in flight. The shared context keeps the
// caller's values but not its cancellation.
func (r *RateResolver) join(ctx context.Context, key string, pair entity.CurrencyPair, depth int) (*flightState, <-chan singleflight.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fs, ok := r.flights[key]
	if !ok {
		shared, cancel := context.WithCancel(context.WithoutCancel(ctx))
		fs = &flightState{ctx: shared, cancel: cancel}
		r.flights[key] = fs
	}
	fs.waiters++

	ch := r.flight.DoChan(key, func() (interface{}, error) {
		return r.runChain(fs.ctx, pair, depth)
	})
	return fs, ch
}

// leave drops a waiter. The last one out cancels the shared context and
// forgets the flight so later callers start afresh.
func (r *RateResolver) leave(key string, fs *flightState) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fs.waiters--
	if fs.waiters > 0 {
		return
	}
	fs.cancel()
	if r.flights[key] == fs {
		delete(r.flights, key)
		r.flight.Forget(key)
	}
}

func (r *RateResolver) runChain(ctx context.Context, pair entity.CurrencyPair, depth int) (*entity.Resolution, error) {
	requestID := middleware.GetRequestID(ctx)

	if rate, ok := r.cache.Get(ctx, pair); ok {
		r.metrics.RecordCacheLookup(true)
		return r.found(ctx, pair, rate, entity.TierCache, nil, 1, false), nil
	}
	r.metrics.RecordCacheLookup(false)

	if q := r.lookupQuote(ctx, pair.Base, pair.Quote); q != nil {
		return r.found(ctx, pair, q.Rate, entity.TierDirectQuote, []string{q.Source}, 1, true), nil
	}

	if q := r.lookupQuote(ctx, pair.Quote, pair.Base); q != nil {
		rate, err := invert(q.Rate)
		if err == nil {
			return r.found(ctx, pair, rate, entity.TierReverseQuote, []string{q.Source}, 1, true), nil
		}
		r.logger.Debug("Reverse quote unusable", map[string]interface{}{
			"request_id": requestID,
			"pair":       pair.String(),
			"error":      err.Error(),
		})
	}

	if res, err := r.triangulate(ctx, pair, depth); err == nil {
		return r.found(ctx, pair, res.Rate, entity.TierTriangulation, res.Sources, res.Confidence, true), nil
	} else if depth > 0 {
		r.logger.Debug("Triangulation failed", map[string]interface{}{
			"request_id": requestID,
			"pair":       pair.String(),
			"anchor":     r.anchor,
			"error":      err.Error(),
		})
	}

	if r.aggregator != nil {
		agg, err := r.aggregator.FetchAggregate(ctx, pair)
		if err == nil {
			r.recordSample(ctx, pair, agg.WeightedRate)
			return r.found(ctx, pair, agg.WeightedRate, entity.TierAggregator, agg.SourceNames(), agg.Confidence, true), nil
		}
		r.logger.Debug("Aggregator tier missed", map[string]interface{}{
			"request_id": requestID,
			"pair":       pair.String(),
			"error":      err.Error(),
		})
	}

	r.metrics.RecordResolution("unavailable")
	r.logger.Warn("Every resolution tier failed", map[string]interface{}{
		"request_id": requestID,
		"pair":       pair.String(),
		"depth":      depth,
	})
	return nil, &entity.RateUnavailableError{Pair: pair}
}

func (r *RateResolver) found(ctx context.Context, pair entity.CurrencyPair, rate float64, tier entity.ResolutionTier, sources []string, confidence float64, cache bool) *entity.Resolution {
	if cache {
		r.cache.Put(ctx, pair, rate)
	}
	r.metrics.RecordResolution(string(tier))

	r.logger.Debug("Rate resolved", map[string]interface{}{
		"request_id": middleware.GetRequestID(ctx),
		"pair":       pair.String(),
		"rate":       rate,
		"tier":       string(tier),
	})

	if sources == nil {
		sources = []string{}
	}
	return &entity.Resolution{
		Pair:       pair,
		Rate:       rate,
		Tier:       tier,
		Sources:    sources,
		Confidence: confidence,
		ResolvedAt: r.now().UTC(),
	}
}

// lookupQuote returns nil on any miss; store errors and timeouts count as misses
func (r *RateResolver) lookupQuote(ctx context.Context, base, quote string) *entity.RateQuote {
	if r.quotes == nil {
		return nil
	}

	q, err := callWithTimeout(ctx, r.lookupTimeout, func(c context.Context) (*entity.RateQuote, error) {
		return r.quotes.FindLatestActiveQuote(c, base, quote)
	})
	if err != nil {
		r.logger.Debug("Quote lookup missed", map[string]interface{}{
			"request_id": middleware.GetRequestID(ctx),
			"base":       base,
			"quote":      quote,
			"error":      err.Error(),
		})
		return nil
	}
	if q == nil || q.Rate <= 0 || math.IsNaN(q.Rate) || math.IsInf(q.Rate, 0) {
		return nil
	}
	return q
}

// triangulate resolves both anchor legs through the same chain at depth-1
func (r *RateResolver) triangulate(ctx context.Context, pair entity.CurrencyPair, depth int) (*entity.Resolution, error) {
	if depth <= 0 {
		return nil, fmt.Errorf("triangulation depth exhausted for %s", pair)
	}
	if pair.Base == r.anchor || pair.Quote == r.anchor {
		return nil, fmt.Errorf("%s already involves anchor %s", pair, r.anchor)
	}

	baseLeg, err := r.resolve(ctx, entity.CurrencyPair{Base: r.anchor, Quote: pair.Base}, depth-1)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve anchor leg: %w", err)
	}
	quoteLeg, err := r.resolve(ctx, entity.CurrencyPair{Base: r.anchor, Quote: pair.Quote}, depth-1)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve anchor leg: %w", err)
	}

	inverse, err := invert(baseLeg.Rate)
	if err != nil {
		return nil, err
	}

	sources := append(append([]string{}, baseLeg.Sources...), quoteLeg.Sources...)
	return &entity.Resolution{
		Pair:       pair,
		Rate:       quoteLeg.Rate * inverse,
		Tier:       entity.TierTriangulation,
		Sources:    sources,
		Confidence: math.Min(baseLeg.Confidence, quoteLeg.Confidence),
	}, nil
}

func (r *RateResolver) recordSample(ctx context.Context, pair entity.CurrencyPair, rate float64) {
	if r.history == nil {
		return
	}

	sample := entity.RateSample{Rate: rate, ObservedAt: r.now().UTC()}
	_, err := callWithTimeout(ctx, r.lookupTimeout, func(c context.Context) (struct{}, error) {
		return struct{}{}, r.history.AppendSample(c, pair, sample)
	})
	if err != nil {
		r.logger.Warn("Failed to record rate sample", map[string]interface{}{
			"request_id": middleware.GetRequestID(ctx),
			"pair":       pair.String(),
			"error":      err.Error(),
		})
	}
}

func invert(rate float64) (float64, error) {
	if rate == 0 || math.IsNaN(rate) {
		return 0, entity.ErrDivisionGuard
	}
	return 1 / rate, nil
}
