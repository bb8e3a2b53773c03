package service

import (
	"context"
	"sort"
	"strings"

	"github.com/damon-houk/fx-route-engine/internal/domain/entity"
	"github.com/damon-houk/fx-route-engine/internal/infrastructure/logger"
	"github.com/damon-houk/fx-route-engine/internal/infrastructure/metrics"
	"github.com/damon-houk/fx-route-engine/internal/infrastructure/middleware"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// DefaultBatchConcurrency caps the number of items optimized at once
const DefaultBatchConcurrency = 5

// BatchOptimizer optimizes many payments at once. A failing item never
// aborts the batch.
type BatchOptimizer struct {
	rates       RateSource
	routes      *RouteService
	concurrency int
	logger      logger.Logger
	metrics     *metrics.Recorder
}

// NewBatchOptimizer creates a batch optimizer
func NewBatchOptimizer(rates RateSource, routes *RouteService, concurrency int, log logger.Logger, rec *metrics.Recorder) *BatchOptimizer {
	if concurrency <= 0 {
		concurrency = DefaultBatchConcurrency
	}
	if log == nil {
		log = logger.GetDefaultLogger()
	}
	return &BatchOptimizer{
		rates:       rates,
		routes:      routes,
		concurrency: concurrency,
		logger:      log,
		metrics:     rec,
	}
}

// OptimizeBatch resolves and routes every request independently. Items keep
// their input order; failed items carry a failure reason and no savings.
func (b *BatchOptimizer) OptimizeBatch(ctx context.Context, requests []entity.PaymentRequest) *entity.BatchResult {
	items := make([]entity.BatchItemResult, len(requests))

	g := new(errgroup.Group)
	g.SetLimit(b.concurrency)
	for i, req := range requests {
		i, req := i, req
		if req.ID == "" {
			req.ID = uuid.New().String()
		}
		req.FromCountry = strings.ToUpper(strings.TrimSpace(req.FromCountry))
		req.ToCountry = strings.ToUpper(strings.TrimSpace(req.ToCountry))
		g.Go(func() error {
			items[i] = b.optimizeItem(ctx, req)
			return nil
		})
	}
	_ = g.Wait()

	result := &entity.BatchResult{Items: items}
	total := decimal.Zero
	for _, item := range items {
		b.metrics.RecordBatchItem(!item.Failed())
		if item.Failed() {
			result.Failed++
			continue
		}
		result.Succeeded++
		total = total.Add(decimal.NewFromFloat(item.Savings))
	}
	result.TotalSavings, _ = total.Round(2).Float64()
	result.ConsolidationGroups = consolidate(items)

	b.logger.Info("Batch optimized", map[string]interface{}{
		"request_id":    middleware.GetRequestID(ctx),
		"items":         len(items),
		"succeeded":     result.Succeeded,
		"failed":        result.Failed,
		"total_savings": result.TotalSavings,
		"groups":        len(result.ConsolidationGroups),
	})

	return result
}

func (b *BatchOptimizer) optimizeItem(ctx context.Context, req entity.PaymentRequest) entity.BatchItemResult {
	item := entity.BatchItemResult{Request: req}

	target := req.TargetCurrency
	if strings.TrimSpace(target) == "" {
		target = req.Currency
	}
	pair, err := entity.NewCurrencyPair(req.Currency, target)
	if err != nil {
		return b.fail(ctx, item, err)
	}

	resolution, err := b.rates.ResolvePair(ctx, pair)
	if err != nil {
		return b.fail(ctx, item, err)
	}

	rec, err := b.routes.OptimizePaymentRoute(ctx, req.Corridor(), req.Amount, pair.Base, req.Urgency)
	if err != nil {
		return b.fail(ctx, item, err)
	}

	chosen := rec.Recommended
	item.Chosen = &chosen
	item.Rate = resolution.Rate
	item.ConvertedAmount = roundMoney(decimal.NewFromFloat(req.Amount).Mul(decimal.NewFromFloat(resolution.Rate)))
	item.Savings = rec.Savings
	return item
}

func (b *BatchOptimizer) fail(ctx context.Context, item entity.BatchItemResult, err error) entity.BatchItemResult {
	b.logger.Warn("Batch item failed", map[string]interface{}{
		"request_id": middleware.GetRequestID(ctx),
		"item_id":    item.Request.ID,
		"corridor":   item.Request.Corridor().String(),
		"error":      err.Error(),
	})
	item.Failure = err.Error()
	return item
}

type consolidationKey struct {
	from, to, provider string
}

// consolidate groups successful items sharing a corridor and provider. A
// consolidated transfer pays one fixed fee, the largest of the group.
func consolidate(items []entity.BatchItemResult) []entity.ConsolidationGroup {
	type group struct {
		ids    []string
		amount decimal.Decimal
		fees   decimal.Decimal
		maxFee decimal.Decimal
	}

	groups := make(map[consolidationKey]*group)
	for _, item := range items {
		if item.Failed() || item.Chosen == nil {
			continue
		}
		key := consolidationKey{
			from:     item.Request.FromCountry,
			to:       item.Request.ToCountry,
			provider: item.Chosen.Route.Provider,
		}
		g, ok := groups[key]
		if !ok {
			g = &group{amount: decimal.Zero, fees: decimal.Zero, maxFee: decimal.Zero}
			groups[key] = g
		}
		fee := decimal.NewFromFloat(item.Chosen.Route.FixedFee)
		g.ids = append(g.ids, item.Request.ID)
		g.amount = g.amount.Add(decimal.NewFromFloat(item.Request.Amount))
		g.fees = g.fees.Add(fee)
		if fee.GreaterThan(g.maxFee) {
			g.maxFee = fee
		}
	}

	out := make([]entity.ConsolidationGroup, 0)
	for key, g := range groups {
		if len(g.ids) < 2 {
			continue
		}
		out = append(out, entity.ConsolidationGroup{
			FromCountry:      key.from,
			ToCountry:        key.to,
			Provider:         key.provider,
			RequestIDs:       g.ids,
			TotalAmount:      roundMoney(g.amount),
			PotentialSavings: roundMoney(g.fees.Sub(g.maxFee)),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.FromCountry != b.FromCountry {
			return a.FromCountry < b.FromCountry
		}
		if a.ToCountry != b.ToCountry {
			return a.ToCountry < b.ToCountry
		}
		return a.Provider < b.Provider
	})
	return out
}

func roundMoney(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}
