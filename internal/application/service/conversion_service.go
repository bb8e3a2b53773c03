package service

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/damon-houk/fx-route-engine/internal/domain/entity"
	"github.com/damon-houk/fx-route-engine/internal/infrastructure/logger"
	"github.com/damon-houk/fx-route-engine/internal/infrastructure/middleware"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// ConversionResult is a converted amount and the rate used
type ConversionResult struct {
	From            string                `json:"from"`
	To              string                `json:"to"`
	Amount          float64               `json:"amount"`
	Rate            float64               `json:"rate"`
	ConvertedAmount float64               `json:"converted_amount"`
	Tier            entity.ResolutionTier `json:"tier"`
	Timestamp       time.Time             `json:"timestamp"`
}

// EnhancedRate is a resolved rate with its prediction and timing advice
type EnhancedRate struct {
	Pair               entity.CurrencyPair       `json:"pair"`
	CurrentRate        float64                   `json:"current_rate"`
	Tier               entity.ResolutionTier     `json:"tier"`
	Sources            []string                  `json:"sources"`
	Confidence         float64                   `json:"confidence"`
	Prediction         entity.Prediction         `json:"prediction"`
	VolatilityAnalysis entity.VolatilityAnalysis `json:"volatility_analysis"`
	OptimalTiming      entity.OptimalTiming      `json:"optimal_timing"`
	Timestamp          time.Time                 `json:"timestamp"`
}

// ConversionRequest is one planned conversion in a batch
type ConversionRequest struct {
	ID     string  `json:"id"`
	Amount float64 `json:"amount"`
	From   string  `json:"from"`
	To     string  `json:"to"`
}

// PairRecommendation is the advice for all requests sharing a pair
type PairRecommendation struct {
	Pair                   entity.CurrencyPair   `json:"pair"`
	RequestIDs             []string              `json:"request_ids"`
	TotalAmount            float64               `json:"total_amount"`
	Rate                   float64               `json:"rate,omitempty"`
	ConvertedAmount        float64               `json:"converted_amount,omitempty"`
	Recommendation         entity.Recommendation `json:"recommendation,omitempty"`
	BestHourUTC            int                   `json:"best_hour_utc"`
	RiskLevel              entity.RiskLevel      `json:"risk_level,omitempty"`
	ExpectedSavingsPercent float64               `json:"expected_savings_percent"`
	Failure                string                `json:"failure,omitempty"`
}

// ConversionService exposes conversions and rate intelligence
type ConversionService struct {
	rates       RateSource
	analyzer    *PredictiveAnalyzer
	advisor     *TimingAdvisor
	concurrency int
	logger      logger.Logger
	now         func() time.Time
}

// NewConversionService creates a conversion service
func NewConversionService(rates RateSource, analyzer *PredictiveAnalyzer, advisor *TimingAdvisor, concurrency int, log logger.Logger) *ConversionService {
	if concurrency <= 0 {
		concurrency = DefaultBatchConcurrency
	}
	if log == nil {
		log = logger.GetDefaultLogger()
	}
	return &ConversionService{
		rates:       rates,
		analyzer:    analyzer,
		advisor:     advisor,
		concurrency: concurrency,
		logger:      log,
		now:         time.Now,
	}
}

// Convert converts amount from one currency to another, rounded to cents
func (s *ConversionService) Convert(ctx context.Context, amount float64, from, to string) (*ConversionResult, error) {
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return nil, entity.ErrInvalidAmount
	}
	pair, err := entity.NewCurrencyPair(from, to)
	if err != nil {
		return nil, err
	}

	resolution, err := s.rates.ResolvePair(ctx, pair)
	if err != nil {
		s.logger.Warn("Conversion failed", map[string]interface{}{
			"request_id": middleware.GetRequestID(ctx),
			"pair":       pair.String(),
			"error":      err.Error(),
		})
		return nil, err
	}

	converted := roundMoney(decimal.NewFromFloat(amount).Mul(decimal.NewFromFloat(resolution.Rate)))

	s.logger.Info("Amount converted", map[string]interface{}{
		"request_id": middleware.GetRequestID(ctx),
		"pair":       pair.String(),
		"amount":     amount,
		"rate":       resolution.Rate,
		"converted":  converted,
		"tier":       string(resolution.Tier),
	})

	return &ConversionResult{
		From:            pair.Base,
		To:              pair.Quote,
		Amount:          amount,
		Rate:            resolution.Rate,
		ConvertedAmount: converted,
		Tier:            resolution.Tier,
		Timestamp:       s.now().UTC(),
	}, nil
}

// GetEnhancedRate resolves a rate and attaches a prediction, a volatility
// summary and timing advice
func (s *ConversionService) GetEnhancedRate(ctx context.Context, base, quote string) (*EnhancedRate, error) {
	pair, err := entity.NewCurrencyPair(base, quote)
	if err != nil {
		return nil, err
	}

	resolution, err := s.rates.ResolvePair(ctx, pair)
	if err != nil {
		return nil, err
	}

	prediction := s.analyzer.Predict(ctx, pair, resolution.Rate)
	timing := s.advisor.Advise(ctx, prediction)

	return &EnhancedRate{
		Pair:               pair,
		CurrentRate:        resolution.Rate,
		Tier:               resolution.Tier,
		Sources:            resolution.Sources,
		Confidence:         resolution.Confidence,
		Prediction:         prediction,
		VolatilityAnalysis: analyzeVolatility(prediction),
		OptimalTiming:      timing,
		Timestamp:          s.now().UTC(),
	}, nil
}

// OptimizeBatchConversions groups the requests by pair and returns one
// recommendation per pair, sorted by pair. Invalid requests and pairs that
// cannot be resolved get a failure entry instead of aborting the batch.
func (s *ConversionService) OptimizeBatchConversions(ctx context.Context, requests []ConversionRequest) []PairRecommendation {
	type bucket struct {
		ids    []string
		amount decimal.Decimal
	}

	buckets := make(map[entity.CurrencyPair]*bucket)
	var invalid []PairRecommendation
	for _, req := range requests {
		pair, err := entity.NewCurrencyPair(req.From, req.To)
		if err == nil && (req.Amount <= 0 || math.IsNaN(req.Amount) || math.IsInf(req.Amount, 0)) {
			err = entity.ErrInvalidAmount
		}
		if err != nil {
			invalid = append(invalid, PairRecommendation{
				Pair:       entity.CurrencyPair{Base: req.From, Quote: req.To},
				RequestIDs: []string{req.ID},
				Failure:    err.Error(),
			})
			continue
		}

		b, ok := buckets[pair]
		if !ok {
			b = &bucket{amount: decimal.Zero}
			buckets[pair] = b
		}
		b.ids = append(b.ids, req.ID)
		b.amount = b.amount.Add(decimal.NewFromFloat(req.Amount))
	}

	pairs := make([]entity.CurrencyPair, 0, len(buckets))
	for pair := range buckets {
		pairs = append(pairs, pair)
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].String() < pairs[j].String() })

	out := make([]PairRecommendation, len(pairs))
	g := new(errgroup.Group)
	g.SetLimit(s.concurrency)
	for i, pair := range pairs {
		i, pair := i, pair
		b := buckets[pair]
		g.Go(func() error {
			out[i] = s.recommendPair(ctx, pair, b.ids, b.amount)
			return nil
		})
	}
	_ = g.Wait()

	s.logger.Info("Batch conversions optimized", map[string]interface{}{
		"request_id": middleware.GetRequestID(ctx),
		"requests":   len(requests),
		"pairs":      len(pairs),
		"invalid":    len(invalid),
	})

	return append(out, invalid...)
}

func (s *ConversionService) recommendPair(ctx context.Context, pair entity.CurrencyPair, ids []string, amount decimal.Decimal) PairRecommendation {
	rec := PairRecommendation{
		Pair:        pair,
		RequestIDs:  ids,
		TotalAmount: roundMoney(amount),
	}

	resolution, err := s.rates.ResolvePair(ctx, pair)
	if err != nil {
		rec.Failure = err.Error()
		return rec
	}

	prediction := s.analyzer.Predict(ctx, pair, resolution.Rate)
	timing := s.advisor.Advise(ctx, prediction)

	rec.Rate = resolution.Rate
	rec.ConvertedAmount = roundMoney(amount.Mul(decimal.NewFromFloat(resolution.Rate)))
	rec.Recommendation = prediction.Recommendation
	rec.BestHourUTC = timing.BestHourUTC
	rec.RiskLevel = timing.RiskLevel
	rec.ExpectedSavingsPercent = timing.ExpectedSavingsPercent
	return rec
}
