package service

import (
	"context"
	"math"
	"time"

	"github.com/damon-houk/fx-route-engine/internal/domain/entity"
	"github.com/damon-houk/fx-route-engine/internal/domain/repository"
	"github.com/damon-houk/fx-route-engine/internal/infrastructure/logger"
	"github.com/damon-houk/fx-route-engine/internal/infrastructure/middleware"
)

const (
	DefaultHistoryWindow = 30
	DefaultMinSamples    = 10
	DefaultHorizon       = 24 * time.Hour

	// momentumSpan is the length of each of the two averaging windows
	momentumSpan = 5

	staleConfidence = 0.3
	staleVolatility = 0.005
	maxConfidence   = 0.9

	trendWeight     = 0.6
	momentumWeight  = 0.4
	changeThreshold = 0.005
	volThreshold    = 0.02
	trendDeadband   = 0.001
)

// PredictiveAnalyzer turns a pair's recent history into a directional
// prediction. It never fails; missing history yields a stale prediction.
type PredictiveAnalyzer struct {
	history    repository.HistoryRepository
	window     int
	minSamples int
	horizon    time.Duration
	timeout    time.Duration
	logger     logger.Logger
}

// NewPredictiveAnalyzer creates an analyzer. Zero values pick the defaults.
func NewPredictiveAnalyzer(history repository.HistoryRepository, window, minSamples int, timeout time.Duration, log logger.Logger) *PredictiveAnalyzer {
	if window <= 0 {
		window = DefaultHistoryWindow
	}
	if minSamples <= 0 {
		minSamples = DefaultMinSamples
	}
	// momentum needs two full spans
	if minSamples < 2*momentumSpan {
		minSamples = 2 * momentumSpan
	}
	if log == nil {
		log = logger.GetDefaultLogger()
	}

	return &PredictiveAnalyzer{
		history:    history,
		window:     window,
		minSamples: minSamples,
		horizon:    DefaultHorizon,
		timeout:    timeout,
		logger:     log,
	}
}

// Predict forecasts the pair's rate over the analyzer horizon
func (p *PredictiveAnalyzer) Predict(ctx context.Context, pair entity.CurrencyPair, currentRate float64) entity.Prediction {
	var samples []entity.RateSample
	var err error
	if p.history != nil {
		samples, err = callWithTimeout(ctx, p.timeout, func(c context.Context) ([]entity.RateSample, error) {
			return p.history.GetHistory(c, pair, p.window)
		})
	}
	if err != nil {
		p.logger.Warn("History unavailable, using conservative prediction", map[string]interface{}{
			"request_id": middleware.GetRequestID(ctx),
			"pair":       pair.String(),
			"error":      err.Error(),
		})
		samples = nil
	}

	rates := make([]float64, 0, len(samples))
	for _, s := range samples {
		if s.Rate > 0 && !math.IsInf(s.Rate, 0) {
			rates = append(rates, s.Rate)
		}
	}

	prediction := p.analyze(pair, currentRate, rates)
	if prediction.Stale {
		p.logger.Info("Prediction built on insufficient history", map[string]interface{}{
			"request_id":  middleware.GetRequestID(ctx),
			"pair":        pair.String(),
			"samples":     len(rates),
			"min_samples": p.minSamples,
		})
	}
	return prediction
}

func (p *PredictiveAnalyzer) analyze(pair entity.CurrencyPair, currentRate float64, rates []float64) entity.Prediction {
	n := len(rates)
	if n < p.minSamples {
		return entity.Prediction{
			Pair:            pair,
			CurrentRate:     currentRate,
			PredictedRate:   currentRate,
			Confidence:      staleConfidence,
			Trend:           entity.TrendStable,
			VolatilityScore: staleVolatility,
			Recommendation:  entity.RecommendHold,
			Horizon:         p.horizon,
			SampleCount:     n,
			Stale:           true,
		}
	}

	trend := slope(rates) / rates[0]
	volatility := stdDev(relativeChanges(rates))

	recent := meanOf(rates[n-momentumSpan:])
	prior := meanOf(rates[n-2*momentumSpan : n-momentumSpan])
	momentum := (recent - prior) / prior

	change := trendWeight*trend + momentumWeight*momentum
	predicted := currentRate * (1 + change)
	if predicted <= 0 {
		predicted = currentRate
	}

	return entity.Prediction{
		Pair:            pair,
		CurrentRate:     currentRate,
		PredictedRate:   predicted,
		PredictedChange: change,
		Confidence:      clamp(math.Min(maxConfidence, 0.5+float64(n)/60), 0, 1),
		Trend:           classifyTrend(trend),
		TrendSlope:      trend,
		Momentum:        momentum,
		VolatilityScore: volatility,
		Recommendation:  recommend(change, volatility),
		Horizon:         p.horizon,
		SampleCount:     n,
	}
}

// recommend evaluates buy_now, then wait, then falls back to hold
func recommend(change, volatility float64) entity.Recommendation {
	switch {
	case change > changeThreshold && volatility < volThreshold:
		return entity.RecommendBuyNow
	case change < -changeThreshold && volatility > volThreshold:
		return entity.RecommendWait
	default:
		return entity.RecommendHold
	}
}

func classifyTrend(trend float64) entity.Trend {
	switch {
	case trend > trendDeadband:
		return entity.TrendUp
	case trend < -trendDeadband:
		return entity.TrendDown
	default:
		return entity.TrendStable
	}
}

// relativeChanges returns (r[i]-r[i-1])/r[i-1] for each consecutive pair
func relativeChanges(rates []float64) []float64 {
	if len(rates) < 2 {
		return nil
	}
	changes := make([]float64, 0, len(rates)-1)
	for i := 1; i < len(rates); i++ {
		changes = append(changes, (rates[i]-rates[i-1])/rates[i-1])
	}
	return changes
}

// analyzeVolatility summarizes a prediction for API consumers
func analyzeVolatility(p entity.Prediction) entity.VolatilityAnalysis {
	level := entity.RiskMedium
	switch {
	case p.VolatilityScore < 0.01:
		level = entity.RiskLow
	case p.VolatilityScore > volThreshold:
		level = entity.RiskHigh
	}

	return entity.VolatilityAnalysis{
		Volatility:  p.VolatilityScore,
		Level:       level,
		Trend:       p.Trend,
		TrendSlope:  p.TrendSlope,
		Momentum:    p.Momentum,
		SampleCount: p.SampleCount,
	}
}
