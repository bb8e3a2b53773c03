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

// DefaultBestHourUTC is advised when no intraday pattern data exists. It is
// the usual London/New York overlap.
const DefaultBestHourUTC = 14

const (
	lowRiskVolatility  = 0.01
	lowRiskConfidence  = 0.7
	highRiskConfidence = 0.5
)

// TimingAdvisor recommends when during the day to convert
type TimingAdvisor struct {
	patterns repository.HourlyPatternSource
	timeout  time.Duration
	logger   logger.Logger
}

// NewTimingAdvisor creates a timing advisor
func NewTimingAdvisor(patterns repository.HourlyPatternSource, timeout time.Duration, log logger.Logger) *TimingAdvisor {
	if log == nil {
		log = logger.GetDefaultLogger()
	}
	return &TimingAdvisor{patterns: patterns, timeout: timeout, logger: log}
}

// Advise never fails; missing patterns fall back to DefaultBestHourUTC
func (t *TimingAdvisor) Advise(ctx context.Context, prediction entity.Prediction) entity.OptimalTiming {
	var patterns map[int]float64
	var err error
	if t.patterns != nil {
		patterns, err = callWithTimeout(ctx, t.timeout, func(c context.Context) (map[int]float64, error) {
			return t.patterns.GetHourlyPatterns(c, prediction.Pair)
		})
	}
	if err != nil {
		t.logger.Warn("Hourly patterns unavailable", map[string]interface{}{
			"request_id": middleware.GetRequestID(ctx),
			"pair":       prediction.Pair.String(),
			"error":      err.Error(),
		})
		patterns = nil
	}

	savings := 0.0
	if prediction.CurrentRate > 0 {
		savings = math.Abs(prediction.PredictedRate-prediction.CurrentRate) / prediction.CurrentRate * 100
	}

	return entity.OptimalTiming{
		BestHourUTC:            bestHour(patterns),
		ExpectedSavingsPercent: savings,
		RiskLevel:              timingRisk(prediction.VolatilityScore, prediction.Confidence),
	}
}

// bestHour picks the most favorable hour; ties go to the lowest hour
func bestHour(patterns map[int]float64) int {
	best := -1
	bestScore := math.Inf(-1)
	for h := 0; h < 24; h++ {
		score, ok := patterns[h]
		if !ok || math.IsNaN(score) {
			continue
		}
		if score > bestScore {
			best, bestScore = h, score
		}
	}
	if best < 0 {
		return DefaultBestHourUTC
	}
	return best
}

func timingRisk(volatility, confidence float64) entity.RiskLevel {
	switch {
	case volatility < lowRiskVolatility && confidence >= lowRiskConfidence:
		return entity.RiskLow
	case volatility > volThreshold || confidence < highRiskConfidence:
		return entity.RiskHigh
	default:
		return entity.RiskMedium
	}
}
