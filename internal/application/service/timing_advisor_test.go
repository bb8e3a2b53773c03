package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/damon-houk/fx-route-engine/internal/domain/entity"
	"github.com/damon-houk/fx-route-engine/internal/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestTimingAdvisor_Advise(t *testing.T) {
	prediction := entity.Prediction{
		Pair:            pair("EUR", "USD"),
		CurrentRate:     100,
		PredictedRate:   102,
		Confidence:      0.8,
		VolatilityScore: 0.005,
	}

	t.Run("Best hour is the most favorable one", func(t *testing.T) {
		// Setup
		patterns := new(mocks.MockHistoryRepository)
		patterns.On("GetHourlyPatterns", mock.Anything, prediction.Pair).
			Return(map[int]float64{9: 0.1, 15: 0.5, 14: 0.5, 3: -0.2}, nil)
		advisor := NewTimingAdvisor(patterns, time.Second, quietLogger())

		// Execute
		timing := advisor.Advise(context.Background(), prediction)

		// Assert
		assert.Equal(t, 14, timing.BestHourUTC)
		assert.InDelta(t, 2.0, timing.ExpectedSavingsPercent, 1e-9)
		assert.Equal(t, entity.RiskLow, timing.RiskLevel)
	})

	t.Run("No pattern data uses the default hour", func(t *testing.T) {
		patterns := new(mocks.MockHistoryRepository)
		patterns.On("GetHourlyPatterns", mock.Anything, prediction.Pair).Return(map[int]float64{}, nil)
		advisor := NewTimingAdvisor(patterns, time.Second, quietLogger())

		timing := advisor.Advise(context.Background(), prediction)

		assert.Equal(t, DefaultBestHourUTC, timing.BestHourUTC)
	})

	t.Run("Pattern lookup failure never fails the advice", func(t *testing.T) {
		patterns := new(mocks.MockHistoryRepository)
		patterns.On("GetHourlyPatterns", mock.Anything, prediction.Pair).Return(nil, errors.New("boom"))
		advisor := NewTimingAdvisor(patterns, time.Second, quietLogger())

		timing := advisor.Advise(context.Background(), prediction)

		assert.Equal(t, DefaultBestHourUTC, timing.BestHourUTC)
		assert.Equal(t, entity.RiskLow, timing.RiskLevel)
	})

	t.Run("No pattern source uses the default hour", func(t *testing.T) {
		advisor := NewTimingAdvisor(nil, time.Second, quietLogger())

		timing := advisor.Advise(context.Background(), prediction)

		assert.Equal(t, DefaultBestHourUTC, timing.BestHourUTC)
		assert.InDelta(t, 2.0, timing.ExpectedSavingsPercent, 1e-9)
	})
}

func TestTimingRisk(t *testing.T) {
	tests := []struct {
		name       string
		volatility float64
		confidence float64
		expected   entity.RiskLevel
	}{
		{"Calm and confident", 0.005, 0.8, entity.RiskLow},
		{"Calm but unsure", 0.005, 0.6, entity.RiskMedium},
		{"Moderate volatility", 0.015, 0.9, entity.RiskMedium},
		{"Volatile", 0.03, 0.9, entity.RiskHigh},
		{"Low confidence", 0.005, 0.3, entity.RiskHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, timingRisk(tt.volatility, tt.confidence))
		})
	}
}

func TestBestHourTieBreak(t *testing.T) {
	assert.Equal(t, 2, bestHour(map[int]float64{23: 1, 2: 1, 7: 1}))
	assert.Equal(t, 23, bestHour(map[int]float64{23: 1, 2: 0.9}))
	assert.Equal(t, DefaultBestHourUTC, bestHour(nil))
	assert.Equal(t, DefaultBestHourUTC, bestHour(map[int]float64{25: 1}))
}
