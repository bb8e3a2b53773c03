package entity

import "time"

// Trend is the direction of a rate series
type Trend string

const (
	TrendUp     Trend = "up"
	TrendDown   Trend = "down"
	TrendStable Trend = "stable"
)

// Recommendation is the conversion advice attached to a prediction
type Recommendation string

const (
	RecommendBuyNow Recommendation = "buy_now"
	RecommendWait   Recommendation = "wait"
	RecommendHold   Recommendation = "hold"
)

// RiskLevel grades timing advice and payment routes
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Prediction is a directional forecast for a pair.
// Stale is set when the history was too short to analyze.
type Prediction struct {
	Pair            CurrencyPair   `json:"pair"`
	CurrentRate     float64        `json:"current_rate"`
	PredictedRate   float64        `json:"predicted_rate"`
	PredictedChange float64        `json:"predicted_change"`
	Confidence      float64        `json:"confidence"`
	Trend           Trend          `json:"trend"`
	TrendSlope      float64        `json:"trend_slope"`
	Momentum        float64        `json:"momentum"`
	VolatilityScore float64        `json:"volatility_score"`
	Recommendation  Recommendation `json:"recommendation"`
	Horizon         time.Duration  `json:"horizon"`
	SampleCount     int            `json:"sample_count"`
	Stale           bool           `json:"stale"`
}

// OptimalTiming is the advised conversion window
type OptimalTiming struct {
	BestHourUTC            int       `json:"best_hour_utc"`
	ExpectedSavingsPercent float64   `json:"expected_savings_percent"`
	RiskLevel              RiskLevel `json:"risk_level"`
}

// VolatilityAnalysis summarizes the statistics behind a prediction
type VolatilityAnalysis struct {
	Volatility  float64   `json:"volatility"`
	Level       RiskLevel `json:"level"`
	Trend       Trend     `json:"trend"`
	TrendSlope  float64   `json:"trend_slope"`
	Momentum    float64   `json:"momentum"`
	SampleCount int       `json:"sample_count"`
}
