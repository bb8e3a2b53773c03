package entity

import (
	"time"
)

// Corridor is an ordered (from, to) country pair for cross-border payments
type Corridor struct {
	FromCountry string `json:"from_country"`
	ToCountry   string `json:"to_country"`
}

func (c Corridor) String() string {
	return c.FromCountry + "->" + c.ToCountry
}

// Urgency narrows the candidate routes for a payment
type Urgency string

const (
	UrgencyStandard Urgency = "standard"
	UrgencyUrgent   Urgency = "urgent"
	UrgencyEconomy  Urgency = "economy"
)

// RouteOption is one way of moving money through a corridor. EstimatedCost
// is expressed in the payment currency for the requested amount.
type RouteOption struct {
	Provider      string        `json:"provider"`
	Method        string        `json:"method"`
	EstimatedCost float64       `json:"estimated_cost"`
	FixedFee      float64       `json:"fixed_fee"`
	PercentFee    float64       `json:"percent_fee"`
	EstimatedTime time.Duration `json:"estimated_time"`
	Reliability   float64       `json:"reliability"`
	Coverage      []string      `json:"coverage"`
	Requirements  []string      `json:"requirements,omitempty"`
}

// Covers reports whether the route reaches the destination country
func (r RouteOption) Covers(country string) bool {
	for _, c := range r.Coverage {
		if c == country || c == "*" {
			return true
		}
	}
	return false
}

// ScoreBreakdown holds the per-factor scores before weighting
type ScoreBreakdown struct {
	Cost        float64 `json:"cost"`
	Time        float64 `json:"time"`
	Reliability float64 `json:"reliability"`
	Coverage    float64 `json:"coverage"`
	History     float64 `json:"history"`
}

// ScoredRoute is a route with its composite score in [0,100]
type ScoredRoute struct {
	Route     RouteOption    `json:"route"`
	Score     float64        `json:"score"`
	Breakdown ScoreBreakdown `json:"breakdown"`
	Risk      RiskLevel      `json:"risk"`
}

// PaymentRequest is one item of a batch payment optimization
type PaymentRequest struct {
	ID             string  `json:"id"`
	FromCountry    string  `json:"from_country"`
	ToCountry      string  `json:"to_country"`
	Amount         float64 `json:"amount"`
	Currency       string  `json:"currency"`
	TargetCurrency string  `json:"target_currency"`
	Urgency        Urgency `json:"urgency"`
}

// Corridor returns the request's payment corridor
func (r PaymentRequest) Corridor() Corridor {
	return Corridor{FromCountry: r.FromCountry, ToCountry: r.ToCountry}
}

// BatchItemResult is the outcome for one request. Exactly one of Chosen and
// Failure is set.
type BatchItemResult struct {
	Request         PaymentRequest `json:"request"`
	Chosen          *ScoredRoute   `json:"chosen,omitempty"`
	Rate            float64        `json:"rate,omitempty"`
	ConvertedAmount float64        `json:"converted_amount,omitempty"`
	Savings         float64        `json:"savings"`
	Failure         string         `json:"failure,omitempty"`
}

// Failed reports whether the item could not be optimized
func (r BatchItemResult) Failed() bool {
	return r.Failure != ""
}

// ConsolidationGroup is an advisory grouping of items that could be sent together
type ConsolidationGroup struct {
	FromCountry      string   `json:"from_country"`
	ToCountry        string   `json:"to_country"`
	Provider         string   `json:"provider"`
	RequestIDs       []string `json:"request_ids"`
	TotalAmount      float64  `json:"total_amount"`
	PotentialSavings float64  `json:"potential_savings"`
}

// BatchResult is the outcome of a batch optimization
type BatchResult struct {
	Items               []BatchItemResult    `json:"items"`
	TotalSavings        float64              `json:"total_savings"`
	Succeeded           int                  `json:"succeeded"`
	Failed              int                  `json:"failed"`
	ConsolidationGroups []ConsolidationGroup `json:"consolidation_groups"`
}
