package handler

import (
	"time"
)

// StoreQuoteRequest represents the request body for publishing a rate quote
type StoreQuoteRequest struct {
	Base      string     `json:"base" validate:"required,len=3,alpha"`
	Quote     string     `json:"quote" validate:"required,len=3,alpha"`
	Rate      float64    `json:"rate" validate:"gt=0"`
	Source    string     `json:"source"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// ConversionItem is one entry of a batch conversion request
type ConversionItem struct {
	ID     string  `json:"id"`
	Amount float64 `json:"amount"`
	From   string  `json:"from" validate:"required"`
	To     string  `json:"to" validate:"required"`
}

// OptimizeConversionsRequest represents the request body for batch conversion advice.
// Amounts are checked per item so one bad entry does not reject the batch.
type OptimizeConversionsRequest struct {
	Conversions []ConversionItem `json:"conversions" validate:"required,min=1,max=1000,dive"`
}

// OptimizeRouteRequest represents the request body for single payment route selection
type OptimizeRouteRequest struct {
	FromCountry string  `json:"from_country" validate:"required,len=2,alpha"`
	ToCountry   string  `json:"to_country" validate:"required,len=2,alpha"`
	Amount      float64 `json:"amount" validate:"gt=0"`
	Currency    string  `json:"currency" validate:"required,len=3,alpha"`
	Urgency     string  `json:"urgency" validate:"omitempty,oneof=standard urgent economy"`
}

// PaymentItem is one entry of a batch payment request
type PaymentItem struct {
	ID             string  `json:"id"`
	FromCountry    string  `json:"from_country" validate:"required"`
	ToCountry      string  `json:"to_country" validate:"required"`
	Amount         float64 `json:"amount"`
	Currency       string  `json:"currency" validate:"required"`
	TargetCurrency string  `json:"target_currency"`
	Urgency        string  `json:"urgency" validate:"omitempty,oneof=standard urgent economy"`
}

// OptimizeBatchRequest represents the request body for batch payment optimization
type OptimizeBatchRequest struct {
	Payments []PaymentItem `json:"payments" validate:"required,min=1,max=500,dive"`
}

// RouteOutcomeRequest reports whether a payment through a provider was delivered
type RouteOutcomeRequest struct {
	Provider    string `json:"provider" validate:"required"`
	FromCountry string `json:"from_country" validate:"required,len=2,alpha"`
	ToCountry   string `json:"to_country" validate:"required,len=2,alpha"`
	Success     *bool  `json:"success" validate:"required"`
}

// RateResponse represents the response for the rate endpoint
type RateResponse struct {
	Base       string   `json:"base"`
	Quote      string   `json:"quote"`
	Rate       float64  `json:"rate"`
	Tier       string   `json:"tier"`
	Sources    []string `json:"sources"`
	Confidence float64  `json:"confidence"`
	ResolvedAt string   `json:"resolved_at"`
}

// StoreQuoteResponse represents the response for the quote endpoint
type StoreQuoteResponse struct {
	ID         string `json:"id"`
	ObservedAt string `json:"observed_at"`
}

// HealthResponse is returned by the health endpoint
type HealthResponse struct {
	Status string `json:"status"`
}
