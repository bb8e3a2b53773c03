package entity

import (
	"time"
)

// RateQuote is a single observed rate for a pair, either persisted or
// returned by an external provider
type RateQuote struct {
	ID         string    `json:"id"`
	Base       string    `json:"base"`
	Quote      string    `json:"quote"`
	Rate       float64   `json:"rate"`
	Source     string    `json:"source"`
	ObservedAt time.Time `json:"observed_at"`
	ExpiresAt  time.Time `json:"expires_at,omitempty"`
	Active     bool      `json:"active"`
}

// Pair returns the quote's currency pair
func (q *RateQuote) Pair() CurrencyPair {
	return CurrencyPair{Base: q.Base, Quote: q.Quote}
}

// IsActiveAt reports whether the quote can be used at the given instant
func (q *RateQuote) IsActiveAt(now time.Time) bool {
	if !q.Active || q.Rate <= 0 {
		return false
	}
	return q.ExpiresAt.IsZero() || now.Before(q.ExpiresAt)
}

// RateSample is one point of a historical rate series
type RateSample struct {
	Rate       float64   `json:"rate"`
	ObservedAt time.Time `json:"observed_at"`
}

// SourceContribution is a responding provider's rate and its renormalized weight
type SourceContribution struct {
	Source string  `json:"source"`
	Rate   float64 `json:"rate"`
	Weight float64 `json:"weight"`
}

// SourceFailure records why a provider was excluded from an aggregation
type SourceFailure struct {
	Source string `json:"source"`
	Reason string `json:"reason"`
}

// AggregatedRate is the confidence-scored result of querying several providers
type AggregatedRate struct {
	Pair         CurrencyPair         `json:"pair"`
	WeightedRate float64              `json:"weighted_rate"`
	Sources      []SourceContribution `json:"sources"`
	Failures     []SourceFailure      `json:"failures,omitempty"`
	Confidence   float64              `json:"confidence"`
	ObservedAt   time.Time            `json:"observed_at"`
}

// SourceNames lists the providers that contributed to the rate
func (a *AggregatedRate) SourceNames() []string {
	names := make([]string, 0, len(a.Sources))
	for _, s := range a.Sources {
		names = append(names, s.Source)
	}
	return names
}

// ResolutionTier names the step of the fallback chain that produced a rate
type ResolutionTier string

const (
	TierIdentity      ResolutionTier = "identity"
	TierCache         ResolutionTier = "cache"
	TierDirectQuote   ResolutionTier = "direct_quote"
	TierReverseQuote  ResolutionTier = "reverse_quote"
	TierTriangulation ResolutionTier = "triangulation"
	TierAggregator    ResolutionTier = "aggregator"
)

// Resolution is a resolved rate together with where it came from
type Resolution struct {
	Pair       CurrencyPair   `json:"pair"`
	Rate       float64        `json:"rate"`
	Tier       ResolutionTier `json:"tier"`
	Sources    []string       `json:"sources"`
	Confidence float64        `json:"confidence"`
	ResolvedAt time.Time      `json:"resolved_at"`
}
