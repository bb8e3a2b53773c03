package entity

import (
	"fmt"
	"strings"
)

// CurrencyPair is an ordered (base, quote) pair. A rate for the pair is the
// amount of Quote received for one unit of Base.
type CurrencyPair struct {
	Base  string `json:"base"`
	Quote string `json:"quote"`
}

// NewCurrencyPair normalizes and validates both currency codes
func NewCurrencyPair(base, quote string) (CurrencyPair, error) {
	b, err := NormalizeCurrency(base)
	if err != nil {
		return CurrencyPair{}, err
	}
	q, err := NormalizeCurrency(quote)
	if err != nil {
		return CurrencyPair{}, err
	}
	return CurrencyPair{Base: b, Quote: q}, nil
}

// NormalizeCurrency upper-cases a currency code and checks it is three letters
func NormalizeCurrency(code string) (string, error) {
	c := strings.ToUpper(strings.TrimSpace(code))
	if len(c) != 3 {
		return "", fmt.Errorf("%w: %q must be 3 characters", ErrInvalidCurrency, code)
	}
	for _, r := range c {
		if r < 'A' || r > 'Z' {
			return "", fmt.Errorf("%w: %q must contain only letters", ErrInvalidCurrency, code)
		}
	}
	return c, nil
}

// Reverse returns the pair with base and quote swapped
func (p CurrencyPair) Reverse() CurrencyPair {
	return CurrencyPair{Base: p.Quote, Quote: p.Base}
}

// IsIdentity reports whether base and quote are the same currency
func (p CurrencyPair) IsIdentity() bool {
	return p.Base == p.Quote
}

func (p CurrencyPair) String() string {
	return p.Base + "/" + p.Quote
}
