package entity

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCurrencyPair(t *testing.T) {
	t.Run("Normalizes case and whitespace", func(t *testing.T) {
		pair, err := NewCurrencyPair(" usd", "eur ")
		require.NoError(t, err)
		assert.Equal(t, CurrencyPair{Base: "USD", Quote: "EUR"}, pair)
		assert.Equal(t, "USD/EUR", pair.String())
	})

	t.Run("Rejects bad codes", func(t *testing.T) {
		for _, code := range []string{"", "US", "EURO", "U$D", "12A"} {
			_, err := NewCurrencyPair(code, "EUR")
			assert.True(t, errors.Is(err, ErrInvalidCurrency), code)
		}
	})

	t.Run("Reverse and identity", func(t *testing.T) {
		pair := CurrencyPair{Base: "GBP", Quote: "JPY"}
		assert.Equal(t, CurrencyPair{Base: "JPY", Quote: "GBP"}, pair.Reverse())
		assert.False(t, pair.IsIdentity())
		assert.True(t, CurrencyPair{Base: "JPY", Quote: "JPY"}.IsIdentity())
	})
}

func TestRateUnavailableError(t *testing.T) {
	err := error(&RateUnavailableError{Pair: CurrencyPair{Base: "GBP", Quote: "XYZ"}})
	assert.True(t, errors.Is(err, ErrRateUnavailable))
	assert.Contains(t, err.Error(), "GBP/XYZ")

	var rue *RateUnavailableError
	assert.True(t, errors.As(err, &rue))
	assert.Equal(t, "XYZ", rue.Pair.Quote)
}

func TestRouteOptionCovers(t *testing.T) {
	route := RouteOption{Coverage: []string{"DE", "FR"}}
	assert.True(t, route.Covers("DE"))
	assert.False(t, route.Covers("JP"))
	assert.True(t, RouteOption{Coverage: []string{"*"}}.Covers("JP"))
}
