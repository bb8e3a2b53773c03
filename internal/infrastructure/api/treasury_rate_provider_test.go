package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/damon-houk/fx-route-engine/internal/infrastructure/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTreasuryServer(t *testing.T) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/v1/accounting/od/rates_of_exchange")

		filter := r.URL.Query().Get("filter")
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.Contains(filter, "country_currency_desc:eq:Euro Zone-Euro"):
			w.Write([]byte(`{
				"data": [
					{"country_currency_desc": "Euro Zone-Euro", "exchange_rate": "0.85", "record_date": "2024-03-31"}
				],
				"meta": {"count": 1}
			}`))
		case strings.Contains(filter, "Japan-Yen"):
			w.Write([]byte(`{"data": [], "meta": {"count": 0}}`))
		case strings.Contains(filter, "Canada-Dollar"):
			w.Write([]byte(`{"data": [{"exchange_rate": "abc"}], "meta": {"count": 1}}`))
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
}

func TestTreasuryRateProvider(t *testing.T) {
	server := newTreasuryServer(t)
	defer server.Close()

	log := logger.NewJSONLogger(&bytes.Buffer{}, logger.InfoLevel)
	client := NewTreasuryRateProvider("", nil, log).WithBaseURL(server.URL)
	client.now = func() time.Time { return time.Date(2024, 4, 15, 0, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	assert.Equal(t, "treasury", client.Name())

	t.Run("Configured name is reported", func(t *testing.T) {
		named := NewTreasuryRateProvider("us-treasury", nil, log)
		assert.Equal(t, "us-treasury", named.Name())
	})

	t.Run("USD base", func(t *testing.T) {
		rate, err := client.FetchRate(ctx, "USD", "EUR")
		require.NoError(t, err)
		assert.Equal(t, 0.85, rate)
	})

	t.Run("USD quote is inverted", func(t *testing.T) {
		rate, err := client.FetchRate(ctx, "EUR", "USD")
		require.NoError(t, err)
		assert.InDelta(t, 1/0.85, rate, 1e-12)
	})

	t.Run("Non-USD pair unsupported", func(t *testing.T) {
		_, err := client.FetchRate(ctx, "EUR", "GBP")
		assert.Error(t, err)
	})

	t.Run("Unknown currency", func(t *testing.T) {
		_, err := client.FetchRate(ctx, "USD", "XYZ")
		assert.Error(t, err)
	})

	t.Run("No data in window", func(t *testing.T) {
		_, err := client.FetchRate(ctx, "USD", "JPY")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no exchange rate available")
	})

	t.Run("Malformed rate", func(t *testing.T) {
		_, err := client.FetchRate(ctx, "USD", "CAD")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse exchange rate")
	})

	t.Run("Error status", func(t *testing.T) {
		_, err := client.FetchRate(ctx, "USD", "GBP")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "error status: 400")
	})
}
