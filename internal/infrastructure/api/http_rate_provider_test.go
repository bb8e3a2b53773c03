package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/damon-houk/fx-route-engine/internal/infrastructure/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPRateProvider(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/latest", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		base := r.URL.Query().Get("base")
		symbols := r.URL.Query().Get("symbols")
		w.Header().Set("Content-Type", "application/json")

		switch {
		case base == "USD" && symbols == "EUR":
			w.Write([]byte(`{"base":"USD","date":"2024-04-15","rates":{"EUR":0.86}}`))
		case base == "USD" && symbols == "GBP":
			w.Write([]byte(`{"base":"EUR","date":"2024-04-15","rates":{"GBP":0.79}}`))
		case base == "USD" && symbols == "JPY":
			w.Write([]byte(`{"base":"USD","rates":{}}`))
		case base == "USD" && symbols == "CHF":
			w.Write([]byte(`not json`))
		case base == "USD" && symbols == "SLOW":
			time.Sleep(200 * time.Millisecond)
			w.Write([]byte(`{"base":"USD","rates":{"SLOW":1}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	log := logger.NewJSONLogger(&bytes.Buffer{}, logger.InfoLevel)
	provider := NewHTTPRateProvider("oer", server.URL, "secret", nil, log)
	ctx := context.Background()

	assert.Equal(t, "oer", provider.Name())

	rate, err := provider.FetchRate(ctx, "USD", "EUR")
	require.NoError(t, err)
	assert.Equal(t, 0.86, rate)

	_, err = provider.FetchRate(ctx, "USD", "GBP")
	assert.ErrorContains(t, err, "answered for base EUR")

	_, err = provider.FetchRate(ctx, "USD", "JPY")
	assert.ErrorContains(t, err, "no rate")

	_, err = provider.FetchRate(ctx, "USD", "CHF")
	assert.ErrorContains(t, err, "failed to decode")

	_, err = provider.FetchRate(ctx, "USD", "AED")
	assert.ErrorContains(t, err, "error status: 404")

	shortCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = provider.FetchRate(shortCtx, "USD", "SLOW")
	assert.Error(t, err)
}
