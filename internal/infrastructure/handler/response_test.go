package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/damon-houk/fx-route-engine/internal/domain/entity"
	"github.com/damon-houk/fx-route-engine/internal/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendServiceError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"Invalid currency", fmt.Errorf("%w: %q must be 3 characters", entity.ErrInvalidCurrency, "US"), http.StatusBadRequest, "Invalid currency code"},
		{"Invalid amount", entity.ErrInvalidAmount, http.StatusBadRequest, "Invalid amount"},
		{"Rate unavailable", &entity.RateUnavailableError{Pair: entity.CurrencyPair{Base: "USD", Quote: "XAU"}}, http.StatusNotFound, "No exchange rate available"},
		{"No routes", fmt.Errorf("%w for US->ZZ", entity.ErrNoRoutes), http.StatusNotFound, "No payment routes available"},
		{"Timeout", fmt.Errorf("failed to resolve USD/EUR: %w", context.DeadlineExceeded), http.StatusGatewayTimeout, "Request timed out"},
		{"Anything else", errors.New("disk on fire"), http.StatusInternalServerError, "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Setup
			w := httptest.NewRecorder()

			// Execute
			sendServiceError(w, mocks.NewQuietLogger(), tt.err, "req-1")

			// Assert
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

			var resp ErrorResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			assert.Equal(t, tt.message, resp.Error)
			assert.Equal(t, tt.status, resp.Status)
			assert.Equal(t, "req-1", resp.RequestID)
		})
	}
}

func TestDecodeAndValidate(t *testing.T) {
	t.Run("Collects every field error", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/routes/optimize",
			strings.NewReader(`{"from_country":"USA","amount":-1,"currency":"USD","urgency":"later"}`))

		var req OptimizeRouteRequest
		err := decodeAndValidate(r, &req)

		require.Error(t, err)
		desc := validationDescription(err)
		assert.Contains(t, desc, "from_country must be exactly 2 characters")
		assert.Contains(t, desc, "to_country is required")
		assert.Contains(t, desc, "amount must be greater than 0")
		assert.Contains(t, desc, "urgency must be one of: standard, urgent, economy")
	})

	t.Run("Nested items are validated", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/routes/batch",
			strings.NewReader(`{"payments":[{"from_country":"US","to_country":"GB","amount":10}]}`))

		var req OptimizeBatchRequest
		err := decodeAndValidate(r, &req)

		require.Error(t, err)
		assert.Contains(t, validationDescription(err), "payments[0].currency is required")
	})

	t.Run("Valid body passes", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/quotes",
			strings.NewReader(`{"base":"USD","quote":"EUR","rate":0.92}`))

		var req StoreQuoteRequest
		require.NoError(t, decodeAndValidate(r, &req))
		assert.Equal(t, 0.92, req.Rate)
	})
}
