package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/damon-houk/fx-route-engine/internal/application/service"
	"github.com/damon-houk/fx-route-engine/internal/domain/entity"
	"github.com/damon-houk/fx-route-engine/internal/infrastructure/cache"
	"github.com/damon-houk/fx-route-engine/internal/infrastructure/db"
	"github.com/damon-houk/fx-route-engine/internal/infrastructure/handler"
	"github.com/damon-houk/fx-route-engine/internal/infrastructure/logger"
	"github.com/damon-houk/fx-route-engine/internal/infrastructure/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubProvider answers from a fixed table and fails for everything else
type stubProvider struct {
	rates map[string]float64
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) FetchRate(_ context.Context, base, quote string) (float64, error) {
	if rate, ok := p.rates[base+"/"+quote]; ok {
		return rate, nil
	}
	return 0, fmt.Errorf("stub has no rate for %s/%s", base, quote)
}

// setupTestServer wires the real services over an in-memory badger database
func setupTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	badgerDB, err := db.OpenBadger("", true)
	require.NoError(t, err)

	log := logger.NewJSONLogger(io.Discard, logger.ErrorLevel)
	reg := prometheus.NewRegistry()
	rec := metrics.NewRecorder(reg)

	quotes := db.NewBadgerQuoteRepository(badgerDB)
	history := db.NewBadgerHistoryRepository(badgerDB)
	routes := db.NewBadgerRouteRepository(badgerDB, 0.2, service.DefaultHistoryScore)
	_, err = routes.SeedDefaults(context.Background())
	require.NoError(t, err)

	rateCache := cache.NewRateCache(time.Hour)
	provider := &stubProvider{rates: map[string]float64{"USD/JPY": 151.2}}
	aggregator := service.NewSourceAggregator([]service.WeightedProvider{{Provider: provider, Weight: 1}}, time.Second, log, rec)
	resolver := service.NewRateResolver(rateCache, quotes, aggregator, service.ResolverConfig{AnchorCurrency: "USD"}, log, rec).
		WithHistory(history)

	analyzer := service.NewPredictiveAnalyzer(history, 0, 0, time.Second, log)
	advisor := service.NewTimingAdvisor(history, time.Second, log)
	conversions := service.NewConversionService(resolver, analyzer, advisor, 0, log)
	quoteService := service.NewQuoteService(quotes, history, rateCache, log)

	scorer := service.NewRouteScorer(routes, service.DefaultHistoryScore, time.Second, log)
	routeService := service.NewRouteService(routes, routes, scorer, time.Second, log)
	batch := service.NewBatchOptimizer(resolver, routeService, 0, log, rec)

	router := handler.NewRouter(log, rec, reg,
		handler.NewRateHandler(resolver, conversions, quoteService, log),
		handler.NewRouteHandler(routeService, batch, log),
	)
	server := httptest.NewServer(router)

	t.Cleanup(func() {
		server.Close()
		badgerDB.Close()
	})
	return server
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	return resp
}

func doDelete(t *testing.T, url string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodDelete, url, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func getRate(t *testing.T, server *httptest.Server, base, quote string) (int, handler.RateResponse) {
	t.Helper()
	resp, err := http.Get(server.URL + "/rates/" + base + "/" + quote)
	require.NoError(t, err)
	status := resp.StatusCode
	if status != http.StatusOK {
		resp.Body.Close()
		return status, handler.RateResponse{}
	}
	return status, decode[handler.RateResponse](t, resp)
}

func TestRateResolutionOverHTTP(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	server := setupTestServer(t)

	// Step 1: publish two anchor quotes
	for _, body := range []string{
		`{"base":"USD","quote":"EUR","rate":0.92,"source":"desk"}`,
		`{"base":"usd","quote":"gbp","rate":0.79}`,
	} {
		resp := postJSON(t, server.URL+"/quotes", body)
		created := decode[handler.StoreQuoteResponse](t, resp)
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		assert.NotEmpty(t, created.ID)
	}

	t.Run("Direct quote then cache", func(t *testing.T) {
		status, rate := getRate(t, server, "USD", "EUR")
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, "direct_quote", rate.Tier)
		assert.Equal(t, 0.92, rate.Rate)
		assert.Equal(t, []string{"desk"}, rate.Sources)

		status, rate = getRate(t, server, "USD", "EUR")
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, "cache", rate.Tier)
		assert.Equal(t, 0.92, rate.Rate)
	})

	t.Run("Reverse quote", func(t *testing.T) {
		status, rate := getRate(t, server, "GBP", "USD")
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, "reverse_quote", rate.Tier)
		assert.InDelta(t, 1/0.79, rate.Rate, 1e-12)
		assert.Equal(t, []string{"manual"}, rate.Sources)
	})

	t.Run("Triangulation through the anchor", func(t *testing.T) {
		status, rate := getRate(t, server, "EUR", "GBP")
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, "triangulation", rate.Tier)
		assert.InDelta(t, 0.79/0.92, rate.Rate, 1e-12)
	})

	t.Run("Aggregator fallback", func(t *testing.T) {
		status, rate := getRate(t, server, "USD", "JPY")
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, "aggregator", rate.Tier)
		assert.Equal(t, 151.2, rate.Rate)
		assert.Equal(t, []string{"stub"}, rate.Sources)
	})

	t.Run("Identity", func(t *testing.T) {
		status, rate := getRate(t, server, "CHF", "CHF")
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, "identity", rate.Tier)
		assert.Equal(t, 1.0, rate.Rate)
	})

	t.Run("Unavailable pair is 404", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/rates/USD/XAU")
		require.NoError(t, err)
		errResp := decode[handler.ErrorResponse](t, resp)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "No exchange rate available", errResp.Error)
		assert.NotEmpty(t, errResp.RequestID)
	})

	t.Run("Invalid currency is 400", func(t *testing.T) {
		status, _ := getRate(t, server, "US1", "EUR")
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("Publishing a quote replaces the cached rate", func(t *testing.T) {
		resp := postJSON(t, server.URL+"/quotes", `{"base":"USD","quote":"EUR","rate":0.95}`)
		resp.Body.Close()
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		status, rate := getRate(t, server, "USD", "EUR")
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, "direct_quote", rate.Tier)
		assert.Equal(t, 0.95, rate.Rate)
	})

	t.Run("Cache administration", func(t *testing.T) {
		resp := doDelete(t, server.URL+"/rates/cache/USD/EUR")
		resp.Body.Close()
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)

		_, rate := getRate(t, server, "USD", "EUR")
		assert.Equal(t, "direct_quote", rate.Tier)

		resp = doDelete(t, server.URL+"/rates/cache")
		resp.Body.Close()
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)

		_, rate = getRate(t, server, "USD", "JPY")
		assert.Equal(t, "aggregator", rate.Tier)

		resp = doDelete(t, server.URL+"/rates/cache/USD/EURO")
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestQuoteValidation(t *testing.T) {
	server := setupTestServer(t)

	tests := []struct {
		name        string
		body        string
		description string
	}{
		{"Malformed JSON", `{"base":`, "not valid JSON"},
		{"Missing base", `{"quote":"EUR","rate":1.1}`, "base is required"},
		{"Short currency", `{"base":"US","quote":"EUR","rate":1.1}`, "base must be exactly 3 characters"},
		{"Non-positive rate", `{"base":"USD","quote":"EUR","rate":0}`, "rate must be greater than 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, server.URL+"/quotes", tt.body)
			errResp := decode[handler.ErrorResponse](t, resp)

			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, "Invalid request body", errResp.Error)
			assert.Contains(t, errResp.Description, tt.description)
		})
	}

	t.Run("Identity pair is rejected by the service", func(t *testing.T) {
		resp := postJSON(t, server.URL+"/quotes", `{"base":"USD","quote":"USD","rate":1}`)
		errResp := decode[handler.ErrorResponse](t, resp)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "Invalid currency code", errResp.Error)
	})
}

func TestConversionEndpoints(t *testing.T) {
	server := setupTestServer(t)
	resp := postJSON(t, server.URL+"/quotes", `{"base":"USD","quote":"EUR","rate":0.92}`)
	resp.Body.Close()

	t.Run("Convert", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/convert?amount=100&from=USD&to=EUR")
		require.NoError(t, err)
		result := decode[service.ConversionResult](t, resp)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, 92.0, result.ConvertedAmount)
		assert.Equal(t, "EUR", result.To)
	})

	t.Run("Convert rejects bad parameters", func(t *testing.T) {
		for _, query := range []string{"amount=100&from=USD", "amount=abc&from=USD&to=EUR", "amount=-5&from=USD&to=EUR"} {
			resp, err := http.Get(server.URL + "/convert?" + query)
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode, query)
		}
	})

	t.Run("Enhanced rate", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/rates/USD/EUR/enhanced")
		require.NoError(t, err)
		enhanced := decode[service.EnhancedRate](t, resp)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, 0.92, enhanced.CurrentRate)
		assert.True(t, enhanced.Prediction.Stale)
		assert.Equal(t, entity.RecommendHold, enhanced.Prediction.Recommendation)
	})

	t.Run("Batch conversion advice", func(t *testing.T) {
		resp := postJSON(t, server.URL+"/conversions/optimize", `{"conversions":[
			{"id":"a","amount":100,"from":"USD","to":"EUR"},
			{"amount":50,"from":"USD","to":"EUR"},
			{"id":"c","amount":10,"from":"USD","to":"XAU"}
		]}`)
		recs := decode[[]service.PairRecommendation](t, resp)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		require.Len(t, recs, 2)
		assert.Equal(t, "EUR", recs[0].Pair.Quote)
		require.Len(t, recs[0].RequestIDs, 2)
		assert.Equal(t, "a", recs[0].RequestIDs[0])
		assert.NotEmpty(t, recs[0].RequestIDs[1])
		assert.Equal(t, 138.0, recs[0].ConvertedAmount)
		assert.Contains(t, recs[1].Failure, "no exchange rate available")
	})

	t.Run("Empty batch is rejected", func(t *testing.T) {
		resp := postJSON(t, server.URL+"/conversions/optimize", `{"conversions":[]}`)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestRouteEndpoints(t *testing.T) {
	server := setupTestServer(t)
	resp := postJSON(t, server.URL+"/quotes", `{"base":"USD","quote":"GBP","rate":0.79}`)
	resp.Body.Close()

	t.Run("Optimize a single payment", func(t *testing.T) {
		resp := postJSON(t, server.URL+"/routes/optimize",
			`{"from_country":"US","to_country":"GB","amount":1000,"currency":"USD","urgency":"standard"}`)
		rec := decode[service.RouteRecommendation](t, resp)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.NotEmpty(t, rec.Recommended.Route.Provider)
		assert.NotEmpty(t, rec.Alternatives)
		assert.GreaterOrEqual(t, rec.Savings, 0.0)
		for _, alt := range rec.Alternatives {
			assert.LessOrEqual(t, alt.Score, rec.Recommended.Score)
		}
	})

	t.Run("Urgent payments stay within a day", func(t *testing.T) {
		resp := postJSON(t, server.URL+"/routes/optimize",
			`{"from_country":"US","to_country":"GB","amount":1000,"currency":"USD","urgency":"urgent"}`)
		rec := decode[service.RouteRecommendation](t, resp)

		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.LessOrEqual(t, rec.Recommended.Route.EstimatedTime, 24*time.Hour)
		for _, alt := range rec.Alternatives {
			assert.NotEqual(t, "swift", alt.Route.Provider)
		}
	})

	t.Run("Unknown urgency is rejected", func(t *testing.T) {
		resp := postJSON(t, server.URL+"/routes/optimize",
			`{"from_country":"US","to_country":"GB","amount":1000,"currency":"USD","urgency":"asap"}`)
		errResp := decode[handler.ErrorResponse](t, resp)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, errResp.Description, "urgency must be one of: standard, urgent, economy")
	})

	t.Run("Batch with a failing item", func(t *testing.T) {
		resp := postJSON(t, server.URL+"/routes/batch", `{"payments":[
			{"id":"p1","from_country":"US","to_country":"GB","amount":1000,"currency":"USD","target_currency":"GBP"},
			{"id":"p2","from_country":"US","to_country":"GB","amount":500,"currency":"USD","target_currency":"XAU"},
			{"id":"p3","from_country":"US","to_country":"GB","amount":1000,"currency":"USD","target_currency":"GBP"}
		]}`)
		result := decode[entity.BatchResult](t, resp)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		require.Len(t, result.Items, 3)
		assert.Equal(t, 2, result.Succeeded)
		assert.Equal(t, 1, result.Failed)
		assert.Equal(t, 790.0, result.Items[0].ConvertedAmount)
		assert.True(t, result.Items[1].Failed())
		require.Len(t, result.ConsolidationGroups, 1)
		assert.Equal(t, []string{"p1", "p3"}, result.ConsolidationGroups[0].RequestIDs)
	})

	t.Run("Record outcomes", func(t *testing.T) {
		resp := postJSON(t, server.URL+"/routes/outcomes",
			`{"provider":"wise","from_country":"US","to_country":"GB","success":false}`)
		resp.Body.Close()
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)

		resp = postJSON(t, server.URL+"/routes/outcomes",
			`{"provider":"wise","from_country":"US","to_country":"GB"}`)
		errResp := decode[handler.ErrorResponse](t, resp)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, errResp.Description, "success is required")
	})
}

func TestOperationalEndpoints(t *testing.T) {
	server := setupTestServer(t)

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	health := decode[handler.HealthResponse](t, resp)
	assert.Equal(t, "ok", health.Status)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	_, _ = getRate(t, server, "EUR", "EUR")

	resp, err = http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), `fx_rate_resolutions_total{tier="identity"} 1`))
	assert.True(t, strings.Contains(string(body), `fx_http_request_duration_seconds_count{method="GET",route="/health",status="200"} 1`))
}
