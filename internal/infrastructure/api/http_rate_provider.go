package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/damon-houk/fx-route-engine/internal/infrastructure/logger"
)

// latestResponse is the common "latest rates" shape served by ECB mirrors
// and most commercial FX APIs
type latestResponse struct {
	Base  string             `json:"base"`
	Date  string             `json:"date"`
	Rates map[string]float64 `json:"rates"`
}

// HTTPRateProvider queries a JSON endpoint of the form
// GET {baseURL}/latest?base=USD&symbols=EUR
type HTTPRateProvider struct {
	name       string
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     logger.Logger
}

// NewHTTPRateProvider creates a provider client. apiKey is sent as a bearer
// token when set.
func NewHTTPRateProvider(name, baseURL, apiKey string, httpClient *http.Client, log logger.Logger) *HTTPRateProvider {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if log == nil {
		log = logger.GetDefaultLogger()
	}

	return &HTTPRateProvider{
		name:       name,
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: httpClient,
		logger:     log,
	}
}

// Name identifies the provider
func (p *HTTPRateProvider) Name() string {
	return p.name
}

// FetchRate returns the provider's latest rate for the pair
func (p *HTTPRateProvider) FetchRate(ctx context.Context, base, quote string) (float64, error) {
	q := url.Values{}
	q.Set("base", base)
	q.Set("symbols", quote)
	reqURL := p.baseURL + "/latest?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%s returned error status: %d", p.name, resp.StatusCode)
	}

	var body latestResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("failed to decode response: %w", err)
	}

	rate, ok := body.Rates[quote]
	if !ok {
		return 0, fmt.Errorf("%s returned no rate for %s/%s", p.name, base, quote)
	}
	if body.Base != "" && body.Base != base {
		return 0, fmt.Errorf("%s answered for base %s, requested %s", p.name, body.Base, base)
	}

	p.logger.Debug("Provider rate fetched", map[string]interface{}{
		"provider": p.name,
		"pair":     base + "/" + quote,
		"rate":     rate,
		"date":     body.Date,
	})

	return rate, nil
}
