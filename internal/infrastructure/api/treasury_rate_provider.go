// Package api holds the HTTP clients for external rate providers
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/damon-houk/fx-route-engine/internal/infrastructure/logger"
)

const (
	treasuryBaseURL  = "https://api.fiscaldata.treasury.gov/services/api/fiscal_service"
	exchangeRatePath = "/v1/accounting/od/rates_of_exchange"

	defaultTreasuryName = "treasury"
)

// treasuryCurrencies maps ISO codes to the Treasury's country-currency labels
var treasuryCurrencies = map[string]string{
	"AED": "United Arab Emirates-Dirham",
	"AUD": "Australia-Dollar",
	"CAD": "Canada-Dollar",
	"CHF": "Switzerland-Franc",
	"CNY": "China-Renminbi",
	"EUR": "Euro Zone-Euro",
	"GBP": "United Kingdom-Pound",
	"INR": "India-Rupee",
	"JPY": "Japan-Yen",
	"MXN": "Mexico-Peso",
	"SGD": "Singapore-Dollar",
}

// TreasuryRateProvider reads the U.S. Treasury rates of exchange. Rates are
// published against USD, so only pairs with USD on one side are supported.
type TreasuryRateProvider struct {
	name       string
	baseURL    string
	httpClient *http.Client
	logger     logger.Logger
	now        func() time.Time
}

// NewTreasuryRateProvider creates a new Treasury API client reporting under
// name, or "treasury" when name is empty
func NewTreasuryRateProvider(name string, httpClient *http.Client, log logger.Logger) *TreasuryRateProvider {
	if name == "" {
		name = defaultTreasuryName
	}
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: 10 * time.Second,
		}
	}
	if log == nil {
		log = logger.GetDefaultLogger()
	}

	return &TreasuryRateProvider{
		name:       name,
		baseURL:    treasuryBaseURL,
		httpClient: httpClient,
		logger:     log,
		now:        time.Now,
	}
}

// WithBaseURL points the client at another host, for tests and mirrors
func (c *TreasuryRateProvider) WithBaseURL(baseURL string) *TreasuryRateProvider {
	if baseURL != "" {
		c.baseURL = baseURL
	}
	return c
}

// TreasuryResponse represents the response structure from the Treasury API
type TreasuryResponse struct {
	Data []struct {
		CountryCurrencyDesc string `json:"country_currency_desc"`
		ExchangeRate        string `json:"exchange_rate"`
		RecordDate          string `json:"record_date"`
	} `json:"data"`
	Meta struct {
		Count int `json:"count"`
	} `json:"meta"`
}

// Name identifies the provider
func (c *TreasuryRateProvider) Name() string {
	return c.name
}

// FetchRate retrieves the latest published rate within the past six months
func (c *TreasuryRateProvider) FetchRate(ctx context.Context, base, quote string) (float64, error) {
	switch {
	case base == "USD":
		return c.fetchUSDRate(ctx, quote)
	case quote == "USD":
		rate, err := c.fetchUSDRate(ctx, base)
		if err != nil {
			return 0, err
		}
		return 1 / rate, nil
	default:
		return 0, fmt.Errorf("treasury publishes USD rates only, got %s/%s", base, quote)
	}
}

func (c *TreasuryRateProvider) fetchUSDRate(ctx context.Context, currency string) (float64, error) {
	desc, ok := treasuryCurrencies[currency]
	if !ok {
		return 0, fmt.Errorf("currency %s not published by treasury", currency)
	}

	today := c.now().UTC()
	sixMonthsAgo := today.AddDate(0, -6, 0)

	reqURL := fmt.Sprintf("%s%s?filter=country_currency_desc:eq:%s,record_date:lte:%s,record_date:gte:%s&sort=-record_date&page[size]=1",
		c.baseURL,
		exchangeRatePath,
		url.QueryEscape(desc),
		today.Format("2006-01-02"),
		sixMonthsAgo.Format("2006-01-02"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Add("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to execute request: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Warn("Error closing response body", map[string]interface{}{
				"provider": c.Name(),
				"error":    closeErr.Error(),
			})
		}
	}()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("failed to read response body: %w", err)
	}

	c.logger.Debug("Treasury API response", map[string]interface{}{
		"currency": currency,
		"status":   resp.StatusCode,
		"bytes":    len(bodyBytes),
	})

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("API returned error status: %d", resp.StatusCode)
	}

	var treasuryResp TreasuryResponse
	if err := json.Unmarshal(bodyBytes, &treasuryResp); err != nil {
		return 0, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(treasuryResp.Data) == 0 {
		return 0, fmt.Errorf("no exchange rate available within 6 months for currency %s", currency)
	}

	rate, err := strconv.ParseFloat(treasuryResp.Data[0].ExchangeRate, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse exchange rate '%s': %w", treasuryResp.Data[0].ExchangeRate, err)
	}
	if rate <= 0 {
		return 0, fmt.Errorf("invalid exchange rate value: %f", rate)
	}

	return rate, nil
}
