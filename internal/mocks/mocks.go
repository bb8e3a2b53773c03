// internal/mocks/mocks.go
package mocks

import (
	"context"

	"github.com/damon-houk/fx-route-engine/internal/domain/entity"
	"github.com/damon-houk/fx-route-engine/internal/infrastructure/logger"
	"github.com/stretchr/testify/mock"
)

// MockQuoteRepository mocks the QuoteRepository interface
type MockQuoteRepository struct {
	mock.Mock
}

func (m *MockQuoteRepository) FindLatestActiveQuote(ctx context.Context, base, quote string) (*entity.RateQuote, error) {
	args := m.Called(ctx, base, quote)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.RateQuote), args.Error(1)
}

func (m *MockQuoteRepository) StoreQuote(ctx context.Context, q *entity.RateQuote) error {
	args := m.Called(ctx, q)
	return args.Error(0)
}

// MockHistoryRepository mocks the HistoryRepository and HourlyPatternSource interfaces
type MockHistoryRepository struct {
	mock.Mock
}

func (m *MockHistoryRepository) GetHistory(ctx context.Context, pair entity.CurrencyPair, window int) ([]entity.RateSample, error) {
	args := m.Called(ctx, pair, window)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.RateSample), args.Error(1)
}

func (m *MockHistoryRepository) AppendSample(ctx context.Context, pair entity.CurrencyPair, sample entity.RateSample) error {
	args := m.Called(ctx, pair, sample)
	return args.Error(0)
}

func (m *MockHistoryRepository) GetHourlyPatterns(ctx context.Context, pair entity.CurrencyPair) (map[int]float64, error) {
	args := m.Called(ctx, pair)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[int]float64), args.Error(1)
}

// MockRouteOptionProvider mocks the RouteOptionProvider interface
type MockRouteOptionProvider struct {
	mock.Mock
}

func (m *MockRouteOptionProvider) ListRoutes(ctx context.Context, fromCountry, toCountry string, amount float64, currency string) ([]entity.RouteOption, error) {
	args := m.Called(ctx, fromCountry, toCountry, amount, currency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.RouteOption), args.Error(1)
}

// MockRoutePerformanceRepository mocks the RoutePerformanceRepository interface
type MockRoutePerformanceRepository struct {
	mock.Mock
}

func (m *MockRoutePerformanceRepository) Score(ctx context.Context, provider string, corridor entity.Corridor) (float64, bool, error) {
	args := m.Called(ctx, provider, corridor)
	return args.Get(0).(float64), args.Bool(1), args.Error(2)
}

func (m *MockRoutePerformanceRepository) RecordOutcome(ctx context.Context, provider string, corridor entity.Corridor, success bool) error {
	args := m.Called(ctx, provider, corridor, success)
	return args.Error(0)
}

// MockRateProvider mocks the RateProvider interface
type MockRateProvider struct {
	mock.Mock
	ProviderName string
}

func (m *MockRateProvider) Name() string {
	return m.ProviderName
}

func (m *MockRateProvider) FetchRate(ctx context.Context, base, quote string) (float64, error) {
	args := m.Called(ctx, base, quote)
	return args.Get(0).(float64), args.Error(1)
}

// MockAggregator mocks the source aggregator used by the resolver
type MockAggregator struct {
	mock.Mock
}

func (m *MockAggregator) FetchAggregate(ctx context.Context, pair entity.CurrencyPair) (*entity.AggregatedRate, error) {
	args := m.Called(ctx, pair)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.AggregatedRate), args.Error(1)
}

// MockLogger mocks the logger interface
type MockLogger struct {
	mock.Mock
}

func (m *MockLogger) Debug(msg string, fields map[string]interface{}) {
	m.Called(msg, fields)
}

func (m *MockLogger) Info(msg string, fields map[string]interface{}) {
	m.Called(msg, fields)
}

func (m *MockLogger) Warn(msg string, fields map[string]interface{}) {
	m.Called(msg, fields)
}

func (m *MockLogger) Error(msg string, fields map[string]interface{}) {
	m.Called(msg, fields)
}

func (m *MockLogger) Fatal(msg string, fields map[string]interface{}) {
	m.Called(msg, fields)
}

func (m *MockLogger) WithField(key string, value interface{}) logger.Logger {
	args := m.Called(key, value)
	return args.Get(0).(logger.Logger)
}

func (m *MockLogger) WithFields(fields map[string]interface{}) logger.Logger {
	args := m.Called(fields)
	return args.Get(0).(logger.Logger)
}

// NewQuietLogger returns a MockLogger that accepts every log call
func NewQuietLogger() *MockLogger {
	m := new(MockLogger)
	for _, level := range []string{"Debug", "Info", "Warn", "Error"} {
		m.On(level, mock.Anything, mock.Anything).Maybe()
	}
	return m
}
