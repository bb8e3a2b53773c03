package service

import (
	"context"
	"fmt"
	"math"

	"github.com/damon-houk/fx-route-engine/internal/domain/entity"
	"github.com/damon-houk/fx-route-engine/internal/domain/repository"
	"github.com/damon-houk/fx-route-engine/internal/infrastructure/logger"
	"github.com/damon-houk/fx-route-engine/internal/infrastructure/middleware"
)

// QuoteService ingests quotes into the persisted store
type QuoteService struct {
	quotes  repository.QuoteRepository
	history repository.HistoryRepository
	cache   RateCache
	logger  logger.Logger
}

// NewQuoteService creates a quote service. history and cache are optional.
func NewQuoteService(quotes repository.QuoteRepository, history repository.HistoryRepository, cache RateCache, log logger.Logger) *QuoteService {
	if log == nil {
		log = logger.GetDefaultLogger()
	}
	return &QuoteService{quotes: quotes, history: history, cache: cache, logger: log}
}

// StoreQuote persists the quote, appends it to the pair's history and drops
// any cached rate for both directions of the pair
func (s *QuoteService) StoreQuote(ctx context.Context, q *entity.RateQuote) (*entity.RateQuote, error) {
	requestID := middleware.GetRequestID(ctx)

	pair, err := entity.NewCurrencyPair(q.Base, q.Quote)
	if err != nil {
		return nil, err
	}
	if pair.IsIdentity() {
		return nil, fmt.Errorf("%w: base and quote must differ", entity.ErrInvalidCurrency)
	}
	if q.Rate <= 0 || math.IsNaN(q.Rate) || math.IsInf(q.Rate, 0) {
		return nil, fmt.Errorf("rate must be a positive value")
	}

	stored := *q
	stored.Base, stored.Quote = pair.Base, pair.Quote
	if err := s.quotes.StoreQuote(ctx, &stored); err != nil {
		s.logger.Error("Failed to store quote", map[string]interface{}{
			"request_id": requestID,
			"pair":       pair.String(),
			"error":      err.Error(),
		})
		return nil, fmt.Errorf("failed to store quote: %w", err)
	}

	if s.history != nil {
		sample := entity.RateSample{Rate: stored.Rate, ObservedAt: stored.ObservedAt}
		if err := s.history.AppendSample(ctx, pair, sample); err != nil {
			s.logger.Warn("Failed to append history sample", map[string]interface{}{
				"request_id": requestID,
				"pair":       pair.String(),
				"error":      err.Error(),
			})
		}
	}

	if s.cache != nil {
		s.cache.Invalidate(ctx, pair)
		s.cache.Invalidate(ctx, pair.Reverse())
	}

	s.logger.Info("Quote stored", map[string]interface{}{
		"request_id": requestID,
		"quote_id":   stored.ID,
		"pair":       pair.String(),
		"rate":       stored.Rate,
		"source":     stored.Source,
	})

	return &stored, nil
}
