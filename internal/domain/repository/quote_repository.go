// Package repository defines the storage contracts the rate engine consumes
package repository

import (
	"context"

	"github.com/damon-houk/fx-route-engine/internal/domain/entity"
)

// QuoteRepository defines the interface for persisted rate quotes
type QuoteRepository interface {
	// FindLatestActiveQuote returns the most recent active quote for the
	// ordered pair, or entity.ErrQuoteNotFound
	FindLatestActiveQuote(ctx context.Context, base, quote string) (*entity.RateQuote, error)

	// StoreQuote persists a quote
	StoreQuote(ctx context.Context, quote *entity.RateQuote) error
}
