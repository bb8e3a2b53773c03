package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/damon-houk/fx-route-engine/internal/domain/entity"
	"github.com/dgraph-io/badger/v3"
	"github.com/google/uuid"
)

// BadgerQuoteRepository implements repository.QuoteRepository using BadgerDB.
// Keys are quote:BASE:QUOTE:<observed-at> so the newest quote sorts last.
type BadgerQuoteRepository struct {
	db  *badger.DB
	now func() time.Time
}

// NewBadgerQuoteRepository creates a new BadgerDB quote repository
func NewBadgerQuoteRepository(db *badger.DB) *BadgerQuoteRepository {
	return &BadgerQuoteRepository{db: db, now: time.Now}
}

func quotePairPrefix(base, quote string) []byte {
	return []byte(quotePrefix + base + ":" + quote + ":")
}

// StoreQuote saves a quote, assigning an ID and observation time when missing
func (r *BadgerQuoteRepository) StoreQuote(ctx context.Context, q *entity.RateQuote) error {
	if q.Rate <= 0 {
		return fmt.Errorf("invalid quote rate: %f", q.Rate)
	}
	if q.ID == "" {
		q.ID = uuid.New().String()
	}
	if q.ObservedAt.IsZero() {
		q.ObservedAt = r.now().UTC()
	}

	data, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("failed to marshal quote: %w", err)
	}

	key := append(quotePairPrefix(q.Base, q.Quote), []byte(timeKey(q.ObservedAt)+":"+q.ID)...)
	err = r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
	if err != nil {
		return fmt.Errorf("failed to store quote: %w", err)
	}

	return nil
}

// FindLatestActiveQuote returns the newest quote for the ordered pair that is
// active and unexpired
func (r *BadgerQuoteRepository) FindLatestActiveQuote(ctx context.Context, base, quote string) (*entity.RateQuote, error) {
	prefix := quotePairPrefix(base, quote)
	now := r.now()
	var found *entity.RateQuote

	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(seekLast(prefix)); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var q entity.RateQuote
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &q)
			}); err != nil {
				return err
			}

			if q.IsActiveAt(now) {
				found = &q
				return nil
			}
		}
		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to retrieve quote: %w", err)
	}
	if found == nil {
		return nil, fmt.Errorf("%w: %s/%s", entity.ErrQuoteNotFound, base, quote)
	}

	return found, nil
}
