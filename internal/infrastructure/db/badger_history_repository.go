package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/damon-houk/fx-route-engine/internal/domain/entity"
	"github.com/dgraph-io/badger/v3"
	"github.com/google/uuid"
)

// DefaultPatternLookback bounds how many samples feed the hourly patterns
const DefaultPatternLookback = 24 * 30

// BadgerHistoryRepository stores rate samples per pair and derives intraday
// favorability from them. It implements both repository.HistoryRepository
// and repository.HourlyPatternSource.
type BadgerHistoryRepository struct {
	db       *badger.DB
	lookback int
}

// NewBadgerHistoryRepository creates a history repository
func NewBadgerHistoryRepository(db *badger.DB) *BadgerHistoryRepository {
	return &BadgerHistoryRepository{db: db, lookback: DefaultPatternLookback}
}

func historyPairPrefix(pair entity.CurrencyPair) []byte {
	return []byte(historyPrefix + pair.Base + ":" + pair.Quote + ":")
}

// AppendSample records a new observation for the pair
func (r *BadgerHistoryRepository) AppendSample(ctx context.Context, pair entity.CurrencyPair, sample entity.RateSample) error {
	if sample.Rate <= 0 {
		return fmt.Errorf("invalid sample rate: %f", sample.Rate)
	}

	data, err := json.Marshal(sample)
	if err != nil {
		return fmt.Errorf("failed to marshal sample: %w", err)
	}

	// samples observed at the same instant must not overwrite each other
	key := append(historyPairPrefix(pair), []byte(timeKey(sample.ObservedAt)+":"+uuid.New().String())...)
	if err := r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	}); err != nil {
		return fmt.Errorf("failed to store sample: %w", err)
	}

	return nil
}

// GetHistory returns the newest window samples, oldest first
func (r *BadgerHistoryRepository) GetHistory(ctx context.Context, pair entity.CurrencyPair, window int) ([]entity.RateSample, error) {
	if window <= 0 {
		return nil, nil
	}

	samples, err := r.latest(ctx, pair, window)
	if err != nil {
		return nil, fmt.Errorf("failed to read history for %s: %w", pair, err)
	}

	// latest walks newest to oldest
	for i, j := 0, len(samples)-1; i < j; i, j = i+1, j-1 {
		samples[i], samples[j] = samples[j], samples[i]
	}
	return samples, nil
}

// GetHourlyPatterns scores each UTC hour by how far its mean rate sits above
// the overall mean, in percent. Hours without samples are omitted.
func (r *BadgerHistoryRepository) GetHourlyPatterns(ctx context.Context, pair entity.CurrencyPair) (map[int]float64, error) {
	samples, err := r.latest(ctx, pair, r.lookback)
	if err != nil {
		return nil, fmt.Errorf("failed to read history for %s: %w", pair, err)
	}
	if len(samples) == 0 {
		return map[int]float64{}, nil
	}

	var sums, counts [24]float64
	total := 0.0
	for _, s := range samples {
		h := s.ObservedAt.UTC().Hour()
		sums[h] += s.Rate
		counts[h]++
		total += s.Rate
	}
	mean := total / float64(len(samples))

	patterns := make(map[int]float64)
	for h := 0; h < 24; h++ {
		if counts[h] == 0 {
			continue
		}
		patterns[h] = (sums[h]/counts[h]/mean - 1) * 100
	}
	return patterns, nil
}

func (r *BadgerHistoryRepository) latest(ctx context.Context, pair entity.CurrencyPair, limit int) ([]entity.RateSample, error) {
	prefix := historyPairPrefix(pair)
	samples := make([]entity.RateSample, 0, limit)

	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(seekLast(prefix)); it.ValidForPrefix(prefix) && len(samples) < limit; it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var s entity.RateSample
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &s)
			}); err != nil {
				return err
			}
			samples = append(samples, s)
		}
		return nil
	})

	return samples, err
}
