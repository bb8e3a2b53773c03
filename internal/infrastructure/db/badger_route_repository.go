package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/damon-houk/fx-route-engine/internal/domain/entity"
	"github.com/dgraph-io/badger/v3"
)

// RouteRecord is a catalog entry. Fees are applied to the requested amount
// when routes are listed.
type RouteRecord struct {
	FromCountry        string   `json:"from_country"`
	ToCountry          string   `json:"to_country"`
	Provider           string   `json:"provider"`
	Method             string   `json:"method"`
	FixedFee           float64  `json:"fixed_fee"`
	PercentFee         float64  `json:"percent_fee"`
	EstimatedTimeHours float64  `json:"estimated_time_hours"`
	Reliability        float64  `json:"reliability"`
	Coverage           []string `json:"coverage"`
	Currencies         []string `json:"currencies,omitempty"`
	Requirements       []string `json:"requirements,omitempty"`
}

func (rec RouteRecord) supports(currency string) bool {
	if len(rec.Currencies) == 0 {
		return true
	}
	for _, c := range rec.Currencies {
		if c == currency {
			return true
		}
	}
	return false
}

func (rec RouteRecord) option(amount float64) entity.RouteOption {
	return entity.RouteOption{
		Provider:      rec.Provider,
		Method:        rec.Method,
		EstimatedCost: rec.FixedFee + amount*rec.PercentFee/100,
		FixedFee:      rec.FixedFee,
		PercentFee:    rec.PercentFee,
		EstimatedTime: time.Duration(rec.EstimatedTimeHours * float64(time.Hour)),
		Reliability:   rec.Reliability,
		Coverage:      rec.Coverage,
		Requirements:  rec.Requirements,
	}
}

type performanceRecord struct {
	Score   float64   `json:"score"`
	Samples int       `json:"samples"`
	Updated time.Time `json:"updated"`
}

// BadgerRouteRepository holds the route catalog and the smoothed route
// performance scores. Catalog entries for the corridor "*->*" apply to every
// corridor without its own entries.
type BadgerRouteRepository struct {
	db        *badger.DB
	smoothing float64
	prior     float64
}

// NewBadgerRouteRepository creates a route repository. smoothing is the
// exponential moving average factor applied to each outcome and prior is the
// score an unobserved route starts from.
func NewBadgerRouteRepository(db *badger.DB, smoothing, prior float64) *BadgerRouteRepository {
	if smoothing <= 0 || smoothing > 1 {
		smoothing = 0.2
	}
	if prior < 0 || prior > 100 {
		prior = 75
	}
	return &BadgerRouteRepository{db: db, smoothing: smoothing, prior: prior}
}

func corridorPrefix(from, to string) []byte {
	return []byte(routePrefix + from + ":" + to + ":")
}

// SaveRoute adds or replaces a catalog entry
func (r *BadgerRouteRepository) SaveRoute(ctx context.Context, rec RouteRecord) error {
	if rec.Provider == "" || rec.FromCountry == "" || rec.ToCountry == "" {
		return errors.New("route requires provider and corridor")
	}
	if rec.Reliability < 0 || rec.Reliability > 1 {
		return fmt.Errorf("route reliability %f outside [0,1]", rec.Reliability)
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal route: %w", err)
	}

	key := append(corridorPrefix(rec.FromCountry, rec.ToCountry), []byte(rec.Provider+":"+rec.Method)...)
	if err := r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	}); err != nil {
		return fmt.Errorf("failed to store route: %w", err)
	}
	return nil
}

// SeedDefaults stores the default catalog when the catalog is empty
func (r *BadgerRouteRepository) SeedDefaults(ctx context.Context) (int, error) {
	empty := true
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(routePrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		it.Rewind()
		empty = !it.Valid()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to inspect route catalog: %w", err)
	}
	if !empty {
		return 0, nil
	}

	defaults := DefaultRouteCatalog()
	for _, rec := range defaults {
		if err := r.SaveRoute(ctx, rec); err != nil {
			return 0, err
		}
	}
	return len(defaults), nil
}

// ListRoutes returns the corridor's routes priced for amount, falling back to
// the global catalog when the corridor has no entries of its own
func (r *BadgerRouteRepository) ListRoutes(ctx context.Context, fromCountry, toCountry string, amount float64, currency string) ([]entity.RouteOption, error) {
	records, err := r.records(ctx, corridorPrefix(fromCountry, toCountry))
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		records, err = r.records(ctx, corridorPrefix(wildcard, wildcard))
		if err != nil {
			return nil, err
		}
	}

	options := make([]entity.RouteOption, 0, len(records))
	for _, rec := range records {
		if !rec.supports(currency) {
			continue
		}
		options = append(options, rec.option(amount))
	}
	return options, nil
}

func (r *BadgerRouteRepository) records(ctx context.Context, prefix []byte) ([]RouteRecord, error) {
	var records []RouteRecord

	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var rec RouteRecord
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return err
			}
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list routes: %w", err)
	}

	return records, nil
}

func perfKey(provider string, corridor entity.Corridor) []byte {
	return []byte(perfPrefix + provider + ":" + corridor.FromCountry + ":" + corridor.ToCountry)
}

// Score returns the smoothed historical score for a provider on a corridor
func (r *BadgerRouteRepository) Score(ctx context.Context, provider string, corridor entity.Corridor) (float64, bool, error) {
	var rec performanceRecord

	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(perfKey(provider, corridor))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read route performance: %w", err)
	}

	return rec.Score, true, nil
}

// RecordOutcome folds a success (100) or failure (0) into the provider's
// exponential moving average
func (r *BadgerRouteRepository) RecordOutcome(ctx context.Context, provider string, corridor entity.Corridor, success bool) error {
	observed := 0.0
	if success {
		observed = 100
	}
	key := perfKey(provider, corridor)

	err := r.db.Update(func(txn *badger.Txn) error {
		rec := performanceRecord{Score: r.prior}

		item, err := txn.Get(key)
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
		case err != nil:
			return err
		default:
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return err
			}
		}

		rec.Score = r.smoothing*observed + (1-r.smoothing)*rec.Score
		rec.Samples++
		rec.Updated = time.Now().UTC()

		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return txn.Set(key, data)
	})
	if err != nil {
		return fmt.Errorf("failed to record route outcome: %w", err)
	}
	return nil
}
