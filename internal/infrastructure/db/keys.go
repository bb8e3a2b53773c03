// Package db implements the repositories on BadgerDB
package db

import (
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v3"
)

const (
	quotePrefix   = "quote:"
	historyPrefix = "hist:"
	routePrefix   = "route:"
	perfPrefix    = "perf:"

	wildcard = "*"
)

// timeKey renders a timestamp so that byte order matches time order
func timeKey(t time.Time) string {
	return fmt.Sprintf("%020d", t.UnixNano())
}

// seekLast returns the key to Seek to when iterating a prefix in reverse
func seekLast(prefix []byte) []byte {
	k := make([]byte, 0, len(prefix)+1)
	k = append(k, prefix...)
	return append(k, 0xFF)
}

// OpenBadger opens a BadgerDB at dir with Badger's own logger disabled
func OpenBadger(dir string, inMemory bool) (*badger.DB, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}
