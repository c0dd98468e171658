package storage

import (
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/pebble"
)

type PebbleStore struct {
	db *pebble.DB
}

// NewPebbleStore opens (or creates) a store at path
func NewPebbleStore(path string) (*PebbleStore, error) {
	return OpenPebble(path, &pebble.Options{})
}

// OpenPebble opens a store with explicit options, e.g. an in-memory vfs
func OpenPebble(path string, opts *pebble.Options) (*PebbleStore, error) {
	db, err := pebble.Open(path, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble at %s: %w", path, err)
	}
	return &PebbleStore{db: db}, nil
}

func (s *PebbleStore) Close() error { return s.db.Close() }

// SaveOrder persists an order. The write is synced before returning.
func (s *PebbleStore) SaveOrder(r OrderRecord) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal order: %w", err)
	}

	if err := s.db.Set(orderKey(r), data, pebble.Sync); err != nil {
		return fmt.Errorf("failed to save order: %w", err)
	}
	return nil
}

// LoadOrders loads every order in arrival order
func (s *PebbleStore) LoadOrders() ([]OrderRecord, error) {
	prefix := []byte(prefixOrder)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open iterator: %w", err)
	}
	defer iter.Close()

	var orders []OrderRecord
	for iter.First(); iter.Valid(); iter.Next() {
		var r OrderRecord
		if err := json.Unmarshal(iter.Value(), &r); err != nil {
			return nil, fmt.Errorf("failed to unmarshal order %q: %w", iter.Key(), err)
		}
		orders = append(orders, r)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("failed to scan orders: %w", err)
	}
	return orders, nil
}
