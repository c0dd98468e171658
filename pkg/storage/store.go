package storage

import (
	"slices"
	"sync"

	"github.com/uhyunpark/polyperp/pkg/types"
)

// OrderRecord is an order the venue accepted
type OrderRecord struct {
	OrderID    string `json:"orderId"`
	Signer     string `json:"signer"`
	AcceptedAt int64  `json:"acceptedAt"` // unix ms
	types.SignedOrder
}

// OrderStore journals accepted orders so nonce replay protection survives a
// restart
type OrderStore interface {
	SaveOrder(r OrderRecord) error
	// LoadOrders returns every saved order in arrival order
	LoadOrders() ([]OrderRecord, error)
	Close() error
}

type MemoryStore struct {
	mu     sync.Mutex
	orders []OrderRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) SaveOrder(r OrderRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = append(s.orders, r)
	return nil
}

func (s *MemoryStore) LoadOrders() ([]OrderRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.orders), nil
}

func (s *MemoryStore) Close() error { return nil }

var (
	_ OrderStore = (*MemoryStore)(nil)
	_ OrderStore = (*PebbleStore)(nil)
)
