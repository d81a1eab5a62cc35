package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"solana-token-sniper/internal/domain"
	"solana-token-sniper/internal/storage"
)

// OrderStore is an in-memory implementation of storage.OrderStore.
type OrderStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Order // keyed by order ID
	now  func() time.Time
}

// NewOrderStore creates a new in-memory order store.
func NewOrderStore() *OrderStore {
	return &OrderStore{
		data: make(map[string]*domain.Order),
		now:  time.Now,
	}
}

var _ storage.OrderStore = (*OrderStore)(nil)

// Insert adds a new order. Returns ErrDuplicateKey if the ID exists.
func (s *OrderStore) Insert(_ context.Context, o *domain.Order) error {
	if o == nil || o.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[o.ID]; exists {
		return storage.ErrDuplicateKey
	}
	s.data[o.ID] = cloneOrder(o)
	return nil
}

// GetByID retrieves an order by ID.
func (s *OrderStore) GetByID(_ context.Context, id string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.data[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return cloneOrder(o), nil
}

// ListActive returns monitored orders, oldest first.
func (s *OrderStore) ListActive(_ context.Context) ([]*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Order
	for _, o := range s.data {
		if o.Status.IsMonitored() {
			out = append(out, cloneOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// ListByUser returns a user's orders, newest first.
func (s *OrderStore) ListByUser(_ context.Context, userID string) ([]*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Order
	for _, o := range s.data {
		if o.UserID == userID {
			out = append(out, cloneOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// CompareAndSetStatus moves an order from expected to next under the store lock.
func (s *OrderStore) CompareAndSetStatus(_ context.Context, id string, expected, next domain.OrderStatus, mutate func(*domain.Order)) (*domain.Order, error) {
	if id == "" {
		return nil, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.data[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if cur.Status != expected {
		return nil, storage.ErrStatusConflict
	}

	updated := cloneOrder(cur)
	if mutate != nil {
		mutate(updated)
	}
	// ID and status are owned by the store.
	updated.ID = id
	updated.Status = next
	updated.UpdatedAt = s.now().UTC()

	s.data[id] = updated
	return cloneOrder(updated), nil
}

// Update overwrites the order if its stored status still equals expected.
func (s *OrderStore) Update(_ context.Context, o *domain.Order, expected domain.OrderStatus) error {
	if o == nil || o.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.data[o.ID]
	if !ok {
		return storage.ErrNotFound
	}
	if cur.Status != expected {
		return storage.ErrStatusConflict
	}

	updated := cloneOrder(o)
	updated.CreatedAt = cur.CreatedAt
	updated.UpdatedAt = s.now().UTC()
	s.data[o.ID] = updated
	return nil
}

func cloneOrder(o *domain.Order) *domain.Order {
	c := *o
	c.ExitPrice = clonePtr(o.ExitPrice)
	c.StopLoss = clonePtr(o.StopLoss)
	c.MaxTradesRemaining = clonePtr(o.MaxTradesRemaining)
	c.FilledEntryAt = clonePtr(o.FilledEntryAt)
	c.FilledExitAt = clonePtr(o.FilledExitAt)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
