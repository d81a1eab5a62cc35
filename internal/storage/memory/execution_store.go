package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"solana-token-sniper/internal/domain"
	"solana-token-sniper/internal/storage"
)

// ExecutionStore is an in-memory implementation of storage.ExecutionStore.
type ExecutionStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Execution // keyed by execution ID
}

// NewExecutionStore creates a new in-memory execution store.
func NewExecutionStore() *ExecutionStore {
	return &ExecutionStore{
		data: make(map[string]*domain.Execution),
	}
}

var _ storage.ExecutionStore = (*ExecutionStore)(nil)

// Insert adds a new execution. At most one holding execution per order.
func (s *ExecutionStore) Insert(_ context.Context, e *domain.Execution) error {
	if e == nil || e.ID == "" || e.OrderID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[e.ID]; exists {
		return storage.ErrDuplicateKey
	}
	if e.Status == domain.ExecutionStatusHolding {
		for _, other := range s.data {
			if other.OrderID == e.OrderID && other.Status == domain.ExecutionStatusHolding {
				return storage.ErrDuplicateKey
			}
		}
	}

	s.data[e.ID] = cloneExecution(e)
	return nil
}

// GetByID retrieves an execution by ID.
func (s *ExecutionStore) GetByID(_ context.Context, id string) (*domain.Execution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.data[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return cloneExecution(e), nil
}

// GetOpenByOrder returns the holding execution of an order.
func (s *ExecutionStore) GetOpenByOrder(_ context.Context, orderID string) (*domain.Execution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.data {
		if e.OrderID == orderID && e.Status == domain.ExecutionStatusHolding {
			return cloneExecution(e), nil
		}
	}
	return nil, storage.ErrNotFound
}

// ListByOrder returns an order's executions, oldest first.
func (s *ExecutionStore) ListByOrder(_ context.Context, orderID string) ([]*domain.Execution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Execution
	for _, e := range s.data {
		if e.OrderID == orderID {
			out = append(out, cloneExecution(e))
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

// Close records the exit leg and PnL of a holding execution.
func (s *ExecutionStore) Close(_ context.Context, id string, exit domain.ExecutionLeg, pnl domain.PnL, closedAt time.Time) error {
	if id == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.data[id]
	if !ok {
		return storage.ErrNotFound
	}
	if e.Status != domain.ExecutionStatusHolding {
		return storage.ErrStatusConflict
	}

	updated := cloneExecution(e)
	updated.Exit = &exit
	updated.PnL = &pnl
	updated.Status = domain.ExecutionStatusClosed
	ts := closedAt.UTC()
	updated.ClosedAt = &ts
	s.data[id] = updated
	return nil
}

func cloneExecution(e *domain.Execution) *domain.Execution {
	c := *e
	c.Exit = clonePtr(e.Exit)
	c.PnL = clonePtr(e.PnL)
	c.ClosedAt = clonePtr(e.ClosedAt)
	return &c
}
