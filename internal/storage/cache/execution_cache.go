// Package cache holds read caches in front of storage backends.
package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"solana-token-sniper/internal/domain"
	"solana-token-sniper/internal/observability"
	"solana-token-sniper/internal/storage"
)

// ExecutionCache is a write-through cache over an ExecutionStore.
// Writes go to the store first; the cache only ever mirrors committed rows.
type ExecutionCache struct {
	store   storage.ExecutionStore
	backend string // metrics label

	mu     sync.RWMutex
	byID   map[string]*domain.Execution
	openBy map[string]string // order ID -> holding execution ID
}

// NewExecutionCache wraps store. backend labels the store in query metrics.
func NewExecutionCache(store storage.ExecutionStore, backend string) *ExecutionCache {
	if backend == "" {
		backend = "executions"
	}
	return &ExecutionCache{
		store:   store,
		backend: backend,
		byID:    make(map[string]*domain.Execution),
		openBy:  make(map[string]string),
	}
}

var _ storage.ExecutionStore = (*ExecutionCache)(nil)

// Insert writes to the store, then caches the execution.
func (c *ExecutionCache) Insert(ctx context.Context, e *domain.Execution) error {
	start := time.Now()
	err := c.store.Insert(ctx, e)
	c.observe("insert", start, err)
	if err != nil {
		return err
	}
	c.put(e)
	return nil
}

// GetByID serves from cache, reloading from the store on a miss.
func (c *ExecutionCache) GetByID(ctx context.Context, id string) (*domain.Execution, error) {
	c.mu.RLock()
	e, ok := c.byID[id]
	c.mu.RUnlock()
	if ok {
		return clone(e), nil
	}

	start := time.Now()
	e, err := c.store.GetByID(ctx, id)
	c.observe("get_by_id", start, err)
	if err != nil {
		return nil, err
	}
	c.put(e)
	return e, nil
}

// GetOpenByOrder serves the holding execution of an order.
func (c *ExecutionCache) GetOpenByOrder(ctx context.Context, orderID string) (*domain.Execution, error) {
	c.mu.RLock()
	id, ok := c.openBy[orderID]
	var e *domain.Execution
	if ok {
		e = c.byID[id]
	}
	c.mu.RUnlock()
	if e != nil && e.Status == domain.ExecutionStatusHolding {
		return clone(e), nil
	}

	start := time.Now()
	e, err := c.store.GetOpenByOrder(ctx, orderID)
	c.observe("get_open_by_order", start, err)
	if err != nil {
		return nil, err
	}
	c.put(e)
	return e, nil
}

// ListByOrder always reads the store and refreshes cached rows.
func (c *ExecutionCache) ListByOrder(ctx context.Context, orderID string) ([]*domain.Execution, error) {
	start := time.Now()
	list, err := c.store.ListByOrder(ctx, orderID)
	c.observe("list_by_order", start, err)
	if err != nil {
		return nil, err
	}
	for _, e := range list {
		c.put(e)
	}
	return list, nil
}

// Close closes the execution in the store and reloads the committed row.
func (c *ExecutionCache) Close(ctx context.Context, id string, exit domain.ExecutionLeg, pnl domain.PnL, closedAt time.Time) error {
	start := time.Now()
	err := c.store.Close(ctx, id, exit, pnl, closedAt)
	c.observe("close", start, err)
	if err != nil {
		// The cached copy may be stale if another writer closed it.
		if errors.Is(err, storage.ErrStatusConflict) {
			c.evict(id)
		}
		return err
	}

	c.evict(id)
	if e, err := c.store.GetByID(ctx, id); err == nil {
		c.put(e)
	}
	return nil
}

// Len returns the number of cached executions.
func (c *ExecutionCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byID)
}

func (c *ExecutionCache) put(e *domain.Execution) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byID[e.ID] = clone(e)
	if e.Status == domain.ExecutionStatusHolding {
		c.openBy[e.OrderID] = e.ID
	} else if c.openBy[e.OrderID] == e.ID {
		delete(c.openBy, e.OrderID)
	}
}

func (c *ExecutionCache) evict(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.byID[id]; ok {
		if c.openBy[e.OrderID] == id {
			delete(c.openBy, e.OrderID)
		}
		delete(c.byID, id)
	}
}

func (c *ExecutionCache) observe(op string, start time.Time, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		err = nil
	}
	observability.RecordDBQuery(c.backend, op, time.Since(start).Seconds(), err)
}

func clone(e *domain.Execution) *domain.Execution {
	c := *e
	if e.Exit != nil {
		exit := *e.Exit
		c.Exit = &exit
	}
	if e.PnL != nil {
		pnl := *e.PnL
		c.PnL = &pnl
	}
	if e.ClosedAt != nil {
		ts := *e.ClosedAt
		c.ClosedAt = &ts
	}
	return &c
}
