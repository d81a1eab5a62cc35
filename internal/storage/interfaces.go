package storage

import (
	"context"
	"time"

	"solana-token-sniper/internal/domain"
)

// OrderStore provides access to orders. Status writes are compare-and-set so
// concurrent monitor sweeps never need a lock.
type OrderStore interface {
	// Insert adds a new order. Returns ErrDuplicateKey if the ID exists.
	Insert(ctx context.Context, o *domain.Order) error

	// GetByID returns ErrNotFound if the order does not exist.
	GetByID(ctx context.Context, id string) (*domain.Order, error)

	// ListActive returns orders the monitor evaluates (PENDING, WATCHING,
	// FILLED_ENTRY), oldest first.
	ListActive(ctx context.Context) ([]*domain.Order, error)

	// ListByUser returns a user's orders, newest first.
	ListByUser(ctx context.Context, userID string) ([]*domain.Order, error)

	// CompareAndSetStatus atomically moves the order from expected to next.
	// mutate, when non-nil, edits other fields of the order in the same write.
	// Returns ErrStatusConflict if the current status is not expected.
	CompareAndSetStatus(ctx context.Context, id string, expected, next domain.OrderStatus, mutate func(*domain.Order)) (*domain.Order, error)

	// Update writes the order's mutable fields if its stored status still
	// equals expected. Returns ErrStatusConflict otherwise.
	Update(ctx context.Context, o *domain.Order, expected domain.OrderStatus) error
}

// ExecutionStore is the trade ledger.
type ExecutionStore interface {
	// Insert adds a new execution. Returns ErrDuplicateKey if the ID exists
	// or the order already has an open execution.
	Insert(ctx context.Context, e *domain.Execution) error

	// GetByID returns ErrNotFound if the execution does not exist.
	GetByID(ctx context.Context, id string) (*domain.Execution, error)

	// GetOpenByOrder returns the holding execution of an order, or ErrNotFound.
	GetOpenByOrder(ctx context.Context, orderID string) (*domain.Execution, error)

	// ListByOrder returns all executions of an order, oldest first.
	ListByOrder(ctx context.Context, orderID string) ([]*domain.Execution, error)

	// Close records the exit leg and PnL. Returns ErrStatusConflict if the
	// execution is already closed.
	Close(ctx context.Context, id string, exit domain.ExecutionLeg, pnl domain.PnL, closedAt time.Time) error
}

// TokenSnapshotStore records scanner observations. Append-only.
type TokenSnapshotStore interface {
	Insert(ctx context.Context, s *domain.TokenSnapshot) error

	// ListByToken returns the newest snapshots of a token, at most limit.
	ListByToken(ctx context.Context, address string, limit int) ([]*domain.TokenSnapshot, error)
}
