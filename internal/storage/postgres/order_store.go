package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"solana-token-sniper/internal/domain"
	"solana-token-sniper/internal/storage"
)

// OrderStore implements storage.OrderStore using PostgreSQL.
type OrderStore struct {
	pool *Pool
	now  func() time.Time
}

// NewOrderStore creates a new OrderStore.
func NewOrderStore(pool *Pool) *OrderStore {
	return &OrderStore{pool: pool, now: time.Now}
}

// Compile-time interface check.
var _ storage.OrderStore = (*OrderStore)(nil)

const orderColumns = `
	id, user_id, wallet_address, token_address, order_type,
	entry_price, exit_price, stop_loss, buy_amount_native,
	status, trades_executed, max_trades_remaining, consecutive_losses,
	created_at, updated_at, filled_entry_at, filled_exit_at`

// Insert adds a new order. Returns ErrDuplicateKey if the ID exists.
func (s *OrderStore) Insert(ctx context.Context, o *domain.Order) error {
	if o == nil || o.ID == "" {
		return storage.ErrInvalidInput
	}

	query := `INSERT INTO orders (` + orderColumns + `) VALUES (
		$1, $2, $3, $4, $5,
		$6, $7, $8, $9,
		$10, $11, $12, $13,
		$14, $15, $16, $17
	)`

	_, err := s.pool.Exec(ctx, query,
		o.ID, o.UserID, o.WalletAddress, o.TokenAddress, string(o.Type),
		o.EntryPrice, o.ExitPrice, o.StopLoss, o.BuyAmountNative,
		string(o.Status), o.TradesExecuted, o.MaxTradesRemaining, o.ConsecutiveLosses,
		o.CreatedAt, o.UpdatedAt, o.FilledEntryAt, o.FilledExitAt,
	)
	if err != nil {
		return insertError("order", err)
	}
	return nil
}

// GetByID retrieves an order. Returns ErrNotFound if it does not exist.
func (s *OrderStore) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	o, err := scanOrder(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get order by id: %w", err)
	}
	return o, nil
}

// ListActive returns monitored orders, oldest first.
func (s *OrderStore) ListActive(ctx context.Context) ([]*domain.Order, error) {
	statuses := make([]string, len(domain.MonitoredStatuses))
	for i, st := range domain.MonitoredStatuses {
		statuses[i] = string(st)
	}

	rows, err := s.pool.Query(ctx, `SELECT `+orderColumns+`
		FROM orders
		WHERE status = ANY($1)
		ORDER BY created_at ASC, id ASC`, statuses)
	if err != nil {
		return nil, fmt.Errorf("list active orders: %w", err)
	}
	defer rows.Close()

	return scanOrders(rows)
}

// ListByUser returns a user's orders, newest first.
func (s *OrderStore) ListByUser(ctx context.Context, userID string) ([]*domain.Order, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+orderColumns+`
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders by user: %w", err)
	}
	defer rows.Close()

	return scanOrders(rows)
}

// CompareAndSetStatus locks the row, checks the expected status, applies
// mutate and writes the result in one transaction.
func (s *OrderStore) CompareAndSetStatus(ctx context.Context, id string, expected, next domain.OrderStatus, mutate func(*domain.Order)) (*domain.Order, error) {
	if id == "" {
		return nil, storage.ErrInvalidInput
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id)
	o, err := scanOrder(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("lock order: %w", err)
	}
	if o.Status != expected {
		return nil, storage.ErrStatusConflict
	}

	if mutate != nil {
		mutate(o)
	}
	o.ID = id
	o.Status = next
	o.UpdatedAt = s.now().UTC()

	tag, err := writeOrder(ctx, tx, o, expected)
	if err != nil {
		return nil, err
	}
	if tag == 0 {
		return nil, storage.ErrStatusConflict
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return o, nil
}

// Update writes the order's mutable fields if the stored status equals expected.
func (s *OrderStore) Update(ctx context.Context, o *domain.Order, expected domain.OrderStatus) error {
	if o == nil || o.ID == "" {
		return storage.ErrInvalidInput
	}

	o.UpdatedAt = s.now().UTC()
	n, err := writeOrder(ctx, s.pool, o, expected)
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}

	// Zero rows: missing or status moved.
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, o.ID).Scan(&exists); err != nil {
		return fmt.Errorf("check order exists: %w", err)
	}
	if !exists {
		return storage.ErrNotFound
	}
	return storage.ErrStatusConflict
}

func writeOrder(ctx context.Context, db querier, o *domain.Order, expected domain.OrderStatus) (int64, error) {
	tag, err := db.Exec(ctx, `
		UPDATE orders SET
			wallet_address = $3, exit_price = $4, stop_loss = $5, buy_amount_native = $6,
			status = $7, trades_executed = $8, max_trades_remaining = $9, consecutive_losses = $10,
			updated_at = $11, filled_entry_at = $12, filled_exit_at = $13, entry_price = $14
		WHERE id = $1 AND status = $2`,
		o.ID, string(expected),
		o.WalletAddress, o.ExitPrice, o.StopLoss, o.BuyAmountNative,
		string(o.Status), o.TradesExecuted, o.MaxTradesRemaining, o.ConsecutiveLosses,
		o.UpdatedAt, o.FilledEntryAt, o.FilledExitAt, o.EntryPrice,
	)
	if err != nil {
		return 0, fmt.Errorf("update order: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		o              domain.Order
		typ, status    string
		maxRemaining   *int32
		trades, losses int32
	)
	err := row.Scan(
		&o.ID, &o.UserID, &o.WalletAddress, &o.TokenAddress, &typ,
		&o.EntryPrice, &o.ExitPrice, &o.StopLoss, &o.BuyAmountNative,
		&status, &trades, &maxRemaining, &losses,
		&o.CreatedAt, &o.UpdatedAt, &o.FilledEntryAt, &o.FilledExitAt,
	)
	if err != nil {
		return nil, err
	}
	o.Type = domain.OrderType(typ)
	o.Status = domain.OrderStatus(status)
	o.TradesExecuted = int(trades)
	o.ConsecutiveLosses = int(losses)
	if maxRemaining != nil {
		v := int(*maxRemaining)
		o.MaxTradesRemaining = &v
	}
	return &o, nil
}

func scanOrders(rows pgx.Rows) ([]*domain.Order, error) {
	var out []*domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	return out, nil
}
