package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"solana-token-sniper/internal/domain"
	"solana-token-sniper/internal/storage"
)

// ExecutionStore implements storage.ExecutionStore using PostgreSQL.
type ExecutionStore struct {
	pool *Pool
}

// NewExecutionStore creates a new ExecutionStore.
func NewExecutionStore(pool *Pool) *ExecutionStore {
	return &ExecutionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ExecutionStore = (*ExecutionStore)(nil)

const executionColumns = `
	id, order_id, token_address, dex,
	entry_price, entry_amount_native, entry_tx,
	exit_price, exit_amount_native, exit_tx, exit_reason,
	pnl_native, pnl_quote, pnl_percent,
	status, created_at, closed_at`

// Insert adds a new execution. The partial unique index on open executions
// turns a second holding row for the same order into ErrDuplicateKey.
func (s *ExecutionStore) Insert(ctx context.Context, e *domain.Execution) error {
	if e == nil || e.ID == "" || e.OrderID == "" {
		return storage.ErrInvalidInput
	}

	var exitPrice, exitAmount *float64
	var exitTx, exitReason *string
	if e.Exit != nil {
		exitPrice, exitAmount = &e.Exit.Price, &e.Exit.AmountNative
		exitTx, exitReason = &e.Exit.TxRef, &e.Exit.Reason
	}
	var pnlNative, pnlQuote, pnlPercent *float64
	if e.PnL != nil {
		pnlNative, pnlQuote, pnlPercent = &e.PnL.Native, &e.PnL.Quote, &e.PnL.Percent
	}

	_, err := s.pool.Exec(ctx, `INSERT INTO executions (`+executionColumns+`) VALUES (
		$1, $2, $3, $4,
		$5, $6, $7,
		$8, $9, $10, $11,
		$12, $13, $14,
		$15, $16, $17
	)`,
		e.ID, e.OrderID, e.TokenAddress, e.Dex,
		e.Entry.Price, e.Entry.AmountNative, e.Entry.TxRef,
		exitPrice, exitAmount, exitTx, exitReason,
		pnlNative, pnlQuote, pnlPercent,
		string(e.Status), e.CreatedAt, e.ClosedAt,
	)
	if err != nil {
		return insertError("execution", err)
	}
	return nil
}

// GetByID retrieves an execution. Returns ErrNotFound if it does not exist.
func (s *ExecutionStore) GetByID(ctx context.Context, id string) (*domain.Execution, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+executionColumns+` FROM executions WHERE id = $1`, id)
	e, err := scanExecution(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get execution by id: %w", err)
	}
	return e, nil
}

// GetOpenByOrder returns the holding execution of an order.
func (s *ExecutionStore) GetOpenByOrder(ctx context.Context, orderID string) (*domain.Execution, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+executionColumns+`
		FROM executions
		WHERE order_id = $1 AND status = $2`, orderID, string(domain.ExecutionStatusHolding))
	e, err := scanExecution(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get open execution: %w", err)
	}
	return e, nil
}

// ListByOrder returns an order's executions, oldest first.
func (s *ExecutionStore) ListByOrder(ctx context.Context, orderID string) ([]*domain.Execution, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+executionColumns+`
		FROM executions
		WHERE order_id = $1
		ORDER BY created_at ASC, id ASC`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list executions by order: %w", err)
	}
	defer rows.Close()

	var out []*domain.Execution
	for rows.Next() {
		e, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("scan execution: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate executions: %w", err)
	}
	return out, nil
}

// Close records the exit leg and PnL on a holding execution.
func (s *ExecutionStore) Close(ctx context.Context, id string, exit domain.ExecutionLeg, pnl domain.PnL, closedAt time.Time) error {
	if id == "" {
		return storage.ErrInvalidInput
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE executions SET
			exit_price = $3, exit_amount_native = $4, exit_tx = $5, exit_reason = $6,
			pnl_native = $7, pnl_quote = $8, pnl_percent = $9,
			status = $10, closed_at = $11
		WHERE id = $1 AND status = $2`,
		id, string(domain.ExecutionStatusHolding),
		exit.Price, exit.AmountNative, exit.TxRef, exit.Reason,
		pnl.Native, pnl.Quote, pnl.Percent,
		string(domain.ExecutionStatusClosed), closedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("close execution: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	if _, err := s.GetByID(ctx, id); err != nil {
		return err
	}
	return storage.ErrStatusConflict
}

func scanExecution(row pgx.Row) (*domain.Execution, error) {
	var (
		e                  domain.Execution
		status             string
		exitPrice, exitAmt *float64
		exitTx, exitReason *string
		pnlN, pnlQ, pnlPct *float64
	)
	err := row.Scan(
		&e.ID, &e.OrderID, &e.TokenAddress, &e.Dex,
		&e.Entry.Price, &e.Entry.AmountNative, &e.Entry.TxRef,
		&exitPrice, &exitAmt, &exitTx, &exitReason,
		&pnlN, &pnlQ, &pnlPct,
		&status, &e.CreatedAt, &e.ClosedAt,
	)
	if err != nil {
		return nil, err
	}
	e.Status = domain.ExecutionStatus(status)
	if exitPrice != nil {
		e.Exit = &domain.ExecutionLeg{Price: *exitPrice}
		if exitAmt != nil {
			e.Exit.AmountNative = *exitAmt
		}
		if exitTx != nil {
			e.Exit.TxRef = *exitTx
		}
		if exitReason != nil {
			e.Exit.Reason = *exitReason
		}
	}
	if pnlN != nil {
		e.PnL = &domain.PnL{Native: *pnlN}
		if pnlQ != nil {
			e.PnL.Quote = *pnlQ
		}
		if pnlPct != nil {
			e.PnL.Percent = *pnlPct
		}
	}
	return &e, nil
}
