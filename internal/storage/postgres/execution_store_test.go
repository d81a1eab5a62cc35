package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-token-sniper/internal/domain"
	"solana-token-sniper/internal/storage"
)

func TestExecutionStore_Lifecycle(t *testing.T) {
	pool := setupTestDB(t)

	ctx := context.Background()
	orders := NewOrderStore(pool)
	store := NewExecutionStore(pool)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, orders.Insert(ctx, testOrder("o1", domain.OrderStatusFilledEntry, now)))

	e := &domain.Execution{
		ID:           "e1",
		OrderID:      "o1",
		TokenAddress: "mint1",
		Dex:          "jupiter",
		Entry:        domain.ExecutionLeg{Price: 1.0, AmountNative: 0.25, TxRef: "sig-entry"},
		Status:       domain.ExecutionStatusHolding,
		CreatedAt:    now,
	}
	require.NoError(t, store.Insert(ctx, e))
	assert.ErrorIs(t, store.Insert(ctx, e), storage.ErrDuplicateKey)

	second := *e
	second.ID = "e2"
	assert.ErrorIs(t, store.Insert(ctx, &second), storage.ErrDuplicateKey, "one open execution per order")

	open, err := store.GetOpenByOrder(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, "e1", open.ID)
	assert.Nil(t, open.Exit)
	assert.Nil(t, open.PnL)

	exit := domain.ExecutionLeg{Price: 0.5, AmountNative: 0.125, TxRef: "sig-exit", Reason: domain.ExitReasonStopLoss}
	pnl := domain.PnL{Native: -0.125, Percent: -50}
	require.NoError(t, store.Close(ctx, "e1", exit, pnl, now.Add(time.Hour)))
	assert.ErrorIs(t, store.Close(ctx, "e1", exit, pnl, now.Add(time.Hour)), storage.ErrStatusConflict)
	assert.ErrorIs(t, store.Close(ctx, "missing", exit, pnl, now), storage.ErrNotFound)

	closed, err := store.GetByID(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, domain.ExecutionStatusClosed, closed.Status)
	require.NotNil(t, closed.Exit)
	assert.Equal(t, domain.ExitReasonStopLoss, closed.Exit.Reason)
	require.NotNil(t, closed.PnL)
	assert.Equal(t, -50.0, closed.PnL.Percent)
	assert.False(t, closed.IsWin())

	_, err = store.GetOpenByOrder(ctx, "o1")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	second.CreatedAt = now.Add(2 * time.Hour)
	require.NoError(t, store.Insert(ctx, &second))

	list, err := store.ListByOrder(ctx, "o1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "e1", list[0].ID)
}
