package order

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-token-sniper/internal/domain"
	"solana-token-sniper/internal/storage/memory"
)

// flakyExecutions fails Insert or Close while the matching error is set.
type flakyExecutions struct {
	*memory.ExecutionStore
	insertErr error
	closeErr  error
}

func (f *flakyExecutions) Insert(ctx context.Context, e *domain.Execution) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	return f.ExecutionStore.Insert(ctx, e)
}

func (f *flakyExecutions) Close(ctx context.Context, id string, exit domain.ExecutionLeg, pnl domain.PnL, closedAt time.Time) error {
	if f.closeErr != nil {
		return f.closeErr
	}
	return f.ExecutionStore.Close(ctx, id, exit, pnl, closedAt)
}

// flakyOrders fails the next status write into a given status once.
type flakyOrders struct {
	*memory.OrderStore
	mu   sync.Mutex
	fail map[domain.OrderStatus]error
}

func (f *flakyOrders) CompareAndSetStatus(ctx context.Context, id string, expected, next domain.OrderStatus, mutate func(*domain.Order)) (*domain.Order, error) {
	f.mu.Lock()
	err := f.fail[next]
	delete(f.fail, next)
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return f.OrderStore.CompareAndSetStatus(ctx, id, expected, next, mutate)
}

func newFlakyFixture(t *testing.T, cfg Config) (*fixture, *flakyOrders, *flakyExecutions) {
	t.Helper()
	f := newFixture(t, cfg)
	orders := &flakyOrders{OrderStore: f.orders, fail: map[domain.OrderStatus]error{}}
	execs := &flakyExecutions{ExecutionStore: f.executions}
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.svc = NewService(orders, execs, cfg,
		WithPublisher(f.pub),
		WithClock(func() time.Time { return clock }),
	)
	return f, orders, execs
}

func TestService_ConfirmEntry_LedgerFailureLeavesOrderReady(t *testing.T) {
	f, _, execs := newFlakyFixture(t, DefaultConfig())
	ctx := context.Background()
	o, err := f.svc.Create(ctx, limitRequest())
	require.NoError(t, err)
	f.arm(t, o.ID, domain.OrderStatusPending, domain.OrderStatusReadyToExecute)

	execs.insertErr = errors.New("db down")
	_, _, err = f.svc.ConfirmEntry(ctx, o.ID, EntryFill{Price: 1, AmountNative: 0.5, TxRef: "sig-in"})
	require.Error(t, err)

	got, _ := f.svc.Get(ctx, o.ID)
	assert.Equal(t, domain.OrderStatusReadyToExecute, got.Status)
	assert.Equal(t, 0, got.TradesExecuted)

	execs.insertErr = nil
	got, e, err := f.svc.ConfirmEntry(ctx, o.ID, EntryFill{Price: 1, AmountNative: 0.5, TxRef: "sig-in"})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusFilledEntry, got.Status)
	assert.Equal(t, domain.ExecutionStatusHolding, e.Status)

	f.arm(t, o.ID, domain.OrderStatusFilledEntry, domain.OrderStatusReadyToExit)
	res, err := f.svc.ConfirmExit(ctx, o.ID, ExitFill{Price: 1.5, AmountNative: 0.75, TxRef: "sig-out"})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusFilledExit, res.Order.Status)
}

func TestService_ConfirmEntry_RetryAfterOrderWriteFailure(t *testing.T) {
	f, orders, _ := newFlakyFixture(t, DefaultConfig())
	ctx := context.Background()
	o, err := f.svc.Create(ctx, autoRequest(3))
	require.NoError(t, err)
	f.arm(t, o.ID, domain.OrderStatusPending, domain.OrderStatusReadyToExecute)

	orders.fail[domain.OrderStatusFilledEntry] = errors.New("connection reset")
	_, recorded, err := f.svc.ConfirmEntry(ctx, o.ID, EntryFill{Price: 1, AmountNative: 0.5, TxRef: "sig-in"})
	require.Error(t, err)
	require.NotNil(t, recorded)

	got, e, err := f.svc.ConfirmEntry(ctx, o.ID, EntryFill{Price: 1, AmountNative: 0.5, TxRef: "sig-in"})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusFilledEntry, got.Status)
	assert.Equal(t, recorded.ID, e.ID)
	assert.Equal(t, 1, got.TradesExecuted)
	assert.Equal(t, 2, *got.MaxTradesRemaining)

	list, err := f.svc.Executions(ctx, o.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestService_ConfirmEntry_ReplayReturnsRecorded(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	ctx := context.Background()
	o, _ := f.svc.Create(ctx, autoRequest(3))
	f.arm(t, o.ID, domain.OrderStatusPending, domain.OrderStatusReadyToExecute)

	_, first, err := f.svc.ConfirmEntry(ctx, o.ID, EntryFill{Price: 1, AmountNative: 0.5, TxRef: "sig-in"})
	require.NoError(t, err)

	got, again, err := f.svc.ConfirmEntry(ctx, o.ID, EntryFill{Price: 1, AmountNative: 0.5, TxRef: "sig-in"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, domain.OrderStatusFilledEntry, got.Status)
	assert.Equal(t, 1, got.TradesExecuted, "a replayed fill is not counted twice")

	// A different transaction is a new fill and is rejected.
	_, _, err = f.svc.ConfirmEntry(ctx, o.ID, EntryFill{Price: 1, AmountNative: 0.5, TxRef: "sig-other"})
	assert.Error(t, err)
}

func TestService_ConfirmExit_LedgerFailureIsRetryable(t *testing.T) {
	f, _, execs := newFlakyFixture(t, DefaultConfig())
	ctx := context.Background()
	o, _ := f.svc.Create(ctx, limitRequest())
	f.arm(t, o.ID, domain.OrderStatusPending, domain.OrderStatusReadyToExecute)
	_, _, err := f.svc.ConfirmEntry(ctx, o.ID, EntryFill{Price: 1, AmountNative: 0.5, TxRef: "sig-in"})
	require.NoError(t, err)
	f.arm(t, o.ID, domain.OrderStatusFilledEntry, domain.OrderStatusReadyToStop)

	execs.closeErr = errors.New("db down")
	_, err = f.svc.ConfirmExit(ctx, o.ID, ExitFill{Price: 0.8, AmountNative: 0.4, TxRef: "sig-out"})
	require.Error(t, err)

	got, _ := f.svc.Get(ctx, o.ID)
	assert.Equal(t, domain.OrderStatusReadyToStop, got.Status)
	_, err = f.executions.GetOpenByOrder(ctx, o.ID)
	require.NoError(t, err, "execution still holding")

	execs.closeErr = nil
	res, err := f.svc.ConfirmExit(ctx, o.ID, ExitFill{Price: 0.8, AmountNative: 0.4, TxRef: "sig-out"})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusStoppedOut, res.Order.Status)
	assert.Equal(t, domain.ExecutionStatusClosed, res.Execution.Status)
}

func TestService_ConfirmExit_RetryAfterOrderWriteFailure(t *testing.T) {
	f, orders, _ := newFlakyFixture(t, DefaultConfig())
	ctx := context.Background()
	o, _ := f.svc.Create(ctx, limitRequest())
	f.arm(t, o.ID, domain.OrderStatusPending, domain.OrderStatusReadyToExecute)
	_, entry, err := f.svc.ConfirmEntry(ctx, o.ID, EntryFill{Price: 1, AmountNative: 0.5, TxRef: "sig-in"})
	require.NoError(t, err)
	f.arm(t, o.ID, domain.OrderStatusFilledEntry, domain.OrderStatusReadyToExit)

	orders.fail[domain.OrderStatusFilledExit] = errors.New("connection reset")
	_, err = f.svc.ConfirmExit(ctx, o.ID, ExitFill{Price: 1.6, AmountNative: 0.8, TxRef: "sig-out"})
	require.Error(t, err)

	got, _ := f.svc.Get(ctx, o.ID)
	assert.Equal(t, domain.OrderStatusReadyToExit, got.Status)

	res, err := f.svc.ConfirmExit(ctx, o.ID, ExitFill{Price: 1.6, AmountNative: 0.8, TxRef: "sig-out"})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusFilledExit, res.Order.Status)
	assert.Equal(t, entry.ID, res.Execution.ID)
	assert.InDelta(t, 0.3, res.Execution.PnL.Native, 1e-9)
	require.Len(t, f.pub.outcomes, 1)

	// A different exit transaction cannot claim the closed execution.
	f2, orders2, _ := newFlakyFixture(t, DefaultConfig())
	o2, _ := f2.svc.Create(ctx, limitRequest())
	f2.arm(t, o2.ID, domain.OrderStatusPending, domain.OrderStatusReadyToExecute)
	_, _, err = f2.svc.ConfirmEntry(ctx, o2.ID, EntryFill{Price: 1, AmountNative: 0.5, TxRef: "sig-in"})
	require.NoError(t, err)
	f2.arm(t, o2.ID, domain.OrderStatusFilledEntry, domain.OrderStatusReadyToExit)
	orders2.fail[domain.OrderStatusFilledExit] = errors.New("connection reset")
	_, err = f2.svc.ConfirmExit(ctx, o2.ID, ExitFill{Price: 1.6, AmountNative: 0.8, TxRef: "sig-out"})
	require.Error(t, err)
	_, err = f2.svc.ConfirmExit(ctx, o2.ID, ExitFill{Price: 1.6, AmountNative: 0.8, TxRef: "sig-elsewhere"})
	assert.Error(t, err)
}

func TestService_ConfirmExit_BreakevenKeepsStreak(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	ctx := context.Background()
	o, _ := f.svc.Create(ctx, autoRequest(3))

	first := f.runCycle(t, o.ID, domain.OrderStatusPending, false)
	require.NotNil(t, first.NextCycle)
	assert.Equal(t, 1, first.Order.ConsecutiveLosses)

	id := first.NextCycle.ID
	f.arm(t, id, domain.OrderStatusWatching, domain.OrderStatusReadyToExecute)
	_, _, err := f.svc.ConfirmEntry(ctx, id, EntryFill{Price: 1, AmountNative: 1, TxRef: "in-" + id})
	require.NoError(t, err)
	f.arm(t, id, domain.OrderStatusFilledEntry, domain.OrderStatusReadyToExit)
	res, err := f.svc.ConfirmExit(ctx, id, ExitFill{Price: 1, AmountNative: 1, TxRef: "out-" + id})
	require.NoError(t, err)

	assert.Zero(t, res.Execution.PnL.Native)
	assert.Equal(t, 1, res.Order.ConsecutiveLosses, "breakeven neither resets nor extends the streak")
}
