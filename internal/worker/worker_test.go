package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-token-sniper/internal/domain"
	"solana-token-sniper/internal/order"
	"solana-token-sniper/internal/scanner"
)

type blockingSweeper struct {
	calls   atomic.Int32
	release chan struct{}
	started chan struct{}
	once    sync.Once
}

func newBlockingSweeper() *blockingSweeper {
	return &blockingSweeper{release: make(chan struct{}), started: make(chan struct{})}
}

func (s *blockingSweeper) Sweep(ctx context.Context) (*order.SweepResult, error) {
	s.calls.Add(1)
	s.once.Do(func() { close(s.started) })
	select {
	case <-s.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &order.SweepResult{OrdersChecked: 2}, nil
}

type countingSweeper struct {
	calls atomic.Int32
}

func (s *countingSweeper) Sweep(context.Context) (*order.SweepResult, error) {
	s.calls.Add(1)
	return &order.SweepResult{}, nil
}

type fakeScanner struct {
	candidates []scanner.Candidate
	err        error
}

func (f *fakeScanner) Scan(context.Context) ([]scanner.Candidate, error) {
	return f.candidates, f.err
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, nil, Config{SweepInterval: time.Minute}, nil)
	assert.Error(t, err)

	_, err = New(&countingSweeper{}, nil, Config{}, nil)
	assert.Error(t, err)

	_, err = New(&countingSweeper{}, &fakeScanner{}, Config{SweepInterval: time.Minute, ScanSchedule: "not a spec"}, nil)
	assert.Error(t, err)
}

func TestWorker_RunSweepNow_SkipsOverlap(t *testing.T) {
	sweeper := newBlockingSweeper()
	w, err := New(sweeper, nil, Config{SweepInterval: time.Hour}, nil)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := w.RunSweepNow(context.Background())
		done <- err
	}()
	<-sweeper.started

	_, err = w.RunSweepNow(context.Background())
	assert.ErrorIs(t, err, ErrSweepRunning)
	assert.True(t, w.Status().SweepRunning)

	close(sweeper.release)
	require.NoError(t, <-done)

	st := w.Status()
	assert.False(t, st.SweepRunning)
	assert.Equal(t, 1, st.Sweeps)
	require.NotNil(t, st.LastSweep)
	assert.Equal(t, 2, st.LastSweep.OrdersChecked)
	assert.Equal(t, int32(1), sweeper.calls.Load())
}

func TestWorker_ScheduledSweep(t *testing.T) {
	sweeper := &countingSweeper{}
	w, err := New(sweeper, nil, Config{SweepInterval: time.Second}, nil)
	require.NoError(t, err)

	w.Start(context.Background())
	defer w.Stop()

	assert.Eventually(t, func() bool {
		return sweeper.calls.Load() >= 1
	}, 3*time.Second, 50*time.Millisecond)
}

func TestWorker_RunScanNow(t *testing.T) {
	sc := &fakeScanner{candidates: []scanner.Candidate{
		{Token: domain.Token{Address: "a"}, CompositeScore: 80},
		{Token: domain.Token{Address: "b"}, CompositeScore: 60},
	}}
	w, err := New(&countingSweeper{}, sc, Config{SweepInterval: time.Hour, ScanSchedule: "@every 1h"}, nil)
	require.NoError(t, err)

	got, err := w.RunScanNow(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, 2, w.Status().LastScanSize)

	sc.err = errors.New("dexscreener down")
	_, err = w.RunScanNow(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 2, w.Status().Scans)
}

func TestWorker_RunScanNow_NoScanner(t *testing.T) {
	w, err := New(&countingSweeper{}, nil, Config{SweepInterval: time.Hour}, nil)
	require.NoError(t, err)
	_, err = w.RunScanNow(context.Background())
	assert.Error(t, err)
}
