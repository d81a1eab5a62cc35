// Package worker schedules monitor sweeps and scanner passes.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"solana-token-sniper/internal/order"
	"solana-token-sniper/internal/scanner"
)

// Returned by RunSweepNow and RunScanNow while the same job is in flight.
var (
	ErrSweepRunning = errors.New("sweep already running")
	ErrScanRunning  = errors.New("scan already running")
)

// Sweeper runs one monitor sweep. *order.Monitor implements it.
type Sweeper interface {
	Sweep(ctx context.Context) (*order.SweepResult, error)
}

// Scanner runs one discovery pass. *scanner.Scanner implements it.
type Scanner interface {
	Scan(ctx context.Context) ([]scanner.Candidate, error)
}

var (
	_ Sweeper = (*order.Monitor)(nil)
	_ Scanner = (*scanner.Scanner)(nil)
)

// Config holds schedules.
type Config struct {
	SweepInterval time.Duration
	// ScanSchedule is a cron spec; empty disables scheduled scans.
	ScanSchedule string
}

// Status is a snapshot of worker activity.
type Status struct {
	SweepRunning bool               `json:"sweepRunning"`
	ScanRunning  bool               `json:"scanRunning"`
	Sweeps       int                `json:"sweeps"`
	Scans        int                `json:"scans"`
	LastSweepAt  time.Time          `json:"lastSweepAt"`
	LastSweep    *order.SweepResult `json:"lastSweep,omitempty"`
	LastScanAt   time.Time          `json:"lastScanAt"`
	LastScanSize int                `json:"lastScanSize"`
}

// Worker runs scheduled jobs. Overlapping runs of the same job are skipped.
type Worker struct {
	cron    *cron.Cron
	monitor Sweeper
	scanner Scanner
	log     *logrus.Entry

	mu           sync.Mutex
	ctx          context.Context
	sweepRunning bool
	scanRunning  bool
	status       Status
}

// New creates a worker. scanner may be nil.
func New(monitor Sweeper, sc Scanner, cfg Config, log *logrus.Entry) (*Worker, error) {
	if monitor == nil {
		return nil, errors.New("worker: monitor is required")
	}
	if cfg.SweepInterval <= 0 {
		return nil, fmt.Errorf("worker: sweep interval must be positive, got %s", cfg.SweepInterval)
	}
	if log == nil {
		log = logrus.WithField("component", "worker")
	}

	w := &Worker{
		cron:    cron.New(cron.WithLogger(cron.PrintfLogger(log))),
		monitor: monitor,
		scanner: sc,
		log:     log,
		ctx:     context.Background(),
	}

	if _, err := w.cron.AddFunc(fmt.Sprintf("@every %s", cfg.SweepInterval), w.scheduledSweep); err != nil {
		return nil, fmt.Errorf("schedule sweep: %w", err)
	}
	if sc != nil && cfg.ScanSchedule != "" {
		if _, err := w.cron.AddFunc(cfg.ScanSchedule, w.scheduledScan); err != nil {
			return nil, fmt.Errorf("schedule scan %q: %w", cfg.ScanSchedule, err)
		}
	}
	return w, nil
}

// Start runs the scheduler until Stop. Scheduled jobs use ctx.
func (w *Worker) Start(ctx context.Context) {
	w.mu.Lock()
	w.ctx = ctx
	w.mu.Unlock()

	w.cron.Start()
	w.log.WithField("jobs", len(w.cron.Entries())).Info("worker started")
}

// Stop stops scheduling and waits for running jobs.
func (w *Worker) Stop() {
	<-w.cron.Stop().Done()
	w.log.Info("worker stopped")
}

// RunSweepNow runs a sweep immediately unless one is already running.
func (w *Worker) RunSweepNow(ctx context.Context) (*order.SweepResult, error) {
	w.mu.Lock()
	if w.sweepRunning {
		w.mu.Unlock()
		return nil, ErrSweepRunning
	}
	w.sweepRunning = true
	w.mu.Unlock()

	res, err := w.monitor.Sweep(ctx)

	w.mu.Lock()
	w.sweepRunning = false
	w.status.Sweeps++
	w.status.LastSweepAt = time.Now()
	w.status.LastSweep = res
	w.mu.Unlock()
	return res, err
}

// RunScanNow runs a scanner pass immediately unless one is already running.
func (w *Worker) RunScanNow(ctx context.Context) ([]scanner.Candidate, error) {
	if w.scanner == nil {
		return nil, errors.New("worker: scanner not configured")
	}
	w.mu.Lock()
	if w.scanRunning {
		w.mu.Unlock()
		return nil, ErrScanRunning
	}
	w.scanRunning = true
	w.mu.Unlock()

	candidates, err := w.scanner.Scan(ctx)

	w.mu.Lock()
	w.scanRunning = false
	w.status.Scans++
	w.status.LastScanAt = time.Now()
	w.status.LastScanSize = len(candidates)
	w.mu.Unlock()
	return candidates, err
}

// Status returns a snapshot of worker activity.
func (w *Worker) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	st := w.status
	st.SweepRunning = w.sweepRunning
	st.ScanRunning = w.scanRunning
	return st
}

func (w *Worker) jobContext() context.Context {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ctx
}

func (w *Worker) scheduledSweep() {
	_, err := w.RunSweepNow(w.jobContext())
	switch {
	case errors.Is(err, ErrSweepRunning):
		w.log.Debug("sweep already running, skipping")
	case err != nil:
		w.log.WithError(err).Error("scheduled sweep failed")
	}
}

func (w *Worker) scheduledScan() {
	candidates, err := w.RunScanNow(w.jobContext())
	if err != nil {
		w.log.WithError(err).Warn("scheduled scan failed")
		return
	}
	for i, c := range candidates {
		if i == 5 {
			break
		}
		w.log.WithFields(logrus.Fields{
			"token":  c.Token.Address,
			"symbol": c.Token.Symbol,
			"score":  c.CompositeScore,
		}).Info("scan candidate")
	}
}
