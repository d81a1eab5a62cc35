package order

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"solana-token-sniper/internal/domain"
	"solana-token-sniper/internal/observability"
	"solana-token-sniper/internal/storage"
)

// PriceSource returns the current quote-currency price of a token.
type PriceSource interface {
	CurrentPrice(ctx context.Context, token string) (float64, error)
}

// MonitorConfig tunes the sweep.
type MonitorConfig struct {
	Concurrency  int           // parallel order checks
	OrderDelay   time.Duration // minimum spacing between price lookups
	PriceTimeout time.Duration // per lookup
}

// DefaultMonitorConfig returns the default sweep settings.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		Concurrency:  4,
		OrderDelay:   200 * time.Millisecond,
		PriceTimeout: 5 * time.Second,
	}
}

// SweepResult summarises one sweep. A sweep never fails as a whole because
// of a single order.
type SweepResult struct {
	OrdersChecked  int           `json:"ordersChecked"`
	OrdersExecuted int           `json:"ordersExecuted"` // flagged READY_*
	Errors         int           `json:"errors"`
	ErrorDetails   []string      `json:"errorDetails,omitempty"`
	Duration       time.Duration `json:"duration"`
}

// Monitor evaluates active orders against current prices.
type Monitor struct {
	orders  storage.OrderStore
	prices  PriceSource
	cfg     MonitorConfig
	limiter *rate.Limiter
	log     *logrus.Entry
}

// NewMonitor creates a monitor.
func NewMonitor(orders storage.OrderStore, prices PriceSource, cfg MonitorConfig, log *logrus.Entry) *Monitor {
	d := DefaultMonitorConfig()
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = d.Concurrency
	}
	if cfg.PriceTimeout <= 0 {
		cfg.PriceTimeout = d.PriceTimeout
	}
	if log == nil {
		log = logrus.WithField("component", "order_monitor")
	}

	limit := rate.Inf
	if cfg.OrderDelay > 0 {
		limit = rate.Every(cfg.OrderDelay)
	}
	return &Monitor{
		orders:  orders,
		prices:  prices,
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, 1),
		log:     log,
	}
}

// Sweep checks every active order once. The error is non-nil only when the
// order list itself cannot be read.
func (m *Monitor) Sweep(ctx context.Context) (*SweepResult, error) {
	start := time.Now()
	res := &SweepResult{}

	active, err := m.orders.ListActive(ctx)
	if err != nil {
		res.Errors = 1
		res.ErrorDetails = []string{err.Error()}
		res.Duration = time.Since(start)
		observability.RecordSweep("failed", res.Duration.Seconds(), 0, 0, 1)
		return res, fmt.Errorf("list active orders: %w", err)
	}

	var (
		mu    sync.Mutex
		quote = newSweepPrices(m.prices, m.cfg.PriceTimeout)
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.cfg.Concurrency)

	for _, o := range active {
		o := o
		g.Go(func() error {
			flagged, err := m.check(gctx, quote, o)

			mu.Lock()
			defer mu.Unlock()
			res.OrdersChecked++
			if err != nil {
				res.Errors++
				res.ErrorDetails = append(res.ErrorDetails, fmt.Sprintf("order %s: %v", o.ID, err))
				m.log.WithFields(logrus.Fields{
					"order_id": o.ID,
					"token":    o.TokenAddress,
				}).WithError(err).Warn("order check failed")
			}
			if flagged {
				res.OrdersExecuted++
			}
			// Per-order failures never cancel the group.
			return nil
		})
	}
	_ = g.Wait()

	res.Duration = time.Since(start)
	status := "ok"
	if res.Errors > 0 {
		status = "partial"
	}
	observability.RecordSweep(status, res.Duration.Seconds(), res.OrdersChecked, res.OrdersExecuted, res.Errors)
	m.log.WithFields(logrus.Fields{
		"checked":  res.OrdersChecked,
		"flagged":  res.OrdersExecuted,
		"errors":   res.Errors,
		"duration": res.Duration.String(),
	}).Info("sweep complete")
	return res, nil
}

// check evaluates one order and reports whether it was flagged READY_*.
func (m *Monitor) check(ctx context.Context, quote *sweepPrices, o *domain.Order) (bool, error) {
	if err := m.limiter.Wait(ctx); err != nil {
		return false, err
	}

	price, err := quote.get(ctx, o.TokenAddress)
	if err != nil {
		return false, fmt.Errorf("price: %w", err)
	}

	next, changed := Evaluate(o, price)
	if !changed {
		return false, nil
	}

	// The write is a compare-and-set against the status we evaluated. A
	// concurrent cancel or another sweep makes it a no-op.
	updated, err := m.orders.CompareAndSetStatus(ctx, o.ID, o.Status, next, nil)
	if errors.Is(err, storage.ErrStatusConflict) {
		m.log.WithField("order_id", o.ID).Debug("order changed during sweep, skipped")
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("update status: %w", err)
	}

	observability.RecordTransition(string(updated.Status))
	m.log.WithFields(logrus.Fields{
		"order_id": o.ID,
		"from":     o.Status,
		"to":       updated.Status,
		"price":    price,
	}).Info("order status changed")
	return updated.Status.IsReady(), nil
}

// sweepPrices dedupes price lookups for the same token within one sweep.
// Failed lookups are not cached.
type sweepPrices struct {
	src     PriceSource
	timeout time.Duration
	group   singleflight.Group

	mu    sync.Mutex
	cache map[string]float64
}

func newSweepPrices(src PriceSource, timeout time.Duration) *sweepPrices {
	return &sweepPrices{src: src, timeout: timeout, cache: make(map[string]float64)}
}

func (p *sweepPrices) get(ctx context.Context, token string) (float64, error) {
	p.mu.Lock()
	if v, ok := p.cache[token]; ok {
		p.mu.Unlock()
		return v, nil
	}
	p.mu.Unlock()

	v, err, _ := p.group.Do(token, func() (any, error) {
		cctx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()
		price, err := p.src.CurrentPrice(cctx, token)
		if err != nil {
			return 0.0, err
		}
		if price <= 0 {
			return 0.0, fmt.Errorf("non-positive price %v", price)
		}
		p.mu.Lock()
		p.cache[token] = price
		p.mu.Unlock()
		return price, nil
	})
	if err != nil {
		return 0, err
	}
	return v.(float64), nil
}
