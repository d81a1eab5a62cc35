package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"solana-token-sniper/internal/domain"
	"solana-token-sniper/internal/execution"
	"solana-token-sniper/internal/idhash"
	"solana-token-sniper/internal/observability"
	"solana-token-sniper/internal/outcome"
	"solana-token-sniper/internal/safety"
	"solana-token-sniper/internal/solana"
	"solana-token-sniper/internal/storage"
)

// ErrUnsafeToken is returned by Create when the safety gate rejects the token.
var ErrUnsafeToken = errors.New("token failed safety checks")

// maxCancelAttempts bounds the cancel compare-and-set loop.
const maxCancelAttempts = 5

// SafetyChecker gates order creation. *safety.Engine implements it.
type SafetyChecker interface {
	RunFullSafetyCheck(ctx context.Context, token string, chain domain.Chain, cfg safety.Config) (*domain.SafetyReport, error)
}

var _ SafetyChecker = (*safety.Engine)(nil)

// Config holds order service settings.
type Config struct {
	// MaxConsecutiveLosses force-completes an order once reached. Zero disables.
	MaxConsecutiveLosses int
	// MinSafetyScore rejects tokens scoring below it. Zero disables the floor.
	MinSafetyScore int
	Safety         safety.Config
	Chain          domain.Chain
	// DefaultExits fills both bands when a request sets neither.
	DefaultExits execution.ExitConfig
}

// DefaultConfig returns the default service settings.
func DefaultConfig() Config {
	return Config{
		MaxConsecutiveLosses: 3,
		Safety:               safety.DefaultConfig(),
		Chain:                domain.ChainSolana,
	}
}

// Service creates orders and applies externally confirmed fills.
type Service struct {
	orders     storage.OrderStore
	executions storage.ExecutionStore
	checker    SafetyChecker
	publisher  outcome.Publisher
	cfg        Config
	log        *logrus.Entry
	now        func() time.Time
	newID      func() string
}

// Option configures a Service.
type Option func(*Service)

// WithSafetyChecker enables the safety gate on Create.
func WithSafetyChecker(c SafetyChecker) Option {
	return func(s *Service) { s.checker = c }
}

// WithPublisher sets where closed trades are published.
func WithPublisher(p outcome.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithLogger sets the logger.
func WithLogger(log *logrus.Entry) Option {
	return func(s *Service) { s.log = log }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates an order service.
func NewService(orders storage.OrderStore, executions storage.ExecutionStore, cfg Config, opts ...Option) *Service {
	if cfg.Chain == "" {
		cfg.Chain = domain.ChainSolana
	}
	s := &Service{
		orders:     orders,
		executions: executions,
		publisher:  outcome.NopPublisher{},
		cfg:        cfg,
		log:        logrus.WithField("component", "order_service"),
		now:        time.Now,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateRequest describes a new order.
type CreateRequest struct {
	UserID          string           `json:"userId"`
	WalletAddress   string           `json:"walletAddress"`
	TokenAddress    string           `json:"tokenAddress"`
	Type            domain.OrderType `json:"orderType"`
	EntryPrice      float64          `json:"entryPrice"`
	ExitPrice       *float64         `json:"exitPrice,omitempty"`
	StopLoss        *float64         `json:"stopLoss,omitempty"`
	BuyAmountNative float64          `json:"buyAmountNative"`
	MaxTrades       *int             `json:"maxTrades,omitempty"` // auto only
	SkipSafety      bool             `json:"skipSafety,omitempty"`
}

// Validate checks the request. Errors wrap domain.ErrValidation.
func (r CreateRequest) Validate() error {
	if strings.TrimSpace(r.UserID) == "" {
		return domain.Validationf("user id is required")
	}
	if err := solana.ValidateAddress(r.WalletAddress); err != nil {
		return domain.Validationf("wallet address: %v", err)
	}
	if err := solana.ValidateAddress(r.TokenAddress); err != nil {
		return domain.Validationf("token address: %v", err)
	}
	if !r.Type.IsValid() {
		return domain.Validationf("unknown order type %q", r.Type)
	}
	if r.EntryPrice <= 0 {
		return domain.Validationf("entry price must be positive")
	}
	if r.BuyAmountNative <= 0 {
		return domain.Validationf("buy amount must be positive")
	}
	if err := validateBands(r.EntryPrice, r.ExitPrice, r.StopLoss); err != nil {
		return err
	}
	switch {
	case r.Type == domain.OrderTypeAuto && (r.MaxTrades == nil || *r.MaxTrades < 1):
		return domain.Validationf("auto orders need maxTrades >= 1")
	case r.Type != domain.OrderTypeAuto && r.MaxTrades != nil:
		return domain.Validationf("maxTrades applies to auto orders only")
	}
	return nil
}

func validateBands(entry float64, exit, stop *float64) error {
	if exit != nil && *exit <= entry {
		return domain.Validationf("exit price %v must be above entry %v", *exit, entry)
	}
	if stop != nil && (*stop <= 0 || *stop >= entry) {
		return domain.Validationf("stop loss %v must be in (0, entry %v)", *stop, entry)
	}
	return nil
}

// Create validates, optionally safety-gates and persists a PENDING order.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*domain.Order, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if s.checker != nil && !req.SkipSafety {
		if err := s.gate(ctx, req.TokenAddress); err != nil {
			return nil, err
		}
	}

	now := s.now().UTC()
	o := &domain.Order{
		ID:              s.newID(),
		UserID:          req.UserID,
		WalletAddress:   req.WalletAddress,
		TokenAddress:    req.TokenAddress,
		Type:            req.Type,
		EntryPrice:      req.EntryPrice,
		ExitPrice:       req.ExitPrice,
		StopLoss:        req.StopLoss,
		BuyAmountNative: req.BuyAmountNative,
		Status:          domain.OrderStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if req.ExitPrice == nil && req.StopLoss == nil {
		o.ExitPrice, o.StopLoss = s.cfg.DefaultExits.Bands(req.EntryPrice)
	}
	if req.MaxTrades != nil {
		n := *req.MaxTrades
		o.MaxTradesRemaining = &n
	}

	if err := s.orders.Insert(ctx, o); err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}

	observability.RecordTransition(string(o.Status))
	s.log.WithFields(logrus.Fields{
		"order_id": o.ID,
		"token":    o.TokenAddress,
		"type":     o.Type,
	}).Info("order created")
	return o, nil
}

func (s *Service) gate(ctx context.Context, token string) error {
	report, err := s.checker.RunFullSafetyCheck(ctx, token, s.cfg.Chain, s.cfg.Safety)
	if err != nil {
		return err
	}
	if !report.PassesAllChecks {
		return fmt.Errorf("%w: %w: %s", domain.ErrValidation, ErrUnsafeToken, strings.Join(report.Risks, "; "))
	}
	if s.cfg.MinSafetyScore > 0 && report.SafetyScore < s.cfg.MinSafetyScore {
		return fmt.Errorf("%w: %w: score %d below %d", domain.ErrValidation, ErrUnsafeToken, report.SafetyScore, s.cfg.MinSafetyScore)
	}
	return nil
}

// Get returns an order.
func (s *Service) Get(ctx context.Context, id string) (*domain.Order, error) {
	return s.orders.GetByID(ctx, id)
}

// ListByUser returns a user's orders, newest first.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]*domain.Order, error) {
	if userID == "" {
		return nil, domain.Validationf("user is required")
	}
	return s.orders.ListByUser(ctx, userID)
}

// Executions returns the trade ledger of an order.
func (s *Service) Executions(ctx context.Context, orderID string) ([]*domain.Execution, error) {
	return s.executions.ListByOrder(ctx, orderID)
}

// Watch moves a PENDING order to WATCHING.
func (s *Service) Watch(ctx context.Context, id string) (*domain.Order, error) {
	return s.transition(ctx, id, domain.OrderStatusPending, domain.OrderStatusWatching, nil)
}

// Cancel moves any non-terminal order to CANCELLED. Cancelling a cancelled
// order returns it unchanged.
func (s *Service) Cancel(ctx context.Context, id string) (*domain.Order, error) {
	for attempt := 0; attempt < maxCancelAttempts; attempt++ {
		cur, err := s.orders.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		switch {
		case cur.Status == domain.OrderStatusCancelled:
			return cur, nil
		case cur.Status.IsTerminal():
			return nil, fmt.Errorf("%w: %s", ErrTerminal, cur.Status)
		}

		updated, err := s.orders.CompareAndSetStatus(ctx, id, cur.Status, domain.OrderStatusCancelled, nil)
		if errors.Is(err, storage.ErrStatusConflict) {
			continue // status moved under us, re-read
		}
		if err != nil {
			return nil, err
		}

		s.logTransition(updated, cur.Status)
		if cur.Status == domain.OrderStatusFilledEntry {
			s.log.WithField("order_id", id).Warn("order cancelled while holding a position")
		}
		return updated, nil
	}
	return nil, fmt.Errorf("cancel order %s: %w", id, storage.ErrStatusConflict)
}

// AmendRequest changes the exit bands of an order.
type AmendRequest struct {
	ExitPrice *float64 `json:"exitPrice,omitempty"`
	StopLoss  *float64 `json:"stopLoss,omitempty"`
}

// Amend replaces the exit bands of a non-terminal order that is not waiting
// on a fill.
func (s *Service) Amend(ctx context.Context, id string, req AmendRequest) (*domain.Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: %s", ErrTerminal, o.Status)
	}
	if o.Status.IsReady() {
		return nil, fmt.Errorf("%w: order awaits a fill in %s", storage.ErrStatusConflict, o.Status)
	}
	if err := validateBands(o.EntryPrice, req.ExitPrice, req.StopLoss); err != nil {
		return nil, err
	}

	expected := o.Status
	o.ExitPrice = req.ExitPrice
	o.StopLoss = req.StopLoss
	if err := s.orders.Update(ctx, o, expected); err != nil {
		return nil, err
	}
	return s.orders.GetByID(ctx, id)
}

// EntryFill is a confirmed buy.
type EntryFill struct {
	Price        float64 `json:"price"`
	AmountNative float64 `json:"amountNative"`
	TxRef        string  `json:"txRef"`
	Dex          string  `json:"dex,omitempty"`
}

// ConfirmEntry records a confirmed buy: a holding execution in the ledger,
// then READY_TO_EXECUTE -> FILLED_ENTRY. The execution ID is derived from the
// order and transaction, so a retry after a partial failure finds the row it
// already wrote and only advances the order. Replaying a fill that was fully
// applied returns the recorded state.
func (s *Service) ConfirmEntry(ctx context.Context, id string, fill EntryFill) (*domain.Order, *domain.Execution, error) {
	if fill.Price <= 0 || fill.AmountNative <= 0 {
		return nil, nil, domain.Validationf("fill price and amount must be positive")
	}
	if fill.TxRef == "" {
		return nil, nil, domain.Validationf("fill transaction reference is required")
	}

	cur, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	execID := idhash.ComputeExecutionID(cur.ID, fill.TxRef)
	if cur.Status != domain.OrderStatusReadyToExecute {
		if prev, err := s.executions.GetByID(ctx, execID); err == nil && prev.OrderID == cur.ID && cur.FilledEntryAt != nil {
			return cur, prev, nil
		}
		return nil, nil, fmt.Errorf("order %s not in %s: %w", id, domain.OrderStatusReadyToExecute, storage.ErrStatusConflict)
	}

	now := s.now().UTC()
	dex := fill.Dex
	if dex == "" {
		dex = "jupiter"
	}
	e := &domain.Execution{
		ID:           execID,
		OrderID:      cur.ID,
		TokenAddress: cur.TokenAddress,
		Dex:          dex,
		Entry: domain.ExecutionLeg{
			Price:        fill.Price,
			AmountNative: fill.AmountNative,
			TxRef:        fill.TxRef,
		},
		Status:    domain.ExecutionStatusHolding,
		CreatedAt: now,
	}
	if err := s.executions.Insert(ctx, e); err != nil {
		if !errors.Is(err, storage.ErrDuplicateKey) {
			return nil, nil, fmt.Errorf("record execution: %w", err)
		}
		prev, gerr := s.executions.GetByID(ctx, execID)
		if gerr != nil || prev.OrderID != cur.ID {
			return nil, nil, fmt.Errorf("record execution: %w", err)
		}
		e = prev
	}

	o, err := s.transition(ctx, id, domain.OrderStatusReadyToExecute, domain.OrderStatusFilledEntry, func(o *domain.Order) {
		o.TradesExecuted++
		o.FilledEntryAt = &now
		o.FilledExitAt = nil
		if o.MaxTradesRemaining != nil && *o.MaxTradesRemaining > 0 {
			n := *o.MaxTradesRemaining - 1
			o.MaxTradesRemaining = &n
		}
	})
	if err != nil {
		// The buy landed on chain, so the holding execution stays in the ledger.
		s.log.WithFields(logrus.Fields{"order_id": id, "execution_id": e.ID}).WithError(err).Error("execution recorded but order not advanced")
		return nil, e, err
	}
	return o, e, nil
}

// ExitFill is a confirmed sell.
type ExitFill struct {
	Price        float64 `json:"price"`
	AmountNative float64 `json:"amountNative"`
	TxRef        string  `json:"txRef"`
	// NativePriceUSD converts native PnL to the quote currency. Zero leaves Quote at 0.
	NativePriceUSD float64 `json:"nativePriceUsd,omitempty"`
}

// ExitResult is the outcome of ConfirmExit.
type ExitResult struct {
	Order     *domain.Order     `json:"order"`
	Execution *domain.Execution `json:"execution"`
	// NextCycle is the re-armed order for auto mode, nil otherwise.
	NextCycle *domain.Order `json:"nextCycle,omitempty"`
	// ForceCompleted is set when the loss ceiling stopped further cycles.
	ForceCompleted bool `json:"forceCompleted"`
}

// ConfirmExit records a confirmed sell. The open execution is closed with its
// PnL first, then READY_TO_EXIT -> FILLED_EXIT or READY_TO_STOP -> STOPPED_OUT
// updates the loss streak, so a retry with the same exit transaction resumes
// where a failed attempt stopped. Auto orders with trades left re-arm as a
// new WATCHING order unless the loss ceiling was reached.
func (s *Service) ConfirmExit(ctx context.Context, id string, fill ExitFill) (*ExitResult, error) {
	if fill.Price <= 0 || fill.AmountNative < 0 {
		return nil, domain.Validationf("exit price must be positive and amount non-negative")
	}
	if fill.TxRef == "" {
		return nil, domain.Validationf("fill transaction reference is required")
	}

	cur, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	var next domain.OrderStatus
	var reason string
	switch cur.Status {
	case domain.OrderStatusReadyToExit:
		next, reason = domain.OrderStatusFilledExit, domain.ExitReasonTakeProfit
	case domain.OrderStatusReadyToStop:
		next, reason = domain.OrderStatusStoppedOut, domain.ExitReasonStopLoss
	default:
		if cur.Status.IsTerminal() {
			return nil, fmt.Errorf("%w: %s", ErrTerminal, cur.Status)
		}
		return nil, fmt.Errorf("%w: cannot confirm exit from %s", storage.ErrStatusConflict, cur.Status)
	}

	exit := domain.ExecutionLeg{
		Price:        fill.Price,
		AmountNative: fill.AmountNative,
		TxRef:        fill.TxRef,
		Reason:       reason,
	}
	now := s.now().UTC()
	closed, err := s.closeExecution(ctx, id, exit, fill.NativePriceUSD, now)
	if err != nil {
		return nil, err
	}

	// A breakeven exit leaves the loss streak as it was.
	pnl := closed.PnL.Native
	ceiling := false
	updated, err := s.transition(ctx, id, cur.Status, next, func(o *domain.Order) {
		o.FilledExitAt = &now
		switch {
		case pnl > 0:
			o.ConsecutiveLosses = 0
		case pnl < 0:
			o.ConsecutiveLosses++
		}
		if s.cfg.MaxConsecutiveLosses > 0 && o.ConsecutiveLosses >= s.cfg.MaxConsecutiveLosses {
			ceiling = true
			if o.MaxTradesRemaining != nil {
				zero := 0
				o.MaxTradesRemaining = &zero
			}
		}
	})
	if err != nil {
		s.log.WithFields(logrus.Fields{"order_id": id, "execution_id": closed.ID}).WithError(err).Error("execution closed but order not advanced")
		return nil, err
	}

	res := &ExitResult{Order: updated, Execution: closed, ForceCompleted: ceiling}
	if ceiling {
		s.log.WithFields(logrus.Fields{
			"order_id":           id,
			"consecutive_losses": updated.ConsecutiveLosses,
		}).Warn("loss ceiling reached, order force-completed")
	} else if cycle, err := s.rearm(ctx, updated); err != nil {
		s.log.WithField("order_id", id).WithError(err).Error("auto order re-arm failed")
	} else {
		res.NextCycle = cycle
	}

	if err := s.publisher.PublishOutcome(ctx, outcome.FromExecution(updated, closed)); err != nil {
		s.log.WithField("execution_id", closed.ID).WithError(err).Warn("outcome publish failed")
	}
	return res, nil
}

// closeExecution closes the order's holding execution with the exit leg and
// its PnL. When a previous attempt already closed it with the same exit
// transaction, the closed row is returned.
func (s *Service) closeExecution(ctx context.Context, orderID string, exit domain.ExecutionLeg, nativePriceUSD float64, now time.Time) (*domain.Execution, error) {
	open, err := s.executions.GetOpenByOrder(ctx, orderID)
	if errors.Is(err, storage.ErrNotFound) {
		if prev := s.closedByExitTx(ctx, orderID, exit.TxRef); prev != nil {
			return prev, nil
		}
	}
	if err != nil {
		return nil, fmt.Errorf("open execution for order %s: %w", orderID, err)
	}

	pnl := ComputePnL(open.Entry.AmountNative, exit.AmountNative, nativePriceUSD)
	if err := s.executions.Close(ctx, open.ID, exit, pnl, now); err != nil {
		if errors.Is(err, storage.ErrStatusConflict) {
			if prev := s.closedByExitTx(ctx, orderID, exit.TxRef); prev != nil {
				return prev, nil
			}
		}
		return nil, fmt.Errorf("close execution: %w", err)
	}
	closed, err := s.executions.GetByID(ctx, open.ID)
	if err != nil {
		return nil, fmt.Errorf("reload execution: %w", err)
	}
	return closed, nil
}

func (s *Service) closedByExitTx(ctx context.Context, orderID, txRef string) *domain.Execution {
	list, err := s.executions.ListByOrder(ctx, orderID)
	if err != nil {
		return nil
	}
	for i := len(list) - 1; i >= 0; i-- {
		e := list[i]
		if e.Status == domain.ExecutionStatusClosed && e.Exit != nil && e.Exit.TxRef == txRef && e.PnL != nil {
			return e
		}
	}
	return nil
}

// rearm starts the next cycle of an auto order. Returns nil for orders that
// are not auto or have no trades left.
func (s *Service) rearm(ctx context.Context, prev *domain.Order) (*domain.Order, error) {
	if prev.Type != domain.OrderTypeAuto || prev.MaxTradesRemaining == nil || *prev.MaxTradesRemaining <= 0 {
		return nil, nil
	}

	now := s.now().UTC()
	remaining := *prev.MaxTradesRemaining
	o := &domain.Order{
		ID:                 s.newID(),
		UserID:             prev.UserID,
		WalletAddress:      prev.WalletAddress,
		TokenAddress:       prev.TokenAddress,
		Type:               prev.Type,
		EntryPrice:         prev.EntryPrice,
		ExitPrice:          prev.ExitPrice,
		StopLoss:           prev.StopLoss,
		BuyAmountNative:    prev.BuyAmountNative,
		Status:             domain.OrderStatusWatching,
		TradesExecuted:     prev.TradesExecuted,
		MaxTradesRemaining: &remaining,
		ConsecutiveLosses:  prev.ConsecutiveLosses,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.orders.Insert(ctx, o); err != nil {
		return nil, err
	}

	observability.RecordTransition(string(o.Status))
	s.log.WithFields(logrus.Fields{
		"order_id":       o.ID,
		"previous_order": prev.ID,
		"remaining":      remaining,
	}).Info("auto order re-armed")
	return o, nil
}

// ComputePnL derives the realised PnL of a round trip from native amounts.
func ComputePnL(spentNative, receivedNative, nativePriceUSD float64) domain.PnL {
	spent := decimal.NewFromFloat(spentNative)
	received := decimal.NewFromFloat(receivedNative)
	native := received.Sub(spent)

	pnl := domain.PnL{Native: native.InexactFloat64()}
	if spent.IsPositive() {
		pnl.Percent = native.Div(spent).Mul(decimal.NewFromInt(100)).Round(4).InexactFloat64()
	}
	if nativePriceUSD > 0 {
		pnl.Quote = native.Mul(decimal.NewFromFloat(nativePriceUSD)).Round(6).InexactFloat64()
	}
	return pnl
}

// transition performs a validated compare-and-set.
func (s *Service) transition(ctx context.Context, id string, from, to domain.OrderStatus, mutate func(*domain.Order)) (*domain.Order, error) {
	if !CanTransition(from, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	o, err := s.orders.CompareAndSetStatus(ctx, id, from, to, mutate)
	if err != nil {
		if errors.Is(err, storage.ErrStatusConflict) {
			return nil, fmt.Errorf("order %s not in %s: %w", id, from, err)
		}
		return nil, err
	}
	s.logTransition(o, from)
	return o, nil
}

func (s *Service) logTransition(o *domain.Order, from domain.OrderStatus) {
	observability.RecordTransition(string(o.Status))
	s.log.WithFields(logrus.Fields{
		"order_id": o.ID,
		"from":     from,
		"to":       o.Status,
	}).Info("order status changed")
}
