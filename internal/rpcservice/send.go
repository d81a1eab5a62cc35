package rpcservice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"solana-token-sniper/internal/domain"
	"solana-token-sniper/internal/observability"
	"solana-token-sniper/internal/solana"
)

// ErrTransactionFailed means the transaction landed but the program returned an error.
// Resubmitting the same signed bytes cannot succeed, so it is never retried.
var ErrTransactionFailed = errors.New("transaction failed on chain")

// SendOptions configures SendTransaction.
type SendOptions struct {
	MaxRetries    int    // attempts on the active endpoint, default 3
	SkipPreflight bool
	Commitment    string // processed, confirmed or finalized; default confirmed
}

// SendResult describes a confirmed submission.
type SendResult struct {
	Signature    string       `json:"signature"`
	Endpoint     EndpointKind `json:"endpoint"`
	Attempts     int          `json:"attempts"`
	UsedFallback bool         `json:"usedFallback"`
	Slot         int64        `json:"slot"`
}

// SendTransaction submits a signed base64 transaction and waits for confirmation.
// Each attempt is submit + confirm, separated by a fixed backoff. When the
// active endpoint is custom and every attempt fails, exactly one more attempt
// goes to the premium endpoint.
func (s *Service) SendTransaction(ctx context.Context, signedTx string, opts SendOptions) (*SendResult, error) {
	signature, err := solana.TransactionSignature(signedTx)
	if err != nil {
		return nil, err
	}

	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = s.cfg.SendMaxRetries
	}
	if opts.Commitment == "" {
		opts.Commitment = "confirmed"
	}

	client, kind := s.active()
	log := s.log.WithFields(logrus.Fields{"signature": signature, "endpoint": kind})

	var lastErr error
	attempts := 0
	for attempt := 1; attempt <= maxRetries; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, domain.ExecutionFailed("send transaction", ctx.Err())
			case <-time.After(s.cfg.SendBackoff):
			}
		}

		attempts++
		slot, err := s.submitAndConfirm(ctx, client, signedTx, signature, opts)
		if err == nil {
			observability.RecordSendAttempt(string(kind), "confirmed")
			return &SendResult{Signature: signature, Endpoint: kind, Attempts: attempts, Slot: slot}, nil
		}

		lastErr = err
		observability.RecordSendAttempt(string(kind), "failed")
		log.WithError(err).WithField("attempt", attempt).Warn("send attempt failed")

		if errors.Is(err, ErrTransactionFailed) {
			return nil, domain.ExecutionFailed("send transaction", err)
		}
	}

	if kind == EndpointCustom {
		attempts++
		log.Warn("custom endpoint exhausted, trying premium once")
		slot, err := s.submitAndConfirm(ctx, s.premium, signedTx, signature, opts)
		if err == nil {
			observability.RecordSendAttempt(string(EndpointPremium), "confirmed")
			return &SendResult{
				Signature:    signature,
				Endpoint:     EndpointPremium,
				Attempts:     attempts,
				UsedFallback: true,
				Slot:         slot,
			}, nil
		}
		observability.RecordSendAttempt(string(EndpointPremium), "failed")
		lastErr = fmt.Errorf("premium fallback: %w", err)
	}

	return nil, domain.ExecutionFailed("send transaction", fmt.Errorf("after %d attempts: %w", attempts, lastErr))
}

func (s *Service) submitAndConfirm(ctx context.Context, client Client, signedTx, signature string, opts SendOptions) (int64, error) {
	if _, err := client.SendTransaction(ctx, signedTx, solana.SendOpts{
		SkipPreflight:       opts.SkipPreflight,
		PreflightCommitment: opts.Commitment,
	}); err != nil {
		return 0, fmt.Errorf("submit: %w", err)
	}
	return s.confirm(ctx, client, signature, opts.Commitment)
}

// confirm waits on the endpoint's WebSocket watcher when configured and falls back to polling.
func (s *Service) confirm(ctx context.Context, client Client, signature, commitment string) (int64, error) {
	confirmCtx, cancel := context.WithTimeout(ctx, s.cfg.ConfirmTimeout)
	defer cancel()

	if watcher := s.watcherFor(client); watcher != nil {
		notif, err := watcher.WaitForSignature(confirmCtx, signature, commitment)
		if err == nil {
			if notif.Err != nil {
				return notif.Slot, fmt.Errorf("%w: %v", ErrTransactionFailed, notif.Err)
			}
			return notif.Slot, nil
		}
		if confirmCtx.Err() != nil {
			return 0, fmt.Errorf("confirm %s: %w", signature, confirmCtx.Err())
		}
		s.log.WithError(err).Debug("signature subscription unavailable, polling")
	}

	return s.pollConfirmation(confirmCtx, client, signature, commitment)
}

func (s *Service) pollConfirmation(ctx context.Context, client Client, signature, commitment string) (int64, error) {
	ticker := time.NewTicker(s.cfg.ConfirmPollInterval)
	defer ticker.Stop()

	for {
		statuses, err := client.GetSignatureStatuses(ctx, []string{signature})
		if err == nil && len(statuses) > 0 && statuses[0] != nil {
			st := statuses[0]
			if st.Err != nil {
				return st.Slot, fmt.Errorf("%w: %v", ErrTransactionFailed, st.Err)
			}
			if st.Reached(commitment) {
				return st.Slot, nil
			}
		}

		select {
		case <-ctx.Done():
			return 0, fmt.Errorf("confirm %s: %w", signature, ctx.Err())
		case <-ticker.C:
		}
	}
}
