package solana

import (
	"encoding/base64"
	"errors"
	"testing"

	"github.com/mr-tron/base58"

	"solana-token-sniper/internal/domain"
)

// legacyTx encodes a one-signature legacy transaction by hand.
func legacyTx(sig []byte) string {
	raw := []byte{1}
	raw = append(raw, sig...)
	raw = append(raw, 1, 0, 1, 2)
	raw = append(raw, testPubkey(1)...)
	raw = append(raw, testPubkey(2)...)
	raw = append(raw, make([]byte, 32)...)
	raw = append(raw, 1, 1, 1, 0, 0)
	return base64.StdEncoding.EncodeToString(raw)
}

func TestTransactionSignature(t *testing.T) {
	sig := make([]byte, 64)
	for i := range sig {
		sig[i] = byte(i + 1)
	}

	got, err := TransactionSignature(legacyTx(sig))
	if err != nil {
		t.Fatalf("TransactionSignature: %v", err)
	}
	if got != base58.Encode(sig) {
		t.Errorf("expected %s, got %s", base58.Encode(sig), got)
	}

	if _, err := TransactionSignature(legacyTx(make([]byte, 64))); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected ErrValidation for unsigned tx, got %v", err)
	}
}

func TestValidateAddress(t *testing.T) {
	if err := ValidateAddress(WrappedSOLMint); err != nil {
		t.Errorf("expected valid address, got %v", err)
	}

	for _, addr := range []string{"", "not-a-key", "0x6B175474E89094C44Da98b954EedeAC495271d0F", "1111"} {
		err := ValidateAddress(addr)
		if err == nil {
			t.Errorf("expected error for %q", addr)
			continue
		}
		if !errors.Is(err, domain.ErrValidation) {
			t.Errorf("expected ErrValidation for %q, got %v", addr, err)
		}
	}
}

func TestTransactionSignature_Invalid(t *testing.T) {
	if _, err := TransactionSignature("%%%"); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected ErrValidation for non-base64, got %v", err)
	}

	garbage := base64.StdEncoding.EncodeToString([]byte{0})
	if _, err := TransactionSignature(garbage); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected ErrValidation for undecodable tx, got %v", err)
	}
}
