package solana

import (
	"encoding/base64"

	bin "github.com/gagliardetto/binary"
	solanago "github.com/gagliardetto/solana-go"

	"solana-token-sniper/internal/domain"
)

// WrappedSOLMint is the native SOL mint used as the quote side of swaps.
const WrappedSOLMint = "So11111111111111111111111111111111111111112"

// LamportsPerSOL is the number of lamports in one SOL.
const LamportsPerSOL = 1_000_000_000

// ValidateAddress returns an ErrValidation for anything that is not a base58 32-byte key.
func ValidateAddress(addr string) error {
	if addr == "" {
		return domain.Validationf("empty address")
	}
	if _, err := solanago.PublicKeyFromBase58(addr); err != nil {
		return domain.Validationf("malformed address %q: %v", addr, err)
	}
	return nil
}

// TransactionSignature decodes a signed base64 transaction and returns its first signature.
// The first signature is the transaction id used for confirmation.
func TransactionSignature(signedTx string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(signedTx)
	if err != nil {
		return "", domain.Validationf("transaction is not base64: %v", err)
	}
	tx, err := solanago.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		return "", domain.Validationf("decode transaction: %v", err)
	}
	if len(tx.Signatures) == 0 || tx.Signatures[0] == (solanago.Signature{}) {
		return "", domain.Validationf("transaction is not signed")
	}
	return tx.Signatures[0].String(), nil
}
