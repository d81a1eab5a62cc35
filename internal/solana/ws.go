package solana

import "context"

// SignatureWatcher waits for transaction confirmation over a WebSocket subscription.
type SignatureWatcher interface {
	// WaitForSignature blocks until the signature reaches the commitment,
	// the subscription drops, or ctx ends.
	WaitForSignature(ctx context.Context, signature, commitment string) (*SignatureNotification, error)

	// Close closes the WebSocket connection.
	Close() error
}

// SignatureNotification is delivered once a signature reaches the requested commitment.
type SignatureNotification struct {
	Signature string
	Slot      int64
	Err       interface{} // transaction error, nil on success
}
