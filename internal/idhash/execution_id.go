// Package idhash derives deterministic identifiers.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeExecutionID derives the ledger ID of an execution.
// Formula: SHA256(order_id|entry_tx_signature), hex-encoded (64 characters).
// Confirming the same fill twice yields the same ID, so the ledger insert
// rejects the replay as a duplicate.
func ComputeExecutionID(orderID, entryTx string) string {
	data := fmt.Sprintf("%s|%s", orderID, entryTx)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
