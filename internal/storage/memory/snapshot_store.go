package memory

import (
	"context"
	"sort"
	"sync"

	"solana-token-sniper/internal/domain"
	"solana-token-sniper/internal/storage"
)

// TokenSnapshotStore is an in-memory implementation of storage.TokenSnapshotStore.
type TokenSnapshotStore struct {
	mu   sync.RWMutex
	data map[string][]*domain.TokenSnapshot // keyed by token address
}

// NewTokenSnapshotStore creates a new in-memory snapshot store.
func NewTokenSnapshotStore() *TokenSnapshotStore {
	return &TokenSnapshotStore{
		data: make(map[string][]*domain.TokenSnapshot),
	}
}

var _ storage.TokenSnapshotStore = (*TokenSnapshotStore)(nil)

// Insert appends a snapshot.
func (s *TokenSnapshotStore) Insert(_ context.Context, snap *domain.TokenSnapshot) error {
	if snap == nil || snap.Address == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := *snap
	s.data[snap.Address] = append(s.data[snap.Address], &c)
	return nil
}

// ListByToken returns the newest snapshots of a token. limit <= 0 returns all.
func (s *TokenSnapshotStore) ListByToken(_ context.Context, address string, limit int) ([]*domain.TokenSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	src := s.data[address]
	out := make([]*domain.TokenSnapshot, 0, len(src))
	for _, snap := range src {
		c := *snap
		out = append(out, &c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ObservedAt.After(out[j].ObservedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
