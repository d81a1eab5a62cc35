package clickhouse

import (
	"context"
	"fmt"

	"solana-token-sniper/internal/domain"
	"solana-token-sniper/internal/storage"
)

// TokenSnapshotStore implements storage.TokenSnapshotStore using ClickHouse.
type TokenSnapshotStore struct {
	conn *Conn
}

// NewTokenSnapshotStore creates a new TokenSnapshotStore.
func NewTokenSnapshotStore(conn *Conn) *TokenSnapshotStore {
	return &TokenSnapshotStore{conn: conn}
}

// Compile-time interface check.
var _ storage.TokenSnapshotStore = (*TokenSnapshotStore)(nil)

const snapshotColumns = `
	address, chain, symbol, name, decimals,
	price_native, price_usd, liquidity_usd, volume_24h_usd,
	price_change_5m, price_change_1h, buys_5m, sells_5m,
	pair_address, dex_id, age_minutes,
	safety_score, safety_grade, composite_score, observed_at`

// Insert appends one snapshot.
func (s *TokenSnapshotStore) Insert(ctx context.Context, snap *domain.TokenSnapshot) error {
	if snap == nil || snap.Address == "" {
		return storage.ErrInvalidInput
	}
	return s.InsertBulk(ctx, []*domain.TokenSnapshot{snap})
}

// InsertBulk appends snapshots in a single batch.
func (s *TokenSnapshotStore) InsertBulk(ctx context.Context, snaps []*domain.TokenSnapshot) error {
	if len(snaps) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, "INSERT INTO token_snapshots ("+snapshotColumns+")")
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, snap := range snaps {
		if snap == nil || snap.Address == "" {
			return storage.ErrInvalidInput
		}
		err = batch.Append(
			snap.Address, string(snap.ChainID), snap.Symbol, snap.Name, snap.Decimals,
			snap.PriceNative, snap.PriceUSD, snap.LiquidityUSD, snap.Volume24hUSD,
			snap.PriceChange5m, snap.PriceChange1h, uint32(snap.Buys5m), uint32(snap.Sells5m),
			snap.PairAddress, snap.DexID, snap.AgeMinutes,
			int16(snap.SafetyScore), string(snap.SafetyGrade), snap.CompositeScore, snap.ObservedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// ListByToken returns the newest snapshots of a token. limit <= 0 returns all.
func (s *TokenSnapshotStore) ListByToken(ctx context.Context, address string, limit int) ([]*domain.TokenSnapshot, error) {
	query := "SELECT" + snapshotColumns + `
		FROM token_snapshots
		WHERE address = ?
		ORDER BY observed_at DESC`
	args := []any{address}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, uint64(limit))
	}

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query token snapshots: %w", err)
	}
	defer rows.Close()

	var out []*domain.TokenSnapshot
	for rows.Next() {
		var (
			snap         domain.TokenSnapshot
			chain, grade string
			buys, sells  uint32
			safety       int16
		)
		if err := rows.Scan(
			&snap.Address, &chain, &snap.Symbol, &snap.Name, &snap.Decimals,
			&snap.PriceNative, &snap.PriceUSD, &snap.LiquidityUSD, &snap.Volume24hUSD,
			&snap.PriceChange5m, &snap.PriceChange1h, &buys, &sells,
			&snap.PairAddress, &snap.DexID, &snap.AgeMinutes,
			&safety, &grade, &snap.CompositeScore, &snap.ObservedAt,
		); err != nil {
			return nil, fmt.Errorf("scan token snapshot: %w", err)
		}
		snap.ChainID = domain.Chain(chain)
		snap.SafetyGrade = domain.Grade(grade)
		snap.Buys5m = int(buys)
		snap.Sells5m = int(sells)
		snap.SafetyScore = int(safety)
		out = append(out, &snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate token snapshots: %w", err)
	}
	return out, nil
}
