package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/super-sh1z01d/ToTheMoon-sub001/internal/domain/entities"
	"github.com/super-sh1z01d/ToTheMoon-sub001/internal/domain/repositories"
)

// Ensure SnapshotRepo implements SnapshotRepository
var _ repositories.SnapshotRepository = (*SnapshotRepo)(nil)

// SnapshotRepo implements SnapshotRepository using PostgreSQL
type SnapshotRepo struct {
	db *sqlx.DB
}

// NewSnapshotRepo creates a new snapshot repository
func NewSnapshotRepo(db *sqlx.DB) *SnapshotRepo {
	return &SnapshotRepo{db: db}
}

// Insert appends a snapshot when its capture time is strictly newer
// than the token's latest stored snapshot. Out-of-order snapshots are
// dropped so per-token capture times stay strictly increasing.
func (r *SnapshotRepo) Insert(ctx context.Context, snap *entities.MetricSnapshot) (bool, error) {
	query := `
		INSERT INTO metric_snapshots (
			token_address, captured_at,
			tx_count_short, tx_count_long,
			volume_short, volume_long,
			buy_volume, sell_volume,
			holder_count, liquidity
		)
		SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		WHERE NOT EXISTS (
			SELECT 1 FROM metric_snapshots
			WHERE token_address = $1 AND captured_at >= $2
		)
	`

	res, err := r.db.ExecContext(ctx, query,
		snap.TokenAddress,
		snap.CapturedAt,
		snap.TxCountShort,
		snap.TxCountLong,
		snap.VolumeShort,
		snap.VolumeLong,
		snap.BuyVolume,
		snap.SellVolume,
		snap.HolderCount,
		snap.Liquidity,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert snapshot: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}

	return rows > 0, nil
}

// GetSince retrieves snapshots captured at or after since, oldest first
func (r *SnapshotRepo) GetSince(ctx context.Context, tokenAddress string, since time.Time) ([]entities.MetricSnapshot, error) {
	var snaps []entities.MetricSnapshot
	query := `
		SELECT * FROM metric_snapshots
		WHERE token_address = $1 AND captured_at >= $2
		ORDER BY captured_at
	`

	if err := r.db.SelectContext(ctx, &snaps, query, tokenAddress, since); err != nil {
		return nil, fmt.Errorf("failed to get snapshots: %w", err)
	}

	return snaps, nil
}

// GetLatest retrieves the most recent snapshot for a token
func (r *SnapshotRepo) GetLatest(ctx context.Context, tokenAddress string) (*entities.MetricSnapshot, error) {
	var snap entities.MetricSnapshot
	query := `
		SELECT * FROM metric_snapshots
		WHERE token_address = $1
		ORDER BY captured_at DESC
		LIMIT 1
	`

	if err := r.db.GetContext(ctx, &snap, query, tokenAddress); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest snapshot: %w", err)
	}

	return &snap, nil
}

// DeleteOlderThan prunes snapshots captured before cutoff
func (r *SnapshotRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM metric_snapshots WHERE captured_at < $1`

	res, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete snapshots: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}

	return rows, nil
}
