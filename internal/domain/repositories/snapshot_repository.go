package repositories

import (
	"context"
	"time"

	"github.com/super-sh1z01d/ToTheMoon-sub001/internal/domain/entities"
)

// SnapshotRepository persists market metric snapshots per token.
type SnapshotRepository interface {
	// Insert appends a snapshot only when its capture time is strictly
	// newer than the token's latest stored snapshot. Returns false when
	// the snapshot was rejected as out of order.
	Insert(ctx context.Context, snap *entities.MetricSnapshot) (bool, error)

	// GetSince returns snapshots captured at or after since, oldest first.
	GetSince(ctx context.Context, tokenAddress string, since time.Time) ([]entities.MetricSnapshot, error)

	// GetLatest returns (nil, nil) when the token has no snapshots.
	GetLatest(ctx context.Context, tokenAddress string) (*entities.MetricSnapshot, error)

	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
