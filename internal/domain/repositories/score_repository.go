package repositories

import (
	"context"
	"time"

	"github.com/super-sh1z01d/ToTheMoon-sub001/internal/domain/entities"
)

// ScoreRepository persists scoring results per token.
type ScoreRepository interface {
	Insert(ctx context.Context, record *entities.ScoreRecord) error

	// GetLatest returns (nil, nil) when the token has never been scored.
	GetLatest(ctx context.Context, tokenAddress string) (*entities.ScoreRecord, error)

	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
