package repositories

import (
	"context"

	"github.com/super-sh1z01d/ToTheMoon-sub001/internal/domain/entities"
)

// PoolRepository persists liquidity pools keyed by pool address.
type PoolRepository interface {
	// Upsert inserts the pool or refreshes dex and liveness on conflict.
	Upsert(ctx context.Context, pool *entities.Pool) error

	// GetByToken lists a token's pools, optionally only live ones.
	GetByToken(ctx context.Context, tokenAddress string, activeOnly bool) ([]entities.Pool, error)

	SetActive(ctx context.Context, poolAddress string, active bool) error
}
