package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/super-sh1z01d/ToTheMoon-sub001/internal/domain/entities"
	"github.com/super-sh1z01d/ToTheMoon-sub001/internal/domain/repositories"
)

// Ensure PoolRepo implements PoolRepository
var _ repositories.PoolRepository = (*PoolRepo)(nil)

// PoolRepo implements PoolRepository using PostgreSQL
type PoolRepo struct {
	db *sqlx.DB
}

// NewPoolRepo creates a new pool repository
func NewPoolRepo(db *sqlx.DB) *PoolRepo {
	return &PoolRepo{db: db}
}

// Upsert creates or refreshes a pool
func (r *PoolRepo) Upsert(ctx context.Context, pool *entities.Pool) error {
	query := `
		INSERT INTO pools (address, token_address, dex, is_active)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (address) DO UPDATE SET
			dex = EXCLUDED.dex,
			is_active = EXCLUDED.is_active,
			updated_at = NOW()
	`

	_, err := r.db.ExecContext(ctx, query,
		pool.Address,
		pool.TokenAddress,
		pool.Dex,
		pool.IsActive,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert pool: %w", err)
	}

	return nil
}

// GetByToken retrieves a token's pools, optionally only live ones
func (r *PoolRepo) GetByToken(ctx context.Context, tokenAddress string, activeOnly bool) ([]entities.Pool, error) {
	var pools []entities.Pool
	query := `SELECT * FROM pools WHERE token_address = $1 ORDER BY created_at`
	if activeOnly {
		query = `SELECT * FROM pools WHERE token_address = $1 AND is_active ORDER BY created_at`
	}

	if err := r.db.SelectContext(ctx, &pools, query, tokenAddress); err != nil {
		return nil, fmt.Errorf("failed to get pools: %w", err)
	}

	return pools, nil
}

// SetActive flips a pool's liveness flag
func (r *PoolRepo) SetActive(ctx context.Context, poolAddress string, active bool) error {
	query := `UPDATE pools SET is_active = $2, updated_at = NOW() WHERE address = $1`

	_, err := r.db.ExecContext(ctx, query, poolAddress, active)
	if err != nil {
		return fmt.Errorf("failed to update pool liveness: %w", err)
	}

	return nil
}
