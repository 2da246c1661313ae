package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/super-sh1z01d/ToTheMoon-sub001/internal/domain/entities"
	"github.com/super-sh1z01d/ToTheMoon-sub001/internal/domain/repositories"
)

// Ensure StatusHistoryRepo implements StatusHistoryRepository
var _ repositories.StatusHistoryRepository = (*StatusHistoryRepo)(nil)

// StatusHistoryRepo implements StatusHistoryRepository using PostgreSQL
type StatusHistoryRepo struct {
	db *sqlx.DB
}

// NewStatusHistoryRepo creates a new status history repository
func NewStatusHistoryRepo(db *sqlx.DB) *StatusHistoryRepo {
	return &StatusHistoryRepo{db: db}
}

// Append records a status transition
func (r *StatusHistoryRepo) Append(ctx context.Context, entry *entities.StatusHistoryEntry) error {
	query := `
		INSERT INTO status_history (token_address, from_status, to_status, reason, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx, query,
		entry.TokenAddress,
		entry.FromStatus,
		entry.ToStatus,
		entry.Reason,
		entry.Metadata,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append status history: %w", err)
	}

	return nil
}

// GetByToken retrieves a token's transition history, newest first
func (r *StatusHistoryRepo) GetByToken(ctx context.Context, tokenAddress string, limit int) ([]entities.StatusHistoryEntry, error) {
	var entries []entities.StatusHistoryEntry
	query := `SELECT * FROM status_history WHERE token_address = $1 ORDER BY created_at DESC, id DESC LIMIT $2`

	if err := r.db.SelectContext(ctx, &entries, query, tokenAddress, limit); err != nil {
		return nil, fmt.Errorf("failed to get status history: %w", err)
	}

	return entries, nil
}
