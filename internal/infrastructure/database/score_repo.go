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

// Ensure ScoreRepo implements ScoreRepository
var _ repositories.ScoreRepository = (*ScoreRepo)(nil)

// ScoreRepo implements ScoreRepository using PostgreSQL
type ScoreRepo struct {
	db *sqlx.DB
}

// NewScoreRepo creates a new score repository
func NewScoreRepo(db *sqlx.DB) *ScoreRepo {
	return &ScoreRepo{db: db}
}

// Insert records a scoring result
func (r *ScoreRepo) Insert(ctx context.Context, record *entities.ScoreRecord) error {
	query := `
		INSERT INTO token_scores (token_address, model, score, components, computed_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.ExecContext(ctx, query,
		record.TokenAddress,
		record.Model,
		record.Score,
		record.Components,
		record.ComputedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert score: %w", err)
	}

	return nil
}

// GetLatest retrieves the most recent score for a token
func (r *ScoreRepo) GetLatest(ctx context.Context, tokenAddress string) (*entities.ScoreRecord, error) {
	var record entities.ScoreRecord
	query := `
		SELECT * FROM token_scores
		WHERE token_address = $1
		ORDER BY computed_at DESC
		LIMIT 1
	`

	if err := r.db.GetContext(ctx, &record, query, tokenAddress); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest score: %w", err)
	}

	return &record, nil
}

// DeleteOlderThan prunes scores computed before cutoff
func (r *ScoreRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM token_scores WHERE computed_at < $1`

	res, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete scores: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}

	return rows, nil
}
