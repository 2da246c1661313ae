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

// Ensure TokenRepo implements TokenRepository
var _ repositories.TokenRepository = (*TokenRepo)(nil)

// TokenRepo implements TokenRepository using PostgreSQL
type TokenRepo struct {
	db *sqlx.DB
}

// NewTokenRepo creates a new token repository
func NewTokenRepo(db *sqlx.DB) *TokenRepo {
	return &TokenRepo{db: db}
}

// Create inserts a new token in Initial status. Re-discovery of an
// existing address is a no-op.
func (r *TokenRepo) Create(ctx context.Context, token *entities.Token) (bool, error) {
	query := `
		INSERT INTO tokens (address, name, symbol, status, created_at, status_changed_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (address) DO NOTHING
	`

	res, err := r.db.ExecContext(ctx, query,
		token.Address,
		token.Name,
		token.Symbol,
		token.Status,
		token.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to create token: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}

	return rows > 0, nil
}

// GetByAddress retrieves a token by its address
func (r *TokenRepo) GetByAddress(ctx context.Context, address string) (*entities.Token, error) {
	var token entities.Token
	query := `SELECT * FROM tokens WHERE address = $1`

	if err := r.db.GetContext(ctx, &token, query, address); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get token: %w", err)
	}

	return &token, nil
}

// GetByStatus retrieves tokens in the given lifecycle status
func (r *TokenRepo) GetByStatus(ctx context.Context, status entities.TokenStatus, limit int) ([]entities.Token, error) {
	var tokens []entities.Token
	query := `SELECT * FROM tokens WHERE status = $1 ORDER BY created_at DESC LIMIT $2`

	if err := r.db.SelectContext(ctx, &tokens, query, status, limit); err != nil {
		return nil, fmt.Errorf("failed to get tokens by status: %w", err)
	}

	return tokens, nil
}

// GetAllPaginated retrieves tokens with pagination
func (r *TokenRepo) GetAllPaginated(ctx context.Context, limit, offset int) ([]entities.Token, error) {
	var tokens []entities.Token
	query := `SELECT * FROM tokens ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	if err := r.db.SelectContext(ctx, &tokens, query, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to get tokens: %w", err)
	}

	return tokens, nil
}

// Count returns the total number of tracked tokens
func (r *TokenRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM tokens`

	if err := r.db.GetContext(ctx, &count, query); err != nil {
		return 0, fmt.Errorf("failed to count tokens: %w", err)
	}

	return count, nil
}

// UpdateScore writes the latest smoothed score onto the token row
func (r *TokenRepo) UpdateScore(ctx context.Context, address string, score float64, at time.Time) error {
	query := `
		UPDATE tokens SET
			last_score = $2,
			last_score_at = $3
		WHERE address = $1
	`

	_, err := r.db.ExecContext(ctx, query, address, score, at)
	if err != nil {
		return fmt.Errorf("failed to update token score: %w", err)
	}

	return nil
}

// UpdateStatus performs a guarded status transition. The WHERE clause
// pins the expected current status so concurrent evaluators cannot
// double-apply a transition.
func (r *TokenRepo) UpdateStatus(ctx context.Context, address string, from, to entities.TokenStatus, at time.Time) (bool, error) {
	query := `
		UPDATE tokens SET
			status = $3,
			status_changed_at = $4,
			activated_at = CASE WHEN $3 = 'Active' THEN $4 ELSE activated_at END,
			archived_at = CASE WHEN $3 = 'Archived' THEN $4 ELSE archived_at END
		WHERE address = $1 AND status = $2
	`

	res, err := r.db.ExecContext(ctx, query, address, from, to, at)
	if err != nil {
		return false, fmt.Errorf("failed to update token status: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}

	return rows > 0, nil
}
