package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/super-sh1z01d/ToTheMoon-sub001/internal/domain/repositories"
)

// Ensure SettingsRepo implements SettingsRepository
var _ repositories.SettingsRepository = (*SettingsRepo)(nil)

// SettingsRepo implements SettingsRepository using PostgreSQL
type SettingsRepo struct {
	db *sqlx.DB
}

// NewSettingsRepo creates a new settings repository
func NewSettingsRepo(db *sqlx.DB) *SettingsRepo {
	return &SettingsRepo{db: db}
}

// Get retrieves a settings document by key
func (r *SettingsRepo) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	query := `SELECT value FROM settings WHERE key = $1`

	if err := r.db.GetContext(ctx, &value, query, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get setting: %w", err)
	}

	return value, nil
}

// Set stores a settings document
func (r *SettingsRepo) Set(ctx context.Context, key string, value []byte) error {
	query := `
		INSERT INTO settings (key, value)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = NOW()
	`

	_, err := r.db.ExecContext(ctx, query, key, value)
	if err != nil {
		return fmt.Errorf("failed to set setting: %w", err)
	}

	return nil
}
