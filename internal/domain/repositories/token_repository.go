package repositories

import (
	"context"
	"time"

	"github.com/super-sh1z01d/ToTheMoon-sub001/internal/domain/entities"
)

// TokenRepository persists tokens and their lifecycle state.
type TokenRepository interface {
	// Create inserts a token if it does not exist yet. Returns false
	// when the address was already present.
	Create(ctx context.Context, token *entities.Token) (bool, error)

	// GetByAddress returns (nil, nil) when the token is unknown.
	GetByAddress(ctx context.Context, address string) (*entities.Token, error)

	GetByStatus(ctx context.Context, status entities.TokenStatus, limit int) ([]entities.Token, error)
	GetAllPaginated(ctx context.Context, limit, offset int) ([]entities.Token, error)
	Count(ctx context.Context) (int64, error)

	// UpdateScore writes the latest smoothed score onto the token row.
	UpdateScore(ctx context.Context, address string, score float64, at time.Time) error

	// UpdateStatus moves a token from one status to another with a
	// guarded update: the row is only touched when its current status
	// still equals from. Returns false when the guard did not match,
	// meaning another writer transitioned the token first.
	UpdateStatus(ctx context.Context, address string, from, to entities.TokenStatus, at time.Time) (bool, error)
}
