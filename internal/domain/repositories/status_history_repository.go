package repositories

import (
	"context"

	"github.com/super-sh1z01d/ToTheMoon-sub001/internal/domain/entities"
)

// StatusHistoryRepository is the append-only transition audit log.
type StatusHistoryRepository interface {
	Append(ctx context.Context, entry *entities.StatusHistoryEntry) error
	GetByToken(ctx context.Context, tokenAddress string, limit int) ([]entities.StatusHistoryEntry, error)
}
