package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/super-sh1z01d/ToTheMoon-sub001/internal/domain/entities"
	"github.com/super-sh1z01d/ToTheMoon-sub001/internal/domain/repositories"
	"github.com/super-sh1z01d/ToTheMoon-sub001/internal/infrastructure/pumpportal"
)

// IngestService turns discovery feed events into tracked tokens and
// pools. It is the only writer that creates token rows.
type IngestService struct {
	tokenRepo   repositories.TokenRepository
	poolRepo    repositories.PoolRepository
	historyRepo repositories.StatusHistoryRepository
	logger      *zap.Logger

	now func() time.Time
}

var _ pumpportal.EventHandler = (*IngestService)(nil)

// NewIngestService creates a new ingest service
func NewIngestService(
	tokenRepo repositories.TokenRepository,
	poolRepo repositories.PoolRepository,
	historyRepo repositories.StatusHistoryRepository,
	logger *zap.Logger,
) *IngestService {
	return &IngestService{
		tokenRepo:   tokenRepo,
		poolRepo:    poolRepo,
		historyRepo: historyRepo,
		logger:      logger,
		now:         time.Now,
	}
}

// HandleNewToken registers a newly created token in Initial status.
// Re-discovery of a known address is a no-op.
func (s *IngestService) HandleNewToken(ctx context.Context, event *pumpportal.Event) error {
	return s.ensureToken(ctx, event)
}

// HandleMigration registers the token if it is somehow unknown, then
// records its migration pool as live.
func (s *IngestService) HandleMigration(ctx context.Context, event *pumpportal.Event) error {
	if err := s.ensureToken(ctx, event); err != nil {
		return err
	}

	if event.PoolAddress == "" {
		s.logger.Debug("Migration event without pool address",
			zap.String("token", event.TokenAddress),
		)
		return nil
	}

	pool := &entities.Pool{
		Address:      event.PoolAddress,
		TokenAddress: event.TokenAddress,
		Dex:          event.Dex,
		IsActive:     true,
	}
	if err := s.poolRepo.Upsert(ctx, pool); err != nil {
		return fmt.Errorf("failed to record migration pool: %w", err)
	}

	s.logger.Info("Recorded migration pool",
		zap.String("token", event.TokenAddress),
		zap.String("pool", event.PoolAddress),
		zap.String("dex", event.Dex),
	)

	return nil
}

func (s *IngestService) ensureToken(ctx context.Context, event *pumpportal.Event) error {
	now := s.now().UTC()
	token := &entities.Token{
		Address:   event.TokenAddress,
		Name:      event.Name,
		Symbol:    event.Symbol,
		Status:    entities.StatusInitial,
		CreatedAt: now,
	}

	created, err := s.tokenRepo.Create(ctx, token)
	if err != nil {
		return fmt.Errorf("failed to create token: %w", err)
	}
	if !created {
		s.logger.Debug("Token already tracked", zap.String("token", event.TokenAddress))
		return nil
	}

	entry := &entities.StatusHistoryEntry{
		TokenAddress: event.TokenAddress,
		FromStatus:   nil,
		ToStatus:     entities.StatusInitial,
		Reason:       entities.ReasonDiscovery,
		CreatedAt:    now,
	}
	if err := s.historyRepo.Append(ctx, entry); err != nil {
		return fmt.Errorf("failed to record discovery: %w", err)
	}

	statusTransitions.WithLabelValues(string(entities.ReasonDiscovery)).Inc()
	s.logger.Info("Discovered new token",
		zap.String("token", event.TokenAddress),
		zap.String("symbol", event.Symbol),
	)

	return nil
}
