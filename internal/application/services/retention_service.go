package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/super-sh1z01d/ToTheMoon-sub001/internal/domain/repositories"
)

// RetentionService prunes aged snapshots and score records. Tokens,
// pools and status history are kept forever.
type RetentionService struct {
	snapshotRepo repositories.SnapshotRepository
	scoreRepo    repositories.ScoreRepository
	window       time.Duration
	logger       *zap.Logger

	now func() time.Time
}

// NewRetentionService creates a new retention service
func NewRetentionService(
	snapshotRepo repositories.SnapshotRepository,
	scoreRepo repositories.ScoreRepository,
	window time.Duration,
	logger *zap.Logger,
) *RetentionService {
	return &RetentionService{
		snapshotRepo: snapshotRepo,
		scoreRepo:    scoreRepo,
		window:       window,
		logger:       logger,
		now:          time.Now,
	}
}

// Prune deletes snapshots and scores older than the retention window.
func (s *RetentionService) Prune(ctx context.Context) error {
	cutoff := s.now().UTC().Add(-s.window)

	snaps, err := s.snapshotRepo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to prune snapshots: %w", err)
	}

	scores, err := s.scoreRepo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to prune scores: %w", err)
	}

	s.logger.Info("Pruned aged records",
		zap.Int64("snapshots", snaps),
		zap.Int64("scores", scores),
		zap.Time("cutoff", cutoff),
	)

	return nil
}
