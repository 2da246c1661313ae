package services

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/super-sh1z01d/ToTheMoon-sub001/internal/domain/entities"
	"github.com/super-sh1z01d/ToTheMoon-sub001/internal/testutil"
)

func TestRetentionService_Prune(t *testing.T) {
	snapshotRepo := testutil.NewMockSnapshotRepository()
	scoreRepo := testutil.NewMockScoreRepository()
	service := NewRetentionService(snapshotRepo, scoreRepo, 2*time.Hour, zap.NewNop())
	service.now = fixedClock(testutil.BaseTime)
	ctx := context.Background()

	snapshotRepo.Seed(testutil.CreateTestSnapshot(
		testutil.SnapshotCapturedAt(testutil.BaseTime.Add(-3 * time.Hour)),
	))
	snapshotRepo.Seed(testutil.CreateTestSnapshot(
		testutil.SnapshotCapturedAt(testutil.BaseTime.Add(-time.Hour)),
	))
	scoreRepo.Records = append(scoreRepo.Records,
		entities.ScoreRecord{TokenAddress: testutil.TokenAddressA, ComputedAt: testutil.BaseTime.Add(-3 * time.Hour)},
		entities.ScoreRecord{TokenAddress: testutil.TokenAddressA, ComputedAt: testutil.BaseTime.Add(-time.Hour)},
	)

	if err := service.Prune(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snaps, _ := snapshotRepo.GetSince(ctx, testutil.TokenAddressA, time.Time{})
	if len(snaps) != 1 {
		t.Errorf("expected 1 snapshot after pruning, got %d", len(snaps))
	}
	if len(scoreRepo.Records) != 1 {
		t.Errorf("expected 1 score after pruning, got %d", len(scoreRepo.Records))
	}
}
