package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/super-sh1z01d/ToTheMoon-sub001/internal/domain/entities"
	"github.com/super-sh1z01d/ToTheMoon-sub001/internal/testutil"
)

func setupLifecycleTest() (*LifecycleService, *testutil.MockTokenRepository, *testutil.MockSnapshotRepository, *testutil.MockStatusHistoryRepository) {
	tokenRepo := testutil.NewMockTokenRepository()
	snapshotRepo := testutil.NewMockSnapshotRepository()
	historyRepo := testutil.NewMockStatusHistoryRepository()
	source := &staticParams{p: testParams()}

	service := NewLifecycleService(tokenRepo, snapshotRepo, historyRepo, source, 50, zap.NewNop())
	return service, tokenRepo, snapshotRepo, historyRepo
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func TestLifecycleService_ActivatesOnThresholds(t *testing.T) {
	service, tokenRepo, snapshotRepo, historyRepo := setupLifecycleTest()
	ctx := context.Background()
	service.now = fixedClock(testutil.BaseTime.Add(time.Hour))

	token := testutil.CreateTestToken()
	tokenRepo.Seed(token)
	snapshotRepo.Seed(testutil.CreateTestSnapshot(
		testutil.SnapshotWithActivity(300, 500),
	))

	if err := service.EvaluateInitial(ctx, &token, testParams()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	updated, _ := tokenRepo.GetByAddress(ctx, token.Address)
	if updated.Status != entities.StatusActive {
		t.Fatalf("expected Active, got %s", updated.Status)
	}
	if updated.ActivatedAt == nil {
		t.Error("activation timestamp not set")
	}
	if len(historyRepo.Entries) != 1 || historyRepo.Entries[0].Reason != entities.ReasonActivation {
		t.Errorf("expected one Activation history entry")
	}
}

func TestLifecycleService_StaysInitialBelowThresholds(t *testing.T) {
	service, tokenRepo, snapshotRepo, _ := setupLifecycleTest()
	ctx := context.Background()
	service.now = fixedClock(testutil.BaseTime.Add(time.Hour))

	token := testutil.CreateTestToken()
	tokenRepo.Seed(token)
	snapshotRepo.Seed(testutil.CreateTestSnapshot(
		testutil.SnapshotWithActivity(299, 500),
	))

	if err := service.EvaluateInitial(ctx, &token, testParams()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	updated, _ := tokenRepo.GetByAddress(ctx, token.Address)
	if updated.Status != entities.StatusInitial {
		t.Errorf("expected Initial, got %s", updated.Status)
	}
}

func TestLifecycleService_ArchivesOnDiscoveryTimeout(t *testing.T) {
	service, tokenRepo, _, historyRepo := setupLifecycleTest()
	ctx := context.Background()
	service.now = fixedClock(testutil.BaseTime.Add(24 * time.Hour))

	token := testutil.CreateTestToken()
	tokenRepo.Seed(token)

	if err := service.EvaluateInitial(ctx, &token, testParams()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	updated, _ := tokenRepo.GetByAddress(ctx, token.Address)
	if updated.Status != entities.StatusArchived {
		t.Fatalf("expected Archived, got %s", updated.Status)
	}
	if len(historyRepo.Entries) != 1 || historyRepo.Entries[0].Reason != entities.ReasonArchivalTimeout {
		t.Errorf("expected one ArchivalTimeout history entry")
	}
}

func TestLifecycleService_NoArchiveBeforeTimeout(t *testing.T) {
	service, tokenRepo, _, _ := setupLifecycleTest()
	ctx := context.Background()
	service.now = fixedClock(testutil.BaseTime.Add(23 * time.Hour))

	token := testutil.CreateTestToken()
	tokenRepo.Seed(token)

	if err := service.EvaluateInitial(ctx, &token, testParams()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	updated, _ := tokenRepo.GetByAddress(ctx, token.Address)
	if updated.Status != entities.StatusInitial {
		t.Errorf("expected Initial, got %s", updated.Status)
	}
}

func TestLifecycleService_LowScoreNeedsFullDuration(t *testing.T) {
	service, tokenRepo, snapshotRepo, _ := setupLifecycleTest()
	ctx := context.Background()
	p := testParams()

	token := testutil.CreateTestToken(
		testutil.TokenActivatedAt(testutil.BaseTime),
		testutil.TokenWithScore(0.3),
	)
	tokenRepo.Seed(token)
	snapshotRepo.Seed(testutil.CreateTestSnapshot(
		testutil.SnapshotWithActivity(400, 1000),
	))

	// First observation starts the window, no archive yet.
	service.now = fixedClock(testutil.BaseTime)
	if err := service.EvaluateActive(ctx, &token, p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	updated, _ := tokenRepo.GetByAddress(ctx, token.Address)
	if updated.Status != entities.StatusActive {
		t.Fatalf("archived before duration elapsed")
	}

	// Just before the duration boundary: still active.
	service.now = fixedClock(testutil.BaseTime.Add(p.LowScoreDuration - time.Second))
	if err := service.EvaluateActive(ctx, &token, p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	updated, _ = tokenRepo.GetByAddress(ctx, token.Address)
	if updated.Status != entities.StatusActive {
		t.Fatalf("archived before duration elapsed")
	}

	// At the boundary: archived with LowScore.
	service.now = fixedClock(testutil.BaseTime.Add(p.LowScoreDuration))
	if err := service.EvaluateActive(ctx, &token, p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	updated, _ = tokenRepo.GetByAddress(ctx, token.Address)
	if updated.Status != entities.StatusArchived {
		t.Fatalf("expected Archived at duration boundary, got %s", updated.Status)
	}
}

func TestLifecycleService_LowScoreWindowResetsOnRecovery(t *testing.T) {
	service, tokenRepo, snapshotRepo, _ := setupLifecycleTest()
	ctx := context.Background()
	p := testParams()

	token := testutil.CreateTestToken(
		testutil.TokenActivatedAt(testutil.BaseTime),
		testutil.TokenWithScore(0.3),
	)
	tokenRepo.Seed(token)
	snapshotRepo.Seed(testutil.CreateTestSnapshot(
		testutil.SnapshotWithActivity(400, 1000),
	))

	service.now = fixedClock(testutil.BaseTime)
	if err := service.EvaluateActive(ctx, &token, p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Recovery above the threshold clears the window.
	recovered := 0.9
	token.LastScore = &recovered
	service.now = fixedClock(testutil.BaseTime.Add(30 * time.Minute))
	if err := service.EvaluateActive(ctx, &token, p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Dropping again starts a fresh window; the old elapsed time is gone.
	low := 0.3
	token.LastScore = &low
	service.now = fixedClock(testutil.BaseTime.Add(p.LowScoreDuration + time.Minute))
	if err := service.EvaluateActive(ctx, &token, p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	updated, _ := tokenRepo.GetByAddress(ctx, token.Address)
	if updated.Status != entities.StatusActive {
		t.Errorf("window should have reset on recovery, got %s", updated.Status)
	}
}

func TestLifecycleService_LowActivityStreakArchives(t *testing.T) {
	service, tokenRepo, snapshotRepo, historyRepo := setupLifecycleTest()
	ctx := context.Background()
	p := testParams()
	p.LowActivityChecks = 3
	service.now = fixedClock(testutil.BaseTime.Add(time.Minute))

	token := testutil.CreateTestToken(
		testutil.TokenActivatedAt(testutil.BaseTime),
		testutil.TokenWithScore(0.9),
	)
	tokenRepo.Seed(token)
	snapshotRepo.Seed(testutil.CreateTestSnapshot(
		testutil.SnapshotWithActivity(10, 1000),
	))

	for i := 0; i < 2; i++ {
		if err := service.EvaluateActive(ctx, &token, p); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		updated, _ := tokenRepo.GetByAddress(ctx, token.Address)
		if updated.Status != entities.StatusActive {
			t.Fatalf("archived after %d checks, needs %d", i+1, p.LowActivityChecks)
		}
	}

	if err := service.EvaluateActive(ctx, &token, p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	updated, _ := tokenRepo.GetByAddress(ctx, token.Address)
	if updated.Status != entities.StatusArchived {
		t.Fatalf("expected Archived after streak, got %s", updated.Status)
	}
	if len(historyRepo.Entries) != 1 || historyRepo.Entries[0].Reason != entities.ReasonLowActivity {
		t.Errorf("expected one LowActivity history entry")
	}
}

func TestLifecycleService_LowActivityStreakResetsOnPass(t *testing.T) {
	service, tokenRepo, snapshotRepo, _ := setupLifecycleTest()
	ctx := context.Background()
	p := testParams()
	p.LowActivityChecks = 2
	service.now = fixedClock(testutil.BaseTime.Add(time.Minute))

	token := testutil.CreateTestToken(
		testutil.TokenActivatedAt(testutil.BaseTime),
		testutil.TokenWithScore(0.9),
	)
	tokenRepo.Seed(token)

	// One failing check.
	snapshotRepo.Seed(testutil.CreateTestSnapshot(
		testutil.SnapshotWithActivity(10, 1000),
		testutil.SnapshotCapturedAt(testutil.BaseTime),
	))
	if err := service.EvaluateActive(ctx, &token, p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A passing check fully resets the streak.
	snapshotRepo.Seed(testutil.CreateTestSnapshot(
		testutil.SnapshotWithActivity(400, 1000),
		testutil.SnapshotCapturedAt(testutil.BaseTime.Add(time.Minute)),
	))
	if err := service.EvaluateActive(ctx, &token, p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// One more failing check must not archive.
	snapshotRepo.Seed(testutil.CreateTestSnapshot(
		testutil.SnapshotWithActivity(10, 1000),
		testutil.SnapshotCapturedAt(testutil.BaseTime.Add(2*time.Minute)),
	))
	if err := service.EvaluateActive(ctx, &token, p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	updated, _ := tokenRepo.GetByAddress(ctx, token.Address)
	if updated.Status != entities.StatusActive {
		t.Errorf("streak should have reset on passing check, got %s", updated.Status)
	}
}

func TestLifecycleService_LowActivityDecrementPolicy(t *testing.T) {
	service, tokenRepo, snapshotRepo, _ := setupLifecycleTest()
	ctx := context.Background()
	p := testParams()
	p.LowActivityChecks = 2
	p.LowActivityResetOnPass = false
	service.now = fixedClock(testutil.BaseTime.Add(time.Minute))

	token := testutil.CreateTestToken(
		testutil.TokenActivatedAt(testutil.BaseTime),
		testutil.TokenWithScore(0.9),
	)
	tokenRepo.Seed(token)

	// Fail, pass (decrements to 0), fail: streak is 1, not 2.
	snapshotRepo.Seed(testutil.CreateTestSnapshot(
		testutil.SnapshotWithActivity(10, 1000),
		testutil.SnapshotCapturedAt(testutil.BaseTime),
	))
	if err := service.EvaluateActive(ctx, &token, p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	snapshotRepo.Seed(testutil.CreateTestSnapshot(
		testutil.SnapshotWithActivity(400, 1000),
		testutil.SnapshotCapturedAt(testutil.BaseTime.Add(time.Minute)),
	))
	if err := service.EvaluateActive(ctx, &token, p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	snapshotRepo.Seed(testutil.CreateTestSnapshot(
		testutil.SnapshotWithActivity(10, 1000),
		testutil.SnapshotCapturedAt(testutil.BaseTime.Add(2*time.Minute)),
	))
	if err := service.EvaluateActive(ctx, &token, p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	updated, _ := tokenRepo.GetByAddress(ctx, token.Address)
	if updated.Status != entities.StatusActive {
		t.Errorf("decrement policy should not have archived yet, got %s", updated.Status)
	}
}

func TestLifecycleService_ArchivedIsTerminal(t *testing.T) {
	service, tokenRepo, _, historyRepo := setupLifecycleTest()
	ctx := context.Background()

	token := testutil.CreateTestToken(testutil.TokenWithStatus(entities.StatusArchived))
	tokenRepo.Seed(token)

	// No edge out of Archived is legal; the call is a logged no-op.
	err := service.transition(ctx, token.Address, entities.StatusArchived, entities.StatusActive, entities.ReasonActivation, testutil.BaseTime)
	if err != nil {
		t.Fatalf("illegal transition should be a no-op, got %v", err)
	}

	updated, _ := tokenRepo.GetByAddress(ctx, token.Address)
	if updated.Status != entities.StatusArchived {
		t.Errorf("archived token must stay archived")
	}
	if len(historyRepo.Entries) != 0 {
		t.Errorf("no history should be written for a dropped transition")
	}
}

func TestLifecycleService_StaleStateOnReRead(t *testing.T) {
	service, tokenRepo, _, historyRepo := setupLifecycleTest()
	ctx := context.Background()

	// Stored state already moved on; evaluator holds an outdated view.
	token := testutil.CreateTestToken(testutil.TokenWithStatus(entities.StatusArchived))
	tokenRepo.Seed(token)

	err := service.transition(ctx, token.Address, entities.StatusInitial, entities.StatusActive, entities.ReasonActivation, testutil.BaseTime)
	if !errors.Is(err, ErrStaleState) {
		t.Fatalf("expected ErrStaleState, got %v", err)
	}
	if len(historyRepo.Entries) != 0 {
		t.Errorf("no history should be written on a stale conflict")
	}
}

func TestLifecycleService_StaleStateOnGuardedUpdate(t *testing.T) {
	service, tokenRepo, _, _ := setupLifecycleTest()
	ctx := context.Background()

	token := testutil.CreateTestToken()
	tokenRepo.Seed(token)

	// Re-read passes but the guarded update loses the race.
	tokenRepo.UpdateStatusFunc = func(ctx context.Context, address string, from, to entities.TokenStatus, at time.Time) (bool, error) {
		return false, nil
	}

	err := service.transition(ctx, token.Address, entities.StatusInitial, entities.StatusActive, entities.ReasonActivation, testutil.BaseTime)
	if !errors.Is(err, ErrStaleState) {
		t.Fatalf("expected ErrStaleState, got %v", err)
	}
}

func TestLifecycleService_EvaluateActiveBatch_ContinuesOnStale(t *testing.T) {
	service, tokenRepo, snapshotRepo, _ := setupLifecycleTest()
	ctx := context.Background()
	service.now = fixedClock(testutil.BaseTime.Add(time.Minute))

	// Two failing tokens; the first hits a stale conflict mid-flight.
	for _, addr := range []string{testutil.TokenAddressA, testutil.TokenAddressB} {
		tokenRepo.Seed(testutil.CreateTestToken(
			testutil.TokenWithAddress(addr),
			testutil.TokenActivatedAt(testutil.BaseTime),
			testutil.TokenWithScore(0.9),
		))
		snapshotRepo.Seed(testutil.CreateTestSnapshot(
			testutil.SnapshotForToken(addr),
			testutil.SnapshotWithActivity(10, 1000),
		))
	}

	p := testParams()
	p.LowActivityChecks = 1
	service.params = &staticParams{p: p}

	calls := 0
	tokenRepo.UpdateStatusFunc = func(ctx context.Context, address string, from, to entities.TokenStatus, at time.Time) (bool, error) {
		calls++
		return calls > 1, nil
	}

	if err := service.EvaluateActiveBatch(ctx); err != nil {
		t.Fatalf("batch should absorb per-token stale conflicts: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected both tokens evaluated, got %d updates", calls)
	}
}
