package services

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/super-sh1z01d/ToTheMoon-sub001/internal/domain/entities"
	"github.com/super-sh1z01d/ToTheMoon-sub001/internal/testutil"
)

func testParams() *Params {
	return &Params{
		WeightTxAccel:      0.25,
		WeightVolMomentum:  0.25,
		WeightHolderGrowth: 0.25,
		WeightOrderflow:    0.25,

		SmoothingAlpha: 0.3,
		Lookback:       time.Hour,
		Model:          "hybrid_momentum_v1",

		MinKeepScore:           0.5,
		LowScoreDuration:       time.Hour,
		LowActivityChecks:      10,
		LowActivityResetOnPass: true,

		MinActivationTxCount:   300,
		MinActivationLiquidity: 500,
		ArchivalTimeout:        24 * time.Hour,

		ExportMinScore:     0.5,
		ExportTopCount:     3,
		RequireActivePools: false,
		StrategyName:       "dynamic_strategy",
	}
}

// staticParams is a ParamsSource returning a fixed parameter set.
type staticParams struct {
	p   *Params
	err error
}

func (s *staticParams) Resolve(ctx context.Context) (*Params, error) {
	return s.p, s.err
}

func setupScoringTest() (*ScoringService, *testutil.MockTokenRepository, *testutil.MockSnapshotRepository, *testutil.MockScoreRepository) {
	tokenRepo := testutil.NewMockTokenRepository()
	snapshotRepo := testutil.NewMockSnapshotRepository()
	scoreRepo := testutil.NewMockScoreRepository()
	source := &staticParams{p: testParams()}

	service := NewScoringService(tokenRepo, snapshotRepo, scoreRepo, source, 50, 4, zap.NewNop())
	return service, tokenRepo, snapshotRepo, scoreRepo
}

func TestScoringService_Compute_BoundedComponents(t *testing.T) {
	service, _, _, _ := setupScoringTest()
	token := testutil.CreateTestToken(testutil.TokenWithStatus(entities.StatusActive))

	// Extreme readings must still produce components and score in [0, 1].
	snaps := []entities.MetricSnapshot{
		testutil.CreateTestSnapshot(
			testutil.SnapshotCapturedAt(testutil.BaseTime),
			testutil.SnapshotWithHolders(100),
		),
		{
			TokenAddress: token.Address,
			CapturedAt:   testutil.BaseTime.Add(30 * time.Minute),
			TxCountShort: 100000,
			TxCountLong:  10,
			VolumeShort:  1e9,
			VolumeLong:   1,
			BuyVolume:    1e9,
			SellVolume:   0,
			HolderCount:  1000000,
			Liquidity:    1e9,
		},
	}

	record, err := service.Compute(&token, snaps, testParams(), testutil.BaseTime.Add(time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	components := []float64{
		record.Components.TxAccel,
		record.Components.VolMomentum,
		record.Components.HolderGrowth,
		record.Components.OrderflowImbalance,
		record.Components.Raw,
		record.Score,
	}
	for i, c := range components {
		if c < 0 || c > 1 {
			t.Errorf("component %d out of bounds: %v", i, c)
		}
	}
}

func TestScoringService_Compute_WeightedSum(t *testing.T) {
	service, _, _, _ := setupScoringTest()
	token := testutil.CreateTestToken()

	snaps := []entities.MetricSnapshot{testutil.CreateTestSnapshot()}

	p := testParams()
	record, err := service.Compute(&token, snaps, p, testutil.BaseTime.Add(time.Minute))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := p.WeightTxAccel*record.Components.TxAccel +
		p.WeightVolMomentum*record.Components.VolMomentum +
		p.WeightHolderGrowth*record.Components.HolderGrowth +
		p.WeightOrderflow*record.Components.OrderflowImbalance
	if expected > 1 {
		expected = 1
	}

	if math.Abs(record.Components.Raw-expected) > 1e-9 {
		t.Errorf("raw score %v does not match weighted sum %v", record.Components.Raw, expected)
	}
}

func TestScoringService_Compute_ColdStart(t *testing.T) {
	service, _, _, _ := setupScoringTest()

	// A never-scored token adopts the raw composite directly.
	token := testutil.CreateTestToken(testutil.TokenWithStatus(entities.StatusActive))
	snaps := []entities.MetricSnapshot{testutil.CreateTestSnapshot()}

	record, err := service.Compute(&token, snaps, testParams(), testutil.BaseTime.Add(time.Minute))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if record.Score != record.Components.Raw {
		t.Errorf("cold start score %v should equal raw %v", record.Score, record.Components.Raw)
	}
}

func TestScoringService_Compute_EWMASmoothing(t *testing.T) {
	service, _, _, _ := setupScoringTest()

	prior := 0.8
	token := testutil.CreateTestToken(
		testutil.TokenWithStatus(entities.StatusActive),
		testutil.TokenWithScore(prior),
	)
	snaps := []entities.MetricSnapshot{testutil.CreateTestSnapshot()}

	p := testParams()
	record, err := service.Compute(&token, snaps, p, testutil.BaseTime.Add(time.Minute))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := p.SmoothingAlpha*record.Components.Raw + (1-p.SmoothingAlpha)*prior
	if math.Abs(record.Score-expected) > 1e-9 {
		t.Errorf("smoothed score %v, expected %v", record.Score, expected)
	}
}

func TestScoringService_Compute_ZeroDenominators(t *testing.T) {
	service, _, _, _ := setupScoringTest()
	token := testutil.CreateTestToken()

	// All-zero metrics must not divide by zero; score is zero.
	snaps := []entities.MetricSnapshot{
		{
			TokenAddress: token.Address,
			CapturedAt:   testutil.BaseTime,
		},
	}

	record, err := service.Compute(&token, snaps, testParams(), testutil.BaseTime.Add(time.Minute))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if record.Score != 0 {
		t.Errorf("expected zero score, got %v", record.Score)
	}
}

func TestScoringService_Compute_NegativeImbalanceFloorsAtZero(t *testing.T) {
	service, _, _, _ := setupScoringTest()
	token := testutil.CreateTestToken()

	snap := testutil.CreateTestSnapshot()
	snap.BuyVolume = 100
	snap.SellVolume = 900

	record, err := service.Compute(&token, []entities.MetricSnapshot{snap}, testParams(), testutil.BaseTime.Add(time.Minute))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if record.Components.OrderflowImbalance != 0 {
		t.Errorf("expected orderflow imbalance 0, got %v", record.Components.OrderflowImbalance)
	}
}

func TestScoringService_Compute_InsufficientData(t *testing.T) {
	service, _, _, _ := setupScoringTest()
	token := testutil.CreateTestToken()

	_, err := service.Compute(&token, nil, testParams(), testutil.BaseTime)
	if !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}

	// Invalid snapshots do not count either.
	invalid := []entities.MetricSnapshot{
		{TokenAddress: token.Address, CapturedAt: testutil.BaseTime, Liquidity: -1},
	}
	_, err = service.Compute(&token, invalid, testParams(), testutil.BaseTime)
	if !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData for invalid snapshots, got %v", err)
	}
}

func TestScoringService_ScoreBatch_SkipsInsufficientData(t *testing.T) {
	service, tokenRepo, snapshotRepo, scoreRepo := setupScoringTest()
	ctx := context.Background()

	score := 0.7
	tokenRepo.Seed(testutil.CreateTestToken(
		testutil.TokenWithAddress(testutil.TokenAddressA),
		testutil.TokenWithStatus(entities.StatusActive),
		testutil.TokenWithScore(score),
	))
	tokenRepo.Seed(testutil.CreateTestToken(
		testutil.TokenWithAddress(testutil.TokenAddressB),
		testutil.TokenWithStatus(entities.StatusActive),
	))

	// Only token B has snapshots.
	snapshotRepo.Seed(testutil.CreateTestSnapshot(
		testutil.SnapshotForToken(testutil.TokenAddressB),
		testutil.SnapshotCapturedAt(time.Now().UTC().Add(-time.Minute)),
	))

	if err := service.ScoreBatch(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(scoreRepo.Records) != 1 {
		t.Fatalf("expected 1 score record, got %d", len(scoreRepo.Records))
	}
	if scoreRepo.Records[0].TokenAddress != testutil.TokenAddressB {
		t.Errorf("scored wrong token: %s", scoreRepo.Records[0].TokenAddress)
	}

	// Token A keeps its stored score untouched.
	tokenA, _ := tokenRepo.GetByAddress(ctx, testutil.TokenAddressA)
	if tokenA.LastScore == nil || *tokenA.LastScore != score {
		t.Errorf("token A score should stay at %v", score)
	}
}

func TestScoringService_ScoreBatch_InvalidParamsSkipsCycle(t *testing.T) {
	tokenRepo := testutil.NewMockTokenRepository()
	snapshotRepo := testutil.NewMockSnapshotRepository()
	scoreRepo := testutil.NewMockScoreRepository()
	source := &staticParams{err: errors.New("weights must sum to 1.0")}

	service := NewScoringService(tokenRepo, snapshotRepo, scoreRepo, source, 50, 4, zap.NewNop())

	if err := service.ScoreBatch(context.Background()); err == nil {
		t.Fatal("expected error when parameters are invalid")
	}
	if len(scoreRepo.Records) != 0 {
		t.Errorf("no scores should be written on a skipped cycle")
	}
}
