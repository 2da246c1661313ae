package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/super-sh1z01d/ToTheMoon-sub001/internal/domain/entities"
	"github.com/super-sh1z01d/ToTheMoon-sub001/internal/domain/repositories"
)

// ErrInsufficientData means a token has too few usable snapshots in
// the lookback window to score. The previously stored score stays
// untouched.
var ErrInsufficientData = errors.New("insufficient data to score")

// ScoringService computes smoothed momentum scores for active tokens.
type ScoringService struct {
	tokenRepo    repositories.TokenRepository
	snapshotRepo repositories.SnapshotRepository
	scoreRepo    repositories.ScoreRepository
	params       ParamsSource
	logger       *zap.Logger

	batchSize int
	workers   int

	now func() time.Time
}

// NewScoringService creates a new scoring service
func NewScoringService(
	tokenRepo repositories.TokenRepository,
	snapshotRepo repositories.SnapshotRepository,
	scoreRepo repositories.ScoreRepository,
	params ParamsSource,
	batchSize, workers int,
	logger *zap.Logger,
) *ScoringService {
	return &ScoringService{
		tokenRepo:    tokenRepo,
		snapshotRepo: snapshotRepo,
		scoreRepo:    scoreRepo,
		params:       params,
		batchSize:    batchSize,
		workers:      workers,
		logger:       logger,
		now:          time.Now,
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

// Compute derives the score for one token from its snapshots in the
// lookback window. Snapshots must be sorted oldest first. The latest
// snapshot supplies the momentum components; the oldest serves as the
// holder-growth baseline. Returns ErrInsufficientData when no valid
// snapshot exists.
func (s *ScoringService) Compute(token *entities.Token, snaps []entities.MetricSnapshot, p *Params, now time.Time) (*entities.ScoreRecord, error) {
	valid := snaps[:0:0]
	for i := range snaps {
		if snaps[i].Validate() == nil {
			valid = append(valid, snaps[i])
		}
	}
	if len(valid) == 0 {
		return nil, ErrInsufficientData
	}

	sort.Slice(valid, func(i, j int) bool {
		return valid[i].CapturedAt.Before(valid[j].CapturedAt)
	})

	latest := valid[len(valid)-1]
	baseline := valid[0]

	// Per-minute rate of the short window against the long window.
	txAccel := clamp01(safeDiv(float64(latest.TxCountShort)/5.0, float64(latest.TxCountLong)/60.0))

	// Short-window volume against the long window's per-5m share.
	volMomentum := clamp01(safeDiv(latest.VolumeShort, latest.VolumeLong/12.0))

	// Relative holder delta, log-stabilized against baseline size.
	holderGrowth := 0.0
	deltaH := float64(latest.HolderCount - baseline.HolderCount)
	if deltaH > 0 && baseline.HolderCount > 0 {
		holderGrowth = math.Log1p(deltaH / float64(baseline.HolderCount))
	}
	holderGrowth = clamp01(holderGrowth)

	// Buy/sell pressure, negative imbalance floors at zero.
	orderflow := clamp01(safeDiv(latest.BuyVolume-latest.SellVolume, latest.BuyVolume+latest.SellVolume))

	raw := clamp01(p.WeightTxAccel*txAccel +
		p.WeightVolMomentum*volMomentum +
		p.WeightHolderGrowth*holderGrowth +
		p.WeightOrderflow*orderflow)

	// EWMA smoothing; a never-scored token starts at the raw value
	// instead of being dragged toward zero by a phantom prior.
	smoothed := raw
	if token.LastScore != nil {
		smoothed = p.SmoothingAlpha*raw + (1-p.SmoothingAlpha)*(*token.LastScore)
	}

	return &entities.ScoreRecord{
		TokenAddress: token.Address,
		Model:        p.Model,
		Score:        smoothed,
		Components: entities.ScoreComponents{
			TxAccel:            txAccel,
			VolMomentum:        volMomentum,
			HolderGrowth:       holderGrowth,
			OrderflowImbalance: orderflow,
			Raw:                raw,
		},
		ComputedAt: now,
	}, nil
}

// ScoreToken computes and persists a score for one token.
func (s *ScoringService) ScoreToken(ctx context.Context, token *entities.Token, p *Params) error {
	now := s.now().UTC()

	snaps, err := s.snapshotRepo.GetSince(ctx, token.Address, now.Add(-p.Lookback))
	if err != nil {
		return fmt.Errorf("failed to load snapshots: %w", err)
	}

	record, err := s.Compute(token, snaps, p, now)
	if err != nil {
		return err
	}

	if err := s.scoreRepo.Insert(ctx, record); err != nil {
		return fmt.Errorf("failed to store score: %w", err)
	}
	if err := s.tokenRepo.UpdateScore(ctx, token.Address, record.Score, now); err != nil {
		return fmt.Errorf("failed to update token score: %w", err)
	}

	return nil
}

// ScoreBatch scores all active tokens with bounded concurrency. A
// token with insufficient data is skipped and keeps its stored score.
func (s *ScoringService) ScoreBatch(ctx context.Context) error {
	p, err := s.params.Resolve(ctx)
	if err != nil {
		return fmt.Errorf("skipping scoring cycle: %w", err)
	}

	tokens, err := s.tokenRepo.GetByStatus(ctx, entities.StatusActive, s.batchSize)
	if err != nil {
		return fmt.Errorf("failed to list active tokens: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for i := range tokens {
		token := tokens[i]
		g.Go(func() error {
			err := s.ScoreToken(gctx, &token, p)
			switch {
			case errors.Is(err, ErrInsufficientData):
				tokensSkipped.Inc()
				s.logger.Debug("Skipping token with insufficient data",
					zap.String("token", token.Address),
				)
			case err != nil:
				s.logger.Warn("Failed to score token",
					zap.String("token", token.Address),
					zap.Error(err),
				)
			default:
				tokensScored.Inc()
			}
			return nil
		})
	}

	return g.Wait()
}
