package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/super-sh1z01d/ToTheMoon-sub001/internal/domain/entities"
	"github.com/super-sh1z01d/ToTheMoon-sub001/internal/domain/repositories"
)

// ErrStaleState means the token's status changed under an evaluator
// between its read and its write. The transition is abandoned; the
// next cycle re-evaluates from fresh state.
var ErrStaleState = errors.New("token state changed concurrently")

// transitionTable defines the legal lifecycle edges. Archived is
// terminal.
var transitionTable = map[entities.TokenStatus][]entities.TokenStatus{
	entities.StatusInitial:  {entities.StatusActive, entities.StatusArchived},
	entities.StatusActive:   {entities.StatusArchived},
	entities.StatusArchived: {},
}

func transitionLegal(from, to entities.TokenStatus) bool {
	for _, allowed := range transitionTable[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// LifecycleService evaluates tokens against activation and archival
// rules and applies status transitions. All writes go through a
// per-token lock plus a guarded update so concurrent evaluators
// cannot double-apply an edge.
type LifecycleService struct {
	tokenRepo    repositories.TokenRepository
	snapshotRepo repositories.SnapshotRepository
	historyRepo  repositories.StatusHistoryRepository
	params       ParamsSource
	logger       *zap.Logger

	batchSize int

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	// Demotion trackers live in memory only; a restart restarts the
	// observation windows, which errs on the side of keeping tokens.
	trackersMu        sync.Mutex
	lowScoreSince     map[string]time.Time
	lowActivityStreak map[string]int

	now func() time.Time
}

// NewLifecycleService creates a new lifecycle service
func NewLifecycleService(
	tokenRepo repositories.TokenRepository,
	snapshotRepo repositories.SnapshotRepository,
	historyRepo repositories.StatusHistoryRepository,
	params ParamsSource,
	batchSize int,
	logger *zap.Logger,
) *LifecycleService {
	return &LifecycleService{
		tokenRepo:         tokenRepo,
		snapshotRepo:      snapshotRepo,
		historyRepo:       historyRepo,
		params:            params,
		batchSize:         batchSize,
		logger:            logger,
		locks:             make(map[string]*sync.Mutex),
		lowScoreSince:     make(map[string]time.Time),
		lowActivityStreak: make(map[string]int),
		now:               time.Now,
	}
}

func (s *LifecycleService) lockFor(address string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	if mu, ok := s.locks[address]; ok {
		return mu
	}
	mu := &sync.Mutex{}
	s.locks[address] = mu
	return mu
}

// EvaluateInitialBatch checks Initial tokens for activation or
// discovery timeout.
func (s *LifecycleService) EvaluateInitialBatch(ctx context.Context) error {
	p, err := s.params.Resolve(ctx)
	if err != nil {
		return fmt.Errorf("skipping lifecycle cycle: %w", err)
	}

	tokens, err := s.tokenRepo.GetByStatus(ctx, entities.StatusInitial, s.batchSize)
	if err != nil {
		return fmt.Errorf("failed to list initial tokens: %w", err)
	}

	for i := range tokens {
		if err := s.EvaluateInitial(ctx, &tokens[i], p); err != nil && !errors.Is(err, ErrStaleState) {
			s.logger.Warn("Failed to evaluate initial token",
				zap.String("token", tokens[i].Address),
				zap.Error(err),
			)
		}
	}

	return nil
}

// EvaluateInitial applies the activation guard to one Initial token,
// falling back to the archival timeout when the token never takes off.
func (s *LifecycleService) EvaluateInitial(ctx context.Context, token *entities.Token, p *Params) error {
	now := s.now().UTC()

	snap, err := s.snapshotRepo.GetLatest(ctx, token.Address)
	if err != nil {
		return fmt.Errorf("failed to load latest snapshot: %w", err)
	}

	if snap != nil && snap.TxCountLong >= p.MinActivationTxCount && snap.Liquidity >= p.MinActivationLiquidity {
		return s.transition(ctx, token.Address, entities.StatusInitial, entities.StatusActive, entities.ReasonActivation, now)
	}

	if now.Sub(token.CreatedAt) >= p.ArchivalTimeout {
		return s.transition(ctx, token.Address, entities.StatusInitial, entities.StatusArchived, entities.ReasonArchivalTimeout, now)
	}

	return nil
}

// EvaluateActiveBatch checks Active tokens for the low-score and
// low-activity demotion rules.
func (s *LifecycleService) EvaluateActiveBatch(ctx context.Context) error {
	p, err := s.params.Resolve(ctx)
	if err != nil {
		return fmt.Errorf("skipping lifecycle cycle: %w", err)
	}

	tokens, err := s.tokenRepo.GetByStatus(ctx, entities.StatusActive, s.batchSize)
	if err != nil {
		return fmt.Errorf("failed to list active tokens: %w", err)
	}

	for i := range tokens {
		if err := s.EvaluateActive(ctx, &tokens[i], p); err != nil && !errors.Is(err, ErrStaleState) {
			s.logger.Warn("Failed to evaluate active token",
				zap.String("token", tokens[i].Address),
				zap.Error(err),
			)
		}
	}

	return nil
}

// EvaluateActive applies demotion rules to one Active token. A token
// is archived when its score stays below the keep threshold for the
// configured duration, or when its transaction activity stays below
// the activation floor for the configured number of consecutive
// checks.
func (s *LifecycleService) EvaluateActive(ctx context.Context, token *entities.Token, p *Params) error {
	now := s.now().UTC()

	if archive, err := s.checkLowScore(token, p, now); err != nil {
		return err
	} else if archive {
		return s.transition(ctx, token.Address, entities.StatusActive, entities.StatusArchived, entities.ReasonLowScore, now)
	}

	archive, err := s.checkLowActivity(ctx, token, p)
	if err != nil {
		return err
	}
	if archive {
		return s.transition(ctx, token.Address, entities.StatusActive, entities.StatusArchived, entities.ReasonLowActivity, now)
	}

	return nil
}

// checkLowScore tracks how long a token's score has been below the
// keep threshold. Archival fires only once the full duration has
// elapsed; recovery above the threshold resets the window.
func (s *LifecycleService) checkLowScore(token *entities.Token, p *Params, now time.Time) (bool, error) {
	if token.LastScore == nil {
		return false, nil
	}

	s.trackersMu.Lock()
	defer s.trackersMu.Unlock()

	if *token.LastScore >= p.MinKeepScore {
		delete(s.lowScoreSince, token.Address)
		return false, nil
	}

	since, ok := s.lowScoreSince[token.Address]
	if !ok {
		s.lowScoreSince[token.Address] = now
		return false, nil
	}

	return now.Sub(since) >= p.LowScoreDuration, nil
}

// checkLowActivity counts consecutive checks where long-window
// transaction activity sits below the activation floor. A passing
// check either fully resets the streak or decrements it, depending on
// the configured policy.
func (s *LifecycleService) checkLowActivity(ctx context.Context, token *entities.Token, p *Params) (bool, error) {
	snap, err := s.snapshotRepo.GetLatest(ctx, token.Address)
	if err != nil {
		return false, fmt.Errorf("failed to load latest snapshot: %w", err)
	}
	if snap == nil {
		return false, nil
	}

	s.trackersMu.Lock()
	defer s.trackersMu.Unlock()

	if snap.TxCountLong >= p.MinActivationTxCount {
		if p.LowActivityResetOnPass {
			delete(s.lowActivityStreak, token.Address)
		} else if s.lowActivityStreak[token.Address] > 0 {
			s.lowActivityStreak[token.Address]--
		}
		return false, nil
	}

	s.lowActivityStreak[token.Address]++
	return s.lowActivityStreak[token.Address] >= p.LowActivityChecks, nil
}

// transition applies one lifecycle edge. Illegal edges are logged and
// dropped. The token is re-read under its lock and the update is
// guarded on the expected status; either check failing means another
// writer won and the transition is abandoned with ErrStaleState.
func (s *LifecycleService) transition(ctx context.Context, address string, from, to entities.TokenStatus, reason entities.TransitionReason, now time.Time) error {
	if !transitionLegal(from, to) {
		s.logger.Warn("Dropping illegal status transition",
			zap.String("token", address),
			zap.String("from", string(from)),
			zap.String("to", string(to)),
		)
		return nil
	}

	mu := s.lockFor(address)
	mu.Lock()
	defer mu.Unlock()

	current, err := s.tokenRepo.GetByAddress(ctx, address)
	if err != nil {
		return fmt.Errorf("failed to re-read token: %w", err)
	}
	if current == nil {
		return nil
	}
	if current.Status != from {
		staleStateConflicts.Inc()
		s.logger.Info("Abandoning transition on concurrent state change",
			zap.String("token", address),
			zap.String("expected", string(from)),
			zap.String("actual", string(current.Status)),
		)
		return ErrStaleState
	}

	updated, err := s.tokenRepo.UpdateStatus(ctx, address, from, to, now)
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	if !updated {
		staleStateConflicts.Inc()
		return ErrStaleState
	}

	fromCopy := from
	entry := &entities.StatusHistoryEntry{
		TokenAddress: address,
		FromStatus:   &fromCopy,
		ToStatus:     to,
		Reason:       reason,
		CreatedAt:    now,
	}
	if err := s.historyRepo.Append(ctx, entry); err != nil {
		return fmt.Errorf("failed to record transition: %w", err)
	}

	statusTransitions.WithLabelValues(string(reason)).Inc()
	s.logger.Info("Applied status transition",
		zap.String("token", address),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("reason", string(reason)),
	)

	if to == entities.StatusArchived {
		s.trackersMu.Lock()
		delete(s.lowScoreSince, address)
		delete(s.lowActivityStreak, address)
		s.trackersMu.Unlock()
	}

	return nil
}
