package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/super-sh1z01d/ToTheMoon-sub001/internal/domain/entities"
	"github.com/super-sh1z01d/ToTheMoon-sub001/internal/domain/repositories"
)

// TokenService serves read queries over tracked tokens.
type TokenService struct {
	tokenRepo   repositories.TokenRepository
	poolRepo    repositories.PoolRepository
	historyRepo repositories.StatusHistoryRepository
	scoreRepo   repositories.ScoreRepository
	logger      *zap.Logger
}

// NewTokenService creates a new token query service
func NewTokenService(
	tokenRepo repositories.TokenRepository,
	poolRepo repositories.PoolRepository,
	historyRepo repositories.StatusHistoryRepository,
	scoreRepo repositories.ScoreRepository,
	logger *zap.Logger,
) *TokenService {
	return &TokenService{
		tokenRepo:   tokenRepo,
		poolRepo:    poolRepo,
		historyRepo: historyRepo,
		scoreRepo:   scoreRepo,
		logger:      logger,
	}
}

// TokenDetail bundles a token with its pools and latest score record.
type TokenDetail struct {
	Token entities.Token        `json:"token"`
	Pools []entities.Pool       `json:"pools"`
	Score *entities.ScoreRecord `json:"score,omitempty"`
}

// ListTokens returns a page of tokens with the total count.
func (s *TokenService) ListTokens(ctx context.Context, limit, offset int) ([]entities.Token, int64, error) {
	tokens, err := s.tokenRepo.GetAllPaginated(ctx, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tokens: %w", err)
	}

	total, err := s.tokenRepo.Count(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count tokens: %w", err)
	}

	return tokens, total, nil
}

// ListByStatus returns tokens in one lifecycle status.
func (s *TokenService) ListByStatus(ctx context.Context, status entities.TokenStatus, limit int) ([]entities.Token, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("unknown status %q", status)
	}
	return s.tokenRepo.GetByStatus(ctx, status, limit)
}

// GetToken returns a token with pools and latest score, or (nil, nil)
// when the address is unknown.
func (s *TokenService) GetToken(ctx context.Context, address string) (*TokenDetail, error) {
	token, err := s.tokenRepo.GetByAddress(ctx, address)
	if err != nil {
		return nil, err
	}
	if token == nil {
		return nil, nil
	}

	pools, err := s.poolRepo.GetByToken(ctx, address, false)
	if err != nil {
		return nil, fmt.Errorf("failed to load pools: %w", err)
	}

	score, err := s.scoreRepo.GetLatest(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("failed to load latest score: %w", err)
	}

	return &TokenDetail{
		Token: *token,
		Pools: pools,
		Score: score,
	}, nil
}

// GetHistory returns a token's status transition log, newest first.
func (s *TokenService) GetHistory(ctx context.Context, address string, limit int) ([]entities.StatusHistoryEntry, error) {
	return s.historyRepo.GetByToken(ctx, address, limit)
}
