package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"

	"github.com/super-sh1z01d/ToTheMoon-sub001/internal/domain/entities"
	"github.com/super-sh1z01d/ToTheMoon-sub001/internal/domain/repositories"
)

// ExportPool is one liquidity venue inside the strategy document.
type ExportPool struct {
	Address string `toml:"address"`
	Dex     string `toml:"dex"`
}

// ExportToken is one selected token inside the strategy document.
type ExportToken struct {
	Address string       `toml:"address"`
	Score   float64      `toml:"score"`
	Pools   []ExportPool `toml:"pools,omitempty"`
}

// Document is the rendered trading strategy configuration.
type Document struct {
	Strategy    string        `toml:"strategy"`
	Model       string        `toml:"model"`
	GeneratedAt time.Time     `toml:"generated_at"`
	Tokens      []ExportToken `toml:"tokens"`
}

// ExportService renders the top-scored active tokens into a TOML
// strategy document. Consumers always see the last document that
// rendered successfully; a failed cycle never blanks the output.
type ExportService struct {
	tokenRepo repositories.TokenRepository
	poolRepo  repositories.PoolRepository
	params    ParamsSource
	logger    *zap.Logger

	mu       sync.RWMutex
	lastDoc  []byte
	lastAt   time.Time
	rendered bool

	now func() time.Time
}

// NewExportService creates a new export service
func NewExportService(
	tokenRepo repositories.TokenRepository,
	poolRepo repositories.PoolRepository,
	params ParamsSource,
	logger *zap.Logger,
) *ExportService {
	return &ExportService{
		tokenRepo: tokenRepo,
		poolRepo:  poolRepo,
		params:    params,
		logger:    logger,
		now:       time.Now,
	}
}

// Select picks and orders the exportable tokens: Active status, score
// at or above the threshold, optionally at least one live pool. The
// ordering is fully deterministic: score descending, then earlier
// activation, then address.
func (s *ExportService) Select(ctx context.Context, p *Params) ([]ExportToken, error) {
	// The status filter bounds the candidate set; selection below is
	// what enforces eligibility.
	candidates, err := s.tokenRepo.GetByStatus(ctx, entities.StatusActive, 1000)
	if err != nil {
		return nil, fmt.Errorf("failed to list active tokens: %w", err)
	}

	type ranked struct {
		token entities.Token
		pools []ExportPool
	}
	var eligible []ranked

	for _, token := range candidates {
		if token.LastScore == nil || *token.LastScore < p.ExportMinScore {
			continue
		}

		pools, err := s.poolRepo.GetByToken(ctx, token.Address, true)
		if err != nil {
			return nil, fmt.Errorf("failed to load pools: %w", err)
		}
		if p.RequireActivePools && len(pools) == 0 {
			continue
		}

		exportPools := make([]ExportPool, 0, len(pools))
		for _, pool := range pools {
			exportPools = append(exportPools, ExportPool{Address: pool.Address, Dex: pool.Dex})
		}

		eligible = append(eligible, ranked{token: token, pools: exportPools})
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		a, b := eligible[i].token, eligible[j].token
		if *a.LastScore != *b.LastScore {
			return *a.LastScore > *b.LastScore
		}
		switch {
		case a.ActivatedAt != nil && b.ActivatedAt != nil && !a.ActivatedAt.Equal(*b.ActivatedAt):
			return a.ActivatedAt.Before(*b.ActivatedAt)
		case a.ActivatedAt != nil && b.ActivatedAt == nil:
			return true
		case a.ActivatedAt == nil && b.ActivatedAt != nil:
			return false
		}
		return a.Address < b.Address
	})

	if len(eligible) > p.ExportTopCount {
		eligible = eligible[:p.ExportTopCount]
	}

	tokens := make([]ExportToken, 0, len(eligible))
	for _, r := range eligible {
		tokens = append(tokens, ExportToken{
			Address: r.token.Address,
			Score:   *r.token.LastScore,
			Pools:   r.pools,
		})
	}

	return tokens, nil
}

// Render regenerates the strategy document. An empty selection still
// produces a valid document; only an actual failure keeps the
// previous one.
func (s *ExportService) Render(ctx context.Context) error {
	p, err := s.params.Resolve(ctx)
	if err != nil {
		exportFailures.Inc()
		return fmt.Errorf("skipping export cycle: %w", err)
	}

	tokens, err := s.Select(ctx, p)
	if err != nil {
		exportFailures.Inc()
		s.logger.Error("Export selection failed, keeping previous document", zap.Error(err))
		return err
	}

	now := s.now().UTC()
	doc := Document{
		Strategy:    p.StrategyName,
		Model:       p.Model,
		GeneratedAt: now,
		Tokens:      tokens,
	}

	data, err := toml.Marshal(doc)
	if err != nil {
		exportFailures.Inc()
		s.logger.Error("Export render failed, keeping previous document", zap.Error(err))
		return fmt.Errorf("failed to render strategy document: %w", err)
	}

	s.mu.Lock()
	s.lastDoc = data
	s.lastAt = now
	s.rendered = true
	s.mu.Unlock()

	exportedTokens.Set(float64(len(tokens)))
	s.logger.Info("Rendered strategy document",
		zap.Int("tokens", len(tokens)),
		zap.String("strategy", p.StrategyName),
	)

	return nil
}

// Document returns the last successfully rendered document and its
// render time. ok is false until the first successful render.
func (s *ExportService) Document() (data []byte, renderedAt time.Time, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastDoc, s.lastAt, s.rendered
}
