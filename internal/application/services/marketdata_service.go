package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/super-sh1z01d/ToTheMoon-sub001/internal/domain/entities"
	"github.com/super-sh1z01d/ToTheMoon-sub001/internal/domain/repositories"
	"github.com/super-sh1z01d/ToTheMoon-sub001/internal/infrastructure/birdeye"
	"github.com/super-sh1z01d/ToTheMoon-sub001/internal/infrastructure/cache"
)

// MetricsCache is the market-data cache surface the service needs.
type MetricsCache interface {
	Get(ctx context.Context, kind, address string) (*cache.Entry, error)
	GetStale(ctx context.Context, kind, address string) (*cache.Entry, error)
	Put(ctx context.Context, kind, address string, payload json.RawMessage) error
}

// OverviewProvider fetches token market metrics from the upstream API.
type OverviewProvider interface {
	TokenOverview(ctx context.Context, address string) (*birdeye.TokenOverview, error)
}

// MarketDataService mediates all provider access: cache-first reads,
// deduplicated fetches, and an explicit stale fallback when the
// provider is down.
type MarketDataService struct {
	cache        MetricsCache
	provider     OverviewProvider
	snapshotRepo repositories.SnapshotRepository
	logger       *zap.Logger

	group   singleflight.Group
	workers int

	now func() time.Time
}

// NewMarketDataService creates a new market data service
func NewMarketDataService(
	metricsCache MetricsCache,
	provider OverviewProvider,
	snapshotRepo repositories.SnapshotRepository,
	workers int,
	logger *zap.Logger,
) *MarketDataService {
	return &MarketDataService{
		cache:        metricsCache,
		provider:     provider,
		snapshotRepo: snapshotRepo,
		workers:      workers,
		logger:       logger,
		now:          time.Now,
	}
}

// Overview returns current market metrics for a token. Fresh cache
// entries are served directly; otherwise one fetch per address runs
// at a time and concurrent callers share its result. When the fetch
// fails and an expired entry still exists, it is served as a logged
// degraded fallback instead of an error.
func (s *MarketDataService) Overview(ctx context.Context, address string) (*birdeye.TokenOverview, error) {
	if entry, err := s.cache.Get(ctx, cache.KindOverview, address); err == nil {
		cacheHits.Inc()
		return decodeOverview(entry.Payload)
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("Cache read failed, fetching directly",
			zap.String("token", address),
			zap.Error(err),
		)
	}

	cacheMisses.Inc()

	v, err, _ := s.group.Do(cache.KindOverview+":"+address, func() (interface{}, error) {
		return s.fetchAndCache(ctx, address)
	})
	if err == nil {
		return v.(*birdeye.TokenOverview), nil
	}
	if errors.Is(err, birdeye.ErrNotFound) {
		return nil, err
	}

	fetchFailures.Inc()

	entry, staleErr := s.cache.GetStale(ctx, cache.KindOverview, address)
	if staleErr != nil {
		return nil, fmt.Errorf("fetch failed with no stale fallback: %w", err)
	}

	staleServed.Inc()
	s.logger.Warn("Serving stale market data after fetch failure",
		zap.String("token", address),
		zap.Time("fetched_at", entry.FetchedAt),
		zap.Error(err),
	)

	return decodeOverview(entry.Payload)
}

func (s *MarketDataService) fetchAndCache(ctx context.Context, address string) (*birdeye.TokenOverview, error) {
	overview, err := s.provider.TokenOverview(ctx, address)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(overview)
	if err != nil {
		return nil, fmt.Errorf("failed to encode overview: %w", err)
	}

	if err := s.cache.Put(ctx, cache.KindOverview, address, payload); err != nil {
		// A cache write failure degrades future reads but the fetched
		// data is still good.
		s.logger.Warn("Failed to cache overview",
			zap.String("token", address),
			zap.Error(err),
		)
	}

	return overview, nil
}

func decodeOverview(payload json.RawMessage) (*birdeye.TokenOverview, error) {
	var overview birdeye.TokenOverview
	if err := json.Unmarshal(payload, &overview); err != nil {
		return nil, fmt.Errorf("failed to decode cached overview: %w", err)
	}
	return &overview, nil
}

// RecordSnapshot fetches current metrics for a token and appends them
// as a snapshot. Invalid readings are discarded with a log line, and
// out-of-order captures are dropped by the repository guard.
func (s *MarketDataService) RecordSnapshot(ctx context.Context, address string) error {
	overview, err := s.Overview(ctx, address)
	if err != nil {
		return err
	}

	snap := &entities.MetricSnapshot{
		TokenAddress: address,
		CapturedAt:   s.now().UTC(),
		TxCountShort: overview.TxCount5m,
		TxCountLong:  overview.TxCount1h,
		VolumeShort:  overview.Volume5m,
		VolumeLong:   overview.Volume1h,
		BuyVolume:    overview.BuyVolume5m,
		SellVolume:   overview.SellVolume5m,
		HolderCount:  overview.Holders,
		Liquidity:    overview.Liquidity,
	}

	if err := snap.Validate(); err != nil {
		s.logger.Warn("Discarding invalid snapshot",
			zap.String("token", address),
			zap.Error(err),
		)
		return nil
	}

	inserted, err := s.snapshotRepo.Insert(ctx, snap)
	if err != nil {
		return fmt.Errorf("failed to store snapshot: %w", err)
	}
	if !inserted {
		s.logger.Debug("Dropped out-of-order snapshot", zap.String("token", address))
	}

	return nil
}

// RefreshBatch records snapshots for a set of tokens with bounded
// concurrency. Per-token failures are logged and do not abort the
// batch.
func (s *MarketDataService) RefreshBatch(ctx context.Context, tokens []entities.Token) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for _, token := range tokens {
		address := token.Address
		g.Go(func() error {
			if err := s.RecordSnapshot(gctx, address); err != nil {
				s.logger.Warn("Failed to refresh token metrics",
					zap.String("token", address),
					zap.Error(err),
				)
			}
			return nil
		})
	}

	return g.Wait()
}
