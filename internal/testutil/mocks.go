package testutil

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/super-sh1z01d/ToTheMoon-sub001/internal/domain/entities"
	"github.com/super-sh1z01d/ToTheMoon-sub001/internal/domain/repositories"
	"github.com/super-sh1z01d/ToTheMoon-sub001/internal/infrastructure/birdeye"
	"github.com/super-sh1z01d/ToTheMoon-sub001/internal/infrastructure/cache"
)

type MockCall struct {
	Method string
	Args   []interface{}
}

// MockTokenRepository is a mock implementation of TokenRepository
type MockTokenRepository struct {
	mu     sync.RWMutex
	tokens map[string]*entities.Token

	// Function hooks for custom behavior
	CreateFunc          func(ctx context.Context, token *entities.Token) (bool, error)
	GetByAddressFunc    func(ctx context.Context, address string) (*entities.Token, error)
	GetByStatusFunc     func(ctx context.Context, status entities.TokenStatus, limit int) ([]entities.Token, error)
	GetAllPaginatedFunc func(ctx context.Context, limit, offset int) ([]entities.Token, error)
	CountFunc           func(ctx context.Context) (int64, error)
	UpdateScoreFunc     func(ctx context.Context, address string, score float64, at time.Time) error
	UpdateStatusFunc    func(ctx context.Context, address string, from, to entities.TokenStatus, at time.Time) (bool, error)

	// Call tracking
	Calls []MockCall
}

var _ repositories.TokenRepository = (*MockTokenRepository)(nil)

func NewMockTokenRepository() *MockTokenRepository {
	return &MockTokenRepository{
		tokens: make(map[string]*entities.Token),
		Calls:  make([]MockCall, 0),
	}
}

// Seed adds a token directly to the in-memory store.
func (m *MockTokenRepository) Seed(token entities.Token) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := token
	m.tokens[token.Address] = &copied
}

func (m *MockTokenRepository) record(method string, args ...interface{}) {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Method: method, Args: args})
	m.mu.Unlock()
}

func (m *MockTokenRepository) Create(ctx context.Context, token *entities.Token) (bool, error) {
	m.record("Create", token.Address)

	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, token)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.tokens[token.Address]; exists {
		return false, nil
	}
	copied := *token
	m.tokens[token.Address] = &copied
	return true, nil
}

func (m *MockTokenRepository) GetByAddress(ctx context.Context, address string) (*entities.Token, error) {
	m.record("GetByAddress", address)

	if m.GetByAddressFunc != nil {
		return m.GetByAddressFunc(ctx, address)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	token, ok := m.tokens[address]
	if !ok {
		return nil, nil
	}
	copied := *token
	return &copied, nil
}

func (m *MockTokenRepository) GetByStatus(ctx context.Context, status entities.TokenStatus, limit int) ([]entities.Token, error) {
	m.record("GetByStatus", status, limit)

	if m.GetByStatusFunc != nil {
		return m.GetByStatusFunc(ctx, status, limit)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]entities.Token, 0)
	for _, token := range m.tokens {
		if token.Status == status {
			result = append(result, *token)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Address < result[j].Address
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *MockTokenRepository) GetAllPaginated(ctx context.Context, limit, offset int) ([]entities.Token, error) {
	m.record("GetAllPaginated", limit, offset)

	if m.GetAllPaginatedFunc != nil {
		return m.GetAllPaginatedFunc(ctx, limit, offset)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	all := make([]entities.Token, 0, len(m.tokens))
	for _, token := range m.tokens {
		all = append(all, *token)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].Address < all[j].Address
	})
	if offset > len(all) {
		return []entities.Token{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (m *MockTokenRepository) Count(ctx context.Context) (int64, error) {
	m.record("Count")

	if m.CountFunc != nil {
		return m.CountFunc(ctx)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.tokens)), nil
}

func (m *MockTokenRepository) UpdateScore(ctx context.Context, address string, score float64, at time.Time) error {
	m.record("UpdateScore", address, score)

	if m.UpdateScoreFunc != nil {
		return m.UpdateScoreFunc(ctx, address, score, at)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if token, ok := m.tokens[address]; ok {
		token.LastScore = &score
		token.LastScoreAt = &at
	}
	return nil
}

func (m *MockTokenRepository) UpdateStatus(ctx context.Context, address string, from, to entities.TokenStatus, at time.Time) (bool, error) {
	m.record("UpdateStatus", address, from, to)

	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, address, from, to, at)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	token, ok := m.tokens[address]
	if !ok || token.Status != from {
		return false, nil
	}
	token.Status = to
	token.StatusChangedAt = at
	switch to {
	case entities.StatusActive:
		token.ActivatedAt = &at
	case entities.StatusArchived:
		token.ArchivedAt = &at
	}
	return true, nil
}

// MockPoolRepository is a mock implementation of PoolRepository
type MockPoolRepository struct {
	mu    sync.RWMutex
	pools map[string]*entities.Pool

	UpsertFunc     func(ctx context.Context, pool *entities.Pool) error
	GetByTokenFunc func(ctx context.Context, tokenAddress string, activeOnly bool) ([]entities.Pool, error)
	SetActiveFunc  func(ctx context.Context, poolAddress string, active bool) error

	Calls []MockCall
}

var _ repositories.PoolRepository = (*MockPoolRepository)(nil)

func NewMockPoolRepository() *MockPoolRepository {
	return &MockPoolRepository{
		pools: make(map[string]*entities.Pool),
		Calls: make([]MockCall, 0),
	}
}

func (m *MockPoolRepository) record(method string, args ...interface{}) {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Method: method, Args: args})
	m.mu.Unlock()
}

func (m *MockPoolRepository) Seed(pool entities.Pool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := pool
	m.pools[pool.Address] = &copied
}

func (m *MockPoolRepository) Upsert(ctx context.Context, pool *entities.Pool) error {
	m.record("Upsert", pool.Address)

	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, pool)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *pool
	m.pools[pool.Address] = &copied
	return nil
}

func (m *MockPoolRepository) GetByToken(ctx context.Context, tokenAddress string, activeOnly bool) ([]entities.Pool, error) {
	m.record("GetByToken", tokenAddress, activeOnly)

	if m.GetByTokenFunc != nil {
		return m.GetByTokenFunc(ctx, tokenAddress, activeOnly)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]entities.Pool, 0)
	for _, pool := range m.pools {
		if pool.TokenAddress != tokenAddress {
			continue
		}
		if activeOnly && !pool.IsActive {
			continue
		}
		result = append(result, *pool)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Address < result[j].Address
	})
	return result, nil
}

func (m *MockPoolRepository) SetActive(ctx context.Context, poolAddress string, active bool) error {
	m.record("SetActive", poolAddress, active)

	if m.SetActiveFunc != nil {
		return m.SetActiveFunc(ctx, poolAddress, active)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if pool, ok := m.pools[poolAddress]; ok {
		pool.IsActive = active
	}
	return nil
}

// MockStatusHistoryRepository is a mock implementation of StatusHistoryRepository
type MockStatusHistoryRepository struct {
	mu      sync.RWMutex
	Entries []entities.StatusHistoryEntry

	AppendFunc     func(ctx context.Context, entry *entities.StatusHistoryEntry) error
	GetByTokenFunc func(ctx context.Context, tokenAddress string, limit int) ([]entities.StatusHistoryEntry, error)

	Calls []MockCall
}

var _ repositories.StatusHistoryRepository = (*MockStatusHistoryRepository)(nil)

func NewMockStatusHistoryRepository() *MockStatusHistoryRepository {
	return &MockStatusHistoryRepository{
		Entries: make([]entities.StatusHistoryEntry, 0),
		Calls:   make([]MockCall, 0),
	}
}

func (m *MockStatusHistoryRepository) Append(ctx context.Context, entry *entities.StatusHistoryEntry) error {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Method: "Append", Args: []interface{}{entry.TokenAddress, entry.ToStatus}})
	m.mu.Unlock()

	if m.AppendFunc != nil {
		return m.AppendFunc(ctx, entry)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.Entries = append(m.Entries, *entry)
	return nil
}

func (m *MockStatusHistoryRepository) GetByToken(ctx context.Context, tokenAddress string, limit int) ([]entities.StatusHistoryEntry, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Method: "GetByToken", Args: []interface{}{tokenAddress, limit}})
	m.mu.Unlock()

	if m.GetByTokenFunc != nil {
		return m.GetByTokenFunc(ctx, tokenAddress, limit)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]entities.StatusHistoryEntry, 0)
	for i := len(m.Entries) - 1; i >= 0 && len(result) < limit; i-- {
		if m.Entries[i].TokenAddress == tokenAddress {
			result = append(result, m.Entries[i])
		}
	}
	return result, nil
}

// MockSnapshotRepository is a mock implementation of SnapshotRepository
type MockSnapshotRepository struct {
	mu        sync.RWMutex
	snapshots map[string][]entities.MetricSnapshot

	InsertFunc          func(ctx context.Context, snap *entities.MetricSnapshot) (bool, error)
	GetSinceFunc        func(ctx context.Context, tokenAddress string, since time.Time) ([]entities.MetricSnapshot, error)
	GetLatestFunc       func(ctx context.Context, tokenAddress string) (*entities.MetricSnapshot, error)
	DeleteOlderThanFunc func(ctx context.Context, cutoff time.Time) (int64, error)

	Calls []MockCall
}

var _ repositories.SnapshotRepository = (*MockSnapshotRepository)(nil)

func NewMockSnapshotRepository() *MockSnapshotRepository {
	return &MockSnapshotRepository{
		snapshots: make(map[string][]entities.MetricSnapshot),
		Calls:     make([]MockCall, 0),
	}
}

func (m *MockSnapshotRepository) record(method string, args ...interface{}) {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Method: method, Args: args})
	m.mu.Unlock()
}

func (m *MockSnapshotRepository) Seed(snap entities.MetricSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[snap.TokenAddress] = append(m.snapshots[snap.TokenAddress], snap)
	sort.Slice(m.snapshots[snap.TokenAddress], func(i, j int) bool {
		return m.snapshots[snap.TokenAddress][i].CapturedAt.Before(m.snapshots[snap.TokenAddress][j].CapturedAt)
	})
}

func (m *MockSnapshotRepository) Insert(ctx context.Context, snap *entities.MetricSnapshot) (bool, error) {
	m.record("Insert", snap.TokenAddress, snap.CapturedAt)

	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, snap)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	existing := m.snapshots[snap.TokenAddress]
	if len(existing) > 0 && !existing[len(existing)-1].CapturedAt.Before(snap.CapturedAt) {
		return false, nil
	}
	m.snapshots[snap.TokenAddress] = append(existing, *snap)
	return true, nil
}

func (m *MockSnapshotRepository) GetSince(ctx context.Context, tokenAddress string, since time.Time) ([]entities.MetricSnapshot, error) {
	m.record("GetSince", tokenAddress, since)

	if m.GetSinceFunc != nil {
		return m.GetSinceFunc(ctx, tokenAddress, since)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]entities.MetricSnapshot, 0)
	for _, snap := range m.snapshots[tokenAddress] {
		if !snap.CapturedAt.Before(since) {
			result = append(result, snap)
		}
	}
	return result, nil
}

func (m *MockSnapshotRepository) GetLatest(ctx context.Context, tokenAddress string) (*entities.MetricSnapshot, error) {
	m.record("GetLatest", tokenAddress)

	if m.GetLatestFunc != nil {
		return m.GetLatestFunc(ctx, tokenAddress)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	snaps := m.snapshots[tokenAddress]
	if len(snaps) == 0 {
		return nil, nil
	}
	latest := snaps[len(snaps)-1]
	return &latest, nil
}

func (m *MockSnapshotRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	m.record("DeleteOlderThan", cutoff)

	if m.DeleteOlderThanFunc != nil {
		return m.DeleteOlderThanFunc(ctx, cutoff)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	var deleted int64
	for address, snaps := range m.snapshots {
		kept := snaps[:0:0]
		for _, snap := range snaps {
			if snap.CapturedAt.Before(cutoff) {
				deleted++
			} else {
				kept = append(kept, snap)
			}
		}
		m.snapshots[address] = kept
	}
	return deleted, nil
}

// MockScoreRepository is a mock implementation of ScoreRepository
type MockScoreRepository struct {
	mu      sync.RWMutex
	Records []entities.ScoreRecord

	InsertFunc          func(ctx context.Context, record *entities.ScoreRecord) error
	GetLatestFunc       func(ctx context.Context, tokenAddress string) (*entities.ScoreRecord, error)
	DeleteOlderThanFunc func(ctx context.Context, cutoff time.Time) (int64, error)

	Calls []MockCall
}

var _ repositories.ScoreRepository = (*MockScoreRepository)(nil)

func NewMockScoreRepository() *MockScoreRepository {
	return &MockScoreRepository{
		Records: make([]entities.ScoreRecord, 0),
		Calls:   make([]MockCall, 0),
	}
}

func (m *MockScoreRepository) Insert(ctx context.Context, record *entities.ScoreRecord) error {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Method: "Insert", Args: []interface{}{record.TokenAddress}})
	m.mu.Unlock()

	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, record)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.Records = append(m.Records, *record)
	return nil
}

func (m *MockScoreRepository) GetLatest(ctx context.Context, tokenAddress string) (*entities.ScoreRecord, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Method: "GetLatest", Args: []interface{}{tokenAddress}})
	m.mu.Unlock()

	if m.GetLatestFunc != nil {
		return m.GetLatestFunc(ctx, tokenAddress)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	var latest *entities.ScoreRecord
	for i := range m.Records {
		record := m.Records[i]
		if record.TokenAddress != tokenAddress {
			continue
		}
		if latest == nil || record.ComputedAt.After(latest.ComputedAt) {
			latest = &record
		}
	}
	if latest == nil {
		return nil, nil
	}
	copied := *latest
	return &copied, nil
}

func (m *MockScoreRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Method: "DeleteOlderThan", Args: []interface{}{cutoff}})
	m.mu.Unlock()

	if m.DeleteOlderThanFunc != nil {
		return m.DeleteOlderThanFunc(ctx, cutoff)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.Records[:0:0]
	var deleted int64
	for _, record := range m.Records {
		if record.ComputedAt.Before(cutoff) {
			deleted++
		} else {
			kept = append(kept, record)
		}
	}
	m.Records = kept
	return deleted, nil
}

// MockSettingsRepository is a mock implementation of SettingsRepository
type MockSettingsRepository struct {
	mu     sync.RWMutex
	values map[string][]byte

	GetFunc func(ctx context.Context, key string) ([]byte, error)
	SetFunc func(ctx context.Context, key string, value []byte) error

	Calls []MockCall
}

var _ repositories.SettingsRepository = (*MockSettingsRepository)(nil)

func NewMockSettingsRepository() *MockSettingsRepository {
	return &MockSettingsRepository{
		values: make(map[string][]byte),
		Calls:  make([]MockCall, 0),
	}
}

func (m *MockSettingsRepository) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Method: "Get", Args: []interface{}{key}})
	m.mu.Unlock()

	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.values[key]
	if !ok {
		return nil, nil
	}
	return value, nil
}

func (m *MockSettingsRepository) Set(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Method: "Set", Args: []interface{}{key}})
	m.mu.Unlock()

	if m.SetFunc != nil {
		return m.SetFunc(ctx, key, value)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

// MockMetricsCache is an in-memory market-data cache
type MockMetricsCache struct {
	mu      sync.RWMutex
	entries map[string]*cache.Entry

	GetFunc      func(ctx context.Context, kind, address string) (*cache.Entry, error)
	GetStaleFunc func(ctx context.Context, kind, address string) (*cache.Entry, error)
	PutFunc      func(ctx context.Context, kind, address string, payload json.RawMessage) error

	Calls []MockCall
}

func NewMockMetricsCache() *MockMetricsCache {
	return &MockMetricsCache{
		entries: make(map[string]*cache.Entry),
		Calls:   make([]MockCall, 0),
	}
}

// SeedStale plants an already-expired entry.
func (m *MockMetricsCache) SeedStale(kind, address string, payload json.RawMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	m.entries[kind+":"+address] = &cache.Entry{
		Payload:   payload,
		FetchedAt: now.Add(-time.Hour),
		ExpiresAt: now.Add(-time.Minute),
	}
}

func (m *MockMetricsCache) record(method string, args ...interface{}) {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Method: method, Args: args})
	m.mu.Unlock()
}

func (m *MockMetricsCache) Get(ctx context.Context, kind, address string) (*cache.Entry, error) {
	m.record("Get", kind, address)

	if m.GetFunc != nil {
		return m.GetFunc(ctx, kind, address)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.entries[kind+":"+address]
	if !ok || !entry.Fresh(time.Now()) {
		return nil, cache.ErrCacheMiss
	}
	return entry, nil
}

func (m *MockMetricsCache) GetStale(ctx context.Context, kind, address string) (*cache.Entry, error) {
	m.record("GetStale", kind, address)

	if m.GetStaleFunc != nil {
		return m.GetStaleFunc(ctx, kind, address)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.entries[kind+":"+address]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return entry, nil
}

func (m *MockMetricsCache) Put(ctx context.Context, kind, address string, payload json.RawMessage) error {
	m.record("Put", kind, address)

	if m.PutFunc != nil {
		return m.PutFunc(ctx, kind, address, payload)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	m.entries[kind+":"+address] = &cache.Entry{
		Payload:   payload,
		FetchedAt: now,
		ExpiresAt: now.Add(time.Minute),
	}
	return nil
}

// MockOverviewProvider is a mock market-data provider
type MockOverviewProvider struct {
	mu        sync.RWMutex
	overviews map[string]*birdeye.TokenOverview

	TokenOverviewFunc func(ctx context.Context, address string) (*birdeye.TokenOverview, error)

	Calls []MockCall
}

func NewMockOverviewProvider() *MockOverviewProvider {
	return &MockOverviewProvider{
		overviews: make(map[string]*birdeye.TokenOverview),
		Calls:     make([]MockCall, 0),
	}
}

func (m *MockOverviewProvider) Seed(address string, overview birdeye.TokenOverview) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := overview
	m.overviews[address] = &copied
}

func (m *MockOverviewProvider) TokenOverview(ctx context.Context, address string) (*birdeye.TokenOverview, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Method: "TokenOverview", Args: []interface{}{address}})
	m.mu.Unlock()

	if m.TokenOverviewFunc != nil {
		return m.TokenOverviewFunc(ctx, address)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	overview, ok := m.overviews[address]
	if !ok {
		return nil, birdeye.ErrNotFound
	}
	copied := *overview
	return &copied, nil
}
