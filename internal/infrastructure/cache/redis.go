package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/super-sh1z01d/ToTheMoon-sub001/internal/config"
)

// ErrCacheMiss indicates no usable entry exists for the key
var ErrCacheMiss = fmt.Errorf("cache miss")

// Kind namespaces cached market data payloads.
const KindOverview = "overview"

// Entry wraps a cached provider payload with its own timestamps.
// Logical freshness is carried inside the value so an expired entry
// can still be served as an explicit stale fallback; Redis expiry is
// only the physical retention bound.
type Entry struct {
	Payload   json.RawMessage `json:"payload"`
	FetchedAt time.Time       `json:"fetched_at"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// Fresh reports whether the entry is still within its logical TTL.
func (e *Entry) Fresh(now time.Time) bool {
	return now.Before(e.ExpiresAt)
}

// RedisCache stores market data entries in Redis
type RedisCache struct {
	client      *redis.Client
	logger      *zap.Logger
	ttl         time.Duration
	staleFactor int
}

// NewRedisCache creates a new Redis cache instance. Entries stay
// physically retrievable for ttl*staleFactor after write.
func NewRedisCache(cfg config.RedisConfig, ttl time.Duration, staleFactor int, logger *zap.Logger) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Connected to Redis",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
	)

	return &RedisCache{
		client:      client,
		logger:      logger,
		ttl:         ttl,
		staleFactor: staleFactor,
	}, nil
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	return c.client.Close()
}

func cacheKey(kind, address string) string {
	return fmt.Sprintf("md:%s:%s", kind, address)
}

// Get retrieves a fresh entry. Entries past their logical TTL count
// as misses here; use GetStale for the degraded path.
func (c *RedisCache) Get(ctx context.Context, kind, address string) (*Entry, error) {
	entry, err := c.fetch(ctx, kind, address)
	if err != nil {
		return nil, err
	}
	if !entry.Fresh(time.Now()) {
		return nil, ErrCacheMiss
	}
	return entry, nil
}

// GetStale retrieves an entry regardless of logical freshness. It
// only misses when the key is physically gone from Redis.
func (c *RedisCache) GetStale(ctx context.Context, kind, address string) (*Entry, error) {
	return c.fetch(ctx, kind, address)
}

func (c *RedisCache) fetch(ctx context.Context, kind, address string) (*Entry, error) {
	val, err := c.client.Get(ctx, cacheKey(kind, address)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get from cache: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal([]byte(val), &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached entry: %w", err)
	}

	return &entry, nil
}

// Put stores a payload with a fresh logical TTL
func (c *RedisCache) Put(ctx context.Context, kind, address string, payload json.RawMessage) error {
	now := time.Now()
	entry := Entry{
		Payload:   payload,
		FetchedAt: now,
		ExpiresAt: now.Add(c.ttl),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	retention := c.ttl * time.Duration(c.staleFactor)
	if err := c.client.Set(ctx, cacheKey(kind, address), data, retention).Err(); err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}

	return nil
}

// HealthCheck checks if Redis is reachable
func (c *RedisCache) HealthCheck(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
