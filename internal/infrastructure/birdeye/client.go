package birdeye

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/super-sh1z01d/ToTheMoon-sub001/internal/config"
)

var (
	// ErrNotFound means the provider does not know the token.
	ErrNotFound = errors.New("token not found")
	// ErrRateLimited is returned after retries are exhausted on 429s.
	ErrRateLimited = errors.New("rate limited by provider")
)

// Client calls the Birdeye public API with client-side rate limiting
// and bounded exponential backoff.
type Client struct {
	http    *resty.Client
	limiter *rate.Limiter
	logger  *zap.Logger
	cfg     config.BirdeyeConfig
}

// NewClient creates a Birdeye API client
func NewClient(cfg config.BirdeyeConfig, logger *zap.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.RequestTimeout).
		SetHeader("X-API-KEY", cfg.APIKey).
		SetHeader("x-chain", "solana")

	return &Client{
		http:    httpClient,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitRPS),
		logger:  logger,
		cfg:     cfg,
	}
}

// TokenOverview fetches market metrics for a token. Transient
// failures (429, 5xx, network errors) are retried with exponential
// backoff up to MaxRetries; a 404 maps to ErrNotFound immediately.
func (c *Client) TokenOverview(ctx context.Context, address string) (*TokenOverview, error) {
	var lastErr error

	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := c.backoffDelay(attempt)
			c.logger.Warn("Retrying token overview fetch",
				zap.String("address", address),
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(lastErr),
			)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		var envelope overviewEnvelope
		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParam("address", address).
			SetResult(&envelope).
			Get("/defi/token_overview")
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			continue
		}

		switch {
		case resp.StatusCode() == http.StatusNotFound:
			return nil, ErrNotFound
		case resp.StatusCode() == http.StatusTooManyRequests:
			lastErr = ErrRateLimited
			continue
		case resp.StatusCode() >= http.StatusInternalServerError:
			lastErr = fmt.Errorf("provider error: status %d", resp.StatusCode())
			continue
		case resp.StatusCode() != http.StatusOK:
			return nil, fmt.Errorf("unexpected status %d", resp.StatusCode())
		}

		if !envelope.Success {
			lastErr = fmt.Errorf("provider returned success=false")
			continue
		}

		return &envelope.Data, nil
	}

	return nil, fmt.Errorf("token overview fetch exhausted retries: %w", lastErr)
}

func (c *Client) backoffDelay(attempt int) time.Duration {
	delay := c.cfg.RetryBaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= c.cfg.MaxRetryDelay {
			return c.cfg.MaxRetryDelay
		}
	}
	if delay > c.cfg.MaxRetryDelay {
		delay = c.cfg.MaxRetryDelay
	}
	return delay
}
