package birdeye

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/super-sh1z01d/ToTheMoon-sub001/internal/config"
)

func testConfig(baseURL string) config.BirdeyeConfig {
	return config.BirdeyeConfig{
		BaseURL:        baseURL,
		APIKey:         "test-key",
		RequestTimeout: 5 * time.Second,
		MaxRetries:     2,
		RetryBaseDelay: time.Millisecond,
		MaxRetryDelay:  5 * time.Millisecond,
		RateLimitRPS:   100,
	}
}

func TestClient_TokenOverview_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/defi/token_overview" {
			t.Errorf("wrong path: %s", r.URL.Path)
		}
		if r.Header.Get("X-API-KEY") != "test-key" {
			t.Errorf("missing API key header")
		}
		if r.URL.Query().Get("address") != "tokenaddr" {
			t.Errorf("missing address param")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"data":{"liquidity":5000,"holders":1000,"tx_count_5m":50,"tx_count_1h":600,"volume_5m":1000,"volume_1h":12000,"buys_volume_5m":600,"sells_volume_5m":400}}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), zap.NewNop())

	overview, err := client.TokenOverview(context.Background(), "tokenaddr")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if overview.Liquidity != 5000 || overview.TxCount1h != 600 {
		t.Errorf("wrong overview: %+v", overview)
	}
	if overview.BuyVolume5m != 600 || overview.SellVolume5m != 400 {
		t.Errorf("wrong flow volumes: %+v", overview)
	}
}

func TestClient_TokenOverview_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), zap.NewNop())

	_, err := client.TokenOverview(context.Background(), "unknown")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestClient_TokenOverview_RetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"data":{"liquidity":100}}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), zap.NewNop())

	overview, err := client.TokenOverview(context.Background(), "tokenaddr")
	if err != nil {
		t.Fatalf("expected retries to succeed: %v", err)
	}
	if overview.Liquidity != 100 {
		t.Errorf("wrong overview: %+v", overview)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestClient_TokenOverview_ExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), zap.NewNop())

	if _, err := client.TokenOverview(context.Background(), "tokenaddr"); err == nil {
		t.Fatal("expected error after retry exhaustion")
	}
	// MaxRetries 2 means 3 total attempts.
	if calls.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestClient_TokenOverview_UnexpectedStatusFailsFast(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), zap.NewNop())

	if _, err := client.TokenOverview(context.Background(), "tokenaddr"); err == nil {
		t.Fatal("expected error on forbidden status")
	}
	if calls.Load() != 1 {
		t.Errorf("4xx should not be retried, got %d attempts", calls.Load())
	}
}

func TestClient_BackoffDelayCapped(t *testing.T) {
	client := NewClient(testConfig("http://localhost"), zap.NewNop())

	prev := time.Duration(0)
	for attempt := 1; attempt <= 10; attempt++ {
		delay := client.backoffDelay(attempt)
		if delay > client.cfg.MaxRetryDelay {
			t.Errorf("attempt %d delay %v exceeds cap %v", attempt, delay, client.cfg.MaxRetryDelay)
		}
		if delay < prev {
			t.Errorf("delay must not shrink: %v after %v", delay, prev)
		}
		prev = delay
	}
}
