package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tracker_marketdata_cache_hits_total",
		Help: "Fresh market-data cache hits",
	})

	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tracker_marketdata_cache_misses_total",
		Help: "Market-data cache misses that triggered a provider fetch",
	})

	staleServed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tracker_marketdata_stale_served_total",
		Help: "Expired cache entries served after a failed provider fetch",
	})

	fetchFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tracker_marketdata_fetch_failures_total",
		Help: "Provider fetches that failed after retries",
	})

	tokensScored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tracker_tokens_scored_total",
		Help: "Tokens scored successfully",
	})

	tokensSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tracker_tokens_skipped_total",
		Help: "Tokens skipped during scoring for insufficient data",
	})

	statusTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tracker_status_transitions_total",
		Help: "Lifecycle transitions applied, by reason",
	}, []string{"reason"})

	staleStateConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tracker_stale_state_conflicts_total",
		Help: "Transitions abandoned because another writer moved the token first",
	})

	exportedTokens = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tracker_exported_tokens",
		Help: "Tokens in the last successfully rendered strategy document",
	})

	exportFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tracker_export_failures_total",
		Help: "Strategy document render failures",
	})
)
