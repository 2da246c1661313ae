package config

import (
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Birdeye: BirdeyeConfig{
			OverviewTTL:          time.Minute,
			StaleRetentionFactor: 10,
		},
		Scoring: ScoringConfig{
			WeightTxAccel:      0.25,
			WeightVolMomentum:  0.25,
			WeightHolderGrowth: 0.25,
			WeightOrderflow:    0.25,
			SmoothingAlpha:     0.3,
			MinKeepScore:       0.5,
			LowScoreDuration:   time.Hour,
			LowActivityChecks:  10,
			ArchivalTimeout:    24 * time.Hour,
		},
		Export: ExportConfig{
			TopCount: 3,
		},
	}
}

func TestConfig_Validate_Defaults(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestConfig_Validate_WeightSum(t *testing.T) {
	cfg := validConfig()
	cfg.Scoring.WeightTxAccel = 0.5

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when weights do not sum to 1.0")
	}
}

func TestConfig_Validate_WeightSumTolerance(t *testing.T) {
	// Float representation noise within tolerance must pass.
	cfg := validConfig()
	cfg.Scoring.WeightTxAccel = 0.1
	cfg.Scoring.WeightVolMomentum = 0.2
	cfg.Scoring.WeightHolderGrowth = 0.3
	cfg.Scoring.WeightOrderflow = 0.4

	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestConfig_Validate_Alpha(t *testing.T) {
	cfg := validConfig()
	cfg.Scoring.SmoothingAlpha = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for alpha 0")
	}

	cfg.Scoring.SmoothingAlpha = 1.5
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for alpha above 1")
	}

	cfg.Scoring.SmoothingAlpha = 1
	if err := cfg.Validate(); err != nil {
		t.Fatalf("alpha 1 is legal: %v", err)
	}
}

func TestConfig_Validate_CacheSettings(t *testing.T) {
	cfg := validConfig()
	cfg.Birdeye.OverviewTTL = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for zero TTL")
	}

	cfg = validConfig()
	cfg.Birdeye.StaleRetentionFactor = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for zero retention factor")
	}
}

func TestConfig_Validate_ExportTopCount(t *testing.T) {
	cfg := validConfig()
	cfg.Export.TopCount = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for zero top count")
	}
}
