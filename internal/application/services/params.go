package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/super-sh1z01d/ToTheMoon-sub001/internal/config"
	"github.com/super-sh1z01d/ToTheMoon-sub001/internal/domain/repositories"
)

// SettingsKey is the settings-store document the tracker reads its
// runtime overrides from.
const SettingsKey = "tracker_params"

// Params is the effective parameter set for one pipeline invocation.
// Every scoring, lifecycle and export cycle resolves a fresh copy so
// operator changes take effect without restarts.
type Params struct {
	WeightTxAccel      float64
	WeightVolMomentum  float64
	WeightHolderGrowth float64
	WeightOrderflow    float64

	SmoothingAlpha float64
	Lookback       time.Duration
	Model          string

	MinKeepScore           float64
	LowScoreDuration       time.Duration
	LowActivityChecks      int
	LowActivityResetOnPass bool

	MinActivationTxCount   int64
	MinActivationLiquidity float64
	ArchivalTimeout        time.Duration

	ExportMinScore     float64
	ExportTopCount     int
	RequireActivePools bool
	StrategyName       string
}

// Validate enforces the same invariants as startup configuration.
// A violation marks the whole parameter set unusable; callers skip
// the cycle rather than run on partially valid values.
func (p *Params) Validate() error {
	sum := p.WeightTxAccel + p.WeightVolMomentum + p.WeightHolderGrowth + p.WeightOrderflow
	if math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("scoring weights must sum to 1.0, got %v", sum)
	}
	if p.SmoothingAlpha <= 0 || p.SmoothingAlpha > 1 {
		return fmt.Errorf("smoothing alpha must be in (0, 1], got %v", p.SmoothingAlpha)
	}
	if p.Lookback <= 0 {
		return fmt.Errorf("lookback must be positive, got %v", p.Lookback)
	}
	if p.LowScoreDuration <= 0 {
		return fmt.Errorf("low-score duration must be positive, got %v", p.LowScoreDuration)
	}
	if p.LowActivityChecks < 1 {
		return fmt.Errorf("low-activity check count must be >= 1, got %d", p.LowActivityChecks)
	}
	if p.ArchivalTimeout <= 0 {
		return fmt.Errorf("archival timeout must be positive, got %v", p.ArchivalTimeout)
	}
	if p.ExportTopCount < 1 {
		return fmt.Errorf("export top count must be >= 1, got %d", p.ExportTopCount)
	}
	return nil
}

// ParamsSource resolves the effective parameters for one cycle.
type ParamsSource interface {
	Resolve(ctx context.Context) (*Params, error)
}

// paramsOverride mirrors the settings JSON document. Pointer fields
// distinguish "absent, keep default" from an explicit zero. Durations
// are stored as seconds.
type paramsOverride struct {
	WeightTxAccel      *float64 `json:"weight_tx_accel"`
	WeightVolMomentum  *float64 `json:"weight_vol_momentum"`
	WeightHolderGrowth *float64 `json:"weight_holder_growth"`
	WeightOrderflow    *float64 `json:"weight_orderflow"`

	SmoothingAlpha  *float64 `json:"smoothing_alpha"`
	LookbackSeconds *int64   `json:"lookback_seconds"`
	Model           *string  `json:"model"`

	MinKeepScore            *float64 `json:"min_keep_score"`
	LowScoreDurationSeconds *int64   `json:"low_score_duration_seconds"`
	LowActivityChecks       *int     `json:"low_activity_checks"`
	LowActivityResetOnPass  *bool    `json:"low_activity_reset_on_pass"`

	MinActivationTxCount   *int64   `json:"min_activation_tx_count"`
	MinActivationLiquidity *float64 `json:"min_activation_liquidity"`
	ArchivalTimeoutSeconds *int64   `json:"archival_timeout_seconds"`

	ExportMinScore     *float64 `json:"export_min_score"`
	ExportTopCount     *int     `json:"export_top_count"`
	RequireActivePools *bool    `json:"require_active_pools"`
	StrategyName       *string  `json:"strategy_name"`
}

// SettingsParams resolves Params from configuration defaults layered
// with overrides from the settings store.
type SettingsParams struct {
	settingsRepo repositories.SettingsRepository
	scoring      config.ScoringConfig
	export       config.ExportConfig
}

var _ ParamsSource = (*SettingsParams)(nil)

// NewSettingsParams creates a settings-backed parameter source
func NewSettingsParams(settingsRepo repositories.SettingsRepository, scoring config.ScoringConfig, export config.ExportConfig) *SettingsParams {
	return &SettingsParams{
		settingsRepo: settingsRepo,
		scoring:      scoring,
		export:       export,
	}
}

// Resolve builds the effective parameter set. A malformed or invalid
// stored document fails the whole resolution; defaults are never
// silently substituted for bad overrides.
func (s *SettingsParams) Resolve(ctx context.Context) (*Params, error) {
	p := s.defaults()

	raw, err := s.settingsRepo.Get(ctx, SettingsKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	if raw != nil {
		var override paramsOverride
		if err := json.Unmarshal(raw, &override); err != nil {
			return nil, fmt.Errorf("malformed settings document: %w", err)
		}
		apply(p, &override)
	}

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid effective parameters: %w", err)
	}

	return p, nil
}

func (s *SettingsParams) defaults() *Params {
	return &Params{
		WeightTxAccel:      s.scoring.WeightTxAccel,
		WeightVolMomentum:  s.scoring.WeightVolMomentum,
		WeightHolderGrowth: s.scoring.WeightHolderGrowth,
		WeightOrderflow:    s.scoring.WeightOrderflow,

		SmoothingAlpha: s.scoring.SmoothingAlpha,
		Lookback:       s.scoring.Lookback,
		Model:          s.scoring.Model,

		MinKeepScore:           s.scoring.MinKeepScore,
		LowScoreDuration:       s.scoring.LowScoreDuration,
		LowActivityChecks:      s.scoring.LowActivityChecks,
		LowActivityResetOnPass: s.scoring.LowActivityResetOnPass,

		MinActivationTxCount:   s.scoring.MinActivationTxCount,
		MinActivationLiquidity: s.scoring.MinActivationLiquidity,
		ArchivalTimeout:        s.scoring.ArchivalTimeout,

		ExportMinScore:     s.export.MinScore,
		ExportTopCount:     s.export.TopCount,
		RequireActivePools: s.export.RequireActivePools,
		StrategyName:       s.export.StrategyName,
	}
}

func apply(p *Params, o *paramsOverride) {
	if o.WeightTxAccel != nil {
		p.WeightTxAccel = *o.WeightTxAccel
	}
	if o.WeightVolMomentum != nil {
		p.WeightVolMomentum = *o.WeightVolMomentum
	}
	if o.WeightHolderGrowth != nil {
		p.WeightHolderGrowth = *o.WeightHolderGrowth
	}
	if o.WeightOrderflow != nil {
		p.WeightOrderflow = *o.WeightOrderflow
	}
	if o.SmoothingAlpha != nil {
		p.SmoothingAlpha = *o.SmoothingAlpha
	}
	if o.LookbackSeconds != nil {
		p.Lookback = time.Duration(*o.LookbackSeconds) * time.Second
	}
	if o.Model != nil {
		p.Model = *o.Model
	}
	if o.MinKeepScore != nil {
		p.MinKeepScore = *o.MinKeepScore
	}
	if o.LowScoreDurationSeconds != nil {
		p.LowScoreDuration = time.Duration(*o.LowScoreDurationSeconds) * time.Second
	}
	if o.LowActivityChecks != nil {
		p.LowActivityChecks = *o.LowActivityChecks
	}
	if o.LowActivityResetOnPass != nil {
		p.LowActivityResetOnPass = *o.LowActivityResetOnPass
	}
	if o.MinActivationTxCount != nil {
		p.MinActivationTxCount = *o.MinActivationTxCount
	}
	if o.MinActivationLiquidity != nil {
		p.MinActivationLiquidity = *o.MinActivationLiquidity
	}
	if o.ArchivalTimeoutSeconds != nil {
		p.ArchivalTimeout = time.Duration(*o.ArchivalTimeoutSeconds) * time.Second
	}
	if o.ExportMinScore != nil {
		p.ExportMinScore = *o.ExportMinScore
	}
	if o.ExportTopCount != nil {
		p.ExportTopCount = *o.ExportTopCount
	}
	if o.RequireActivePools != nil {
		p.RequireActivePools = *o.RequireActivePools
	}
	if o.StrategyName != nil {
		p.StrategyName = *o.StrategyName
	}
}
