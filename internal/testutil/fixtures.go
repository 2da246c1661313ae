package testutil

import (
	"time"

	"github.com/super-sh1z01d/ToTheMoon-sub001/internal/domain/entities"
	"github.com/super-sh1z01d/ToTheMoon-sub001/internal/infrastructure/birdeye"
)

// Common test addresses
const (
	TokenAddressA = "So11111111111111111111111111111111111111112"
	TokenAddressB = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	TokenAddressC = "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"
	PoolAddressA  = "8sLbNZoA1cfnvMJLPfp98ZLAnFSYCFApfJKMbiXNLwxj"
	PoolAddressB  = "7qbRF6YsyGuLUVs6Y1q64bdVrfe4ZcUUz1JRdoVNUJnm"
)

// BaseTime anchors deterministic fixtures.
var BaseTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// CreateTestToken creates a test token with default values
func CreateTestToken(opts ...TokenOption) entities.Token {
	t := entities.Token{
		Address:         TokenAddressA,
		Name:            "Test Token",
		Symbol:          "TEST",
		Status:          entities.StatusInitial,
		CreatedAt:       BaseTime,
		StatusChangedAt: BaseTime,
	}

	for _, opt := range opts {
		opt(&t)
	}

	return t
}

type TokenOption func(*entities.Token)

func TokenWithAddress(address string) TokenOption {
	return func(t *entities.Token) {
		t.Address = address
	}
}

func TokenWithStatus(status entities.TokenStatus) TokenOption {
	return func(t *entities.Token) {
		t.Status = status
	}
}

func TokenWithScore(score float64) TokenOption {
	return func(t *entities.Token) {
		t.LastScore = &score
	}
}

func TokenActivatedAt(at time.Time) TokenOption {
	return func(t *entities.Token) {
		t.Status = entities.StatusActive
		t.ActivatedAt = &at
	}
}

func TokenCreatedAt(at time.Time) TokenOption {
	return func(t *entities.Token) {
		t.CreatedAt = at
		t.StatusChangedAt = at
	}
}

// CreateTestSnapshot creates a test snapshot with default values
func CreateTestSnapshot(opts ...SnapshotOption) entities.MetricSnapshot {
	s := entities.MetricSnapshot{
		TokenAddress: TokenAddressA,
		CapturedAt:   BaseTime,
		TxCountShort: 50,
		TxCountLong:  600,
		VolumeShort:  1000,
		VolumeLong:   12000,
		BuyVolume:    600,
		SellVolume:   400,
		HolderCount:  1000,
		Liquidity:    5000,
	}

	for _, opt := range opts {
		opt(&s)
	}

	return s
}

type SnapshotOption func(*entities.MetricSnapshot)

func SnapshotForToken(address string) SnapshotOption {
	return func(s *entities.MetricSnapshot) {
		s.TokenAddress = address
	}
}

func SnapshotCapturedAt(at time.Time) SnapshotOption {
	return func(s *entities.MetricSnapshot) {
		s.CapturedAt = at
	}
}

func SnapshotWithActivity(txLong int64, liquidity float64) SnapshotOption {
	return func(s *entities.MetricSnapshot) {
		s.TxCountLong = txLong
		s.Liquidity = liquidity
	}
}

func SnapshotWithHolders(count int64) SnapshotOption {
	return func(s *entities.MetricSnapshot) {
		s.HolderCount = count
	}
}

// CreateTestOverview creates a provider overview with default values
func CreateTestOverview() birdeye.TokenOverview {
	return birdeye.TokenOverview{
		Price:        0.001,
		MarketCap:    100000,
		Liquidity:    5000,
		Holders:      1000,
		TxCount5m:    50,
		TxCount1h:    600,
		Volume5m:     1000,
		Volume1h:     12000,
		BuyVolume5m:  600,
		SellVolume5m: 400,
	}
}
