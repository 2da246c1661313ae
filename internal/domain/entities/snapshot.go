package entities

import (
	"fmt"
	"time"
)

// MetricSnapshot is a point-in-time market reading for a token.
// Short-window fields cover the last 5 minutes, long-window fields
// the last hour, matching the provider's overview granularity.
type MetricSnapshot struct {
	ID           int64     `db:"id"`
	TokenAddress string    `db:"token_address"`
	CapturedAt   time.Time `db:"captured_at"`
	TxCountShort int64     `db:"tx_count_short"`
	TxCountLong  int64     `db:"tx_count_long"`
	VolumeShort  float64   `db:"volume_short"`
	VolumeLong   float64   `db:"volume_long"`
	BuyVolume    float64   `db:"buy_volume"`
	SellVolume   float64   `db:"sell_volume"`
	HolderCount  int64     `db:"holder_count"`
	Liquidity    float64   `db:"liquidity"`
}

// Validate rejects malformed snapshots: zero capture time or any
// negative measurement. Invalid snapshots are discarded by callers,
// never scored.
func (s *MetricSnapshot) Validate() error {
	if s.TokenAddress == "" {
		return fmt.Errorf("snapshot missing token address")
	}
	if s.CapturedAt.IsZero() {
		return fmt.Errorf("snapshot missing capture timestamp")
	}
	if s.TxCountShort < 0 || s.TxCountLong < 0 || s.HolderCount < 0 {
		return fmt.Errorf("snapshot has negative counts")
	}
	if s.VolumeShort < 0 || s.VolumeLong < 0 || s.BuyVolume < 0 || s.SellVolume < 0 || s.Liquidity < 0 {
		return fmt.Errorf("snapshot has negative volumes")
	}
	return nil
}
