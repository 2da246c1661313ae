package entities

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ScoreComponents is the itemized breakdown of one composite score.
// Each component is clamped to [0, 1] before weighting; Raw is the
// unsmoothed weighted composite.
type ScoreComponents struct {
	TxAccel            float64 `json:"tx_accel"`
	VolMomentum        float64 `json:"vol_momentum"`
	HolderGrowth       float64 `json:"holder_growth"`
	OrderflowImbalance float64 `json:"orderflow_imbalance"`
	Raw                float64 `json:"raw"`
}

// Value implements driver.Valuer, storing components as JSONB.
func (c ScoreComponents) Value() (driver.Value, error) {
	return json.Marshal(c)
}

// Scan implements sql.Scanner.
func (c *ScoreComponents) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, c)
	case string:
		return json.Unmarshal([]byte(v), c)
	case nil:
		*c = ScoreComponents{}
		return nil
	default:
		return fmt.Errorf("cannot scan %T into ScoreComponents", src)
	}
}

// ScoreRecord is the output of one scoring computation for a token.
// Score is the EWMA-smoothed value in [0, 1].
type ScoreRecord struct {
	ID           int64           `db:"id"`
	TokenAddress string          `db:"token_address"`
	Model        string          `db:"model"`
	Score        float64         `db:"score"`
	Components   ScoreComponents `db:"components"`
	ComputedAt   time.Time       `db:"computed_at"`
}
