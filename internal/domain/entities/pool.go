package entities

import (
	"time"
)

// Pool is a liquidity venue for a token. Every pool belongs to exactly
// one token; liveness is set by ingestion, read-only to scoring.
type Pool struct {
	Address      string    `db:"address"`
	TokenAddress string    `db:"token_address"`
	Dex          string    `db:"dex"`
	IsActive     bool      `db:"is_active"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}
