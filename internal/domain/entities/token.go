package entities

import (
	"time"
)

// TokenStatus is a token's current lifecycle stage.
type TokenStatus string

const (
	StatusInitial  TokenStatus = "Initial"
	StatusActive   TokenStatus = "Active"
	StatusArchived TokenStatus = "Archived"
)

// Valid reports whether s is a known status value.
func (s TokenStatus) Valid() bool {
	switch s {
	case StatusInitial, StatusActive, StatusArchived:
		return true
	}
	return false
}

// Token represents a tracked Solana token.
// Tokens are created on first discovery and soft-retained forever;
// only satellite records (snapshots, scores) are pruned.
type Token struct {
	Address         string      `db:"address"`
	Name            string      `db:"name"`
	Symbol          string      `db:"symbol"`
	Status          TokenStatus `db:"status"`
	CreatedAt       time.Time   `db:"created_at"`
	ActivatedAt     *time.Time  `db:"activated_at"`
	ArchivedAt      *time.Time  `db:"archived_at"`
	LastScore       *float64    `db:"last_score"`
	LastScoreAt     *time.Time  `db:"last_score_at"`
	StatusChangedAt time.Time   `db:"status_changed_at"`
}
