package entities

import (
	"time"
)

// TransitionReason tags why a status transition happened.
type TransitionReason string

const (
	ReasonDiscovery       TransitionReason = "Discovery"
	ReasonActivation      TransitionReason = "Activation"
	ReasonLowScore        TransitionReason = "LowScore"
	ReasonLowActivity     TransitionReason = "LowActivity"
	ReasonArchivalTimeout TransitionReason = "ArchivalTimeout"
)

// StatusHistoryEntry is an append-only audit record of one status
// transition. The first entry per token has FromStatus nil and
// reason Discovery. Entries are never mutated or deleted.
type StatusHistoryEntry struct {
	ID           int64            `db:"id"`
	TokenAddress string           `db:"token_address"`
	FromStatus   *TokenStatus     `db:"from_status"`
	ToStatus     TokenStatus      `db:"to_status"`
	Reason       TransitionReason `db:"reason"`
	Metadata     string           `db:"metadata"`
	CreatedAt    time.Time        `db:"created_at"`
}
