package pumpportal

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType distinguishes feed message kinds.
type EventType string

const (
	EventCreate  EventType = "create"
	EventMigrate EventType = "migrate"
)

// Event is a normalized feed message. The raw feed is loose about
// field names, so ParseEvent folds the known aliases into one shape.
type Event struct {
	Type         EventType
	TokenAddress string
	Name         string
	Symbol       string
	PoolAddress  string
	Dex          string
	Timestamp    time.Time
}

type rawEvent struct {
	TxType       string `json:"txType"`
	Mint         string `json:"mint"`
	Address      string `json:"address"`
	TokenAddress string `json:"tokenAddress"`
	Name         string `json:"name"`
	Symbol       string `json:"symbol"`
	Pool         string `json:"pool"`
	PoolAddress  string `json:"poolAddress"`
	Dex          string `json:"dex"`
}

// ParseEvent decodes a feed message. Messages without a token address
// or with an unknown txType are rejected; subscription acks fall into
// that bucket too.
func ParseEvent(data []byte, now time.Time) (*Event, error) {
	var raw rawEvent
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("malformed feed message: %w", err)
	}

	address := raw.Mint
	if address == "" {
		address = raw.Address
	}
	if address == "" {
		address = raw.TokenAddress
	}
	if address == "" {
		return nil, fmt.Errorf("feed message has no token address")
	}

	var eventType EventType
	switch raw.TxType {
	case "create":
		eventType = EventCreate
	case "migrate":
		eventType = EventMigrate
	default:
		return nil, fmt.Errorf("unknown feed message type %q", raw.TxType)
	}

	pool := raw.PoolAddress
	if pool == "" {
		pool = raw.Pool
	}

	return &Event{
		Type:         eventType,
		TokenAddress: address,
		Name:         raw.Name,
		Symbol:       raw.Symbol,
		PoolAddress:  pool,
		Dex:          raw.Dex,
		Timestamp:    now,
	}, nil
}
