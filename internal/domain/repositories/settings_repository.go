package repositories

import (
	"context"
)

// SettingsRepository is a key/value store for operator-tunable
// parameters, stored as JSON documents.
type SettingsRepository interface {
	// Get returns (nil, nil) when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}
