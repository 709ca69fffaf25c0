package storage

import (
	"context"
	"errors"

	"sunnydapp/internal/models"
)

// ErrNotFound is returned when a key has no stored value
var ErrNotFound = errors.New("not found")

// KV is the flat key/value ledger store. Keys are opaque strings, values JSON documents.
type KV interface {
	// Get returns ErrNotFound when the key is absent
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	// Scan returns every key/value pair whose key starts with prefix
	Scan(ctx context.Context, prefix string) (map[string][]byte, error)
}

// Store is a KV able to apply a group of operations all-or-nothing
type Store interface {
	KV

	// Atomic runs fn against a transactional view. Writes are committed only when fn returns nil.
	Atomic(ctx context.Context, fn func(kv KV) error) error

	// Health & Maintenance
	Ping(ctx context.Context) error
	Close() error
}

// EventLog persists emitted lifecycle events
type EventLog interface {
	SaveContractEvent(ctx context.Context, event *models.ContractEvent) error
	ListContractEvents(ctx context.Context, filter models.EventFilter) ([]models.ContractEvent, error)
}
