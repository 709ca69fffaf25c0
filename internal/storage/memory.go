package storage

import (
	"context"
	"strings"
	"sync"

	"sunnydapp/internal/models"
)

// MemoryStore implements Store in memory. Used by tests and by the "memory" backend.
type MemoryStore struct {
	txMu sync.Mutex // serializes Atomic units
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string][]byte),
	}
}

func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

func (s *MemoryStore) Put(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append([]byte(nil), value...)
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func (s *MemoryStore) Scan(ctx context.Context, prefix string) (map[string][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make(map[string][]byte)
	for key, value := range s.data {
		if strings.HasPrefix(key, prefix) {
			result[key] = append([]byte(nil), value...)
		}
	}
	return result, nil
}

// Atomic stages writes in an overlay and applies them in one step when fn succeeds
func (s *MemoryStore) Atomic(ctx context.Context, fn func(kv KV) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	tx := &memoryTx{
		base:   s,
		writes: make(map[string][]byte),
	}
	if err := fn(tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for key, value := range tx.writes {
		if value == nil {
			delete(s.data, key)
			continue
		}
		s.data[key] = value
	}
	return nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}

// memoryTx is the overlay view handed to Atomic callbacks. A nil value marks a deletion.
type memoryTx struct {
	base   *MemoryStore
	writes map[string][]byte
}

func (t *memoryTx) Get(ctx context.Context, key string) ([]byte, error) {
	if value, ok := t.writes[key]; ok {
		if value == nil {
			return nil, ErrNotFound
		}
		return append([]byte(nil), value...), nil
	}
	return t.base.Get(ctx, key)
}

func (t *memoryTx) Put(ctx context.Context, key string, value []byte) error {
	t.writes[key] = append([]byte{}, value...)
	return nil
}

func (t *memoryTx) Delete(ctx context.Context, key string) error {
	t.writes[key] = nil
	return nil
}

func (t *memoryTx) Scan(ctx context.Context, prefix string) (map[string][]byte, error) {
	result, err := t.base.Scan(ctx, prefix)
	if err != nil {
		return nil, err
	}
	for key, value := range t.writes {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if value == nil {
			delete(result, key)
			continue
		}
		result[key] = append([]byte(nil), value...)
	}
	return result, nil
}

// MemoryEventLog implements EventLog in memory
type MemoryEventLog struct {
	mu     sync.RWMutex
	events []models.ContractEvent
}

// NewMemoryEventLog creates an empty in-memory event log
func NewMemoryEventLog() *MemoryEventLog {
	return &MemoryEventLog{}
}

func (l *MemoryEventLog) SaveContractEvent(ctx context.Context, event *models.ContractEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, *event)
	return nil
}

// ListContractEvents returns matching events, newest first
func (l *MemoryEventLog) ListContractEvents(ctx context.Context, filter models.EventFilter) ([]models.ContractEvent, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var result []models.ContractEvent
	for i := len(l.events) - 1; i >= 0; i-- {
		event := l.events[i]
		if filter.AgreementKey != "" && event.AgreementKey != filter.AgreementKey {
			continue
		}
		if filter.EventType != "" && event.EventType != filter.EventType {
			continue
		}
		result = append(result, event)
	}

	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return nil, nil
		}
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}
