package cache

import (
	"sync"
	"time"

	"github.com/angas/eloverblik-exporter/types/maybe"
	"github.com/mailgun/holster/v4/clock"
)

// Memory keeps entries for the lifetime of the process.
type Memory[T any] struct {
	mu      sync.RWMutex
	entries map[string]Entry[T]
	ttl     time.Duration
}

func NewMemory[T any](defaultTTL time.Duration) *Memory[T] {
	return &Memory[T]{
		entries: make(map[string]Entry[T]),
		ttl:     defaultTTL,
	}
}

// Put never fails.
func (m *Memory[T]) Put(key string, value T, expiresAt maybe.Maybe[time.Time]) error {
	entry := Entry[T]{Value: value, ExpiresAt: expiryOrDefault(expiresAt, m.ttl)}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = entry
	return nil
}

func (m *Memory[T]) Get(key string) (maybe.Maybe[T], error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.entries[key]
	if !ok {
		return maybe.None[T](), nil
	}
	return maybe.Some(entry.Value), nil
}

func (m *Memory[T]) HasExpired(key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.entries[key]
	if !ok {
		return true, nil
	}
	return entry.Expired(clock.Now()), nil
}
