package durable

import (
	"context"
	"fmt"
	"sync"
)

// MemoryKV is an in-memory KV with an enforced byte quota across all keys.
// Used in tests and as the fallback backend.
type MemoryKV struct {
	mu     sync.RWMutex
	data   map[string]string
	quota  int
	failed int // count of quota-rejected writes, for tests and metrics
}

// NewMemoryKV creates a MemoryKV with the given total byte quota. A
// non-positive quota means unlimited.
func NewMemoryKV(quota int) *MemoryKV {
	return &MemoryKV{
		data:  make(map[string]string),
		quota: quota,
	}
}

// Get returns the value for key.
func (m *MemoryKV) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.data[key]
	return value, ok, nil
}

// Set writes the value for key, enforcing the byte quota over the total
// size of all stored values.
func (m *MemoryKV) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.quota > 0 {
		total := len(value)
		for k, v := range m.data {
			if k == key {
				continue
			}
			total += len(v)
		}
		if total > m.quota {
			m.failed++
			return fmt.Errorf("%w: %d bytes over %d byte quota", ErrQuotaExceeded, total-m.quota, m.quota)
		}
	}

	m.data[key] = value
	return nil
}

// Delete removes the key.
func (m *MemoryKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// RejectedWrites returns the number of writes rejected over quota.
func (m *MemoryKV) RejectedWrites() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.failed
}
