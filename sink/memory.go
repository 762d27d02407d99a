package sink

import (
	"context"
	"sort"
	"sync"
)

// Memory keeps artifacts in a map. Used for dry runs and tests.
type Memory struct {
	mu    sync.RWMutex
	items map[string][]byte
	order []string
}

// NewMemory creates an empty Memory sink.
func NewMemory() *Memory {
	return &Memory{items: make(map[string][]byte)}
}

func (m *Memory) Name() string { return "memory" }

func (m *Memory) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[key]; !ok {
		m.order = append(m.order, key)
	}
	m.items[key] = append([]byte(nil), data...)
	return nil
}

// Get returns a copy of the value stored under key.
func (m *Memory) Get(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.items[key]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), v...), true
}

// Keys returns the stored keys sorted.
func (m *Memory) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.items))
	for k := range m.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Order returns keys in the order they were first written.
func (m *Memory) Order() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.order...)
}

func (m *Memory) Close() error { return nil }
