// Package settings stores user volume preferences that survive restarts.
package settings

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Store persists float settings by key.
type Store interface {
	Get(ctx context.Context, key string) (float64, bool, error)
	Put(ctx context.Context, key string, value float64) error
	All(ctx context.Context) (map[string]float64, error)
}

// Key builds the storage key for a target and optional name, e.g. "bus:Music" or "mixer".
func Key(target, name string) string {
	if name == "" {
		return target
	}
	return target + ":" + name
}

// SplitKey reverses Key.
func SplitKey(key string) (target, name string) {
	target, name, _ = strings.Cut(key, ":")
	return target, name
}

// SortedKeys returns the keys of m in order.
func SortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Memory is an in-process Store used when no database path is configured.
type Memory struct {
	mu     sync.RWMutex
	values map[string]float64
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{values: make(map[string]float64)}
}

func (m *Memory) Get(_ context.Context, key string) (float64, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *Memory) Put(_ context.Context, key string, value float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *Memory) All(_ context.Context) (map[string]float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]float64, len(m.values))
	for k, v := range m.values {
		out[k] = v
	}
	return out, nil
}
