package store

import (
	"context"
	"slices"
	"strings"
	"sync"
)

// Memory keeps objects in a map. Used by tests and dry runs.
type Memory struct {
	mu      sync.RWMutex
	objects map[string][]byte
	types   map[string]string
}

func NewMemory() *Memory {
	return &Memory{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *Memory) Put(_ context.Context, key string, body []byte, contentType string) error {
	key = cleanKey(key)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = slices.Clone(body)
	m.types[key] = contentType
	return nil
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.objects[cleanKey(key)]
	if !ok {
		return nil, ErrNotFound
	}
	return slices.Clone(b), nil
}

func (m *Memory) Exists(_ context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[cleanKey(key)]
	return ok, nil
}

func (m *Memory) List(_ context.Context, prefix string) ([]string, error) {
	prefix = cleanKey(prefix)
	m.mu.RLock()
	defer m.mu.RUnlock()
	var keys []string
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys, nil
}

func (m *Memory) DeletePrefix(_ context.Context, prefix string) (int, error) {
	prefix = cleanKey(prefix)
	if prefix == "" {
		return 0, errEmptyPrefix
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) {
			delete(m.objects, k)
			delete(m.types, k)
			n++
		}
	}
	return n, nil
}

// ContentType reports what a key was stored with.
func (m *Memory) ContentType(key string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.types[cleanKey(key)]
}

func (m *Memory) Location(key string) string { return "mem://" + cleanKey(key) }
