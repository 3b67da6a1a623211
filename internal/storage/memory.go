package storage

import (
	"context"
	"maps"
	"slices"
	"sync"
)

// state is the in-memory view shared by the memory and file drivers.
type state struct {
	KV   map[string]string
	Sets map[string]map[string]struct{}
}

func newState() *state {
	return &state{KV: map[string]string{}, Sets: map[string]map[string]struct{}{}}
}

func (s *state) put(key, value string) { s.KV[key] = value }

func (s *state) del(key string) {
	delete(s.KV, key)
	delete(s.Sets, key)
}

func (s *state) add(set, member string) {
	m := s.Sets[set]
	if m == nil {
		m = map[string]struct{}{}
		s.Sets[set] = m
	}
	m[member] = struct{}{}
}

func (s *state) remove(set, member string) {
	m := s.Sets[set]
	if m == nil {
		return
	}
	delete(m, member)
	if len(m) == 0 {
		delete(s.Sets, set)
	}
}

func (s *state) members(set string) []string {
	return slices.Sorted(maps.Keys(s.Sets[set]))
}

type memoryStore struct {
	mu     sync.RWMutex
	st     *state
	closed bool
}

func newMemory() *memoryStore { return &memoryStore{st: newState()} }

func (m *memoryStore) GetString(_ context.Context, key, def string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return def, ErrClosed
	}
	if v, ok := m.st.KV[key]; ok {
		return v, nil
	}
	return def, nil
}

func (m *memoryStore) PutString(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.st.put(key, value)
	return nil
}

func (m *memoryStore) GetBool(ctx context.Context, key string, def bool) (bool, error) {
	m.mu.RLock()
	v, ok := m.st.KV[key]
	closed := m.closed
	m.mu.RUnlock()
	if closed {
		return def, ErrClosed
	}
	if !ok {
		return def, nil
	}
	return parseBool(key, v, def)
}

func (m *memoryStore) PutBool(ctx context.Context, key string, value bool) error {
	return m.PutString(ctx, key, formatBool(value))
}

func (m *memoryStore) AddToSet(_ context.Context, set, member string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.st.add(set, member)
	return nil
}

func (m *memoryStore) RemoveFromSet(_ context.Context, set, member string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.st.remove(set, member)
	return nil
}

func (m *memoryStore) GetSet(_ context.Context, set string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	return m.st.members(set), nil
}

func (m *memoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.st.del(key)
	return nil
}

func (m *memoryStore) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}
