package cache

import (
	"sync"
	"time"
)

type memoryEntry struct {
	value    string
	lastUsed time.Time
}

// Memory is an in-process Cache.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	closed  bool
}

func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]memoryEntry),
	}
}

func (m *Memory) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return "", false, ErrClosed
	}

	e, ok := m.entries[key]
	if !ok {
		return "", false, nil
	}
	e.lastUsed = time.Now()
	m.entries[key] = e
	return e.value, true, nil
}

func (m *Memory) Put(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}

	m.entries[key] = memoryEntry{value: value, lastUsed: time.Now()}
	return nil
}

func (m *Memory) Prune(before time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrClosed
	}

	removed := 0
	for key, e := range m.entries {
		if e.lastUsed.Before(before) {
			delete(m.entries, key)
			removed++
		}
	}
	return removed, nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.entries = nil
	return nil
}
