package cache

import (
	"context"
	"sync"
	"time"
)

type Memory struct {
	mu      sync.RWMutex
	entries map[string][]byte
	now     func() time.Time
}

func NewMemory(opts ...Option) *Memory {
	return &Memory{entries: make(map[string][]byte), now: buildOptions(opts).now}
}

func (m *Memory) Get(_ context.Context, key string, dest any) (bool, error) {
	m.mu.RLock()
	b, ok := m.entries[Prefix+key]
	m.mu.RUnlock()

	if !ok {
		return false, nil
	}

	if err := decode(b, dest); err != nil {
		return false, err
	}

	return true, nil
}

func (m *Memory) Set(_ context.Context, key string, v any) error {
	b, err := encode(v, m.now())
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.entries[Prefix+key] = b
	m.mu.Unlock()

	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, Prefix+key)
	m.mu.Unlock()

	return nil
}
