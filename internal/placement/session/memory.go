package session

import (
	"context"
	"sync"
)

// MemoryStore keeps sessions in process. Sessions are lost on restart.
type MemoryStore struct {
	codec
}

// NewMemoryStore returns an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{codec{backend: &memoryKV{data: make(map[string][]byte)}}}
}

type memoryKV struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func (m *memoryKV) put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memoryKV) get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}
