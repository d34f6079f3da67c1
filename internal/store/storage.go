package store

import "sync"

// Storage is a named string key-value store that survives restarts
type Storage interface {
	GetItem(name string) (string, bool, error)
	SetItem(name, value string) error
	RemoveItem(name string) error
}

// MemoryStorage keeps items in process memory
type MemoryStorage struct {
	mu    sync.Mutex
	items map[string]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{items: map[string]string{}}
}

func (m *MemoryStorage) GetItem(name string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.items[name]
	return v, ok, nil
}

func (m *MemoryStorage) SetItem(name, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[name] = value
	return nil
}

func (m *MemoryStorage) RemoveItem(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, name)
	return nil
}
