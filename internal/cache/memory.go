package cache

import (
	"sync"
	"time"

	"github.com/platinummonkey/docsift/internal/document"
)

// MemoryStore is an in-process Store backed by a map. Useful for tests
// and single-run batches that don't need persistence.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]Entry),
	}
}

// Get returns the cached result for hash, if present.
func (m *MemoryStore) Get(hash string) (*document.DocumentResult, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.entries[hash]
	if !ok {
		return nil, false, nil
	}
	result := entry.Result
	return &result, true, nil
}

// Put stores the result under hash.
func (m *MemoryStore) Put(hash string, result *document.DocumentResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[hash] = Entry{
		Hash:      hash,
		CreatedAt: time.Now(),
		Result:    *result,
	}
	return nil
}

// Len returns the number of cached entries.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
