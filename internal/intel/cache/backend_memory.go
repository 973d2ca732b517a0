package cache

import (
	"bytes"
	"context"
	"sync"

	"forensics/pkg/platform/sentinel"
)

// MemoryBackend keeps entries in process memory. Nothing is ever evicted.
type MemoryBackend struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{entries: make(map[string]Entry)}
}

func (b *MemoryBackend) Read(_ context.Context, key string) (Entry, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	entry, ok := b.entries[key]
	if !ok {
		return Entry{}, sentinel.ErrNotFound
	}
	entry.Data = bytes.Clone(entry.Data)
	return entry, nil
}

func (b *MemoryBackend) Write(_ context.Context, entry Entry) error {
	entry.Data = bytes.Clone(entry.Data)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[entry.Key] = entry
	return nil
}

// Len reports how many entries are stored, stale ones included.
func (b *MemoryBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}
