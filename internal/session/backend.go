package session

import (
	"context"
	"sync"
)

// Backend is the snapshot storage contract. All backends store whole
// records; partial updates do not exist at this layer.
type Backend interface {
	Save(ctx context.Context, record Record) error
	Get(ctx context.Context, id string) (Record, bool, error)
	Delete(ctx context.Context, id string) error
	ListAll(ctx context.Context) ([]Record, error)
}

// MemoryBackend is the default in-process backend.
type MemoryBackend struct {
	mu      sync.RWMutex
	records map[string]Record
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{records: map[string]Record{}}
}

func (b *MemoryBackend) Save(_ context.Context, record Record) error {
	b.mu.Lock()
	b.records[record.ID] = record
	b.mu.Unlock()
	return nil
}

func (b *MemoryBackend) Get(_ context.Context, id string) (Record, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	record, ok := b.records[id]
	return record, ok, nil
}

func (b *MemoryBackend) Delete(_ context.Context, id string) error {
	b.mu.Lock()
	delete(b.records, id)
	b.mu.Unlock()
	return nil
}

func (b *MemoryBackend) ListAll(_ context.Context) ([]Record, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	records := make([]Record, 0, len(b.records))
	for _, record := range b.records {
		records = append(records, record)
	}
	return records, nil
}
