package storage

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore keeps blobs in process memory. It backs local development
// when no S3 endpoint is configured, and tests.
type MemoryStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

func (m *MemoryStore) Upload(ctx context.Context, filename string, data []byte) (string, error) {
	key := uuid.NewString()

	buf := make([]byte, len(data))
	copy(buf, data)

	m.mu.Lock()
	m.blobs[key] = buf
	m.mu.Unlock()

	return key, nil
}

// Get returns the stored blob for key, if any.
func (m *MemoryStore) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok := m.blobs[key]
	return data, ok
}
