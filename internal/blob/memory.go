package blob

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"
)

// ErrObjectNotFound is returned by MemoryStore for unknown keys.
var ErrObjectNotFound = errors.New("object not found")

// MemoryStore keeps objects in process memory (BLOB_MODE=local).
// PresignGet is not supported; callers stream the bytes themselves.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]Object
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]Object)}
}

func (m *MemoryStore) PutObject(ctx context.Context, obj Object) (int64, error) {
	if obj.Key == "" {
		return 0, errors.New("object key is required")
	}
	obj.Data = slices.Clone(obj.Data)

	m.mu.Lock()
	m.objects[obj.Key] = obj
	m.mu.Unlock()

	return int64(len(obj.Data)), nil
}

func (m *MemoryStore) GetObject(ctx context.Context, key string) (Object, error) {
	m.mu.RLock()
	obj, ok := m.objects[key]
	m.mu.RUnlock()
	if !ok {
		return Object{}, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
	}

	obj.Data = slices.Clone(obj.Data)
	return obj, nil
}

func (m *MemoryStore) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return "", ErrPresignUnsupported
}

func (m *MemoryStore) DeleteObject(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.objects, key)
	m.mu.Unlock()
	return nil
}

// Len reports how many objects are stored.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
