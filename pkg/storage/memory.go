package storage

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryAdapter is a minimal in-memory Adapter intended for tests and
// request-scoped deployments. Values are deep-cloned on both read and write.
type MemoryAdapter struct {
	mu      sync.RWMutex
	classes map[string]map[string]any
	meta    map[string]Meta
}

// NewMemoryAdapter constructs an empty MemoryAdapter.
func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{
		classes: map[string]map[string]any{},
		meta:    map[string]Meta{},
	}
}

// Read implements Adapter.
func (a *MemoryAdapter) Read(_ context.Context, class, key string) (any, bool, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	values, ok := a.classes[class]
	if !ok {
		return nil, false, nil
	}
	value, ok := values[key]
	if !ok {
		return nil, false, nil
	}
	return cloneValue(value), true, nil
}

// Write implements Adapter.
func (a *MemoryAdapter) Write(_ context.Context, class, key string, value any) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	values, ok := a.classes[class]
	if !ok {
		values = map[string]any{}
		a.classes[class] = values
	}
	values[key] = cloneValue(value)
	a.meta[class] = Meta{SnapshotID: uuid.NewString(), UpdatedAt: time.Now()}
	return nil
}

// Meta implements MetaProvider.
func (a *MemoryAdapter) Meta(class string) (Meta, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	meta, ok := a.meta[class]
	if !ok {
		return Meta{}, false
	}
	return cloneMeta(meta), true
}
