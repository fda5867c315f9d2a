package settings

import (
	"fmt"
	"hash/fnv"
	"reflect"
	"sync"
)

// SchemaManager derives and memoizes one Schema per settings struct. Outside
// debug mode a secondary SchemaCache is consulted first, keyed by a stable
// hash of the class identity, so schemas survive across manager generations
// when callers supply a longer-lived cache.
type SchemaManager struct {
	mu      sync.RWMutex
	schemas map[reflect.Type]*Schema
	types   map[string]ParameterType
	cache   SchemaCache
	debug   bool
}

// SchemaManagerOption configures a SchemaManager.
type SchemaManagerOption func(*SchemaManager)

// SchemaManagerWithCache wires the secondary schema cache.
func SchemaManagerWithCache(cache SchemaCache) SchemaManagerOption {
	return func(m *SchemaManager) {
		m.cache = cache
	}
}

// SchemaManagerWithDebug disables the secondary cache so declaration changes
// are picked up immediately.
func SchemaManagerWithDebug(debug bool) SchemaManagerOption {
	return func(m *SchemaManager) {
		m.debug = debug
	}
}

// SchemaManagerWithType registers a custom parameter type adapter, replacing
// any builtin registered under the same name.
func SchemaManagerWithType(t ParameterType) SchemaManagerOption {
	return func(m *SchemaManager) {
		if t != nil {
			m.types[t.Name()] = t
		}
	}
}

// NewSchemaManager constructs a SchemaManager with the builtin parameter
// types.
func NewSchemaManager(opts ...SchemaManagerOption) *SchemaManager {
	m := &SchemaManager{
		schemas: map[reflect.Type]*Schema{},
		types:   builtinParameterTypes(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Schema returns the memoized schema for t, building it on first use.
// Build failures are structural: they indicate a misdeclared settings struct
// and abort the calling operation.
func (m *SchemaManager) Schema(t reflect.Type) (*Schema, error) {
	t, err := settingsType(t)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	schema, ok := m.schemas[t]
	m.mu.RUnlock()
	if ok {
		return schema, nil
	}

	if m.cache != nil && !m.debug {
		if cached, ok := m.cache.Get(schemaCacheKey(t)); ok {
			m.mu.Lock()
			m.schemas[t] = cached
			m.mu.Unlock()
			return cached, nil
		}
	}

	schema, err = buildSchema(t, m.types)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.schemas[t] = schema
	m.mu.Unlock()
	if m.cache != nil && !m.debug {
		m.cache.Set(schemaCacheKey(t), schema)
	}
	return schema, nil
}

// ParameterType resolves a registered adapter by name.
func (m *SchemaManager) ParameterType(name string) (ParameterType, error) {
	t, ok := m.types[name]
	if !ok {
		return nil, fmt.Errorf("settings: unknown parameter type %q", name)
	}
	return t, nil
}

// schemaCacheKey is a pure function of the class identity.
func schemaCacheKey(t reflect.Type) string {
	h := fnv.New64a()
	h.Write([]byte(className(t)))
	return fmt.Sprintf("settings.schema.%x", h.Sum64())
}

// MemorySchemaCache is a minimal SchemaCache for tests and single-process
// deployments.
type MemorySchemaCache struct {
	mu      sync.RWMutex
	schemas map[string]*Schema
}

// NewMemorySchemaCache constructs an empty MemorySchemaCache.
func NewMemorySchemaCache() *MemorySchemaCache {
	return &MemorySchemaCache{schemas: map[string]*Schema{}}
}

// Get implements SchemaCache.
func (c *MemorySchemaCache) Get(key string) (*Schema, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	schema, ok := c.schemas[key]
	return schema, ok
}

// Set implements SchemaCache.
func (c *MemorySchemaCache) Set(key string, schema *Schema) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.schemas[key] = schema
}
