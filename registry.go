package settings

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// Registry maps human-readable settings names to settings struct types. The
// manager consults it when get is called with a name rather than a type.
type Registry struct {
	mu    sync.RWMutex
	names map[string]reflect.Type
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{names: map[string]reflect.Type{}}
}

// Register binds name to the settings struct type t. Rebinding a name to a
// different type is a structural mistake and fails.
func (r *Registry) Register(name string, t reflect.Type) error {
	if name == "" {
		return fmt.Errorf("settings: registry name must not be empty")
	}
	t, err := settingsType(t)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.names[name]; ok && existing != t {
		return fmt.Errorf("settings: name %q already registered for %s", name, existing)
	}
	r.names[name] = t
	return nil
}

// TypeForName resolves name, failing explicitly when unknown.
func (r *Registry) TypeForName(name string) (reflect.Type, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.names[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSettings, name)
	}
	return t, nil
}

// Names returns registered names sorted alphabetically.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.names))
	for name := range r.names {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
