package settings

import (
	"context"
	"fmt"
	"reflect"
	"sync"
)

// Lazy is a deferred reference to an embedded settings instance. A Lazy field
// tagged `settings:"embed"` is bound by the manager to the shared cell for the
// target class, so every owner observes the same instance. Get materializes
// the target on first use; until then no storage read happens for the target
// class. T must be a pointer to a settings struct.
type Lazy[T Definable] struct {
	cell *lazyCell
}

// Get returns the embedded instance, materializing it on first use.
func (l *Lazy[T]) Get(ctx context.Context) (T, error) {
	var zero T
	if l == nil || l.cell == nil {
		return zero, fmt.Errorf("settings: lazy reference is unbound")
	}
	value, err := l.cell.get(ctx)
	if err != nil {
		return zero, err
	}
	typed, ok := value.(T)
	if !ok {
		return zero, fmt.Errorf("settings: lazy reference holds %T, want %T", value, zero)
	}
	return typed, nil
}

// Initialized reports whether the target has been materialized. The
// persistence layer uses this to skip no-op saves; an uninitialized target
// cannot have been mutated.
func (l *Lazy[T]) Initialized() bool {
	if l == nil || l.cell == nil {
		return false
	}
	_, ok := l.cell.snapshot()
	return ok
}

func (l *Lazy[T]) bindCell(cell *lazyCell) {
	l.cell = cell
}

func (l *Lazy[T]) targetType() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// lazyBinder is the non-generic surface the schema builder and manager use to
// wire Lazy fields without knowing their type parameter.
type lazyBinder interface {
	bindCell(cell *lazyCell)
	targetType() reflect.Type
}

// lazyCell is the identity-map entry for one settings class: either an
// initializer waiting for first touch or the materialized instance. Cells are
// shared between the manager and every Lazy field referencing the class.
type lazyCell struct {
	mu           sync.Mutex
	class        reflect.Type
	init         func(ctx context.Context) (any, error)
	instance     any
	initialized  bool
	initializing bool
}

func (c *lazyCell) get(ctx context.Context) (any, error) {
	c.mu.Lock()
	if c.initialized {
		instance := c.instance
		c.mu.Unlock()
		return instance, nil
	}
	if c.initializing {
		c.mu.Unlock()
		return nil, fmt.Errorf("settings: cyclic initialization of %s", c.class)
	}
	c.initializing = true
	c.mu.Unlock()

	value, err := c.init(ctx)

	c.mu.Lock()
	c.initializing = false
	if err == nil {
		c.instance = value
		c.initialized = true
	}
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return value, nil
}

// snapshot returns the materialized instance without triggering
// initialization.
func (c *lazyCell) snapshot() (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.instance, c.initialized
}

// ProxyFactory produces lazy cells. Cells memoize their initializer result for
// their lifetime; the initializer runs at most once.
type ProxyFactory struct{}

// NewProxyFactory constructs a ProxyFactory.
func NewProxyFactory() *ProxyFactory {
	return &ProxyFactory{}
}

// CreateProxy returns an uninitialized cell for class backed by initializer.
func (f *ProxyFactory) CreateProxy(class reflect.Type, initializer func(ctx context.Context) (any, error)) *lazyCell {
	return &lazyCell{class: class, init: initializer}
}
