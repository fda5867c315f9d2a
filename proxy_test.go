package settings

import (
	"context"
	"reflect"
	"strings"
	"testing"
)

func TestLazyUnboundGetFails(t *testing.T) {
	var lazy Lazy[*CacheSettings]
	if _, err := lazy.Get(context.Background()); err == nil {
		t.Fatalf("unbound lazy reference must fail")
	}
	if lazy.Initialized() {
		t.Fatalf("unbound lazy reference must report uninitialized")
	}
}

func TestLazyCellMemoizesInitializer(t *testing.T) {
	calls := 0
	cell := NewProxyFactory().CreateProxy(reflect.TypeOf(CacheSettings{}), func(context.Context) (any, error) {
		calls++
		return &CacheSettings{}, nil
	})

	first, err := cell.get(context.Background())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	second, err := cell.get(context.Background())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if first != second {
		t.Fatalf("cell must memoize its instance")
	}
	if calls != 1 {
		t.Fatalf("initializer must run once, ran %d times", calls)
	}
}

func TestLazyCellDetectsCyclicInitialization(t *testing.T) {
	var cell *lazyCell
	cell = NewProxyFactory().CreateProxy(reflect.TypeOf(CacheSettings{}), func(ctx context.Context) (any, error) {
		return cell.get(ctx)
	})

	_, err := cell.get(context.Background())
	if err == nil || !strings.Contains(err.Error(), "cyclic") {
		t.Fatalf("expected cyclic initialization error, got %v", err)
	}
}

func TestLazyInitializedTracksCellState(t *testing.T) {
	cell := NewProxyFactory().CreateProxy(reflect.TypeOf(CacheSettings{}), func(context.Context) (any, error) {
		return &CacheSettings{}, nil
	})
	var lazy Lazy[*CacheSettings]
	lazy.bindCell(cell)

	if lazy.Initialized() {
		t.Fatalf("bound but untouched lazy must report uninitialized")
	}
	if _, err := lazy.Get(context.Background()); err != nil {
		t.Fatalf("get: %v", err)
	}
	if !lazy.Initialized() {
		t.Fatalf("materialized lazy must report initialized")
	}
}

func TestLazyGetRejectsWrongInstanceType(t *testing.T) {
	cell := NewProxyFactory().CreateProxy(reflect.TypeOf(CacheSettings{}), func(context.Context) (any, error) {
		return &MailSettings{}, nil
	})
	var lazy Lazy[*CacheSettings]
	lazy.bindCell(cell)

	if _, err := lazy.Get(context.Background()); err == nil {
		t.Fatalf("mismatched instance type must fail")
	}
}
