package settings

import (
	"errors"
	"reflect"
	"testing"
)

func TestRegistryResolvesNames(t *testing.T) {
	r := NewRegistry()
	if err := r.Register("mail", reflect.TypeOf(MailSettings{})); err != nil {
		t.Fatalf("register: %v", err)
	}
	resolved, err := r.TypeForName("mail")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved != reflect.TypeOf(MailSettings{}) {
		t.Fatalf("unexpected type %v", resolved)
	}
}

func TestRegistryUnknownName(t *testing.T) {
	if _, err := NewRegistry().TypeForName("nope"); !errors.Is(err, ErrUnknownSettings) {
		t.Fatalf("expected ErrUnknownSettings, got %v", err)
	}
}

func TestRegistryRejectsRebinding(t *testing.T) {
	r := NewRegistry()
	if err := r.Register("mail", reflect.TypeOf(MailSettings{})); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := r.Register("mail", reflect.TypeOf(&MailSettings{})); err != nil {
		t.Fatalf("same type re-registration must be idempotent: %v", err)
	}
	if err := r.Register("mail", reflect.TypeOf(CacheSettings{})); err == nil {
		t.Fatalf("rebinding a name to another type must fail")
	}
}

func TestRegistryRejectsUnmarkedTypes(t *testing.T) {
	r := NewRegistry()
	if err := r.Register("plain", reflect.TypeOf(plainConfig{})); !errors.Is(err, ErrNotSettings) {
		t.Fatalf("expected ErrNotSettings, got %v", err)
	}
	if err := r.Register("", reflect.TypeOf(MailSettings{})); err == nil {
		t.Fatalf("empty name must fail")
	}
}

func TestRegistryNamesSorted(t *testing.T) {
	r := NewRegistry()
	_ = r.Register("mail", reflect.TypeOf(MailSettings{}))
	_ = r.Register("cache", reflect.TypeOf(CacheSettings{}))
	names := r.Names()
	if len(names) != 2 || names[0] != "cache" || names[1] != "mail" {
		t.Fatalf("expected sorted names, got %v", names)
	}
}
