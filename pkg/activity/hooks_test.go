package activity

import (
	"context"
	"errors"
	"testing"
	"time"
)

func validEvent() Event {
	return Event{
		Verb:       "settings.saved",
		ObjectType: "settings",
		ObjectID:   "example.MailSettings",
	}
}

func TestHooksFanOut(t *testing.T) {
	first := &CaptureHook{}
	second := &CaptureHook{}
	hooks := Hooks{first, second}

	if err := hooks.Notify(context.Background(), validEvent()); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(first.Events) != 1 || len(second.Events) != 1 {
		t.Fatalf("expected both hooks notified, got %d / %d", len(first.Events), len(second.Events))
	}
}

func TestHooksJoinErrors(t *testing.T) {
	boom := errors.New("boom")
	failing := &CaptureHook{Err: boom}
	ok := &CaptureHook{}
	hooks := Hooks{failing, ok}

	err := hooks.Notify(context.Background(), validEvent())
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined hook error, got %v", err)
	}
	if len(ok.Events) != 1 {
		t.Fatalf("a failing hook must not starve the others")
	}
}

func TestHooksSkipIncompleteEvents(t *testing.T) {
	hook := &CaptureHook{}
	hooks := Hooks{hook}

	if err := hooks.Notify(context.Background(), Event{Verb: "settings.saved"}); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(hook.Events) != 0 {
		t.Fatalf("events without object identity must be dropped")
	}
}

func TestNormalizeEventDefaultsTimestamp(t *testing.T) {
	normalized := NormalizeEvent(Event{Verb: "  settings.saved  "})
	if normalized.Verb != "settings.saved" {
		t.Fatalf("expected trimmed verb, got %q", normalized.Verb)
	}
	if normalized.OccurredAt.IsZero() {
		t.Fatalf("expected timestamp default")
	}

	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	normalized = NormalizeEvent(Event{OccurredAt: at})
	if !normalized.OccurredAt.Equal(at) {
		t.Fatalf("explicit timestamp must survive, got %v", normalized.OccurredAt)
	}
}

func TestNormalizeEventClonesMetadata(t *testing.T) {
	meta := map[string]any{"storage": "vault"}
	normalized := NormalizeEvent(Event{Metadata: meta})
	meta["storage"] = "mutated"
	if normalized.Metadata["storage"] != "vault" {
		t.Fatalf("metadata must be cloned, got %v", normalized.Metadata)
	}
}
