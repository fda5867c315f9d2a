package activity

import (
	"context"
	"testing"
)

func TestBuildSettingsEventCarriesMetadata(t *testing.T) {
	event := BuildSettingsSavedEvent(SettingsEventInput{
		Class:      "example.MailSettings",
		Storage:    "vault",
		SnapshotID: "snap-1",
	})
	if event.Verb != "settings.saved" || event.ObjectType != "settings" {
		t.Fatalf("unexpected event identity %+v", event)
	}
	if event.ObjectID != "example.MailSettings" {
		t.Fatalf("expected class as object id, got %q", event.ObjectID)
	}
	if event.Metadata["storage"] != "vault" || event.Metadata["snapshot_id"] != "snap-1" {
		t.Fatalf("expected storage metadata, got %v", event.Metadata)
	}
}

func TestBuildValidationFailedEventCopiesViolations(t *testing.T) {
	violations := map[string][]string{"host": {"required"}}
	event := BuildSettingsValidationFailedEvent(SettingsEventInput{
		Class:      "example.MailSettings",
		Violations: violations,
	})
	violations["host"][0] = "mutated"

	recorded, ok := event.Metadata["violations"].(map[string]any)
	if !ok {
		t.Fatalf("expected violations metadata, got %v", event.Metadata)
	}
	messages := recorded["host"].([]string)
	if messages[0] != "required" {
		t.Fatalf("violations must be copied, got %v", messages)
	}
}

func TestEmitterAppliesDefaultChannel(t *testing.T) {
	hook := &CaptureHook{}
	emitter := NewEmitter(Hooks{hook}, Config{Enabled: true})

	if err := emitter.Emit(context.Background(), validEvent()); err != nil {
		t.Fatalf("emit: %v", err)
	}
	if len(hook.Events) != 1 || hook.Events[0].Channel != "settings" {
		t.Fatalf("expected default channel, got %+v", hook.Events)
	}
}

func TestEmitterDisabledIsNoOp(t *testing.T) {
	hook := &CaptureHook{}
	emitter := NewEmitter(Hooks{hook}, Config{Enabled: false})

	if err := emitter.Emit(context.Background(), validEvent()); err != nil {
		t.Fatalf("emit: %v", err)
	}
	if len(hook.Events) != 0 {
		t.Fatalf("disabled emitter must not notify hooks")
	}
}
