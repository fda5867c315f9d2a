package activity

import (
	"strings"
	"time"
)

// SettingsEventInput describes the common fields for settings lifecycle
// events.
type SettingsEventInput struct {
	ActorID    string
	UserID     string
	TenantID   string
	Channel    string
	Class      string
	Storage    string
	SnapshotID string
	Violations map[string][]string
	Metadata   map[string]any
	OccurredAt time.Time
}

// BuildSettingsLoadedEvent constructs an event for a settings class being
// materialized (hydrated) into the identity map.
func BuildSettingsLoadedEvent(input SettingsEventInput) Event {
	return buildSettingsEvent("settings.loaded", input)
}

// BuildSettingsSavedEvent constructs an event for a persisted settings class.
func BuildSettingsSavedEvent(input SettingsEventInput) Event {
	return buildSettingsEvent("settings.saved", input)
}

// BuildSettingsReloadedEvent constructs an event for a reloaded settings
// class.
func BuildSettingsReloadedEvent(input SettingsEventInput) Event {
	return buildSettingsEvent("settings.reloaded", input)
}

// BuildSettingsResetEvent constructs an event for a settings class returned to
// declared defaults.
func BuildSettingsResetEvent(input SettingsEventInput) Event {
	return buildSettingsEvent("settings.reset", input)
}

// BuildSettingsValidationFailedEvent constructs an event for a save aborted by
// validation.
func BuildSettingsValidationFailedEvent(input SettingsEventInput) Event {
	return buildSettingsEvent("settings.validation_failed", input)
}

func buildSettingsEvent(verb string, input SettingsEventInput) Event {
	metadata := cloneMap(input.Metadata)
	if input.Storage != "" {
		metadata = ensureMetadata(metadata)
		metadata["storage"] = input.Storage
	}
	if input.SnapshotID != "" {
		metadata = ensureMetadata(metadata)
		metadata["snapshot_id"] = input.SnapshotID
	}
	if len(input.Violations) > 0 {
		metadata = ensureMetadata(metadata)
		violations := make(map[string]any, len(input.Violations))
		for parameter, messages := range input.Violations {
			violations[parameter] = append([]string{}, messages...)
		}
		metadata["violations"] = violations
	}

	objectID := strings.TrimSpace(input.Class)
	if objectID == "" {
		objectID = "settings"
	}

	return Event{
		Verb:       verb,
		ActorID:    strings.TrimSpace(input.ActorID),
		UserID:     strings.TrimSpace(input.UserID),
		TenantID:   strings.TrimSpace(input.TenantID),
		ObjectType: "settings",
		ObjectID:   objectID,
		Channel:    strings.TrimSpace(input.Channel),
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}

func ensureMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	return meta
}
