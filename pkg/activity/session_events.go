package activity

import (
	"strings"
	"time"
)

// Verbs emitted by the session packages.
const (
	VerbModelBound      = "session.model.bound"
	VerbFieldDiagnostic = "session.field.diagnostic"
	VerbStateSaved      = "session.state.saved"
	VerbStateRestored   = "session.state.restored"
)

// Object types paired with the verbs above.
const (
	ObjectModel = "session.model"
	ObjectField = "session.field"
	ObjectState = "session.state"
)

// SessionEventInput describes the common fields of session lifecycle events.
type SessionEventInput struct {
	ActorID    string
	UserID     string
	TenantID   string
	SessionID  string
	Channel    string
	Model      string
	Field      string
	Key        string
	Code       string
	Message    string
	Ref        string
	SnapshotID string
	ETag       string
	Fields     int
	Metadata   map[string]any
	OccurredAt time.Time
}

// BuildModelBoundEvent describes a model declaration bound to a store.
func BuildModelBoundEvent(input SessionEventInput) Event {
	return buildSessionEvent(VerbModelBound, ObjectModel, input.Model, input)
}

// BuildFieldDiagnosticEvent describes one binding diagnostic.
func BuildFieldDiagnosticEvent(input SessionEventInput) Event {
	objectID := strings.TrimSpace(input.Key)
	if objectID == "" && input.Model != "" && input.Field != "" {
		objectID = input.Model + "." + input.Field
	}
	return buildSessionEvent(VerbFieldDiagnostic, ObjectField, objectID, input)
}

// BuildStateSavedEvent describes a persisted session snapshot.
func BuildStateSavedEvent(input SessionEventInput) Event {
	return buildSessionEvent(VerbStateSaved, ObjectState, input.Ref, input)
}

// BuildStateRestoredEvent describes a snapshot loaded back into a store.
func BuildStateRestoredEvent(input SessionEventInput) Event {
	return buildSessionEvent(VerbStateRestored, ObjectState, input.Ref, input)
}

func buildSessionEvent(verb, objectType, objectID string, input SessionEventInput) Event {
	metadata := cloneMap(input.Metadata)
	set := func(key string, value any) {
		if metadata == nil {
			metadata = map[string]any{}
		}
		metadata[key] = value
	}
	if input.Model != "" {
		set("model", input.Model)
	}
	if input.Field != "" {
		set("field", input.Field)
	}
	if input.Key != "" {
		set("key", input.Key)
	}
	if input.Code != "" {
		set("code", input.Code)
	}
	if input.Message != "" {
		set("message", input.Message)
	}
	if input.SnapshotID != "" {
		set("snapshot_id", input.SnapshotID)
	}
	if input.ETag != "" {
		set("etag", input.ETag)
	}
	if input.Fields > 0 {
		set("fields", input.Fields)
	}

	objectID = strings.TrimSpace(objectID)
	if objectID == "" {
		objectID = strings.TrimSpace(input.SnapshotID)
	}
	if objectID == "" {
		objectID = objectType
	}

	return Event{
		Verb:       verb,
		ActorID:    strings.TrimSpace(input.ActorID),
		UserID:     strings.TrimSpace(input.UserID),
		TenantID:   strings.TrimSpace(input.TenantID),
		SessionID:  strings.TrimSpace(input.SessionID),
		ObjectType: objectType,
		ObjectID:   objectID,
		Channel:    strings.TrimSpace(input.Channel),
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}
