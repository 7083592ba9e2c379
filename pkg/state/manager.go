package state

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	session "github.com/goliatone/go-session-state"
	"github.com/goliatone/go-session-state/pkg/activity"
)

// Mutator edits a loaded snapshot in place before it is saved.
type Mutator func(*Snapshot) error

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// Manager captures, restores and mutates model snapshots through a Store.
type Manager struct {
	store   Store
	hooks   activity.Hooks
	channel string
	actorID string
	now     func() time.Time
	newID   func() string
}

// WithActivityHooks notifies hooks of saved and restored snapshots.
func WithActivityHooks(hooks activity.Hooks) ManagerOption {
	normalized := hooks.Clone()
	return func(m *Manager) {
		m.hooks = normalized
	}
}

// WithActivityChannel overrides the channel stamped on emitted events.
func WithActivityChannel(channel string) ManagerOption {
	return func(m *Manager) {
		m.channel = channel
	}
}

// WithActor stamps the actor id on emitted events.
func WithActor(actorID string) ManagerOption {
	return func(m *Manager) {
		m.actorID = actorID
	}
}

// WithClock overrides the time source used for Meta.UpdatedAt.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithIDGenerator overrides snapshot id generation.
func WithIDGenerator(fn func() string) ManagerOption {
	return func(m *Manager) {
		if fn != nil {
			m.newID = fn
		}
	}
}

// NewManager returns a manager over store.
func NewManager(store Store, opts ...ManagerOption) *Manager {
	m := &Manager{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Save captures model and persists it under the session. A non-empty
// expect.ETag must match the stored etag.
func (m *Manager) Save(ctx context.Context, sessionID string, model *session.Model, expect Meta) (Meta, error) {
	if model == nil {
		return Meta{}, fmt.Errorf("state: model is required")
	}
	ref := Ref{Session: sessionID, Model: model.ID()}
	return m.Mutate(ctx, ref, expect, func(s *Snapshot) error {
		*s = Capture(model)
		return nil
	})
}

// Restore loads the session's snapshot into model. It reports false when
// nothing was persisted, leaving the store untouched.
func (m *Manager) Restore(ctx context.Context, sessionID string, model *session.Model) (Meta, bool, error) {
	if err := m.check(); err != nil {
		return Meta{}, false, err
	}
	if model == nil {
		return Meta{}, false, fmt.Errorf("state: model is required")
	}
	ref := Ref{Session: sessionID, Model: model.ID()}
	if _, err := ref.Identifier(); err != nil {
		return Meta{}, false, err
	}

	snapshot, meta, ok, err := m.store.Load(ctx, ref)
	if err != nil {
		return Meta{}, false, fmt.Errorf("state: load %s: %w", ref, err)
	}
	if !ok {
		return Meta{}, false, nil
	}
	if err := Apply(snapshot, model); err != nil {
		return meta, false, err
	}

	m.emit(ctx, activity.BuildStateRestoredEvent(m.eventInput(ref, meta, len(snapshot.Entries))))
	return meta, true, nil
}

// Load returns the persisted snapshot for ref.
func (m *Manager) Load(ctx context.Context, ref Ref) (Snapshot, Meta, error) {
	if err := m.check(); err != nil {
		return Snapshot{}, Meta{}, err
	}
	if _, err := ref.Identifier(); err != nil {
		return Snapshot{}, Meta{}, err
	}
	snapshot, meta, ok, err := m.store.Load(ctx, ref)
	if err != nil {
		return Snapshot{}, Meta{}, fmt.Errorf("state: load %s: %w", ref, err)
	}
	if !ok {
		return Snapshot{}, Meta{}, fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	return snapshot, meta, nil
}

// Mutate loads one snapshot, applies fn, then saves it with a fresh
// snapshot id and etag. A missing snapshot starts empty. A non-empty
// expect.ETag must equal the stored etag; a record without one, or no record
// at all, is a mismatch.
func (m *Manager) Mutate(ctx context.Context, ref Ref, expect Meta, fn Mutator) (Meta, error) {
	if err := m.check(); err != nil {
		return Meta{}, err
	}
	if _, err := ref.Identifier(); err != nil {
		return Meta{}, err
	}
	if fn == nil {
		return Meta{}, fmt.Errorf("state: mutator is required")
	}

	snapshot, loaded, ok, err := m.store.Load(ctx, ref)
	if err != nil {
		return Meta{}, fmt.Errorf("state: load %s: %w", ref, err)
	}
	if !ok {
		snapshot = Snapshot{Model: ref.Model}
		loaded = Meta{}
	}

	if expect.ETag != "" && expect.ETag != loaded.ETag {
		return loaded, fmt.Errorf("%w: expected %q, got %q", ErrETagMismatch, expect.ETag, loaded.ETag)
	}

	snapshot = cloneSnapshot(snapshot)
	if err := fn(&snapshot); err != nil {
		return loaded, err
	}
	if err := validateSnapshot(ref, snapshot); err != nil {
		return loaded, err
	}

	etag, err := snapshot.ETag()
	if err != nil {
		return loaded, err
	}
	next := mergeMeta(loaded, Meta{Extra: expect.Extra})
	next.SnapshotID = m.newID()
	next.ETag = etag
	next.UpdatedAt = m.now()

	saved, err := m.store.Save(ctx, ref, snapshot, next)
	if err != nil {
		return loaded, fmt.Errorf("state: save %s: %w", ref, err)
	}

	m.emit(ctx, activity.BuildStateSavedEvent(m.eventInput(ref, saved, len(snapshot.Entries))))
	return saved, nil
}

func (m *Manager) check() error {
	if m == nil || m.store == nil {
		return fmt.Errorf("state: store is required")
	}
	return nil
}

func (m *Manager) eventInput(ref Ref, meta Meta, fields int) activity.SessionEventInput {
	id, _ := ref.Identifier()
	return activity.SessionEventInput{
		ActorID:    m.actorID,
		SessionID:  ref.Session,
		Model:      ref.Model,
		Ref:        id,
		SnapshotID: meta.SnapshotID,
		ETag:       meta.ETag,
		Fields:     fields,
		OccurredAt: meta.UpdatedAt,
	}
}

func (m *Manager) emit(ctx context.Context, event activity.Event) {
	emitter := activity.NewEmitter(m.hooks, activity.Config{
		Enabled: m.hooks.Enabled(),
		Channel: m.channel,
	})
	_ = emitter.Emit(ctx, event)
}

func validateSnapshot(ref Ref, snapshot Snapshot) error {
	if snapshot.Model != ref.Model {
		return fmt.Errorf("state: snapshot model %q does not match %s", snapshot.Model, ref)
	}
	seen := make(map[string]struct{}, len(snapshot.Entries))
	for _, entry := range snapshot.Entries {
		module, typeName, field, ok := session.ParseKey(entry.Key)
		if !ok {
			return fmt.Errorf("state: %q is not a session field key", entry.Key)
		}
		if module+"."+typeName != ref.Model || field != entry.Field {
			return fmt.Errorf("state: key %s does not belong to %s field %q", entry.Key, ref.Model, entry.Field)
		}
		if _, dup := seen[entry.Key]; dup {
			return fmt.Errorf("state: duplicate entry %s", entry.Key)
		}
		seen[entry.Key] = struct{}{}
	}
	return nil
}
