package state_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	session "github.com/goliatone/go-session-state"
	"github.com/goliatone/go-session-state/pkg/activity"
	"github.com/goliatone/go-session-state/pkg/state"
)

func bindProfile(t *testing.T, store session.Store) *session.Model {
	t.Helper()
	m, err := session.Bind(session.Declare("app", "Profile",
		session.Field("name", session.Annotate[string]()).Default("anon"),
		session.Field("age", session.Deferred("int | Unset")),
		session.Field("visits", session.Annotate[int]()).Default(0),
	), session.WithStore(store), session.WithSuppressDiagnostics(true))
	require.NoError(t, err)
	return m
}

func fixedManager(store state.Store, opts ...state.ManagerOption) *state.Manager {
	ids := 0
	base := []state.ManagerOption{
		state.WithClock(func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }),
		state.WithIDGenerator(func() string {
			ids++
			return "snap-" + string(rune('0'+ids))
		}),
	}
	return state.NewManager(store, append(base, opts...)...)
}

func TestRefIdentifier(t *testing.T) {
	id, err := state.Ref{Session: "s1", Model: "app.Profile"}.Identifier()
	require.NoError(t, err)
	require.Equal(t, "session/s1/app.Profile", id)

	ref, err := state.ParseIdentifier("session/s1/example.com/app.Profile")
	require.NoError(t, err)
	require.Equal(t, state.Ref{Session: "s1", Model: "example.com/app.Profile"}, ref)

	for _, bad := range []state.Ref{{Model: "app.Profile"}, {Session: "s1"}, {Session: "a/b", Model: "app.Profile"}} {
		_, err := bad.Identifier()
		require.ErrorIs(t, err, state.ErrInvalidRef)
	}
	_, err = state.ParseIdentifier("user/s1/app.Profile")
	require.ErrorIs(t, err, state.ErrInvalidRef)
}

func TestCaptureSkipsAbsentAndMarksUnset(t *testing.T) {
	store := session.NewMapStore()
	m := bindProfile(t, store)
	require.NoError(t, m.Set("name", "ana"))
	require.NoError(t, m.Set("age", session.Unset))
	store.Set("unrelated", 1)

	snapshot := state.Capture(m)
	require.Equal(t, "app.Profile", snapshot.Model)
	require.Equal(t, []state.Entry{
		{Key: "__app.Profile.name__", Field: "name", Value: "ana"},
		{Key: "__app.Profile.age__", Field: "age", Unset: true},
	}, snapshot.Entries)
}

func TestManagerSaveRestoreRoundTrip(t *testing.T) {
	backend := state.NewMemoryStore()
	manager := fixedManager(backend)
	ctx := context.Background()

	source := bindProfile(t, session.NewMapStore())
	require.NoError(t, source.Set("name", "ana"))
	require.NoError(t, source.Set("age", 41))
	require.NoError(t, source.Set("visits", session.Unset))

	meta, err := manager.Save(ctx, "s1", source, state.Meta{})
	require.NoError(t, err)
	require.Equal(t, "snap-1", meta.SnapshotID)
	require.NotEmpty(t, meta.ETag)
	require.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), meta.UpdatedAt)

	targetStore := session.NewMapStore()
	target := bindProfile(t, targetStore)
	targetStore.Set("__app.Profile.name__", "stale")

	restored, ok, err := manager.Restore(ctx, "s1", target)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, meta, restored)

	name, err := target.Get("name")
	require.NoError(t, err)
	require.Equal(t, "ana", name)
	age, err := target.Get("age")
	require.NoError(t, err)
	require.Equal(t, 41, age)
	visits, err := target.Get("visits")
	require.NoError(t, err)
	require.True(t, session.IsUnset(visits))
}

func TestManagerRestoreMissing(t *testing.T) {
	store := session.NewMapStore()
	m := bindProfile(t, store)
	require.NoError(t, m.Set("name", "kept"))

	_, ok, err := fixedManager(state.NewMemoryStore()).Restore(context.Background(), "s1", m)
	require.NoError(t, err)
	require.False(t, ok)
	name, _ := m.Get("name")
	require.Equal(t, "kept", name)
}

func TestRestoreConvertsDecodedValues(t *testing.T) {
	snapshot, err := state.DecodeSnapshot([]byte(`{"model":"app.Profile","entries":[{"key":"__app.Profile.age__","field":"age","value":7}]}`))
	require.NoError(t, err)

	m := bindProfile(t, session.NewMapStore())
	require.NoError(t, state.Apply(snapshot, m))
	age, err := m.Get("age")
	require.NoError(t, err)
	require.Equal(t, 7, age)
}

func TestApplyRejectsForeignSnapshot(t *testing.T) {
	store := session.NewMapStore()
	m := bindProfile(t, store)
	require.NoError(t, m.Set("name", "ana"))

	err := state.Apply(state.Snapshot{Model: "app.Other"}, m)
	require.Error(t, err)

	err = state.Apply(state.Snapshot{Model: "app.Profile", Entries: []state.Entry{
		{Key: "__app.Profile.name__", Field: "name", Value: "bo"},
		{Key: "__app.Profile.missing__", Field: "missing", Value: 1},
	}}, m)
	require.ErrorIs(t, err, session.ErrNotSessionField)

	name, _ := m.Get("name")
	require.Equal(t, "ana", name)
}

func TestManagerMutateETag(t *testing.T) {
	backend := state.NewMemoryStore()
	manager := fixedManager(backend)
	ctx := context.Background()
	ref := state.Ref{Session: "s1", Model: "app.Profile"}

	first, err := manager.Mutate(ctx, ref, state.Meta{}, func(s *state.Snapshot) error {
		s.Entries = append(s.Entries, state.Entry{Key: "__app.Profile.name__", Field: "name", Value: "ana"})
		return nil
	})
	require.NoError(t, err)

	_, err = manager.Mutate(ctx, ref, state.Meta{ETag: "stale"}, func(s *state.Snapshot) error {
		s.Entries = nil
		return nil
	})
	require.ErrorIs(t, err, state.ErrETagMismatch)

	second, err := manager.Mutate(ctx, ref, state.Meta{ETag: first.ETag}, func(s *state.Snapshot) error {
		s.Entries[0].Value = "bo"
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, "snap-2", second.SnapshotID)
	require.NotEqual(t, first.ETag, second.ETag)

	snapshot, _, err := manager.Load(ctx, ref)
	require.NoError(t, err)
	require.Equal(t, "bo", snapshot.Values()["name"])
}

func TestManagerMutateExpectedETagNeedsStoredETag(t *testing.T) {
	backend := state.NewMemoryStore()
	manager := fixedManager(backend)
	ctx := context.Background()
	ref := state.Ref{Session: "s1", Model: "app.Profile"}

	_, err := manager.Mutate(ctx, ref, state.Meta{ETag: "abc"}, func(s *state.Snapshot) error { return nil })
	require.ErrorIs(t, err, state.ErrETagMismatch)

	snapshot := state.Snapshot{Model: "app.Profile", Entries: []state.Entry{{Key: "__app.Profile.name__", Field: "name", Value: "ana"}}}
	_, err = backend.Save(ctx, ref, snapshot, state.Meta{SnapshotID: "legacy"})
	require.NoError(t, err)

	_, err = manager.Mutate(ctx, ref, state.Meta{ETag: "abc"}, func(s *state.Snapshot) error {
		s.Entries = nil
		return nil
	})
	require.ErrorIs(t, err, state.ErrETagMismatch)

	loaded, meta, err := manager.Load(ctx, ref)
	require.NoError(t, err)
	require.Equal(t, "legacy", meta.SnapshotID)
	require.Len(t, loaded.Entries, 1)

	_, err = manager.Mutate(ctx, ref, state.Meta{}, func(s *state.Snapshot) error { return nil })
	require.NoError(t, err)
}

func TestManagerMutateRejectsForeignKeys(t *testing.T) {
	manager := fixedManager(state.NewMemoryStore())
	ref := state.Ref{Session: "s1", Model: "app.Profile"}

	_, err := manager.Mutate(context.Background(), ref, state.Meta{}, func(s *state.Snapshot) error {
		s.Entries = append(s.Entries, state.Entry{Key: "__app.Other.name__", Field: "name"})
		return nil
	})
	require.Error(t, err)

	boom := errors.New("boom")
	_, err = manager.Mutate(context.Background(), ref, state.Meta{}, func(*state.Snapshot) error { return boom })
	require.ErrorIs(t, err, boom)

	_, _, err = manager.Load(context.Background(), ref)
	require.ErrorIs(t, err, state.ErrNotFound)
}

func TestManagerEmitsActivity(t *testing.T) {
	capture := &activity.CaptureHook{}
	manager := fixedManager(state.NewMemoryStore(), state.WithActivityHooks(activity.Hooks{capture}), state.WithActor("u1"))
	m := bindProfile(t, session.NewMapStore())
	require.NoError(t, m.Set("name", "ana"))

	_, err := manager.Save(context.Background(), "s1", m, state.Meta{})
	require.NoError(t, err)
	_, _, err = manager.Restore(context.Background(), "s1", m)
	require.NoError(t, err)

	require.Equal(t, []string{activity.VerbStateSaved, activity.VerbStateRestored}, capture.Verbs())
	saved := capture.Events[0]
	require.Equal(t, "session/s1/app.Profile", saved.ObjectID)
	require.Equal(t, "s1", saved.SessionID)
	require.Equal(t, "u1", saved.ActorID)
	require.Equal(t, activity.DefaultChannel, saved.Channel)
	require.Equal(t, "snap-1", saved.Metadata["snapshot_id"])
}

func TestMemoryStoreListAndIsolation(t *testing.T) {
	store := state.NewMemoryStore()
	ctx := context.Background()
	b := state.Ref{Session: "b", Model: "app.Profile"}
	a := state.Ref{Session: "a", Model: "app.Profile"}

	snapshot := state.Snapshot{Model: "app.Profile", Entries: []state.Entry{{Key: "__app.Profile.name__", Field: "name", Value: "x"}}}
	_, err := store.Save(ctx, b, snapshot, state.Meta{Extra: map[string]string{"k": "v"}})
	require.NoError(t, err)
	_, err = store.Save(ctx, a, snapshot, state.Meta{})
	require.NoError(t, err)

	snapshot.Entries[0].Value = "mutated"
	loaded, meta, ok, err := store.Load(ctx, b)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "x", loaded.Entries[0].Value)
	meta.Extra["k"] = "changed"
	_, again, _, _ := store.Load(ctx, b)
	require.Equal(t, "v", again.Extra["k"])

	refs, err := store.List(ctx)
	require.NoError(t, err)
	require.Equal(t, []state.Ref{a, b}, refs)
}

func TestMemoryStoreCopiesContainerValues(t *testing.T) {
	store := state.NewMemoryStore()
	ctx := context.Background()
	ref := state.Ref{Session: "s", Model: "app.Profile"}

	tags := []any{"a", "b"}
	snapshot := state.Snapshot{Model: "app.Profile", Entries: []state.Entry{{Key: "__app.Profile.tags__", Field: "tags", Value: tags}}}
	_, err := store.Save(ctx, ref, snapshot, state.Meta{})
	require.NoError(t, err)

	tags[0] = "mutated"
	loaded, _, ok, err := store.Load(ctx, ref)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []any{"a", "b"}, loaded.Entries[0].Value)
}
