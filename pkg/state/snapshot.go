package state

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	session "github.com/goliatone/go-session-state"
	"github.com/goliatone/go-session-state/internal/clone"
	"github.com/goliatone/go-session-state/internal/hydrate"
)

// Entry is one persisted field. Unset marks a key that held the sentinel;
// keys absent from the store are not captured at all.
type Entry struct {
	Key   string `json:"key" dynamodbav:"key"`
	Field string `json:"field" dynamodbav:"field"`
	Value any    `json:"value,omitempty" dynamodbav:"value,omitempty"`
	Unset bool   `json:"unset,omitempty" dynamodbav:"unset,omitempty"`
}

// Snapshot holds the stored fields of one model.
type Snapshot struct {
	Model   string  `json:"model" dynamodbav:"model"`
	Entries []Entry `json:"entries" dynamodbav:"entries"`
}

// Capture reads every field key of m from its store, in declaration order.
func Capture(m *session.Model) Snapshot {
	snapshot := Snapshot{Model: m.ID()}
	view := m.State()
	for _, acc := range m.Accessors() {
		value, ok := view.Get(acc.Key())
		if !ok {
			continue
		}
		entry := Entry{Key: acc.Key(), Field: acc.Name()}
		if session.IsUnset(value) {
			entry.Unset = true
		} else {
			entry.Value = value
		}
		snapshot.Entries = append(snapshot.Entries, entry)
	}
	return snapshot
}

// Apply replaces the field keys of m with the snapshot's entries. Fields
// without an entry are deleted from the store. Values are converted to the
// field's annotated type; nothing is written when any entry fails.
func Apply(snapshot Snapshot, m *session.Model) error {
	if snapshot.Model != m.ID() {
		return fmt.Errorf("state: snapshot for %q applied to %q", snapshot.Model, m.ID())
	}

	type write struct {
		acc   session.Accessor
		value any
	}
	writes := make([]write, 0, len(snapshot.Entries))
	for _, entry := range snapshot.Entries {
		acc, err := m.Accessor(entry.Field)
		if err != nil {
			return fmt.Errorf("state: restore %s: %w", entry.Key, err)
		}
		if acc.Key() != entry.Key {
			return fmt.Errorf("state: restore %s: field %q is keyed %s", entry.Key, entry.Field, acc.Key())
		}
		if entry.Unset {
			writes = append(writes, write{acc: acc, value: session.Unset})
			continue
		}
		value, err := hydrate.Coerce(entry.Value, acc.Annotation().ReflectType())
		if err != nil {
			return fmt.Errorf("state: restore %s: %w", entry.Key, err)
		}
		writes = append(writes, write{acc: acc, value: value})
	}

	if err := m.Reset(); err != nil {
		return err
	}
	for _, w := range writes {
		w.acc.Write(w.value)
	}
	return nil
}

// Values maps field names to stored values, with Unset for sentinel entries.
func (s Snapshot) Values() map[string]any {
	out := make(map[string]any, len(s.Entries))
	for _, entry := range s.Entries {
		if entry.Unset {
			out[entry.Field] = session.Unset
			continue
		}
		out[entry.Field] = entry.Value
	}
	return out
}

// Entry returns the entry for field.
func (s Snapshot) Entry(field string) (Entry, bool) {
	for _, entry := range s.Entries {
		if entry.Field == field {
			return entry, true
		}
	}
	return Entry{}, false
}

// Encode renders the snapshot as JSON.
func (s Snapshot) Encode() ([]byte, error) {
	return json.Marshal(s)
}

// DecodeSnapshot parses JSON produced by Snapshot.Encode.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return Snapshot{}, fmt.Errorf("state: decode snapshot: %w", err)
	}
	return snapshot, nil
}

// ETag derives a content hash; equal snapshots share an etag.
func (s Snapshot) ETag() (string, error) {
	payload, err := s.Encode()
	if err != nil {
		return "", fmt.Errorf("state: encode snapshot: %w", err)
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:8]), nil
}

func cloneSnapshot(s Snapshot) Snapshot {
	out := Snapshot{Model: s.Model}
	if s.Entries != nil {
		out.Entries = make([]Entry, len(s.Entries))
		for i, entry := range s.Entries {
			entry.Value = clone.Value(entry.Value)
			out.Entries[i] = entry
		}
	}
	return out
}
