package state

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrETagMismatch = errors.New("state: etag mismatch")
	ErrInvalidRef   = errors.New("state: invalid ref")
	ErrNotFound     = errors.New("state: snapshot not found")
)

// Ref identifies one persisted snapshot: one model within one session.
type Ref struct {
	Session string
	Model   string
}

// Meta is storage-owned metadata used for audit and concurrency control.
type Meta struct {
	SnapshotID string            `json:"snapshot_id,omitempty"`
	ETag       string            `json:"etag,omitempty"`
	UpdatedAt  time.Time         `json:"updated_at,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// Store loads/saves one snapshot for a single ref.
type Store interface {
	Load(ctx context.Context, ref Ref) (snapshot Snapshot, meta Meta, ok bool, err error)
	Save(ctx context.Context, ref Ref, snapshot Snapshot, meta Meta) (Meta, error)
}

// Lister is implemented by stores that can enumerate persisted refs.
type Lister interface {
	List(ctx context.Context) ([]Ref, error)
}

// Identifier returns the canonical storage key for the ref.
func (r Ref) Identifier() (string, error) {
	if err := r.validate(); err != nil {
		return "", err
	}
	return fmt.Sprintf("session/%s/%s", r.Session, r.Model), nil
}

// String renders the identifier, or a placeholder for invalid refs.
func (r Ref) String() string {
	id, err := r.Identifier()
	if err != nil {
		return fmt.Sprintf("session/%q/%q", r.Session, r.Model)
	}
	return id
}

func (r Ref) validate() error {
	if strings.TrimSpace(r.Session) == "" {
		return fmt.Errorf("%w: session id is required", ErrInvalidRef)
	}
	if strings.Contains(r.Session, "/") {
		return fmt.Errorf("%w: session id %q contains '/'", ErrInvalidRef, r.Session)
	}
	if strings.TrimSpace(r.Model) == "" {
		return fmt.Errorf("%w: model is required", ErrInvalidRef)
	}
	return nil
}

// ParseIdentifier is the inverse of Ref.Identifier. The model segment may
// itself contain '/' (package paths); the session id may not.
func ParseIdentifier(id string) (Ref, error) {
	parts := strings.SplitN(id, "/", 3)
	if len(parts) != 3 || parts[0] != "session" {
		return Ref{}, fmt.Errorf("%w: malformed identifier %q", ErrInvalidRef, id)
	}
	ref := Ref{Session: parts[1], Model: parts[2]}
	if err := ref.validate(); err != nil {
		return Ref{}, err
	}
	return ref, nil
}

func mergeMeta(base, override Meta) Meta {
	out := base
	if override.SnapshotID != "" {
		out.SnapshotID = override.SnapshotID
	}
	if override.ETag != "" {
		out.ETag = override.ETag
	}
	if !override.UpdatedAt.IsZero() {
		out.UpdatedAt = override.UpdatedAt
	}
	if override.Extra != nil {
		out.Extra = override.Extra
	}
	return out
}

func cloneMeta(meta Meta) Meta {
	out := meta
	if meta.Extra == nil {
		return out
	}
	out.Extra = make(map[string]string, len(meta.Extra))
	for k, v := range meta.Extra {
		out.Extra[k] = v
	}
	return out
}
