// Package sqlitestore persists session snapshots in SQLite.
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/goliatone/go-session-state/pkg/state"
	"github.com/goliatone/go-session-state/pkg/state/sqlitestore/migrations"
)

// Store implements state.Store over a session_snapshots table.
type Store struct {
	sqlDB *sql.DB
}

// Open opens a SQLite database at path and applies embedded migrations.
// Use ":memory:" for a private in-memory database.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlitestore: storage path is required")
	}
	dsn := path
	if path != ":memory:" {
		dsn = filepath.Clean(path)
	}
	dsn += "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: open: %w", err)
	}
	if path == ":memory:" {
		sqlDB.SetMaxOpenConns(1)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("sqlitestore: ping: %w", err)
	}
	if err := Migrate(sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Migrate applies all up migrations to db.
func Migrate(db *sql.DB) error {
	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("sqlitestore: migration source: %w", err)
	}
	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("sqlitestore: migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("sqlitestore: migrate: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("sqlitestore: run migrations: %w", err)
	}
	return nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("sqlitestore: storage is not configured")
	}
	return nil
}

// Load reads the snapshot stored for ref.
func (s *Store) Load(ctx context.Context, ref state.Ref) (state.Snapshot, state.Meta, bool, error) {
	if err := s.ready(ctx); err != nil {
		return state.Snapshot{}, state.Meta{}, false, err
	}
	id, err := ref.Identifier()
	if err != nil {
		return state.Snapshot{}, state.Meta{}, false, err
	}

	var (
		payload   string
		extra     string
		updatedAt int64
		meta      state.Meta
	)
	err = s.sqlDB.QueryRowContext(ctx,
		`SELECT payload, snapshot_id, etag, extra, updated_at FROM session_snapshots WHERE id = ?`,
		id,
	).Scan(&payload, &meta.SnapshotID, &meta.ETag, &extra, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return state.Snapshot{}, state.Meta{}, false, nil
	}
	if err != nil {
		return state.Snapshot{}, state.Meta{}, false, fmt.Errorf("sqlitestore: load %s: %w", id, err)
	}

	snapshot, err := state.DecodeSnapshot([]byte(payload))
	if err != nil {
		return state.Snapshot{}, state.Meta{}, false, err
	}
	if extra != "" && extra != "{}" {
		if err := json.Unmarshal([]byte(extra), &meta.Extra); err != nil {
			return state.Snapshot{}, state.Meta{}, false, fmt.Errorf("sqlitestore: decode extra for %s: %w", id, err)
		}
	}
	meta.UpdatedAt = fromMillis(updatedAt)
	return snapshot, meta, true, nil
}

// Save upserts the snapshot for ref.
func (s *Store) Save(ctx context.Context, ref state.Ref, snapshot state.Snapshot, meta state.Meta) (state.Meta, error) {
	if err := s.ready(ctx); err != nil {
		return state.Meta{}, err
	}
	id, err := ref.Identifier()
	if err != nil {
		return state.Meta{}, err
	}
	payload, err := snapshot.Encode()
	if err != nil {
		return state.Meta{}, fmt.Errorf("sqlitestore: encode %s: %w", id, err)
	}
	extra := []byte("{}")
	if len(meta.Extra) > 0 {
		if extra, err = json.Marshal(meta.Extra); err != nil {
			return state.Meta{}, fmt.Errorf("sqlitestore: encode extra for %s: %w", id, err)
		}
	}
	if meta.UpdatedAt.IsZero() {
		meta.UpdatedAt = time.Now()
	}
	meta.UpdatedAt = meta.UpdatedAt.UTC().Truncate(time.Millisecond)

	_, err = s.sqlDB.ExecContext(ctx,
		`INSERT INTO session_snapshots (id, session_id, model, payload, snapshot_id, etag, extra, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   payload = excluded.payload,
		   snapshot_id = excluded.snapshot_id,
		   etag = excluded.etag,
		   extra = excluded.extra,
		   updated_at = excluded.updated_at`,
		id, ref.Session, ref.Model, string(payload), meta.SnapshotID, meta.ETag, string(extra), toMillis(meta.UpdatedAt),
	)
	if err != nil {
		return state.Meta{}, fmt.Errorf("sqlitestore: save %s: %w", id, err)
	}
	return meta, nil
}

// List returns every stored ref ordered by identifier.
func (s *Store) List(ctx context.Context) ([]state.Ref, error) {
	return s.list(ctx, `SELECT session_id, model FROM session_snapshots ORDER BY id`)
}

// ListSession returns the refs stored for one session.
func (s *Store) ListSession(ctx context.Context, sessionID string) ([]state.Ref, error) {
	return s.list(ctx, `SELECT session_id, model FROM session_snapshots WHERE session_id = ? ORDER BY id`, sessionID)
}

func (s *Store) list(ctx context.Context, query string, args ...any) ([]state.Ref, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: list: %w", err)
	}
	defer rows.Close()

	var refs []state.Ref
	for rows.Next() {
		var ref state.Ref
		if err := rows.Scan(&ref.Session, &ref.Model); err != nil {
			return nil, fmt.Errorf("sqlitestore: scan: %w", err)
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlitestore: list: %w", err)
	}
	return refs, nil
}

// Delete removes the snapshot for ref. Missing rows are not an error.
func (s *Store) Delete(ctx context.Context, ref state.Ref) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	id, err := ref.Identifier()
	if err != nil {
		return err
	}
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM session_snapshots WHERE id = ?`, id); err != nil {
		return fmt.Errorf("sqlitestore: delete %s: %w", id, err)
	}
	return nil
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

var (
	_ state.Store  = (*Store)(nil)
	_ state.Lister = (*Store)(nil)
)
