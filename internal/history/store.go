// Package history keeps a local SQLite log of composed prompts, whether they
// were sent, and what came back.
package history

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/KaramelBytes/datavizard/internal/utils"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrNotFound is returned by Get for unknown ids.
var ErrNotFound = errors.New("run not found")

// Record is one pipeline run.
type Record struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Dataset   string    `json:"dataset"`
	Columns   []string  `json:"columns"`
	Notes     string    `json:"notes,omitempty"`
	Prompt    string    `json:"prompt"`
	Approved  bool      `json:"approved"`
	Provider  string    `json:"provider,omitempty"`
	Model     string    `json:"model,omitempty"`
	Response  string    `json:"response,omitempty"`
}

type Store struct {
	db  *sql.DB
	log *slog.Logger
}

// Open creates the database file if needed and applies pending migrations.
func Open(ctx context.Context, path string, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	path, err := utils.ExpandHome(path)
	if err != nil {
		return nil, err
	}
	if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}

	dbInstance, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create db instance: %w", err)
	}
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create source instance: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", dbInstance)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		_ = db.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	if v, dirty, err := m.Version(); err == nil {
		log.DebugContext(ctx, "history db ready", "path", path, "version", v, "dirty", dirty)
	}
	return &Store{db: db, log: log}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Save inserts r, assigning an ID and timestamp when they are zero.
func (s *Store) Save(ctx context.Context, r *Record) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	cols, err := json.Marshal(r.Columns)
	if err != nil {
		return fmt.Errorf("encode columns: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO runs
		(id, created_at, dataset, columns, notes, prompt, approved, provider, model, response)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID.String(), r.CreatedAt.UTC().Format(time.RFC3339Nano), r.Dataset, string(cols), r.Notes,
		r.Prompt, r.Approved, r.Provider, r.Model, r.Response)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// List returns the most recent runs first. limit <= 0 returns all.
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	q := selectRuns + " ORDER BY created_at DESC"
	args := []any{}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Get looks up a run by full id or by a unique id prefix.
func (s *Store) Get(ctx context.Context, id string) (Record, error) {
	rows, err := s.db.QueryContext(ctx, selectRuns+" WHERE id LIKE ? ORDER BY created_at DESC LIMIT 2", id+"%")
	if err != nil {
		return Record{}, fmt.Errorf("get run: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var found []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return Record{}, err
		}
		found = append(found, r)
	}
	if err := rows.Err(); err != nil {
		return Record{}, err
	}
	switch len(found) {
	case 0:
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	case 1:
		return found[0], nil
	}
	return Record{}, fmt.Errorf("id prefix %q is ambiguous", id)
}

const selectRuns = `SELECT id, created_at, dataset, columns, notes, prompt, approved, provider, model, response FROM runs`

type scanner interface{ Scan(dest ...any) error }

func scanRecord(sc scanner) (Record, error) {
	var (
		r               Record
		id, ts, columns string
	)
	if err := sc.Scan(&id, &ts, &r.Dataset, &columns, &r.Notes, &r.Prompt, &r.Approved, &r.Provider, &r.Model, &r.Response); err != nil {
		return Record{}, fmt.Errorf("scan run: %w", err)
	}
	var err error
	if r.ID, err = uuid.Parse(id); err != nil {
		return Record{}, fmt.Errorf("parse run id: %w", err)
	}
	if r.CreatedAt, err = time.Parse(time.RFC3339Nano, ts); err != nil {
		return Record{}, fmt.Errorf("parse run time: %w", err)
	}
	if err := json.Unmarshal([]byte(columns), &r.Columns); err != nil {
		return Record{}, fmt.Errorf("decode columns: %w", err)
	}
	return r, nil
}
