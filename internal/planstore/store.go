// Copyright Contributors to the SeaClaw Platform project

// Package planstore keeps the operator-facing development plan in a small
// SQLite database. The table is created and seeded idempotently on startup;
// the API only ever mutates status and notes.
package planstore

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

var (
	// ErrNotFound reports an unknown task_id.
	ErrNotFound = errors.New("plan task not found")
	// ErrInvalidStatus reports a status outside the allowed set.
	ErrInvalidStatus = errors.New("invalid status")
)

// Statuses a plan task may take.
var validStatuses = map[string]bool{
	"todo":        true,
	"in_progress": true,
	"done":        true,
	"blocked":     true,
}

// ValidStatus reports whether s is an allowed task status.
func ValidStatus(s string) bool { return validStatuses[s] }

const schema = `
CREATE TABLE IF NOT EXISTS platform_tasks (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    phase       TEXT NOT NULL,
    task_id     TEXT NOT NULL UNIQUE,
    sprint      INTEGER NOT NULL,
    title       TEXT NOT NULL,
    effort      TEXT CHECK(effort IN ('S','M','H')),
    status      TEXT DEFAULT 'todo' CHECK(status IN ('todo','in_progress','done','blocked')),
    files       TEXT,
    notes       TEXT,
    created_at  DATETIME DEFAULT (datetime('now')),
    updated_at  DATETIME DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_phase   ON platform_tasks(phase);
CREATE INDEX IF NOT EXISTS idx_sprint  ON platform_tasks(sprint);
CREATE INDEX IF NOT EXISTS idx_status  ON platform_tasks(status);
`

// Task is one development-plan row.
type Task struct {
	ID        int64  `db:"id" json:"id"`
	Phase     string `db:"phase" json:"phase"`
	TaskID    string `db:"task_id" json:"task_id"`
	Sprint    int    `db:"sprint" json:"sprint"`
	Title     string `db:"title" json:"title"`
	Effort    string `db:"effort" json:"effort"`
	Status    string `db:"status" json:"status"`
	Files     string `db:"files" json:"files,omitempty"`
	Notes     string `db:"notes" json:"notes,omitempty"`
	CreatedAt string `db:"created_at" json:"created_at"`
	UpdatedAt string `db:"updated_at" json:"updated_at"`
}

// Filter narrows List. Zero values mean "no constraint"; Sprint is a
// pointer because sprint 0 would otherwise be indistinguishable from unset.
type Filter struct {
	Phase  string
	Sprint *int
	Status string
}

// Store wraps the plan database. Safe for concurrent use; the pool is
// capped at one connection since SQLite serializes writers anyway.
type Store struct {
	db *sqlx.DB
}

// Open creates the database file if needed, applies the schema, and seeds
// the static task list. Seeding is idempotent: rows whose task_id already
// exists are left untouched, so operator edits survive restarts.
func Open(path string) (*Store, error) {
	db, err := sqlx.Connect("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening plan store: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying plan store schema: %w", err)
	}

	if err := seed(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("seeding plan store: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// List returns tasks matching the filter, ordered by (phase, task_id).
func (s *Store) List(f Filter) ([]Task, error) {
	query := `SELECT id, phase, task_id, sprint, title,
	       COALESCE(effort, '') AS effort, status,
	       COALESCE(files, '') AS files, COALESCE(notes, '') AS notes,
	       created_at, updated_at
	  FROM platform_tasks`

	var conds []string
	var args []any
	if f.Phase != "" {
		conds = append(conds, "phase = ?")
		args = append(args, f.Phase)
	}
	if f.Sprint != nil {
		conds = append(conds, "sprint = ?")
		args = append(args, *f.Sprint)
	}
	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, f.Status)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY phase, task_id"

	tasks := []Task{}
	if err := s.db.Select(&tasks, query, args...); err != nil {
		return nil, fmt.Errorf("listing plan tasks: %w", err)
	}
	return tasks, nil
}

// UpdateTask mutates status and/or notes of the task with the given
// task_id. Every other column is immutable through this API. updated_at is
// touched on success.
func (s *Store) UpdateTask(taskID string, status, notes *string) error {
	var sets []string
	var args []any
	if status != nil {
		if !validStatuses[*status] {
			return fmt.Errorf("%w: %q", ErrInvalidStatus, *status)
		}
		sets = append(sets, "status = ?")
		args = append(args, *status)
	}
	if notes != nil {
		sets = append(sets, "notes = ?")
		args = append(args, *notes)
	}
	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, "updated_at = datetime('now')")
	args = append(args, taskID)

	res, err := s.db.Exec(
		"UPDATE platform_tasks SET "+strings.Join(sets, ", ")+" WHERE task_id = ?",
		args...,
	)
	if err != nil {
		return fmt.Errorf("updating plan task %s: %w", taskID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating plan task %s: %w", taskID, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
