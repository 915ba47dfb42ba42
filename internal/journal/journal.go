// Package journal keeps an append-only SQLite record of every edit batch
// the tool dispatched: when it ran, which operation produced it, and a
// line per action. It wraps any dispatcher as a decorator and never
// influences what the engine does to the document.
package journal

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/beevik/etree"
	_ "modernc.org/sqlite"

	"github.com/gridmesh/scledit/api"
)

const schema = `
CREATE TABLE IF NOT EXISTS batches (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	applied_at TEXT NOT NULL,
	operation  TEXT NOT NULL,
	actions    INTEGER NOT NULL,
	summary    TEXT NOT NULL
);
`

// Journal is an open batch journal.
type Journal struct {
	db *sql.DB
}

// Entry is one recorded batch.
type Entry struct {
	ID        int64
	AppliedAt time.Time
	Operation string
	Actions   int
	Summary   string
}

// Open opens (creating if needed) the journal database at path.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close() // best-effort cleanup
		return nil, fmt.Errorf("init journal schema: %w", err)
	}
	return &Journal{db: db}, nil
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Record appends one batch to the journal.
func (j *Journal) Record(operation string, batch api.Batch) error {
	_, err := j.db.Exec(
		"INSERT INTO batches (applied_at, operation, actions, summary) VALUES (?, ?, ?, ?)",
		time.Now().UTC().Format(time.RFC3339),
		operation,
		len(batch),
		Summarize(batch),
	)
	if err != nil {
		return fmt.Errorf("record batch: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (j *Journal) Recent(limit int) ([]Entry, error) {
	rows, err := j.db.Query(
		"SELECT id, applied_at, operation, actions, summary FROM batches ORDER BY id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer func() { _ = rows.Close() }() // best-effort

	var entries []Entry
	for rows.Next() {
		var e Entry
		var at string
		if err := rows.Scan(&e.ID, &at, &e.Operation, &e.Actions, &e.Summary); err != nil {
			return nil, fmt.Errorf("scan journal row: %w", err)
		}
		e.AppliedAt, _ = time.Parse(time.RFC3339, at)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Wrap returns a dispatcher that forwards to next and records the batch
// under the given operation label once next succeeds.
func (j *Journal) Wrap(operation string, next api.Dispatcher) api.Dispatcher {
	return api.DispatcherFunc(func(batch api.Batch) error {
		if err := next.Dispatch(batch); err != nil {
			return err
		}
		return j.Record(operation, batch)
	})
}

// Summarize renders a one-line-per-action description of a batch.
func Summarize(batch api.Batch) string {
	lines := make([]string, 0, len(batch))
	for _, action := range batch {
		switch a := action.(type) {
		case api.Remove:
			lines = append(lines, "remove "+describe(a.Node))
		case api.Insert:
			lines = append(lines, "insert "+describe(a.Node)+" under "+describe(a.Parent))
		}
	}
	return strings.Join(lines, "\n")
}

// describe renders an element as tag plus its most identifying attribute.
func describe(el *etree.Element) string {
	if el == nil {
		return "?"
	}
	for _, key := range []string{"name", "inst", "id"} {
		if v := el.SelectAttrValue(key, ""); v != "" {
			return fmt.Sprintf("%s[%s=%s]", el.Tag, key, v)
		}
	}
	return el.Tag
}
