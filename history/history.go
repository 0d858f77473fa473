// Package history builds a queryable index over the coordination journal.
// The index is ephemeral: each Load scans the journal file into an
// in-memory SQLite database, so the coordinator's file-only write path
// stays untouched while CLI queries get real filtering and ordering.
package history

import (
	"bufio"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/GoCodeAlone/capstan/event"
)

const schema = `
CREATE TABLE IF NOT EXISTS events (
	seq          INTEGER PRIMARY KEY AUTOINCREMENT,
	id           TEXT NOT NULL,
	timestamp    DATETIME NOT NULL,
	source       TEXT NOT NULL,
	target       TEXT NOT NULL DEFAULT '',
	event_type   TEXT NOT NULL,
	task_id      TEXT NOT NULL DEFAULT '',
	priority     TEXT NOT NULL DEFAULT 'normal',
	payload      TEXT NOT NULL DEFAULT 'null',
	requires_ack INTEGER NOT NULL DEFAULT 0
);
`

// Index is a read-only view over one journal file. seq preserves append
// order, which is authoritative even when sender clocks disagree.
type Index struct {
	db *sql.DB
}

// Load scans the journal at path into a fresh in-memory index. A missing
// journal yields an empty index, and unparsable lines are skipped with
// the same tolerance the coordinator applies to mailboxes. The caller is
// responsible for calling Close.
func Load(path string) (*Index, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	db.SetMaxOpenConns(1) // prevent SQLITE_BUSY
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	ix := &Index{db: db}
	if err := ix.scan(path); err != nil {
		db.Close()
		return nil, err
	}
	return ix, nil
}

// Close releases the in-memory database.
func (ix *Index) Close() error { return ix.db.Close() }

func (ix *Index) scan(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open journal: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		ev := event.Parse(sc.Text())
		if ev == nil {
			continue
		}
		if err := ix.insert(ev); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read journal: %w", err)
	}
	return nil
}

func (ix *Index) insert(ev *event.Event) error {
	payload, _ := json.Marshal(ev.Payload)
	_, err := ix.db.Exec(`
		INSERT INTO events
			(id, timestamp, source, target, event_type, task_id, priority, payload, requires_ack)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		ev.ID, ev.Timestamp, ev.Source, ev.Target, string(ev.Type),
		ev.TaskID, ev.Priority, string(payload), ev.RequiresAck,
	)
	if err != nil {
		return fmt.Errorf("index event %s: %w", ev.ID, err)
	}
	return nil
}

// Filter narrows an Events query. Zero-valued fields match everything.
type Filter struct {
	Source string
	Target string
	Type   event.Type
	TaskID string
	Since  time.Time
	Limit  int
}

// Events returns journal events matching the filter, oldest first.
func (ix *Index) Events(f Filter) ([]*event.Event, error) {
	q := strings.Builder{}
	q.WriteString("SELECT id, timestamp, source, target, event_type, task_id, priority, payload, requires_ack FROM events WHERE 1=1")
	args := []any{}

	if f.Source != "" {
		q.WriteString(" AND source=?")
		args = append(args, f.Source)
	}
	if f.Target != "" {
		q.WriteString(" AND target=?")
		args = append(args, f.Target)
	}
	if f.Type != "" {
		q.WriteString(" AND event_type=?")
		args = append(args, string(f.Type))
	}
	if f.TaskID != "" {
		q.WriteString(" AND task_id=?")
		args = append(args, f.TaskID)
	}
	if !f.Since.IsZero() {
		q.WriteString(" AND timestamp>=?")
		args = append(args, f.Since)
	}
	q.WriteString(" ORDER BY seq ASC")
	if f.Limit > 0 {
		q.WriteString(fmt.Sprintf(" LIMIT %d", f.Limit))
	}

	rows, err := ix.db.Query(q.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var evs []*event.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		evs = append(evs, ev)
	}
	return evs, rows.Err()
}

// Tail returns the most recent n events in chronological order.
func (ix *Index) Tail(n int) ([]*event.Event, error) {
	rows, err := ix.db.Query(`
		SELECT id, timestamp, source, target, event_type, task_id, priority, payload, requires_ack
		FROM events ORDER BY seq DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("query tail: %w", err)
	}
	defer rows.Close()

	var evs []*event.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		evs = append(evs, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Reverse to chronological order
	for l, r := 0, len(evs)-1; l < r; l, r = l+1, r-1 {
		evs[l], evs[r] = evs[r], evs[l]
	}
	return evs, nil
}

// Count returns the number of indexed events.
func (ix *Index) Count() (int, error) {
	var n int
	if err := ix.db.QueryRow("SELECT COUNT(*) FROM events").Scan(&n); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

// CountByType returns per-type event totals.
func (ix *Index) CountByType() (map[event.Type]int, error) {
	rows, err := ix.db.Query("SELECT event_type, COUNT(*) FROM events GROUP BY event_type")
	if err != nil {
		return nil, fmt.Errorf("count by type: %w", err)
	}
	defer rows.Close()

	counts := make(map[event.Type]int)
	for rows.Next() {
		var typ string
		var n int
		if err := rows.Scan(&typ, &n); err != nil {
			return nil, err
		}
		counts[event.Type(typ)] = n
	}
	return counts, rows.Err()
}

// scanner abstracts sql.Row and sql.Rows for scanEvent.
type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(s scanner) (*event.Event, error) {
	var ev event.Event
	var typ, payloadJSON string

	err := s.Scan(
		&ev.ID, &ev.Timestamp, &ev.Source, &ev.Target, &typ,
		&ev.TaskID, &ev.Priority, &payloadJSON, &ev.RequiresAck,
	)
	if err != nil {
		return nil, err
	}

	ev.Type = event.Type(typ)
	_ = json.Unmarshal([]byte(payloadJSON), &ev.Payload)
	return &ev, nil
}
