// Package journal persists federation diagnostics to SQLite. It records
// every lifecycle event and shared-scope decision so operators can
// answer "which remote loaded what, and why was that registration
// discarded" after the fact.
package journal

import (
	"database/sql"
	"time"

	_ "modernc.org/sqlite"

	"github.com/martellcode/federa"
)

// Journal implements federa.EventSink using modernc.org/sqlite (pure Go).
type Journal struct {
	db *sql.DB
}

// Open opens or creates a journal database at the given path and
// ensures the schema exists.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// Enable WAL mode for concurrent reads.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	j := &Journal{db: db}
	if err := j.init(); err != nil {
		db.Close()
		return nil, err
	}
	return j, nil
}

// init creates the schema tables.
func (j *Journal) init() error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		id        INTEGER PRIMARY KEY AUTOINCREMENT,
		event_id  TEXT NOT NULL DEFAULT '',
		type      TEXT NOT NULL,
		container TEXT NOT NULL DEFAULT '',
		scope     TEXT NOT NULL DEFAULT '',
		path      TEXT NOT NULL DEFAULT '',
		dep       TEXT NOT NULL DEFAULT '',
		version   TEXT NOT NULL DEFAULT '',
		error     TEXT NOT NULL DEFAULT '',
		timestamp DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_events_container ON events(container);
	CREATE INDEX IF NOT EXISTS idx_events_type ON events(type);
	CREATE INDEX IF NOT EXISTS idx_events_timestamp ON events(timestamp);
	`
	_, err := j.db.Exec(schema)
	return err
}

// Close closes the database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Append records a federation event.
func (j *Journal) Append(e federa.Event) error {
	_, err := j.db.Exec(
		`INSERT INTO events (event_id, type, container, scope, path, dep, version, error, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, string(e.Type), e.Container, e.Scope, e.Path, e.Dep, e.Version, e.Error, e.Timestamp,
	)
	return err
}

// Recent returns the most recent n events, newest first.
func (j *Journal) Recent(n int) ([]federa.Event, error) {
	rows, err := j.db.Query(
		`SELECT event_id, type, container, scope, path, dep, version, error, timestamp
		 FROM events ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEvents(rows)
}

// ByContainer returns all events for a container, oldest first.
func (j *Journal) ByContainer(name string) ([]federa.Event, error) {
	rows, err := j.db.Query(
		`SELECT event_id, type, container, scope, path, dep, version, error, timestamp
		 FROM events WHERE container = ? ORDER BY id ASC`, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEvents(rows)
}

// ByDep returns all shared-scope events for a dependency, oldest first.
func (j *Journal) ByDep(name string) ([]federa.Event, error) {
	rows, err := j.db.Query(
		`SELECT event_id, type, container, scope, path, dep, version, error, timestamp
		 FROM events WHERE dep = ? ORDER BY id ASC`, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]federa.Event, error) {
	var events []federa.Event
	for rows.Next() {
		var e federa.Event
		var typ string
		var ts time.Time
		if err := rows.Scan(&e.ID, &typ, &e.Container, &e.Scope, &e.Path, &e.Dep, &e.Version, &e.Error, &ts); err != nil {
			return nil, err
		}
		e.Type = federa.EventType(typ)
		e.Timestamp = ts
		events = append(events, e)
	}
	return events, rows.Err()
}
