// Package journal persists object lifecycle events to a sqlite database so
// runs can be examined after the process exits.
//
// Each Journal opened on a database starts a new session. Events are stored
// as canonical CBOR alongside their kind and object ID for querying.
package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/chazu/mixin/vm"
	"github.com/chazu/mixin/vm/wire"
	"github.com/google/uuid"
	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"
)

// ErrClosed is returned by operations on a closed Journal.
var ErrClosed = errors.New("journal closed")

// ErrSessionNotFound is returned by Events for an unknown session ID.
var ErrSessionNotFound = errors.New("session not found")

// ErrReadOnly is recorded by Trace on a Journal opened with OpenReadOnly.
var ErrReadOnly = errors.New("journal opened read-only")

var log = sync.OnceValue(func() commonlog.Logger {
	return commonlog.GetLogger("mixin.journal")
})

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id      TEXT PRIMARY KEY,
	started INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS events (
	seq     INTEGER PRIMARY KEY AUTOINCREMENT,
	session TEXT NOT NULL REFERENCES sessions(id),
	kind    TEXT NOT NULL,
	object  INTEGER NOT NULL,
	payload BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS events_session ON events(session, seq);
`

// Journal is a vm.Tracer that records every event it receives under the
// current session. It is safe for concurrent use.
type Journal struct {
	mu       sync.Mutex
	db       *sql.DB
	path     string
	session  string
	readOnly bool
	closed   bool
	err      error
}

// SessionInfo summarizes one recorded session.
type SessionInfo struct {
	ID      string
	Started time.Time
	Events  int
}

// Open opens or creates the journal database at path and starts a new
// session.
func Open(path string) (*Journal, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating journal dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}

	j := &Journal{db: db, path: path, session: uuid.NewString()}
	if _, err := db.Exec(
		"INSERT INTO sessions (id, started) VALUES (?, ?)",
		j.session, time.Now().UnixNano(),
	); err != nil {
		db.Close()
		return nil, fmt.Errorf("starting session: %w", err)
	}

	log().Debugf("journal %s: session %s", path, j.session)
	return j, nil
}

// OpenReadOnly opens an existing journal database for reading. It does not
// start a session, so Session returns "" and Trace records ErrReadOnly.
func OpenReadOnly(path string) (*Journal, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}

	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	var tables int
	err = db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('sessions', 'events')",
	).Scan(&tables)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("reading schema: %w", err)
	}
	if tables != 2 {
		db.Close()
		return nil, fmt.Errorf("%s is not a journal", path)
	}

	log().Debugf("journal %s: opened read-only", path)
	return &Journal{db: db, path: path, readOnly: true}, nil
}

// Session returns the ID of the session this Journal records into, or ""
// for a read-only Journal.
func (j *Journal) Session() string {
	return j.session
}

// Trace implements vm.Tracer. Failures are logged and the first one is
// kept for Err.
func (j *Journal) Trace(ev vm.Event) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.record(ev); err != nil {
		if j.err == nil {
			j.err = err
		}
		log().Errorf("journal %s: %s", j.path, err)
	}
}

func (j *Journal) record(ev vm.Event) error {
	if j.closed {
		return ErrClosed
	}
	if j.readOnly {
		return ErrReadOnly
	}
	payload, err := wire.MarshalEvent(ev)
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", ev.Kind, err)
	}
	_, err = j.db.Exec(
		"INSERT INTO events (session, kind, object, payload) VALUES (?, ?, ?, ?)",
		j.session, ev.Kind.String(), int64(ev.Object), payload,
	)
	if err != nil {
		return fmt.Errorf("saving %s event: %w", ev.Kind, err)
	}
	return nil
}

// Err returns the first error Trace encountered, if any.
func (j *Journal) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

// Events returns the events of a session in the order they were recorded.
func (j *Journal) Events(session string) ([]vm.Event, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil, ErrClosed
	}

	var exists int
	err := j.db.QueryRow("SELECT COUNT(*) FROM sessions WHERE id = ?", session).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}
	if exists == 0 {
		return nil, ErrSessionNotFound
	}

	rows, err := j.db.Query("SELECT payload FROM events WHERE session = ? ORDER BY seq", session)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var events []vm.Event
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		ev, err := wire.UnmarshalEvent(payload)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// Sessions lists every recorded session, oldest first.
func (j *Journal) Sessions() ([]SessionInfo, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil, ErrClosed
	}

	rows, err := j.db.Query(`
		SELECT s.id, s.started, COUNT(e.seq)
		FROM sessions s LEFT JOIN events e ON e.session = s.id
		GROUP BY s.id
		ORDER BY s.started, s.id`)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionInfo
	for rows.Next() {
		var info SessionInfo
		var started int64
		if err := rows.Scan(&info.ID, &started, &info.Events); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		info.Started = time.Unix(0, started)
		out = append(out, info)
	}
	return out, rows.Err()
}

// Close closes the database. Later calls return ErrClosed.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return ErrClosed
	}
	j.closed = true
	return j.db.Close()
}
