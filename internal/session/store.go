// Package session provides SQLite-based persistence for one coordinator run.
// It records an append-only event log and the query/response exchanges of
// every agent call, which later runs can replay.
package session

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Event kinds written to the session log.
const (
	EventRunStarted           = "RUN_STARTED"
	EventRunCompleted         = "RUN_COMPLETED"
	EventRequestDecomposed    = "REQUEST_DECOMPOSED"
	EventRoleValidationFailed = "ROLE_VALIDATION_FAILED"
	EventRoleRetry            = "ROLE_RETRY"
	EventTaskStarted          = "TASK_STARTED"
	EventTaskCompleted        = "TASK_COMPLETED"
	EventTaskFailed           = "TASK_FAILED"
	EventTimeoutRetry         = "TIMEOUT_RETRY"
	EventAgentCallback        = "AGENT_CALLBACK"
)

// Exchange is one recorded query/response pair for an agent.
type Exchange struct {
	// Agent is the agent instance name that issued the query.
	Agent string
	// Ticks is the millisecond timestamp identifying the exchange.
	Ticks int64
	// Query is the serialized outgoing request.
	Query string
	// Response is the recorded response body, empty until appended.
	Response string
}

// Store wraps an SQLite database holding the session log for one workspace.
type Store struct {
	conn *sql.DB
	path string
	mu   sync.Mutex
}

// DBPath returns the session database path under the given data directory.
func DBPath(dataDir string) string {
	return filepath.Join(dataDir, "session.db")
}

// Open opens the session database at the given path, creating parent
// directories if needed. WAL mode is enabled for concurrent reads.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	s := &Store{conn: conn, path: path}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.Close()
}

// Path returns the path to the database file.
func (s *Store) Path() string {
	return s.path
}

// migrate creates the schema if it does not exist.
func (s *Store) migrate() error {
	_, err := s.conn.Exec(`
		CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			kind TEXT NOT NULL,
			payload TEXT NOT NULL,
			created_at TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS exchanges (
			agent TEXT NOT NULL,
			ticks INTEGER NOT NULL,
			query TEXT NOT NULL,
			response TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			PRIMARY KEY (agent, ticks)
		);
	`)
	if err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// RecordEvent appends one structured event to the session log.
// The payload is serialized as JSON.
func (s *Store) RecordEvent(kind string, payload map[string]any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.conn.Exec(
		"INSERT INTO events (kind, payload, created_at) VALUES (?, ?, ?)",
		kind, string(data), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record event %s: %w", kind, err)
	}
	return nil
}

// Events returns all recorded events of the given kind, in insertion order.
// An empty kind returns every event.
func (s *Store) Events(kind string) ([]EventRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := "SELECT kind, payload, created_at FROM events"
	args := []any{}
	if kind != "" {
		query += " WHERE kind = ?"
		args = append(args, kind)
	}
	query += " ORDER BY id"

	rows, err := s.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []EventRecord
	for rows.Next() {
		var e EventRecord
		if err := rows.Scan(&e.Kind, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// EventRecord is one row of the session event log.
type EventRecord struct {
	// Kind is the event kind constant.
	Kind string
	// Payload is the JSON-serialized event payload.
	Payload string
	// CreatedAt is the RFC3339Nano UTC insertion time.
	CreatedAt string
}

// CreateQuery records the outgoing request of an agent call. It must be
// written once per task, before the first transport attempt.
func (s *Store) CreateQuery(agent string, ticks int64, query string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.conn.Exec(
		"INSERT INTO exchanges (agent, ticks, query, created_at) VALUES (?, ?, ?, ?)",
		agent, ticks, query, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("create query record for %s: %w", agent, err)
	}
	return nil
}

// AppendResponse records the response of an agent call against its query
// record. It must be written at most once per exchange.
func (s *Store) AppendResponse(agent string, ticks int64, response string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.conn.Exec(
		"UPDATE exchanges SET response = ? WHERE agent = ? AND ticks = ?",
		response, agent, ticks,
	)
	if err != nil {
		return fmt.Errorf("append response for %s: %w", agent, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("append response for %s: no query record with ticks %d", agent, ticks)
	}
	return nil
}

// RecordedResponses returns the non-empty recorded responses for an agent,
// ordered by ticks. Replay transports consume these in order.
func (s *Store) RecordedResponses(agent string) ([]Exchange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.conn.Query(
		"SELECT agent, ticks, query, response FROM exchanges WHERE agent = ? AND response != '' ORDER BY ticks",
		agent,
	)
	if err != nil {
		return nil, fmt.Errorf("query exchanges for %s: %w", agent, err)
	}
	defer rows.Close()

	var exchanges []Exchange
	for rows.Next() {
		var e Exchange
		if err := rows.Scan(&e.Agent, &e.Ticks, &e.Query, &e.Response); err != nil {
			return nil, fmt.Errorf("scan exchange: %w", err)
		}
		exchanges = append(exchanges, e)
	}
	return exchanges, rows.Err()
}

// ExchangeCounts returns the number of query records and the number of
// recorded responses for an agent.
func (s *Store) ExchangeCounts(agent string) (queries, responses int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.conn.QueryRow(
		"SELECT COUNT(*), COUNT(CASE WHEN response != '' THEN 1 END) FROM exchanges WHERE agent = ?",
		agent,
	)
	if err := row.Scan(&queries, &responses); err != nil {
		return 0, 0, fmt.Errorf("count exchanges for %s: %w", agent, err)
	}
	return queries, responses, nil
}
