// Package storage provides data persistence using SQLite for the meeting recorder.
// It keeps a journal of sessions and the recordings each one produced.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nikshitha/meeting-recorder/logger"
	_ "modernc.org/sqlite"
)

// Database wraps SQLite database operations
type Database struct {
	db     *sql.DB
	logger *logger.Logger
}

// SessionRecord is one run of the recorder against a meeting
type SessionRecord struct {
	ID          string     `json:"id"`
	Provider    string     `json:"provider"`
	MeetingURL  string     `json:"meeting_url"`
	DisplayName string     `json:"display_name"`
	Joined      bool       `json:"joined"`
	JoinClicked bool       `json:"join_clicked"`
	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`
}

// RecordingRecord is one artifact written during a session
type RecordingRecord struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Path      string    `json:"path"`
	SizeBytes int64     `json:"size_bytes"`
	StartedAt time.Time `json:"started_at"`
	StoppedAt time.Time `json:"stopped_at"`
}

// NewDatabase creates a new database connection
func NewDatabase(dbPath string, log *logger.Logger) (*Database, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	database := &Database{
		db:     db,
		logger: log.WithModule("storage"),
	}

	if err := database.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	database.logger.Debug("Database initialized successfully")
	return database, nil
}

// initSchema creates the database tables if they don't exist
func (d *Database) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		provider TEXT NOT NULL,
		meeting_url TEXT NOT NULL,
		display_name TEXT,
		joined BOOLEAN DEFAULT 0,
		join_clicked BOOLEAN DEFAULT 0,
		error TEXT DEFAULT '',
		started_at DATETIME NOT NULL,
		ended_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS recordings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		path TEXT NOT NULL,
		size_bytes INTEGER NOT NULL,
		started_at DATETIME NOT NULL,
		stopped_at DATETIME NOT NULL,
		FOREIGN KEY (session_id) REFERENCES sessions(id)
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_started_at ON sessions(started_at);
	CREATE INDEX IF NOT EXISTS idx_recordings_session ON recordings(session_id);
	`

	_, err := d.db.Exec(schema)
	return err
}

// Close closes the database connection
func (d *Database) Close() error {
	return d.db.Close()
}

// ==============================================================================
// Session Operations
// ==============================================================================

// SaveSession inserts or updates a session row
func (d *Database) SaveSession(s *SessionRecord) error {
	query := `
		INSERT INTO sessions (id, provider, meeting_url, display_name, joined, join_clicked, error, started_at, ended_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			provider = excluded.provider,
			meeting_url = excluded.meeting_url,
			display_name = excluded.display_name,
			joined = excluded.joined,
			join_clicked = excluded.join_clicked,
			error = excluded.error,
			ended_at = excluded.ended_at
	`

	_, err := d.db.Exec(query,
		s.ID, s.Provider, s.MeetingURL, s.DisplayName, s.Joined, s.JoinClicked, s.Error, s.StartedAt, s.EndedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	d.logger.WithField("session_id", s.ID).Debug("Session saved")
	return nil
}

// FinishSession stamps the end time and final error of a session
func (d *Database) FinishSession(id string, endedAt time.Time, sessionErr error) error {
	msg := ""
	if sessionErr != nil {
		msg = sessionErr.Error()
	}

	res, err := d.db.Exec(`UPDATE sessions SET ended_at = ?, error = ? WHERE id = ?`, endedAt, msg, id)
	if err != nil {
		return fmt.Errorf("failed to finish session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("session %s not found", id)
	}
	return nil
}

// GetSession retrieves a session by ID. It returns nil when none exists.
func (d *Database) GetSession(id string) (*SessionRecord, error) {
	query := `SELECT id, provider, meeting_url, display_name, joined, join_clicked, error, started_at, ended_at FROM sessions WHERE id = ?`

	s, err := scanSession(d.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return s, nil
}

// GetRecentSessions returns the latest sessions, newest first
func (d *Database) GetRecentSessions(limit int) ([]*SessionRecord, error) {
	query := `
		SELECT id, provider, meeting_url, display_name, joined, join_clicked, error, started_at, ended_at
		FROM sessions ORDER BY started_at DESC LIMIT ?
	`

	rows, err := d.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*SessionRecord
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}

	return sessions, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row rowScanner) (*SessionRecord, error) {
	s := &SessionRecord{}
	var endedAt sql.NullTime
	err := row.Scan(
		&s.ID, &s.Provider, &s.MeetingURL, &s.DisplayName, &s.Joined, &s.JoinClicked, &s.Error,
		&s.StartedAt, &endedAt,
	)
	if err != nil {
		return nil, err
	}
	if endedAt.Valid {
		s.EndedAt = &endedAt.Time
	}
	return s, nil
}

// ==============================================================================
// Recording Operations
// ==============================================================================

// SaveRecording journals an artifact written during a session
func (d *Database) SaveRecording(r *RecordingRecord) (int64, error) {
	query := `
		INSERT INTO recordings (session_id, path, size_bytes, started_at, stopped_at)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := d.db.Exec(query, r.SessionID, r.Path, r.SizeBytes, r.StartedAt, r.StoppedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to save recording: %w", err)
	}

	id, _ := result.LastInsertId()
	d.logger.WithField("path", r.Path).Debug("Recording saved")
	return id, nil
}

// GetRecordings returns the artifacts of one session in the order they were written
func (d *Database) GetRecordings(sessionID string) ([]*RecordingRecord, error) {
	query := `
		SELECT id, session_id, path, size_bytes, started_at, stopped_at
		FROM recordings WHERE session_id = ?
		ORDER BY started_at ASC, id ASC
	`

	rows, err := d.db.Query(query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recordings []*RecordingRecord
	for rows.Next() {
		r := &RecordingRecord{}
		if err := rows.Scan(&r.ID, &r.SessionID, &r.Path, &r.SizeBytes, &r.StartedAt, &r.StoppedAt); err != nil {
			return nil, err
		}
		recordings = append(recordings, r)
	}

	return recordings, rows.Err()
}
