package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const (
	StatusRecording  = "RECORDING"
	StatusPaused     = "PAUSED"
	StatusProcessing = "PROCESSING"
	StatusCompleted  = "COMPLETED"
	StatusFailed     = "FAILED"
)

const (
	SummaryNone    = "NONE"
	SummaryRunning = "RUNNING"
	SummaryReady   = "READY"
	SummaryFailed  = "FAILED"
)

const (
	ModeTab = "tab"
	ModeMic = "mic"
)

// ErrNotFound is returned when a session does not exist.
var ErrNotFound = errors.New("session not found")

// Fixed-width so that lexical order in SQLite matches chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

type Session struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Mode          string    `json:"mode"`
	Status        string    `json:"status"`
	SummaryStatus string    `json:"summaryStatus"`
	Summary       *string   `json:"summary"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type Segment struct {
	SessionID   string    `json:"sessionId"`
	ChunkIndex  int       `json:"chunkIndex"`
	Text        string    `json:"text"`
	StartedAtMs *int64    `json:"startedAtMs,omitempty"`
	EndedAtMs   *int64    `json:"endedAtMs,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if strings.TrimSpace(dbPath) == "" {
		dbPath = filepath.Join("data", "ghost-scribe.db")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db, now: time.Now}
	if err := store.init(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) init() error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := s.db.Exec(p); err != nil {
			return fmt.Errorf("apply pragma %q: %w", p, err)
		}
	}

	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			mode TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'RECORDING',
			summary_status TEXT NOT NULL DEFAULT 'NONE',
			summary TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);
	`); err != nil {
		return fmt.Errorf("create sessions table: %w", err)
	}

	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS segments (
			session_id TEXT NOT NULL,
			chunk_index INTEGER NOT NULL,
			text TEXT NOT NULL,
			started_at_ms INTEGER,
			ended_at_ms INTEGER,
			created_at TEXT NOT NULL,
			PRIMARY KEY(session_id, chunk_index),
			FOREIGN KEY(session_id) REFERENCES sessions(id) ON DELETE CASCADE
		);
	`); err != nil {
		return fmt.Errorf("create segments table: %w", err)
	}

	if _, err := s.db.Exec("CREATE INDEX IF NOT EXISTS idx_sessions_updated_at ON sessions(updated_at)"); err != nil {
		return fmt.Errorf("create sessions index: %w", err)
	}

	return nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

func (s *SQLiteStore) CreateSession(sess Session) error {
	if strings.TrimSpace(sess.ID) == "" {
		return errors.New("session id is required")
	}

	_, err := s.db.Exec(
		`INSERT INTO sessions(id, title, mode, status, summary_status, summary, created_at, updated_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID,
		sess.Title,
		sess.Mode,
		sess.Status,
		sess.SummaryStatus,
		nullString(sess.Summary),
		formatTime(sess.CreatedAt),
		formatTime(sess.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("create session %s: %w", sess.ID, err)
	}
	return nil
}

func (s *SQLiteStore) GetSession(id string) (Session, error) {
	row := s.db.QueryRow(
		`SELECT id, title, mode, status, summary_status, summary, created_at, updated_at
		 FROM sessions WHERE id = ?`,
		id,
	)

	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, fmt.Errorf("query session %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Session{}, fmt.Errorf("query session %s: %w", id, err)
	}
	return sess, nil
}

// ListSessions returns up to limit sessions, most recently updated first.
func (s *SQLiteStore) ListSessions(limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(
		`SELECT id, title, mode, status, summary_status, summary, created_at, updated_at
		 FROM sessions
		 ORDER BY updated_at DESC, rowid DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	sessions := make([]Session, 0, limit)
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions rows: %w", err)
	}

	return sessions, nil
}

func (s *SQLiteStore) UpdateStatus(id, status string) error {
	res, err := s.db.Exec(
		`UPDATE sessions SET status = ?, updated_at = ? WHERE id = ?`,
		status,
		formatTime(s.now()),
		id,
	)
	if err != nil {
		return fmt.Errorf("update status for session %s: %w", id, err)
	}
	return expectRow(res, id)
}

// UpdateSummary writes the summary axis. An empty status leaves the outer
// session status untouched.
func (s *SQLiteStore) UpdateSummary(id, summaryStatus string, summary *string, status string) error {
	res, err := s.db.Exec(
		`UPDATE sessions
		 SET summary_status = ?, summary = ?, status = COALESCE(NULLIF(?, ''), status), updated_at = ?
		 WHERE id = ?`,
		summaryStatus,
		nullString(summary),
		status,
		formatTime(s.now()),
		id,
	)
	if err != nil {
		return fmt.Errorf("update summary for session %s: %w", id, err)
	}
	return expectRow(res, id)
}

// UpsertSegment stores the segment for (session, chunk index), replacing any
// earlier text for the same index, and touches the session in one transaction.
func (s *SQLiteStore) UpsertSegment(seg Segment) (Segment, error) {
	now := s.now()
	if seg.CreatedAt.IsZero() {
		seg.CreatedAt = now
	}

	tx, err := s.db.Begin()
	if err != nil {
		return Segment{}, fmt.Errorf("begin segment upsert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.Exec(`UPDATE sessions SET updated_at = ? WHERE id = ?`, formatTime(now), seg.SessionID)
	if err != nil {
		return Segment{}, fmt.Errorf("touch session %s: %w", seg.SessionID, err)
	}
	if err := expectRow(res, seg.SessionID); err != nil {
		return Segment{}, err
	}

	// An overwrite keeps the first created_at, so report the stored one.
	var createdAt string
	if err := tx.QueryRow(
		`INSERT INTO segments(session_id, chunk_index, text, started_at_ms, ended_at_ms, created_at)
		 VALUES(?, ?, ?, ?, ?, ?)
		 ON CONFLICT(session_id, chunk_index) DO UPDATE SET
		   text = excluded.text,
		   started_at_ms = excluded.started_at_ms,
		   ended_at_ms = excluded.ended_at_ms
		 RETURNING created_at`,
		seg.SessionID,
		seg.ChunkIndex,
		strings.TrimSpace(seg.Text),
		nullInt(seg.StartedAtMs),
		nullInt(seg.EndedAtMs),
		formatTime(seg.CreatedAt),
	).Scan(&createdAt); err != nil {
		return Segment{}, fmt.Errorf("upsert segment %d for session %s: %w", seg.ChunkIndex, seg.SessionID, err)
	}
	stored, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return Segment{}, fmt.Errorf("parse segment created_at for session %s: %w", seg.SessionID, err)
	}
	seg.CreatedAt = stored

	if err := tx.Commit(); err != nil {
		return Segment{}, fmt.Errorf("commit segment upsert: %w", err)
	}

	seg.Text = strings.TrimSpace(seg.Text)
	return seg, nil
}

// GetSegments returns every segment of the session in ascending chunk order.
func (s *SQLiteStore) GetSegments(sessionID string) ([]Segment, error) {
	rows, err := s.db.Query(
		`SELECT session_id, chunk_index, text, started_at_ms, ended_at_ms, created_at
		 FROM segments
		 WHERE session_id = ?
		 ORDER BY chunk_index ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query segments for session %s: %w", sessionID, err)
	}
	defer func() { _ = rows.Close() }()

	return scanSegments(rows, sessionID)
}

// RecentSegments returns the last limit segments by descending chunk index.
func (s *SQLiteStore) RecentSegments(sessionID string, limit int) ([]Segment, error) {
	rows, err := s.db.Query(
		`SELECT session_id, chunk_index, text, started_at_ms, ended_at_ms, created_at
		 FROM segments
		 WHERE session_id = ?
		 ORDER BY chunk_index DESC
		 LIMIT ?`,
		sessionID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent segments for session %s: %w", sessionID, err)
	}
	defer func() { _ = rows.Close() }()

	return scanSegments(rows, sessionID)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (Session, error) {
	var sess Session
	var summary sql.NullString
	var createdAt, updatedAt string
	if err := row.Scan(&sess.ID, &sess.Title, &sess.Mode, &sess.Status, &sess.SummaryStatus, &summary, &createdAt, &updatedAt); err != nil {
		return Session{}, err
	}

	var err error
	if sess.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return Session{}, fmt.Errorf("parse session %s created_at: %w", sess.ID, err)
	}
	if sess.UpdatedAt, err = time.Parse(timeLayout, updatedAt); err != nil {
		return Session{}, fmt.Errorf("parse session %s updated_at: %w", sess.ID, err)
	}
	if summary.Valid {
		sess.Summary = &summary.String
	}
	return sess, nil
}

func scanSegments(rows *sql.Rows, sessionID string) ([]Segment, error) {
	segments := make([]Segment, 0, 32)
	for rows.Next() {
		var seg Segment
		var startedAt, endedAt sql.NullInt64
		var createdAt string
		if err := rows.Scan(&seg.SessionID, &seg.ChunkIndex, &seg.Text, &startedAt, &endedAt, &createdAt); err != nil {
			return nil, fmt.Errorf("scan segment for session %s: %w", sessionID, err)
		}

		parsed, err := time.Parse(timeLayout, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse segment created_at for session %s: %w", sessionID, err)
		}
		seg.CreatedAt = parsed
		if startedAt.Valid {
			seg.StartedAtMs = &startedAt.Int64
		}
		if endedAt.Valid {
			seg.EndedAtMs = &endedAt.Int64
		}

		segments = append(segments, seg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate segment rows for session %s: %w", sessionID, err)
	}

	return segments, nil
}

func expectRow(res sql.Result, id string) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for session %s: %w", id, err)
	}
	if rows == 0 {
		return fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
