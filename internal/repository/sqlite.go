package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/TheIchigoSimp/HackNova-Hackathon/internal/domain"
)

const sessionColumns = `id, user_id, thread_id, title, filename, snapshot, messages, created_at, updated_at`

// SQLiteStore implements Store using SQLite. Each session is one row whose
// messages and snapshot columns hold JSON documents, so every mutation of a
// session is a single-row statement.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	// Shared-cache connections fail with SQLITE_LOCKED on overlapping writes
	// instead of waiting on busy_timeout, so they are serialized the same way.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") || strings.Contains(dsn, "cache=shared") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	store := &SQLiteStore{db: db, now: time.Now}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			thread_id TEXT NOT NULL,
			title TEXT NOT NULL,
			filename TEXT NOT NULL DEFAULT '',
			snapshot TEXT NOT NULL DEFAULT '{}',
			messages TEXT NOT NULL DEFAULT '[]',
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_user_updated ON sessions(user_id, updated_at DESC)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Create inserts a new session document. It never merges with an existing
// session of the same user or thread.
func (s *SQLiteStore) Create(ctx context.Context, in NewSession) (*domain.Session, error) {
	snapshot, err := json.Marshal(in.Snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	title := in.Title
	if strings.TrimSpace(title) == "" {
		title = domain.DefaultSessionTitle
	}
	now := s.now().UnixNano()

	// A new session is the user's most recent one, even against a clock tie.
	row := s.db.QueryRowContext(ctx,
		`INSERT INTO sessions (id, user_id, thread_id, title, filename, snapshot, messages, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, '[]', ?,
		         MAX(?, COALESCE((SELECT MAX(updated_at) + 1 FROM sessions WHERE user_id = ?), 0)))
		 RETURNING `+sessionColumns,
		uuid.New().String(), in.UserID, in.ThreadID, title, in.Filename, string(snapshot), now, now, in.UserID)
	return scanSession(row)
}

// ListSummaries returns at most limit summaries, newest first.
func (s *SQLiteStore) ListSummaries(ctx context.Context, userID string, limit int) ([]domain.SessionSummary, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, thread_id, title, filename, COALESCE(json_extract(snapshot, '$.ats_score'), 0), created_at, updated_at
		 FROM sessions WHERE user_id = ?
		 ORDER BY updated_at DESC, id DESC
		 LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := []domain.SessionSummary{}
	for rows.Next() {
		var sum domain.SessionSummary
		var createdAt, updatedAt int64
		if err := rows.Scan(&sum.ID, &sum.ThreadID, &sum.Title, &sum.Filename, &sum.ATSScore, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		sum.CreatedAt = time.Unix(0, createdAt).UTC()
		sum.UpdatedAt = time.Unix(0, updatedAt).UTC()
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}

// GetByID returns the session if it exists and is owned by userID.
func (s *SQLiteStore) GetByID(ctx context.Context, userID, id string) (*domain.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = ? AND user_id = ?`,
		id, userID)
	return scanSession(row)
}

// AppendMessage pushes one message onto the session's message array in a
// single UPDATE, so concurrent appends to the same session are applied in
// the order the database receives them and none are lost.
func (s *SQLiteStore) AppendMessage(ctx context.Context, userID string, sel domain.SessionSelector, role domain.Role, content string) (*domain.Session, error) {
	id := sel.ID
	if sel.IsMostRecent() {
		summaries, err := s.ListSummaries(ctx, userID, 1)
		if err != nil {
			return nil, err
		}
		latest, ok := domain.SelectMostRecent(summaries)
		if !ok {
			return nil, ErrNotFound
		}
		id = latest.ID
	}

	now := s.now()
	msg, err := json.Marshal(domain.ChatMessage{Role: role, Content: content, Timestamp: now.UTC()})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}

	row := s.db.QueryRowContext(ctx,
		`UPDATE sessions
		 SET messages = json_insert(messages, '$[#]', json(?)),
		     updated_at = MAX(updated_at + 1, ?)
		 WHERE id = ? AND user_id = ?
		 RETURNING `+sessionColumns,
		string(msg), now.UnixNano(), id, userID)
	return scanSession(row)
}

// Update merges the non-nil fields of patch into the session.
func (s *SQLiteStore) Update(ctx context.Context, userID, id string, patch SessionPatch) (*domain.Session, error) {
	var title, snapshot sql.NullString
	if patch.Title != nil {
		title = sql.NullString{String: *patch.Title, Valid: true}
	}
	if patch.Snapshot != nil {
		data, err := json.Marshal(patch.Snapshot)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
		}
		snapshot = sql.NullString{String: string(data), Valid: true}
	}

	row := s.db.QueryRowContext(ctx,
		`UPDATE sessions
		 SET title = COALESCE(?, title),
		     snapshot = COALESCE(?, snapshot),
		     updated_at = MAX(updated_at + 1, ?)
		 WHERE id = ? AND user_id = ?
		 RETURNING `+sessionColumns,
		title, snapshot, s.now().UnixNano(), id, userID)
	return scanSession(row)
}

// Delete removes one session owned by userID.
func (s *SQLiteStore) Delete(ctx context.Context, userID, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeleteAll removes every session owned by userID.
func (s *SQLiteStore) DeleteAll(ctx context.Context, userID string) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ?`, userID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func scanSession(row *sql.Row) (*domain.Session, error) {
	var session domain.Session
	var snapshot, messages string
	var createdAt, updatedAt int64
	err := row.Scan(&session.ID, &session.UserID, &session.ThreadID, &session.Title, &session.Filename,
		&snapshot, &messages, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(snapshot), &session.AnalysisSnapshot); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot of session %s: %w", session.ID, err)
	}
	session.Messages = []domain.ChatMessage{}
	if err := json.Unmarshal([]byte(messages), &session.Messages); err != nil {
		return nil, fmt.Errorf("failed to decode messages of session %s: %w", session.ID, err)
	}
	session.CreatedAt = time.Unix(0, createdAt).UTC()
	session.UpdatedAt = time.Unix(0, updatedAt).UTC()
	return &session, nil
}
