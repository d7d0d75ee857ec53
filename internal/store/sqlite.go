package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"DeepValue/internal/session"
)

// SQLite is a Store backed by a local SQLite database.
type SQLite struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLite opens (or creates) the database at path and ensures the schema
// exists.
func NewSQLite(path string, logger *slog.Logger) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	createSessionsTable := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		created_at DATETIME,
		updated_at DATETIME
	);`

	createMessagesTable := `
	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT,
		role TEXT,
		content TEXT,
		timestamp DATETIME,
		FOREIGN KEY(session_id) REFERENCES sessions(id)
	);`

	if _, err := db.Exec(createSessionsTable); err != nil {
		return nil, fmt.Errorf("failed to create sessions table: %w", err)
	}

	if _, err := db.Exec(createMessagesTable); err != nil {
		return nil, fmt.Errorf("failed to create messages table: %w", err)
	}

	return &SQLite{db: db, logger: logger}, nil
}

// Close closes the underlying database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// isMissingTable reports whether err is SQLite's "no such table" error.
func isMissingTable(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such table")
}

// Create inserts an empty session. Creating an existing session is a no-op.
func (s *SQLite) Create(ctx context.Context, id string) (string, error) {
	now := time.Now()
	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO sessions (id, created_at, updated_at) VALUES (?, ?, ?)",
		id, now, now,
	)
	if err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}
	s.logger.Info("created session", "session_id", id)
	return id, nil
}

// Get returns the session with its messages, or nil when the session does
// not exist. A missing sessions table degrades to "absent".
func (s *SQLite) Get(ctx context.Context, id string) (*session.Session, error) {
	var createdAt, updatedAt time.Time
	err := s.db.QueryRowContext(ctx,
		"SELECT created_at, updated_at FROM sessions WHERE id = ?", id,
	).Scan(&createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if isMissingTable(err) {
		s.logger.Warn("sessions table missing, treating session as absent", "session_id", id)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	messages, err := s.ListMessages(ctx, id)
	if err != nil {
		return nil, err
	}

	return &session.Session{
		ID:        id,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
		Messages:  messages,
	}, nil
}

// AppendMessage appends one message and bumps the session's updated_at.
// The session row is created if it is somehow missing, so a half-cleared
// session never blocks a write.
func (s *SQLite) AppendMessage(ctx context.Context, id, role, content string) (time.Time, error) {
	now := time.Now()

	if _, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO sessions (id, created_at, updated_at) VALUES (?, ?, ?)",
		id, now, now,
	); err != nil {
		return time.Time{}, fmt.Errorf("failed to ensure session: %w", err)
	}

	if _, err := s.db.ExecContext(ctx,
		"INSERT INTO messages (session_id, role, content, timestamp) VALUES (?, ?, ?, ?)",
		id, role, content, now,
	); err != nil {
		return time.Time{}, fmt.Errorf("failed to append message: %w", err)
	}

	if _, err := s.db.ExecContext(ctx,
		"UPDATE sessions SET updated_at = ? WHERE id = ?", now, id,
	); err != nil {
		s.logger.Warn("failed to update session timestamp", "session_id", id, "error", err)
	}

	return now, nil
}

// ListMessages returns the session's messages in insertion order. A missing
// messages table degrades to an empty history.
func (s *SQLite) ListMessages(ctx context.Context, id string) ([]session.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT role, content, timestamp FROM messages WHERE session_id = ? ORDER BY timestamp, id",
		id,
	)
	if isMissingTable(err) {
		s.logger.Warn("messages table missing, returning empty history", "session_id", id)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	defer rows.Close()

	var messages []session.Message
	for rows.Next() {
		var msg session.Message
		if err := rows.Scan(&msg.Role, &msg.Content, &msg.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read messages: %w", err)
	}

	return messages, nil
}

// Clear deletes the session and all its messages and creates a fresh empty
// session under a new identifier.
func (s *SQLite) Clear(ctx context.Context, id string) (string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM messages WHERE session_id = ?", id); err != nil {
		return "", fmt.Errorf("failed to delete messages: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id); err != nil {
		return "", fmt.Errorf("failed to delete session: %w", err)
	}

	newID := session.NewID()
	now := time.Now()
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO sessions (id, created_at, updated_at) VALUES (?, ?, ?)",
		newID, now, now,
	); err != nil {
		return "", fmt.Errorf("failed to create replacement session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Info("cleared session", "old_session_id", id, "new_session_id", newID)
	return newID, nil
}
