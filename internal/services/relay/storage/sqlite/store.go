// Package sqlite provides a SQLite-backed message store for the relay.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	sqlitemigrate "github.com/driftwoodchat/driftwood/internal/platform/storage/sqlitemigrate"
	"github.com/driftwoodchat/driftwood/internal/services/relay/storage"
	"github.com/driftwoodchat/driftwood/internal/services/relay/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// Store persists the relay's message log in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite message store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// AppendRoomMessage appends one room message and returns its durable id.
func (s *Store) AppendRoomMessage(ctx context.Context, roomID int64, sender string, body string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, storage.ErrNotConfigured
	}
	sender = strings.TrimSpace(sender)
	if sender == "" {
		return 0, fmt.Errorf("sender is required")
	}
	if body == "" {
		return 0, fmt.Errorf("message body is required")
	}

	result, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO messages (room_id, user_nickname, message, sent_at)
		 VALUES (?, ?, ?, ?)`,
		roomID,
		sender,
		body,
		toMillis(time.Now()),
	)
	if err != nil {
		return 0, fmt.Errorf("append room message: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("room message id: %w", err)
	}
	return id, nil
}

// AppendDirectMessage appends one direct message and returns its durable id.
func (s *Store) AppendDirectMessage(ctx context.Context, from string, to string, body string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, storage.ErrNotConfigured
	}
	from = strings.TrimSpace(from)
	to = strings.TrimSpace(to)
	if from == "" || to == "" {
		return 0, fmt.Errorf("sender and recipient are required")
	}
	if body == "" {
		return 0, fmt.Errorf("message body is required")
	}

	result, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO direct_messages (from_user, to_user, message, sent_at)
		 VALUES (?, ?, ?, ?)`,
		from,
		to,
		body,
		toMillis(time.Now()),
	)
	if err != nil {
		return 0, fmt.Errorf("append direct message: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("direct message id: %w", err)
	}
	return id, nil
}

// DirectHistory returns up to limit messages exchanged between userA and
// userB, oldest first. The newest messages win when the pair has more than
// limit messages.
func (s *Store) DirectHistory(ctx context.Context, userA string, userB string, limit int) ([]storage.DirectMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, storage.ErrNotConfigured
	}
	userA = strings.TrimSpace(userA)
	userB = strings.TrimSpace(userB)
	if userA == "" || userB == "" {
		return nil, fmt.Errorf("both identities are required")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id, from_user, to_user, message, sent_at
		   FROM direct_messages
		  WHERE (from_user = ? AND to_user = ?) OR (from_user = ? AND to_user = ?)
		  ORDER BY id DESC
		  LIMIT ?`,
		userA, userB, userB, userA, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("read direct history: %w", err)
	}
	defer rows.Close()

	var history []storage.DirectMessage
	for rows.Next() {
		var record storage.DirectMessage
		var sentAt int64
		if err := rows.Scan(&record.ID, &record.From, &record.To, &record.Body, &sentAt); err != nil {
			return nil, fmt.Errorf("scan direct message: %w", err)
		}
		record.SentAt = fromMillis(sentAt)
		history = append(history, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate direct history: %w", err)
	}

	// The query walks newest-first so LIMIT keeps recent messages; callers
	// want chronological order.
	for i, j := 0, len(history)-1; i < j; i, j = i+1, j-1 {
		history[i], history[j] = history[j], history[i]
	}
	return history, nil
}

var _ storage.MessageStore = (*Store)(nil)
