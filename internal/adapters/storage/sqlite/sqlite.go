// Package sqlite stores users and delivered messages in a SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dkeye/Relay/internal/domain"
	_ "github.com/mattn/go-sqlite3"
	"github.com/oklog/ulid/v2"
)

var ErrNotFound = errors.New("not found")

const schema = `
CREATE TABLE IF NOT EXISTS users (
	name       TEXT PRIMARY KEY,
	first_seen INTEGER NOT NULL,
	last_seen  INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS messages (
	id        TEXT PRIMARY KEY,
	sender    TEXT NOT NULL,
	recipient TEXT NOT NULL,
	content   TEXT NOT NULL,
	time      TEXT NOT NULL,
	sent_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS messages_sent_at ON messages (sent_at);
`

type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database file at path and bootstraps the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	// SQLite serialises writers anyway; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	st, err := New(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

// New wraps an already opened database.
func New(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// RecordUser upserts name; first_seen is kept from the first insert.
func (s *Store) RecordUser(ctx context.Context, user domain.User) error {
	query := `
		INSERT INTO users (name, first_seen, last_seen) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET last_seen = excluded.last_seen
	`
	at := user.FirstSeen.UnixNano()
	if _, err := s.db.ExecContext(ctx, query, string(user.Name), at, at); err != nil {
		return fmt.Errorf("failed to upsert user '%s': %w", user.Name, err)
	}
	return nil
}

func (s *Store) RecordMessage(ctx context.Context, env domain.Envelope) error {
	query := "INSERT INTO messages (id, sender, recipient, content, time, sent_at) VALUES (?, ?, ?, ?, ?, ?)"
	id := ulid.Make().String()
	if _, err := s.db.ExecContext(ctx, query, id, string(env.From), string(env.To), env.Text, env.Time, env.SentAt.UnixNano()); err != nil {
		return fmt.Errorf("failed to insert message from '%s': %w", env.From, err)
	}
	return nil
}

// RecentMessages returns the last limit messages, oldest first. A
// non-positive limit returns everything.
func (s *Store) RecentMessages(ctx context.Context, limit int) ([]domain.Envelope, error) {
	if limit <= 0 {
		limit = -1
	}
	query := `
		SELECT sender, recipient, content, time, sent_at FROM (
			SELECT sender, recipient, content, time, sent_at, id FROM messages
			ORDER BY sent_at DESC, id DESC LIMIT ?
		) ORDER BY sent_at ASC, id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	messages := []domain.Envelope{}
	for rows.Next() {
		var (
			from, to, content, hm string
			sentAt                int64
		)
		if err := rows.Scan(&from, &to, &content, &hm, &sentAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, domain.Envelope{
			From:   domain.DisplayName(from),
			To:     domain.DisplayName(to),
			Text:   content,
			Time:   hm,
			SentAt: time.Unix(0, sentAt).UTC(),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over messages: %w", err)
	}
	return messages, nil
}

// user returns the stored record for name.
func (s *Store) user(ctx context.Context, name domain.DisplayName) (domain.User, error) {
	query := "SELECT first_seen FROM users WHERE name = ?"
	var firstSeen int64
	if err := s.db.QueryRowContext(ctx, query, string(name)).Scan(&firstSeen); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, ErrNotFound
		}
		return domain.User{}, fmt.Errorf("error querying user: %w", err)
	}
	return domain.User{Name: name, FirstSeen: time.Unix(0, firstSeen).UTC()}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
