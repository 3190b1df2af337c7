// Package history persists an advisory log of dispatched commands. The
// dispatch engine only ever writes here; nothing reads it to make routing
// decisions, so losing the file never changes bot behavior.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"keybot/internal/bot"
)

// Store implements bot.DispatchRecorder on SQLite.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ bot.DispatchRecorder = (*Store)(nil)

// Entry is one recorded dispatch.
type Entry struct {
	ID        int64
	Kind      string
	Team      string
	Channel   string
	Sender    string
	Trigger   string
	Body      string
	Result    string
	Error     string
	CreatedAt time.Time
}

func NewStore(dbPath string, logger *slog.Logger) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	// Single connection for SQLite.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &Store{db: db, logger: logger}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}

	return store, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS dispatches (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		kind        TEXT NOT NULL,
		team        TEXT,
		channel     TEXT,
		sender      TEXT NOT NULL,
		command     TEXT NOT NULL,
		body        TEXT,
		result      TEXT,
		error       TEXT,
		created_at  DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_dispatches_time ON dispatches(created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record appends one dispatch to the log.
func (s *Store) Record(ctx context.Context, rec bot.DispatchRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO dispatches (kind, team, channel, sender, command, body, result, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		string(rec.Msg.Kind), rec.Msg.Team, rec.Msg.Channel, rec.Msg.Sender,
		rec.Trigger, rec.Msg.Body, rec.Output, rec.Err,
	)
	return err
}

// Recent returns the latest dispatches, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, team, channel, sender, command, body, result, error, created_at
		 FROM dispatches ORDER BY created_at DESC, id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var team, channel, body, result, errText sql.NullString
		if err := rows.Scan(&e.ID, &e.Kind, &team, &channel, &e.Sender,
			&e.Trigger, &body, &result, &errText, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Team = team.String
		e.Channel = channel.String
		e.Body = body.String
		e.Result = result.String
		e.Error = errText.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}
