// Package sqlite is the local turn store, backed by a single SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/kaystudios/assistant-gateway/internal/domain"
	"github.com/kaystudios/assistant-gateway/internal/history"
)

// Store persists conversation turns in a turns table keyed by session and
// timestamp.
type Store struct {
	db *sqlx.DB
}

var _ history.Store = (*Store)(nil)

// New opens (and if needed initializes) the store at path.
func New(path string) (*Store, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute pragma: %w", err)
		}
	}

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *Store) initSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS turns (
session_id TEXT NOT NULL,
ts INTEGER NOT NULL,
role TEXT NOT NULL,
message TEXT NOT NULL,
model_key TEXT,
cost REAL,
PRIMARY KEY (session_id, ts)
)`)
	return err
}

type turnRow struct {
	SessionID string          `db:"session_id"`
	TS        int64           `db:"ts"`
	Role      string          `db:"role"`
	Message   string          `db:"message"`
	ModelKey  sql.NullString  `db:"model_key"`
	Cost      sql.NullFloat64 `db:"cost"`
}

// Query returns up to limit turns for the session, newest first.
func (s *Store) Query(ctx context.Context, sessionID string, limit int) ([]domain.Turn, error) {
	var rows []turnRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT session_id, ts, role, message, model_key, cost
		 FROM turns WHERE session_id = ? ORDER BY ts DESC LIMIT ?`,
		sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query turns: %w", err)
	}

	turns := make([]domain.Turn, len(rows))
	for i, row := range rows {
		turns[i] = domain.Turn{
			SessionID: row.SessionID,
			Timestamp: row.TS,
			Role:      row.Role,
			Message:   row.Message,
			ModelKey:  row.ModelKey.String,
			Cost:      row.Cost.Float64,
		}
	}
	return turns, nil
}

// Put appends one turn.
func (s *Store) Put(ctx context.Context, turn domain.Turn) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO turns (session_id, ts, role, message, model_key, cost)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		turn.SessionID, turn.Timestamp, turn.Role, turn.Message, turn.ModelKey, turn.Cost,
	)
	if err != nil {
		return fmt.Errorf("failed to store turn: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
