package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/gl0bal01/discord-watchlists/internal/domain/model"
	"github.com/gl0bal01/discord-watchlists/internal/domain/ports"
	"github.com/gl0bal01/discord-watchlists/internal/errors"
)

const schema = `CREATE TABLE IF NOT EXISTS seen (
	id      TEXT PRIMARY KEY,
	seen_at TEXT NOT NULL
)`

// SQLite stores the ledger in a single table, one row per delivered id.
type SQLite struct {
	db    *sql.DB
	path  string
	clock ports.Clock
}

var _ ports.Ledger = (*SQLite)(nil)

func openSQLite(cfg Config, clk ports.Clock) (*SQLite, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.Config("ledger.path", errors.New("sqlite path is required"))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Ledger(path, err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Ledger(path, err)
	}
	// SQLite prefers a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}
	_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", busy.Milliseconds()))
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = FULL")

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, errors.Ledger(path, errors.Wrap(err, "migrate"))
	}
	return &SQLite{db: db, path: path, clock: clk}, nil
}

func (s *SQLite) Load(ctx context.Context) (model.IDSet, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM seen`)
	if err != nil {
		return nil, errors.Ledger(s.path, err)
	}
	defer rows.Close()

	set := model.NewIDSet()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Ledger(s.path, err)
		}
		set.Add(id)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Ledger(s.path, err)
	}
	return set, nil
}

func (s *SQLite) MarkSeen(ctx context.Context, id string) error {
	if err := model.ValidateID(id); err != nil {
		return errors.Ledger(s.path, err)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO seen(id, seen_at) VALUES(?, ?) ON CONFLICT(id) DO NOTHING`,
		id, s.clock.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return errors.Ledger(s.path, err)
	}
	return nil
}

func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
