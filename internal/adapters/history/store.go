package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/mikey-austin/shoko_nav/internal/ports"
)

const defaultTimeout = 5 * time.Second

// Store keeps search queries in a SQLite database.
type Store struct {
	db     *sql.DB
	clock  ports.Clock
	logger *zap.Logger
}

var _ ports.SearchHistory = (*Store)(nil)

// Open opens or creates the history database at path. ":memory:" is
// accepted for tests.
func Open(ctx context.Context, path string, clock ports.Clock, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("history dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	// An in-memory database exists per connection.
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect history: %w", err)
	}

	s := &Store{db: db, clock: clock, logger: logger}
	if err := s.initialize(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init history: %w", err)
	}
	logger.Debug("history opened", zap.String("path", path))
	return s, nil
}

func (s *Store) initialize(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS search_history (
		query TEXT NOT NULL PRIMARY KEY COLLATE NOCASE,
		searched_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_search_history_at ON search_history(searched_at);
	`)
	return err
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Recent(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT query FROM search_history ORDER BY searched_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var q string
		if err := rows.Scan(&q); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// Add records query as the most recent search. Repeats move to the top.
func (s *Store) Add(ctx context.Context, query string) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	// Replaced, not updated, so rowid orders searches within one second.
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM search_history WHERE query = ?`, query); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO search_history (query, searched_at) VALUES (?, ?)`, query, s.now()); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) Remove(ctx context.Context, query string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM search_history WHERE query = ?`, strings.TrimSpace(query))
	return err
}

func (s *Store) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM search_history`)
	return err
}

func (s *Store) now() int64 {
	if s.clock != nil {
		return s.clock.NowUnix()
	}
	return time.Now().Unix()
}
