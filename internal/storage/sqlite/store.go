// Package sqlite persists the application state in a SQLite database and
// exposes high level, lifecycle-scope-aware helpers over it.
package sqlite

import (
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"taskmanager/internal/models"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Store wraps access to the SQLite database.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open initializes the store and runs pending migrations. Passing
// ":memory:" opens a throwaway in-memory database.
func Open(dbPath string, logger *slog.Logger) (*Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("empty database path")
	}

	if logger == nil {
		logger = slog.Default()
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=ON", dbPath)
	if dbPath == ":memory:" {
		dsn = "file::memory:?_busy_timeout=5000&_foreign_keys=ON"
	} else if err := ensureDir(dbPath); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetConnMaxLifetime(0)

	s := &Store{db: conn, logger: logger}
	if err := s.migrate(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return s, nil
}

// Close releases the database resources.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func ensureDir(dbPath string) error {
	dir := filepath.Dir(dbPath)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func (s *Store) migrate() error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set migration dialect: %w", err)
	}
	if err := goose.Up(s.db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// scopeClause renders a lifecycle scope as a SQL condition on the given
// column. ScopeAny matches every row.
func scopeClause(column string, scope models.Scope) string {
	switch scope {
	case models.ScopeActive:
		return fmt.Sprintf("%s = 'active'", column)
	case models.ScopeDeleted:
		return fmt.Sprintf("%s = 'deleted'", column)
	default:
		return "1 = 1"
	}
}
