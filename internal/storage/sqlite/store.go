// Package sqlite implements the storage interface using SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/untoldecay/InstructionLog/internal/storage"
)

// busyTimeoutMS is how long a writer waits for the database lock before
// SQLite reports SQLITE_BUSY.
const busyTimeoutMS = 30000

// SQLiteStorage implements storage.Storage on a single SQLite database.
type SQLiteStorage struct {
	executor
	db     *sql.DB
	dbPath string
}

var _ storage.Storage = (*SQLiteStorage)(nil)

// New opens (creating if needed) the database at path, applies the schema
// and runs migrations. Use ":memory:" for a private in-memory database.
func New(ctx context.Context, path string) (*SQLiteStorage, error) {
	dsn, inMemory := buildDSN(path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if inMemory {
		// Every pooled connection to :memory: would be a separate database.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database %s: %w", path, err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLiteStorage{
		executor: executor{q: db},
		db:       db,
		dbPath:   path,
	}, nil
}

// buildDSN turns a file path into an ncruces DSN. Write transactions use
// BEGIN IMMEDIATE so concurrent writers queue on the busy timeout instead
// of failing on lock upgrade.
func buildDSN(path string) (string, bool) {
	params := url.Values{}
	params.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busyTimeoutMS))
	params.Add("_pragma", "foreign_keys(1)")
	params.Set("_txlock", "immediate")

	if path == ":memory:" || path == "" {
		return "file::memory:?" + params.Encode(), true
	}
	params.Add("_pragma", "journal_mode(wal)")
	if strings.HasPrefix(path, "file:") {
		return path, false
	}
	return "file:" + path + "?" + params.Encode(), false
}

// Path returns the database path the store was opened with.
func (s *SQLiteStorage) Path() string {
	return s.dbPath
}

// UnderlyingDB exposes the connection pool for maintenance commands and tests.
func (s *SQLiteStorage) UnderlyingDB() *sql.DB {
	return s.db
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// RunInTransaction executes fn inside one database transaction.
// fn's error (or a panic) rolls the transaction back.
func (s *SQLiteStorage) RunInTransaction(ctx context.Context, fn func(tx storage.Transaction) error) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return fn(&executor{q: tx})
	})
}

func (s *SQLiteStorage) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storage.Wrap("begin transaction", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		_ = tx.Rollback()
		if r := recover(); r != nil {
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return storage.Wrap("commit transaction", err)
	}
	committed = true
	return nil
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// executor implements storage.Transaction against either the pool or an
// open transaction.
type executor struct {
	q queryer
}

var _ storage.Transaction = (*executor)(nil)
