// Package store provides the SQLite-backed durable storage for llm-router.
//
// Three tables live in a single database file: settings (key/value overrides),
// providers (registered upstream backends), and request_logs (append-only
// telemetry). The database is opened with a single writer connection and WAL
// mode, which is plenty for a local desktop tool and keeps write ordering
// deterministic.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Storage errors. API layers map these to structured HTTP errors.
var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("store: not found")

	// ErrDuplicate is returned on unique-constraint violations
	// (provider id, telemetry request id).
	ErrDuplicate = errors.New("store: duplicate")

	// ErrUnavailable is returned when the database cannot be reached
	// or a statement fails for reasons other than a constraint.
	ErrUnavailable = errors.New("store: unavailable")
)

const defaultBusyTimeout = 5 * time.Second

// Options describes parameters for opening a store.
type Options struct {
	// Path is the database file path. ":memory:" is accepted for tests.
	Path string

	// BusyTimeout is how long SQLite waits on a locked database.
	// Defaults to 5s.
	BusyTimeout time.Duration
}

// Store provides access to the llm-router database.
type Store struct {
	db *sql.DB
}

// Open initialises the database at opts.Path, applying pragmas and schema.
func Open(opts Options) (*Store, error) {
	if opts.Path == "" {
		return nil, errors.New("store: path is required")
	}
	if opts.BusyTimeout <= 0 {
		opts.BusyTimeout = defaultBusyTimeout
	}

	db, err := sql.Open("sqlite", opts.Path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", opts.Path, err)
	}

	// Single writer connection keeps statement ordering deterministic and
	// avoids SQLITE_BUSY between concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := applyPragmas(ctx, db, opts.BusyTimeout); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := applySchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return wrapUnavailable("ping", err)
	}
	return nil
}

func applyPragmas(ctx context.Context, db *sql.DB, busyTimeout time.Duration) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		fmt.Sprintf("PRAGMA busy_timeout=%d", busyTimeout.Milliseconds()),
		"PRAGMA foreign_keys=ON",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("store: %s: %w", pragma, err)
		}
	}
	return nil
}

func applySchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("store: apply schema: %w", err)
	}
	return nil
}

// withTx runs fn inside a transaction, rolling back on error.
func (s *Store) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapUnavailable("begin tx", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return wrapUnavailable("commit tx", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a SQLite unique-constraint failure.
// modernc.org/sqlite surfaces these as "UNIQUE constraint failed: <table>.<col>".
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func wrapUnavailable(op string, err error) error {
	return fmt.Errorf("store: %s: %w (cause: %v)", op, ErrUnavailable, err)
}
