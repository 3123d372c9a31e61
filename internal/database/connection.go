package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/example/vocabmaster/internal/logger"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"

	defaultTimeout = 5 * time.Second
)

// Clock stamps rows the store writes on its own behalf
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Options configures a Store
type Options struct {
	Driver  string        // sqlite3 or postgres
	DSN     string        // file path for sqlite3, connection string for postgres
	Timeout time.Duration // per-operation deadline
	Clock   Clock         // defaults to the system clock
	Logger  *logger.Logger
}

// Store is the persistent, user-partitioned progress store. A Store is safe for
// concurrent use once Init has returned successfully.
type Store struct {
	db      *sqlx.DB
	log     *logger.Logger
	clock   Clock
	timeout time.Duration

	mu    sync.RWMutex
	ready bool
}

// Open connects to the database. The store refuses work until Init is called.
func Open(opts Options) (*Store, error) {
	if opts.Driver == "" {
		opts.Driver = DriverSQLite
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.Clock == nil {
		opts.Clock = systemClock{}
	}

	if opts.Driver == DriverSQLite && opts.DSN != ":memory:" {
		if dir := filepath.Dir(opts.DSN); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create data directory: %w", err)
			}
		}
	}

	db, err := sqlx.Open(opts.Driver, opts.DSN)
	if err != nil {
		return nil, unavailable("open", err)
	}

	if opts.Driver == DriverSQLite {
		// SQLite doesn't support multiple writers
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	return &Store{
		db:      db,
		log:     opts.Logger.With("component", "store", "driver", opts.Driver),
		clock:   opts.Clock,
		timeout: opts.Timeout,
	}, nil
}

// Init verifies the connection and brings every collection to its current schema
// version. It is idempotent.
func (s *Store) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return nil
	}

	if err := s.db.PingContext(ctx); err != nil {
		return unavailable("init", err)
	}

	if s.db.DriverName() == DriverSQLite {
		for _, pragma := range []string{
			"PRAGMA journal_mode = WAL",
			"PRAGMA synchronous = NORMAL",
			"PRAGMA busy_timeout = 5000",
			"PRAGMA foreign_keys = ON",
		} {
			if _, err := s.db.ExecContext(ctx, pragma); err != nil {
				return unavailable("init", fmt.Errorf("%s: %w", pragma, err))
			}
		}
	}

	if err := s.migrate(ctx, migrations); err != nil {
		return err
	}

	s.ready = true
	s.log.Info("store ready")
	return nil
}

// Ready reports whether Init has completed
func (s *Store) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// Close closes the database connection
func (s *Store) Close() error {
	s.mu.Lock()
	s.ready = false
	s.mu.Unlock()
	return s.db.Close()
}

// begin checks readiness and derives the per-operation deadline
func (s *Store) begin(ctx context.Context) (context.Context, context.CancelFunc, error) {
	if !s.Ready() {
		return nil, nil, ErrNotReady
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	return ctx, cancel, nil
}

// inTx runs fn inside a transaction, rolling back on any error
func (s *Store) inTx(ctx context.Context, op string, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return unavailable(op, err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return unavailable(op, err)
	}
	return nil
}

// WipeAll deletes every row in every collection. Schema versions are kept.
func (s *Store) WipeAll(ctx context.Context) error {
	ctx, cancel, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	err = s.inTx(ctx, "wipe", func(tx *sqlx.Tx) error {
		for _, table := range collectionTables {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return unavailable("wipe", fmt.Errorf("%s: %w", table, err))
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.log.Warn("all collections wiped")
	return nil
}
