// Package storage owns the process-wide database handle. A Storage is created
// once at startup from the configured DSN; Init opens the connection, waits for
// the database to answer and applies migrations. Subsequent Init calls are
// no-ops.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/msauth/internal/logging"
	"github.com/dmitrijs2005/msauth/internal/server/repositories/repomanager"
	"github.com/sethvargo/go-retry"
)

var ErrNotInitialized = errors.New("storage is not initialized")

// Options tunes connection establishment.
type Options struct {
	// PingAttempts bounds how many times the initial ping is tried.
	PingAttempts uint64
	// PingBackoff is the first delay between pings; it doubles on each retry.
	PingBackoff time.Duration
	// SkipMigrations leaves the schema untouched.
	SkipMigrations bool
}

func DefaultOptions() Options {
	return Options{PingAttempts: 5, PingBackoff: 200 * time.Millisecond}
}

type Storage struct {
	dsn     string
	opts    Options
	logger  logging.Logger
	manager repomanager.RepositoryManager
	driver  string

	mu          sync.Mutex
	initialized bool
	db          *sql.DB

	open func(driver, dsn string) (*sql.DB, error)
}

// New validates the DSN scheme but does not touch the database.
func New(dsn string, logger logging.Logger, opts Options) (*Storage, error) {
	m, driverDSN, err := repomanager.ForDSN(dsn)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.Nop()
	}
	if opts.PingAttempts == 0 {
		opts.PingAttempts = 1
	}
	if opts.PingBackoff <= 0 {
		opts.PingBackoff = DefaultOptions().PingBackoff
	}
	return &Storage{
		dsn:     driverDSN,
		opts:    opts,
		logger:  logger,
		manager: m,
		driver:  m.DriverName(),
		open:    sql.Open,
	}, nil
}

// Init opens the database and runs migrations exactly once. A failed Init
// leaves the Storage uninitialized so it can be retried.
func (s *Storage) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return nil
	}

	db, err := s.open(s.driver, s.dsn)
	if err != nil {
		return fmt.Errorf("open %s: %w", s.driver, err)
	}
	if s.driver == "sqlite" {
		// sqlite serialises writers; a single connection also keeps
		// in-memory databases alive across queries.
		db.SetMaxOpenConns(1)
	}

	if err := s.ping(ctx, db); err != nil {
		db.Close()
		return err
	}

	if !s.opts.SkipMigrations {
		if err := s.manager.RunMigrations(ctx, db); err != nil {
			db.Close()
			return err
		}
	}

	s.db = db
	s.initialized = true
	s.logger.Info(ctx, "storage initialized", "driver", s.driver)
	return nil
}

func (s *Storage) ping(ctx context.Context, db *sql.DB) error {
	b := retry.NewExponential(s.opts.PingBackoff)
	b = retry.WithMaxRetries(s.opts.PingAttempts-1, b)

	attempt := 0
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		if err := db.PingContext(ctx); err != nil {
			s.logger.Warn(ctx, "database ping failed", "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("ping %s: %w", s.driver, err)
	}
	return nil
}

func (s *Storage) Initialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialized
}

// DB returns the open handle, or ErrNotInitialized before a successful Init.
func (s *Storage) DB() (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return nil, ErrNotInitialized
	}
	return s.db, nil
}

func (s *Storage) Manager() repomanager.RepositoryManager {
	return s.manager
}

// Close releases the handle. The Storage may be initialized again afterwards.
func (s *Storage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return nil
	}
	s.initialized = false
	db := s.db
	s.db = nil
	return db.Close()
}
