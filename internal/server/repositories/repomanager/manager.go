// Package repomanager vends dialect-specific repositories bound to a DBTX
// (a *sql.DB or a *sql.Tx) and runs the matching embedded goose migrations.
package repomanager

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"strings"

	"github.com/dmitrijs2005/msauth/internal/dbx"
	"github.com/dmitrijs2005/msauth/internal/server/repositories/users"
	"github.com/pressly/goose/v3"
)

type RepositoryManager interface {
	// DriverName is the database/sql driver the manager expects.
	DriverName() string
	RunMigrations(ctx context.Context, db *sql.DB) error
	Users(db dbx.DBTX) users.Repository
}

// ForDSN picks a manager by DSN scheme and returns it with the DSN rewritten
// for its driver. "postgres://" and "postgresql://" select PostgreSQL;
// "sqlite:" and "file:" select SQLite.
func ForDSN(dsn string) (RepositoryManager, string, error) {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return &PostgresRepositoryManager{}, dsn, nil
	case strings.HasPrefix(dsn, "sqlite:"):
		return &SQLiteRepositoryManager{}, strings.TrimPrefix(strings.TrimPrefix(dsn, "sqlite:"), "//"), nil
	case strings.HasPrefix(dsn, "file:"):
		return &SQLiteRepositoryManager{}, dsn, nil
	default:
		return nil, "", fmt.Errorf("unsupported database DSN scheme: %q", scheme(dsn))
	}
}

func scheme(dsn string) string {
	if i := strings.Index(dsn, ":"); i > 0 {
		return dsn[:i]
	}
	return ""
}

// gooseUp is a seam for testing migrations without a database.
var gooseUp = func(ctx context.Context, dialect goose.Dialect, db *sql.DB, fsys fs.FS) error {
	p, err := goose.NewProvider(dialect, db, fsys)
	if err != nil {
		return err
	}
	_, err = p.Up(ctx)
	return err
}

func runMigrations(ctx context.Context, dialect goose.Dialect, db *sql.DB, root fs.FS, dir string) error {
	fsys, err := fs.Sub(root, dir)
	if err != nil {
		return fmt.Errorf("migrations fs: %w", err)
	}
	if err := gooseUp(ctx, dialect, db, fsys); err != nil {
		return fmt.Errorf("migrate %s: %w", dialect, err)
	}
	return nil
}
