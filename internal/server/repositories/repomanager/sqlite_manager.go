package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/msauth/internal/dbx"
	"github.com/dmitrijs2005/msauth/internal/server/migrations"
	"github.com/dmitrijs2005/msauth/internal/server/repositories/users"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

// SQLiteRepositoryManager backs the service with a local SQLite file, for
// development and single-node deployments.
type SQLiteRepositoryManager struct{}

func (m *SQLiteRepositoryManager) DriverName() string { return "sqlite" }

func (m *SQLiteRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	return runMigrations(ctx, goose.DialectSQLite3, db, migrations.SQLite, "sqlite")
}
