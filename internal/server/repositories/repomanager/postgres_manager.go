package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/msauth/internal/dbx"
	"github.com/dmitrijs2005/msauth/internal/server/migrations"
	"github.com/dmitrijs2005/msauth/internal/server/repositories/users"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

type PostgresRepositoryManager struct{}

func (m *PostgresRepositoryManager) DriverName() string { return "pgx" }

func (m *PostgresRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	return runMigrations(ctx, goose.DialectPostgres, db, migrations.Postgres, "postgres")
}
