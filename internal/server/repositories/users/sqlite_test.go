package users

import (
	"context"
	"database/sql"
	"io/fs"
	"testing"
	"time"

	"github.com/dmitrijs2005/msauth/internal/common"
	"github.com/dmitrijs2005/msauth/internal/server/migrations"
	"github.com/dmitrijs2005/msauth/internal/server/models"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteRepo(t *testing.T) *SQLiteRepository {
	t.Helper()

	db, err := sql.Open("sqlite", "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	fsys, err := fs.Sub(migrations.SQLite, "sqlite")
	require.NoError(t, err)
	p, err := goose.NewProvider(goose.DialectSQLite3, db, fsys)
	require.NoError(t, err)
	_, err = p.Up(context.Background())
	require.NoError(t, err)

	return NewSQLiteRepository(db)
}

func TestSQLite_CreateAndFind(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()

	u := sampleUser()
	created, err := repo.Create(ctx, u)
	require.NoError(t, err)
	require.NotZero(t, created.ID)

	byID, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@x.com", byID.Email)
	assert.Equal(t, models.StatusActive, byID.Status)
	assert.Equal(t, models.TypeUser, byID.Type)
	assert.True(t, u.CreatedAt.Equal(byID.CreatedAt))
	assert.True(t, u.UpdatedAt.Equal(byID.UpdatedAt))

	byEmail, err := repo.FindByEmail(ctx, "alice@x.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)

	_, err = repo.FindByEmail(ctx, "nobody@x.com")
	assert.ErrorIs(t, err, common.ErrorNotFound)
	_, err = repo.FindByID(ctx, 999)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestSQLite_UniqueEmail(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, sampleUser())
	require.NoError(t, err)

	_, err = repo.Create(ctx, sampleUser())
	assert.ErrorIs(t, err, common.ErrDuplicateEmail)

	other := sampleUser()
	other.Email = "bob@x.com"
	other, err = repo.Create(ctx, other)
	require.NoError(t, err)

	other.Email = "alice@x.com"
	_, err = repo.Update(ctx, other)
	assert.ErrorIs(t, err, common.ErrEmailConflict)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSQLite_UpdateDeleteList(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()

	u, err := repo.Create(ctx, sampleUser())
	require.NoError(t, err)

	u.Name = "Alice B."
	u.Status = models.StatusInactive
	u.UpdatedAt = u.UpdatedAt.Add(time.Minute)
	_, err = repo.Update(ctx, u)
	require.NoError(t, err)

	got, err := repo.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice B.", got.Name)
	assert.Equal(t, models.StatusInactive, got.Status)
	assert.True(t, u.UpdatedAt.Equal(got.UpdatedAt))

	missing := sampleUser()
	missing.ID = 12345
	_, err = repo.Update(ctx, missing)
	assert.ErrorIs(t, err, common.ErrorNotFound)

	require.NoError(t, repo.Delete(ctx, u.ID))
	assert.ErrorIs(t, repo.Delete(ctx, u.ID), common.ErrorNotFound)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}
