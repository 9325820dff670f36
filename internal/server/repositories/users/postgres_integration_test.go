//go:build integration

package users_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/msauth/internal/common"
	"github.com/dmitrijs2005/msauth/internal/cryptox"
	"github.com/dmitrijs2005/msauth/internal/logging"
	"github.com/dmitrijs2005/msauth/internal/server/auth"
	"github.com/dmitrijs2005/msauth/internal/server/models"
	"github.com/dmitrijs2005/msauth/internal/server/services"
	"github.com/dmitrijs2005/msauth/internal/server/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startPostgres(t *testing.T) *storage.Storage {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:18-alpine",
		postgres.WithDatabase("msauth"),
		postgres.WithUsername("msauth"),
		postgres.WithPassword("msauth"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	st, err := storage.New(dsn, logging.Nop(), storage.DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, st.Init(ctx))
	t.Cleanup(func() { st.Close() })
	return st
}

func TestPostgres_RepositoryAndEngine(t *testing.T) {
	st := startPostgres(t)
	ctx := context.Background()

	db, err := st.DB()
	require.NoError(t, err)
	repo := st.Manager().Users(db)

	now := time.Now().UTC().Truncate(time.Microsecond)
	created, err := repo.Create(ctx, &models.User{
		Name: "Ann", Email: "ann@x.com", Password: "00:11",
		Status: models.StatusActive, Type: models.TypeUser,
		CreatedAt: now, UpdatedAt: now, CreatedBy: "system", UpdatedBy: "system",
	})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	_, err = repo.Create(ctx, &models.User{Name: "Dup", Email: "ann@x.com", Password: "x", Status: models.StatusActive, Type: models.TypeUser})
	assert.ErrorIs(t, err, common.ErrDuplicateEmail)

	got, err := repo.FindByEmail(ctx, "ann@x.com")
	require.NoError(t, err)
	assert.True(t, now.Equal(got.CreatedAt))

	c, err := cryptox.NewCipher("cipher-secret")
	require.NoError(t, err)
	svc := services.NewAuthService(db, st.Manager(), c, auth.NewTokenIssuer([]byte("signing"), time.Hour))

	_, err = svc.Register(ctx, models.Registration{Name: "Bob", Email: "bob@x.com", Password: "pw"})
	require.NoError(t, err)

	res, err := svc.Login(ctx, "bob@x.com", "pw")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)

	_, err = svc.UpdateUser(ctx, res.User.ID, models.UserUpdate{Email: ptr("ann@x.com")})
	assert.ErrorIs(t, err, common.ErrEmailConflict)
}

// Concurrent registrations of one email leave exactly one record; the losers
// see DuplicateEmail from either the lookup or the unique index.
func TestPostgres_ConcurrentRegister(t *testing.T) {
	st := startPostgres(t)
	ctx := context.Background()

	db, err := st.DB()
	require.NoError(t, err)
	c, err := cryptox.NewCipher("cipher-secret")
	require.NoError(t, err)
	svc := services.NewAuthService(db, st.Manager(), c, auth.NewTokenIssuer([]byte("signing"), time.Hour))

	const n = 8
	var (
		wg   sync.WaitGroup
		errs = make([]error, n)
	)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = svc.Register(ctx, models.Registration{Name: fmt.Sprintf("U%d", i), Email: "race@x.com", Password: "pw"})
		}()
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, common.ErrDuplicateEmail)
	}
	assert.Equal(t, 1, ok)

	all, err := st.Manager().Users(db).List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func ptr[T any](v T) *T { return &v }
