package server

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/msauth/internal/common"
	"github.com/dmitrijs2005/msauth/internal/server/config"
	"github.com/dmitrijs2005/msauth/internal/server/export"
	"github.com/dmitrijs2005/msauth/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	var c config.Config
	c.LoadDefaults()
	c.DatabaseDSN = "file:" + t.Name() + "?mode=memory&cache=shared"
	c.JWTSecret = "signing-secret"
	c.CipherSecret = "cipher-secret"
	c.GRPCAddr = "127.0.0.1:0"
	c.HTTPAddr = "127.0.0.1:0"
	c.LogLevel = "error"
	return &c
}

func TestNewApp_RejectsMissingSecrets(t *testing.T) {
	c := testConfig(t)
	c.JWTSecret = ""

	_, err := NewApp(c)
	assert.ErrorContains(t, err, "JWT secret")
}

func TestNewApp_RejectsUnknownDSN(t *testing.T) {
	c := testConfig(t)
	c.DatabaseDSN = "mysql://db/auth"

	_, err := NewApp(c)
	assert.ErrorContains(t, err, "storage init error")
}

func TestApp_InitWiresEngine(t *testing.T) {
	app, err := NewApp(testConfig(t))
	require.NoError(t, err)
	defer app.Close()

	assert.Nil(t, app.Auth())
	require.NoError(t, app.Init(context.Background()))
	require.NoError(t, app.Init(context.Background()))

	a := app.Auth()
	require.NotNil(t, a)

	ctx := context.Background()
	_, err = a.Register(ctx, models.Registration{Name: "Ann", Email: "ann@x.com", Password: "pw"})
	require.NoError(t, err)

	res, err := a.Login(ctx, "ann@x.com", "pw")
	require.NoError(t, err)

	claims, err := a.ValidateToken(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, "ann@x.com", claims.Email)

	_, err = a.Login(ctx, "ann@x.com", "nope")
	assert.ErrorIs(t, err, common.ErrInvalidCredentials)
}

func TestApp_ExporterRequiresBucket(t *testing.T) {
	app, err := NewApp(testConfig(t))
	require.NoError(t, err)

	_, err = app.Exporter(context.Background())
	assert.ErrorIs(t, err, export.ErrNotConfigured)
}

func TestApp_RunStopsOnCancel(t *testing.T) {
	app, err := NewApp(testConfig(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	time.Sleep(200 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop after cancel")
	}
}

func TestApp_RunReportsTransportFailure(t *testing.T) {
	c := testConfig(t)
	c.HTTPAddr = "127.0.0.1:99999"

	app, err := NewApp(c)
	require.NoError(t, err)

	select {
	case err := <-runAsync(app):
		assert.ErrorContains(t, err, "http server")
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop after transport failure")
	}
}

func runAsync(app *App) <-chan error {
	done := make(chan error, 1)
	go func() { done <- app.Run(context.Background()) }()
	return done
}
