// Package server assembles the auth service: configuration, logger, cipher,
// token issuer, storage and engine, plus the gRPC and HTTP transports that
// serve it.
package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/msauth/internal/cryptox"
	"github.com/dmitrijs2005/msauth/internal/logging"
	"github.com/dmitrijs2005/msauth/internal/server/auth"
	"github.com/dmitrijs2005/msauth/internal/server/config"
	"github.com/dmitrijs2005/msauth/internal/server/export"
	gs "github.com/dmitrijs2005/msauth/internal/server/grpc"
	hs "github.com/dmitrijs2005/msauth/internal/server/http"
	"github.com/dmitrijs2005/msauth/internal/server/metrics"
	"github.com/dmitrijs2005/msauth/internal/server/services"
	"github.com/dmitrijs2005/msauth/internal/server/storage"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	cipher  *cryptox.Cipher
	tokens  *auth.TokenIssuer
	storage *storage.Storage
	metrics *metrics.Metrics

	mu   sync.Mutex
	auth *services.AuthService
}

// NewApp validates c and builds everything that does not need the database.
// Missing secrets are reported here so the process fails at startup.
func NewApp(c *config.Config) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger := logging.NewJSON(os.Stdout, c.LogLevel)

	cipher, err := cryptox.NewCipher(c.CipherSecret)
	if err != nil {
		return nil, fmt.Errorf("cipher init error: %w", err)
	}

	st, err := storage.New(c.DatabaseDSN, logger, storage.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	return &App{
		config:  c,
		logger:  logger,
		cipher:  cipher,
		tokens:  auth.NewTokenIssuer([]byte(c.JWTSecret), c.TokenTTL),
		storage: st,
		metrics: metrics.New(),
	}, nil
}

// Init connects storage and builds the engine. It is safe to call more
// than once.
func (app *App) Init(ctx context.Context) error {
	app.mu.Lock()
	defer app.mu.Unlock()

	if err := app.storage.Init(ctx); err != nil {
		return fmt.Errorf("db init error: %w", err)
	}
	if app.auth != nil {
		return nil
	}

	db, err := app.storage.DB()
	if err != nil {
		return err
	}
	app.auth = services.NewAuthService(db, app.storage.Manager(), app.cipher, app.tokens,
		services.WithLogger(app.logger.With("module", "auth_service")))
	return nil
}

// Auth returns the engine, or nil before Init.
func (app *App) Auth() *services.AuthService {
	app.mu.Lock()
	defer app.mu.Unlock()
	return app.auth
}

func (app *App) Logger() logging.Logger {
	return app.logger
}

// Exporter builds a user exporter over the configured bucket.
func (app *App) Exporter(ctx context.Context) (*export.Exporter, error) {
	if !app.config.ExportEnabled() {
		return nil, export.ErrNotConfigured
	}
	a := app.Auth()
	if a == nil {
		return nil, storage.ErrNotInitialized
	}
	client, err := export.NewS3Client(ctx, app.config)
	if err != nil {
		return nil, err
	}
	return export.NewExporter(a, client, app.config.S3Bucket, app.config.S3Prefix, app.logger), nil
}

func (app *App) Close() error {
	return app.storage.Close()
}

func (app *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		defer signal.Stop(sigs)
		select {
		case <-sigs:
			cancelFunc()
		case <-ctx.Done():
		}
	}()
}

// Run initialises storage, then serves gRPC and HTTP until ctx is cancelled
// or a signal arrives. A transport that fails stops the other one too.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")
	app.initSignalHandler(ctx, cancelFunc)

	if err := app.Init(ctx); err != nil {
		return err
	}
	defer app.Close()

	var (
		wg   sync.WaitGroup
		errs = make(chan error, 2)
	)
	run := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil {
				app.logger.Error(ctx, name+" server failed", "error", err)
				errs <- fmt.Errorf("%s server: %w", name, err)
				cancelFunc()
			}
		}()
	}

	if app.config.GRPCAddr != "" {
		run("grpc", gs.NewGRPCServer(app.config.GRPCAddr, app.logger, app.Auth(), app.metrics).Run)
	}
	if app.config.HTTPAddr != "" {
		router := hs.NewRouter(app.Auth(), app.logger, app.metrics, app.storage.Initialized)
		run("http", hs.NewServer(app.config.HTTPAddr, router, app.logger).Run)
	}

	wg.Wait()
	close(errs)

	var all []error
	for err := range errs {
		all = append(all, err)
	}
	app.logger.Info(context.WithoutCancel(ctx), "App stopped")
	return errors.Join(all...)
}
