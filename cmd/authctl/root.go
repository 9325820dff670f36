package main

import (
	"context"

	"github.com/dmitrijs2005/msauth/internal/server"
	"github.com/dmitrijs2005/msauth/internal/server/config"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command. Configuration follows the server:
// defaults, the --config file, then environment variables.
func NewRootCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:           "authctl",
		Short:         "Administer the msauth user store",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	load := func(ctx context.Context) (*server.App, error) {
		return openApp(ctx, configFile)
	}

	cmd.AddCommand(NewMigrateCmd(load))
	cmd.AddCommand(NewRegisterCmd(load))
	cmd.AddCommand(NewResetPasswordCmd(load))
	cmd.AddCommand(NewSetStatusCmd(load))
	cmd.AddCommand(NewValidateTokenCmd(load))
	cmd.AddCommand(NewExportCmd(load))

	return cmd
}

type appLoader func(ctx context.Context) (*server.App, error)

// openApp builds and initialises the app. The caller closes it.
func openApp(ctx context.Context, configFile string) (*server.App, error) {
	var args []string
	if configFile != "" {
		args = []string{"-c", configFile}
	}

	cfg, err := config.Load(args)
	if err != nil {
		return nil, oops.Code("CONFIG_INVALID").With("operation", "load config").Wrap(err)
	}

	app, err := server.NewApp(cfg)
	if err != nil {
		return nil, oops.Code("CONFIG_INVALID").With("operation", "build app").Wrap(err)
	}

	if err := app.Init(ctx); err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	return app, nil
}
