package main

import (
	"encoding/json"

	"github.com/dmitrijs2005/msauth/internal/server/models"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
)

func NewMigrateCmd(load appLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.Println("Running migrations...")
			app, err := load(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			cmd.Println("Migrations completed successfully")
			return nil
		},
	}
}

func NewRegisterCmd(load appLoader) *cobra.Command {
	var (
		r        models.Registration
		status   string
		userType string
	)

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			password, err := passwordFlag(cmd, r.Password, "Password: ")
			if err != nil {
				return oops.Code("INPUT_FAILED").With("operation", "read password").Wrap(err)
			}
			r.Password = password
			r.Status = models.UserStatus(status)
			r.Type = models.UserType(userType)

			app, err := load(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			user, err := app.Auth().Register(cmd.Context(), r)
			if err != nil {
				return oops.Code("REGISTER_FAILED").With("email", r.Email).Wrap(err)
			}
			return printJSON(cmd, models.NewUserView(user))
		},
	}

	cmd.Flags().StringVar(&r.Name, "name", "", "display name")
	cmd.Flags().StringVar(&r.Email, "email", "", "email address")
	cmd.Flags().StringVar(&r.Password, "password", "", "password (prompted when omitted)")
	cmd.Flags().StringVar(&status, "status", "", "active or inactive")
	cmd.Flags().StringVar(&userType, "type", "", "admin or user")
	cmd.Flags().StringVar(&r.CreatedBy, "created-by", "", "audit actor")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func NewResetPasswordCmd(load appLoader) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Replace a user's password",
		RunE: func(cmd *cobra.Command, _ []string) error {
			password, err := passwordFlag(cmd, password, "New password: ")
			if err != nil {
				return oops.Code("INPUT_FAILED").With("operation", "read password").Wrap(err)
			}

			app, err := load(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			user, err := app.Auth().ResetPassword(cmd.Context(), email, password)
			if err != nil {
				return oops.Code("RESET_FAILED").With("email", email).Wrap(err)
			}
			return printJSON(cmd, models.NewUserView(user))
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "new password (prompted when omitted)")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func NewSetStatusCmd(load appLoader) *cobra.Command {
	var (
		id     int64
		status string
	)

	cmd := &cobra.Command{
		Use:   "set-status",
		Short: "Activate or deactivate an account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := models.UserStatus(status)
			if !s.Valid() {
				return oops.Code("INVALID_STATUS").With("status", status).Errorf("status must be active or inactive")
			}

			app, err := load(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			user, err := app.Auth().UpdateUser(cmd.Context(), id, models.UserUpdate{Status: &s})
			if err != nil {
				return oops.Code("UPDATE_FAILED").With("user_id", id).Wrap(err)
			}
			return printJSON(cmd, models.NewUserView(user))
		},
	}

	cmd.Flags().Int64Var(&id, "id", 0, "user id")
	cmd.Flags().StringVar(&status, "status", "", "active or inactive")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("status")

	return cmd
}

func NewValidateTokenCmd(load appLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "validate-token TOKEN",
		Short: "Verify a token and print its claims",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := load(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			claims, err := app.Auth().ValidateToken(cmd.Context(), args[0])
			if err != nil {
				return oops.Code("TOKEN_REJECTED").Wrap(err)
			}
			return printJSON(cmd, models.ValidateTokenResponse{Valid: true, Payload: claims})
		},
	}
}

func NewExportCmd(load appLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Upload all user records to the configured S3 bucket",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := load(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			exporter, err := app.Exporter(cmd.Context())
			if err != nil {
				return oops.Code("EXPORT_UNAVAILABLE").Wrap(err)
			}
			res, err := exporter.Export(cmd.Context())
			if err != nil {
				return oops.Code("EXPORT_FAILED").Wrap(err)
			}
			cmd.Printf("Exported %d users to %s\n", res.Count, res.URI())
			return nil
		},
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
