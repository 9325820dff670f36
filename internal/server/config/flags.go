package config

import (
	"flag"
	"fmt"
	"io"

	"github.com/dmitrijs2005/msauth/internal/flagx"
	"github.com/dmitrijs2005/msauth/internal/timex"
)

// parseFlags applies the server flags found in args.
//
// Supported flags:
//
//	-a string   gRPC bind address (e.g. ":50051")
//	-w string   HTTP bind address (e.g. ":8080")
//	-d string   database DSN
//	-s string   JWT signing secret
//	-k string   stored-password cipher secret
//	-t duration token lifetime ("2h", "1d")
//	-l string   log level
//	-b string   S3 export bucket
//	-g string   S3 region
//	-e string   S3 base endpoint
//
// Other arguments are filtered out first so the flag set never sees flags
// owned by other components.
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-w", "-d", "-s", "-k", "-t", "-l", "-b", "-g", "-e"})

	fs := flag.NewFlagSet("msauth", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.GRPCAddr, "a", cfg.GRPCAddr, "gRPC bind address")
	fs.StringVar(&cfg.HTTPAddr, "w", cfg.HTTPAddr, "HTTP bind address")
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "database DSN")
	fs.StringVar(&cfg.JWTSecret, "s", cfg.JWTSecret, "JWT signing secret")
	fs.StringVar(&cfg.CipherSecret, "k", cfg.CipherSecret, "password cipher secret")
	fs.Func("t", "token lifetime", func(v string) error {
		d, err := timex.ParseDuration(v)
		if err != nil {
			return err
		}
		cfg.TokenTTL = d
		return nil
	})
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	fs.StringVar(&cfg.S3Bucket, "b", cfg.S3Bucket, "S3 export bucket")
	fs.StringVar(&cfg.S3Region, "g", cfg.S3Region, "S3 region")
	fs.StringVar(&cfg.S3BaseEndpoint, "e", cfg.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	return nil
}
