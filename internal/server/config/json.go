package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/msauth/internal/flagx"
	"github.com/dmitrijs2005/msauth/internal/timex"
)

// JsonConfig is the on-disk form of Config. Durations are timex.Duration so
// the file may say "2h", "1d" or integer seconds. Fields left out of the
// file keep their previous value.
type JsonConfig struct {
	GRPCAddr       string         `json:"grpc_addr"`
	HTTPAddr       string         `json:"http_addr"`
	DatabaseDSN    string         `json:"database_dsn"`
	JWTSecret      string         `json:"jwt_secret_key"`
	TokenTTL       timex.Duration `json:"jwt_expires_in"`
	CipherSecret   string         `json:"aes_secret_key"`
	LogLevel       string         `json:"log_level"`
	S3AccessKey    string         `json:"s3_access_key"`
	S3SecretKey    string         `json:"s3_secret_key"`
	S3Bucket       string         `json:"s3_bucket"`
	S3Region       string         `json:"s3_region"`
	S3BaseEndpoint string         `json:"s3_endpoint"`
	S3Prefix       string         `json:"s3_prefix"`
}

// parseJSON loads the file named by -c/-config (or $CONFIG). No file named
// means nothing to do.
func parseJSON(cfg *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var c JsonConfig
	if err := json.Unmarshal(b, &c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	set(&cfg.GRPCAddr, c.GRPCAddr)
	set(&cfg.HTTPAddr, c.HTTPAddr)
	set(&cfg.DatabaseDSN, c.DatabaseDSN)
	set(&cfg.JWTSecret, c.JWTSecret)
	set(&cfg.CipherSecret, c.CipherSecret)
	set(&cfg.LogLevel, c.LogLevel)
	set(&cfg.S3AccessKey, c.S3AccessKey)
	set(&cfg.S3SecretKey, c.S3SecretKey)
	set(&cfg.S3Bucket, c.S3Bucket)
	set(&cfg.S3Region, c.S3Region)
	set(&cfg.S3BaseEndpoint, c.S3BaseEndpoint)
	set(&cfg.S3Prefix, c.S3Prefix)
	if c.TokenTTL.Duration != 0 {
		cfg.TokenTTL = c.TokenTTL.Duration
	}
	return nil
}

func set(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
