package config

import (
	"fmt"
	"reflect"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/dmitrijs2005/msauth/internal/timex"
)

// parseEnv overlays variables that are set; unset variables leave the field
// as it is. Durations accept the timex forms, so JWT_EXPIRES_IN=1d works.
func parseEnv(cfg *Config) error {
	err := env.ParseWithOptions(cfg, env.Options{
		FuncMap: map[reflect.Type]env.ParserFunc{
			reflect.TypeOf(time.Duration(0)): func(v string) (any, error) {
				return timex.ParseDuration(v)
			},
		},
	})
	if err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}
	return nil
}
