package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Env holds process-level settings. Flags override these at startup.
type Env struct {
	Addr       string `env:"FH_ADDR" envDefault:":8000"`
	DataDir    string `env:"FH_DATA" envDefault:"./data"`
	StaticDir  string `env:"FH_STATIC" envDefault:"./static"`
	TuningPath string `env:"FH_TUNING"`
	LogFile    string `env:"FH_LOG_FILE" envDefault:"foxhollow.log"`
	Seed       int64  `env:"FH_SEED" envDefault:"0"`
}

// ParseEnv loads Env from the process environment.
func ParseEnv() (Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return e, fmt.Errorf("parse env: %w", err)
	}
	return e, nil
}
