package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Load populates cfg from environment variables using `env` struct tags.
//
//	type Config struct {
//	    HTTPPort  int    `env:"HTTP_PORT" envDefault:"8080"`
//	    JWTSecret string `env:"JWT_SECRET"`
//	}
//
// Validation beyond parsing (port ranges, secret strength) belongs to the
// caller; this only maps the environment onto the struct.
func Load(cfg any) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}
	return nil
}
