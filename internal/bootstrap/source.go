package bootstrap

import (
	"fmt"

	"tablesync/internal/store"
)

// Config selects where a peer's initial snapshot comes from.
type Config struct {
	Source       string `mapstructure:"source"`
	Path         string `mapstructure:"path"`
	Seed         int64  `mapstructure:"seed"`
	Tables       int    `mapstructure:"tables"`
	Reservations int    `mapstructure:"reservations"`
}

// NewLoader returns the loader for cfg.Source: fixture, sqlite or demo.
func NewLoader(cfg Config) (store.Loader, error) {
	switch cfg.Source {
	case "fixture":
		if cfg.Path == "" {
			return nil, fmt.Errorf("bootstrap source fixture needs a path")
		}
		return Fixture{Path: cfg.Path}, nil
	case "sqlite":
		if cfg.Path == "" {
			return nil, fmt.Errorf("bootstrap source sqlite needs a path")
		}
		return SQLite{Path: cfg.Path}, nil
	case "demo", "":
		return Demo{Seed: cfg.Seed, Tables: cfg.Tables, Reservations: cfg.Reservations}, nil
	default:
		return nil, fmt.Errorf("unknown bootstrap source %q", cfg.Source)
	}
}
