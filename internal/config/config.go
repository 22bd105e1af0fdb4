package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"crowdfund-escrow/internal/config/configs"
)

// Storage backends accepted by Config.Storage.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config aggregates all configuration sections for the application. Fields
// are populated from environment variables using the caarlos0/env library. The
// nested structs are tagged with envPrefix so their fields are parsed with
// the given prefix. See the individual types in the configs package for
// default values and options. Use Load to construct a Config.
type Config struct {
	// Env specifies the deployment environment (e.g. prod, dev). It is
	// attached to every log record.
	Env string `env:"ENV" envDefault:"prod"`

	// Storage selects where campaigns live: "postgres" or "memory".
	Storage string `env:"STORAGE" envDefault:"postgres"`

	// Seed deploys a demo campaign on startup.
	Seed bool `env:"SEED" envDefault:"false"`

	// HTTP holds configuration for the HTTP server. Environment variables
	// prefixed with HTTP_ will populate this struct.
	HTTP configs.HTTP `envPrefix:"HTTP_"`

	// Log configures the structured logger. Environment variables prefixed
	// with LOG_ will populate this struct.
	Log configs.Logger `envPrefix:"LOG_"`

	// Psql configures the PostgreSQL connection. Environment variables
	// prefixed with PSQL_ will populate this struct.
	Psql configs.Postgres `envPrefix:"PSQL_"`

	// Auth configures caller identification. Environment variables
	// prefixed with AUTH_ will populate this struct.
	Auth configs.Auth `envPrefix:"AUTH_"`

	// AMQP configures event publishing. Environment variables prefixed
	// with AMQP_ will populate this struct.
	AMQP configs.AMQP `envPrefix:"AMQP_"`
}

// Load reads configuration from environment variables into a Config. A
// .env file in the working directory, if present, is loaded first; values
// already set in the environment win. All fields are loaded with their
// specified defaults when no environment variable is provided.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, err
	}
	switch cfg.Storage {
	case StoragePostgres, StorageMemory:
	default:
		return cfg, fmt.Errorf("unknown STORAGE %q", cfg.Storage)
	}
	return cfg, nil
}
