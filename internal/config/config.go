// Package config reads the hashfsm runtime configuration from the
// environment (HASHFSM_ prefix) and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/aretw0/hashfsm/internal/logging"
	"github.com/aretw0/hashfsm/pkg/adapters/redis"
	"github.com/aretw0/hashfsm/pkg/registry"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// EnvPrefix is prepended to every variable name.
const EnvPrefix = "HASHFSM_"

// Backend names.
const (
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Config is the runtime configuration shared by every command.
type Config struct {
	Redis redis.Config

	Backend      string        `env:"BACKEND" envDefault:"redis"`
	LogLevel     string        `env:"LOG_LEVEL" envDefault:"info"`
	Strategy     string        `env:"STRATEGY" envDefault:"direct"`
	PrefixPolicy string        `env:"PREFIX_POLICY" envDefault:"overwrite"`
	HTTPAddr     string        `env:"HTTP_ADDR" envDefault:":8080"`
	LockTTL      time.Duration `env:"LOCK_TTL" envDefault:"30s"`

	// Snapshot is the file the memory backend restores on start and writes
	// on shutdown. Empty disables persistence.
	Snapshot string `env:"SNAPSHOT"`
}

// Load reads the given .env files (".env" when none is given; missing files
// are ignored), then parses the environment into a Config and validates it.
// Variables already set in the process win over the files.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("%w: %s: %w", ErrParsingConfig, f, err)
		}
	}

	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, errors.Join(ErrParsingConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the enumerated settings.
func (c Config) Validate() error {
	var errs []error
	switch c.Backend {
	case BackendRedis, BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("backend %q (want redis or memory)", c.Backend))
	}
	switch c.Strategy {
	case "direct", "locked", "cas":
	default:
		errs = append(errs, fmt.Errorf("strategy %q (want direct, locked or cas)", c.Strategy))
	}
	if _, err := registry.ParsePrefixPolicy(c.PrefixPolicy); err != nil {
		errs = append(errs, err)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.LockTTL <= 0 {
		errs = append(errs, fmt.Errorf("lock ttl must be positive, got %s", c.LockTTL))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// Level returns the parsed log level.
func (c Config) Level() slog.Level {
	level, _ := logging.ParseLevel(c.LogLevel)
	return level
}

// Policy returns the parsed prefix policy.
func (c Config) Policy() registry.PrefixPolicy {
	p, _ := registry.ParsePrefixPolicy(c.PrefixPolicy)
	return p
}
