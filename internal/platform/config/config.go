// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles console and mock-backend settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into strongly-typed
Go structs, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (session store, backend client) via constructors.
  - Zero Hidden State: No global variables are used to store config.
*/
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/taibuivan/storeconsole/internal/platform/constants"
)

// # Store Backends

// Supported session store backends.
const (
	StoreFile   = "file"
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

// # Configuration Schema

// Config holds all runtime configuration for the console client.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	Debug       bool   `env:"DEBUG"       envDefault:"false"`

	// REST backend
	APIURL      string        `env:"CONSOLE_API_URL"      envDefault:"http://localhost:3000/api"`
	HTTPTimeout time.Duration `env:"CONSOLE_HTTP_TIMEOUT" envDefault:"30s"`

	// RateLimitRPS caps outgoing requests per second. Zero disables the limiter.
	RateLimitRPS float64 `env:"CONSOLE_RATE_LIMIT_RPS" envDefault:"0"`

	// Durable session storage
	Store       string `env:"CONSOLE_STORE"        envDefault:"file"`
	StorePath   string `env:"CONSOLE_STORE_PATH"`
	RedisURL    string `env:"CONSOLE_REDIS_URL"`
	RedisPrefix string `env:"CONSOLE_REDIS_PREFIX" envDefault:"console:session:"`
}

// MockConfig holds the runtime configuration of the mock REST backend.
type MockConfig struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	Debug       bool   `env:"DEBUG"       envDefault:"false"`

	ServerPort string `env:"MOCKAPI_PORT" envDefault:"3000"`

	// JWTSecret signs HS256 access tokens.
	JWTSecret  string        `env:"MOCKAPI_JWT_SECRET,required,notEmpty"`
	AccessTTL  time.Duration `env:"MOCKAPI_ACCESS_TTL"  envDefault:"15m"`
	RefreshTTL time.Duration `env:"MOCKAPI_REFRESH_TTL" envDefault:"168h"`
	HashCost   int           `env:"MOCKAPI_HASH_COST"   envDefault:"10"`

	// Seed account passwords. Empty disables the account.
	OwnerPassword    string `env:"MOCKAPI_OWNER_PASSWORD"    envDefault:"Owner#2026pass"`
	EmployeePassword string `env:"MOCKAPI_EMPLOYEE_PASSWORD" envDefault:"Staff#2026pass"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	// The file store defaults to the per-user config directory.
	if cfg.Store == StoreFile && cfg.StorePath == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("config: resolve user config dir: %w", err)
		}
		cfg.StorePath = filepath.Join(dir, constants.AppName, "session.json")
	}

	return cfg, nil
}

// LoadMock parses environment variables into a [MockConfig] struct.
func LoadMock() (*MockConfig, error) {
	cfg := &MockConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Store {
	case StoreFile, StoreMemory:
	case StoreRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("config: CONSOLE_REDIS_URL is required when CONSOLE_STORE=redis")
		}
	default:
		return fmt.Errorf("config: unknown CONSOLE_STORE %q", c.Store)
	}

	if c.RateLimitRPS < 0 {
		return fmt.Errorf("config: CONSOLE_RATE_LIMIT_RPS must not be negative")
	}

	return nil
}

// IsDevelopment reports whether the console is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the console is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
