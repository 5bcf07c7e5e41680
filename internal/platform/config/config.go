// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values. A local '.env' file
is loaded first when present so that editors can keep credentials next to the
binary during development.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (cache, clients) via constructors.
  - Zero Hidden State: No global variables are used to store config.
*/
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// # Cache Drivers

const (
	CacheDriverFile   = "file"
	CacheDriverMemory = "memory"
	CacheDriverRedis  = "redis"
)

// # Configuration Schema

// Config holds all runtime configuration for the Lexdesk client.
type Config struct {

	// Console settings
	ConsolePort string `env:"CONSOLE_PORT" envDefault:"8090"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Backend REST API (profiles, articles)
	APIBaseURL  string        `env:"API_BASE_URL,required,notEmpty"`
	SyncTimeout time.Duration `env:"SYNC_TIMEOUT" envDefault:"10s"`

	// Hosted identity provider
	IdentityBaseURL       string `env:"IDENTITY_BASE_URL,required,notEmpty"`
	IdentityAPIKey        string `env:"IDENTITY_API_KEY"`
	IdentityIssuer        string `env:"IDENTITY_ISSUER"`
	IdentityAudience      string `env:"IDENTITY_AUDIENCE"`
	IdentityJWTSecret     string `env:"IDENTITY_JWT_SECRET"`
	IdentityPublicKeyPath string `env:"IDENTITY_PUBLIC_KEY_PATH"`

	// Session cache
	CacheDriver string `env:"CACHE_DRIVER" envDefault:"file"`
	CachePath   string `env:"CACHE_PATH"`
	CacheSecret string `env:"CACHE_SECRET"`
	CachePrefix string `env:"CACHE_PREFIX" envDefault:"lexdesk:session:"`
	RedisURL    string `env:"REDIS_URL"`

	// Cross-Origin Resource Sharing
	ExtraOrigins string `env:"EXTRA_ORIGINS"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {

	// A missing .env file is normal outside development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: failed to read .env file: %w", err)
	}

	cfg := &Config{}

	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate checks cross-field constraints that struct tags cannot express.
func (c *Config) validate() error {
	switch c.CacheDriver {
	case CacheDriverFile, CacheDriverMemory:
	case CacheDriverRedis:
		if c.RedisURL == "" {
			return errors.New("config: REDIS_URL is required when CACHE_DRIVER=redis")
		}
	default:
		return fmt.Errorf("config: unknown CACHE_DRIVER %q", c.CacheDriver)
	}

	if c.IdentityJWTSecret == "" && c.IdentityPublicKeyPath == "" {
		return errors.New("config: one of IDENTITY_JWT_SECRET or IDENTITY_PUBLIC_KEY_PATH is required")
	}

	if c.SyncTimeout <= 0 {
		return errors.New("config: SYNC_TIMEOUT must be positive")
	}

	return nil
}

// SessionFile returns the on-disk location of the file cache.
//
// CACHE_PATH wins when set; otherwise the file lives in the user config directory.
func (c *Config) SessionFile() (string, error) {
	if c.CachePath != "" {
		return c.CachePath, nil
	}

	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("config: resolve user config dir: %w", err)
	}
	return filepath.Join(dir, "lexdesk", "session.json"), nil
}

// IsDevelopment reports whether the client is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the client is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
