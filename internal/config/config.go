// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Picohost Contributors

// Package config loads and validates picohost configuration.
//
// Precedence, lowest to highest: built-in defaults, YAML config file,
// command-line flags, environment variables. Secrets (database URL, admin
// credentials) are expected from the environment in production.
package config

import (
	"os"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// Environment variable overrides.
const (
	EnvDatabaseURL   = "DATABASE_URL"
	EnvAdminUsername = "PICOHOST_ADMIN_USERNAME"
	EnvAdminPassword = "PICOHOST_ADMIN_PASSWORD"
)

// Config is the full picohost service configuration.
type Config struct {
	// BindAddr is the HTTP API listen address.
	BindAddr string `koanf:"bind_addr" json:"bind_addr,omitempty"`

	// MetricsAddr is the metrics/health listen address (empty = disabled).
	MetricsAddr string `koanf:"metrics_addr" json:"metrics_addr,omitempty"`

	// DatabaseURL is the PostgreSQL connection string.
	DatabaseURL string `koanf:"database_url" json:"database_url,omitempty"`

	// LogFormat selects the slog handler: "json" or "text".
	LogFormat string `koanf:"log_format" json:"log_format,omitempty" jsonschema:"enum=json,enum=text"`

	CORS  CORSConfig  `koanf:"cors" json:"cors,omitempty"`
	Admin AdminConfig `koanf:"admin" json:"admin,omitempty"`
}

// CORSConfig controls cross-origin request handling for the API.
type CORSConfig struct {
	// AllowedOrigins are glob patterns matched against the Origin header,
	// e.g. "https://panel.example.com" or "https://*.example.com".
	AllowedOrigins []string `koanf:"allowed_origins" json:"allowed_origins,omitempty"`
}

// AdminConfig holds the initial admin credentials consumed by bootstrap.
type AdminConfig struct {
	Username string `koanf:"username" json:"username,omitempty"`
	Password string `koanf:"password" json:"password,omitempty"`
}

// Default returns the built-in configuration defaults.
func Default() Config {
	return Config{
		BindAddr:    ":8080",
		MetricsAddr: "127.0.0.1:9100",
		LogFormat:   "json",
	}
}

// Load builds the effective configuration. path may be empty (no config
// file); flags may be nil (no flag overrides). A config file is validated
// against the generated JSON schema before it is applied.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	cfg := Default()
	k := koanf.New(".")

	if path != "" {
		raw, err := os.ReadFile(path) //nolint:gosec // path is operator-supplied config
		if err != nil {
			return nil, oops.Code("CONFIG_READ_FAILED").With("path", path).Wrap(err)
		}
		if err := ValidateSchema(raw); err != nil {
			return nil, oops.Code("CONFIG_INVALID").With("path", path).Wrap(err)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_PARSE_FAILED").With("path", path).Wrap(err)
		}
	}

	if flags != nil {
		// Flag names use dashes; koanf keys use underscores. An unset
		// string flag surfaces here as an empty value; skip it so it
		// cannot erase a default or a file setting.
		provider := posflag.ProviderWithValue(flags, ".", k, func(key, value string) (string, any) {
			if value == "" {
				return "", nil
			}
			return flagKey(key), value
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_FLAGS_FAILED").Wrap(err)
		}
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_UNMARSHAL_FAILED").Wrap(err)
	}

	// Environment wins so secrets never need to live in files.
	if v := os.Getenv(EnvDatabaseURL); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv(EnvAdminUsername); v != "" {
		cfg.Admin.Username = v
	}
	if v := os.Getenv(EnvAdminPassword); v != "" {
		cfg.Admin.Password = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the non-secret invariants. Admin credential strength is
// bootstrap's concern, not config's.
func (c *Config) Validate() error {
	if c.BindAddr == "" {
		return oops.Code("CONFIG_INVALID").With("field", "bind_addr").Errorf("bind_addr is required")
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return oops.Code("CONFIG_INVALID").
			With("field", "log_format").
			Errorf("log_format must be 'json' or 'text', got %q", c.LogFormat)
	}
	return nil
}

func flagKey(name string) string {
	out := make([]byte, len(name))
	for i := 0; i < len(name); i++ {
		if name[i] == '-' {
			out[i] = '_'
		} else {
			out[i] = name[i]
		}
	}
	return string(out)
}
