// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Escrow++ Contributors

// Package config loads service configuration from YAML files, command
// line flags, and a small set of environment variables.
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

// Default values applied when neither file nor flags set a key.
const (
	DefaultAddr        = ":5000"
	DefaultMetricsAddr = "127.0.0.1:9100"
	DefaultBaseURL     = "http://localhost:3000"
	DefaultCookieName  = "token"
	DefaultLogFormat   = "json"
	DefaultSMTPPort    = 587
)

// Server holds HTTP listener settings.
type Server struct {
	Addr        string   `koanf:"addr"`
	BaseURL     string   `koanf:"base_url"`
	CORSOrigins []string `koanf:"cors_origins"`
}

// Database holds the PostgreSQL connection settings.
type Database struct {
	URL string `koanf:"url"`
}

// Session holds session credential settings. Secret is the process-wide
// signing key; rotating it invalidates all outstanding sessions.
type Session struct {
	Secret       string `koanf:"secret"`
	CookieName   string `koanf:"cookie_name"`
	CookieSecure bool   `koanf:"cookie_secure"`
}

// SMTP holds outbound email transport settings.
type SMTP struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	From     string `koanf:"from"`
}

// Metrics holds the observability listener settings.
type Metrics struct {
	Addr string `koanf:"addr"`
}

// Config is the full service configuration.
type Config struct {
	Server    Server   `koanf:"server"`
	Database  Database `koanf:"database"`
	Session   Session  `koanf:"session"`
	SMTP      SMTP     `koanf:"smtp"`
	Metrics   Metrics  `koanf:"metrics"`
	LogFormat string   `koanf:"log_format"`
}

// Load builds a Config from an optional YAML file and command line
// flags, flags winning. DATABASE_URL and SESSION_SECRET environment
// variables fill the two secrets when nothing else set them, so they
// can be kept out of config files.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").
				With("path", path).
				Wrap(err)
		}
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").
				With("operation", "load flags").
				Wrap(err)
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, oops.Code("CONFIG_INVALID").Wrap(err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = DefaultBaseURL
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = DefaultMetricsAddr
	}
	if c.Session.CookieName == "" {
		c.Session.CookieName = DefaultCookieName
	}
	if c.LogFormat == "" {
		c.LogFormat = DefaultLogFormat
	}
	if c.SMTP.Port == 0 {
		c.SMTP.Port = DefaultSMTPPort
	}
	if c.Database.URL == "" {
		c.Database.URL = os.Getenv("DATABASE_URL")
	}
	if c.Session.Secret == "" {
		c.Session.Secret = os.Getenv("SESSION_SECRET")
	}
}

// Validate checks that everything the serve command needs is present.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("database URL is required (database.url or DATABASE_URL)")
	}
	if c.Session.Secret == "" {
		return oops.Code("CONFIG_INVALID").Errorf("session secret is required (session.secret or SESSION_SECRET)")
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return oops.Code("CONFIG_INVALID").Errorf("log_format must be 'json' or 'text', got %q", c.LogFormat)
	}
	if c.SMTP.Host == "" {
		return oops.Code("CONFIG_INVALID").Errorf("smtp.host is required")
	}
	if c.SMTP.From == "" {
		return oops.Code("CONFIG_INVALID").Errorf("smtp.from is required")
	}
	return nil
}
