// Package config holds the command-line configuration shared by redact and
// redactd: a YAML file merged over defaults, then REDACT_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/wudi/redactkit/enhance"
	"github.com/wudi/redactkit/observability"
	"github.com/wudi/redactkit/settings"
	"github.com/wudi/redactkit/workfile"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "REDACT_"

// Config is the full command configuration.
type Config struct {
	// Settings is the settings file. A .db or .sqlite suffix selects the
	// SQLite store; anything else is JSON.
	Settings string         `yaml:"settings"`
	WorkDir  string         `yaml:"work_dir"`
	Scale    float64        `yaml:"scale"`
	Log      LogConfig      `yaml:"log"`
	Enhance  enhance.Config `yaml:"enhance"`
	Server   ServerConfig   `yaml:"server"`
}

type LogConfig struct {
	Format string `yaml:"format"` // text | json
	Level  string `yaml:"level"`
}

type ServerConfig struct {
	Listen   string `yaml:"listen"`
	Root     string `yaml:"root"`
	MaxConns int    `yaml:"max_conns"`
}

// Default returns defaults; Settings and WorkDir are filled from the user
// config and data directories when they can be located.
func Default() *Config {
	c := &Config{
		Scale:   2,
		Log:     LogConfig{Format: "text", Level: "info"},
		Enhance: enhance.DefaultConfig(),
		Server:  ServerConfig{Listen: "127.0.0.1:8370", MaxConns: 16},
	}
	if p, err := settings.DefaultPath(); err == nil {
		c.Settings = p
	}
	if d, err := workfile.DefaultDir(); err == nil {
		c.WorkDir = d
	}
	return c
}

// Load reads the YAML file at path over the defaults. An empty path skips
// the file. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// LoadDotEnv loads .env files into the process environment. Missing files
// are ignored; variables already set win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv overrides fields from REDACT_* variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok && v != "" {
			*dst = v
		}
	}
	var errs []error
	num := func(key string, dst *int) {
		if v, ok := lookup(EnvPrefix + key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = n
		}
	}
	str("SETTINGS", &c.Settings)
	str("WORK_DIR", &c.WorkDir)
	str("LOG_FORMAT", &c.Log.Format)
	str("LOG_LEVEL", &c.Log.Level)
	str("LISTEN", &c.Server.Listen)
	str("ROOT", &c.Server.Root)
	num("MAX_CONNS", &c.Server.MaxConns)
	if v, ok := lookup(EnvPrefix + "SCALE"); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sSCALE: %w", EnvPrefix, err))
		} else {
			c.Scale = f
		}
	}
	if v, ok := lookup(EnvPrefix + "ENHANCE"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sENHANCE: %w", EnvPrefix, err))
		} else {
			c.Enhance.Enabled = b
		}
	}
	return errors.Join(errs...)
}

// Validate checks that values are usable.
func (c *Config) Validate() error {
	var errs []error
	if c.Scale <= 0 || c.Scale > 8 {
		errs = append(errs, fmt.Errorf("scale %g outside (0, 8]", c.Scale))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unsupported log format %q (use text or json)", c.Log.Format))
	}
	if c.Server.MaxConns < 0 {
		errs = append(errs, fmt.Errorf("max_conns must be >= 0"))
	}
	if c.Enhance.Brightness < 0 || c.Enhance.Contrast < 0 || c.Enhance.Sharpness < 0 {
		errs = append(errs, fmt.Errorf("enhancement factors must be >= 0"))
	}
	return errors.Join(errs...)
}

// Logger builds the slog-backed logger described by Log.
func (c *Config) Logger(w io.Writer) observability.Logger {
	return observability.NewTextLogger(w, c.Log.Format, c.Log.Level)
}

// Tracer logs per-page load and export spans through logger at debug level,
// and is a no-op otherwise.
func (c *Config) Tracer(logger observability.Logger) observability.Tracer {
	if strings.EqualFold(c.Log.Level, "debug") {
		return observability.NewLogTracer(logger)
	}
	return observability.NopTracer()
}

// SettingsStore opens the configured settings store. The returned close
// function is never nil.
func (c *Config) SettingsStore() (settings.Store, func() error, error) {
	nop := func() error { return nil }
	if c.Settings == "" {
		return &settings.MemoryStore{}, nop, nil
	}
	switch strings.ToLower(filepath.Ext(c.Settings)) {
	case ".db", ".sqlite", ".sqlite3":
		if err := os.MkdirAll(filepath.Dir(c.Settings), 0o755); err != nil {
			return nil, nop, fmt.Errorf("create settings dir: %w", err)
		}
		store, err := settings.OpenSQLite(c.Settings)
		if err != nil {
			return nil, nop, err
		}
		return store, store.Close, nil
	default:
		return settings.NewJSONStore(c.Settings), nop, nil
	}
}

// WorkStore returns the work-file store, in memory when WorkDir is empty.
func (c *Config) WorkStore(logger observability.Logger) workfile.Store {
	if c.WorkDir == "" {
		return workfile.NewMemoryStore()
	}
	return workfile.NewFileStore(c.WorkDir, logger)
}
