// Package config resolves runtime settings from defaults, an optional YAML
// file, a .env file and FEEDBACKFLOW_* environment variables, in that order of
// increasing precedence. Command-line flags are applied on top by the caller.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables read by Load.
const (
	EnvDatabase  = "FEEDBACKFLOW_DB"
	EnvLoadDelay = "FEEDBACKFLOW_LOAD_DELAY"
	EnvLogLevel  = "FEEDBACKFLOW_LOG_LEVEL"
	EnvFormat    = "FEEDBACKFLOW_FORMAT"
)

// DefaultDatabasePath is used when nothing else names a database file.
const DefaultDatabasePath = "feedbackflow.db"

// Config is the resolved set of runtime settings.
type Config struct {
	// DatabasePath is the SQLite file backing the key-value medium.
	// ":memory:" keeps everything in process.
	DatabasePath string `yaml:"database" validate:"required"`
	// LoadDelay is the artificial pause before the stores hydrate.
	LoadDelay time.Duration `yaml:"load_delay" validate:"gte=0s"`
	LogLevel  string        `yaml:"log_level" validate:"oneof=debug info warn error"`
	Format    string        `yaml:"format" validate:"oneof=text json"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		DatabasePath: DefaultDatabasePath,
		LogLevel:     "info",
		Format:       "text",
	}
}

// Options controls where Load looks for settings.
type Options struct {
	// File is a YAML config file. Empty skips it; a missing named file is an error.
	File string
	// EnvFiles are dotenv files loaded before reading the environment.
	// Missing files are ignored. Variables already set are not overwritten.
	EnvFiles []string
	// Lookup reads an environment variable. Defaults to os.LookupEnv.
	Lookup func(string) (string, bool)
}

// Load resolves a Config. The result is validated.
func Load(opts Options) (Config, error) {
	cfg := Default()

	if opts.File != "" {
		if err := cfg.mergeFile(opts.File); err != nil {
			return Config{}, err
		}
	}

	for _, f := range opts.EnvFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load env file %s: %w", f, err)
		}
	}

	lookup := opts.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if err := cfg.mergeEnv(lookup); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) mergeEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvDatabase); ok && v != "" {
		c.DatabasePath = v
	}
	if v, ok := lookup(EnvLoadDelay); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvLoadDelay, err)
		}
		c.LoadDelay = d
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.LogLevel = strings.ToLower(v)
	}
	if v, ok := lookup(EnvFormat); ok && v != "" {
		c.Format = strings.ToLower(v)
	}
	return nil
}

var validate = validator.New()

// Validate checks every field against its constraint.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// SlogLevel converts LogLevel for a slog handler. Unknown values map to info.
func (c Config) SlogLevel() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}
