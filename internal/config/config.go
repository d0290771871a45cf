// Package config loads flowstate settings from a YAML file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/flowstate/internal/nodeparams"
	"github.com/roach88/flowstate/internal/store"
)

// Config is the root of a flowstate config file.
type Config struct {
	Database  Database  `yaml:"database"`
	Reconcile Reconcile `yaml:"reconcile"`
	Nodes     Nodes     `yaml:"nodes"`
	Log       Log       `yaml:"log"`
}

// Database configures the SQLite store.
type Database struct {
	Path          string `yaml:"path"`
	BusyTimeoutMS int    `yaml:"busy_timeout_ms"`
}

// Reconcile configures batch reconciliation.
type Reconcile struct {
	// RejectDuplicateKeys fails a batch that repeats a natural key instead
	// of letting the last document win.
	RejectDuplicateKeys bool `yaml:"reject_duplicate_keys"`
}

// Nodes configures node parameter lookups.
type Nodes struct {
	DefaultCode string `yaml:"default_code"`
}

// Log configures the process logger.
type Log struct {
	Level string `yaml:"level"` // debug | info | warn | error
}

// DefaultDatabasePath is used when neither the file nor a flag names one.
const DefaultDatabasePath = "flowstate.db"

// Default returns the settings used when no file is given.
func Default() Config {
	return Config{
		Database: Database{Path: DefaultDatabasePath, BusyTimeoutMS: store.DefaultBusyTimeoutMS},
		Nodes:    Nodes{DefaultCode: nodeparams.DefaultCode},
		Log:      Log{Level: "info"},
	}
}

// Load reads path over the defaults. An empty path returns Default(); an
// empty file does too. Unknown keys are rejected.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to parse YAML: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// applyDefaults restores defaults for values a file set to zero.
func (c *Config) applyDefaults() {
	d := Default()
	if c.Database.Path == "" {
		c.Database.Path = d.Database.Path
	}
	if c.Database.BusyTimeoutMS == 0 {
		c.Database.BusyTimeoutMS = d.Database.BusyTimeoutMS
	}
	if c.Nodes.DefaultCode == "" {
		c.Nodes.DefaultCode = d.Nodes.DefaultCode
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if c.Database.BusyTimeoutMS < 0 {
		return fmt.Errorf("database.busy_timeout_ms must not be negative, got %d", c.Database.BusyTimeoutMS)
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	return nil
}

// LogLevel parses Log.Level.
func (c Config) LogLevel() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return l, nil
}
