// Package config handles mixin.toml runtime configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileName is the name FindAndLoad looks for.
const FileName = "mixin.toml"

// Config represents a mixin.toml file.
type Config struct {
	Log     LogConfig     `toml:"log"`
	Runtime RuntimeConfig `toml:"runtime"`
	Journal JournalConfig `toml:"journal"`
	Stress  StressConfig  `toml:"stress"`

	// Dir is the directory containing the mixin.toml file (set at load time).
	Dir string `toml:"-"`
}

// LogConfig configures commonlog.
type LogConfig struct {
	// Verbosity follows commonlog: 0 is Notice, 2 is Debug, -4 disables
	// logging.
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// RuntimeConfig configures the object runtime.
type RuntimeConfig struct {
	// Strict makes invariant violations panic. Unset keeps the build default.
	Strict *bool `toml:"strict"`
}

// JournalConfig configures the event journal.
type JournalConfig struct {
	// Path of the sqlite database. Empty disables journaling.
	Path string `toml:"path"`
}

// StressConfig configures the stress command.
type StressConfig struct {
	Goroutines int `toml:"goroutines"`
	Iterations int `toml:"iterations"`
}

// Default returns the configuration used when no mixin.toml exists.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Stress.Goroutines <= 0 {
		c.Stress.Goroutines = 8
	}
	if c.Stress.Iterations <= 0 {
		c.Stress.Iterations = 10000
	}
}

// Load parses the mixin.toml file in dir.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, FileName))
}

// LoadFile parses a configuration file at an explicit path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var c Config
	if err := toml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	c.Dir, err = filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", path, err)
	}

	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	c.applyDefaults()
	return &c, nil
}

// FindAndLoad walks up from startDir to find a mixin.toml file and loads
// it. Returns Default() if none is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return Default(), nil
		}
		dir = parent
	}
}

func (c *Config) validate() error {
	if c.Log.Verbosity < -4 || c.Log.Verbosity > 2 {
		return fmt.Errorf("log.verbosity %d out of range [-4, 2]", c.Log.Verbosity)
	}
	if c.Stress.Goroutines < 0 {
		return fmt.Errorf("stress.goroutines must not be negative")
	}
	if c.Stress.Iterations < 0 {
		return fmt.Errorf("stress.iterations must not be negative")
	}
	return nil
}

// StrictMode returns the configured strict setting, or def when unset.
func (c *Config) StrictMode(def bool) bool {
	if c.Runtime.Strict == nil {
		return def
	}
	return *c.Runtime.Strict
}

// JournalPath returns the journal path resolved against Dir, or "" when
// journaling is disabled.
func (c *Config) JournalPath() string {
	return c.resolve(c.Journal.Path)
}

// LogFile returns the log file path resolved against Dir, or "" for
// stderr.
func (c *Config) LogFile() string {
	return c.resolve(c.Log.File)
}

func (c *Config) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || c.Dir == "" {
		return p
	}
	return filepath.Join(c.Dir, p)
}
