package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// appDirName is the directory this toolchain's config and logs nest
// under, wherever the OS keeps per-user application state.
const appDirName = "pascal-compiler"

// Config represents the compiler toolchain's configuration.
type Config struct {
	// Optimizer settings
	Optimizer struct {
		MaxPasses int `toml:"max_passes"`
	} `toml:"optimizer"`

	// Code generator settings
	Codegen struct {
		EntrySymbol  string `toml:"entry_symbol"`
		ObjectFormat string `toml:"object_format"` // win32, elf32, macho32
	} `toml:"codegen"`

	// Interpreter settings
	Interpreter struct {
		MaxCallDepth int `toml:"max_call_depth"`
	} `toml:"interpreter"`

	// Diagnostics settings
	Diagnostics struct {
		Verbose bool `toml:"verbose"`
	} `toml:"diagnostics"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Optimizer.MaxPasses = 10
	cfg.Codegen.EntrySymbol = "_main"
	cfg.Codegen.ObjectFormat = "win32"
	cfg.Interpreter.MaxCallDepth = 1000
	cfg.Diagnostics.Verbose = false

	return cfg
}

// configRoot resolves the directory the config file and logs live
// under. It defers to os.UserConfigDir for the platform convention
// (APPDATA on Windows, XDG_CONFIG_HOME or ~/.config elsewhere) rather
// than re-deriving it per-OS.
func configRoot() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, appDirName), nil
}

// ensureDir creates dir if needed and returns it, or fallback if either
// the root directory couldn't be resolved or created.
func ensureDir(dir string, err error, fallback string) string {
	if err != nil {
		return fallback
	}
	if mkErr := os.MkdirAll(dir, 0750); mkErr != nil {
		return fallback
	}
	return dir
}

// GetConfigPath returns the platform-specific config file path,
// creating its parent directory along the way.
func GetConfigPath() string {
	root, err := configRoot()
	dir := ensureDir(root, err, "")
	if dir == "" {
		return "config.toml"
	}
	return filepath.Join(dir, "config.toml")
}

// GetLogPath returns the platform-specific log directory path, created
// if it does not already exist.
func GetLogPath() string {
	root, err := configRoot()
	var logDir string
	if err == nil {
		logDir = filepath.Join(root, "logs")
	}
	return ensureDir(logDir, err, "logs")
}

// Load loads configuration from the default config file location.
func Load() (*Config, error) {
	return LoadFrom(GetConfigPath())
}

// LoadFrom loads configuration from path, falling back to
// DefaultConfig when no file is there yet.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path) // #nosec G304 -- user config file path
	switch {
	case errors.Is(err, os.ErrNotExist):
		return cfg, nil
	case err != nil:
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration to the default config file location.
func (c *Config) Save() error {
	return c.SaveTo(GetConfigPath())
}

// SaveTo writes the configuration to path as TOML, creating the parent
// directory first.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil { // #nosec G306 -- user config file
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
