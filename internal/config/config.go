// Package config loads the tool configuration from a YAML file. Every
// field has a working default; a missing file is not an error.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds tool-level settings.
type Config struct {
	// JournalPath is the SQLite file recording dispatched edit batches.
	// Empty disables journaling.
	JournalPath string `yaml:"journal_path"`
	// Indent is the number of spaces per level when writing documents.
	Indent int `yaml:"indent"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{Indent: 2}
}

// DefaultPath returns the conventional config location under the user's
// home directory, or "" when the home directory is unknown.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".gridmesh", "scledit.yaml")
}

// Load reads the config at path, falling back to defaults when the file
// does not exist. A present but malformed file is an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Indent <= 0 {
		cfg.Indent = Default().Indent
	}
	return cfg, nil
}
