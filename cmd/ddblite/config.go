package main

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const configFileName = "ddblite.yaml"

// Config holds the defaults for every command.
// Loaded from ddblite.yaml if present; flags override it.
type Config struct {
	// Engine is the storage engine: badger, bolt or memory.
	Engine string `yaml:"engine"`

	// Path is the database directory (badger) or file (bolt).
	Path string `yaml:"path"`

	// Schemas is a glob of schema files, relative to the config file.
	Schemas string `yaml:"schemas"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"logLevel"`
}

// LoadConfig searches for ddblite.yaml starting from the current directory
// and walking up to the filesystem root. Returns empty config if not found.
func LoadConfig() (Config, error) {
	configPath := findConfigFile()
	if configPath == "" {
		return Config{}, nil
	}
	return loadConfigFile(configPath)
}

func loadConfigFile(path string) (Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}

	// Relative paths are relative to the config file.
	dir := filepath.Dir(path)
	if cfg.Path != "" && !filepath.IsAbs(cfg.Path) {
		cfg.Path = filepath.Join(dir, cfg.Path)
	}
	if cfg.Schemas != "" && !filepath.IsAbs(cfg.Schemas) {
		cfg.Schemas = filepath.Join(dir, cfg.Schemas)
	}
	return cfg, nil
}

// findConfigFile searches for ddblite.yaml walking up from current directory.
func findConfigFile() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		path := filepath.Join(dir, configFileName)
		if _, err := os.Stat(path); err == nil {
			return path
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			return ""
		}
		dir = parent
	}
}
