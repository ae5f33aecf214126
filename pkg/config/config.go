// Package config handles configuration loading and management.
package config

import (
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/kmdouglass/kpal/pkg/core"
)

// Default config file locations, searched in order when no path is given.
var configPaths = []string{
	"./config.yaml",
	"./config.yml",
	"./kpald.yaml",
	"./kpald.yml",
	"/etc/kpal/config.yaml",
}

// Load loads configuration from path, or from the first default location
// found, or returns DefaultConfig if none exists.
func Load(path string) (*core.Config, error) {
	if path != "" {
		return loadFile(path)
	}

	for _, p := range configPaths {
		if p[0] == '~' {
			home, err := os.UserHomeDir()
			if err == nil {
				p = filepath.Join(home, p[2:])
			}
		}
		if _, err := os.Stat(p); err == nil {
			return loadFile(p)
		}
	}

	return core.DefaultConfig(), nil
}

func loadFile(path string) (*core.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := core.DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate runs struct-tag validation over cfg.
func Validate(cfg *core.Config) error {
	validate := validator.New()
	return validate.Struct(cfg)
}

// Save writes cfg to path as YAML, creating parent directories as needed.
func Save(path string, cfg *core.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	return os.WriteFile(path, data, 0644)
}
