package config

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/neocl/ttlstore/errors"
)

// Save writes the configuration to the given path as TOML, backing up any
// existing file to <path>.back first.
func Save(config *Config, configPath string) error {
	if config == nil {
		return errors.New("config cannot be nil")
	}

	if err := createBackup(configPath); err != nil {
		return err
	}

	data, err := toml.Marshal(config)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}

	if dir := filepath.Dir(configPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrapf(err, "failed to create config directory %s", dir)
		}
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return errors.Wrapf(err, "failed to write config to %s", configPath)
	}

	return nil
}

// createBackup copies the current config file to <path>.back before it is
// overwritten. A missing file is not an error.
func createBackup(configPath string) error {
	content, err := os.ReadFile(configPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "failed to read config for backup")
	}

	if err := os.WriteFile(configPath+".back", content, 0644); err != nil {
		return errors.Wrap(err, "failed to create config backup")
	}
	return nil
}
