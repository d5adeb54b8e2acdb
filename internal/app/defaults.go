package app

import (
	"fmt"
	"os"
	"path/filepath"

	"ddbackup/internal/config"
)

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - DDB_CONFIG_PATH: config file location (default: ~/.config/ddbackup.toml)
//   - DDB_HOME: base directory for ddbackup data (default: ~/.local/share/ddbackup)
func GetDefaults() (map[string]string, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	baseDir, err := getBaseDir()
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
		"state_path":  filepath.Join(baseDir, config.StateFileName),
	}, nil
}

// LoadConfig reads the config from its default location, falling back to
// the defaults when no config file has been written yet.
func LoadConfig() (*config.Config, error) {
	defaults, err := GetDefaults()
	if err != nil {
		return nil, err
	}
	return config.Load(defaults["config_path"], defaults["base_dir"])
}

// getConfigPath returns the config file path, checking DDB_CONFIG_PATH env var first,
// then falling back to the default ~/.config/ddbackup.toml.
func getConfigPath() (string, error) {
	if path := os.Getenv("DDB_CONFIG_PATH"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "ddbackup.toml"), nil
}

// getBaseDir returns the base directory for ddbackup data, checking DDB_HOME env var first,
// then falling back to the XDG default ~/.local/share/ddbackup.
func getBaseDir() (string, error) {
	if path := os.Getenv("DDB_HOME"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "ddbackup"), nil
}
