package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Loader handles configuration loading and saving
type Loader struct {
	configPath string
}

// NewLoader creates a new configuration loader. An empty path searches
// GetConfigPaths.
func NewLoader(configPath string) *Loader {
	return &Loader{
		configPath: configPath,
	}
}

// LoadConfig loads configuration from file or returns default config
func (l *Loader) LoadConfig() (*Config, error) {
	config := DefaultConfig()

	if l.configPath == "" {
		l.configPath = findConfigFile()
	}

	if l.configPath != "" {
		data, err := os.ReadFile(l.configPath)
		switch {
		case errors.Is(err, os.ErrNotExist):
			// Explicit path that does not exist yet: defaults.
		case err != nil:
			return nil, fmt.Errorf("failed to read config file %s: %w", l.configPath, err)
		default:
			if err := yaml.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", l.configPath, err)
			}
		}
	}

	config.ApplyEnvironmentOverrides()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// SaveConfig saves the configuration to file
func (l *Loader) SaveConfig(config *Config) error {
	if l.configPath == "" {
		l.configPath = "pwdebug.yaml"
	}

	configDir := filepath.Dir(l.configPath)
	if err := os.MkdirAll(configDir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory %s: %w", configDir, err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(l.configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", l.configPath, err)
	}

	return nil
}

// GetConfigPath returns the config file in use, empty when running on defaults
func (l *Loader) GetConfigPath() string {
	return l.configPath
}

func findConfigFile() string {
	for _, path := range GetConfigPaths() {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
