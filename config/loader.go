// Package config provides configuration loading and parsing functionality
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigFormat represents the configuration file format
type ConfigFormat string

const (
	FormatYAML ConfigFormat = "yaml"
	FormatJSON ConfigFormat = "json"
)

// FormatFromPath determines the configuration format from a file extension
func FormatFromPath(path string) (ConfigFormat, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// Loader handles configuration loading from various sources
type Loader struct {
	// Configuration search paths
	searchPaths []string

	// Environment variable prefix
	envPrefix string

	// Default configuration
	defaultConfig *Config

	// Environment lookup, os.LookupEnv unless replaced
	lookupEnv func(string) (string, bool)
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	home, _ := os.UserHomeDir()
	return &Loader{
		searchPaths: []string{
			".",
			"./config",
			"./configs",
			"/etc/brigade",
			filepath.Join(home, ".brigade"),
		},
		envPrefix:     "BRIGADE",
		defaultConfig: DefaultConfig(),
		lookupEnv:     os.LookupEnv,
	}
}

// SetSearchPaths sets the configuration file search paths
func (l *Loader) SetSearchPaths(paths []string) *Loader {
	l.searchPaths = paths
	return l
}

// SetEnvPrefix sets the environment variable prefix
func (l *Loader) SetEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// SetDefaultConfig sets the default configuration
func (l *Loader) SetDefaultConfig(config *Config) *Loader {
	l.defaultConfig = config
	return l
}

// SetEnvLookup replaces the environment lookup function
func (l *Loader) SetEnvLookup(lookup func(string) (string, bool)) *Loader {
	l.lookupEnv = lookup
	return l
}

// Load loads configuration from the specified file, or from defaults and the
// environment alone when filename is empty
func (l *Loader) Load(filename string) (*Config, error) {
	if filename == "" {
		return l.finish(l.defaults())
	}
	return l.LoadFromFile(filename)
}

// LoadFromFile loads configuration from a specific file. Keys missing from the
// file keep their default values.
func (l *Loader) LoadFromFile(filename string) (*Config, error) {
	format, err := FormatFromPath(filename)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", filename, err)
	}

	config, err := l.parseConfig(data, format)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", filename, err)
	}

	return l.finish(config)
}

// LoadFromReader loads configuration from an io.Reader
func (l *Loader) LoadFromReader(reader io.Reader, format ConfigFormat) (*Config, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration data: %w", err)
	}

	config, err := l.parseConfig(data, format)
	if err != nil {
		return nil, err
	}

	return l.finish(config)
}

// AutoLoad discovers a configuration file in the search paths and loads it.
// Without a file it falls back to defaults plus environment overrides.
func (l *Loader) AutoLoad() (*Config, string, error) {
	configFile, err := l.FindConfigFile()
	if err == ErrConfigFileNotFound {
		config, err := l.finish(l.defaults())
		return config, "", err
	}
	if err != nil {
		return nil, "", err
	}

	config, err := l.LoadFromFile(configFile)
	return config, configFile, err
}

// FindConfigFile searches for configuration files in search paths
func (l *Loader) FindConfigFile() (string, error) {
	filenames := []string{
		"brigade.yaml", "brigade.yml",
		"config.yaml", "config.yml",
		"brigade.json", "config.json",
	}

	for _, searchPath := range l.searchPaths {
		for _, filename := range filenames {
			fullPath := filepath.Join(searchPath, filename)
			if _, err := os.Stat(fullPath); err == nil {
				return fullPath, nil
			}
		}
	}

	return "", ErrConfigFileNotFound
}

func (l *Loader) defaults() *Config {
	if l.defaultConfig == nil {
		return DefaultConfig()
	}
	return l.defaultConfig.Clone()
}

// finish applies environment overrides and validates
func (l *Loader) finish(config *Config) (*Config, error) {
	if err := l.loadFromEnv(config); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return config, nil
}

// parseConfig decodes data on top of the defaults, so only keys present in
// data override them
func (l *Loader) parseConfig(data []byte, format ConfigFormat) (*Config, error) {
	config := l.defaults()

	switch format {
	case FormatYAML:
		if len(bytes.TrimSpace(data)) == 0 {
			return config, nil
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case FormatJSON:
		if err := json.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	return config, nil
}

// loadFromEnv loads configuration overrides from environment variables
func (l *Loader) loadFromEnv(config *Config) error {
	env := func(key string) (string, bool) {
		val, ok := l.lookupEnv(l.envPrefix + "_" + key)
		return val, ok && val != ""
	}

	// App configuration
	if val, ok := env("APP_NAME"); ok {
		config.App.Name = val
	}
	if val, ok := env("APP_VERSION"); ok {
		config.App.Version = val
	}
	if val, ok := env("APP_ENVIRONMENT"); ok {
		config.App.Environment = Environment(val)
	}
	if val, ok := env("APP_DEBUG"); ok {
		config.App.Debug = strings.ToLower(val) == "true"
	}

	// Log configuration
	if val, ok := env("LOG_LEVEL"); ok {
		config.Log.Level = LogLevel(strings.ToLower(val))
	}
	if val, ok := env("LOG_FORMAT"); ok {
		config.Log.Format = val
	}
	if val, ok := env("LOG_OUTPUT"); ok {
		config.Log.Output = val
	}

	// Kitchen configuration
	if val, ok := env("KITCHEN_COOKS"); ok {
		config.Kitchen.Cooks = splitList(val)
	}
	if val, ok := env("KITCHEN_CLIENTS"); ok {
		config.Kitchen.Clients = splitList(val)
	}
	if val, ok := env("KITCHEN_MENU"); ok {
		config.Kitchen.Menu = splitList(val)
	}
	if val, ok := env("KITCHEN_WAITERS"); ok {
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("%w: %s_KITCHEN_WAITERS: %v", ErrEnvironmentVar, l.envPrefix, err)
		}
		config.Kitchen.Waiters = n
	}
	if val, ok := env("KITCHEN_ORDERS_PER_CLIENT"); ok {
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("%w: %s_KITCHEN_ORDERS_PER_CLIENT: %v", ErrEnvironmentVar, l.envPrefix, err)
		}
		config.Kitchen.OrdersPerClient = n
	}
	if val, ok := env("KITCHEN_PREPARE_DELAY"); ok {
		d, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("%w: %s_KITCHEN_PREPARE_DELAY: %v", ErrEnvironmentVar, l.envPrefix, err)
		}
		config.Kitchen.PrepareDelay = d
	}
	if val, ok := env("KITCHEN_SEED"); ok {
		seed, err := strconv.ParseUint(val, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: %s_KITCHEN_SEED: %v", ErrEnvironmentVar, l.envPrefix, err)
		}
		config.Kitchen.Seed = seed
	}

	// Monitor configuration
	if val, ok := env("MONITOR_ENABLED"); ok {
		config.Monitor.Enabled = strings.ToLower(val) == "true"
	}
	if val, ok := env("MONITOR_PORT"); ok {
		port, err := parsePort(val)
		if err != nil {
			return fmt.Errorf("%w: %s_MONITOR_PORT: %v", ErrEnvironmentVar, l.envPrefix, err)
		}
		config.Monitor.Port = port
	}

	return nil
}

// Helper function to parse port number
func parsePort(val string) (int, error) {
	port, err := strconv.Atoi(val)
	if err != nil {
		return 0, err
	}
	if port <= 0 || port > 65535 {
		return 0, fmt.Errorf("invalid port number: %d", port)
	}
	return port, nil
}

func splitList(val string) []string {
	var out []string
	for _, item := range strings.Split(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Clone returns a deep copy of the configuration
func (c *Config) Clone() *Config {
	clone := *c
	clone.Kitchen.Cooks = append([]string(nil), c.Kitchen.Cooks...)
	clone.Kitchen.Clients = append([]string(nil), c.Kitchen.Clients...)
	clone.Kitchen.Menu = append([]string(nil), c.Kitchen.Menu...)
	return &clone
}
