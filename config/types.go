// Package config provides configuration management for the brigade kitchen
package config

import (
	"time"
)

// Environment represents the deployment environment
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "production"
)

// String returns the string representation of Environment
func (e Environment) String() string {
	return string(e)
}

// IsValid checks if the environment is valid
func (e Environment) IsValid() bool {
	switch e {
	case EnvDevelopment, EnvTesting, EnvStaging, EnvProduction:
		return true
	default:
		return false
	}
}

// LogLevel represents the logging level
type LogLevel string

const (
	LogLevelTrace LogLevel = "trace"
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
	LogLevelFatal LogLevel = "fatal"
)

// String returns the string representation of LogLevel
func (l LogLevel) String() string {
	return string(l)
}

// IsValid checks if the log level is valid
func (l LogLevel) IsValid() bool {
	switch l {
	case LogLevelTrace, LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError, LogLevelFatal:
		return true
	default:
		return false
	}
}

// Log formats understood by the logging package
const (
	LogFormatText    = "text"
	LogFormatJSON    = "json"
	LogFormatConsole = "console"
)

// Config represents the complete brigade configuration
type Config struct {
	// Application configuration
	App AppConfig `yaml:"app" json:"app"`

	// Logging configuration
	Log LogConfig `yaml:"log" json:"log"`

	// Actor system configuration
	Actor ActorConfig `yaml:"actor" json:"actor"`

	// Kitchen layout
	Kitchen KitchenConfig `yaml:"kitchen" json:"kitchen"`

	// Monitoring configuration
	Monitor MonitorConfig `yaml:"monitor" json:"monitor"`
}

// AppConfig contains application-level configuration
type AppConfig struct {
	// Application name
	Name string `yaml:"name" json:"name"`

	// Application version
	Version string `yaml:"version" json:"version"`

	// Deployment environment
	Environment Environment `yaml:"environment" json:"environment"`

	// Debug mode
	Debug bool `yaml:"debug" json:"debug"`

	// Application description
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// LogConfig contains logging configuration
type LogConfig struct {
	// Log level
	Level LogLevel `yaml:"level" json:"level"`

	// Log format (text, json, console)
	Format string `yaml:"format" json:"format"`

	// Output destination (stdout, stderr, file path)
	Output string `yaml:"output" json:"output"`

	// Enable colored output for the console format
	Color bool `yaml:"color" json:"color"`

	// Add source file and line to records
	AddSource bool `yaml:"add_source" json:"add_source"`
}

// ActorConfig contains actor system configuration
type ActorConfig struct {
	// Default mailbox size for actors
	DefaultMailboxSize int `yaml:"default_mailbox_size" json:"default_mailbox_size"`

	// Longest a single message may be handled for
	ProcessTimeout time.Duration `yaml:"process_timeout" json:"process_timeout"`

	// How long shutdown waits for actor loops to exit
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// KitchenConfig describes the brigade to assemble. It is read once at
// startup; changing it requires a restart.
type KitchenConfig struct {
	// Cook identities, one cook per entry
	Cooks []string `yaml:"cooks" json:"cooks"`

	// Number of waiters
	Waiters int `yaml:"waiters" json:"waiters"`

	// Client names
	Clients []string `yaml:"clients" json:"clients"`

	// Orders each client places after the doors open
	OrdersPerClient int `yaml:"orders_per_client" json:"orders_per_client"`

	// Dishes clients choose from
	Menu []string `yaml:"menu" json:"menu"`

	// Fixed time a cook spends on one dish
	PrepareDelay time.Duration `yaml:"prepare_delay" json:"prepare_delay"`

	// Seed for cook and dish selection; zero means unseeded
	Seed uint64 `yaml:"seed" json:"seed"`
}

// MonitorConfig contains monitoring configuration
type MonitorConfig struct {
	// Enable the HTTP monitor
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Listen address
	Address string `yaml:"address" json:"address"`

	// Listen port
	Port int `yaml:"port" json:"port"`

	// Timeout for requests that query actors
	QueryTimeout time.Duration `yaml:"query_timeout" json:"query_timeout"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:        "brigade",
			Version:     "1.0.0",
			Environment: EnvDevelopment,
			Debug:       false,
		},
		Log: LogConfig{
			Level:  LogLevelInfo,
			Format: LogFormatConsole,
			Output: "stdout",
			Color:  true,
		},
		Actor: ActorConfig{
			DefaultMailboxSize: 1000,
			ProcessTimeout:     30 * time.Second,
			ShutdownTimeout:    10 * time.Second,
		},
		Kitchen: KitchenConfig{
			Cooks:           []string{"Gordon", "Julia"},
			Waiters:         1,
			Clients:         []string{"Alice", "Bob", "Carol"},
			OrdersPerClient: 1,
			Menu:            []string{"Pasta", "Pizza", "Salad", "Burger", "Soup"},
			PrepareDelay:    time.Second,
		},
		Monitor: MonitorConfig{
			Enabled:      false,
			Address:      "127.0.0.1",
			Port:         9090,
			QueryTimeout: 2 * time.Second,
		},
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	// Validate app config
	if c.App.Name == "" {
		return ErrInvalidAppName
	}
	if !c.App.Environment.IsValid() {
		return ErrInvalidEnvironment
	}

	// Validate log config
	if !c.Log.Level.IsValid() {
		return ErrInvalidLogLevel
	}
	switch c.Log.Format {
	case LogFormatText, LogFormatJSON, LogFormatConsole:
	default:
		return ErrInvalidLogFormat
	}

	// Validate actor config
	if c.Actor.DefaultMailboxSize <= 0 {
		return ErrInvalidMailboxSize
	}

	// Validate kitchen config
	if c.Kitchen.Waiters < 0 {
		return ErrInvalidWaiters
	}
	if len(c.Kitchen.Clients) > 0 && c.Kitchen.Waiters == 0 {
		return ErrInvalidWaiters
	}
	if len(c.Kitchen.Menu) == 0 {
		return ErrEmptyMenu
	}
	if c.Kitchen.PrepareDelay < 0 {
		return ErrInvalidPrepareDelay
	}
	if c.Kitchen.OrdersPerClient < 0 {
		return ErrInvalidOrderCount
	}

	// Validate monitor config
	if c.Monitor.Enabled && (c.Monitor.Port <= 0 || c.Monitor.Port > 65535) {
		return ErrInvalidPort
	}

	return nil
}

// IsDevelopment returns true if the environment is development
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == EnvDevelopment
}

// IsProduction returns true if the environment is production
func (c *Config) IsProduction() bool {
	return c.App.Environment == EnvProduction
}

// GetLogLevel returns the log level
func (c *Config) GetLogLevel() LogLevel {
	return c.Log.Level
}

// IsDebugEnabled returns true if debug mode is enabled
func (c *Config) IsDebugEnabled() bool {
	return c.App.Debug || c.App.Environment == EnvDevelopment
}
