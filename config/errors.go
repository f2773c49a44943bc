// Package config provides error definitions for configuration management
package config

import "errors"

// Configuration validation errors
var (
	ErrInvalidAppName      = errors.New("invalid application name")
	ErrInvalidEnvironment  = errors.New("invalid environment")
	ErrInvalidLogLevel     = errors.New("invalid log level")
	ErrInvalidLogFormat    = errors.New("invalid log format")
	ErrInvalidPort         = errors.New("invalid port number")
	ErrInvalidMailboxSize  = errors.New("invalid mailbox size")
	ErrInvalidWaiters      = errors.New("invalid waiter count")
	ErrEmptyMenu           = errors.New("menu has no dishes")
	ErrInvalidPrepareDelay = errors.New("invalid prepare delay")
	ErrInvalidOrderCount   = errors.New("invalid orders per client")
)

// Configuration loading errors
var (
	ErrConfigFileNotFound = errors.New("configuration file not found")
	ErrUnsupportedFormat  = errors.New("unsupported configuration format")
)

// ErrEnvironmentVar wraps an environment override that could not be parsed
var ErrEnvironmentVar = errors.New("environment variable error")
