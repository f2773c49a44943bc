// Package config provides configuration watching and hot-reload functionality
package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"reflect"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits for writes to settle
const DefaultDebounce = 500 * time.Millisecond

// Watcher watches a configuration file for changes and reloads it
type Watcher struct {
	// Configuration file path
	configFile string

	// Configuration loader
	loader *Loader

	logger   *slog.Logger
	debounce time.Duration

	// Current configuration
	config   *Config
	configMu sync.RWMutex

	// File system watcher
	fsWatcher *fsnotify.Watcher

	// Event callbacks
	callbacks   []ConfigChangeCallback
	callbacksMu sync.RWMutex

	// Context for cancellation
	ctx    context.Context
	cancel context.CancelFunc

	// Wait group for goroutines
	wg sync.WaitGroup
}

// ConfigChangeCallback is called when configuration changes
type ConfigChangeCallback func(oldConfig, newConfig *Config)

// WatcherOption customizes a Watcher
type WatcherOption func(*Watcher)

// WithWatcherLogger sets the watcher's logger
func WithWatcherLogger(logger *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithDebounce sets how long to wait after the last write before reloading
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// NewWatcher creates a new configuration watcher and loads the file once
func NewWatcher(configFile string, loader *Loader, opts ...WatcherOption) (*Watcher, error) {
	if _, err := FormatFromPath(configFile); err != nil {
		return nil, err
	}

	// Load initial configuration
	config, err := loader.LoadFromFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load initial config: %w", err)
	}

	// Create file system watcher
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file system watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	w := &Watcher{
		configFile: filepath.Clean(configFile),
		loader:     loader,
		logger:     slog.Default(),
		debounce:   DefaultDebounce,
		config:     config,
		fsWatcher:  fsWatcher,
		ctx:        ctx,
		cancel:     cancel,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With("component", "config-watcher")

	return w, nil
}

// Start starts watching the configuration file. The parent directory is
// watched so editors that replace the file are noticed too.
func (w *Watcher) Start() error {
	if err := w.fsWatcher.Add(filepath.Dir(w.configFile)); err != nil {
		return fmt.Errorf("failed to watch config file: %w", err)
	}

	w.wg.Add(1)
	go w.watchLoop()

	w.logger.Info("watching configuration", "file", w.configFile)
	return nil
}

// Stop stops watching the configuration file
func (w *Watcher) Stop() error {
	w.cancel()
	err := w.fsWatcher.Close()
	w.wg.Wait()
	return err
}

// GetConfig returns the current configuration
func (w *Watcher) GetConfig() *Config {
	w.configMu.RLock()
	defer w.configMu.RUnlock()
	return w.config
}

// OnConfigChange registers a callback for configuration changes
func (w *Watcher) OnConfigChange(callback ConfigChangeCallback) {
	w.callbacksMu.Lock()
	defer w.callbacksMu.Unlock()
	w.callbacks = append(w.callbacks, callback)
}

// Reload manually reloads the configuration
func (w *Watcher) Reload() error {
	return w.reloadConfig()
}

// watchLoop watches for file system events
func (w *Watcher) watchLoop() {
	defer w.wg.Done()

	// Debounce timer to avoid multiple reloads for rapid file changes
	var debounceTimer *time.Timer

	for {
		select {
		case <-w.ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.configFile {
				continue
			}

			switch {
			case event.Has(fsnotify.Write), event.Has(fsnotify.Create):
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(w.debounce, func() {
					if err := w.reloadConfig(); err != nil {
						w.logger.Error("failed to reload config", "file", w.configFile, "error", err)
					}
				})
			case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
				w.logger.Warn("config file was removed or renamed", "file", w.configFile)
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("config watcher error", "error", err)
		}
	}
}

// reloadConfig reloads the configuration from file. An invalid file keeps
// the previous configuration in place.
func (w *Watcher) reloadConfig() error {
	newConfig, err := w.loader.LoadFromFile(w.configFile)
	if err != nil {
		return fmt.Errorf("failed to reload config: %w", err)
	}

	w.configMu.Lock()
	oldConfig := w.config
	w.config = newConfig
	w.configMu.Unlock()

	w.notifyCallbacks(oldConfig, newConfig)

	w.logger.Info("configuration reloaded", "file", w.configFile)
	return nil
}

// notifyCallbacks notifies all registered callbacks of configuration changes
func (w *Watcher) notifyCallbacks(oldConfig, newConfig *Config) {
	w.callbacksMu.RLock()
	callbacks := make([]ConfigChangeCallback, len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.callbacksMu.RUnlock()

	for _, callback := range callbacks {
		// Call callback in a separate goroutine to avoid blocking
		go func(cb ConfigChangeCallback) {
			defer func() {
				if r := recover(); r != nil {
					w.logger.Error("config change callback panicked", "panic", r)
				}
			}()
			cb(oldConfig, newConfig)
		}(callback)
	}
}

// KitchenChanged reports whether the kitchen layout differs between two
// configurations
func KitchenChanged(oldConfig, newConfig *Config) bool {
	return !reflect.DeepEqual(oldConfig.Kitchen, newConfig.Kitchen)
}
