package config

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noEnv(string) (string, bool) { return "", false }

func envMap(vars map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		val, ok := vars[key]
		return val, ok
	}
}

func testLoader() *Loader {
	return NewLoader().SetEnvLookup(noEnv).SetSearchPaths(nil)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultConfigIsValid(t *testing.T) {
	config := DefaultConfig()
	require.NoError(t, config.Validate())
	assert.True(t, config.IsDevelopment())
	assert.True(t, config.IsDebugEnabled())
	assert.Equal(t, LogLevelInfo, config.GetLogLevel())
	assert.NotEmpty(t, config.Kitchen.Menu)
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"valid", func(*Config) {}, nil},
		{"empty app name", func(c *Config) { c.App.Name = "" }, ErrInvalidAppName},
		{"bad environment", func(c *Config) { c.App.Environment = "moon" }, ErrInvalidEnvironment},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, ErrInvalidLogLevel},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, ErrInvalidLogFormat},
		{"zero mailbox", func(c *Config) { c.Actor.DefaultMailboxSize = 0 }, ErrInvalidMailboxSize},
		{"negative waiters", func(c *Config) { c.Kitchen.Waiters = -1 }, ErrInvalidWaiters},
		{"clients without waiters", func(c *Config) { c.Kitchen.Waiters = 0 }, ErrInvalidWaiters},
		{"no waiters and no clients", func(c *Config) { c.Kitchen.Waiters = 0; c.Kitchen.Clients = nil }, nil},
		{"no cooks is allowed", func(c *Config) { c.Kitchen.Cooks = nil }, nil},
		{"empty menu", func(c *Config) { c.Kitchen.Menu = nil }, ErrEmptyMenu},
		{"negative delay", func(c *Config) { c.Kitchen.PrepareDelay = -time.Second }, ErrInvalidPrepareDelay},
		{"negative orders", func(c *Config) { c.Kitchen.OrdersPerClient = -1 }, ErrInvalidOrderCount},
		{"bad monitor port", func(c *Config) { c.Monitor.Enabled = true; c.Monitor.Port = 70000 }, ErrInvalidPort},
		{"disabled monitor ignores port", func(c *Config) { c.Monitor.Port = 0 }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)
			err := config.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestLoadYAMLKeepsDefaultsForMissingKeys(t *testing.T) {
	path := writeFile(t, t.TempDir(), "brigade.yaml", `
app:
  name: bistro
log:
  level: debug
kitchen:
  cooks: [Anna, Ben, Anna2]
  waiters: 2
  prepare_delay: 250ms
  seed: 42
`)

	config, err := testLoader().LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "bistro", config.App.Name)
	assert.Equal(t, EnvDevelopment, config.App.Environment)
	assert.Equal(t, LogLevelDebug, config.Log.Level)
	assert.Equal(t, LogFormatConsole, config.Log.Format)
	assert.True(t, config.Log.Color, "unset booleans keep their default")
	assert.Equal(t, []string{"Anna", "Ben", "Anna2"}, config.Kitchen.Cooks)
	assert.Equal(t, 2, config.Kitchen.Waiters)
	assert.Equal(t, 250*time.Millisecond, config.Kitchen.PrepareDelay)
	assert.Equal(t, uint64(42), config.Kitchen.Seed)
	assert.Equal(t, DefaultConfig().Kitchen.Menu, config.Kitchen.Menu)
}

func TestLoadJSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "brigade.json", `{
	"app": {"name": "json-kitchen", "environment": "production"},
	"kitchen": {"cooks": ["Solo"], "menu": ["Soup"], "prepare_delay": 1000000}
}`)

	config, err := testLoader().LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "json-kitchen", config.App.Name)
	assert.True(t, config.IsProduction())
	assert.Equal(t, []string{"Solo"}, config.Kitchen.Cooks)
	assert.Equal(t, []string{"Soup"}, config.Kitchen.Menu)
	assert.Equal(t, time.Millisecond, config.Kitchen.PrepareDelay)
}

func TestLoadRejectsBadInput(t *testing.T) {
	dir := t.TempDir()
	loader := testLoader()

	_, err := loader.LoadFromFile(writeFile(t, dir, "brigade.toml", "x = 1"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = loader.LoadFromFile(writeFile(t, dir, "broken.yaml", "kitchen: [unclosed"))
	assert.Error(t, err)

	_, err = loader.LoadFromFile(writeFile(t, dir, "invalid.yaml", "kitchen:\n  menu: []\n"))
	assert.ErrorIs(t, err, ErrEmptyMenu)

	_, err = loader.LoadFromFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadFromReader(t *testing.T) {
	config, err := testLoader().LoadFromReader(strings.NewReader("kitchen:\n  waiters: 3\n"), FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, 3, config.Kitchen.Waiters)

	config, err = testLoader().LoadFromReader(strings.NewReader(""), FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), config)
}

func TestEnvironmentOverrides(t *testing.T) {
	loader := testLoader().SetEnvLookup(envMap(map[string]string{
		"BRIGADE_APP_NAME":                  "env-kitchen",
		"BRIGADE_LOG_LEVEL":                 "ERROR",
		"BRIGADE_KITCHEN_COOKS":             "A, B ,,C",
		"BRIGADE_KITCHEN_WAITERS":           "4",
		"BRIGADE_KITCHEN_ORDERS_PER_CLIENT": "2",
		"BRIGADE_KITCHEN_PREPARE_DELAY":     "20ms",
		"BRIGADE_KITCHEN_SEED":              "7",
		"BRIGADE_MONITOR_ENABLED":           "true",
		"BRIGADE_MONITOR_PORT":              "8088",
	}))

	config, err := loader.Load("")
	require.NoError(t, err)
	assert.Equal(t, "env-kitchen", config.App.Name)
	assert.Equal(t, LogLevelError, config.Log.Level)
	assert.Equal(t, []string{"A", "B", "C"}, config.Kitchen.Cooks)
	assert.Equal(t, 4, config.Kitchen.Waiters)
	assert.Equal(t, 2, config.Kitchen.OrdersPerClient)
	assert.Equal(t, 20*time.Millisecond, config.Kitchen.PrepareDelay)
	assert.Equal(t, uint64(7), config.Kitchen.Seed)
	assert.True(t, config.Monitor.Enabled)
	assert.Equal(t, 8088, config.Monitor.Port)
}

func TestEnvironmentOverrideErrors(t *testing.T) {
	for key, val := range map[string]string{
		"BRIGADE_KITCHEN_WAITERS":       "many",
		"BRIGADE_KITCHEN_PREPARE_DELAY": "soon",
		"BRIGADE_KITCHEN_SEED":          "-1",
		"BRIGADE_MONITOR_PORT":          "0",
	} {
		t.Run(key, func(t *testing.T) {
			_, err := testLoader().SetEnvLookup(envMap(map[string]string{key: val})).Load("")
			assert.ErrorIs(t, err, ErrEnvironmentVar)
		})
	}
}

func TestAutoLoad(t *testing.T) {
	dir := t.TempDir()
	loader := testLoader().SetSearchPaths([]string{filepath.Join(dir, "nowhere"), dir})

	config, file, err := loader.AutoLoad()
	require.NoError(t, err)
	assert.Empty(t, file)
	assert.Equal(t, "brigade", config.App.Name)

	path := writeFile(t, dir, "brigade.yml", "app:\n  name: found\n")
	config, file, err = loader.AutoLoad()
	require.NoError(t, err)
	assert.Equal(t, path, file)
	assert.Equal(t, "found", config.App.Name)
}

func TestCloneIsDeep(t *testing.T) {
	original := DefaultConfig()
	clone := original.Clone()
	clone.Kitchen.Menu[0] = "Changed"
	clone.Kitchen.Cooks = append(clone.Kitchen.Cooks, "Extra")

	assert.NotEqual(t, "Changed", original.Kitchen.Menu[0])
	assert.Len(t, original.Kitchen.Cooks, 2)
}

func TestKitchenChanged(t *testing.T) {
	a, b := DefaultConfig(), DefaultConfig()
	assert.False(t, KitchenChanged(a, b))

	b.Log.Level = LogLevelDebug
	assert.False(t, KitchenChanged(a, b))

	b.Kitchen.Waiters = 5
	assert.True(t, KitchenChanged(a, b))
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	path := writeFile(t, t.TempDir(), "brigade.yaml", "log:\n  level: info\n")

	watcher, err := NewWatcher(path, testLoader(), WithDebounce(20*time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, LogLevelInfo, watcher.GetConfig().Log.Level)

	var mu sync.Mutex
	var seen []LogLevel
	watcher.OnConfigChange(func(oldConfig, newConfig *Config) {
		mu.Lock()
		seen = append(seen, oldConfig.Log.Level, newConfig.Log.Level)
		mu.Unlock()
	})

	require.NoError(t, watcher.Start())
	defer watcher.Stop()

	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o644))

	assert.Eventually(t, func() bool {
		return watcher.GetConfig().Log.Level == LogLevelDebug
	}, 3*time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) >= 2 && seen[0] == LogLevelInfo && seen[len(seen)-1] == LogLevelDebug
	}, time.Second, 10*time.Millisecond)
}

func TestWatcherKeepsConfigOnInvalidReload(t *testing.T) {
	path := writeFile(t, t.TempDir(), "brigade.yaml", "app:\n  name: steady\n")

	watcher, err := NewWatcher(path, testLoader())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: shouting\n"), 0o644))
	assert.ErrorIs(t, watcher.Reload(), ErrInvalidLogLevel)
	assert.Equal(t, "steady", watcher.GetConfig().App.Name)
	assert.Equal(t, LogLevelInfo, watcher.GetConfig().Log.Level)
}

func TestNewWatcherRejectsUnknownFormat(t *testing.T) {
	_, err := NewWatcher(filepath.Join(t.TempDir(), "brigade.ini"), testLoader())
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
