// Package bootstrap provides application implementation
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/najoast/brigade/config"
	"github.com/najoast/brigade/kitchen"
	"github.com/najoast/brigade/logging"
)

// Container keys
const (
	KeyConfig      = "config"
	KeyLogger      = "logger"
	KeyActorSystem = "actor-system"
	KeyBrigade     = "brigade"
	KeyMonitor     = "monitor"
	KeyWatcher     = "config-watcher"
)

// Service names
const (
	ServiceActorSystem = "actor-system"
	ServiceKitchen     = "kitchen"
	ServiceMonitor     = "monitor"
	ServiceWatcher     = "config-watcher"
)

var (
	_ Application      = (*DefaultApplication)(nil)
	_ Container        = (*DefaultContainer)(nil)
	_ LifecycleManager = (*DefaultLifecycleManager)(nil)
)

// DefaultApplication implements the Application interface
type DefaultApplication struct {
	cfg        *config.Config
	configFile string
	loader     *config.Loader

	// container provides dependency injection
	container *DefaultContainer

	// lifecycle manages service lifecycles
	lifecycle *DefaultLifecycleManager

	logger     *logging.Logger
	ownsLogger bool

	onDispatch func(kitchen.DispatchResult)
	onServed   func(client string, served kitchen.DishServed)

	// settlement tracking for WithExitWhenSettled
	exitWhenSettled bool
	expected        int64
	settledCount    atomic.Int64
	settled         chan struct{}
	settleOnce      sync.Once

	// mutex protects concurrent access
	mutex      sync.Mutex
	configured bool
	running    bool
}

// Option customizes a DefaultApplication
type Option func(*DefaultApplication)

// WithConfigFile names the file the configuration came from; it is watched
// for log level changes while the application runs
func WithConfigFile(path string) Option {
	return func(app *DefaultApplication) {
		app.configFile = path
	}
}

// WithLoader sets the loader the config watcher reloads with
func WithLoader(loader *config.Loader) Option {
	return func(app *DefaultApplication) {
		if loader != nil {
			app.loader = loader
		}
	}
}

// WithLogger uses logger instead of building one from the configuration
func WithLogger(logger *logging.Logger) Option {
	return func(app *DefaultApplication) {
		app.logger = logger
	}
}

// WithKitchenHooks observes dispatch decisions and served dishes
func WithKitchenHooks(onDispatch func(kitchen.DispatchResult), onServed func(client string, served kitchen.DishServed)) Option {
	return func(app *DefaultApplication) {
		app.onDispatch = onDispatch
		app.onServed = onServed
	}
}

// WithExitWhenSettled makes Run return once every order placed at opening
// was either served or dropped
func WithExitWhenSettled() Option {
	return func(app *DefaultApplication) {
		app.exitWhenSettled = true
	}
}

// NewApplication creates a new brigade application
func NewApplication(opts ...Option) *DefaultApplication {
	app := &DefaultApplication{
		container: NewContainer(),
		loader:    config.NewLoader(),
		settled:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(app)
	}
	return app
}

// Configure validates cfg, builds the logger and registers the services
func (app *DefaultApplication) Configure(cfg *config.Config) error {
	app.mutex.Lock()
	defer app.mutex.Unlock()

	if app.running {
		return errors.New("cannot configure application while running")
	}
	if app.configured {
		return errors.New("application already configured")
	}
	if cfg == nil {
		return errors.New("configuration cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return &ApplicationError{Operation: "configure", Err: err}
	}

	if app.logger == nil {
		logger, err := logging.New(cfg.Log)
		if err != nil {
			return &ApplicationError{Operation: "configure", Err: err}
		}
		app.logger = logger
		app.ownsLogger = true
	}

	app.cfg = cfg
	app.lifecycle = NewLifecycleManager(app.logger.Logger)
	if cfg.Actor.ShutdownTimeout > 0 {
		app.lifecycle.SetTimeout(cfg.Actor.ShutdownTimeout)
	}
	app.expected = int64(len(cfg.Kitchen.Clients) * cfg.Kitchen.OrdersPerClient)

	app.container.RegisterInstance(KeyConfig, cfg)
	app.container.RegisterInstance(KeyLogger, app.logger)

	if err := app.registerServices(); err != nil {
		return &ApplicationError{Operation: "configure", Err: err}
	}

	app.configured = true
	return nil
}

func (app *DefaultApplication) registerServices() error {
	if err := app.lifecycle.Register(ServiceActorSystem, &ActorSystemService{app: app}); err != nil {
		return err
	}
	if err := app.lifecycle.Register(ServiceKitchen, &KitchenService{app: app}, ServiceActorSystem); err != nil {
		return err
	}
	if app.cfg.Monitor.Enabled {
		if err := app.lifecycle.Register(ServiceMonitor, &MonitorService{app: app}, ServiceKitchen); err != nil {
			return err
		}
	}
	if app.configFile != "" {
		if err := app.lifecycle.Register(ServiceWatcher, &ConfigWatcherService{app: app}); err != nil {
			return err
		}
	}
	return nil
}

// Run starts every service and blocks until ctx ends, SIGINT or SIGTERM
// arrives, or, with WithExitWhenSettled, every order is settled
func (app *DefaultApplication) Run(ctx context.Context) error {
	app.mutex.Lock()
	if !app.configured {
		app.mutex.Unlock()
		return errors.New("application is not configured")
	}
	if app.running {
		app.mutex.Unlock()
		return errors.New("application is already running")
	}
	app.running = true
	app.mutex.Unlock()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if app.expected == 0 {
		app.settleOnce.Do(func() { close(app.settled) })
	}

	if err := app.lifecycle.Start(ctx); err != nil {
		app.mutex.Lock()
		app.running = false
		app.mutex.Unlock()
		app.closeLogger()
		return fmt.Errorf("failed to start services: %w", err)
	}

	app.logger.Info("kitchen is open",
		"app", app.cfg.App.Name,
		"version", app.cfg.App.Version,
		"environment", app.cfg.App.Environment)

	var settled <-chan struct{}
	if app.exitWhenSettled {
		settled = app.settled
	}

	select {
	case <-ctx.Done():
		app.logger.Info("shutdown requested, closing the kitchen")
	case <-settled:
		app.logger.Info("every order settled, closing the kitchen", "orders", app.expected)
	}

	return app.Shutdown(context.Background())
}

// Shutdown stops every service in reverse start order
func (app *DefaultApplication) Shutdown(ctx context.Context) error {
	app.mutex.Lock()
	if !app.running {
		app.mutex.Unlock()
		return nil
	}
	app.running = false
	app.mutex.Unlock()

	timeout := 30 * time.Second
	if app.cfg.Actor.ShutdownTimeout > 0 {
		timeout = app.cfg.Actor.ShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := app.lifecycle.Stop(shutdownCtx)
	if err != nil {
		app.logger.Error("kitchen closed with errors", "error", err)
	} else {
		app.logger.Info("kitchen closed")
	}

	app.closeLogger()
	if err != nil {
		return fmt.Errorf("failed to stop services: %w", err)
	}
	return nil
}

func (app *DefaultApplication) closeLogger() {
	if app.ownsLogger {
		app.logger.Close()
	}
}

// Container returns the dependency injection container
func (app *DefaultApplication) Container() Container {
	return app.container
}

// LifecycleManager returns the lifecycle manager
func (app *DefaultApplication) LifecycleManager() LifecycleManager {
	return app.lifecycle
}

// Settled is closed once every order placed at opening is served or dropped
func (app *DefaultApplication) Settled() <-chan struct{} {
	return app.settled
}

// Logger returns the application logger; nil before Configure
func (app *DefaultApplication) Logger() *logging.Logger {
	return app.logger
}

// healthErrors adapts lifecycle health to the monitor's view
func (app *DefaultApplication) healthErrors(ctx context.Context) map[string]error {
	health := app.lifecycle.Health(ctx)
	out := make(map[string]error, len(health))
	for name, status := range health {
		if status.State == HealthHealthy {
			out[name] = nil
			continue
		}
		out[name] = fmt.Errorf("%s: %s", status.State, status.Message)
	}
	return out
}

func (app *DefaultApplication) dispatched(result kitchen.DispatchResult) {
	if result.Outcome == kitchen.Dropped {
		app.settle()
	}
	if app.onDispatch != nil {
		app.onDispatch(result)
	}
}

func (app *DefaultApplication) served(client string, served kitchen.DishServed) {
	app.settle()
	if app.onServed != nil {
		app.onServed(client, served)
	}
}

func (app *DefaultApplication) settle() {
	if app.settledCount.Add(1) >= app.expected {
		app.settleOnce.Do(func() { close(app.settled) })
	}
}

// applyConfig is the config watcher callback. Only the log level changes
// live; a different kitchen layout needs a restart.
func (app *DefaultApplication) applyConfig(oldConfig, newConfig *config.Config) {
	if oldConfig.Log.Level != newConfig.Log.Level {
		if err := app.logger.SetLevel(newConfig.Log.Level); err != nil {
			app.logger.Error("log level not applied", "level", newConfig.Log.Level, "error", err)
		} else {
			app.logger.Info("log level changed", "from", oldConfig.Log.Level, "to", newConfig.Log.Level)
		}
	}
	if config.KitchenChanged(oldConfig, newConfig) {
		app.logger.Warn("kitchen configuration changed; restart to apply it")
	}
}
