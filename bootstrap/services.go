package bootstrap

import (
	"context"
	"fmt"

	"github.com/najoast/brigade/config"
	"github.com/najoast/brigade/core"
	"github.com/najoast/brigade/kitchen"
	"github.com/najoast/brigade/monitor"
)

// ActorSystemService owns the actor system every kitchen actor runs on
type ActorSystemService struct {
	app    *DefaultApplication
	system core.ActorSystem
}

// Name returns the service name
func (s *ActorSystemService) Name() string {
	return ServiceActorSystem
}

// Start creates the actor system and registers it in the container
func (s *ActorSystemService) Start(ctx context.Context) error {
	cfg := s.app.cfg.Actor
	s.system = core.NewActorSystem(
		core.WithLogger(s.app.logger.Logger),
		core.WithMailboxSize(cfg.DefaultMailboxSize),
		core.WithProcessTimeout(cfg.ProcessTimeout),
	)
	return s.app.container.RegisterInstance(KeyActorSystem, s.system)
}

// Stop shuts the actor system down
func (s *ActorSystemService) Stop(ctx context.Context) error {
	if s.system == nil {
		return nil
	}
	s.app.container.RemoveInstance(KeyActorSystem)
	err := s.system.Shutdown(ctx)
	s.system = nil
	return err
}

// Health reports the number of live actors and services
func (s *ActorSystemService) Health(ctx context.Context) (HealthStatus, error) {
	if s.system == nil {
		return HealthStatus{State: HealthStopped, Message: "actor system not running"}, nil
	}
	return HealthStatus{
		State:   HealthHealthy,
		Message: "actor system running",
		Data: map[string]interface{}{
			"actors":   len(s.system.Stats()),
			"services": len(s.system.ListServices()),
		},
	}, nil
}

// KitchenService assembles the brigade and opens the doors
type KitchenService struct {
	app     *DefaultApplication
	brigade *kitchen.Brigade
}

// Name returns the service name
func (s *KitchenService) Name() string {
	return ServiceKitchen
}

// Plan turns the kitchen configuration into an assembly plan
func Plan(cfg config.KitchenConfig) kitchen.Plan {
	plan := kitchen.Plan{
		Cooks:        cfg.Cooks,
		Waiters:      cfg.Waiters,
		Clients:      cfg.Clients,
		Menu:         cfg.Menu,
		PrepareDelay: cfg.PrepareDelay,
	}
	if cfg.Seed != 0 {
		plan.Picker = kitchen.SeededPicker(cfg.Seed)
	}
	return plan
}

// Start assembles the brigade and sends every client its orders
func (s *KitchenService) Start(ctx context.Context) error {
	var system core.ActorSystem
	if err := s.app.container.ResolveAs(KeyActorSystem, &system); err != nil {
		return err
	}

	plan := Plan(s.app.cfg.Kitchen)
	plan.OnDispatch = s.app.dispatched
	plan.OnServed = s.app.served

	b, err := kitchen.Assemble(system, plan, s.app.logger.Logger)
	if err != nil {
		return err
	}
	s.brigade = b
	if err := s.app.container.RegisterInstance(KeyBrigade, b); err != nil {
		return err
	}

	if err := b.OpenDoors(s.app.cfg.Kitchen.OrdersPerClient); err != nil {
		return fmt.Errorf("failed to open doors: %w", err)
	}
	return nil
}

// Stop dismisses the brigade
func (s *KitchenService) Stop(ctx context.Context) error {
	if s.brigade == nil {
		return nil
	}
	s.app.container.RemoveInstance(KeyBrigade)
	err := s.brigade.Dismiss()
	s.brigade = nil
	return err
}

// Health asks the chef for its roster; a kitchen without cooks is unhealthy
func (s *KitchenService) Health(ctx context.Context) (HealthStatus, error) {
	if s.brigade == nil {
		return HealthStatus{State: HealthStopped, Message: "kitchen closed"}, nil
	}

	roster, err := s.brigade.Roster(ctx)
	if err != nil {
		return HealthStatus{}, fmt.Errorf("chef did not answer: %w", err)
	}

	status := HealthStatus{
		State:   HealthHealthy,
		Message: "kitchen open",
		Data: map[string]interface{}{
			"cooks":         len(roster.Cooks),
			"waiters":       len(roster.Waiters),
			"dispatched":    roster.Dispatched,
			"dropped":       roster.Dropped,
			"delivered":     roster.Delivered,
			"undeliverable": roster.Undeliverable,
		},
	}
	if len(roster.Cooks) == 0 {
		status.State = HealthUnhealthy
		status.Message = "no cook available; orders are dropped"
	}
	return status, nil
}

// MonitorService runs the HTTP monitor
type MonitorService struct {
	app    *DefaultApplication
	server *monitor.Server
}

// Name returns the service name
func (s *MonitorService) Name() string {
	return ServiceMonitor
}

// Start begins serving the monitor endpoints
func (s *MonitorService) Start(ctx context.Context) error {
	var system core.ActorSystem
	if err := s.app.container.ResolveAs(KeyActorSystem, &system); err != nil {
		return err
	}
	var b *kitchen.Brigade
	if err := s.app.container.ResolveAs(KeyBrigade, &b); err != nil {
		return err
	}

	server := monitor.New(s.app.cfg.Monitor, monitor.Sources{
		System:  system,
		Kitchen: b,
		Health:  s.app.healthErrors,
	}, s.app.logger.Logger)
	if err := server.Start(); err != nil {
		return err
	}

	s.server = server
	return s.app.container.RegisterInstance(KeyMonitor, server)
}

// Stop shuts the HTTP server down
func (s *MonitorService) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	s.app.container.RemoveInstance(KeyMonitor)
	err := s.server.Stop(ctx)
	s.server = nil
	return err
}

// Health reports the listening address
func (s *MonitorService) Health(ctx context.Context) (HealthStatus, error) {
	if s.server == nil {
		return HealthStatus{State: HealthStopped, Message: "monitor not running"}, nil
	}
	return HealthStatus{
		State:   HealthHealthy,
		Message: "monitor listening",
		Data:    map[string]interface{}{"addr": s.server.Addr()},
	}, nil
}

// ConfigWatcherService reloads the configuration file when it changes
type ConfigWatcherService struct {
	app     *DefaultApplication
	watcher *config.Watcher
}

// Name returns the service name
func (s *ConfigWatcherService) Name() string {
	return ServiceWatcher
}

// Start watches the configuration file and applies reloads
func (s *ConfigWatcherService) Start(ctx context.Context) error {
	watcher, err := config.NewWatcher(s.app.configFile, s.app.loader, config.WithWatcherLogger(s.app.logger.Logger))
	if err != nil {
		return err
	}
	watcher.OnConfigChange(s.app.applyConfig)
	if err := watcher.Start(); err != nil {
		watcher.Stop()
		return err
	}

	s.watcher = watcher
	return s.app.container.RegisterInstance(KeyWatcher, watcher)
}

// Stop stops watching
func (s *ConfigWatcherService) Stop(ctx context.Context) error {
	if s.watcher == nil {
		return nil
	}
	s.app.container.RemoveInstance(KeyWatcher)
	err := s.watcher.Stop()
	s.watcher = nil
	return err
}

// Health reports whether the file is being watched
func (s *ConfigWatcherService) Health(ctx context.Context) (HealthStatus, error) {
	if s.watcher == nil {
		return HealthStatus{State: HealthStopped, Message: "not watching"}, nil
	}
	return HealthStatus{State: HealthHealthy, Message: "watching configuration"}, nil
}
