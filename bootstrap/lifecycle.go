// Package bootstrap provides service lifecycle management
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// DefaultLifecycleManager implements the LifecycleManager interface
type DefaultLifecycleManager struct {
	// services holds all registered services
	services map[string]Service

	// dependencies tracks service dependencies
	dependencies map[string][]string

	// registered keeps registration order so start order is stable
	registered []string

	// startOrder tracks the order services were started
	startOrder []string

	logger *slog.Logger

	// mutex protects concurrent access
	mutex sync.RWMutex

	// started indicates if the lifecycle manager has been started
	started bool

	// eventChan for broadcasting lifecycle events
	eventChan chan LifecycleEvent

	// listeners for lifecycle events
	listeners []func(LifecycleEvent)

	// timeout for service operations
	timeout time.Duration
}

// NewLifecycleManager creates a new lifecycle manager
func NewLifecycleManager(logger *slog.Logger) *DefaultLifecycleManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultLifecycleManager{
		services:     make(map[string]Service),
		dependencies: make(map[string][]string),
		logger:       logger.With("component", "lifecycle"),
		eventChan:    make(chan LifecycleEvent, 100),
		timeout:      30 * time.Second,
	}
}

// Register registers a service with the lifecycle manager
func (lm *DefaultLifecycleManager) Register(name string, service Service, deps ...string) error {
	if name == "" {
		return errors.New("service name cannot be empty")
	}
	if service == nil {
		return errors.New("service cannot be nil")
	}

	lm.mutex.Lock()
	defer lm.mutex.Unlock()

	if lm.started {
		return fmt.Errorf("cannot register service %s: lifecycle manager already started", name)
	}
	if _, exists := lm.services[name]; exists {
		return fmt.Errorf("service %s is already registered", name)
	}

	lm.services[name] = service
	lm.dependencies[name] = deps
	lm.registered = append(lm.registered, name)

	lm.broadcastEvent(LifecycleEvent{
		Type:      EventServiceRegistered,
		Service:   name,
		Timestamp: time.Now(),
		Data:      map[string]interface{}{"dependencies": deps},
	})

	return nil
}

// Start starts all services in dependency order. If one fails, the services
// already started are stopped again in reverse order.
func (lm *DefaultLifecycleManager) Start(ctx context.Context) error {
	lm.mutex.Lock()
	defer lm.mutex.Unlock()

	if lm.started {
		return errors.New("lifecycle manager already started")
	}

	startOrder, err := lm.calculateStartOrder()
	if err != nil {
		return &ApplicationError{Operation: "start", Err: err}
	}

	lm.broadcastEvent(LifecycleEvent{
		Type:      EventLifecycleStarting,
		Timestamp: time.Now(),
		Data:      map[string]interface{}{"order": startOrder},
	})

	for _, serviceName := range startOrder {
		service := lm.services[serviceName]

		lm.broadcastEvent(LifecycleEvent{Type: EventServiceStarting, Service: serviceName, Timestamp: time.Now()})

		startCtx, cancel := context.WithTimeout(ctx, lm.timeout)
		err := service.Start(startCtx)
		cancel()

		if err != nil {
			lm.broadcastEvent(LifecycleEvent{Type: EventServiceStartFailed, Service: serviceName, Timestamp: time.Now(), Error: err})
			lm.logger.Error("service failed to start", "service", serviceName, "error", err)
			lm.stopStarted(ctx)
			return &ApplicationError{Operation: "start", Service: serviceName, Err: err}
		}

		lm.startOrder = append(lm.startOrder, serviceName)
		lm.broadcastEvent(LifecycleEvent{Type: EventServiceStarted, Service: serviceName, Timestamp: time.Now()})
		lm.logger.Debug("service started", "service", serviceName)
	}

	lm.started = true
	lm.broadcastEvent(LifecycleEvent{Type: EventLifecycleStarted, Timestamp: time.Now()})

	return nil
}

// Stop stops all services in reverse start order
func (lm *DefaultLifecycleManager) Stop(ctx context.Context) error {
	lm.mutex.Lock()
	defer lm.mutex.Unlock()

	if !lm.started {
		return nil
	}

	lm.broadcastEvent(LifecycleEvent{Type: EventLifecycleStopping, Timestamp: time.Now()})
	err := lm.stopStarted(ctx)
	lm.started = false
	lm.broadcastEvent(LifecycleEvent{Type: EventLifecycleStopped, Timestamp: time.Now()})

	return err
}

// stopStarted must be called with the mutex held
func (lm *DefaultLifecycleManager) stopStarted(ctx context.Context) error {
	var errs []error

	for i := len(lm.startOrder) - 1; i >= 0; i-- {
		serviceName := lm.startOrder[i]
		service := lm.services[serviceName]

		lm.broadcastEvent(LifecycleEvent{Type: EventServiceStopping, Service: serviceName, Timestamp: time.Now()})

		stopCtx, cancel := context.WithTimeout(ctx, lm.timeout)
		err := service.Stop(stopCtx)
		cancel()

		if err != nil {
			errs = append(errs, &ApplicationError{Operation: "stop", Service: serviceName, Err: err})
			lm.broadcastEvent(LifecycleEvent{Type: EventServiceStopFailed, Service: serviceName, Timestamp: time.Now(), Error: err})
			lm.logger.Error("service failed to stop", "service", serviceName, "error", err)
			continue
		}
		lm.broadcastEvent(LifecycleEvent{Type: EventServiceStopped, Service: serviceName, Timestamp: time.Now()})
	}

	lm.startOrder = nil
	return errors.Join(errs...)
}

// Health returns the health status of all services. A service whose check
// fails is reported unhealthy with the error as message.
func (lm *DefaultLifecycleManager) Health(ctx context.Context) map[string]HealthStatus {
	lm.mutex.RLock()
	defer lm.mutex.RUnlock()

	health := make(map[string]HealthStatus, len(lm.services))

	for name, service := range lm.services {
		healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		status, err := service.Health(healthCtx)
		cancel()

		if err != nil {
			status = HealthStatus{State: HealthUnhealthy, Message: err.Error()}
		}
		if status.LastCheck.IsZero() {
			status.LastCheck = time.Now()
		}
		health[name] = status
	}

	return health
}

// Services returns all registered service names
func (lm *DefaultLifecycleManager) Services() []string {
	lm.mutex.RLock()
	defer lm.mutex.RUnlock()

	names := make([]string, 0, len(lm.services))
	for name := range lm.services {
		names = append(names, name)
	}

	sort.Strings(names)
	return names
}

// Events returns a channel for lifecycle events. Events are dropped when
// nobody drains it.
func (lm *DefaultLifecycleManager) Events() <-chan LifecycleEvent {
	return lm.eventChan
}

// AddListener adds a lifecycle event listener
func (lm *DefaultLifecycleManager) AddListener(listener func(LifecycleEvent)) {
	lm.mutex.Lock()
	defer lm.mutex.Unlock()

	lm.listeners = append(lm.listeners, listener)
}

// calculateStartOrder orders services so each starts after its dependencies,
// using Kahn's algorithm over registration order
func (lm *DefaultLifecycleManager) calculateStartOrder() ([]string, error) {
	inDegree := make(map[string]int, len(lm.services))
	graph := make(map[string][]string, len(lm.services))

	for _, service := range lm.registered {
		for _, dep := range lm.dependencies[service] {
			if _, exists := lm.services[dep]; !exists {
				return nil, fmt.Errorf("dependency %s of service %s is not registered", dep, service)
			}
			graph[dep] = append(graph[dep], service)
			inDegree[service]++
		}
	}

	var queue []string
	for _, service := range lm.registered {
		if inDegree[service] == 0 {
			queue = append(queue, service)
		}
	}

	result := make([]string, 0, len(lm.services))
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		result = append(result, current)

		for _, dependent := range graph[current] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	if len(result) != len(lm.services) {
		return nil, errors.New("circular dependency detected")
	}

	return result, nil
}

// broadcastEvent broadcasts a lifecycle event to all listeners
func (lm *DefaultLifecycleManager) broadcastEvent(event LifecycleEvent) {
	select {
	case lm.eventChan <- event:
	default:
	}

	for _, listener := range lm.listeners {
		go func(l func(LifecycleEvent)) {
			defer func() {
				if r := recover(); r != nil {
					lm.logger.Error("lifecycle listener panicked", "event", event.Type, "panic", r)
				}
			}()
			l(event)
		}(listener)
	}
}

// SetTimeout sets the timeout for service operations
func (lm *DefaultLifecycleManager) SetTimeout(timeout time.Duration) {
	lm.mutex.Lock()
	defer lm.mutex.Unlock()

	lm.timeout = timeout
}

// IsStarted returns true if the lifecycle manager has been started
func (lm *DefaultLifecycleManager) IsStarted() bool {
	lm.mutex.RLock()
	defer lm.mutex.RUnlock()

	return lm.started
}

// GetDependencies returns the dependencies for a service
func (lm *DefaultLifecycleManager) GetDependencies(name string) ([]string, bool) {
	lm.mutex.RLock()
	defer lm.mutex.RUnlock()

	deps, exists := lm.dependencies[name]
	if !exists {
		return nil, false
	}
	return append([]string(nil), deps...), true
}
