// Package bootstrap provides dependency injection container implementation
package bootstrap

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// ErrServiceNotRegistered is returned when resolving an unknown name
var ErrServiceNotRegistered = errors.New("service is not registered")

// DefaultContainer holds named instances and lazily built factories
type DefaultContainer struct {
	// factories holds registered service factories
	factories map[string]ServiceFactory

	// instances holds created or registered instances
	instances map[string]interface{}

	// mutex protects concurrent access
	mutex sync.RWMutex
}

// NewContainer creates a new dependency injection container
func NewContainer() *DefaultContainer {
	return &DefaultContainer{
		factories: make(map[string]ServiceFactory),
		instances: make(map[string]interface{}),
	}
}

// Register registers a service factory with the container
func (c *DefaultContainer) Register(name string, factory ServiceFactory) error {
	if name == "" {
		return errors.New("service name cannot be empty")
	}
	if factory == nil {
		return errors.New("service factory cannot be nil")
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if _, exists := c.factories[name]; exists {
		return fmt.Errorf("service %s is already registered", name)
	}

	c.factories[name] = factory
	return nil
}

// RegisterInstance registers a service instance with the container
func (c *DefaultContainer) RegisterInstance(name string, instance interface{}) error {
	if name == "" {
		return errors.New("service name cannot be empty")
	}
	if instance == nil {
		return errors.New("service instance cannot be nil")
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if _, exists := c.instances[name]; exists {
		return fmt.Errorf("service instance %s is already registered", name)
	}

	c.instances[name] = instance
	return nil
}

// Resolve returns the instance registered under name, building and caching it
// from its factory on first use. Factories may resolve other services.
func (c *DefaultContainer) Resolve(name string) (interface{}, error) {
	c.mutex.RLock()
	instance, exists := c.instances[name]
	factory, hasFactory := c.factories[name]
	c.mutex.RUnlock()

	if exists {
		return instance, nil
	}
	if !hasFactory {
		return nil, fmt.Errorf("%s: %w", name, ErrServiceNotRegistered)
	}

	instance, err := factory(c)
	if err != nil {
		return nil, fmt.Errorf("failed to create service %s: %w", name, err)
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()
	// Another caller may have won the race; keep the first instance.
	if existing, exists := c.instances[name]; exists {
		return existing, nil
	}
	c.instances[name] = instance
	return instance, nil
}

// ResolveAs resolves a service and assigns it to the value target points to
func (c *DefaultContainer) ResolveAs(name string, target interface{}) error {
	targetValue := reflect.ValueOf(target)
	if targetValue.Kind() != reflect.Ptr || targetValue.IsNil() {
		return errors.New("target must be a non-nil pointer")
	}

	instance, err := c.Resolve(name)
	if err != nil {
		return err
	}

	instanceValue := reflect.ValueOf(instance)
	targetType := targetValue.Elem().Type()
	if !instanceValue.Type().AssignableTo(targetType) {
		return fmt.Errorf("service %s of type %s is not assignable to %s",
			name, instanceValue.Type(), targetType)
	}

	targetValue.Elem().Set(instanceValue)
	return nil
}

// Has checks if a service is registered
func (c *DefaultContainer) Has(name string) bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	_, hasFactory := c.factories[name]
	_, hasInstance := c.instances[name]
	return hasFactory || hasInstance
}

// Names returns all registered service names, sorted
func (c *DefaultContainer) Names() []string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	nameSet := make(map[string]struct{}, len(c.factories)+len(c.instances))
	for name := range c.factories {
		nameSet[name] = struct{}{}
	}
	for name := range c.instances {
		nameSet[name] = struct{}{}
	}

	names := make([]string, 0, len(nameSet))
	for name := range nameSet {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RemoveInstance removes a cached or registered instance. A factory stays
// registered and builds a fresh instance on the next Resolve.
func (c *DefaultContainer) RemoveInstance(name string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.instances, name)
}
