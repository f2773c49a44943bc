package core

import (
	"fmt"
	"sort"
	"sync"
)

// Handle binds a service name to the actor serving it.
type Handle struct {
	// ActorID is the handle messages are routed by
	ActorID ActorID `json:"actor_id"`

	// Name is the service name
	Name string `json:"name"`
}

// String returns a string representation of the handle.
func (h Handle) String() string {
	if h.Name != "" {
		return fmt.Sprintf("%s(%s)", h.ActorID, h.Name)
	}
	return h.ActorID.String()
}

// HandleManager manages the mapping between service names and Actors.
type HandleManager struct {
	mu sync.RWMutex

	// Maps actor ID to its handle
	byActor map[ActorID]*Handle

	// Maps service name to its handle
	byName map[string]*Handle
}

// NewHandleManager creates a new HandleManager.
func NewHandleManager() *HandleManager {
	return &HandleManager{
		byActor: make(map[ActorID]*Handle),
		byName:  make(map[string]*Handle),
	}
}

// AllocateHandle names an actor. An actor that already has a handle keeps it.
func (hm *HandleManager) AllocateHandle(actorID ActorID, name string) (*Handle, error) {
	hm.mu.Lock()
	defer hm.mu.Unlock()

	if existing, exists := hm.byActor[actorID]; exists {
		return existing, nil
	}

	if name != "" {
		if _, exists := hm.byName[name]; exists {
			return nil, fmt.Errorf("service '%s': %w", name, ErrNameTaken)
		}
	}

	handle := &Handle{ActorID: actorID, Name: name}
	hm.byActor[actorID] = handle
	if name != "" {
		hm.byName[name] = handle
	}

	return handle, nil
}

// GetHandleByActor retrieves a handle by actor ID.
func (hm *HandleManager) GetHandleByActor(actorID ActorID) (*Handle, bool) {
	hm.mu.RLock()
	defer hm.mu.RUnlock()

	handle, exists := hm.byActor[actorID]
	return handle, exists
}

// GetHandleByName retrieves a handle by service name.
func (hm *HandleManager) GetHandleByName(name string) (*Handle, bool) {
	hm.mu.RLock()
	defer hm.mu.RUnlock()

	handle, exists := hm.byName[name]
	return handle, exists
}

// ReleaseActor removes the handle of an actor, if it has one.
func (hm *HandleManager) ReleaseActor(actorID ActorID) {
	hm.mu.Lock()
	defer hm.mu.Unlock()

	handle, exists := hm.byActor[actorID]
	if !exists {
		return
	}
	delete(hm.byActor, actorID)
	if handle.Name != "" {
		delete(hm.byName, handle.Name)
	}
}

// ListHandles returns all named handles ordered by actor ID.
func (hm *HandleManager) ListHandles() []*Handle {
	hm.mu.RLock()
	defer hm.mu.RUnlock()

	handles := make([]*Handle, 0, len(hm.byName))
	for _, handle := range hm.byName {
		handles = append(handles, handle)
	}
	sort.Slice(handles, func(i, j int) bool { return handles[i].ActorID < handles[j].ActorID })
	return handles
}
