package core

import (
	"context"
)

// MessageHandler processes incoming messages for an Actor.
type MessageHandler interface {
	// HandleMessage processes a single message.
	// A returned error is logged by the actor loop; the actor keeps running.
	HandleMessage(ctx context.Context, msg *Message) error
}

// CallHandler is implemented by handlers that answer synchronous Calls.
// Handlers without it still accept Calls and reply with a nil value.
type CallHandler interface {
	HandleCall(ctx context.Context, msg *Message) (interface{}, error)
}

// HandlerFunc adapts a plain function to MessageHandler.
type HandlerFunc func(ctx context.Context, msg *Message) error

// HandleMessage calls f(ctx, msg).
func (f HandlerFunc) HandleMessage(ctx context.Context, msg *Message) error {
	return f(ctx, msg)
}

// Actor represents a computational unit that processes messages sequentially.
// Each Actor runs in its own goroutine and communicates through channels.
type Actor interface {
	// ID returns the unique identifier of this Actor.
	ID() ActorID

	// Name returns the human-readable name given at creation.
	Name() string

	// Start begins the Actor's message processing loop.
	// It should be called only once per Actor instance.
	Start(ctx context.Context) error

	// Stop shuts down the Actor after the message in hand.
	// Messages still queued are discarded.
	Stop() error

	// Send sends a message to this Actor's mailbox without blocking.
	Send(msg *Message) error

	// Call enqueues a message and waits for the handler's reply.
	Call(ctx context.Context, msg *Message) (interface{}, error)

	// Stats returns current runtime statistics for this Actor.
	Stats() ActorStats
}

// Router manages message routing between Actors.
type Router interface {
	// Register adds an Actor to the routing table.
	Register(actor Actor) error

	// Unregister removes an Actor from the routing table.
	Unregister(id ActorID) error

	// Route delivers a message to its target Actor.
	Route(msg *Message) error

	// Lookup finds an Actor by its ID.
	Lookup(id ActorID) (Actor, bool)

	// List returns all registered Actor IDs.
	List() []ActorID
}

// ActorSystem manages the lifecycle of all Actors in the system.
type ActorSystem interface {
	// NewActor creates, registers and starts a new Actor.
	NewActor(handler MessageHandler, opts ActorOptions) (Actor, error)

	// NewService creates an Actor reachable by name as well as by ID.
	NewService(name string, handler MessageHandler, opts ActorOptions) (*Handle, error)

	// GetActor retrieves an Actor by its ID.
	GetActor(id ActorID) (Actor, bool)

	// GetService retrieves a service handle by name.
	GetService(name string) (*Handle, bool)

	// Send delivers payload from one Actor to another, fire-and-forget.
	Send(from, to ActorID, payload interface{}) error

	// SendByName delivers payload to a named service.
	SendByName(from ActorID, to string, payload interface{}) error

	// Call sends payload to an Actor and waits for its reply.
	Call(ctx context.Context, to ActorID, payload interface{}) (interface{}, error)

	// Stop stops a single Actor and forgets its handle.
	Stop(id ActorID) error

	// Shutdown gracefully stops all Actors in the system.
	Shutdown(ctx context.Context) error

	// Stats returns statistics for all Actors.
	Stats() []ActorStats

	// ListServices returns all named services.
	ListServices() []*Handle
}
