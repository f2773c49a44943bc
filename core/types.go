package core

import (
	"fmt"
	"time"
)

// ActorID is the opaque handle of an Actor. The zero value means "nobody".
type ActorID uint32

// NoSender is used as the source of messages that do not originate from an actor.
const NoSender ActorID = 0

// String returns the handle formatted the way logs print it.
func (id ActorID) String() string {
	return fmt.Sprintf(":%08x", uint32(id))
}

// Message represents communication data between Actors.
type Message struct {
	// ID is a unique identifier for this message
	ID uint64

	// Source is the ID of the sending Actor
	Source ActorID

	// Target is the ID of the receiving Actor
	Target ActorID

	// Session is used for request-response correlation of Call
	Session uint32

	// Payload is the immutable value being delivered
	Payload interface{}

	// Timestamp when the message was created
	Timestamp time.Time
}

// ActorState represents the current state of an Actor.
type ActorState uint8

const (
	// ActorStateIdle means the Actor is waiting for messages
	ActorStateIdle ActorState = iota

	// ActorStateRunning means the Actor is processing a message
	ActorStateRunning

	// ActorStateStopping means the Actor is shutting down
	ActorStateStopping

	// ActorStateStopped means the Actor has been stopped
	ActorStateStopped
)

// String returns the string representation of ActorState.
func (s ActorState) String() string {
	switch s {
	case ActorStateIdle:
		return "idle"
	case ActorStateRunning:
		return "running"
	case ActorStateStopping:
		return "stopping"
	case ActorStateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// MarshalText lets ActorState render as a word in JSON output.
func (s ActorState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses the words MarshalText produces.
func (s *ActorState) UnmarshalText(text []byte) error {
	for st := ActorStateIdle; st <= ActorStateStopped; st++ {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown actor state %q", text)
}

// ActorOptions contains configuration options for creating an Actor.
type ActorOptions struct {
	// MailboxSize sets the size of the Actor's message queue
	MailboxSize int

	// Name is a human-readable name for the Actor
	Name string

	// ProcessTimeout bounds the handling of a single message. Zero takes the
	// system default; NoProcessTimeout disables the bound.
	ProcessTimeout time.Duration
}

// NoProcessTimeout lets an actor's handler run until it returns or the actor stops.
const NoProcessTimeout time.Duration = -1

// DefaultActorOptions returns sensible default options.
func DefaultActorOptions() ActorOptions {
	return ActorOptions{
		MailboxSize:    1000,
		Name:           "",
		ProcessTimeout: 30 * time.Second,
	}
}

// ActorStats contains runtime statistics for an Actor.
type ActorStats struct {
	ID                ActorID    `json:"id"`
	Name              string     `json:"name"`
	State             ActorState `json:"state"`
	MessagesProcessed uint64     `json:"messages_processed"`
	HandlerErrors     uint64     `json:"handler_errors"`
	MailboxSize       int        `json:"mailbox_size"`
	CreatedAt         time.Time  `json:"created_at"`
	LastMessageAt     time.Time  `json:"last_message_at,omitempty"`
}
