package core

import "errors"

// Routing and lifecycle errors. Callers match them with errors.Is.
var (
	ErrActorNotFound  = errors.New("actor not found")
	ErrActorStopped   = errors.New("actor is not running")
	ErrMailboxFull    = errors.New("actor mailbox is full")
	ErrSystemShutdown = errors.New("actor system is shutting down")
	ErrNilHandler     = errors.New("message handler cannot be nil")
	ErrNameTaken      = errors.New("service name already registered")
)
