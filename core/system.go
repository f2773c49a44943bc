package core

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// system implements the ActorSystem interface.
type system struct {
	router  *router
	handles *HandleManager

	logger         *slog.Logger
	observer       func(*Message)
	mailboxSize    int
	processTimeout time.Duration

	msgCounter uint64
	mu         sync.Mutex

	// System shutdown context
	ctx    context.Context
	cancel context.CancelFunc
}

// SystemOption customizes an ActorSystem.
type SystemOption func(*system)

// WithLogger sets the logger actors report handler failures to.
func WithLogger(logger *slog.Logger) SystemOption {
	return func(s *system) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithObserver installs a hook that sees every message the system is asked to
// deliver, before it is enqueued. The hook runs on the sender's goroutine and
// must not block.
func WithObserver(observer func(*Message)) SystemOption {
	return func(s *system) {
		s.observer = observer
	}
}

// WithMailboxSize sets the mailbox size used when ActorOptions leave it at zero.
func WithMailboxSize(size int) SystemOption {
	return func(s *system) {
		if size > 0 {
			s.mailboxSize = size
		}
	}
}

// WithProcessTimeout sets the per-message timeout used when ActorOptions leave it at zero.
// Actors spawned with NoProcessTimeout are not bound by it.
func WithProcessTimeout(timeout time.Duration) SystemOption {
	return func(s *system) {
		if timeout > 0 {
			s.processTimeout = timeout
		}
	}
}

// NewActorSystem creates a new ActorSystem instance.
func NewActorSystem(opts ...SystemOption) ActorSystem {
	ctx, cancel := context.WithCancel(context.Background())

	s := &system{
		router:         NewRouter().(*router),
		handles:        NewHandleManager(),
		logger:         slog.Default(),
		mailboxSize:    DefaultActorOptions().MailboxSize,
		processTimeout: DefaultActorOptions().ProcessTimeout,
		ctx:            ctx,
		cancel:         cancel,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// NewActor creates, registers and starts a new Actor.
func (s *system) NewActor(handler MessageHandler, opts ActorOptions) (Actor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.spawn(handler, opts)
}

// spawn must be called with s.mu held.
func (s *system) spawn(handler MessageHandler, opts ActorOptions) (*actor, error) {
	select {
	case <-s.ctx.Done():
		return nil, ErrSystemShutdown
	default:
	}
	if handler == nil {
		return nil, ErrNilHandler
	}

	if opts.MailboxSize == 0 {
		opts.MailboxSize = s.mailboxSize
	}
	if opts.ProcessTimeout == 0 {
		opts.ProcessTimeout = s.processTimeout
	}

	a := newActor(s.router.NextID(), handler, opts, s.logger)

	if err := s.router.Register(a); err != nil {
		return nil, fmt.Errorf("failed to register actor: %w", err)
	}
	if err := a.Start(s.ctx); err != nil {
		s.router.Unregister(a.id)
		return nil, fmt.Errorf("failed to start actor: %w", err)
	}

	return a, nil
}

// NewService creates an Actor reachable by name.
func (s *system) NewService(name string, handler MessageHandler, opts ActorOptions) (*Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.handles.GetHandleByName(name); exists {
		return nil, fmt.Errorf("service '%s': %w", name, ErrNameTaken)
	}
	if opts.Name == "" {
		opts.Name = name
	}

	a, err := s.spawn(handler, opts)
	if err != nil {
		return nil, err
	}

	handle, err := s.handles.AllocateHandle(a.id, name)
	if err != nil {
		a.Stop()
		s.router.Unregister(a.id)
		return nil, fmt.Errorf("failed to register service: %w", err)
	}

	return handle, nil
}

// GetActor retrieves an Actor by its ID.
func (s *system) GetActor(id ActorID) (Actor, bool) {
	return s.router.Lookup(id)
}

// GetService retrieves a service by name.
func (s *system) GetService(name string) (*Handle, bool) {
	return s.handles.GetHandleByName(name)
}

func (s *system) newMessage(from, to ActorID, payload interface{}) *Message {
	return &Message{
		ID:        atomic.AddUint64(&s.msgCounter, 1),
		Source:    from,
		Target:    to,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}

// Send delivers payload from one Actor to another.
func (s *system) Send(from, to ActorID, payload interface{}) error {
	select {
	case <-s.ctx.Done():
		return ErrSystemShutdown
	default:
	}

	msg := s.newMessage(from, to, payload)
	if s.observer != nil {
		s.observer(msg)
	}

	return s.router.Route(msg)
}

// SendByName delivers payload to a named service.
func (s *system) SendByName(from ActorID, to string, payload interface{}) error {
	handle, exists := s.handles.GetHandleByName(to)
	if !exists {
		return fmt.Errorf("service '%s': %w", to, ErrActorNotFound)
	}

	return s.Send(from, handle.ActorID, payload)
}

// Call sends payload to an Actor and waits for its reply.
func (s *system) Call(ctx context.Context, to ActorID, payload interface{}) (interface{}, error) {
	target, exists := s.router.Lookup(to)
	if !exists {
		return nil, fmt.Errorf("target actor %s: %w", to, ErrActorNotFound)
	}

	msg := s.newMessage(NoSender, to, payload)
	if s.observer != nil {
		s.observer(msg)
	}

	return target.Call(ctx, msg)
}

// Stop stops a single Actor. Its handle becomes unreachable afterwards.
func (s *system) Stop(id ActorID) error {
	target, exists := s.router.Lookup(id)
	if !exists {
		return fmt.Errorf("actor %s: %w", id, ErrActorNotFound)
	}

	s.router.Unregister(id)
	s.handles.ReleaseActor(id)

	return target.Stop()
}

// Shutdown stops all Actors and waits for their loops to exit or ctx to end.
func (s *system) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancel()

	var wg sync.WaitGroup
	for _, id := range s.router.List() {
		target, exists := s.router.Lookup(id)
		if !exists {
			continue
		}
		s.router.Unregister(id)
		s.handles.ReleaseActor(id)

		wg.Add(1)
		go func(a Actor) {
			defer wg.Done()
			if err := a.Stop(); err != nil {
				s.logger.Debug("actor already stopped", "actor", a.Name(), "id", a.ID(), "error", err)
			}
		}(target)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns statistics for all Actors.
func (s *system) Stats() []ActorStats {
	var stats []ActorStats

	for _, id := range s.router.List() {
		if actor, exists := s.router.Lookup(id); exists {
			stats = append(stats, actor.Stats())
		}
	}

	return stats
}

// ListServices returns all registered services.
func (s *system) ListServices() []*Handle {
	return s.handles.ListHandles()
}
