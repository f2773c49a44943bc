package core

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// actor implements the Actor interface.
type actor struct {
	id      ActorID
	name    string
	handler MessageHandler
	logger  *slog.Logger

	// Channel for receiving messages
	mailbox chan *Message

	// Context for controlling the Actor lifecycle
	ctx    context.Context
	cancel context.CancelFunc

	// Wait group for graceful shutdown
	wg      sync.WaitGroup
	started atomic.Bool

	// Atomic counters for statistics
	state             int32 // ActorState
	messagesProcessed uint64
	handlerErrors     uint64
	createdAt         time.Time
	lastMessageAt     int64 // Unix nanoseconds

	// Pending calls for synchronous communication
	pendingCalls   sync.Map // map[uint32]chan callResult
	sessionCounter uint32

	// Actor options
	opts ActorOptions
}

type callResult struct {
	value interface{}
	err   error
}

// NewActor creates a new Actor instance that logs through slog.Default.
func NewActor(id ActorID, handler MessageHandler, opts ActorOptions) Actor {
	return newActor(id, handler, opts, slog.Default())
}

func newActor(id ActorID, handler MessageHandler, opts ActorOptions, logger *slog.Logger) *actor {
	ctx, cancel := context.WithCancel(context.Background())

	if opts.MailboxSize <= 0 {
		opts.MailboxSize = DefaultActorOptions().MailboxSize
	}
	name := opts.Name
	if name == "" {
		name = fmt.Sprintf("actor%s", id)
	}

	a := &actor{
		id:        id,
		name:      name,
		handler:   handler,
		logger:    logger,
		mailbox:   make(chan *Message, opts.MailboxSize),
		ctx:       ctx,
		cancel:    cancel,
		createdAt: time.Now(),
		opts:      opts,
	}

	atomic.StoreInt32(&a.state, int32(ActorStateIdle))

	return a
}

// ID returns the unique identifier of this Actor.
func (a *actor) ID() ActorID {
	return a.id
}

// Name returns the human-readable name of this Actor.
func (a *actor) Name() string {
	return a.name
}

// Start begins the Actor's message processing loop. Cancelling ctx stops the
// loop the same way Stop does.
func (a *actor) Start(ctx context.Context) error {
	if !a.started.CompareAndSwap(false, true) {
		return fmt.Errorf("actor %s is already started (state: %s)", a.id, a.state32())
	}
	if a.state32() != ActorStateIdle {
		return fmt.Errorf("actor %s cannot start from state %s: %w", a.id, a.state32(), ErrActorStopped)
	}

	release := context.AfterFunc(ctx, a.cancel)

	a.wg.Add(1)
	go func() {
		defer release()
		a.messageLoop()
	}()

	return nil
}

// Stop shuts down the Actor and waits for its loop to exit.
func (a *actor) Stop() error {
	if !atomic.CompareAndSwapInt32(&a.state, int32(ActorStateIdle), int32(ActorStateStopping)) &&
		!atomic.CompareAndSwapInt32(&a.state, int32(ActorStateRunning), int32(ActorStateStopping)) {
		return fmt.Errorf("actor %s cannot be stopped from state %s: %w", a.id, a.state32(), ErrActorStopped)
	}

	a.cancel()
	a.wg.Wait()

	atomic.StoreInt32(&a.state, int32(ActorStateStopped))

	return nil
}

// Send enqueues a message without blocking.
func (a *actor) Send(msg *Message) error {
	if s := a.state32(); s == ActorStateStopping || s == ActorStateStopped {
		return fmt.Errorf("actor %s (state: %s): %w", a.id, s, ErrActorStopped)
	}

	select {
	case a.mailbox <- msg:
		return nil
	case <-a.ctx.Done():
		return fmt.Errorf("actor %s is shutting down: %w", a.id, ErrActorStopped)
	default:
		return fmt.Errorf("actor %s: %w", a.id, ErrMailboxFull)
	}
}

// Call enqueues msg and waits for the handler's reply.
func (a *actor) Call(ctx context.Context, msg *Message) (interface{}, error) {
	session := atomic.AddUint32(&a.sessionCounter, 1)
	msg.Session = session

	respChan := make(chan callResult, 1)
	a.pendingCalls.Store(session, respChan)
	defer a.pendingCalls.Delete(session)

	if err := a.Send(msg); err != nil {
		return nil, err
	}

	select {
	case resp := <-respChan:
		return resp.value, resp.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-a.ctx.Done():
		return nil, fmt.Errorf("actor %s is shutting down: %w", a.id, ErrActorStopped)
	}
}

// Stats returns current runtime statistics for this Actor.
func (a *actor) Stats() ActorStats {
	var lastMessageAt time.Time
	if lastMsg := atomic.LoadInt64(&a.lastMessageAt); lastMsg > 0 {
		lastMessageAt = time.Unix(0, lastMsg)
	}

	return ActorStats{
		ID:                a.id,
		Name:              a.name,
		State:             a.state32(),
		MessagesProcessed: atomic.LoadUint64(&a.messagesProcessed),
		HandlerErrors:     atomic.LoadUint64(&a.handlerErrors),
		MailboxSize:       len(a.mailbox),
		CreatedAt:         a.createdAt,
		LastMessageAt:     lastMessageAt,
	}
}

func (a *actor) state32() ActorState {
	return ActorState(atomic.LoadInt32(&a.state))
}

// messageLoop is the main processing loop for the Actor.
func (a *actor) messageLoop() {
	defer a.wg.Done()

	for {
		select {
		case msg := <-a.mailbox:
			if msg == nil {
				continue
			}
			a.processMessage(msg)

		case <-a.ctx.Done():
			a.drainMailbox()
			return
		}
	}
}

// processMessage handles a single message.
func (a *actor) processMessage(msg *Message) {
	if !atomic.CompareAndSwapInt32(&a.state, int32(ActorStateIdle), int32(ActorStateRunning)) {
		// Stop won the race; the message is discarded like the rest of the mailbox.
		if msg.Session != 0 {
			a.sendResponse(msg.Session, nil, fmt.Errorf("actor %s: %w", a.id, ErrActorStopped))
		}
		return
	}
	defer atomic.CompareAndSwapInt32(&a.state, int32(ActorStateRunning), int32(ActorStateIdle))

	atomic.AddUint64(&a.messagesProcessed, 1)
	atomic.StoreInt64(&a.lastMessageAt, time.Now().UnixNano())

	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if a.opts.ProcessTimeout > 0 {
		ctx, cancel = context.WithTimeout(a.ctx, a.opts.ProcessTimeout)
	} else {
		ctx, cancel = context.WithCancel(a.ctx)
	}
	defer cancel()
	ctx = withSelf(ctx, a.id)

	reply, err := a.invoke(ctx, msg)

	if msg.Session != 0 {
		a.sendResponse(msg.Session, reply, err)
		return
	}
	if err != nil {
		atomic.AddUint64(&a.handlerErrors, 1)
		a.logger.Warn("message handler failed",
			"actor", a.name,
			"id", a.id,
			"from", msg.Source,
			"payload", fmt.Sprintf("%T", msg.Payload),
			"error", err)
	}
}

// invoke runs the handler, turning a panic into an error so one bad message
// cannot take the actor down.
func (a *actor) invoke(ctx context.Context, msg *Message) (reply interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked on %T: %v", msg.Payload, r)
		}
	}()

	if msg.Session != 0 {
		if ch, ok := a.handler.(CallHandler); ok {
			return ch.HandleCall(ctx, msg)
		}
	}
	return nil, a.handler.HandleMessage(ctx, msg)
}

// sendResponse completes a pending Call.
func (a *actor) sendResponse(session uint32, value interface{}, err error) {
	if respChan, ok := a.pendingCalls.Load(session); ok {
		select {
		case respChan.(chan callResult) <- callResult{value: value, err: err}:
		default:
			// Caller already has an answer
		}
	}
}

// drainMailbox discards queued messages during shutdown, failing pending calls.
func (a *actor) drainMailbox() {
	dropped := 0
	for {
		select {
		case msg := <-a.mailbox:
			if msg == nil {
				continue
			}
			if msg.Session != 0 {
				a.sendResponse(msg.Session, nil, fmt.Errorf("actor %s is shutting down: %w", a.id, ErrActorStopped))
			}
			dropped++
		default:
			if dropped > 0 {
				a.logger.Debug("discarded queued messages on stop", "actor", a.name, "id", a.id, "count", dropped)
			}
			return
		}
	}
}
