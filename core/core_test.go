package core

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingHandler keeps every payload it sees, in order.
type recordingHandler struct {
	mu       sync.Mutex
	received []interface{}
	fail     interface{}
}

func (h *recordingHandler) HandleMessage(ctx context.Context, msg *Message) error {
	h.mu.Lock()
	h.received = append(h.received, msg.Payload)
	h.mu.Unlock()

	if h.fail != nil && msg.Payload == h.fail {
		return errors.New("refused")
	}
	return nil
}

func (h *recordingHandler) payloads() []interface{} {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]interface{}, len(h.received))
	copy(out, h.received)
	return out
}

// echoCaller answers calls with the payload it was given.
type echoCaller struct{}

func (echoCaller) HandleMessage(ctx context.Context, msg *Message) error { return nil }

func (echoCaller) HandleCall(ctx context.Context, msg *Message) (interface{}, error) {
	if msg.Payload == "boom" {
		return nil, errors.New("boom")
	}
	return msg.Payload, nil
}

func shutdown(t *testing.T, s ActorSystem) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))
}

func TestNewActor(t *testing.T) {
	opts := DefaultActorOptions()
	opts.Name = "test-actor"

	a := NewActor(1, &recordingHandler{}, opts)

	assert.Equal(t, ActorID(1), a.ID())
	stats := a.Stats()
	assert.Equal(t, "test-actor", stats.Name)
	assert.Equal(t, ActorStateIdle, stats.State)
}

func TestActorStartStop(t *testing.T) {
	a := NewActor(2, &recordingHandler{}, DefaultActorOptions())

	require.NoError(t, a.Start(context.Background()))
	assert.Error(t, a.Start(context.Background()), "second start must fail")

	require.NoError(t, a.Stop())
	assert.Equal(t, ActorStateStopped, a.Stats().State)

	err := a.Send(&Message{Payload: "late"})
	assert.True(t, errors.Is(err, ErrActorStopped))
	assert.Error(t, a.Stop())
}

func TestActorProcessesInSendOrder(t *testing.T) {
	s := NewActorSystem()
	defer shutdown(t, s)

	h := &recordingHandler{}
	a, err := s.NewActor(h, ActorOptions{Name: "fifo"})
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		require.NoError(t, s.Send(NoSender, a.ID(), i))
	}

	require.Eventually(t, func() bool { return len(h.payloads()) == 50 }, time.Second, 5*time.Millisecond)
	for i, p := range h.payloads() {
		assert.Equal(t, i, p)
	}
	assert.Equal(t, uint64(50), a.Stats().MessagesProcessed)
}

func TestHandlerErrorDoesNotStopActor(t *testing.T) {
	s := NewActorSystem()
	defer shutdown(t, s)

	h := &recordingHandler{fail: "bad"}
	a, err := s.NewActor(h, ActorOptions{})
	require.NoError(t, err)

	require.NoError(t, s.Send(NoSender, a.ID(), "bad"))
	require.NoError(t, s.Send(NoSender, a.ID(), "good"))

	require.Eventually(t, func() bool { return len(h.payloads()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, uint64(1), a.Stats().HandlerErrors)
}

func TestHandlerPanicIsRecovered(t *testing.T) {
	s := NewActorSystem()
	defer shutdown(t, s)

	var handled int32
	a, err := s.NewActor(HandlerFunc(func(ctx context.Context, msg *Message) error {
		if msg.Payload == "panic" {
			panic("kaboom")
		}
		atomic.AddInt32(&handled, 1)
		return nil
	}), ActorOptions{})
	require.NoError(t, err)

	require.NoError(t, s.Send(NoSender, a.ID(), "panic"))
	require.NoError(t, s.Send(NoSender, a.ID(), "fine"))

	require.Eventually(t, func() bool { return atomic.LoadInt32(&handled) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, uint64(1), a.Stats().HandlerErrors)
}

func TestSelfFromContext(t *testing.T) {
	s := NewActorSystem()
	defer shutdown(t, s)

	seen := make(chan ActorID, 1)
	a, err := s.NewActor(HandlerFunc(func(ctx context.Context, msg *Message) error {
		self, ok := SelfFromContext(ctx)
		if ok {
			seen <- self
		}
		return nil
	}), ActorOptions{})
	require.NoError(t, err)

	require.NoError(t, s.Send(NoSender, a.ID(), "who am i"))
	select {
	case id := <-seen:
		assert.Equal(t, a.ID(), id)
	case <-time.After(time.Second):
		t.Fatal("handler did not run")
	}

	_, ok := SelfFromContext(context.Background())
	assert.False(t, ok)
}

func TestSendToUnknownActor(t *testing.T) {
	s := NewActorSystem()
	defer shutdown(t, s)

	err := s.Send(NoSender, ActorID(999), "hello")
	assert.True(t, errors.Is(err, ErrActorNotFound))

	err = s.SendByName(NoSender, "nobody", "hello")
	assert.True(t, errors.Is(err, ErrActorNotFound))
}

func TestStopMakesHandleUnreachable(t *testing.T) {
	s := NewActorSystem()
	defer shutdown(t, s)

	h, err := s.NewService("short-lived", &recordingHandler{}, ActorOptions{})
	require.NoError(t, err)

	require.NoError(t, s.Stop(h.ActorID))

	err = s.Send(NoSender, h.ActorID, "anyone?")
	assert.True(t, errors.Is(err, ErrActorNotFound))
	_, exists := s.GetService("short-lived")
	assert.False(t, exists)
	assert.True(t, errors.Is(s.Stop(h.ActorID), ErrActorNotFound))
}

func TestMailboxFull(t *testing.T) {
	s := NewActorSystem()
	defer shutdown(t, s)

	release := make(chan struct{})
	a, err := s.NewActor(HandlerFunc(func(ctx context.Context, msg *Message) error {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil
	}), ActorOptions{MailboxSize: 2})
	require.NoError(t, err)

	var full error
	for i := 0; i < 10 && full == nil; i++ {
		full = s.Send(NoSender, a.ID(), i)
	}
	assert.True(t, errors.Is(full, ErrMailboxFull))
	close(release)
}

func TestCall(t *testing.T) {
	s := NewActorSystem()
	defer shutdown(t, s)

	a, err := s.NewActor(echoCaller{}, ActorOptions{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	reply, err := s.Call(ctx, a.ID(), "ping")
	require.NoError(t, err)
	assert.Equal(t, "ping", reply)

	_, err = s.Call(ctx, a.ID(), "boom")
	assert.EqualError(t, err, "boom")

	_, err = s.Call(ctx, ActorID(4242), "ping")
	assert.True(t, errors.Is(err, ErrActorNotFound))
}

func TestCallWithoutCallHandler(t *testing.T) {
	s := NewActorSystem()
	defer shutdown(t, s)

	h := &recordingHandler{}
	a, err := s.NewActor(h, ActorOptions{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	reply, err := s.Call(ctx, a.ID(), "plain")
	require.NoError(t, err)
	assert.Nil(t, reply)
	assert.Equal(t, []interface{}{"plain"}, h.payloads())
}

func TestCallTimeout(t *testing.T) {
	s := NewActorSystem()
	defer shutdown(t, s)

	a, err := s.NewActor(HandlerFunc(func(ctx context.Context, msg *Message) error {
		select {
		case <-time.After(200 * time.Millisecond):
		case <-ctx.Done():
		}
		return nil
	}), ActorOptions{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = s.Call(ctx, a.ID(), "slow")
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestProcessTimeoutDefaults(t *testing.T) {
	s := NewActorSystem(WithProcessTimeout(time.Second))
	defer shutdown(t, s)

	deadlines := make(chan bool, 2)
	handler := HandlerFunc(func(ctx context.Context, msg *Message) error {
		_, ok := ctx.Deadline()
		deadlines <- ok
		return nil
	})

	bounded, err := s.NewActor(handler, ActorOptions{})
	require.NoError(t, err)
	unbounded, err := s.NewActor(handler, ActorOptions{ProcessTimeout: NoProcessTimeout})
	require.NoError(t, err)

	require.NoError(t, s.Send(NoSender, bounded.ID(), "tick"))
	assert.True(t, <-deadlines, "system timeout applies when options leave it at zero")

	require.NoError(t, s.Send(NoSender, unbounded.ID(), "tick"))
	assert.False(t, <-deadlines)
}

func TestObserverSeesSends(t *testing.T) {
	var mu sync.Mutex
	var seen []*Message
	s := NewActorSystem(WithObserver(func(msg *Message) {
		mu.Lock()
		seen = append(seen, msg)
		mu.Unlock()
	}))
	defer shutdown(t, s)

	a, err := s.NewActor(&recordingHandler{}, ActorOptions{})
	require.NoError(t, err)
	require.NoError(t, s.Send(ActorID(77), a.ID(), "observed"))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 1)
	assert.Equal(t, ActorID(77), seen[0].Source)
	assert.Equal(t, a.ID(), seen[0].Target)
	assert.Equal(t, "observed", seen[0].Payload)
	assert.NotZero(t, seen[0].ID)
}

func TestRouter(t *testing.T) {
	r := NewRouter()

	actor1 := NewActor(10, &recordingHandler{}, DefaultActorOptions())
	actor2 := NewActor(20, &recordingHandler{}, DefaultActorOptions())

	require.NoError(t, r.Register(actor1))
	require.NoError(t, r.Register(actor2))
	assert.Error(t, r.Register(actor1), "duplicate registration must fail")
	assert.Error(t, r.Register(nil))

	found, exists := r.Lookup(10)
	require.True(t, exists)
	assert.Equal(t, ActorID(10), found.ID())

	assert.Equal(t, []ActorID{10, 20}, r.List())

	require.NoError(t, r.Unregister(10))
	_, exists = r.Lookup(10)
	assert.False(t, exists)
	assert.True(t, errors.Is(r.Unregister(10), ErrActorNotFound))
}

func TestHandleManager(t *testing.T) {
	hm := NewHandleManager()

	h, err := hm.AllocateHandle(5, "chef")
	require.NoError(t, err)
	assert.Equal(t, ActorID(5), h.ActorID)

	again, err := hm.AllocateHandle(5, "other-name")
	require.NoError(t, err)
	assert.Same(t, h, again, "an actor keeps its first handle")

	_, err = hm.AllocateHandle(6, "chef")
	assert.True(t, errors.Is(err, ErrNameTaken))

	byName, ok := hm.GetHandleByName("chef")
	require.True(t, ok)
	assert.Equal(t, ActorID(5), byName.ActorID)

	hm.ReleaseActor(5)
	_, ok = hm.GetHandleByName("chef")
	assert.False(t, ok)
	assert.Empty(t, hm.ListHandles())
}

func TestActorSystemServicesAndShutdown(t *testing.T) {
	s := NewActorSystem(WithMailboxSize(16))

	h, err := s.NewService("greeter", &recordingHandler{}, ActorOptions{})
	require.NoError(t, err)

	_, err = s.NewService("greeter", &recordingHandler{}, ActorOptions{})
	assert.True(t, errors.Is(err, ErrNameTaken))

	found, exists := s.GetService("greeter")
	require.True(t, exists)
	assert.Equal(t, h.ActorID, found.ActorID)
	require.NoError(t, s.SendByName(NoSender, "greeter", "hi"))

	stats := s.Stats()
	require.Len(t, stats, 1)
	assert.Equal(t, "greeter", stats[0].Name)
	assert.Len(t, s.ListServices(), 1)

	_, err = s.NewActor(nil, ActorOptions{})
	assert.True(t, errors.Is(err, ErrNilHandler))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))

	_, err = s.NewActor(&recordingHandler{}, ActorOptions{})
	assert.True(t, errors.Is(err, ErrSystemShutdown))
	assert.True(t, errors.Is(s.Send(NoSender, h.ActorID, "late"), ErrSystemShutdown))
	assert.Empty(t, s.Stats())
}
