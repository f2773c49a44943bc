package kitchen

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/najoast/brigade/core"
)

// Chef registers cooks and waiters and routes every order to one cook.
//
// All fields below are touched only from the Chef's own message loop, so
// none of them is locked.
type Chef struct {
	system core.ActorSystem
	logger *slog.Logger
	pick   Picker
	hook   func(DispatchResult)

	cooks   []core.ActorID
	waiters []core.ActorID

	dispatched    uint64
	dropped       uint64
	delivered     uint64
	undeliverable uint64
}

// ChefOption customizes a Chef.
type ChefOption func(*Chef)

// WithChefPicker replaces the uniform random cook selection source.
func WithChefPicker(pick Picker) ChefOption {
	return func(c *Chef) {
		if pick != nil {
			c.pick = pick
		}
	}
}

// WithDispatchHook receives every DispatchResult, on the Chef's goroutine.
func WithDispatchHook(hook func(DispatchResult)) ChefOption {
	return func(c *Chef) {
		c.hook = hook
	}
}

// WithChefLogger sets the Chef's logger.
func WithChefLogger(logger *slog.Logger) ChefOption {
	return func(c *Chef) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewChef creates a Chef handler. Spawn it with system.NewService.
func NewChef(system core.ActorSystem, opts ...ChefOption) *Chef {
	c := &Chef{
		system: system,
		logger: slog.Default(),
		pick:   RandomPicker(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("role", "chef")
	return c
}

// HandleMessage implements core.MessageHandler.
func (c *Chef) HandleMessage(ctx context.Context, msg *core.Message) error {
	switch m := msg.Payload.(type) {
	case RegisterCook:
		c.registerCook(m.Cook)
	case RegisterWaiter:
		c.registerWaiter(m.Waiter)
	case Order:
		self, _ := core.SelfFromContext(ctx)
		c.report(c.handleOrder(self, m))
	case DishPrepared:
		self, _ := core.SelfFromContext(ctx)
		c.handleDishPrepared(self, m)
	case RosterQuery:
		// Without Call there is nobody to answer.
	default:
		return fmt.Errorf("chef: %w: %T", ErrUnexpectedMessage, msg.Payload)
	}
	return nil
}

// HandleCall implements core.CallHandler. RosterQuery returns a Roster; any
// other payload is handled as a plain message.
func (c *Chef) HandleCall(ctx context.Context, msg *core.Message) (interface{}, error) {
	if _, ok := msg.Payload.(RosterQuery); ok {
		return c.roster(), nil
	}
	return nil, c.HandleMessage(ctx, msg)
}

// registerCook appends without deduplicating: a cook registered twice is
// picked twice as often.
func (c *Chef) registerCook(cook core.ActorID) {
	c.cooks = append(c.cooks, cook)
	c.logger.Info("cook registered", "cook", cook, "cooks", len(c.cooks))
}

func (c *Chef) registerWaiter(waiter core.ActorID) {
	c.waiters = append(c.waiters, waiter)
	c.logger.Info("waiter registered", "waiter", waiter, "waiters", len(c.waiters))
}

// handleOrder picks one cook uniformly at random from the current roster and
// hands it the task with the order's reply path attached.
func (c *Chef) handleOrder(self core.ActorID, order Order) DispatchResult {
	if len(c.cooks) == 0 {
		return DispatchResult{Outcome: Dropped, Order: order, Reason: ErrNoCookAvailable}
	}

	cook := c.cooks[c.pick(len(c.cooks))]
	task := PrepareDish{
		Dish:   order.Dish,
		Waiter: order.Waiter,
		Client: order.Client,
		Trace:  order.Trace,
	}
	if err := c.system.Send(self, cook, task); err != nil {
		return DispatchResult{
			Outcome: Dropped,
			Order:   order,
			Cook:    cook,
			Reason:  fmt.Errorf("%w: %v", ErrCookUnreachable, err),
		}
	}

	return DispatchResult{Outcome: Dispatched, Order: order, Cook: cook}
}

// handleDishPrepared forwards the event unchanged to the waiter it names. A
// lost reply is logged and counted; the Chef carries on.
func (c *Chef) handleDishPrepared(self core.ActorID, event DishPrepared) {
	if err := c.system.Send(self, event.Waiter, event); err != nil {
		c.undeliverable++
		c.logger.Error("prepared dish could not reach its waiter",
			"dish", event.Dish,
			"cook", event.Cook,
			"waiter", event.Waiter,
			"trace", event.Trace,
			"error", err)
		return
	}
	c.delivered++
	c.logger.Info("dish passed to waiter", "dish", event.Dish, "cook", event.Cook, "waiter", event.Waiter, "trace", event.Trace)
}

func (c *Chef) report(result DispatchResult) {
	switch result.Outcome {
	case Dispatched:
		c.dispatched++
		c.logger.Info("order dispatched",
			"dish", result.Order.Dish,
			"cook", result.Cook,
			"waiter", result.Order.Waiter,
			"client", result.Order.Client,
			"trace", result.Order.Trace)
	case Dropped:
		c.dropped++
		c.logger.Warn("order dropped",
			"dish", result.Order.Dish,
			"waiter", result.Order.Waiter,
			"client", result.Order.Client,
			"trace", result.Order.Trace,
			"reason", result.Reason)
	}

	if c.hook != nil {
		c.hook(result)
	}
}

func (c *Chef) roster() Roster {
	return Roster{
		Cooks:         append([]core.ActorID(nil), c.cooks...),
		Waiters:       append([]core.ActorID(nil), c.waiters...),
		Dispatched:    c.dispatched,
		Dropped:       c.dropped,
		Delivered:     c.delivered,
		Undeliverable: c.undeliverable,
	}
}
