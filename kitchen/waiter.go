package kitchen

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/najoast/brigade/core"
)

// Waiter carries orders to the Chef and prepared dishes to clients. It keeps
// no per-order state: the reply path travels inside the messages.
type Waiter struct {
	system core.ActorSystem
	chef   core.ActorID
	logger *slog.Logger
}

// NewWaiter creates a Waiter handler that works for chef.
func NewWaiter(system core.ActorSystem, chef core.ActorID, logger *slog.Logger) *Waiter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Waiter{
		system: system,
		chef:   chef,
		logger: logger.With("role", "waiter"),
	}
}

// HandleMessage implements core.MessageHandler.
func (w *Waiter) HandleMessage(ctx context.Context, msg *core.Message) error {
	self, _ := core.SelfFromContext(ctx)

	switch m := msg.Payload.(type) {
	case Order:
		client := m.Client
		if client == core.NoSender {
			client = msg.Source
		}
		return w.takeOrder(self, Order{Dish: m.Dish, Waiter: self, Client: client, Trace: m.Trace})
	case string:
		// A bare dish name; the sender is the client.
		return w.takeOrder(self, Order{Dish: m, Waiter: self, Client: msg.Source})
	case DishPrepared:
		w.serve(self, m)
		return nil
	default:
		return fmt.Errorf("waiter: %w: %T", ErrUnexpectedMessage, msg.Payload)
	}
}

func (w *Waiter) takeOrder(self core.ActorID, order Order) error {
	w.logger.Info("order taken", "waiter", self, "dish", order.Dish, "client", order.Client, "trace", order.Trace)

	if err := w.system.Send(self, w.chef, order); err != nil {
		return fmt.Errorf("waiter %s could not reach the chef: %w", self, err)
	}
	return nil
}

// serve hands the dish to the client named in the event. A client that is
// gone simply never gets it.
func (w *Waiter) serve(self core.ActorID, event DishPrepared) {
	w.logger.Info("picked up prepared dish", "waiter", self, "dish", event.Dish, "cook", event.Cook, "trace", event.Trace)

	if err := w.system.Send(self, event.Client, DishServed{Dish: event.Dish, Trace: event.Trace}); err != nil {
		w.logger.Error("dish could not be served",
			"waiter", self,
			"dish", event.Dish,
			"client", event.Client,
			"trace", event.Trace,
			"error", err)
		return
	}
	w.logger.Info("dish served", "waiter", self, "dish", event.Dish, "client", event.Client, "trace", event.Trace)
}
