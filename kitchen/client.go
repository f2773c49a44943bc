package kitchen

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/najoast/brigade/core"
)

// Client orders dishes from one waiter and waits to be served.
type Client struct {
	system core.ActorSystem
	name   string
	waiter core.ActorID
	menu   []string
	pick   Picker
	served func(DishServed)
	logger *slog.Logger
}

// ClientOptions configures a Client.
type ClientOptions struct {
	// Name labels the client in logs
	Name string

	// Menu is the fixed set of dishes to choose from; must not be empty
	Menu []string

	// Picker chooses a dish; defaults to RandomPicker
	Picker Picker

	// OnServed is called on the client's goroutine for every DishServed
	OnServed func(DishServed)

	// Logger defaults to slog.Default
	Logger *slog.Logger
}

// NewClient creates a Client handler that orders through waiter.
func NewClient(system core.ActorSystem, waiter core.ActorID, opts ClientOptions) (*Client, error) {
	if len(opts.Menu) == 0 {
		return nil, ErrEmptyMenu
	}
	if opts.Picker == nil {
		opts.Picker = RandomPicker()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Client{
		system: system,
		name:   opts.Name,
		waiter: waiter,
		menu:   append([]string(nil), opts.Menu...),
		pick:   opts.Picker,
		served: opts.OnServed,
		logger: opts.Logger.With("role", "client", "client", opts.Name),
	}, nil
}

// HandleMessage implements core.MessageHandler.
func (c *Client) HandleMessage(ctx context.Context, msg *core.Message) error {
	switch m := msg.Payload.(type) {
	case StartOrder:
		self, _ := core.SelfFromContext(ctx)
		return c.startOrder(self)
	case DishServed:
		c.logger.Info("dish received", "dish", m.Dish, "trace", m.Trace)
		if c.served != nil {
			c.served(m)
		}
		return nil
	default:
		return fmt.Errorf("client %s: %w: %T", c.name, ErrUnexpectedMessage, msg.Payload)
	}
}

// startOrder picks a dish and orders it. Every call starts an independent order.
func (c *Client) startOrder(self core.ActorID) error {
	order := Order{
		Dish:   c.menu[c.pick(len(c.menu))],
		Client: self,
		Trace:  uuid.NewString(),
	}

	c.logger.Info("placing order", "dish", order.Dish, "waiter", c.waiter, "trace", order.Trace)

	if err := c.system.Send(self, c.waiter, order); err != nil {
		return fmt.Errorf("client %s could not reach waiter %s: %w", c.name, c.waiter, err)
	}
	return nil
}
