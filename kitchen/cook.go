package kitchen

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/najoast/brigade/core"
)

// Cook prepares one dish at a time and reports back to whoever asked.
type Cook struct {
	system core.ActorSystem
	name   string
	delay  time.Duration
	logger *slog.Logger
}

// NewCook creates a Cook handler named name that spends delay on every dish.
func NewCook(system core.ActorSystem, name string, delay time.Duration, logger *slog.Logger) *Cook {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cook{
		system: system,
		name:   name,
		delay:  delay,
		logger: logger.With("role", "cook", "cook", name),
	}
}

// Name returns the identity the cook signs its dishes with.
func (c *Cook) Name() string {
	return c.name
}

// HandleMessage implements core.MessageHandler.
func (c *Cook) HandleMessage(ctx context.Context, msg *core.Message) error {
	task, ok := msg.Payload.(PrepareDish)
	if !ok {
		return fmt.Errorf("cook %s: %w: %T", c.name, ErrUnexpectedMessage, msg.Payload)
	}
	if msg.Source == core.NoSender {
		return fmt.Errorf("cook %s: %w for %q", c.name, ErrNoReplyPath, task.Dish)
	}

	c.logger.Info("preparing dish", "dish", task.Dish, "trace", task.Trace)

	// Only this cook's goroutine waits here; other cooks keep working.
	timer := time.NewTimer(c.delay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		return fmt.Errorf("cook %s abandoned %q: %w", c.name, task.Dish, ctx.Err())
	}

	self, _ := core.SelfFromContext(ctx)
	done := DishPrepared{
		Dish:   task.Dish,
		Cook:   c.name,
		Waiter: task.Waiter,
		Client: task.Client,
		Trace:  task.Trace,
	}
	if err := c.system.Send(self, msg.Source, done); err != nil {
		return fmt.Errorf("cook %s could not report %q: %w", c.name, task.Dish, err)
	}

	c.logger.Info("dish prepared", "dish", task.Dish, "trace", task.Trace)
	return nil
}
