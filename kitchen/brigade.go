package kitchen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/najoast/brigade/core"
)

// ErrNoWaiter is returned when clients are planned without any waiter to serve them.
var ErrNoWaiter = errors.New("clients need at least one waiter")

// Plan describes the brigade to assemble.
type Plan struct {
	// Cooks lists cook identities; an empty name gets a generated one
	Cooks []string

	// Waiters is the number of waiters
	Waiters int

	// Clients lists client names; clients are spread over waiters in turn
	Clients []string

	// Menu is what clients choose from; defaults to DefaultMenu
	Menu []string

	// PrepareDelay is the fixed time a cook spends per dish
	PrepareDelay time.Duration

	// Picker drives both cook and dish selection; defaults to RandomPicker.
	// It is shared by the chef and every client, so Assemble serializes calls to it.
	Picker Picker

	// OnDispatch sees every routing decision of the chef
	OnDispatch func(DispatchResult)

	// OnServed sees every dish a client receives
	OnServed func(client string, served DishServed)
}

// Member is one named actor of the brigade.
type Member struct {
	Name string       `json:"name"`
	ID   core.ActorID `json:"id"`
}

// Brigade holds the handles of an assembled kitchen.
type Brigade struct {
	system core.ActorSystem

	Chef    core.ActorID
	Cooks   []Member
	Waiters []Member
	Clients []Member
}

// Assemble spawns the chef, cooks, waiters and clients of plan and registers
// every cook and waiter with the chef. Registration messages are queued at the
// chef before Assemble returns, so they precede any order that follows.
func Assemble(system core.ActorSystem, plan Plan, logger *slog.Logger) (*Brigade, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(plan.Menu) == 0 {
		plan.Menu = DefaultMenu
	}
	if plan.Picker == nil {
		plan.Picker = RandomPicker()
	} else {
		plan.Picker = plan.Picker.Serialized()
	}
	if len(plan.Clients) > 0 && plan.Waiters <= 0 {
		return nil, ErrNoWaiter
	}

	b := &Brigade{system: system}

	chefOpts := []ChefOption{WithChefPicker(plan.Picker), WithChefLogger(logger)}
	if plan.OnDispatch != nil {
		chefOpts = append(chefOpts, WithDispatchHook(plan.OnDispatch))
	}
	chef, err := system.NewService("chef", NewChef(system, chefOpts...), core.ActorOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to spawn chef: %w", err)
	}
	b.Chef = chef.ActorID

	for _, name := range plan.Cooks {
		if name == "" {
			name = "cook-" + uuid.NewString()[:8]
		}
		// A dispatched dish always runs to completion, whatever the system timeout.
		handle, err := system.NewService("cook/"+name, NewCook(system, name, plan.PrepareDelay, logger),
			core.ActorOptions{ProcessTimeout: core.NoProcessTimeout})
		if err != nil {
			b.Dismiss()
			return nil, fmt.Errorf("failed to spawn cook %s: %w", name, err)
		}
		b.Cooks = append(b.Cooks, Member{Name: name, ID: handle.ActorID})
		if err := system.Send(core.NoSender, b.Chef, RegisterCook{Cook: handle.ActorID}); err != nil {
			b.Dismiss()
			return nil, fmt.Errorf("failed to register cook %s: %w", name, err)
		}
	}

	for i := 0; i < plan.Waiters; i++ {
		name := fmt.Sprintf("waiter-%d", i+1)
		handle, err := system.NewService(name, NewWaiter(system, b.Chef, logger), core.ActorOptions{})
		if err != nil {
			b.Dismiss()
			return nil, fmt.Errorf("failed to spawn %s: %w", name, err)
		}
		b.Waiters = append(b.Waiters, Member{Name: name, ID: handle.ActorID})
		if err := system.Send(core.NoSender, b.Chef, RegisterWaiter{Waiter: handle.ActorID}); err != nil {
			b.Dismiss()
			return nil, fmt.Errorf("failed to register %s: %w", name, err)
		}
	}

	for i, name := range plan.Clients {
		if name == "" {
			name = fmt.Sprintf("client-%d", i+1)
		}
		opts := ClientOptions{
			Name:   name,
			Menu:   plan.Menu,
			Picker: plan.Picker,
			Logger: logger,
		}
		if plan.OnServed != nil {
			clientName := name
			opts.OnServed = func(served DishServed) { plan.OnServed(clientName, served) }
		}

		waiter := b.Waiters[i%len(b.Waiters)]
		client, err := NewClient(system, waiter.ID, opts)
		if err != nil {
			b.Dismiss()
			return nil, fmt.Errorf("failed to create client %s: %w", name, err)
		}
		handle, err := system.NewService("client/"+name, client, core.ActorOptions{})
		if err != nil {
			b.Dismiss()
			return nil, fmt.Errorf("failed to spawn client %s: %w", name, err)
		}
		b.Clients = append(b.Clients, Member{Name: name, ID: handle.ActorID})
	}

	logger.Info("brigade assembled",
		"chef", b.Chef,
		"cooks", len(b.Cooks),
		"waiters", len(b.Waiters),
		"clients", len(b.Clients),
		"prepare_delay", plan.PrepareDelay)

	return b, nil
}

// StartOrder triggers one order from client.
func (b *Brigade) StartOrder(client core.ActorID) error {
	return b.system.Send(core.NoSender, client, StartOrder{})
}

// OpenDoors lets every client order ordersPerClient times, round by round.
func (b *Brigade) OpenDoors(ordersPerClient int) error {
	var errs []error
	for round := 0; round < ordersPerClient; round++ {
		for _, client := range b.Clients {
			if err := b.StartOrder(client.ID); err != nil {
				errs = append(errs, fmt.Errorf("client %s: %w", client.Name, err))
			}
		}
	}
	return errors.Join(errs...)
}

// Roster asks the chef for a snapshot of its registries and counters.
func (b *Brigade) Roster(ctx context.Context) (Roster, error) {
	reply, err := b.system.Call(ctx, b.Chef, RosterQuery{})
	if err != nil {
		return Roster{}, err
	}
	roster, ok := reply.(Roster)
	if !ok {
		return Roster{}, fmt.Errorf("chef answered with %T", reply)
	}
	return roster, nil
}

// Dismiss stops every member, clients first and the chef last.
func (b *Brigade) Dismiss() error {
	var errs []error
	for _, group := range [][]Member{b.Clients, b.Waiters, b.Cooks} {
		for _, m := range group {
			if err := b.system.Stop(m.ID); err != nil && !errors.Is(err, core.ErrActorNotFound) {
				errs = append(errs, err)
			}
		}
	}
	if b.Chef != core.NoSender {
		if err := b.system.Stop(b.Chef); err != nil && !errors.Is(err, core.ErrActorNotFound) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
