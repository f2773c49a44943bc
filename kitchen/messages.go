package kitchen

import (
	"errors"

	"github.com/najoast/brigade/core"
)

// Order asks for one dish. The Client fills Client; the Waiter re-creates the
// order with itself as Waiter before handing it to the Chef.
type Order struct {
	Dish   string
	Waiter core.ActorID
	Client core.ActorID
	// Trace is a log correlation id; routing never reads it.
	Trace string
}

// PrepareDish is the task the Chef gives to exactly one Cook.
type PrepareDish struct {
	Dish   string
	Waiter core.ActorID
	Client core.ActorID
	Trace  string
}

// DishPrepared is emitted by a Cook when the dish is ready. The Chef forwards
// it unchanged to Waiter.
type DishPrepared struct {
	Dish   string
	Cook   string
	Waiter core.ActorID
	Client core.ActorID
	Trace  string
}

// DishServed is the terminal notification a Client receives.
type DishServed struct {
	Dish  string
	Trace string
}

// RegisterCook adds a cook handle to the Chef's roster.
type RegisterCook struct {
	Cook core.ActorID
}

// RegisterWaiter adds a waiter handle to the Chef's roster.
type RegisterWaiter struct {
	Waiter core.ActorID
}

// StartOrder makes a Client pick a dish and order it.
type StartOrder struct{}

// RosterQuery asks the Chef, through core.ActorSystem.Call, for a Roster.
type RosterQuery struct{}

// Roster is a point-in-time copy of the Chef's registries and counters.
type Roster struct {
	Cooks         []core.ActorID `json:"cooks"`
	Waiters       []core.ActorID `json:"waiters"`
	Dispatched    uint64         `json:"dispatched"`
	Dropped       uint64         `json:"dropped"`
	Delivered     uint64         `json:"delivered"`
	Undeliverable uint64         `json:"undeliverable"`
}

// Outcome classifies what the Chef did with an Order.
type Outcome int

const (
	// Dispatched means a PrepareDish was handed to a cook.
	Dispatched Outcome = iota
	// Dropped means the order was discarded; the client is never told.
	Dropped
)

// String returns the string representation of Outcome.
func (o Outcome) String() string {
	switch o {
	case Dispatched:
		return "dispatched"
	case Dropped:
		return "dropped"
	default:
		return "unknown"
	}
}

// DispatchResult records one routing decision of the Chef.
type DispatchResult struct {
	Outcome Outcome
	Order   Order
	// Cook is the selected cook; zero when nothing was selected.
	Cook core.ActorID
	// Reason explains a Dropped outcome.
	Reason error
}

// Reasons an order is dropped, and other kitchen errors.
var (
	ErrNoCookAvailable   = errors.New("no cook available")
	ErrCookUnreachable   = errors.New("cook unreachable")
	ErrEmptyMenu         = errors.New("menu has no dishes")
	ErrNoReplyPath       = errors.New("message carries no reply handle")
	ErrUnexpectedMessage = errors.New("unexpected message")
)
