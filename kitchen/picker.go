package kitchen

import (
	"math/rand/v2"
	"sync"
	"time"
)

// DefaultMenu is the menu clients order from when none is configured.
var DefaultMenu = []string{"Pasta", "Pizza", "Salad", "Burger", "Soup"}

// DefaultPrepareDelay is how long a cook spends on one dish.
const DefaultPrepareDelay = time.Second

// Picker returns an index in [0, n). n is always positive.
//
// Chef and Client use it for uniform random choices; tests swap in a
// deterministic one. A Picker handed to a single Chef or Client is only called
// from that actor's loop. Assemble serializes a Picker it shares between actors.
type Picker func(n int) int

// Serialized wraps pick so it can be called from several goroutines.
func (pick Picker) Serialized() Picker {
	var mu sync.Mutex
	return func(n int) int {
		mu.Lock()
		defer mu.Unlock()
		return pick(n)
	}
}

// RandomPicker draws from the process-wide source.
func RandomPicker() Picker {
	return rand.IntN
}

// SeededPicker draws from its own PCG source, reproducible across runs. The
// returned Picker is safe to share.
func SeededPicker(seed uint64) Picker {
	var mu sync.Mutex
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	return func(n int) int {
		mu.Lock()
		defer mu.Unlock()
		return r.IntN(n)
	}
}
