package budget

import (
	"math"
	"sync"

	"github.com/rotisserie/eris"
)

// ErrExceeded is returned by Reserve when granting the call would push
// cumulative spend past a ceiling. The affected incentive run ends with
// whatever was scored so far and is flagged retryable.
var ErrExceeded = eris.New("budget: ceiling exceeded")

// Guard tracks cumulative spend against a ceiling. Reserve serializes the
// check-then-spend step so two concurrent workers can never both pass a
// check that together would exceed the ceiling. A per-incentive guard chains
// to the shared batch guard via Child.
type Guard struct {
	mu       sync.Mutex
	ceiling  float64 // <= 0 means unlimited
	spent    float64
	reserved float64
	parent   *Guard
}

// NewGuard creates a top-level guard. A non-positive ceiling is unlimited.
func NewGuard(ceiling float64) *Guard {
	return &Guard{ceiling: ceiling}
}

// Child creates a guard with its own ceiling whose reservations also count
// against this guard.
func (g *Guard) Child(ceiling float64) *Guard {
	return &Guard{ceiling: ceiling, parent: g}
}

// Reservation is an in-flight hold on budget headroom. It must be settled
// exactly once with the realized cost.
type Reservation struct {
	guard    *Guard
	parent   *Reservation
	estimate float64
	settled  bool
}

// Reserve holds estimate dollars of headroom, refusing if this guard or any
// ancestor would exceed its ceiling. Lock order is child before parent; a
// parent never locks a child, so the chain cannot deadlock.
func (g *Guard) Reserve(estimate float64) (*Reservation, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.ceiling > 0 && g.spent+g.reserved+estimate > g.ceiling {
		return nil, eris.Wrapf(ErrExceeded,
			"budget: reserve $%.4f would exceed ceiling $%.2f (spent $%.4f, reserved $%.4f)",
			estimate, g.ceiling, g.spent, g.reserved)
	}

	var parentRes *Reservation
	if g.parent != nil {
		var err error
		parentRes, err = g.parent.Reserve(estimate)
		if err != nil {
			return nil, err
		}
	}

	g.reserved += estimate
	return &Reservation{guard: g, parent: parentRes, estimate: estimate}, nil
}

// Settle converts the reservation into realized spend. Actual may differ
// from the estimate in either direction.
func (r *Reservation) Settle(actual float64) {
	if r == nil || r.settled {
		return
	}
	r.settled = true

	r.guard.mu.Lock()
	r.guard.reserved -= r.estimate
	r.guard.spent += actual
	r.guard.mu.Unlock()

	r.parent.Settle(actual)
}

// Cancel releases the reservation without recording spend, for calls that
// never reached the provider.
func (r *Reservation) Cancel() {
	if r == nil || r.settled {
		return
	}
	r.settled = true

	r.guard.mu.Lock()
	r.guard.reserved -= r.estimate
	r.guard.mu.Unlock()

	r.parent.Cancel()
}

// Headroom returns the remaining reservable dollars, taking the tightest
// ceiling in the chain. Unlimited guards report +Inf.
func (g *Guard) Headroom() float64 {
	g.mu.Lock()
	own := math.Inf(1)
	if g.ceiling > 0 {
		own = g.ceiling - g.spent - g.reserved
	}
	parent := g.parent
	g.mu.Unlock()

	if parent != nil {
		own = math.Min(own, parent.Headroom())
	}
	return math.Max(own, 0)
}

// Spent returns the realized spend recorded on this guard.
func (g *Guard) Spent() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.spent
}
