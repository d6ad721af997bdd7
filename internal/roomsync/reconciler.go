package roomsync

import (
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/ocgp/gameclient/internal/models"
)

// Reconciler derives the two countdown displays from applied snapshots.
// The server-declared turn deadline is authoritative when present; a local
// estimate substitutes only at the moment the turn changes hands.
type Reconciler struct {
	clock     clockwork.Clock
	countdown *TurnCountdown
	elapsed   *ElapsedClock

	mu     sync.Mutex
	closed bool
}

// NewReconciler wires both timers to one clock. The display callbacks may
// be nil.
func NewReconciler(clock clockwork.Clock, onCountdown, onElapsed func(string)) *Reconciler {
	return &Reconciler{
		clock:     clock,
		countdown: NewTurnCountdown(clock, onCountdown),
		elapsed:   NewElapsedClock(clock, onElapsed),
	}
}

// Observe reconciles both timers against a freshly applied snapshot.
// playerChanged reports whether the snapshot's current player differs from
// the previous one (Store.PlayerChanged, read before the apply). An
// observation that raced Reset is dropped so a retired reconciler cannot
// re-arm its timers.
func (r *Reconciler) Observe(room *models.Room, playerChanged bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}

	active := room.Started && room.CurrentStatus() == models.RoomStatusInProgress
	switch {
	case !active:
		r.countdown.Disarm()
	case room.TurnDeadline != nil:
		r.countdown.Arm(*room.TurnDeadline)
	case playerChanged:
		r.countdown.Arm(r.clock.Now().Add(LocalTurnEstimate))
	}

	if room.StartedAt != nil {
		r.elapsed.Arm(*room.StartedAt)
	} else {
		r.elapsed.Disarm()
	}
}

// Reset disarms both timers and retires the reconciler when a room context
// is left. The disarm happens under the same lock Observe takes, so no
// in-flight observation can slip a re-arm in behind it.
func (r *Reconciler) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.countdown.Disarm()
	r.elapsed.Disarm()
}

// CountdownDisplay returns the turn countdown display string.
func (r *Reconciler) CountdownDisplay() string {
	return r.countdown.Display()
}

// ElapsedDisplay returns the total elapsed display string.
func (r *Reconciler) ElapsedDisplay() string {
	return r.elapsed.Display()
}
