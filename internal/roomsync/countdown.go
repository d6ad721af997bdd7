package roomsync

import (
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

const (
	countdownTick  = 200 * time.Millisecond
	countdownBlank = "--"

	// LocalTurnEstimate substitutes for a missing server deadline when the
	// turn just changed hands, matching the server's own turn window.
	LocalTurnEstimate = 15 * time.Second
)

// TurnCountdown drives the remaining-seconds display for the active turn.
// It ticks every 200ms while armed and stops at zero without claiming a
// timeout; that outcome belongs to the server and arrives as a snapshot.
type TurnCountdown struct {
	clock     clockwork.Clock
	onDisplay func(string)

	mu       sync.Mutex
	deadline time.Time
	stop     chan struct{}
	display  string
}

// NewTurnCountdown creates a disarmed countdown. onDisplay receives every
// rendered display string; it may be nil.
func NewTurnCountdown(clock clockwork.Clock, onDisplay func(string)) *TurnCountdown {
	return &TurnCountdown{
		clock:     clock,
		onDisplay: onDisplay,
		display:   countdownBlank,
	}
}

// Arm points the countdown at a deadline. Re-arming with the deadline that
// is already driving the ticker is a no-op, so re-applied identical
// snapshots do not restart or jitter the display.
func (t *TurnCountdown) Arm(deadline time.Time) {
	t.mu.Lock()
	if t.stop != nil && deadline.Equal(t.deadline) {
		t.mu.Unlock()
		return
	}
	t.stopLocked()
	t.deadline = deadline
	stop := make(chan struct{})
	t.stop = stop
	t.mu.Unlock()

	t.publish(t.render(deadline))
	go t.run(deadline, stop)
}

// Disarm stops the ticker and blanks the display.
func (t *TurnCountdown) Disarm() {
	t.mu.Lock()
	t.stopLocked()
	t.mu.Unlock()
	t.publish(countdownBlank)
}

// Display returns the current display string.
func (t *TurnCountdown) Display() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.display
}

func (t *TurnCountdown) stopLocked() {
	if t.stop != nil {
		close(t.stop)
		t.stop = nil
	}
}

func (t *TurnCountdown) run(deadline time.Time, stop chan struct{}) {
	ticker := t.clock.NewTicker(countdownTick)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.Chan():
			display := t.render(deadline)
			t.publish(display)
			if !t.clock.Now().Before(deadline) {
				return
			}
		}
	}
}

// render formats the remaining time to one decimal place, floored at zero.
func (t *TurnCountdown) render(deadline time.Time) string {
	remaining := deadline.Sub(t.clock.Now()).Seconds()
	if remaining < 0 {
		remaining = 0
	}
	return fmt.Sprintf("%.1f", remaining)
}

func (t *TurnCountdown) publish(display string) {
	t.mu.Lock()
	t.display = display
	cb := t.onDisplay
	t.mu.Unlock()
	if cb != nil {
		cb(display)
	}
}
