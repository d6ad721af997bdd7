package roomsync

import (
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

const (
	elapsedTick  = time.Second
	elapsedBlank = "--:--"
)

// ElapsedClock drives the total match time display (minutes:seconds) from
// the snapshot's start timestamp.
type ElapsedClock struct {
	clock     clockwork.Clock
	onDisplay func(string)

	mu        sync.Mutex
	startedAt time.Time
	stop      chan struct{}
	display   string
}

// NewElapsedClock creates a disarmed elapsed clock. onDisplay receives every
// rendered display string; it may be nil.
func NewElapsedClock(clock clockwork.Clock, onDisplay func(string)) *ElapsedClock {
	return &ElapsedClock{
		clock:     clock,
		onDisplay: onDisplay,
		display:   elapsedBlank,
	}
}

// Arm starts the 1-second ticking loop from the given start timestamp. It
// re-arms only when startedAt differs from the value already driving the
// timer: re-applying an unchanged snapshot must not restart the clock.
func (e *ElapsedClock) Arm(startedAt time.Time) {
	e.mu.Lock()
	if e.stop != nil && startedAt.Equal(e.startedAt) {
		e.mu.Unlock()
		return
	}
	e.stopLocked()
	e.startedAt = startedAt
	stop := make(chan struct{})
	e.stop = stop
	e.mu.Unlock()

	e.publish(e.render(startedAt))
	go e.run(startedAt, stop)
}

// Disarm stops the ticker and blanks the display.
func (e *ElapsedClock) Disarm() {
	e.mu.Lock()
	e.stopLocked()
	e.startedAt = time.Time{}
	e.mu.Unlock()
	e.publish(elapsedBlank)
}

// Display returns the current display string.
func (e *ElapsedClock) Display() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.display
}

func (e *ElapsedClock) stopLocked() {
	if e.stop != nil {
		close(e.stop)
		e.stop = nil
	}
}

func (e *ElapsedClock) run(startedAt time.Time, stop chan struct{}) {
	ticker := e.clock.NewTicker(elapsedTick)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.Chan():
			e.publish(e.render(startedAt))
		}
	}
}

// render formats wall-clock-now minus start, floored to whole seconds, as
// minutes:seconds with the seconds zero-padded.
func (e *ElapsedClock) render(startedAt time.Time) string {
	elapsed := e.clock.Now().Sub(startedAt)
	if elapsed < 0 {
		elapsed = 0
	}
	total := int(elapsed.Seconds())
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

func (e *ElapsedClock) publish(display string) {
	e.mu.Lock()
	e.display = display
	cb := e.onDisplay
	e.mu.Unlock()
	if cb != nil {
		cb(display)
	}
}
