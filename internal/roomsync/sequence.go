package roomsync

import "sync/atomic"

// Sequencer hands out monotonically increasing delivery sequence numbers.
// Polling captures one at issue time, the push path at frame arrival, so a
// slow poll response loses against any snapshot delivered after it.
type Sequencer struct {
	n atomic.Uint64
}

// Next returns the next sequence number, starting at 1.
func (s *Sequencer) Next() uint64 {
	return s.n.Add(1)
}
