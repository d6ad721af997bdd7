package roomsync

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/ocgp/gameclient/internal/models"
)

// Result is the session user's outcome of a finished match.
type Result string

const (
	ResultWon      Result = "WON"
	ResultLost     Result = "LOST"
	ResultDraw     Result = "DRAW"
	ResultObserver Result = "OBSERVER"
)

// Outcome describes a finished match for the one-shot notification.
// Draw takes precedence over any winner id the snapshot carries.
type Outcome struct {
	Draw        bool
	WinnerID    string
	WinnerName  string
	WinnerColor string
	Result      Result
}

// Events receives the store's edge-triggered notifications. Both fire at
// most once per edge; re-applying an identical snapshot never re-fires.
type Events interface {
	TurnStarted(room *models.Room)
	MatchFinished(outcome Outcome)
}

// SeatColorFunc names the color of a seat for a game type ("Black", "Red",
// ...). An empty return omits the color from the outcome.
type SeatColorFunc func(gameType models.GameType, seat int) string

// Store holds the single authoritative room snapshot plus the
// previous-snapshot memory used for edge detection. Snapshots are replaced
// whole; the store never merges fields.
type Store struct {
	mu     sync.Mutex
	userID string
	events Events
	colors SeatColorFunc

	room    *models.Room
	lastSeq uint64
	closed  bool

	// Previous-snapshot memory, updated unconditionally on every apply.
	lastStatus          models.RoomStatus
	lastCurrentPlayerID string
}

// NewStore creates a store for the given session user. events and colors
// may be nil when notifications are unwanted (tests, headless tools).
func NewStore(userID string, events Events, colors SeatColorFunc) *Store {
	return &Store{
		userID: userID,
		events: events,
		colors: colors,
	}
}

// Apply replaces the held snapshot and runs edge detection. seq is the
// delivery sequence captured when the fetch was issued (polling) or when the
// frame arrived (push); a snapshot older than the one already applied is
// dropped and Apply reports false, as is anything arriving after Reset.
func (s *Store) Apply(room *models.Room, seq uint64) bool {
	s.mu.Lock()

	if s.closed {
		s.mu.Unlock()
		return false
	}
	if seq < s.lastSeq {
		s.mu.Unlock()
		log.Debug().
			Str("room_id", room.ID).
			Uint64("seq", seq).
			Uint64("applied_seq", s.lastSeq).
			Msg("dropping stale snapshot")
		return false
	}
	s.lastSeq = seq
	s.room = room

	currentStatus := room.CurrentStatus()
	myTurnNow := room.Started &&
		currentStatus == models.RoomStatusInProgress &&
		s.userID != "" &&
		room.CurrentPlayerID == s.userID

	var finished bool
	var outcome Outcome
	if currentStatus == models.RoomStatusFinished && s.lastStatus != models.RoomStatusFinished {
		finished = true
		outcome = s.deriveOutcome(room)
	}

	turnEdge := myTurnNow && s.lastCurrentPlayerID != s.userID

	// Memory updates even when no edge fired, so the next apply compares
	// against this snapshot.
	s.lastStatus = currentStatus
	s.lastCurrentPlayerID = room.CurrentPlayerID

	events := s.events
	s.mu.Unlock()

	if events == nil {
		return true
	}
	if finished {
		events.MatchFinished(outcome)
	}
	if turnEdge {
		events.TurnStarted(room)
	}
	return true
}

// deriveOutcome reads the winner fields out of the game blob. Caller holds mu.
func (s *Store) deriveOutcome(room *models.Room) Outcome {
	meta := room.ParseGameMeta()
	outcome := Outcome{
		Draw:     meta.Draw,
		WinnerID: meta.WinnerID,
	}

	switch {
	case meta.Draw:
		outcome.Result = ResultDraw
		outcome.WinnerID = ""
	case meta.WinnerID == "":
		outcome.Result = ResultObserver
	default:
		outcome.WinnerName = room.PlayerName(meta.WinnerID)
		if seat := room.SeatIndex(meta.WinnerID); seat >= 0 && s.colors != nil {
			outcome.WinnerColor = s.colors(room.GameType, seat)
		}
		switch {
		case meta.WinnerID == s.userID:
			outcome.Result = ResultWon
		case room.SeatIndex(s.userID) >= 0:
			outcome.Result = ResultLost
		default:
			outcome.Result = ResultObserver
		}
	}
	return outcome
}

// Room returns the currently applied snapshot, nil before the first apply.
func (s *Store) Room() *models.Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room
}

// Memory returns the previous-snapshot bookkeeping: the effective status and
// current player of the last applied snapshot.
func (s *Store) Memory() (models.RoomStatus, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastStatus, s.lastCurrentPlayerID
}

// PlayerChanged reports whether the given snapshot's current player differs
// from the one recorded by the last apply.
func (s *Store) PlayerChanged(room *models.Room) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return room.CurrentPlayerID != s.lastCurrentPlayerID
}

// Reset discards the snapshot and memory and retires the store when a room
// context is left. A completion that raced the teardown still holds this
// store, so every Apply after Reset is dropped and fires nothing; the next
// room visit gets a fresh store.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.room = nil
	s.lastSeq = 0
	s.lastStatus = ""
	s.lastCurrentPlayerID = ""
}
