package client

import (
	"time"

	"github.com/ocgp/gameclient/internal/models"
	"github.com/ocgp/gameclient/internal/roomsync"
)

// Renderer is the presentation collaborator. The controller drives it with
// the current snapshot, the chat sequence, the two timer display strings,
// and the one-shot notification events; how any of it is shown is not the
// sync engine's business.
type Renderer interface {
	// ShowContext is told which of the three views is visible.
	ShowContext(ctx Context)
	// RenderLobby receives the lobby room list after every refresh.
	RenderLobby(rooms []models.Room)
	// RenderRoom receives the applied snapshot and the chat sequence.
	RenderRoom(room *models.Room, chat []models.ChatMessage)
	// RenderCountdown receives the turn countdown display string.
	RenderCountdown(display string)
	// RenderElapsed receives the total elapsed display string.
	RenderElapsed(display string)
	// TurnStarted fires once when the turn becomes the session user's.
	TurnStarted(room *models.Room)
	// MatchFinished fires once per finish edge with the derived outcome.
	MatchFinished(outcome roomsync.Outcome)
	// Toast shows a transient notice.
	Toast(message string, isError bool)
	// Latency receives the last observed request round trip.
	Latency(d time.Duration)
}

// storeEvents adapts the room store's edge notifications onto the renderer.
type storeEvents struct {
	renderer Renderer
}

func (e storeEvents) TurnStarted(room *models.Room) {
	e.renderer.TurnStarted(room)
}

func (e storeEvents) MatchFinished(outcome roomsync.Outcome) {
	e.renderer.MatchFinished(outcome)
}
