package game

import (
	"fmt"

	"github.com/ocgp/gameclient/internal/models"
)

// Game is the capability a board game exposes to the client. The
// synchronization core stays game-agnostic: it consumes room snapshots and
// hands move input through this interface without interpreting either.
type Game interface {
	// Code is the server-side game type identifier.
	Code() models.GameType
	// Name is the human-readable game name.
	Name() string
	// SeatColor names the color of a seat (seat 0 moves first).
	SeatColor(seat int) string
	// MoveIntent validates raw move input and returns the payload to send
	// to the server.
	MoveIntent(input map[string]any) (map[string]any, error)
	// Describe renders one entry of the snapshot's move history as text.
	Describe(move map[string]any) string
}

var registry = map[models.GameType]Game{}

// Register adds a game implementation to the registry. Registration happens
// at package init; duplicate codes panic.
func Register(g Game) {
	if _, exists := registry[g.Code()]; exists {
		panic(fmt.Sprintf("game %q registered twice", g.Code()))
	}
	registry[g.Code()] = g
}

// Lookup returns the game for a type code.
func Lookup(code models.GameType) (Game, error) {
	g, ok := registry[code]
	if !ok {
		return nil, fmt.Errorf("unsupported game type %q", code)
	}
	return g, nil
}

// SeatColor names a seat's color for a game type, or "" when the game is
// unknown or the seat out of range. Shaped for roomsync.SeatColorFunc.
func SeatColor(code models.GameType, seat int) string {
	g, ok := registry[code]
	if !ok {
		return ""
	}
	return g.SeatColor(seat)
}

// intField reads an integer move field that may arrive as float64 from JSON.
func intField(m map[string]any, key string) (int, bool) {
	v, ok := m[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
