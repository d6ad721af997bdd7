package game

import (
	"fmt"

	"github.com/ocgp/gameclient/internal/models"
)

const gobangBoardSize = 15

// Gobang is five-in-a-row on a 15x15 board. Seat 0 plays Black.
type Gobang struct{}

func init() {
	Register(Gobang{})
}

func (Gobang) Code() models.GameType { return models.GameTypeGobang }

func (Gobang) Name() string { return "Gobang" }

func (Gobang) SeatColor(seat int) string {
	switch seat {
	case 0:
		return "Black"
	case 1:
		return "White"
	default:
		return ""
	}
}

func (Gobang) MoveIntent(input map[string]any) (map[string]any, error) {
	x, okX := intField(input, "x")
	y, okY := intField(input, "y")
	if !okX || !okY {
		return nil, fmt.Errorf("gobang move requires x and y")
	}
	if x < 0 || x >= gobangBoardSize || y < 0 || y >= gobangBoardSize {
		return nil, fmt.Errorf("gobang move (%d, %d) off the board", x, y)
	}
	return map[string]any{"x": x, "y": y}, nil
}

func (Gobang) Describe(move map[string]any) string {
	n, _ := intField(move, "moveNumber")
	x, _ := intField(move, "x")
	y, _ := intField(move, "y")
	return fmt.Sprintf("%d. (%d, %d)", n, x, y)
}
