package game

import (
	"fmt"

	"github.com/ocgp/gameclient/internal/models"
)

const (
	chineseChessRows = 10
	chineseChessCols = 9
)

// ChineseChess (xiangqi) on a 10x9 board. Seat 0 plays Red.
type ChineseChess struct{}

func init() {
	Register(ChineseChess{})
}

func (ChineseChess) Code() models.GameType { return models.GameTypeChineseChess }

func (ChineseChess) Name() string { return "Chinese Chess" }

func (ChineseChess) SeatColor(seat int) string {
	switch seat {
	case 0:
		return "Red"
	case 1:
		return "Black"
	default:
		return ""
	}
}

func (ChineseChess) MoveIntent(input map[string]any) (map[string]any, error) {
	fromRow, ok1 := intField(input, "fromRow")
	fromCol, ok2 := intField(input, "fromCol")
	toRow, ok3 := intField(input, "toRow")
	toCol, ok4 := intField(input, "toCol")
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return nil, fmt.Errorf("chinese chess move requires fromRow, fromCol, toRow, toCol")
	}
	for _, p := range []struct {
		row, col int
	}{{fromRow, fromCol}, {toRow, toCol}} {
		if p.row < 0 || p.row >= chineseChessRows || p.col < 0 || p.col >= chineseChessCols {
			return nil, fmt.Errorf("chinese chess square (%d, %d) off the board", p.row, p.col)
		}
	}
	return map[string]any{
		"fromRow": fromRow,
		"fromCol": fromCol,
		"toRow":   toRow,
		"toCol":   toCol,
	}, nil
}

func (ChineseChess) Describe(move map[string]any) string {
	n, _ := intField(move, "moveNumber")
	fromRow, _ := intField(move, "fromRow")
	fromCol, _ := intField(move, "fromCol")
	toRow, _ := intField(move, "toRow")
	toCol, _ := intField(move, "toCol")
	text := fmt.Sprintf("%d. (%d,%d) -> (%d,%d)", n, fromRow, fromCol, toRow, toCol)
	if captured, ok := move["captured"].(string); ok && captured != "" {
		text += fmt.Sprintf(" captures %s", pieceName(captured))
	}
	return text
}

func pieceName(piece string) string {
	switch piece {
	case "GENERAL":
		return "General"
	case "ADVISOR":
		return "Advisor"
	case "ELEPHANT":
		return "Elephant"
	case "HORSE":
		return "Horse"
	case "CHARIOT":
		return "Chariot"
	case "CANNON":
		return "Cannon"
	case "SOLDIER":
		return "Soldier"
	default:
		return piece
	}
}
