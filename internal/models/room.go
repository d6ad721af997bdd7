package models

import (
	"encoding/json"
	"time"
)

// GameType identifies which board game a room hosts.
type GameType string

const (
	GameTypeGobang       GameType = "GOBANG"
	GameTypeChineseChess GameType = "CHINESE_CHESS"
)

// RoomStatus defines the lifecycle status of a room's match.
type RoomStatus string

const (
	RoomStatusWaiting    RoomStatus = "WAITING"
	RoomStatusInProgress RoomStatus = "IN_PROGRESS"
	RoomStatusFinished   RoomStatus = "FINISHED"
)

// Room is the authoritative snapshot of one match as the server reports it.
// The client never mutates a Room; every update replaces the whole value.
type Room struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	GameType        GameType        `json:"gameType"`
	GameTypeName    string          `json:"gameTypeName,omitempty"`
	HostUserID      string          `json:"hostUserId"`
	Private         bool            `json:"private"`
	InviteCode      string          `json:"inviteCode,omitempty"`
	CreatedAt       *time.Time      `json:"createdAt,omitempty"`
	TurnDeadline    *time.Time      `json:"turnDeadline,omitempty"`
	StartedAt       *time.Time      `json:"startedAt,omitempty"`
	Players         []User          `json:"players"`
	PlayerIDs       []string        `json:"playerIds"`
	Started         bool            `json:"started"`
	Status          RoomStatus      `json:"status"`
	CurrentPlayerID string          `json:"currentPlayerId,omitempty"`
	GameState       json.RawMessage `json:"gameState,omitempty"`
}

// GameMeta is the thin slice of the opaque game-state blob the sync core
// reads for edge detection. Everything else in the blob stays untouched for
// the per-game renderer.
type GameMeta struct {
	Status      RoomStatus `json:"status,omitempty"`
	WinnerID    string     `json:"winnerId,omitempty"`
	Draw        bool       `json:"draw,omitempty"`
	PlayerOrder []string   `json:"playerOrder,omitempty"`
}

// ParseGameMeta parses the edge-detection fields out of the game-state blob.
// A missing or malformed blob yields the zero value.
func (r *Room) ParseGameMeta() GameMeta {
	var meta GameMeta
	if len(r.GameState) == 0 {
		return meta
	}
	if err := json.Unmarshal(r.GameState, &meta); err != nil {
		return GameMeta{}
	}
	return meta
}

// CurrentStatus returns the effective match status, preferring the
// game-specific status inside the blob over the room-level field.
func (r *Room) CurrentStatus() RoomStatus {
	if meta := r.ParseGameMeta(); meta.Status != "" {
		return meta.Status
	}
	if r.Status != "" {
		return r.Status
	}
	return RoomStatusWaiting
}

// SeatIndex returns the seat of the given user (first playerIds element is
// seat 0), or -1 when the user is not seated.
func (r *Room) SeatIndex(userID string) int {
	for i, id := range r.PlayerIDs {
		if id == userID {
			return i
		}
	}
	return -1
}

// PlayerName resolves a player id to a username, falling back to the id.
func (r *Room) PlayerName(userID string) string {
	for _, p := range r.Players {
		if p.ID == userID {
			return p.Username
		}
	}
	return userID
}
