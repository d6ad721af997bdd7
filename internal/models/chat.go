package models

import "time"

// ChatMessage is one entry in a room's append-only chat log. IDs are
// assigned by the server and increase monotonically per room.
type ChatMessage struct {
	ID        int64      `json:"id"`
	RoomID    string     `json:"roomId,omitempty"`
	UserID    string     `json:"userId"`
	Content   string     `json:"content"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}
