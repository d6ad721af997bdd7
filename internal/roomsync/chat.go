package roomsync

import (
	"sync"

	"github.com/ocgp/gameclient/internal/models"
)

// ChatLog is the local copy of a room's append-only chat. The held sequence
// is id-ordered and duplicate-free: push and polling can both deliver the
// same message, so every append is checked against the max-seen cursor.
type ChatLog struct {
	mu       sync.Mutex
	messages []models.ChatMessage
	cursor   int64
}

// NewChatLog creates an empty chat log with cursor 0.
func NewChatLog() *ChatLog {
	return &ChatLog{}
}

// Append adds one message and advances the cursor. Messages at or below the
// cursor are duplicates and are dropped; Append reports whether it kept the
// message.
func (l *ChatLog) Append(msg models.ChatMessage) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if msg.ID <= l.cursor {
		return false
	}
	l.messages = append(l.messages, msg)
	l.cursor = msg.ID
	return true
}

// AppendBatch adds an id-ordered batch (as returned by the chat listing) and
// returns how many messages were new.
func (l *ChatLog) AppendBatch(batch []models.ChatMessage) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	added := 0
	for _, msg := range batch {
		if msg.ID <= l.cursor {
			continue
		}
		l.messages = append(l.messages, msg)
		l.cursor = msg.ID
		added++
	}
	return added
}

// Cursor returns the highest message id seen.
func (l *ChatLog) Cursor() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cursor
}

// Messages returns a copy of the held message sequence.
func (l *ChatLog) Messages() []models.ChatMessage {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]models.ChatMessage, len(l.messages))
	copy(out, l.messages)
	return out
}

// Reset clears the log when a room context is left.
func (l *ChatLog) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = nil
	l.cursor = 0
}
