package client

import (
	"github.com/rs/zerolog/log"

	"github.com/ocgp/gameclient/internal/models"
	"github.com/ocgp/gameclient/internal/push"
)

// connectTransport attempts the push channel first and falls back to
// polling on any dial failure. Once this room visit is on polling it stays
// there; the push channel is never re-dialed within the same visit.
func (c *Controller) connectTransport(gen uint64, roomID, token string) {
	c.mu.Lock()
	if c.generation != gen || c.context != ContextRoom {
		c.mu.Unlock()
		return
	}
	c.transport = TransportConnecting
	c.mu.Unlock()

	handlers := push.Handlers{
		OnRoomUpdate: func(room *models.Room) {
			// Sequence captured at arrival: a push frame outranks any fetch
			// that was issued before it.
			seq := c.seq.Next()
			c.applySnapshot(gen, room, seq)
		},
		OnChatMessage: func(msg models.ChatMessage) {
			c.handlePushChat(gen, msg)
		},
		OnClosed: func(err error) {
			c.handlePushClosed(gen, roomID, err)
		},
	}

	ch, err := c.dialPush(c.ctx, c.cfg.WSURL, roomID, token, c.cfg.Push, handlers)

	c.mu.Lock()
	if c.generation != gen || c.context != ContextRoom {
		c.mu.Unlock()
		if ch != nil {
			ch.Close()
		}
		return
	}
	if err != nil {
		c.mu.Unlock()
		log.Warn().Err(err).Str("room_id", roomID).Msg("push channel connect failed, falling back to polling")
		c.renderer.Toast("live updates unavailable, polling instead", true)
		c.startPolling(gen, roomID)
		return
	}
	c.pushCh = ch
	c.transport = TransportPushConnected
	c.mu.Unlock()
}

// handlePushChat appends one push-delivered chat message; the cursor check
// inside the log drops ids the polling path already delivered.
func (c *Controller) handlePushChat(gen uint64, msg models.ChatMessage) {
	c.mu.Lock()
	if c.generation != gen || c.chat == nil {
		c.mu.Unlock()
		return
	}
	chat, store := c.chat, c.store
	c.mu.Unlock()

	if !chat.Append(msg) {
		return
	}
	if room := store.Room(); room != nil {
		c.renderer.RenderRoom(room, chat.Messages())
	}
}

// handlePushClosed reacts to the channel erroring or closing while the room
// context is still active.
func (c *Controller) handlePushClosed(gen uint64, roomID string, err error) {
	c.mu.Lock()
	if c.generation != gen || c.context != ContextRoom {
		c.mu.Unlock()
		return
	}
	c.pushCh = nil
	c.mu.Unlock()

	log.Warn().Err(err).Str("room_id", roomID).Msg("push channel lost, falling back to polling")
	c.renderer.Toast("live updates lost, polling instead", true)
	c.startPolling(gen, roomID)
}

// startPolling activates the fallback poller for the room scope. At most
// one poller runs per room visit.
func (c *Controller) startPolling(gen uint64, roomID string) {
	c.mu.Lock()
	if c.generation != gen || c.context != ContextRoom || c.transport == TransportPolling {
		c.mu.Unlock()
		return
	}
	c.transport = TransportPolling
	stop := make(chan struct{})
	c.pollStop = stop
	c.mu.Unlock()

	go c.roomPollLoop(gen, roomID, stop)
}

// roomPollLoop issues a snapshot fetch plus a chat-cursor fetch on the
// fixed interval until the room context ends or a fetch fails.
func (c *Controller) roomPollLoop(gen uint64, roomID string, stop chan struct{}) {
	ticker := c.clock.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.Chan():
			if !c.pollRoomOnce(gen, roomID) {
				return
			}
		}
	}
}

// pollRoomOnce runs one fallback tick. A fetch failure is read as "room no
// longer exists" and forces navigation back to the lobby; the loop ends.
func (c *Controller) pollRoomOnce(gen uint64, roomID string) bool {
	if c.stale(gen) {
		return false
	}

	seq := c.seq.Next()
	room, err := c.backend.Room(c.ctx, roomID)
	if err != nil {
		return c.roomGone(gen, roomID, err)
	}
	c.applySnapshot(gen, room, seq)

	c.mu.Lock()
	if c.generation != gen || c.chat == nil {
		c.mu.Unlock()
		return false
	}
	chat, store := c.chat, c.store
	c.mu.Unlock()

	messages, err := c.backend.ChatSince(c.ctx, roomID, chat.Cursor())
	if err != nil {
		return c.roomGone(gen, roomID, err)
	}
	if c.stale(gen) {
		return false
	}
	if chat.AppendBatch(messages) > 0 {
		if current := store.Room(); current != nil {
			c.renderer.RenderRoom(current, chat.Messages())
		}
	}
	return true
}

// roomGone handles a polling fetch failure. Always returns false so the
// poll loop ends.
func (c *Controller) roomGone(gen uint64, roomID string, err error) bool {
	if c.stale(gen) {
		return false
	}
	log.Warn().Err(err).Str("room_id", roomID).Msg("polling fetch failed, leaving room")
	c.abortToLobby("room no longer exists")
	return false
}
