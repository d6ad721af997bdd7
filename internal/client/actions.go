package client

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/ocgp/gameclient/internal/game"
	"github.com/ocgp/gameclient/internal/models"
)

// Login authenticates and moves to the lobby.
func (c *Controller) Login(username, password string) error {
	session, err := c.backend.Login(c.ctx, username, password)
	if err != nil {
		c.renderer.Toast(err.Error(), true)
		return err
	}
	c.adoptSession(session, true)
	c.renderer.Toast("logged in", false)
	c.EnterLobby()
	return nil
}

// Register creates an account, which also opens a session, and moves to the
// lobby.
func (c *Controller) Register(username, password string) error {
	session, err := c.backend.Register(c.ctx, username, password)
	if err != nil {
		c.renderer.Toast(err.Error(), true)
		return err
	}
	c.adoptSession(session, true)
	c.renderer.Toast("registered and logged in", false)
	c.EnterLobby()
	return nil
}

// Logout clears the session and persisted credentials and returns to the
// unauthenticated context.
func (c *Controller) Logout() {
	c.backend.SetToken("")
	c.mu.Lock()
	c.session = nil
	c.latency = 0
	c.stopLatencyProbeLocked()
	c.mu.Unlock()

	if c.sessions != nil {
		if err := c.sessions.ClearSession(); err != nil {
			log.Warn().Err(err).Msg("failed to clear stored session")
		}
	}
	c.EnterUnauthenticated()
}

// CreateRoom opens a room and enters it.
func (c *Controller) CreateRoom(name string, gameType models.GameType, private bool) error {
	if c.Session() == nil {
		return ErrNotAuthenticated
	}
	room, err := c.backend.CreateRoom(c.ctx, name, gameType, private)
	if err != nil {
		c.renderer.Toast(err.Error(), true)
		return err
	}
	c.renderer.Toast("room created", false)
	return c.EnterRoom(room.ID)
}

// JoinRoom seats the user in a room and enters it. On failure the lobby
// list is refreshed so stale rooms disappear.
func (c *Controller) JoinRoom(roomID string) error {
	if c.Session() == nil {
		return ErrNotAuthenticated
	}
	if _, err := c.backend.JoinRoom(c.ctx, roomID); err != nil {
		c.renderer.Toast(err.Error(), true)
		c.mu.Lock()
		gen := c.generation
		inLobby := c.context == ContextLobby
		c.mu.Unlock()
		if inLobby {
			c.refreshRooms(gen)
		}
		return err
	}
	return c.EnterRoom(roomID)
}

// StartGame begins the match in the active room. Host only; the server
// enforces that.
func (c *Controller) StartGame() error {
	return c.roomAction(c.backend.StartGame)
}

// RestartGame resets a finished match in the active room for another round.
func (c *Controller) RestartGame() error {
	return c.roomAction(c.backend.RestartGame)
}

// SubmitMove validates raw move input against the room's game type and
// sends the resulting payload.
func (c *Controller) SubmitMove(input map[string]any) error {
	room := c.Room()
	if room == nil {
		return ErrNoActiveRoom
	}
	g, err := game.Lookup(room.GameType)
	if err != nil {
		c.renderer.Toast(err.Error(), true)
		return err
	}
	payload, err := g.MoveIntent(input)
	if err != nil {
		c.renderer.Toast(err.Error(), true)
		return err
	}
	return c.roomAction(func(ctx context.Context, roomID string) (*models.Room, error) {
		return c.backend.SubmitMove(ctx, roomID, payload)
	})
}

// SendChat appends one message to the active room's chat. Delivery back to
// the local log happens through push or polling.
func (c *Controller) SendChat(content string) error {
	c.mu.Lock()
	roomID := c.roomID
	c.mu.Unlock()
	if roomID == "" {
		return ErrNoActiveRoom
	}
	if err := c.backend.SendChat(c.ctx, roomID, content); err != nil {
		c.renderer.Toast(err.Error(), true)
		return err
	}
	return nil
}

// roomAction runs one room-scoped request and applies the snapshot it
// returns. Failures surface as a transient notice; local state is left
// unchanged and nothing retries.
func (c *Controller) roomAction(call func(ctx context.Context, roomID string) (*models.Room, error)) error {
	c.mu.Lock()
	if c.context != ContextRoom || c.roomID == "" {
		c.mu.Unlock()
		return ErrNoActiveRoom
	}
	gen := c.generation
	roomID := c.roomID
	c.mu.Unlock()

	seq := c.seq.Next()
	room, err := call(c.ctx, roomID)
	if err != nil {
		c.renderer.Toast(err.Error(), true)
		return err
	}
	c.applySnapshot(gen, room, seq)
	return nil
}
