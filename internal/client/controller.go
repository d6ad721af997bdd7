package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/ocgp/gameclient/internal/game"
	"github.com/ocgp/gameclient/internal/models"
	"github.com/ocgp/gameclient/internal/push"
	"github.com/ocgp/gameclient/internal/roomsync"
)

// Context identifies which of the three mutually exclusive lifecycle
// contexts is active. Each owns a disjoint set of timers and channels that
// are fully torn down before the next context starts.
type Context string

const (
	ContextUnauthenticated Context = "UNAUTHENTICATED"
	ContextLobby           Context = "LOBBY"
	ContextRoom            Context = "ROOM"
)

// TransportState is the room-scope delivery channel state. At most one of
// PushConnected and Polling holds at any time.
type TransportState string

const (
	TransportIdle          TransportState = "IDLE"
	TransportConnecting    TransportState = "CONNECTING"
	TransportPushConnected TransportState = "PUSH_CONNECTED"
	TransportPolling       TransportState = "POLLING"
)

var (
	// ErrNotAuthenticated is returned by operations that need a session.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrNoActiveRoom is returned by room operations outside a room context.
	ErrNoActiveRoom = errors.New("no active room")
)

// Config tunes the controller's scheduling and transports.
type Config struct {
	// WSURL is the push endpoint, e.g. "ws://host:8081".
	WSURL string
	// PollInterval drives the room fallback poller and the lobby poller.
	PollInterval time.Duration
	// LatencyInterval drives the latency probe.
	LatencyInterval time.Duration
	// Push tunes the websocket channel.
	Push push.Config
}

// DefaultConfig returns the standard intervals for a push endpoint URL.
func DefaultConfig(wsURL string) Config {
	return Config{
		WSURL:           wsURL,
		PollInterval:    2500 * time.Millisecond,
		LatencyInterval: 4 * time.Second,
		Push:            push.DefaultConfig(),
	}
}

// Controller is the top-level lifecycle owner: it keeps exactly one context
// active, runs the transport failover state machine for the room scope, and
// funnels every applied snapshot through the same edge-detection and render
// path regardless of which channel delivered it.
type Controller struct {
	backend  Backend
	dialPush PushDialer
	renderer Renderer
	sessions SessionStore
	clock    clockwork.Clock
	cfg      Config
	ctx      context.Context

	seq roomsync.Sequencer

	mu         sync.Mutex
	generation uint64
	context    Context
	session    *models.Session
	games      map[string]models.GameInfo
	latency    time.Duration

	// Lobby scope.
	lobbyStop chan struct{}

	// Session scope.
	latencyStop chan struct{}

	// Room scope.
	roomID    string
	transport TransportState
	pushCh    PushChannel
	store     *roomsync.Store
	chat      *roomsync.ChatLog
	recon     *roomsync.Reconciler
	pollStop  chan struct{}
}

// New creates a controller. sessions may be nil for a purely in-memory
// client; dialPush defaults to the real websocket dialer.
func New(backend Backend, renderer Renderer, sessions SessionStore, clock clockwork.Clock, cfg Config) *Controller {
	return &Controller{
		backend:   backend,
		dialPush:  DialPush,
		renderer:  renderer,
		sessions:  sessions,
		clock:     clock,
		cfg:       cfg,
		ctx:       context.Background(),
		context:   ContextUnauthenticated,
		transport: TransportIdle,
	}
}

// SetPushDialer overrides the websocket dialer (tests).
func (c *Controller) SetPushDialer(d PushDialer) {
	c.dialPush = d
}

// Start restores a persisted session if one exists and activates the first
// context.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	c.ctx = ctx
	c.mu.Unlock()

	if c.sessions != nil {
		session, err := c.sessions.LoadSession()
		if err != nil {
			log.Warn().Err(err).Msg("failed to load stored session")
		}
		if session != nil {
			c.adoptSession(session, false)
			c.EnterLobby()
			return
		}
	}
	c.EnterUnauthenticated()
}

// Stop tears everything down, including the session-scoped latency probe.
func (c *Controller) Stop() {
	c.mu.Lock()
	c.switchContextLocked(ContextUnauthenticated)
	c.stopLatencyProbeLocked()
	c.mu.Unlock()
}

// switchContextLocked tears down the previous context's resources, bumps the
// generation so in-flight completions are dropped, and records the new
// context. Teardown-then-start ordering is the invariant here, not an
// optimization. Idempotent when nothing is active. Caller holds mu.
func (c *Controller) switchContextLocked(next Context) uint64 {
	// Room scope.
	if c.pollStop != nil {
		close(c.pollStop)
		c.pollStop = nil
	}
	if c.pushCh != nil {
		c.pushCh.Close()
		c.pushCh = nil
	}
	if c.recon != nil {
		c.recon.Reset()
		c.recon = nil
	}
	if c.store != nil {
		c.store.Reset()
		c.store = nil
	}
	if c.chat != nil {
		c.chat.Reset()
		c.chat = nil
	}
	c.roomID = ""
	c.transport = TransportIdle

	// Lobby scope.
	if c.lobbyStop != nil {
		close(c.lobbyStop)
		c.lobbyStop = nil
	}

	c.generation++
	c.context = next
	return c.generation
}

// stale reports whether a completion issued under gen should be dropped.
func (c *Controller) stale(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation != gen
}

// EnterUnauthenticated activates the auth context.
func (c *Controller) EnterUnauthenticated() {
	c.mu.Lock()
	c.switchContextLocked(ContextUnauthenticated)
	c.mu.Unlock()
	c.renderer.ShowContext(ContextUnauthenticated)
}

// EnterLobby activates the lobby context: one room-list poller plus an
// initial games/rooms fetch. Requires a session.
func (c *Controller) EnterLobby() {
	c.mu.Lock()
	if c.session == nil {
		c.switchContextLocked(ContextUnauthenticated)
		c.mu.Unlock()
		c.renderer.ShowContext(ContextUnauthenticated)
		return
	}
	gen := c.switchContextLocked(ContextLobby)
	stop := make(chan struct{})
	c.lobbyStop = stop
	c.mu.Unlock()

	c.renderer.ShowContext(ContextLobby)
	c.refreshGames(gen)
	c.refreshRooms(gen)
	go c.lobbyPollLoop(gen, stop)
}

// EnterRoom activates the room context: initial snapshot fetch, chat load,
// then the push channel with polling as fallback. A failed initial fetch
// aborts back to the lobby and surfaces the error.
func (c *Controller) EnterRoom(roomID string) error {
	c.mu.Lock()
	if c.session == nil {
		c.mu.Unlock()
		return ErrNotAuthenticated
	}
	// Switching straight from one room to another vacates the old seat the
	// same way an explicit leave does.
	prevRoomID := ""
	if c.context == ContextRoom && c.roomID != "" && c.roomID != roomID {
		prevRoomID = c.roomID
	}
	gen := c.switchContextLocked(ContextRoom)
	c.roomID = roomID
	c.store = roomsync.NewStore(c.session.User.ID, storeEvents{c.renderer}, game.SeatColor)
	c.chat = roomsync.NewChatLog()
	c.recon = roomsync.NewReconciler(c.clock, c.renderer.RenderCountdown, c.renderer.RenderElapsed)
	token := c.session.Token
	c.mu.Unlock()

	if prevRoomID != "" {
		c.notifyLeave(prevRoomID)
	}

	seq := c.seq.Next()
	room, err := c.backend.Room(c.ctx, roomID)
	if err != nil {
		log.Warn().Err(err).Str("room_id", roomID).Msg("initial room fetch failed")
		c.renderer.Toast(err.Error(), true)
		c.EnterLobby()
		return err
	}
	if c.stale(gen) {
		return nil
	}

	c.renderer.ShowContext(ContextRoom)
	c.applySnapshot(gen, room, seq)
	c.loadChat(gen, roomID)
	c.connectTransport(gen, roomID, token)
	return nil
}

// LeaveRoom exits the room context by explicit user intent. The server is
// told best-effort so seat occupancy stays accurate; a failed notification
// is logged and swallowed since the client is already navigating away.
func (c *Controller) LeaveRoom() {
	c.mu.Lock()
	roomID := c.roomID
	inRoom := c.context == ContextRoom
	c.mu.Unlock()

	if inRoom && roomID != "" {
		c.notifyLeave(roomID)
	}
	c.EnterLobby()
}

// notifyLeave tells the server the user vacated a room, best-effort.
func (c *Controller) notifyLeave(roomID string) {
	go func() {
		if err := c.backend.LeaveRoom(c.ctx, roomID); err != nil {
			log.Debug().Err(err).Str("room_id", roomID).Msg("leave notification failed")
		}
	}()
}

// abortToLobby exits the room context through error recovery: no leave
// notification is sent.
func (c *Controller) abortToLobby(notice string) {
	c.renderer.Toast(notice, true)
	c.EnterLobby()
}

// lobbyPollLoop refreshes the room list on the fixed interval while the
// lobby context stays active.
func (c *Controller) lobbyPollLoop(gen uint64, stop chan struct{}) {
	ticker := c.clock.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.Chan():
			if c.stale(gen) {
				return
			}
			c.refreshRooms(gen)
		}
	}
}

// refreshGames fetches the playable game list once per lobby entry.
func (c *Controller) refreshGames(gen uint64) {
	games, err := c.backend.Games(c.ctx)
	if err != nil {
		log.Warn().Err(err).Msg("failed to fetch game list")
		c.renderer.Toast(err.Error(), true)
		return
	}
	c.mu.Lock()
	if c.generation == gen {
		c.games = games
	}
	c.mu.Unlock()
}

// refreshRooms fetches the lobby room list and hands it to the renderer.
func (c *Controller) refreshRooms(gen uint64) {
	rooms, err := c.backend.Rooms(c.ctx)
	if err != nil {
		log.Warn().Err(err).Msg("failed to refresh room list")
		c.renderer.Toast(err.Error(), true)
		return
	}
	if c.stale(gen) {
		return
	}
	c.renderer.RenderLobby(rooms)
}

// applySnapshot funnels one delivered snapshot through the store, the timer
// reconciler, and the renderer. Channel choice is invisible from here on.
func (c *Controller) applySnapshot(gen uint64, room *models.Room, seq uint64) {
	c.mu.Lock()
	if c.generation != gen || c.context != ContextRoom || c.store == nil {
		c.mu.Unlock()
		return
	}
	store, chat, recon := c.store, c.chat, c.recon
	playerChanged := store.PlayerChanged(room)
	c.mu.Unlock()

	if !store.Apply(room, seq) {
		return
	}
	recon.Observe(room, playerChanged)
	if c.stale(gen) {
		return
	}
	c.renderer.RenderRoom(room, chat.Messages())
}

// loadChat requests messages past the cursor and appends the batch.
func (c *Controller) loadChat(gen uint64, roomID string) {
	c.mu.Lock()
	if c.generation != gen || c.chat == nil {
		c.mu.Unlock()
		return
	}
	chat, store := c.chat, c.store
	c.mu.Unlock()

	messages, err := c.backend.ChatSince(c.ctx, roomID, chat.Cursor())
	if err != nil {
		log.Warn().Err(err).Str("room_id", roomID).Msg("initial chat load failed")
		return
	}
	if c.stale(gen) {
		return
	}
	if chat.AppendBatch(messages) > 0 {
		if room := store.Room(); room != nil {
			c.renderer.RenderRoom(room, chat.Messages())
		}
	}
}

// startLatencyProbeLocked runs the probe whenever a session exists,
// regardless of context. Caller holds mu.
func (c *Controller) startLatencyProbeLocked() {
	if c.latencyStop != nil {
		return
	}
	stop := make(chan struct{})
	c.latencyStop = stop
	go c.latencyLoop(stop)
}

func (c *Controller) stopLatencyProbeLocked() {
	if c.latencyStop != nil {
		close(c.latencyStop)
		c.latencyStop = nil
	}
}

func (c *Controller) latencyLoop(stop chan struct{}) {
	ticker := c.clock.NewTicker(c.cfg.LatencyInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.Chan():
			d, err := c.backend.Ping(c.ctx)
			if err != nil {
				log.Debug().Err(err).Msg("latency probe failed")
				continue
			}
			c.mu.Lock()
			c.latency = d
			c.mu.Unlock()
			c.renderer.Latency(d)
		}
	}
}

// adoptSession installs a session and starts the latency probe. persist
// controls whether the session store is written.
func (c *Controller) adoptSession(session *models.Session, persist bool) {
	c.backend.SetToken(session.Token)
	c.mu.Lock()
	c.session = session
	c.startLatencyProbeLocked()
	c.mu.Unlock()

	if persist && c.sessions != nil {
		if err := c.sessions.SaveSession(session); err != nil {
			log.Warn().Err(err).Msg("failed to persist session")
		}
	}
}

// Session returns the active session, nil when unauthenticated.
func (c *Controller) Session() *models.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// CurrentContext returns the active lifecycle context.
func (c *Controller) CurrentContext() Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.context
}

// Transport returns the room-scope transport state.
func (c *Controller) Transport() TransportState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transport
}

// Games returns the cached playable game list.
func (c *Controller) Games() map[string]models.GameInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.games
}

// Room returns the currently applied room snapshot, nil outside a room.
func (c *Controller) Room() *models.Room {
	c.mu.Lock()
	store := c.store
	c.mu.Unlock()
	if store == nil {
		return nil
	}
	return store.Room()
}

// ChatMessages returns the room's chat sequence.
func (c *Controller) ChatMessages() []models.ChatMessage {
	c.mu.Lock()
	chat := c.chat
	c.mu.Unlock()
	if chat == nil {
		return nil
	}
	return chat.Messages()
}

// CountdownDisplay returns the turn countdown display string.
func (c *Controller) CountdownDisplay() string {
	c.mu.Lock()
	recon := c.recon
	c.mu.Unlock()
	if recon == nil {
		return "--"
	}
	return recon.CountdownDisplay()
}

// ElapsedDisplay returns the total elapsed display string.
func (c *Controller) ElapsedDisplay() string {
	c.mu.Lock()
	recon := c.recon
	c.mu.Unlock()
	if recon == nil {
		return "--:--"
	}
	return recon.ElapsedDisplay()
}

// LastLatency returns the last observed request round trip.
func (c *Controller) LastLatency() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latency
}
