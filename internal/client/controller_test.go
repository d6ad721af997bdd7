package client

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ocgp/gameclient/internal/models"
	"github.com/ocgp/gameclient/internal/push"
	"github.com/ocgp/gameclient/internal/roomsync"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

// fakeBackend scripts the server. Zero-value functions fall back to benign
// defaults; counters record traffic.
type fakeBackend struct {
	mu          sync.Mutex
	token       string
	roomFn    func(roomID string) (*models.Room, error)
	chatFn    func(roomID string, sinceID int64) ([]models.ChatMessage, error)
	roomsFn   func() ([]models.Room, error)
	left      []string
	roomCalls int
	chatCalls int
}

func (f *fakeBackend) SetToken(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = token
}

func (f *fakeBackend) session(username string) *models.Session {
	return &models.Session{
		Token: "tok-" + username,
		User:  models.User{ID: username, Username: username},
	}
}

func (f *fakeBackend) Register(_ context.Context, username, _ string) (*models.Session, error) {
	return f.session(username), nil
}

func (f *fakeBackend) Login(_ context.Context, username, _ string) (*models.Session, error) {
	return f.session(username), nil
}

func (f *fakeBackend) Games(context.Context) (map[string]models.GameInfo, error) {
	return map[string]models.GameInfo{
		"GOBANG": {Code: models.GameTypeGobang, Name: "Gobang"},
	}, nil
}

func (f *fakeBackend) Rooms(context.Context) ([]models.Room, error) {
	f.mu.Lock()
	fn := f.roomsFn
	f.mu.Unlock()
	if fn != nil {
		return fn()
	}
	return nil, nil
}

func (f *fakeBackend) CreateRoom(_ context.Context, name string, gameType models.GameType, _ bool) (*models.Room, error) {
	return &models.Room{ID: "room-1", Name: name, GameType: gameType}, nil
}

func (f *fakeBackend) Room(_ context.Context, roomID string) (*models.Room, error) {
	f.mu.Lock()
	f.roomCalls++
	fn := f.roomFn
	f.mu.Unlock()
	if fn != nil {
		return fn(roomID)
	}
	return waitingRoom(roomID), nil
}

func (f *fakeBackend) JoinRoom(_ context.Context, roomID string) (*models.Room, error) {
	return waitingRoom(roomID), nil
}

func (f *fakeBackend) LeaveRoom(_ context.Context, roomID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.left = append(f.left, roomID)
	return nil
}

func (f *fakeBackend) StartGame(_ context.Context, roomID string) (*models.Room, error) {
	return inProgressRoom(roomID, "alice"), nil
}

func (f *fakeBackend) SubmitMove(_ context.Context, roomID string, _ any) (*models.Room, error) {
	return inProgressRoom(roomID, "bob"), nil
}

func (f *fakeBackend) RestartGame(_ context.Context, roomID string) (*models.Room, error) {
	return inProgressRoom(roomID, "alice"), nil
}

func (f *fakeBackend) ChatSince(_ context.Context, roomID string, sinceID int64) ([]models.ChatMessage, error) {
	f.mu.Lock()
	f.chatCalls++
	fn := f.chatFn
	f.mu.Unlock()
	if fn != nil {
		return fn(roomID, sinceID)
	}
	return nil, nil
}

func (f *fakeBackend) SendChat(context.Context, string, string) error { return nil }

func (f *fakeBackend) Ping(context.Context) (time.Duration, error) {
	return 12 * time.Millisecond, nil
}

func (f *fakeBackend) roomFetches() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.roomCalls
}

func (f *fakeBackend) leaves() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.left...)
}

// fakeRenderer records everything the controller pushes at it.
type fakeRenderer struct {
	mu        sync.Mutex
	contexts  []Context
	toasts    []string
	turns     int
	outcomes  []roomsync.Outcome
	rendered  int
	countdown string
	lobbies   int
}

func (r *fakeRenderer) ShowContext(ctx Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.contexts = append(r.contexts, ctx)
}

func (r *fakeRenderer) RenderLobby([]models.Room) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lobbies++
}

func (r *fakeRenderer) RenderRoom(*models.Room, []models.ChatMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rendered++
}

func (r *fakeRenderer) RenderCountdown(display string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.countdown = display
}

func (r *fakeRenderer) RenderElapsed(string) {}

func (r *fakeRenderer) TurnStarted(*models.Room) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.turns++
}

func (r *fakeRenderer) MatchFinished(outcome roomsync.Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func (r *fakeRenderer) Toast(message string, _ bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toasts = append(r.toasts, message)
}

func (r *fakeRenderer) Latency(time.Duration) {}

func (r *fakeRenderer) turnCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.turns
}

func (r *fakeRenderer) outcomeCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.outcomes)
}

func (r *fakeRenderer) lastToast() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.toasts) == 0 {
		return ""
	}
	return r.toasts[len(r.toasts)-1]
}

// fakePush is a scriptable push dialer.
type fakePush struct {
	mu       sync.Mutex
	dialErr  error
	handlers push.Handlers
	dials    int
	closed   int
}

type fakeChannel struct{ p *fakePush }

func (c *fakeChannel) Close() {
	c.p.mu.Lock()
	defer c.p.mu.Unlock()
	c.p.closed++
}

func (p *fakePush) dial(_ context.Context, _, _, _ string, _ push.Config, handlers push.Handlers) (PushChannel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dials++
	if p.dialErr != nil {
		return nil, p.dialErr
	}
	p.handlers = handlers
	return &fakeChannel{p: p}, nil
}

func (p *fakePush) dialCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dials
}

func (p *fakePush) pushRoom(room *models.Room) {
	p.mu.Lock()
	h := p.handlers
	p.mu.Unlock()
	h.OnRoomUpdate(room)
}

func (p *fakePush) pushChat(msg models.ChatMessage) {
	p.mu.Lock()
	h := p.handlers
	p.mu.Unlock()
	h.OnChatMessage(msg)
}

func (p *fakePush) dropConnection(err error) {
	p.mu.Lock()
	h := p.handlers
	p.mu.Unlock()
	h.OnClosed(err)
}

func waitingRoom(roomID string) *models.Room {
	return &models.Room{
		ID:        roomID,
		Name:      "test",
		GameType:  models.GameTypeGobang,
		Status:    models.RoomStatusWaiting,
		PlayerIDs: []string{"alice", "bob"},
		Players: []models.User{
			{ID: "alice", Username: "alice"},
			{ID: "bob", Username: "bob"},
		},
	}
}

func inProgressRoom(roomID, currentPlayer string) *models.Room {
	room := waitingRoom(roomID)
	room.Started = true
	room.Status = models.RoomStatusInProgress
	room.CurrentPlayerID = currentPlayer
	return room
}

func finishedRoom(roomID, winnerID string) *models.Room {
	room := waitingRoom(roomID)
	room.Started = true
	room.Status = models.RoomStatusFinished
	room.GameState = json.RawMessage(
		fmt.Sprintf(`{"status":"FINISHED","winnerId":%q}`, winnerID))
	return room
}

type fixture struct {
	ctrl     *Controller
	backend  *fakeBackend
	renderer *fakeRenderer
	pusher   *fakePush
	clock    *clockwork.FakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	backend := &fakeBackend{}
	renderer := &fakeRenderer{}
	pusher := &fakePush{}
	fc := clockwork.NewFakeClock()

	ctrl := New(backend, renderer, nil, fc, DefaultConfig("ws://test"))
	ctrl.SetPushDialer(pusher.dial)
	ctrl.Start(context.Background())
	t.Cleanup(ctrl.Stop)

	return &fixture{ctrl: ctrl, backend: backend, renderer: renderer, pusher: pusher, clock: fc}
}

func (f *fixture) login(t *testing.T) {
	t.Helper()
	require.NoError(t, f.ctrl.Login("alice", "pw"))
	require.Equal(t, ContextLobby, f.ctrl.CurrentContext())
}

func TestStartWithoutSessionIsUnauthenticated(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, ContextUnauthenticated, f.ctrl.CurrentContext())
}

func TestLoginEntersLobby(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	assert.NotNil(t, f.ctrl.Session())
	assert.Contains(t, f.ctrl.Games(), "GOBANG")
}

func TestEnterRoomPrefersPush(t *testing.T) {
	f := newFixture(t)
	f.login(t)

	require.NoError(t, f.ctrl.EnterRoom("room-1"))
	assert.Equal(t, ContextRoom, f.ctrl.CurrentContext())
	assert.Equal(t, TransportPushConnected, f.ctrl.Transport())
	assert.Equal(t, 1, f.pusher.dialCount())
	require.NotNil(t, f.ctrl.Room())
	assert.Equal(t, "--", f.ctrl.CountdownDisplay())
}

func TestEnterRoomFallsBackToPollingOnDialFailure(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	f.pusher.dialErr = fmt.Errorf("connection refused")

	require.NoError(t, f.ctrl.EnterRoom("room-1"))
	assert.Equal(t, TransportPolling, f.ctrl.Transport())
}

func TestEnterRoomInitialFetchFailureAbortsToLobby(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	f.backend.mu.Lock()
	f.backend.roomFn = func(string) (*models.Room, error) {
		return nil, fmt.Errorf("room not found")
	}
	f.backend.mu.Unlock()

	err := f.ctrl.EnterRoom("missing")
	require.Error(t, err)
	assert.Equal(t, ContextLobby, f.ctrl.CurrentContext())
	assert.Equal(t, "room not found", f.renderer.lastToast())
}

func TestPushFailureActivatesPollingOnce(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	require.NoError(t, f.ctrl.EnterRoom("room-1"))
	require.Equal(t, TransportPushConnected, f.ctrl.Transport())

	f.pusher.dropConnection(fmt.Errorf("broken pipe"))
	assert.Equal(t, TransportPolling, f.ctrl.Transport())

	// Poll ticks fetch the snapshot; the dead push channel issues nothing
	// and is never re-dialed within this room visit.
	before := f.backend.roomFetches()
	require.Eventually(t, func() bool {
		f.clock.Advance(f.ctrl.cfg.PollInterval)
		return f.backend.roomFetches() > before
	}, waitFor, tick)
	assert.Equal(t, 1, f.pusher.dialCount())
}

func TestPollFailureLeavesRoomWithNotice(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	f.pusher.dialErr = fmt.Errorf("no websocket")
	require.NoError(t, f.ctrl.EnterRoom("room-1"))
	require.Equal(t, TransportPolling, f.ctrl.Transport())

	f.backend.mu.Lock()
	f.backend.roomFn = func(string) (*models.Room, error) {
		return nil, fmt.Errorf("gone")
	}
	f.backend.mu.Unlock()

	require.Eventually(t, func() bool {
		f.clock.Advance(f.ctrl.cfg.PollInterval)
		return f.ctrl.CurrentContext() == ContextLobby
	}, waitFor, tick)
	assert.Equal(t, "room no longer exists", f.renderer.lastToast())
	// Forced navigation is error recovery, not an explicit exit.
	assert.Empty(t, f.backend.leaves())
}

func TestExplicitLeaveNotifiesServerBestEffort(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	require.NoError(t, f.ctrl.EnterRoom("room-1"))

	f.ctrl.LeaveRoom()
	assert.Equal(t, ContextLobby, f.ctrl.CurrentContext())
	require.Eventually(t, func() bool {
		return len(f.backend.leaves()) == 1
	}, waitFor, tick)
	assert.Equal(t, "room-1", f.backend.leaves()[0])
	assert.Equal(t, TransportIdle, f.ctrl.Transport())
}

func TestSwitchingRoomsVacatesOldSeat(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	require.NoError(t, f.ctrl.EnterRoom("room-1"))

	require.NoError(t, f.ctrl.JoinRoom("room-2"))
	assert.Equal(t, ContextRoom, f.ctrl.CurrentContext())
	assert.Equal(t, "room-2", f.ctrl.Room().ID)

	require.Eventually(t, func() bool {
		return len(f.backend.leaves()) == 1
	}, waitFor, tick)
	assert.Equal(t, "room-1", f.backend.leaves()[0])
}

func TestReenteringSameRoomSendsNoLeave(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	require.NoError(t, f.ctrl.EnterRoom("room-1"))
	require.NoError(t, f.ctrl.EnterRoom("room-1"))

	assert.Empty(t, f.backend.leaves())
}

func TestPushFrameAfterLeaveIsDropped(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	require.NoError(t, f.ctrl.EnterRoom("room-1"))
	f.ctrl.LeaveRoom()

	// The frame resolves after its owning context was torn down.
	f.pusher.pushRoom(inProgressRoom("room-1", "alice"))
	assert.Nil(t, f.ctrl.Room())
	assert.Zero(t, f.renderer.turnCount())
}

func TestEndToEndScenario(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	require.NoError(t, f.ctrl.EnterRoom("room-1"))

	// Waiting: no countdown.
	assert.Equal(t, "--", f.ctrl.CountdownDisplay())
	assert.Equal(t, models.RoomStatusWaiting, f.ctrl.Room().CurrentStatus())

	// Match starts with the session user to move.
	started := inProgressRoom("room-1", "alice")
	deadline := f.clock.Now().Add(15 * time.Second)
	started.TurnDeadline = &deadline
	startedAt := f.clock.Now()
	started.StartedAt = &startedAt
	f.pusher.pushRoom(started)

	assert.Equal(t, 1, f.renderer.turnCount())
	assert.Equal(t, "15.0", f.ctrl.CountdownDisplay())
	assert.Equal(t, "0:00", f.ctrl.ElapsedDisplay())

	// Finish: exactly one outcome event, countdown frozen and blanked.
	f.pusher.pushRoom(finishedRoom("room-1", "alice"))
	f.pusher.pushRoom(finishedRoom("room-1", "alice"))

	require.Equal(t, 1, f.renderer.outcomeCount())
	f.renderer.mu.Lock()
	outcome := f.renderer.outcomes[0]
	f.renderer.mu.Unlock()
	assert.Equal(t, roomsync.ResultWon, outcome.Result)
	assert.Equal(t, "--", f.ctrl.CountdownDisplay())
	assert.Equal(t, 1, f.renderer.turnCount())
}

func TestPushChatDeduplicatedAgainstPolling(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	f.backend.mu.Lock()
	f.backend.chatFn = func(_ string, sinceID int64) ([]models.ChatMessage, error) {
		if sinceID >= 2 {
			return nil, nil
		}
		return []models.ChatMessage{
			{ID: 1, UserID: "bob", Content: "hi"},
			{ID: 2, UserID: "alice", Content: "hello"},
		}, nil
	}
	f.backend.mu.Unlock()

	require.NoError(t, f.ctrl.EnterRoom("room-1"))
	require.Len(t, f.ctrl.ChatMessages(), 2)

	// Push re-delivers id 2, then advances.
	f.pusher.pushChat(models.ChatMessage{ID: 2, UserID: "alice", Content: "hello"})
	f.pusher.pushChat(models.ChatMessage{ID: 3, UserID: "bob", Content: "gl"})

	messages := f.ctrl.ChatMessages()
	require.Len(t, messages, 3)
	assert.Equal(t, int64(3), messages[2].ID)
}

func TestStaleSnapshotFromSlowPollDropped(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	require.NoError(t, f.ctrl.EnterRoom("room-1"))

	// A slow fetch captures its sequence at issue time; a push frame that
	// arrives while it is in flight claims a later one and must survive.
	staleSeq := f.ctrl.seq.Next()
	f.pusher.pushRoom(inProgressRoom("room-1", "bob"))
	require.Equal(t, models.RoomStatusInProgress, f.ctrl.Room().CurrentStatus())

	f.ctrl.mu.Lock()
	gen := f.ctrl.generation
	f.ctrl.mu.Unlock()
	f.ctrl.applySnapshot(gen, waitingRoom("room-1"), staleSeq)

	assert.Equal(t, models.RoomStatusInProgress, f.ctrl.Room().CurrentStatus())
	assert.Equal(t, "bob", f.ctrl.Room().CurrentPlayerID)
}

func TestLogoutClearsSessionAndContext(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	f.ctrl.Logout()

	assert.Nil(t, f.ctrl.Session())
	assert.Equal(t, ContextUnauthenticated, f.ctrl.CurrentContext())
}

func TestRoomActionsRequireRoomContext(t *testing.T) {
	f := newFixture(t)
	f.login(t)

	assert.ErrorIs(t, f.ctrl.StartGame(), ErrNoActiveRoom)
	assert.ErrorIs(t, f.ctrl.SendChat("hi"), ErrNoActiveRoom)
	assert.ErrorIs(t, f.ctrl.SubmitMove(map[string]any{"x": 1, "y": 1}), ErrNoActiveRoom)
}

func TestSubmitMoveValidatesThroughGameCapability(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	require.NoError(t, f.ctrl.EnterRoom("room-1"))

	err := f.ctrl.SubmitMove(map[string]any{"x": 99, "y": 0})
	require.Error(t, err)

	require.NoError(t, f.ctrl.SubmitMove(map[string]any{"x": 7, "y": 7}))
	assert.Equal(t, "bob", f.ctrl.Room().CurrentPlayerID)
}

func TestLobbyPollerRefreshesRoomList(t *testing.T) {
	f := newFixture(t)
	f.login(t)

	f.renderer.mu.Lock()
	before := f.renderer.lobbies
	f.renderer.mu.Unlock()

	require.Eventually(t, func() bool {
		f.clock.Advance(f.ctrl.cfg.PollInterval)
		f.renderer.mu.Lock()
		defer f.renderer.mu.Unlock()
		return f.renderer.lobbies > before
	}, waitFor, tick)
}

func TestLatencyProbeRunsAcrossContexts(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	require.NoError(t, f.ctrl.EnterRoom("room-1"))

	require.Eventually(t, func() bool {
		f.clock.Advance(f.ctrl.cfg.LatencyInterval)
		return f.ctrl.LastLatency() > 0
	}, waitFor, tick)
}
