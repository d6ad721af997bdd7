package client

import (
	"context"
	"time"

	"github.com/ocgp/gameclient/internal/models"
	"github.com/ocgp/gameclient/internal/push"
)

// Backend is the request/response surface the controller consumes.
// *api.Client satisfies it; tests substitute a fake.
type Backend interface {
	SetToken(token string)
	Register(ctx context.Context, username, password string) (*models.Session, error)
	Login(ctx context.Context, username, password string) (*models.Session, error)
	Games(ctx context.Context) (map[string]models.GameInfo, error)
	Rooms(ctx context.Context) ([]models.Room, error)
	CreateRoom(ctx context.Context, name string, gameType models.GameType, private bool) (*models.Room, error)
	Room(ctx context.Context, roomID string) (*models.Room, error)
	JoinRoom(ctx context.Context, roomID string) (*models.Room, error)
	LeaveRoom(ctx context.Context, roomID string) error
	StartGame(ctx context.Context, roomID string) (*models.Room, error)
	SubmitMove(ctx context.Context, roomID string, move any) (*models.Room, error)
	RestartGame(ctx context.Context, roomID string) (*models.Room, error)
	ChatSince(ctx context.Context, roomID string, sinceID int64) ([]models.ChatMessage, error)
	SendChat(ctx context.Context, roomID, content string) error
	Ping(ctx context.Context) (time.Duration, error)
}

// PushChannel is the controller's handle on an open push subscription.
type PushChannel interface {
	Close()
}

// PushDialer opens a push subscription. push.Dial wrapped in DialPush is the
// production implementation; tests substitute their own.
type PushDialer func(ctx context.Context, wsURL, roomID, token string, config push.Config, handlers push.Handlers) (PushChannel, error)

// DialPush adapts push.Dial to the PushDialer shape.
func DialPush(ctx context.Context, wsURL, roomID, token string, config push.Config, handlers push.Handlers) (PushChannel, error) {
	return push.Dial(ctx, wsURL, roomID, token, config, handlers)
}

// SessionStore is the persistent credential store contract.
type SessionStore interface {
	LoadSession() (*models.Session, error)
	SaveSession(session *models.Session) error
	ClearSession() error
}
