package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ocgp/gameclient/internal/models"
)

type sessionResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

type roomResponse struct {
	Room *models.Room `json:"room"`
}

// Register creates a new account and returns the session it opens.
func (c *Client) Register(ctx context.Context, username, password string) (*models.Session, error) {
	var resp sessionResponse
	err := c.request(ctx, http.MethodPost, "/register", map[string]string{
		"username": username,
		"password": password,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &models.Session{Token: resp.Token, User: resp.User}, nil
}

// Login authenticates an existing account.
func (c *Client) Login(ctx context.Context, username, password string) (*models.Session, error) {
	var resp sessionResponse
	err := c.request(ctx, http.MethodPost, "/login", map[string]string{
		"username": username,
		"password": password,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &models.Session{Token: resp.Token, User: resp.User}, nil
}

// Games lists the playable game types keyed by code.
func (c *Client) Games(ctx context.Context) (map[string]models.GameInfo, error) {
	var resp struct {
		Games map[string]models.GameInfo `json:"games"`
	}
	if err := c.request(ctx, http.MethodGet, "/games", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Games, nil
}

// Rooms lists the public rooms visible in the lobby.
func (c *Client) Rooms(ctx context.Context) ([]models.Room, error) {
	var resp struct {
		Rooms []models.Room `json:"rooms"`
	}
	if err := c.request(ctx, http.MethodGet, "/rooms", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Rooms, nil
}

// CreateRoom opens a new room hosted by the session user.
func (c *Client) CreateRoom(ctx context.Context, name string, gameType models.GameType, private bool) (*models.Room, error) {
	var resp roomResponse
	err := c.request(ctx, http.MethodPost, "/rooms", map[string]any{
		"name":     name,
		"gameType": gameType,
		"private":  private,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Room, nil
}

// Room fetches the authoritative snapshot for one room.
func (c *Client) Room(ctx context.Context, roomID string) (*models.Room, error) {
	var resp roomResponse
	if err := c.request(ctx, http.MethodGet, "/rooms/"+roomID, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Room, nil
}

// JoinRoom seats the session user in the room.
func (c *Client) JoinRoom(ctx context.Context, roomID string) (*models.Room, error) {
	var resp roomResponse
	if err := c.request(ctx, http.MethodPost, "/rooms/"+roomID+"/join", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Room, nil
}

// LeaveRoom tells the server the session user left the room. Callers treat
// this as advisory; the response body is discarded.
func (c *Client) LeaveRoom(ctx context.Context, roomID string) error {
	return c.request(ctx, http.MethodPost, "/rooms/"+roomID+"/leave", nil, nil)
}

// StartGame begins the match. Host only.
func (c *Client) StartGame(ctx context.Context, roomID string) (*models.Room, error) {
	var resp roomResponse
	if err := c.request(ctx, http.MethodPost, "/rooms/"+roomID+"/start", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Room, nil
}

// SubmitMove sends a game-specific move payload.
func (c *Client) SubmitMove(ctx context.Context, roomID string, move any) (*models.Room, error) {
	var resp roomResponse
	if err := c.request(ctx, http.MethodPost, "/rooms/"+roomID+"/move", move, &resp); err != nil {
		return nil, err
	}
	return resp.Room, nil
}

// RestartGame resets a finished match for another round. Host only.
func (c *Client) RestartGame(ctx context.Context, roomID string) (*models.Room, error) {
	var resp roomResponse
	if err := c.request(ctx, http.MethodPost, "/rooms/"+roomID+"/restart", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Room, nil
}

// ChatSince returns the room's chat messages with id greater than sinceID,
// ordered by id ascending.
func (c *Client) ChatSince(ctx context.Context, roomID string, sinceID int64) ([]models.ChatMessage, error) {
	var resp struct {
		Messages []models.ChatMessage `json:"messages"`
	}
	path := fmt.Sprintf("/rooms/%s/chat?sinceId=%d", roomID, sinceID)
	if err := c.request(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

// SendChat appends one message to the room's chat log.
func (c *Client) SendChat(ctx context.Context, roomID, content string) error {
	return c.request(ctx, http.MethodPost, "/rooms/"+roomID+"/chat", map[string]string{
		"content": content,
	}, nil)
}

// Ping measures one request round trip to the server.
func (c *Client) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := c.request(ctx, http.MethodGet, "/ping", nil, nil); err != nil {
		return 0, err
	}
	return time.Since(start), nil
}
