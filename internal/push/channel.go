package push

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/ocgp/gameclient/internal/models"
)

// FrameType tags a push frame from the server.
type FrameType string

const (
	FrameTypeRoomUpdate  FrameType = "roomUpdate"
	FrameTypeChatMessage FrameType = "chatMessage"
)

// Frame is one message pushed by the server. Exactly one of Room or Message
// is set depending on Type.
type Frame struct {
	Type    FrameType           `json:"type"`
	Room    *models.Room        `json:"room,omitempty"`
	Message *models.ChatMessage `json:"message,omitempty"`
}

// Handlers receives channel events. All callbacks run on the channel's read
// goroutine; OnClosed fires exactly once, for both remote closes and errors.
type Handlers struct {
	OnRoomUpdate  func(*models.Room)
	OnChatMessage func(models.ChatMessage)
	OnClosed      func(err error)
}

// Config holds connection tuning for the push channel.
type Config struct {
	DialTimeout    time.Duration
	WriteTimeout   time.Duration
	ReadTimeout    time.Duration
	PingInterval   time.Duration
	MaxMessageSize int64
}

// DefaultConfig returns the default push channel configuration.
func DefaultConfig() Config {
	return Config{
		DialTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		ReadTimeout:    60 * time.Second,
		PingInterval:   30 * time.Second,
		MaxMessageSize: 64 * 1024,
	}
}

// Channel is a connected push subscription for one room.
type Channel struct {
	id       string
	roomID   string
	conn     *websocket.Conn
	config   Config
	handlers Handlers

	closeOnce sync.Once
	done      chan struct{}
}

// Dial connects the push channel for a room, authenticating with the session
// token via query parameters. The returned channel is already pumping; events
// arrive through handlers until Close or a connection failure.
func Dial(ctx context.Context, wsURL, roomID, token string, config Config, handlers Handlers) (*Channel, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid push endpoint: %w", err)
	}
	q := u.Query()
	q.Set("roomId", roomID)
	q.Set("token", token)
	u.RawQuery = q.Encode()

	dialer := websocket.Dialer{HandshakeTimeout: config.DialTimeout}
	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect push channel: %w", err)
	}

	ch := &Channel{
		id:       uuid.New().String()[:8],
		roomID:   roomID,
		conn:     conn,
		config:   config,
		handlers: handlers,
		done:     make(chan struct{}),
	}

	go ch.readPump()
	go ch.pingPump()

	log.Info().
		Str("channel_id", ch.id).
		Str("room_id", roomID).
		Msg("push channel connected")

	return ch, nil
}

// Close tears the channel down. Idempotent; a close initiated locally does
// not fire OnClosed.
func (c *Channel) Close() {
	c.shutdown(nil, false)
}

func (c *Channel) shutdown(err error, notify bool) {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
		c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.conn.Close()

		log.Debug().
			Str("channel_id", c.id).
			Str("room_id", c.roomID).
			Err(err).
			Msg("push channel closed")

		if notify && c.handlers.OnClosed != nil {
			c.handlers.OnClosed(err)
		}
	})
}

// readPump reads frames until the connection dies or Close is called.
func (c *Channel) readPump() {
	c.conn.SetReadLimit(c.config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				// Local close already in progress.
			default:
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Warn().
						Err(err).
						Str("channel_id", c.id).
						Msg("push channel read error")
				}
				c.shutdown(err, true)
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
		c.dispatch(data)
	}
}

// dispatch decodes one frame and routes it. Unrecognized payloads are ignored.
func (c *Channel) dispatch(data []byte) {
	var frame Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		log.Debug().
			Err(err).
			Str("channel_id", c.id).
			Msg("dropping undecodable push frame")
		return
	}

	switch frame.Type {
	case FrameTypeRoomUpdate:
		if frame.Room != nil && c.handlers.OnRoomUpdate != nil {
			c.handlers.OnRoomUpdate(frame.Room)
		}
	case FrameTypeChatMessage:
		if frame.Message != nil && c.handlers.OnChatMessage != nil {
			c.handlers.OnChatMessage(*frame.Message)
		}
	default:
		log.Debug().
			Str("channel_id", c.id).
			Str("frame_type", string(frame.Type)).
			Msg("ignoring unknown push frame type")
	}
}

// pingPump keeps the connection alive until the channel closes.
func (c *Channel) pingPump() {
	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.shutdown(err, true)
				return
			}
		}
	}
}
