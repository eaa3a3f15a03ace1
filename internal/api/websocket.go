package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/ngo-impact/impact-client/internal/upload"
	"github.com/rs/zerolog/log"
)

// WebSocket message types for the session protocol
const (
	// Client -> Server messages
	MsgTypeStart = "start"
	MsgTypeReset = "reset"
	MsgTypeRetry = "retry"
	MsgTypePing  = "ping"

	// Server -> Client messages
	MsgTypeConnected = "connected"
	MsgTypeState     = "state"
	MsgTypeError     = "error"
	MsgTypePong      = "pong"
)

// WSMessage is the envelope for every frame in both directions.
type WSMessage struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// WebSocketHandler pushes session snapshots to the browser and accepts intents back.
type WebSocketHandler struct {
	sessions SessionManager
	upgrader websocket.Upgrader
}

// NewWebSocketHandler creates a new WebSocket session handler
func NewWebSocketHandler(sessions SessionManager) *WebSocketHandler {
	return &WebSocketHandler{
		sessions: sessions,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 16 * 1024,
		},
	}
}

// wsConn serialises writes; gorilla allows one concurrent writer.
type wsConn struct {
	mu sync.Mutex
	ws *websocket.Conn
}

func (c *wsConn) send(msgType string, payload interface{}) error {
	msg := WSMessage{Type: msgType, Timestamp: time.Now().UnixMilli()}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		msg.Payload = raw
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteJSON(msg)
}

// HandleWebSocket upgrades the connection and runs the session protocol
func (wsh *WebSocketHandler) HandleWebSocket(c echo.Context) error {
	id := c.Param("id")
	ctrl, ok := wsh.sessions.Controller(id)
	if !ok {
		return NewNotFoundError("session", id)
	}

	ws, err := wsh.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	conn := &wsConn{ws: ws}
	defer ws.Close()

	log.Debug().Str("session", id).Msg("WebSocket client connected")

	updates, unsubscribe := ctrl.Subscribe()
	defer unsubscribe()

	done := make(chan struct{})
	go func() {
		defer close(done)
		wsh.readLoop(conn, id, ctrl)
	}()

	_ = conn.send(MsgTypeConnected, map[string]string{"session": id})
	for {
		select {
		case <-done:
			log.Debug().Str("session", id).Msg("WebSocket client disconnected")
			return nil
		case snap, ok := <-updates:
			if !ok {
				_ = conn.send(MsgTypeError, wsError{Message: "session closed", Code: "SESSION_CLOSED"})
				return nil
			}
			wsh.sessions.TouchSession(id)
			if err := conn.send(MsgTypeState, snap); err != nil {
				return nil
			}
		}
	}
}

type wsError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

func (wsh *WebSocketHandler) readLoop(conn *wsConn, id string, ctrl *upload.Controller) {
	for {
		var msg WSMessage
		if err := conn.ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("session", id).Msg("WebSocket connection error")
			}
			return
		}

		var err error
		switch msg.Type {
		case MsgTypePing:
			wsh.sessions.TouchSession(id)
			err = conn.send(MsgTypePong, nil)
		case MsgTypeStart:
			err = wsh.reply(conn, ctrl.Start())
		case MsgTypeRetry:
			err = wsh.reply(conn, ctrl.Retry())
		case MsgTypeReset:
			ctrl.Reset()
			wsh.sessions.SetStagedFile(id, "", nil)
		default:
			err = conn.send(MsgTypeError, wsError{Message: "unknown message type: " + msg.Type, Code: "INVALID_TYPE"})
		}
		if err != nil {
			return
		}
	}
}

// reply reports a rejected intent; accepted ones show up as state frames.
func (wsh *WebSocketHandler) reply(conn *wsConn, intentErr error) error {
	if intentErr == nil {
		return nil
	}
	apiErr := fromIntentError(intentErr)
	return conn.send(MsgTypeError, wsError{Message: apiErr.Message, Code: apiErr.Code})
}
