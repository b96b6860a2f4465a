package stream

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	middlewarePkg "github.com/huyng1801/restobot/backend/internal/middleware"
	"github.com/huyng1801/restobot/backend/internal/model/auth"
	chatService "github.com/huyng1801/restobot/backend/internal/service/chat"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 54 * time.Second
	writeTimeout = 10 * time.Second
)

type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// TextMessage 文本消息
type TextMessage struct {
	Text string `json:"text"`
}

type outgoingMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId,omitempty"`
	Data      any    `json:"data,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// wsConn serializes writes; gorilla allows one concurrent writer.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) writeJSON(msg outgoingMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(msg)
}

func (c *wsConn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
}

// handleWebSocket 处理WebSocket连接
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.Get(chi.URLParam(r, "token"))
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	sc := middlewarePkg.SessionContextFrom(r.Context())

	raw, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "session", session.Token(), "error", err)
		return
	}
	defer raw.Close()
	conn := &wsConn{conn: raw}

	h.logger.Info("websocket connected", "session", session.Token())

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	raw.SetReadDeadline(time.Now().Add(readTimeout))
	raw.SetPongHandler(func(string) error {
		raw.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		h.pingLoop(ctx, conn)
	}()
	go func() {
		defer wg.Done()
		h.forwardEvents(ctx, cancel, conn, session)
	}()

	h.send(conn, session.Token(), "snapshot", session.Snapshot())
	if status, ok := h.status.Latest(); ok {
		h.send(conn, session.Token(), "status", status)
	}

	// a dispatch already in flight finishes after the client leaves
	h.readLoop(ctx, context.WithoutCancel(r.Context()), conn, session, sc)

	cancel()
	wg.Wait()
	h.logger.Info("websocket closed", "session", session.Token())
}

func (h *Handler) readLoop(ctx, dispatchCtx context.Context, conn *wsConn, session *chatService.Session, sc *auth.SessionContext) {
	for {
		var msg inboundMessage
		if err := conn.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read error", "session", session.Token(), "error", err)
			}
			return
		}
		if ctx.Err() != nil {
			return
		}
		conn.conn.SetReadDeadline(time.Now().Add(readTimeout))

		switch msg.Type {
		case "text":
			var text TextMessage
			if err := json.Unmarshal(msg.Data, &text); err != nil {
				h.sendError(conn, "invalid text payload")
				continue
			}
			// replies reach the client through the session event feed
			go func() {
				_, err := h.dispatcher.Dispatch(dispatchCtx, session, sc, text.Text)
				if errors.Is(err, chatService.ErrEmptyMessage) {
					h.sendError(conn, "message is empty")
				}
			}()
		case "ping":
			h.send(conn, session.Token(), "pong", nil)
		default:
			h.sendError(conn, "unknown message type")
		}
	}
}

// forwardEvents relays session events and status changes until the session is
// closed or ctx ends. A closed session also closes the socket.
func (h *Handler) forwardEvents(ctx context.Context, cancel context.CancelFunc, conn *wsConn, session *chatService.Session) {
	events, unsubscribe := session.Subscribe()
	defer unsubscribe()
	updates, unsubscribeStatus := h.status.Subscribe()
	defer unsubscribeStatus()

	for {
		select {
		case <-ctx.Done():
			return
		case status, ok := <-updates:
			if !ok {
				updates = nil
				continue
			}
			h.send(conn, session.Token(), "status", status)
		case event, ok := <-events:
			if !ok {
				_ = conn.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"),
					time.Now().Add(writeTimeout))
				cancel()
				_ = conn.conn.Close()
				return
			}
			if err := conn.writeJSON(outgoingMessage{
				Type:      string(event.Type),
				SessionID: session.Token(),
				Data:      event,
				Timestamp: time.Now().Unix(),
			}); err != nil {
				return
			}
		}
	}
}

func (h *Handler) send(conn *wsConn, token, kind string, data any) {
	msg := outgoingMessage{
		Type:      kind,
		SessionID: token,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}
	if err := conn.writeJSON(msg); err != nil {
		h.logger.Debug("websocket write failed", "type", kind, "error", err)
	}
}

func (h *Handler) sendError(conn *wsConn, message string) {
	msg := outgoingMessage{
		Type:      "error",
		Data:      map[string]string{"message": message},
		Timestamp: time.Now().Unix(),
	}
	if err := conn.writeJSON(msg); err != nil {
		h.logger.Debug("websocket write error failed", "error", err)
	}
}

// pingLoop 定期发送ping消息
func (h *Handler) pingLoop(ctx context.Context, conn *wsConn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.ping(); err != nil {
				return
			}
		}
	}
}
