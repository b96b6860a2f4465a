package stream

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	chatService "github.com/huyng1801/restobot/backend/internal/service/chat"
	"github.com/huyng1801/restobot/backend/internal/service/connectivity"
	"github.com/huyng1801/restobot/backend/pkg/utils"
)

const defaultHeartbeat = 15 * time.Second

// StatusFeed 连通性状态的订阅源。
type StatusFeed interface {
	Latest() (connectivity.Status, bool)
	Subscribe() (<-chan connectivity.Status, func())
}

// Handler pushes session events and connectivity changes over SSE and WebSocket.
type Handler struct {
	sessions   *chatService.Service
	dispatcher *chatService.Dispatcher
	status     StatusFeed
	logger     *slog.Logger
	heartbeat  time.Duration
	upgrader   websocket.Upgrader
}

// New creates a new stream handler
func New(sessions *chatService.Service, dispatcher *chatService.Dispatcher, status StatusFeed, logger *slog.Logger) *Handler {
	return &Handler{
		sessions:   sessions,
		dispatcher: dispatcher,
		status:     status,
		logger:     logger,
		heartbeat:  defaultHeartbeat,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册推送相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/sessions/{token}/events", h.handleSessionEvents)
	r.Get("/sessions/{token}/ws", h.handleWebSocket)
	r.Get("/status/stream", h.handleStatusStream)
}

// handleSessionEvents streams a snapshot followed by entry, typing and reset events.
func (h *Handler) handleSessionEvents(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.Get(chi.URLParam(r, "token"))
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	events, unsubscribe := session.Subscribe()
	defer unsubscribe()

	utils.SetupSSEHeaders(w)
	if err := utils.SendSSEEvent(w, flusher, "snapshot", session.Snapshot()); err != nil {
		return
	}
	h.logger.Debug("sse session stream opened", "session", session.Token())

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			h.logger.Debug("sse session stream closed", "session", session.Token())
			return
		case event, ok := <-events:
			if !ok {
				_ = utils.SendSSEEvent(w, flusher, "closed", map[string]string{"token": session.Token()})
				return
			}
			if err := utils.SendSSEEvent(w, flusher, string(event.Type), event); err != nil {
				h.logger.Debug("sse write failed", "session", session.Token(), "error", err)
				return
			}
		case <-ticker.C:
			if err := utils.SendSSEComment(w, flusher, "heartbeat"); err != nil {
				return
			}
		}
	}
}

// handleStatusStream 推送连通性状态变化
func (h *Handler) handleStatusStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	updates, unsubscribe := h.status.Subscribe()
	defer unsubscribe()

	utils.SetupSSEHeaders(w)
	current, _ := h.status.Latest()
	if err := utils.SendSSEEvent(w, flusher, "status", current); err != nil {
		return
	}

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case status, ok := <-updates:
			if !ok {
				return
			}
			if err := utils.SendSSEEvent(w, flusher, "status", status); err != nil {
				return
			}
		case <-ticker.C:
			if err := utils.SendSSEComment(w, flusher, "heartbeat"); err != nil {
				return
			}
		}
	}
}
