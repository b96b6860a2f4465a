package chat

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	middlewarePkg "github.com/huyng1801/restobot/backend/internal/middleware"
	"github.com/huyng1801/restobot/backend/internal/model/chat"
	"github.com/huyng1801/restobot/backend/internal/model/suggestion"
	"github.com/huyng1801/restobot/backend/internal/service/account"
	chatService "github.com/huyng1801/restobot/backend/internal/service/chat"
	"github.com/huyng1801/restobot/backend/internal/service/connectivity"
	"github.com/huyng1801/restobot/backend/pkg/utils"
)

// StatusSource 提供最近一次连通性检查结果。
type StatusSource interface {
	Latest() (connectivity.Status, bool)
}

// OrderLookup 查询订单详情。
type OrderLookup interface {
	Order(ctx context.Context, token, id string) (account.Order, error)
}

// Handler 聊天会话的HTTP处理器
type Handler struct {
	sessions   *chatService.Service
	dispatcher *chatService.Dispatcher
	status     StatusSource
	orders     OrderLookup
	logger     *slog.Logger
}

// New 创建聊天处理器，orders 可以为 nil。
func New(sessions *chatService.Service, dispatcher *chatService.Dispatcher, status StatusSource, orders OrderLookup, logger *slog.Logger) *Handler {
	return &Handler{
		sessions:   sessions,
		dispatcher: dispatcher,
		status:     status,
		orders:     orders,
		logger:     logger,
	}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/sessions", h.handleCreateSession)
	r.Get("/sessions/{token}", h.handleGetSession)
	r.Post("/sessions/{token}/messages", h.handleSendMessage)
	r.Post("/sessions/{token}/reset", h.handleReset)
	r.Get("/sessions/{token}/order", h.handleGetOrder)
	r.Delete("/sessions/{token}/order", h.handleClearOrder)
}

type sessionResponse struct {
	chat.Snapshot
	Suggestions []suggestion.Suggestion `json:"suggestions"`
}

func (h *Handler) sessionView(session *chatService.Session) sessionResponse {
	snapshot := session.Snapshot()
	if h.status != nil {
		if status, ok := h.status.Latest(); ok {
			snapshot.Connectivity = chat.Connectivity{
				DialogueEngineUp: status.DialogueEngineUp,
				RestAPIUp:        status.RestAPIUp,
			}
		}
	}
	return sessionResponse{Snapshot: snapshot, Suggestions: session.Suggestions()}
}

// handleCreateSession 创建会话
func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	session := h.sessions.Create()
	h.logger.Info("session created", "session", session.Token())
	utils.RespondJSON(w, http.StatusCreated, h.sessionView(session))
}

// handleGetSession 返回会话快照
func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.lookup(w, r)
	if !ok {
		return
	}
	utils.RespondJSON(w, http.StatusOK, h.sessionView(session))
}

type sendMessageRequest struct {
	Message    string `json:"message"`
	Suggestion *int   `json:"suggestion,omitempty"`
}

// handleSendMessage 发送用户消息并返回本次追加的记录
func (h *Handler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	session, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var payload sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	text := payload.Message
	if payload.Suggestion != nil {
		suggestions := session.Suggestions()
		index := *payload.Suggestion
		if index < 0 || index >= len(suggestions) {
			utils.RespondError(w, http.StatusBadRequest, "suggestion index out of range")
			return
		}
		text = suggestions[index].Text
	}

	// the exchange completes even if the client goes away; subscribers still get the reply
	ctx := context.WithoutCancel(r.Context())
	sc := middlewarePkg.SessionContextFrom(r.Context())

	result, err := h.dispatcher.Dispatch(ctx, session, sc, text)
	if errors.Is(err, chatService.ErrEmptyMessage) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		h.logger.Error("dispatch message", "session", session.Token(), "error", err)
		utils.RespondError(w, http.StatusInternalServerError, "dispatch failed")
		return
	}

	utils.RespondJSON(w, http.StatusOK, result)
}

// handleReset 开始新对话，旧令牌作废
func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	session := h.sessions.Reset(token)
	h.logger.Info("session reset", "old", token, "session", session.Token())
	utils.RespondJSON(w, http.StatusOK, h.sessionView(session))
}

type orderResponse struct {
	OrderID string        `json:"orderId"`
	Order   account.Order `json:"order,omitempty"`
}

// handleGetOrder 返回等待支付的订单
func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	session, ok := h.lookup(w, r)
	if !ok {
		return
	}

	orderID, ok := session.PendingOrderID().Get()
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "no pending order")
		return
	}

	resp := orderResponse{OrderID: orderID}
	sc := middlewarePkg.SessionContextFrom(r.Context())
	if h.orders != nil && sc.Authenticated() {
		order, err := h.orders.Order(r.Context(), sc.Token(), orderID)
		if err != nil {
			h.logger.Warn("order lookup failed", "session", session.Token(), "order_id", orderID, "error", err)
		} else {
			resp.Order = order
		}
	}

	utils.RespondJSON(w, http.StatusOK, resp)
}

// handleClearOrder 支付流程结束后清除
func (h *Handler) handleClearOrder(w http.ResponseWriter, r *http.Request) {
	session, ok := h.lookup(w, r)
	if !ok {
		return
	}
	session.ClearPendingOrderID()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (*chatService.Session, bool) {
	session, err := h.sessions.Get(chi.URLParam(r, "token"))
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return nil, false
	}
	return session, true
}
