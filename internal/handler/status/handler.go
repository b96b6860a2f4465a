package status

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"

	"github.com/huyng1801/restobot/backend/internal/service/connectivity"
	"github.com/huyng1801/restobot/backend/pkg/utils"
)

// Source 连通性状态来源，通常是 connectivity.Poller。
type Source interface {
	Latest() (connectivity.Status, bool)
	Refresh(ctx context.Context) connectivity.Status
}

// Handler 后端连通性的HTTP处理器
type Handler struct {
	source  Source
	refresh *rate.Limiter
}

// New 创建status处理器，强制刷新最多每 2 秒一次。
func New(source Source) *Handler {
	return &Handler{
		source:  source,
		refresh: rate.NewLimiter(rate.Every(2*time.Second), 1),
	}
}

// RegisterRoutes 注册status相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/status", h.handleStatus)
}

// handleStatus returns the cached status. An empty cache forces a probe; ?refresh=1
// asks for one and is throttled so clients cannot hammer the backends.
func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, ok := h.source.Latest()
	forced := r.URL.Query().Get("refresh") != "" && h.refresh.Allow()
	if !ok || forced {
		status = h.source.Refresh(r.Context())
	}
	utils.RespondJSON(w, http.StatusOK, status)
}
