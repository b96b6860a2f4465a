package suggestion

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"

	"github.com/huyng1801/restobot/backend/internal/model/suggestion"
	"github.com/huyng1801/restobot/backend/pkg/utils"
)

// Handler 快捷提问的HTTP处理器
type Handler struct {
	catalog suggestion.Store
}

// New 创建suggestion处理器
func New(catalog suggestion.Store) *Handler {
	return &Handler{
		catalog: catalog,
	}
}

// RegisterRoutes 注册suggestion相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/suggestions", h.handleListSuggestions)
}

type categoryGroup struct {
	Category string                  `json:"category"`
	Items    []suggestion.Suggestion `json:"items"`
}

// handleListSuggestions 按分类列出全部快捷提问，顺序与目录一致
func (h *Handler) handleListSuggestions(w http.ResponseWriter, r *http.Request) {
	byCategory := lo.GroupBy(h.catalog.List(), func(item suggestion.Suggestion) string {
		return item.Category
	})
	groups := lo.Map(h.catalog.Categories(), func(category string, _ int) categoryGroup {
		return categoryGroup{Category: category, Items: byCategory[category]}
	})
	utils.RespondJSON(w, http.StatusOK, groups)
}
