package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/huyng1801/restobot/backend/internal/handler/chat"
	"github.com/huyng1801/restobot/backend/internal/handler/status"
	"github.com/huyng1801/restobot/backend/internal/handler/stream"
	"github.com/huyng1801/restobot/backend/internal/handler/suggestion"
	middlewarePkg "github.com/huyng1801/restobot/backend/internal/middleware"
	suggestionModel "github.com/huyng1801/restobot/backend/internal/model/suggestion"
	chatService "github.com/huyng1801/restobot/backend/internal/service/chat"
	"github.com/huyng1801/restobot/backend/internal/service/connectivity"
	"github.com/huyng1801/restobot/backend/pkg/utils"
)

// Accounts 由 REST API 提供的用户与订单查询，以及被拒令牌的撤销。
type Accounts interface {
	middlewarePkg.UserResolver
	chat.OrderLookup
	chatService.TokenRevoker
}

// Dependencies groups everything the router wires into handlers.
// Sessions, Dispatcher, Status and Accounts are required.
type Dependencies struct {
	AllowedOrigins []string
	Logger         *slog.Logger
	Sessions       *chatService.Service
	Dispatcher     *chatService.Dispatcher
	Suggestions    suggestionModel.Store
	Status         *connectivity.Poller
	Accounts       Accounts
}

// NewRouter wires HTTP routes to core services. It panics when a required
// dependency is missing.
func NewRouter(deps Dependencies) http.Handler {
	switch {
	case deps.Sessions == nil:
		panic("handler: Dependencies.Sessions is required")
	case deps.Dispatcher == nil:
		panic("handler: Dependencies.Dispatcher is required")
	case deps.Status == nil:
		panic("handler: Dependencies.Status is required")
	case deps.Accounts == nil:
		panic("handler: Dependencies.Accounts is required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Suggestions == nil {
		deps.Suggestions = suggestionModel.NewMemoryStore(suggestionModel.Seed())
	}

	deps.Dispatcher.RevokeTokensWith(deps.Accounts)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(deps.AllowedOrigins))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	chatHandler := chat.New(deps.Sessions, deps.Dispatcher, deps.Status, deps.Accounts, deps.Logger)
	streamHandler := stream.New(deps.Sessions, deps.Dispatcher, deps.Status, deps.Logger)
	statusHandler := status.New(deps.Status)
	suggestionHandler := suggestion.New(deps.Suggestions)

	r.Route("/api", func(api chi.Router) {
		api.Use(middlewarePkg.Authenticate(deps.Accounts, deps.Logger))

		chatHandler.RegisterRoutes(api)
		streamHandler.RegisterRoutes(api)
		statusHandler.RegisterRoutes(api)
		suggestionHandler.RegisterRoutes(api)
	})

	return r
}
