package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/huyng1801/restobot/backend/internal/model/auth"
	"github.com/huyng1801/restobot/backend/internal/service/account"
)

type contextKey struct{}

// UserResolver 根据 bearer token 查询当前用户。
type UserResolver interface {
	CurrentUser(ctx context.Context, token string) (*auth.User, error)
}

// Authenticate attaches a SessionContext to every request. Missing or rejected
// tokens produce an anonymous context; the chat guard decides what that means.
func Authenticate(resolver UserResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sc := auth.Anonymous()

			if token := BearerToken(r); token != "" {
				user, err := resolver.CurrentUser(r.Context(), token)
				switch {
				case err == nil:
					sc = auth.NewSessionContext(user, token)
				case errors.Is(err, account.ErrUnauthorized):
					logger.Debug("bearer token rejected", "path", r.URL.Path)
				default:
					logger.Warn("resolve current user failed", "path", r.URL.Path, "error", err)
				}
			}

			next.ServeHTTP(w, r.WithContext(WithSessionContext(r.Context(), sc)))
		})
	}
}

// BearerToken reads the Authorization header, or the access_token query
// parameter for browser EventSource and WebSocket clients.
func BearerToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return strings.TrimSpace(r.URL.Query().Get("access_token"))
}

// WithSessionContext 将认证上下文写入 ctx。
func WithSessionContext(ctx context.Context, sc *auth.SessionContext) context.Context {
	return context.WithValue(ctx, contextKey{}, sc)
}

// SessionContextFrom returns the request's SessionContext, anonymous if none was set.
func SessionContextFrom(ctx context.Context) *auth.SessionContext {
	if sc, ok := ctx.Value(contextKey{}).(*auth.SessionContext); ok && sc != nil {
		return sc
	}
	return auth.Anonymous()
}
