package dialogue

import (
	"context"
	"errors"
	"time"

	"github.com/huyng1801/restobot/backend/internal/model/auth"
)

var (
	// ErrUnauthorized 上游返回 401，调用方需要清除令牌。
	ErrUnauthorized = errors.New("backend rejected credentials")
	// ErrBadStatus 上游返回非 2xx 状态码。
	ErrBadStatus = errors.New("backend returned non-success status")
)

// Request is one outbound user message.
type Request struct {
	Sender    string
	Message   string
	UserInfo  *auth.UserInfo
	AuthToken string
	Timestamp time.Time
}

// Channel sends a message to one backend and returns its normalized reply.
type Channel interface {
	Name() string
	Send(ctx context.Context, req Request) (Reply, error)
}
