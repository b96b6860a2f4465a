package account

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fctx"
	"github.com/Southclaws/fault/fmsg"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/huyng1801/restobot/backend/internal/model/auth"
)

const (
	mePath    = "/api/v1/users/me"
	orderPath = "/api/v1/orders/orders/"
)

var (
	// ErrUnauthorized 令牌无效或已过期。
	ErrUnauthorized  = errors.New("token rejected by rest api")
	ErrOrderNotFound = errors.New("order not found")
)

// Client talks to the restaurant REST API on behalf of a signed-in user.
// Resolved users are cached per token so the gate stays a local check.
// Tokens a backend has rejected stay revoked for the same TTL.
type Client struct {
	baseURL    string
	httpClient *http.Client
	users      *expirable.LRU[string, auth.User]
	revoked    *expirable.LRU[string, struct{}]
}

// NewClient 创建 REST API 客户端，cacheTTL 控制用户信息缓存时长。
func NewClient(baseURL string, httpClient *http.Client, cacheSize int, cacheTTL time.Duration) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		users:      expirable.NewLRU[string, auth.User](cacheSize, nil, cacheTTL),
		revoked:    expirable.NewLRU[string, struct{}](cacheSize, nil, cacheTTL),
	}
}

// CurrentUser resolves the bearer token to a user via GET /api/v1/users/me.
func (c *Client) CurrentUser(ctx context.Context, token string) (*auth.User, error) {
	if token == "" || c.revoked.Contains(token) {
		return nil, ErrUnauthorized
	}
	if user, ok := c.users.Get(token); ok {
		return &user, nil
	}

	var user auth.User
	if err := c.get(ctx, mePath, token, &user); err != nil {
		return nil, err
	}

	c.users.Add(token, user)
	return &user, nil
}

// Forget drops a cached token, e.g. after a downstream 401.
func (c *Client) Forget(token string) {
	c.users.Remove(token)
}

// Revoke forgets the token and rejects it locally until the cache TTL passes,
// even if /users/me would still accept it.
func (c *Client) Revoke(token string) {
	if token == "" {
		return
	}
	c.users.Remove(token)
	c.revoked.Add(token, struct{}{})
}

// Order 订单详情，字段按 REST API 原样透传。
type Order map[string]any

// Order fetches GET /api/v1/orders/orders/{id}.
func (c *Client) Order(ctx context.Context, token, id string) (Order, error) {
	var order Order
	if err := c.get(ctx, orderPath+id, token, &order); err != nil {
		return nil, err
	}
	return order, nil
}

func (c *Client) get(ctx context.Context, path, token string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fault.Wrap(err, fctx.With(ctx), fmsg.With("create rest api request"))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fault.Wrap(err, fctx.With(ctx), fmsg.With("call rest api"))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		_, _ = io.Copy(io.Discard, resp.Body)
		c.Forget(token)
		return fault.Wrap(ErrUnauthorized, fctx.With(ctx))
	case resp.StatusCode == http.StatusNotFound:
		_, _ = io.Copy(io.Discard, resp.Body)
		return fault.Wrap(ErrOrderNotFound, fctx.With(ctx))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		_, _ = io.Copy(io.Discard, resp.Body)
		return fault.Wrap(fmt.Errorf("rest api returned HTTP %d", resp.StatusCode), fctx.With(ctx))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fault.Wrap(err, fctx.With(ctx), fmsg.With("decode rest api response"))
	}
	return nil
}
