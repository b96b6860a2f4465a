package auth

import "sync"

// User 由认证服务提供的已登录用户，只读使用。
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
}

// UserInfo is the identity metadata attached to every outbound chat message.
type UserInfo struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
}

// Info 转换为出站消息使用的用户信息。
func (u *User) Info() *UserInfo {
	if u == nil {
		return nil
	}
	return &UserInfo{
		UserID:   u.ID,
		Username: u.Username,
		FullName: u.FullName,
		Email:    u.Email,
		Phone:    u.Phone,
	}
}

// SessionContext carries the caller's identity and bearer token into the dispatcher.
// Clear is the only way tokens are dropped, e.g. after the REST API answers 401.
type SessionContext struct {
	mu    sync.RWMutex
	user  *User
	token string
}

// NewSessionContext 创建请求级的认证上下文，user 可以为空。
func NewSessionContext(user *User, token string) *SessionContext {
	return &SessionContext{user: user, token: token}
}

// Anonymous returns a context without user or token.
func Anonymous() *SessionContext {
	return &SessionContext{}
}

// User 返回当前用户，未登录时为 nil。
func (c *SessionContext) User() *User {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.user
}

// Token 返回 bearer token。
func (c *SessionContext) Token() string {
	if c == nil {
		return ""
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Authenticated 是否存在已登录用户。
func (c *SessionContext) Authenticated() bool {
	return c.User() != nil
}

// Clear drops the user and token.
func (c *SessionContext) Clear() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.user = nil
	c.token = ""
	c.mu.Unlock()
}
