package chat

import (
	"errors"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/huyng1801/restobot/backend/internal/model/suggestion"
	suggestionsvc "github.com/huyng1801/restobot/backend/internal/service/suggestion"
)

var ErrSessionNotFound = errors.New("session not found")

// Service keeps live sessions in a bounded, expiring in-memory cache.
// Nothing survives a restart.
type Service struct {
	sessions *expirable.LRU[string, *Session]
	catalog  suggestion.Store
}

// NewService 创建会话管理器，capacity 和 ttl 来自配置。
func NewService(catalog suggestion.Store, capacity int, ttl time.Duration) *Service {
	onEvict := func(_ string, s *Session) { s.close() }
	return &Service{
		sessions: expirable.NewLRU[string, *Session](capacity, onEvict, ttl),
		catalog:  catalog,
	}
}

// Create provisions a session with a fresh token, the welcome entry and its own
// suggestion order.
func (s *Service) Create() *Session {
	session := newSession(NewToken(), suggestionsvc.Shuffle(s.catalog.List()))
	s.sessions.Add(session.Token(), session)
	return session
}

// Get 按令牌查找会话。
func (s *Service) Get(token string) (*Session, error) {
	session, ok := s.sessions.Get(token)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// GetOrCreate returns the session for token, or a new one when the token is
// empty, unknown or expired.
func (s *Service) GetOrCreate(token string) *Session {
	if token != "" {
		if session, ok := s.sessions.Get(token); ok {
			return session
		}
	}
	return s.Create()
}

// Reset forgets token and returns a brand-new session.
func (s *Service) Reset(token string) *Session {
	if token != "" {
		s.sessions.Remove(token)
	}
	return s.Create()
}

// Len 当前存活的会话数。
func (s *Service) Len() int {
	return s.sessions.Len()
}
