package chat

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/Southclaws/opt"
	"github.com/google/uuid"

	"github.com/huyng1801/restobot/backend/internal/model/chat"
	"github.com/huyng1801/restobot/backend/internal/model/suggestion"
)

const subscriberBuffer = 32

// Session is one browser tab's conversation. The token never changes; a reset
// produces a new Session.
type Session struct {
	token       string
	createdAt   time.Time
	transcript  *Transcript
	suggestions []suggestion.Suggestion
	events      *feed

	inFlight atomic.Int32

	mu             sync.Mutex
	pendingOrderID string
}

// NewToken 生成会话令牌，格式与前端保持一致。
func NewToken() string {
	return "user_" + uuid.NewString()
}

func newSession(token string, suggestions []suggestion.Suggestion) *Session {
	s := &Session{
		token:       token,
		createdAt:   time.Now().UTC(),
		transcript:  NewTranscript(),
		suggestions: suggestions,
		events:      newFeed(),
	}
	s.transcript.setNotify(s.events.publish)
	return s
}

// Token 返回会话令牌。
func (s *Session) Token() string { return s.token }

// CreatedAt 返回创建时间。
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// Transcript 返回会话记录。
func (s *Session) Transcript() *Transcript { return s.transcript }

// Suggestions returns the per-session shuffled suggestion order.
func (s *Session) Suggestions() []suggestion.Suggestion {
	return append([]suggestion.Suggestion(nil), s.suggestions...)
}

// Typing reports whether at least one dispatch is waiting on a backend.
func (s *Session) Typing() bool {
	return s.inFlight.Load() > 0
}

// beginTyping marks a dispatch as in flight. The returned release must be called
// exactly once on every exit path.
func (s *Session) beginTyping() func() {
	if s.inFlight.Add(1) == 1 {
		s.events.publish(Event{Type: EventTyping, Typing: true})
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			if s.inFlight.Add(-1) == 0 {
				s.events.publish(Event{Type: EventTyping, Typing: false})
			}
		})
	}
}

// Subscribe streams entry, typing and reset events until the returned cancel is called
// or the session is closed.
func (s *Session) Subscribe() (<-chan Event, func()) {
	return s.events.subscribe(subscriberBuffer)
}

// PendingOrderID 返回等待支付的订单号。
func (s *Session) PendingOrderID() opt.Optional[string] {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pendingOrderID == "" {
		return opt.NewEmpty[string]()
	}
	return opt.New(s.pendingOrderID)
}

// SetPendingOrderID 记录回复中识别出的订单号，后到的覆盖先到的。
func (s *Session) SetPendingOrderID(id string) {
	s.mu.Lock()
	s.pendingOrderID = id
	s.mu.Unlock()
}

// ClearPendingOrderID 支付流程处理完毕后清除。
func (s *Session) ClearPendingOrderID() {
	s.mu.Lock()
	s.pendingOrderID = ""
	s.mu.Unlock()
}

// Snapshot 返回会话的只读视图。
func (s *Session) Snapshot() chat.Snapshot {
	pending, _ := s.PendingOrderID().Get()
	return chat.Snapshot{
		Token:          s.token,
		CreatedAt:      s.createdAt,
		Typing:         s.Typing(),
		PendingOrderID: pending,
		Transcript:     s.transcript.Entries(),
	}
}

func (s *Session) close() {
	s.events.close()
}
