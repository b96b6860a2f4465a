package chat

import (
	"sync"

	"github.com/huyng1801/restobot/backend/internal/model/chat"
)

// EventType 会话事件类型。
type EventType string

const (
	EventEntry  EventType = "entry"
	EventTyping EventType = "typing"
	EventReset  EventType = "reset"
)

// Event is pushed to SSE and WebSocket subscribers of a session.
type Event struct {
	Type   EventType   `json:"type"`
	Entry  *chat.Entry `json:"entry,omitempty"`
	Typing bool        `json:"typing"`
}

// feed fans events out without blocking the publisher. A subscriber that falls
// behind by more than its buffer misses events; the transcript stays authoritative.
type feed struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	nextID int
	closed bool
}

func newFeed() *feed {
	return &feed{subs: make(map[int]chan Event)}
}

func (f *feed) subscribe(buffer int) (<-chan Event, func()) {
	ch := make(chan Event, buffer)

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := f.nextID
	f.nextID++
	f.subs[id] = ch
	f.mu.Unlock()

	return ch, func() {
		f.mu.Lock()
		if existing, ok := f.subs[id]; ok {
			close(existing)
			delete(f.subs, id)
		}
		f.mu.Unlock()
	}
}

func (f *feed) publish(event Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.subs {
		select {
		case ch <- event:
		default:
		}
	}
}

func (f *feed) close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	for id, ch := range f.subs {
		close(ch)
		delete(f.subs, id)
	}
}
