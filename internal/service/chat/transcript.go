package chat

import (
	"sync"

	"github.com/huyng1801/restobot/backend/internal/model/chat"
)

// WelcomeText 新会话与清空后的第一条机器人消息。
const WelcomeText = `Xin chào! Tôi là RestoBot - trợ lý ảo nhà hàng.

Tôi có thể giúp bạn:
• Đặt bàn - Chỉ cần nói "Tôi muốn đặt bàn" hoặc "Đặt bàn cho 4 người"
• Xem thực đơn và gợi ý món ăn
• Gọi món ăn và quản lý đơn hàng
• Thông tin nhà hàng (địa chỉ, giờ mở cửa, liên hệ)

Bạn có thể sử dụng các nút gợi ý bên dưới hoặc nhập tin nhắn trực tiếp!`

// Transcript is the append-only, ordered log of a session's entries.
type Transcript struct {
	mu      sync.RWMutex
	entries []chat.Entry
	notify  func(Event)
}

// NewTranscript returns a transcript seeded with the welcome entry.
func NewTranscript() *Transcript {
	t := &Transcript{}
	t.entries = []chat.Entry{chat.NewBotEntry(WelcomeText)}
	return t
}

// Append adds entry to the tail. Entries are never reordered or de-duplicated.
func (t *Transcript) Append(entry chat.Entry) {
	t.mu.Lock()
	t.entries = append(t.entries, entry)
	notify := t.notify
	t.mu.Unlock()

	if notify != nil {
		notify(Event{Type: EventEntry, Entry: &entry})
	}
}

// Clear drops every entry and re-seeds the welcome entry.
func (t *Transcript) Clear() {
	welcome := chat.NewBotEntry(WelcomeText)

	t.mu.Lock()
	t.entries = []chat.Entry{welcome}
	notify := t.notify
	t.mu.Unlock()

	if notify != nil {
		notify(Event{Type: EventReset, Entry: &welcome})
	}
}

// Entries returns a copy in insertion order.
func (t *Transcript) Entries() []chat.Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]chat.Entry(nil), t.entries...)
}

// Len 返回记录条数。
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

func (t *Transcript) setNotify(fn func(Event)) {
	t.mu.Lock()
	t.notify = fn
	t.mu.Unlock()
}
