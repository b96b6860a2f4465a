package chat

import (
	"time"

	"github.com/rs/xid"
)

// Sender 标识一条记录的发送方。
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// DishCard 随机器人回复一起展示的菜品卡片。
type DishCard struct {
	Name            string   `json:"name"`
	Price           *float64 `json:"price,omitempty"`
	Description     string   `json:"description,omitempty"`
	ImageURL        string   `json:"image_url,omitempty"`
	PreparationTime *int     `json:"preparation_time,omitempty"`
	Category        string   `json:"category,omitempty"`
}

// QuickReply 对话引擎附带的快捷回复按钮。
type QuickReply struct {
	Title   string `json:"title"`
	Payload string `json:"payload"`
}

// Entry is one rendered bubble of the transcript. Entries are never mutated after append.
type Entry struct {
	ID        string       `json:"id"`
	Text      string       `json:"text"`
	Sender    Sender       `json:"sender"`
	Timestamp time.Time    `json:"timestamp"`
	Image     string       `json:"image,omitempty"`
	Dishes    []DishCard   `json:"dishes,omitempty"`
	Buttons   []QuickReply `json:"buttons,omitempty"`
}

// NewUserEntry 创建一条用户消息记录。
func NewUserEntry(text string) Entry {
	return newEntry(SenderUser, text)
}

// NewBotEntry 创建一条机器人消息记录。
func NewBotEntry(text string) Entry {
	return newEntry(SenderBot, text)
}

func newEntry(sender Sender, text string) Entry {
	return Entry{
		ID:        xid.New().String(),
		Text:      text,
		Sender:    sender,
		Timestamp: time.Now().UTC(),
	}
}

// HasContent reports whether the entry carries anything renderable.
func (e Entry) HasContent() bool {
	return e.Text != "" || e.Image != "" || len(e.Dishes) > 0
}
