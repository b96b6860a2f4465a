package dialogue

import (
	"strings"

	"github.com/samber/lo"

	"github.com/huyng1801/restobot/backend/internal/model/chat"
)

// DefaultReplyText is shown when a backend answered but produced nothing renderable.
const DefaultReplyText = "Xin lỗi, tôi không hiểu. Bạn có thể thử hỏi cách khác không?"

// Frame is one element of the dialogue engine's webhook response.
type Frame struct {
	RecipientID string            `json:"recipient_id,omitempty"`
	Text        string            `json:"text,omitempty"`
	Image       string            `json:"image,omitempty"`
	Buttons     []chat.QuickReply `json:"buttons,omitempty"`
	Custom      *CustomPayload    `json:"custom,omitempty"`
}

// CustomPayload 对话引擎自定义负载，目前只关心菜品列表。
type CustomPayload struct {
	Dishes []chat.DishCard `json:"dishes,omitempty"`
}

// Dishes 返回帧中携带的菜品。
func (f Frame) Dishes() []chat.DishCard {
	if f.Custom == nil {
		return nil
	}
	return f.Custom.Dishes
}

// Empty reports a frame with no text, no image and no dishes.
func (f Frame) Empty() bool {
	return f.Text == "" && f.Image == "" && len(f.Dishes()) == 0
}

func (f Frame) entry() chat.Entry {
	entry := chat.NewBotEntry(f.Text)
	entry.Image = f.Image
	entry.Dishes = f.Dishes()
	entry.Buttons = f.Buttons
	return entry
}

// Reply is the normalized backend response: exactly one of Flat, Multi or WithAttachments.
type Reply interface {
	// Entries 生成需要追加到会话记录中的机器人消息。
	Entries() []chat.Entry
	// Text 返回所有文本的拼接，用于支付关键字检测。
	Text() string
	isReply()
}

// Flat is a single text (and optional image) reply.
type Flat struct {
	Message string
	Image   string
	Buttons []chat.QuickReply
}

// Multi is an ordered list of non-empty frames, one entry per frame.
type Multi struct {
	Frames []Frame
}

// WithAttachments is a single frame carrying dish cards.
type WithAttachments struct {
	Frame Frame
}

func (Flat) isReply()            {}
func (Multi) isReply()           {}
func (WithAttachments) isReply() {}

// Entries 单条回复始终生成一条记录。
func (r Flat) Entries() []chat.Entry {
	entry := chat.NewBotEntry(r.Message)
	entry.Image = r.Image
	entry.Buttons = r.Buttons
	return []chat.Entry{entry}
}

// Text 返回回复文本。
func (r Flat) Text() string { return r.Message }

// Entries keeps the backend order and skips empty frames.
func (r Multi) Entries() []chat.Entry {
	return lo.FilterMap(r.Frames, func(frame Frame, _ int) (chat.Entry, bool) {
		if frame.Empty() {
			return chat.Entry{}, false
		}
		return frame.entry(), true
	})
}

// Text joins the frame texts with a blank line.
func (r Multi) Text() string {
	texts := lo.FilterMap(r.Frames, func(frame Frame, _ int) (string, bool) {
		return frame.Text, frame.Text != ""
	})
	return strings.Join(texts, "\n\n")
}

// Entries 菜品帧合并为一条记录。
func (r WithAttachments) Entries() []chat.Entry {
	return []chat.Entry{r.Frame.entry()}
}

// Text 返回帧文本。
func (r WithAttachments) Text() string { return r.Frame.Text }

// Resolve turns raw webhook frames into a Reply. Empty frames are dropped; no frames at
// all degrade to a Flat reply with DefaultReplyText.
func Resolve(frames []Frame) Reply {
	content := lo.Filter(frames, func(frame Frame, _ int) bool {
		return !frame.Empty()
	})

	switch len(content) {
	case 0:
		return Flat{Message: DefaultReplyText}
	case 1:
		frame := content[0]
		if len(frame.Dishes()) > 0 {
			return WithAttachments{Frame: frame}
		}
		return Flat{Message: frame.Text, Image: frame.Image, Buttons: frame.Buttons}
	default:
		return Multi{Frames: content}
	}
}
