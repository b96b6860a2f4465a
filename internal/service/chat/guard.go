package chat

import (
	"github.com/huyng1801/restobot/backend/internal/model/auth"
	"github.com/huyng1801/restobot/backend/internal/model/chat"
)

// LoginPromptText 未登录时写入会话的提示。
const LoginPromptText = "🔒 Bạn cần đăng nhập để sử dụng chatbot!\n\nVui lòng đăng nhập trước khi tiếp tục."

// Guard refuses anonymous callers. It only reads sc and never touches the network.
// On rejection the login prompt is appended to the session transcript.
func Guard(session *Session, sc *auth.SessionContext) (chat.Entry, bool) {
	if sc.Authenticated() {
		return chat.Entry{}, true
	}
	prompt := chat.NewBotEntry(LoginPromptText)
	session.Transcript().Append(prompt)
	return prompt, false
}
