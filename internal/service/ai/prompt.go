package ai

import (
	"strings"

	"github.com/huyng1801/restobot/backend/internal/model/auth"
)

const conciergeRules = `Bạn là RestoBot, trợ lý ảo của nhà hàng Việt Nam.
Bạn chỉ trả lời các câu hỏi về thực đơn, đặt bàn, gọi món, thanh toán và thông tin nhà hàng.

Quy tắc:
- Luôn trả lời bằng tiếng Việt, ngắn gọn và lịch sự.
- Không tự bịa giá món ăn, số bàn trống hay mã đơn hàng; nếu không chắc, hãy đề nghị khách thử lại sau khi hệ thống đặt bàn hoạt động trở lại.
- Không thực hiện thanh toán; chỉ hướng dẫn khách mở mục thanh toán.
- Nếu câu hỏi ngoài phạm vi nhà hàng, từ chối nhẹ nhàng và gợi ý các việc bạn có thể giúp.`

// BuildSystemPrompt 构造系统提示词，有用户信息时附上称呼。
func BuildSystemPrompt(user *auth.UserInfo) string {
	if user == nil {
		return conciergeRules
	}

	name := strings.TrimSpace(user.FullName)
	if name == "" {
		name = strings.TrimSpace(user.Username)
	}
	if name == "" {
		return conciergeRules
	}

	var builder strings.Builder
	builder.WriteString(conciergeRules)
	builder.WriteString("\n\nKhách hàng hiện tại: ")
	builder.WriteString(name)
	builder.WriteString(". Hãy xưng hô thân thiện với khách.")
	return builder.String()
}
