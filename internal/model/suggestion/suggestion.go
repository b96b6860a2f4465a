package suggestion

// Suggestion is a canned prompt shown under the chat input. Clicking it sends Text verbatim.
type Suggestion struct {
	Category string `json:"category"`
	Text     string `json:"text"`
	Color    string `json:"color"`
}

const (
	categoryGreeting = "👋 Chào hỏi"
	categoryMenu     = "🍽️ Thực đơn"
	categoryBooking  = "🪑 Đặt bàn"
	categoryOrder    = "🛒 Gọi món"
	categoryPayment  = "💳 Thanh toán"
	categoryInfo     = "ℹ️ Thông tin"
	categoryDish     = "🍜 Món ăn"
	categoryConfirm  = "✅ Xác nhận"
	categoryDecline  = "❌ Từ chối"
	categoryGoodbye  = "👋 Tạm biệt"
)

var categoryColors = map[string]string{
	categoryGreeting: "#4CAF50",
	categoryMenu:     "#FF9800",
	categoryBooking:  "#2196F3",
	categoryOrder:    "#9C27B0",
	categoryPayment:  "#795548",
	categoryInfo:     "#607D8B",
	categoryDish:     "#E91E63",
	categoryConfirm:  "#4CAF50",
	categoryDecline:  "#F44336",
	categoryGoodbye:  "#9E9E9E",
}

// 与 NLU 训练样例保持一致，修改时同步 rasa 数据。
var seedTexts = []struct {
	category string
	texts    []string
}{
	{categoryGreeting, []string{"Xin chào", "Bạn có thể giúp tôi không"}},
	{categoryMenu, []string{
		"Cho tôi xem thực đơn", "Có những món gì", "Món nổi bật", "Bạn recommend cái gì",
		"Món được ưa chuộng", "Món đặc biệt", "Signature dish", "Có món gì ở đây",
	}},
	{categoryBooking, []string{
		"Tôi muốn đặt bàn", "Đặt bàn cho 2 người", "Đặt bàn 4 người ngày 07/01/2026 lúc 19:00",
		"Có bàn trống không", "Đặt bàn hôm nay 19:30", "Đặt chỗ cho gia đình", "Hủy đặt bàn", "Xem đặt bàn",
	}},
	{categoryOrder, []string{
		"Tôi muốn gọi món", "Gọi đồ ăn", "Đặt món ăn", "Xem đơn hàng", "Xác nhận đơn hàng",
		"Thêm món vào đơn", "Sửa đơn hàng", "Hủy đơn hàng",
	}},
	{categoryPayment, []string{"Tôi muốn thanh toán", "Thanh toán đơn hàng", "Thanh toán tiền mặt"}},
	{categoryInfo, []string{
		"Giờ mở cửa", "Địa chỉ nhà hàng", "Số điện thoại", "Có khuyến mãi gì không", "Thông tin liên hệ",
	}},
	{categoryDish, []string{
		"Tôi muốn ăn Phở Bò Tái", "Gọi Bánh Mì Thịt Nướng", "Cho tôi 1 ly Cà Phê Sữa Đá",
		"Thêm Bún Bò Huế", "Gọi Cơm Tấm Sườn Nướng", "Cho tôi Gỏi Cuốn Tôm Thịt",
	}},
	{categoryConfirm, []string{"Có, tôi đồng ý", "Được rồi", "Xác nhận"}},
	{categoryDecline, []string{"Không, cảm ơn", "Hủy bỏ"}},
	{categoryGoodbye, []string{"Cảm ơn bạn", "Tạm biệt"}},
}

// Seed returns the default suggestion catalog in display order.
func Seed() []Suggestion {
	items := make([]Suggestion, 0, 48)
	for _, group := range seedTexts {
		for _, text := range group.texts {
			items = append(items, Suggestion{
				Category: group.category,
				Text:     text,
				Color:    categoryColors[group.category],
			})
		}
	}
	return items
}
