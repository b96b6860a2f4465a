package payment

import (
	"regexp"
	"strings"

	"github.com/Southclaws/opt"
)

// triggerKeywords 出现任意一个即认为回复与支付流程相关。
var triggerKeywords = []string{
	"thanh toán",
	"payment",
	"đã hoàn thành",
	"xác nhận đơn hàng",
}

var orderIDPattern = regexp.MustCompile(`#(\d+)`)

// HasPaymentTrigger reports whether text mentions one of the payment keywords.
func HasPaymentTrigger(text string) bool {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return false
	}
	for _, keyword := range triggerKeywords {
		if strings.Contains(normalized, keyword) {
			return true
		}
	}
	return false
}

// ExtractOrderID returns the digits of the first "#<digits>" in text.
// It is a heuristic: any "#123" in unrelated text matches too.
func ExtractOrderID(text string) opt.Optional[string] {
	match := orderIDPattern.FindStringSubmatch(text)
	if len(match) < 2 {
		return opt.NewEmpty[string]()
	}
	return opt.New(match[1])
}

// Detect combines the keyword check with order id extraction.
func Detect(text string) opt.Optional[string] {
	if !HasPaymentTrigger(text) {
		return opt.NewEmpty[string]()
	}
	return ExtractOrderID(text)
}
