package suggestion

import (
	"github.com/samber/lo"
	"github.com/samber/lo/mutable"

	"github.com/huyng1801/restobot/backend/internal/model/suggestion"
)

// Shuffle returns a uniformly random permutation of catalog. The input is left untouched.
func Shuffle(catalog []suggestion.Suggestion) []suggestion.Suggestion {
	shuffled := append([]suggestion.Suggestion(nil), catalog...)
	mutable.Shuffle(shuffled)
	return shuffled
}

// Texts 提取建议文本。
func Texts(items []suggestion.Suggestion) []string {
	return lo.Map(items, func(item suggestion.Suggestion, _ int) string {
		return item.Text
	})
}
