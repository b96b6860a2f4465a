package suggestion

import "github.com/samber/lo"

// Store exposes the suggestion catalog for handlers and new sessions.
type Store interface {
	List() []Suggestion
	At(index int) (Suggestion, bool)
	Categories() []string
}

// MemoryStore implements Store with an in-memory slice.
type MemoryStore struct {
	items []Suggestion
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied suggestions.
func NewMemoryStore(items []Suggestion) *MemoryStore {
	return &MemoryStore{items: append([]Suggestion(nil), items...)}
}

// List returns a copy of the catalog.
func (s *MemoryStore) List() []Suggestion {
	return append([]Suggestion(nil), s.items...)
}

// At looks up a suggestion by catalog position.
func (s *MemoryStore) At(index int) (Suggestion, bool) {
	if index < 0 || index >= len(s.items) {
		return Suggestion{}, false
	}
	return s.items[index], true
}

// Categories 按首次出现顺序返回分类。
func (s *MemoryStore) Categories() []string {
	return lo.Uniq(lo.Map(s.items, func(item Suggestion, _ int) string {
		return item.Category
	}))
}
