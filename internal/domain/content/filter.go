package content

import "strings"

// Searchable is implemented by content that can be filtered.
type Searchable interface {
	SearchText() []string
	CategoryName() string
}

// Filter returns the items matching query and category. Matching is
// case-insensitive over both languages; an empty query or the category "all"
// (or "") matches everything. Order is preserved.
func Filter[T Searchable](items []T, query, category string) []T {
	q := strings.ToLower(strings.TrimSpace(query))
	cat := strings.ToLower(strings.TrimSpace(category))
	if cat == "all" {
		cat = ""
	}

	out := make([]T, 0, len(items))
	for _, item := range items {
		if cat != "" && strings.ToLower(item.CategoryName()) != cat {
			continue
		}
		if q != "" && !matches(item.SearchText(), q) {
			continue
		}
		out = append(out, item)
	}
	return out
}

func matches(texts []string, q string) bool {
	for _, t := range texts {
		if strings.Contains(strings.ToLower(t), q) {
			return true
		}
	}
	return false
}

func (t Testimonial) SearchText() []string {
	return []string{t.Name.EN, t.Name.HI, t.Role.EN, t.Role.HI, t.Location.EN, t.Location.HI, t.Quote.EN, t.Quote.HI}
}

func (t Testimonial) CategoryName() string { return t.Category }

func (m Milestone) SearchText() []string {
	return []string{m.Title.EN, m.Title.HI, m.Description.EN, m.Description.HI}
}

func (m Milestone) CategoryName() string { return m.Category }
