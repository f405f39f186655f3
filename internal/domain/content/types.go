// Package content models the display-only content kinds (testimonials,
// milestones, impact metrics, pages). Stored documents may omit any field;
// each kind has a Fill function that merges a document over its defaults.
package content

import "strings"

// Text is a bilingual string.
type Text struct {
	EN string `json:"en" yaml:"en"`
	HI string `json:"hi,omitempty" yaml:"hi"`
}

// In returns the text for locale, falling back to English.
func (t Text) In(locale string) string {
	if locale == "hi" && strings.TrimSpace(t.HI) != "" {
		return t.HI
	}
	return t.EN
}

// IsZero reports whether both languages are empty.
func (t Text) IsZero() bool {
	return strings.TrimSpace(t.EN) == "" && strings.TrimSpace(t.HI) == ""
}

// Testimonial is a filled testimonial.
type Testimonial struct {
	ID       string `json:"id" yaml:"id"`
	Name     Text   `json:"name" yaml:"name"`
	Role     Text   `json:"role" yaml:"role"`
	Location Text   `json:"location" yaml:"location"`
	Quote    Text   `json:"quote" yaml:"quote"`
	Category string `json:"category" yaml:"category"`
	ImageURL string `json:"image_url" yaml:"image_url"`
	Rating   int    `json:"rating" yaml:"rating"`
	Position int    `json:"position" yaml:"position"`
}

// TestimonialDoc is a testimonial as stored; every field is optional.
type TestimonialDoc struct {
	ID       *string `json:"id,omitempty"`
	Name     *Text   `json:"name,omitempty"`
	Role     *Text   `json:"role,omitempty"`
	Location *Text   `json:"location,omitempty"`
	Quote    *Text   `json:"quote,omitempty"`
	Category *string `json:"category,omitempty"`
	ImageURL *string `json:"image_url,omitempty"`
	Rating   *int    `json:"rating,omitempty"`
	Position *int    `json:"position,omitempty"`
}

// Milestone is a filled timeline entry.
type Milestone struct {
	ID          string `json:"id" yaml:"id"`
	Year        int    `json:"year" yaml:"year"`
	Title       Text   `json:"title" yaml:"title"`
	Description Text   `json:"description" yaml:"description"`
	Category    string `json:"category" yaml:"category"`
	Icon        string `json:"icon" yaml:"icon"`
	Position    int    `json:"position" yaml:"position"`
}

// MilestoneDoc is a milestone as stored.
type MilestoneDoc struct {
	ID          *string `json:"id,omitempty"`
	Year        *int    `json:"year,omitempty"`
	Title       *Text   `json:"title,omitempty"`
	Description *Text   `json:"description,omitempty"`
	Category    *string `json:"category,omitempty"`
	Icon        *string `json:"icon,omitempty"`
	Position    *int    `json:"position,omitempty"`
}

// ImpactMetric is a counter shown on the impact section.
type ImpactMetric struct {
	ID       string `json:"id" yaml:"id"`
	Label    Text   `json:"label" yaml:"label"`
	Value    int64  `json:"value" yaml:"value"`
	Suffix   string `json:"suffix" yaml:"suffix"`
	Icon     string `json:"icon" yaml:"icon"`
	Position int    `json:"position" yaml:"position"`
}

// ImpactMetricDoc is an impact metric as stored.
type ImpactMetricDoc struct {
	ID       *string `json:"id,omitempty"`
	Label    *Text   `json:"label,omitempty"`
	Value    *int64  `json:"value,omitempty"`
	Suffix   *string `json:"suffix,omitempty"`
	Icon     *string `json:"icon,omitempty"`
	Position *int    `json:"position,omitempty"`
}

// Page is a static or legal page with a Markdown body.
type Page struct {
	Slug  string `json:"slug" yaml:"slug"`
	Title Text   `json:"title" yaml:"title"`
	Body  Text   `json:"body" yaml:"body"`
}

// PageDoc is a page as stored.
type PageDoc struct {
	Slug  *string `json:"slug,omitempty"`
	Title *Text   `json:"title,omitempty"`
	Body  *Text   `json:"body,omitempty"`
}
