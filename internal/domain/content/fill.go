package content

import "strings"

func fillString(v *string, def string) string {
	if v == nil || strings.TrimSpace(*v) == "" {
		return def
	}
	return *v
}

func fillInt(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

// fillText keeps a stored text as a unit: a document that names the text in
// either language never borrows the other language from the default.
func fillText(v *Text, def Text) Text {
	if v == nil || v.IsZero() {
		return def
	}
	return *v
}

// FillTestimonial merges doc over def.
func FillTestimonial(doc TestimonialDoc, def Testimonial) Testimonial {
	rating := fillInt(doc.Rating, def.Rating)
	if rating < 1 || rating > 5 {
		rating = def.Rating
	}
	return Testimonial{
		ID:       fillString(doc.ID, def.ID),
		Name:     fillText(doc.Name, def.Name),
		Role:     fillText(doc.Role, def.Role),
		Location: fillText(doc.Location, def.Location),
		Quote:    fillText(doc.Quote, def.Quote),
		Category: fillString(doc.Category, def.Category),
		ImageURL: fillString(doc.ImageURL, def.ImageURL),
		Rating:   rating,
		Position: fillInt(doc.Position, def.Position),
	}
}

// FillMilestone merges doc over def.
func FillMilestone(doc MilestoneDoc, def Milestone) Milestone {
	return Milestone{
		ID:          fillString(doc.ID, def.ID),
		Year:        fillInt(doc.Year, def.Year),
		Title:       fillText(doc.Title, def.Title),
		Description: fillText(doc.Description, def.Description),
		Category:    fillString(doc.Category, def.Category),
		Icon:        fillString(doc.Icon, def.Icon),
		Position:    fillInt(doc.Position, def.Position),
	}
}

// FillImpactMetric merges doc over def. Negative values fall back.
func FillImpactMetric(doc ImpactMetricDoc, def ImpactMetric) ImpactMetric {
	value := def.Value
	if doc.Value != nil && *doc.Value >= 0 {
		value = *doc.Value
	}
	return ImpactMetric{
		ID:       fillString(doc.ID, def.ID),
		Label:    fillText(doc.Label, def.Label),
		Value:    value,
		Suffix:   fillString(doc.Suffix, def.Suffix),
		Icon:     fillString(doc.Icon, def.Icon),
		Position: fillInt(doc.Position, def.Position),
	}
}

// FillPage merges doc over def.
func FillPage(doc PageDoc, def Page) Page {
	return Page{
		Slug:  fillString(doc.Slug, def.Slug),
		Title: fillText(doc.Title, def.Title),
		Body:  fillText(doc.Body, def.Body),
	}
}
