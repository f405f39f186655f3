package content

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// Defaults is the built-in content served when the store is empty or failing.
// The Template entries fill fields missing from stored documents.
type Defaults struct {
	TestimonialTemplate  Testimonial    `yaml:"testimonial_template"`
	MilestoneTemplate    Milestone      `yaml:"milestone_template"`
	ImpactMetricTemplate ImpactMetric   `yaml:"impact_metric_template"`
	Testimonials         []Testimonial  `yaml:"testimonials"`
	Milestones           []Milestone    `yaml:"milestones"`
	ImpactMetrics        []ImpactMetric `yaml:"impact_metrics"`
	Pages                []Page         `yaml:"pages"`
}

// ParseDefaults decodes a YAML defaults document.
func ParseDefaults(data []byte) (*Defaults, error) {
	var d Defaults
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to parse content defaults: %w", err)
	}
	for i, p := range d.Pages {
		if p.Slug == "" {
			return nil, fmt.Errorf("page %d has no slug", i)
		}
	}
	sortByPosition(d.Testimonials, func(t Testimonial) int { return t.Position })
	sortByPosition(d.Milestones, func(m Milestone) int { return m.Position })
	sortByPosition(d.ImpactMetrics, func(m ImpactMetric) int { return m.Position })
	return &d, nil
}

// Page returns the default page with slug.
func (d *Defaults) Page(slug string) (Page, bool) {
	for _, p := range d.Pages {
		if p.Slug == slug {
			return p, true
		}
	}
	return Page{}, false
}

func sortByPosition[T any](items []T, pos func(T) int) {
	sort.SliceStable(items, func(i, j int) bool { return pos(items[i]) < pos(items[j]) })
}
