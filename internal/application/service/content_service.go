package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/application/dispatcher"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/application/port"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/domain/content"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/domain/entity"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/domain/event"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/i18n"
)

// Where a listing came from
const (
	SourceStore    = "store"
	SourceDefaults = "defaults"
)

var (
	ErrPageNotFound       = errors.New("page not found")
	ErrUnknownContentKind = errors.New("unknown content kind")
	ErrInvalidContent     = errors.New("invalid content document")
)

// Listing is a content list and the source it was read from
type Listing[T any] struct {
	Items  []T    `json:"items"`
	Source string `json:"source"`
}

// RenderedPage is a page with its Markdown body rendered for one locale
type RenderedPage struct {
	Slug   string `json:"slug"`
	Locale string `json:"locale"`
	Title  string `json:"title"`
	HTML   string `json:"html"`
	Source string `json:"source"`
}

// ContentConfig tunes store reads
type ContentConfig struct {
	// ReadTimeout bounds a store read before defaults are served
	ReadTimeout time.Duration
	// CacheTTL keeps successful store reads; zero disables caching
	CacheTTL time.Duration
}

// ContentService is the content-read collaborator. Reads never fail: an
// empty or failing store yields the embedded defaults.
type ContentService interface {
	Testimonials(ctx context.Context, query, category string) Listing[content.Testimonial]
	Milestones(ctx context.Context, query, category string) Listing[content.Milestone]
	ImpactMetrics(ctx context.Context) Listing[content.ImpactMetric]
	Page(ctx context.Context, slug string) (*RenderedPage, error)

	// Save stores an admin document, filling missing Hindi text when a
	// translator is configured
	Save(ctx context.Context, kind, id string, body json.RawMessage) (*entity.ContentDocument, error)
	Delete(ctx context.Context, kind, id string) error
	Invalidate(kind string)
}

type cacheEntry struct {
	docs     []*entity.ContentDocument
	loadedAt time.Time
}

type contentServiceImpl struct {
	repo       port.ContentRepository
	defaults   *content.Defaults
	markdown   port.MarkdownRenderer
	translator port.Translator
	dispatcher dispatcher.Dispatcher
	config     ContentConfig
	logger     Logger

	mu    sync.Mutex
	cache map[string]cacheEntry
	now   func() time.Time
}

// NewContentService creates a new ContentService. translator may be nil.
func NewContentService(
	repo port.ContentRepository,
	defaults *content.Defaults,
	markdown port.MarkdownRenderer,
	translator port.Translator,
	d dispatcher.Dispatcher,
	config ContentConfig,
	logger Logger,
) ContentService {
	if config.ReadTimeout <= 0 {
		config.ReadTimeout = 2 * time.Second
	}
	return &contentServiceImpl{
		repo:       repo,
		defaults:   defaults,
		markdown:   markdown,
		translator: translator,
		dispatcher: d,
		config:     config,
		logger:     logger,
		cache:      make(map[string]cacheEntry),
		now:        time.Now,
	}
}

// Testimonials lists testimonials matching query and category
func (s *contentServiceImpl) Testimonials(ctx context.Context, query, category string) Listing[content.Testimonial] {
	items := decodeAll(s, s.load(ctx, entity.ContentKindTestimonial), func(doc content.TestimonialDoc, stored *entity.ContentDocument) content.Testimonial {
		t := content.FillTestimonial(doc, s.defaults.TestimonialTemplate)
		t.ID = stored.ID
		if doc.Position == nil {
			t.Position = stored.Position
		}
		return t
	})

	out := Listing[content.Testimonial]{Items: items, Source: SourceStore}
	if len(items) == 0 {
		out = Listing[content.Testimonial]{Items: s.defaults.Testimonials, Source: SourceDefaults}
	}
	out.Items = content.Filter(out.Items, query, category)
	return out
}

// Milestones lists timeline entries matching query and category
func (s *contentServiceImpl) Milestones(ctx context.Context, query, category string) Listing[content.Milestone] {
	items := decodeAll(s, s.load(ctx, entity.ContentKindMilestone), func(doc content.MilestoneDoc, stored *entity.ContentDocument) content.Milestone {
		m := content.FillMilestone(doc, s.defaults.MilestoneTemplate)
		m.ID = stored.ID
		if doc.Position == nil {
			m.Position = stored.Position
		}
		return m
	})

	out := Listing[content.Milestone]{Items: items, Source: SourceStore}
	if len(items) == 0 {
		out = Listing[content.Milestone]{Items: s.defaults.Milestones, Source: SourceDefaults}
	}
	out.Items = content.Filter(out.Items, query, category)
	return out
}

// ImpactMetrics lists the impact counters
func (s *contentServiceImpl) ImpactMetrics(ctx context.Context) Listing[content.ImpactMetric] {
	items := decodeAll(s, s.load(ctx, entity.ContentKindImpactMetric), func(doc content.ImpactMetricDoc, stored *entity.ContentDocument) content.ImpactMetric {
		m := content.FillImpactMetric(doc, s.defaults.ImpactMetricTemplate)
		m.ID = stored.ID
		if doc.Position == nil {
			m.Position = stored.Position
		}
		return m
	})

	if len(items) == 0 {
		return Listing[content.ImpactMetric]{Items: append([]content.ImpactMetric(nil), s.defaults.ImpactMetrics...), Source: SourceDefaults}
	}
	return Listing[content.ImpactMetric]{Items: items, Source: SourceStore}
}

// Page renders the page for the request locale. A stored page is filled from
// the default page of the same slug.
func (s *contentServiceImpl) Page(ctx context.Context, slug string) (*RenderedPage, error) {
	locale := i18n.FromContext(ctx)
	def, hasDefault := s.defaults.Page(slug)
	def.Slug = slug

	page, source := def, SourceDefaults
	found := hasDefault
	for _, stored := range s.load(ctx, entity.ContentKindPage) {
		if stored.ID != slug {
			continue
		}
		var doc content.PageDoc
		if err := json.Unmarshal(stored.Body, &doc); err != nil {
			s.logger.Error("Skipping unreadable page", "slug", slug, "error", err)
			break
		}
		page, source, found = content.FillPage(doc, def), SourceStore, true
		page.Slug = slug
		break
	}
	if !found {
		return nil, ErrPageNotFound
	}

	html, err := s.markdown.Render(page.Body.In(locale.String()))
	if err != nil {
		return nil, fmt.Errorf("render page %s: %w", slug, err)
	}
	return &RenderedPage{
		Slug:   page.Slug,
		Locale: locale.String(),
		Title:  page.Title.In(locale.String()),
		HTML:   html,
		Source: source,
	}, nil
}

// load reads a kind from the cache or the store. Failures are logged and
// reported as no documents.
func (s *contentServiceImpl) load(ctx context.Context, kind string) []*entity.ContentDocument {
	now := s.now()
	if s.config.CacheTTL > 0 {
		s.mu.Lock()
		entry, ok := s.cache[kind]
		s.mu.Unlock()
		if ok && now.Sub(entry.loadedAt) < s.config.CacheTTL {
			return entry.docs
		}
	}

	readCtx, cancel := context.WithTimeout(ctx, s.config.ReadTimeout)
	defer cancel()

	docs, err := s.repo.List(readCtx, kind)
	if err != nil {
		s.logger.Error("Content store unavailable, serving defaults", "kind", kind, "error", err)
		return nil
	}

	if s.config.CacheTTL > 0 {
		s.mu.Lock()
		s.cache[kind] = cacheEntry{docs: docs, loadedAt: now}
		s.mu.Unlock()
	}
	return docs
}

// decodeAll decodes stored documents into filled items, skipping documents
// that do not parse.
func decodeAll[D any, T any](s *contentServiceImpl, docs []*entity.ContentDocument, fill func(D, *entity.ContentDocument) T) []T {
	items := make([]T, 0, len(docs))
	for _, stored := range docs {
		var doc D
		if err := json.Unmarshal(stored.Body, &doc); err != nil {
			s.logger.Error("Skipping unreadable content document", "kind", stored.Kind, "id", stored.ID, "error", err)
			continue
		}
		items = append(items, fill(doc, stored))
	}
	return items
}

// Invalidate drops the cached documents of kind
func (s *contentServiceImpl) Invalidate(kind string) {
	s.mu.Lock()
	delete(s.cache, kind)
	s.mu.Unlock()
}

// Save validates body against the kind's document type and upserts it
func (s *contentServiceImpl) Save(ctx context.Context, kind, id string, body json.RawMessage) (*entity.ContentDocument, error) {
	doc, err := newDocument(kind)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidContent, err)
	}

	id = strings.TrimSpace(id)
	if id == "" {
		if kind == entity.ContentKindPage {
			return nil, fmt.Errorf("%w: a page needs a slug", ErrInvalidContent)
		}
		id = uuid.NewString()
	}

	s.fillHindi(ctx, kind, id, doc)

	normalized, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode content: %w", err)
	}

	now := s.now().UTC()
	stored := &entity.ContentDocument{
		ID:        id,
		Kind:      kind,
		Position:  documentPosition(doc),
		Body:      normalized,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Upsert(ctx, stored); err != nil {
		return nil, fmt.Errorf("save content: %w", err)
	}

	s.changed(ctx, kind, id, "saved")
	return stored, nil
}

// Delete removes an admin document
func (s *contentServiceImpl) Delete(ctx context.Context, kind, id string) error {
	if _, err := newDocument(kind); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, kind, id); err != nil {
		return fmt.Errorf("delete content: %w", err)
	}
	s.changed(ctx, kind, id, "deleted")
	return nil
}

func (s *contentServiceImpl) changed(ctx context.Context, kind, id, action string) {
	s.Invalidate(kind)
	s.logger.Info("Content changed", "kind", kind, "id", id, "action", action)
	if s.dispatcher != nil {
		s.dispatcher.DispatchAsync(ctx, event.NewEvent(event.TypeContentChanged, id, map[string]interface{}{
			"kind":   kind,
			"action": action,
		}))
	}
}

// fillHindi asks the translator for every text that has English only. A
// translator failure keeps the English fallback.
func (s *contentServiceImpl) fillHindi(ctx context.Context, kind, id string, doc any) {
	if s.translator == nil {
		return
	}
	gaps := hindiGaps(doc)
	if len(gaps) == 0 {
		return
	}

	texts := make([]string, len(gaps))
	for i, t := range gaps {
		texts[i] = t.EN
	}
	translated, err := s.translator.TranslateToHindi(ctx, texts)
	if err != nil || len(translated) != len(gaps) {
		s.logger.Error("Hindi translation unavailable, keeping English", "kind", kind, "id", id, "error", err)
		return
	}
	for i, t := range gaps {
		t.HI = translated[i]
	}
}

func newDocument(kind string) (any, error) {
	switch kind {
	case entity.ContentKindTestimonial:
		return &content.TestimonialDoc{}, nil
	case entity.ContentKindMilestone:
		return &content.MilestoneDoc{}, nil
	case entity.ContentKindImpactMetric:
		return &content.ImpactMetricDoc{}, nil
	case entity.ContentKindPage:
		return &content.PageDoc{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownContentKind, kind)
	}
}

func hindiGaps(doc any) []*content.Text {
	var texts []*content.Text
	switch d := doc.(type) {
	case *content.TestimonialDoc:
		texts = []*content.Text{d.Name, d.Role, d.Location, d.Quote}
	case *content.MilestoneDoc:
		texts = []*content.Text{d.Title, d.Description}
	case *content.ImpactMetricDoc:
		texts = []*content.Text{d.Label}
	case *content.PageDoc:
		texts = []*content.Text{d.Title, d.Body}
	}

	gaps := texts[:0]
	for _, t := range texts {
		if t != nil && strings.TrimSpace(t.EN) != "" && strings.TrimSpace(t.HI) == "" {
			gaps = append(gaps, t)
		}
	}
	return gaps
}

func documentPosition(doc any) int {
	var pos *int
	switch d := doc.(type) {
	case *content.TestimonialDoc:
		pos = d.Position
	case *content.MilestoneDoc:
		pos = d.Position
	case *content.ImpactMetricDoc:
		pos = d.Position
	}
	if pos == nil {
		return 0
	}
	return *pos
}
