package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/domain/metric"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/i18n"
)

// ImpactMetricView is an impact metric in the request locale
type ImpactMetricView struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Target int64  `json:"target"`
	Suffix string `json:"suffix,omitempty"`
	Icon   string `json:"icon,omitempty"`
}

// ImpactFrame is one server-sent frame of the impact counters
type ImpactFrame struct {
	ElapsedMS int64            `json:"elapsed_ms"`
	Values    map[string]int64 `json:"values"`
	Done      bool             `json:"done"`
}

// ListTestimonials handles GET /api/v1/content/testimonials
func (h *Handlers) ListTestimonials(c *gin.Context) {
	ok(c, http.StatusOK, h.content.Testimonials(c.Request.Context(), c.Query("q"), c.Query("category")))
}

// ListMilestones handles GET /api/v1/content/milestones
func (h *Handlers) ListMilestones(c *gin.Context) {
	ok(c, http.StatusOK, h.content.Milestones(c.Request.Context(), c.Query("q"), c.Query("category")))
}

// ListImpactMetrics handles GET /api/v1/content/impact-metrics
func (h *Handlers) ListImpactMetrics(c *gin.Context) {
	ok(c, http.StatusOK, h.content.ImpactMetrics(c.Request.Context()))
}

// GetPage handles GET /api/v1/pages/:slug
func (h *Handlers) GetPage(c *gin.Context) {
	page, err := h.content.Page(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, http.StatusOK, page)
}

// SaveContent handles POST /api/v1/admin/content/:kind and
// PUT /api/v1/admin/content/:kind/:id
func (h *Handlers) SaveContent(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil || !json.Valid(body) {
		fail(c, http.StatusBadRequest, KindValidation, h.translate(c, "http.bad_request"), nil)
		return
	}

	doc, err := h.content.Save(c.Request.Context(), c.Param("kind"), c.Param("id"), body)
	if err != nil {
		h.respondError(c, err)
		return
	}

	status := http.StatusOK
	if c.Request.Method == http.MethodPost {
		status = http.StatusCreated
	}
	h.logger.Info("Content saved",
		"kind", doc.Kind,
		"id", doc.ID,
		"editor", c.GetString(adminSubjectKey),
	)
	ok(c, status, doc)
}

// DeleteContent handles DELETE /api/v1/admin/content/:kind/:id
func (h *Handlers) DeleteContent(c *gin.Context) {
	if err := h.content.Delete(c.Request.Context(), c.Param("kind"), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ImpactStream handles GET /api/v1/impact/stream. It sends a "metrics" event
// with the counters, then "frame" events driven by one ticker until every
// counter has reached its target or the client goes away.
func (h *Handlers) ImpactStream(c *gin.Context) {
	ctx := c.Request.Context()
	locale := i18n.FromContext(ctx)
	listing := h.content.ImpactMetrics(ctx)

	views := make([]ImpactMetricView, 0, len(listing.Items))
	counters := make(map[string]metric.Counter, len(listing.Items))
	var driver metric.Counter
	for _, m := range listing.Items {
		views = append(views, ImpactMetricView{
			ID:     m.ID,
			Label:  m.Label.In(locale.String()),
			Target: m.Value,
			Suffix: m.Suffix,
			Icon:   m.Icon,
		})
		counter := metric.Counter{Target: m.Value, Duration: h.impact.Duration}
		counters[m.ID] = counter
		// Every counter shares the duration, so the largest one finishes last
		if counter.Target > driver.Target {
			driver = counter
		}
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	c.SSEvent("metrics", views)
	c.Writer.Flush()

	if driver.Target == 0 {
		c.SSEvent("frame", ImpactFrame{Values: frameValues(counters, 0), Done: true})
		c.Writer.Flush()
		return
	}

	ticks, stop := metric.Ticker(h.impact.Interval)
	defer stop()

	err := driver.Run(ctx, ticks, func(f metric.Frame) bool {
		c.SSEvent("frame", ImpactFrame{
			ElapsedMS: f.ElapsedMS,
			Values:    frameValues(counters, f.Elapsed),
			Done:      f.Done,
		})
		c.Writer.Flush()
		return true
	})
	if err != nil {
		h.logger.Info("Impact stream ended early", "error", err)
	}
}

func frameValues(counters map[string]metric.Counter, elapsed time.Duration) map[string]int64 {
	values := make(map[string]int64, len(counters))
	for id, counter := range counters {
		values[id] = counter.ValueAt(elapsed)
	}
	return values
}
