package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/application/flow"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/application/service"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/i18n"
)

// Services are the application services behind the HTTP adapter
type Services struct {
	Wizards     service.WizardService
	Submissions service.SubmissionService
	Receipts    service.ReceiptService
	Content     service.ContentService
	Flows       *flow.Catalog
	Messages    *i18n.Catalog
	// Workers is optional; /health reports on it when set
	Workers WorkerStatus
}

// WorkerStatus reports on the background workers
type WorkerStatus interface {
	IsRunning() bool
	GetWorkerCount() int
}

// ImpactConfig tunes the animated impact counter stream
type ImpactConfig struct {
	Duration time.Duration
	Interval time.Duration
}

// Handlers contains all HTTP request handlers
type Handlers struct {
	wizards     service.WizardService
	submissions service.SubmissionService
	receipts    service.ReceiptService
	content     service.ContentService
	flows       *flow.Catalog
	messages    *i18n.Catalog
	workers     WorkerStatus
	impact      ImpactConfig
	version     string
	logger      Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(services Services, impact ImpactConfig, version string, logger Logger) *Handlers {
	if impact.Duration <= 0 {
		impact.Duration = 2 * time.Second
	}
	if impact.Interval <= 0 {
		impact.Interval = 50 * time.Millisecond
	}
	return &Handlers{
		wizards:     services.Wizards,
		submissions: services.Submissions,
		receipts:    services.Receipts,
		content:     services.Content,
		flows:       services.Flows,
		messages:    services.Messages,
		workers:     services.Workers,
		impact:      impact,
		version:     version,
		logger:      logger,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string         `json:"status"`
	Timestamp string         `json:"timestamp"`
	Version   string         `json:"version"`
	Workers   *WorkersHealth `json:"workers,omitempty"`
}

// WorkersHealth is the background worker part of the health check
type WorkersHealth struct {
	Running bool `json:"running"`
	Count   int  `json:"count"`
}

// StepResponse describes one wizard step for rendering
type StepResponse struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	RequiredFields []string `json:"required_fields"`
	OptionalFields []string `json:"optional_fields"`
	Optional       bool     `json:"optional"`
	AcceptsUploads bool     `json:"accepts_uploads"`
}

// UploadPolicyResponse describes the accepted attachments
type UploadPolicyResponse struct {
	AllowedTypes []string `json:"allowed_types"`
	MaxBytes     int64    `json:"max_bytes"`
	MaxFiles     int      `json:"max_files"`
}

// FlowResponse describes a wizard flow
type FlowResponse struct {
	Name   string                `json:"name"`
	Title  string                `json:"title"`
	Steps  []StepResponse        `json:"steps"`
	Upload *UploadPolicyResponse `json:"upload"`
}

// LocaleRequest is the body of PUT /api/v1/locale
type LocaleRequest struct {
	Locale string `json:"locale" binding:"required"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   h.version,
	}
	if h.workers != nil {
		resp.Workers = &WorkersHealth{Running: h.workers.IsRunning(), Count: h.workers.GetWorkerCount()}
		if !resp.Workers.Running {
			resp.Status = "degraded"
		}
	}
	ok(c, http.StatusOK, resp)
}

// ListFlows handles GET /api/v1/flows
func (h *Handlers) ListFlows(c *gin.Context) {
	locale := i18n.FromContext(c.Request.Context())
	policy := h.flows.Policy()

	var flows []FlowResponse
	for _, name := range h.flows.Names() {
		def, err := h.flows.Get(name)
		if err != nil {
			continue
		}
		resp := FlowResponse{
			Name:  name,
			Title: h.messages.Message(locale, "flows."+name+".title", nil),
			Upload: &UploadPolicyResponse{
				AllowedTypes: policy.AllowedTypes,
				MaxBytes:     policy.MaxBytes,
				MaxFiles:     policy.MaxFiles,
			},
		}
		for _, step := range def.Steps {
			resp.Steps = append(resp.Steps, StepResponse{
				ID:             step.ID,
				Title:          h.messages.Message(locale, "flows."+name+".steps."+step.ID, nil),
				RequiredFields: step.RequiredFields,
				OptionalFields: step.Fields,
				Optional:       step.Optional,
				AcceptsUploads: step.AcceptsUploads,
			})
		}
		flows = append(flows, resp)
	}

	ok(c, http.StatusOK, flows)
}

// Messages handles GET /api/v1/i18n/messages. ?prefix= narrows the table.
func (h *Handlers) Messages(c *gin.Context) {
	locale := i18n.FromContext(c.Request.Context())
	ok(c, http.StatusOK, gin.H{
		"locale":   locale,
		"messages": h.messages.Table(locale, c.Query("prefix")),
	})
}

// SetLocale handles PUT /api/v1/locale
func (h *Handlers) SetLocale(c *gin.Context) {
	var req LocaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, KindValidation, h.translate(c, "http.bad_request"), nil)
		return
	}

	locale, found := i18n.Parse(req.Locale)
	if !found {
		fail(c, http.StatusBadRequest, KindValidation, h.translate(c, "http.unsupported_locale"),
			map[string]string{"locale": h.translate(c, "http.unsupported_locale")})
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(LocaleCookie, locale.String(), int((365 * 24 * time.Hour).Seconds()), "/", "", false, false)
	c.Header("Content-Language", locale.String())
	ok(c, http.StatusOK, gin.H{"locale": locale})
}
