package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/application/port"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/application/service"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/domain/entity"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/domain/upload"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/domain/wizard"
)

// AttachmentRequest is an attachment sent inline with a submission
type AttachmentRequest struct {
	Name     string `json:"name" binding:"required"`
	MimeType string `json:"mime_type" binding:"required"`
	Content  []byte `json:"content"`
}

// SubmissionRequest is the body of POST /api/v1/submissions. It is the
// format sent by a remote wizard host.
type SubmissionRequest struct {
	Flow        string              `json:"flow" binding:"required"`
	Fields      map[string]string   `json:"fields"`
	Attachments []AttachmentRequest `json:"attachments"`
}

// SubmissionStatusResponse is the public view of a stored submission
type SubmissionStatusResponse struct {
	ReferenceID string    `json:"reference_id"`
	Flow        string    `json:"flow"`
	Status      string    `json:"status"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// ReviewRequest is the body of PATCH /api/v1/admin/submissions/:ref
type ReviewRequest struct {
	Status string `json:"status" binding:"required"`
	Note   string `json:"note"`
}

// ListSubmissionsRequest represents query parameters for listing submissions
type ListSubmissionsRequest struct {
	Flow   string `form:"flow"`
	Status string `form:"status"`
	Limit  int    `form:"limit"`
	Offset int    `form:"offset"`
}

// CreateSubmission handles POST /api/v1/submissions
func (h *Handlers) CreateSubmission(c *gin.Context) {
	var req SubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, KindValidation, h.translate(c, "http.bad_request"), nil)
		return
	}

	submission := wizard.SubmissionRequest{Flow: req.Flow, Fields: wizard.Fields(req.Fields)}
	for _, a := range req.Attachments {
		submission.Attachments = append(submission.Attachments, upload.NewAttachment(a.Name, a.MimeType, a.Content))
	}
	defer func() {
		for _, a := range submission.Attachments {
			a.Release()
		}
	}()

	result, err := h.submissions.Submit(c.Request.Context(), submission)
	if err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, http.StatusCreated, result)
}

// GetSubmission handles GET /api/v1/submissions/:ref
func (h *Handlers) GetSubmission(c *gin.Context) {
	sub, err := h.submissions.Get(c.Request.Context(), c.Param("ref"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, http.StatusOK, SubmissionStatusResponse{
		ReferenceID: sub.ReferenceID,
		Flow:        sub.Flow,
		Status:      sub.Status,
		SubmittedAt: sub.SubmittedAt,
	})
}

// ListSubmissions handles GET /api/v1/admin/submissions
func (h *Handlers) ListSubmissions(c *gin.Context) {
	var req ListSubmissionsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		fail(c, http.StatusBadRequest, KindValidation, h.translate(c, "http.bad_request"), nil)
		return
	}

	// Set defaults
	if req.Limit <= 0 || req.Limit > 100 {
		req.Limit = 20
	}
	if req.Offset < 0 {
		req.Offset = 0
	}

	subs, err := h.submissions.List(c.Request.Context(), port.SubmissionFilter{
		Flow:   req.Flow,
		Status: req.Status,
		Limit:  req.Limit,
		Offset: req.Offset,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	if subs == nil {
		subs = []*entity.Submission{}
	}
	ok(c, http.StatusOK, subs)
}

// GetSubmissionDetail handles GET /api/v1/admin/submissions/:ref
func (h *Handlers) GetSubmissionDetail(c *gin.Context) {
	sub, err := h.submissions.Get(c.Request.Context(), c.Param("ref"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, http.StatusOK, sub)
}

// ReviewSubmission handles PATCH /api/v1/admin/submissions/:ref
func (h *Handlers) ReviewSubmission(c *gin.Context) {
	var req ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, KindValidation, h.translate(c, "http.bad_request"), nil)
		return
	}

	sub, err := h.submissions.Review(c.Request.Context(), c.Param("ref"), req.Status, req.Note)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.logger.Info("Submission reviewed",
		"reference_id", sub.ReferenceID,
		"status", sub.Status,
		"reviewer", c.GetString(adminSubjectKey),
	)
	ok(c, http.StatusOK, sub)
}

// GetReceipt handles GET /api/v1/receipts/:ref
func (h *Handlers) GetReceipt(c *gin.Context) {
	ref := c.Param("ref")
	status, err := h.receipts.Status(c.Request.Context(), ref)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if status == wizard.ReceiptNotRequested {
		h.respondError(c, service.ErrReceiptNotFound)
		return
	}
	ok(c, http.StatusOK, h.receiptResponse(c, &service.ReceiptView{ReferenceID: ref, Status: status}))
}

// DownloadReceipt handles GET /api/v1/receipts/:ref/download
func (h *Handlers) DownloadReceipt(c *gin.Context) {
	file, err := h.receipts.Open(c.Request.Context(), c.Param("ref"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Name))
	c.Data(http.StatusOK, file.ContentType, file.Content)
}

// RetryReceipt handles POST /api/v1/receipts/:ref/retry
func (h *Handlers) RetryReceipt(c *gin.Context) {
	ref := c.Param("ref")
	if err := h.receipts.Retry(c.Request.Context(), ref); err != nil {
		h.respondError(c, err)
		return
	}

	status, err := h.receipts.Status(c.Request.Context(), ref)
	if err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, http.StatusAccepted, h.receiptResponse(c, &service.ReceiptView{ReferenceID: ref, Status: status}))
}
