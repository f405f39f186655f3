package http

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/application/service"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/domain/validation"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/domain/wizard"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/i18n"
)

// uploadField is the multipart form field carrying an attachment
const uploadField = "file"

// StartWizardRequest is the body of POST /api/v1/wizards
type StartWizardRequest struct {
	Flow string `json:"flow" binding:"required"`
}

// FieldsRequest carries step input or local edits
type FieldsRequest struct {
	Fields map[string]string `json:"fields"`
}

// StartWizard handles POST /api/v1/wizards
func (h *Handlers) StartWizard(c *gin.Context) {
	var req StartWizardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, KindValidation, h.translate(c, "http.bad_request"), nil)
		return
	}

	session, err := h.wizards.Start(c.Request.Context(), req.Flow)
	if err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, http.StatusCreated, session)
}

// GetWizard handles GET /api/v1/wizards/:id
func (h *Handlers) GetWizard(c *gin.Context) {
	session, err := h.wizards.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, http.StatusOK, session)
}

// CloseWizard handles DELETE /api/v1/wizards/:id
func (h *Handlers) CloseWizard(c *gin.Context) {
	if err := h.wizards.Close(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AdvanceWizard handles POST /api/v1/wizards/:id/advance. Validation errors
// come back as 422 with the unchanged session and one message per field.
func (h *Handlers) AdvanceWizard(c *gin.Context) {
	var req FieldsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, KindValidation, h.translate(c, "http.bad_request"), nil)
		return
	}

	session, problems, err := h.wizards.Advance(c.Request.Context(), c.Param("id"), wizard.Fields(req.Fields))
	if err != nil {
		h.respondErrorWith(c, err, session)
		return
	}
	if len(problems) > 0 {
		failWith(c, http.StatusUnprocessableEntity, KindValidation,
			h.translate(c, "wizard.step_incomplete"), h.fieldMessages(c, problems), session)
		return
	}
	ok(c, http.StatusOK, session)
}

// RetreatWizard handles POST /api/v1/wizards/:id/retreat
func (h *Handlers) RetreatWizard(c *gin.Context) {
	h.respondSession(c)(h.wizards.Retreat(c.Request.Context(), c.Param("id")))
}

// SkipStep handles POST /api/v1/wizards/:id/skip
func (h *Handlers) SkipStep(c *gin.Context) {
	h.respondSession(c)(h.wizards.Skip(c.Request.Context(), c.Param("id")))
}

// SetFields handles PATCH /api/v1/wizards/:id/fields
func (h *Handlers) SetFields(c *gin.Context) {
	var req FieldsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, KindValidation, h.translate(c, "http.bad_request"), nil)
		return
	}
	h.respondSession(c)(h.wizards.SetFields(c.Request.Context(), c.Param("id"), wizard.Fields(req.Fields)))
}

// AddAttachment handles POST /api/v1/wizards/:id/attachments
func (h *Handlers) AddAttachment(c *gin.Context) {
	name, mimeType, content, err := h.readUpload(c)
	if err != nil {
		return
	}

	session, err := h.wizards.AddAttachment(c.Request.Context(), c.Param("id"), name, mimeType, content)
	if err != nil {
		h.respondErrorWith(c, err, session)
		return
	}
	ok(c, http.StatusCreated, session)
}

// ReplaceAttachment handles PUT /api/v1/wizards/:id/attachments/:att
func (h *Handlers) ReplaceAttachment(c *gin.Context) {
	name, mimeType, content, err := h.readUpload(c)
	if err != nil {
		return
	}
	h.respondSession(c)(h.wizards.ReplaceAttachment(c.Request.Context(), c.Param("id"), c.Param("att"), name, mimeType, content))
}

// RemoveAttachment handles DELETE /api/v1/wizards/:id/attachments/:att
func (h *Handlers) RemoveAttachment(c *gin.Context) {
	h.respondSession(c)(h.wizards.RemoveAttachment(c.Request.Context(), c.Param("id"), c.Param("att")))
}

// ResendCode handles POST /api/v1/wizards/:id/code
func (h *Handlers) ResendCode(c *gin.Context) {
	if err := h.wizards.ResendCode(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, http.StatusAccepted, gin.H{"sent": true})
}

// SubmitWizard handles POST /api/v1/wizards/:id/submit. A failed submission
// returns the session with the recorded failure so the client can retry.
func (h *Handlers) SubmitWizard(c *gin.Context) {
	session, err := h.wizards.Submit(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondErrorWith(c, err, session)
		return
	}
	ok(c, http.StatusOK, session)
}

// WizardReceipt handles GET /api/v1/wizards/:id/receipt
func (h *Handlers) WizardReceipt(c *gin.Context) {
	view, err := h.wizards.Receipt(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, http.StatusOK, h.receiptResponse(c, view))
}

// RetryWizardReceipt handles POST /api/v1/wizards/:id/receipt/retry
func (h *Handlers) RetryWizardReceipt(c *gin.Context) {
	view, err := h.wizards.RetryReceipt(c.Request.Context(), c.Param("id"))
	if err != nil {
		var data interface{}
		if view != nil {
			data = h.receiptResponse(c, view)
		}
		h.respondErrorWith(c, err, data)
		return
	}
	ok(c, http.StatusAccepted, h.receiptResponse(c, view))
}

// ReceiptResponse is the receipt indicator with its localized message
type ReceiptResponse struct {
	ReferenceID string `json:"reference_id"`
	Status      string `json:"status"`
	Message     string `json:"message,omitempty"`
	DownloadURL string `json:"download_url,omitempty"`
}

func (h *Handlers) receiptResponse(c *gin.Context, view *service.ReceiptView) ReceiptResponse {
	resp := ReceiptResponse{
		ReferenceID: view.ReferenceID,
		Status:      string(view.Status),
	}
	if key := "wizard.receipt." + string(view.Status); view.Status != wizard.ReceiptNotRequested {
		resp.Message = h.translate(c, key)
	}
	if view.Status == wizard.ReceiptReady {
		resp.DownloadURL = fmt.Sprintf("/api/v1/receipts/%s/download", view.ReferenceID)
	}
	return resp
}

// respondSession writes a session result, attaching the session to errors
func (h *Handlers) respondSession(c *gin.Context) func(*service.Session, error) {
	return func(session *service.Session, err error) {
		if err != nil {
			h.respondErrorWith(c, err, session)
			return
		}
		ok(c, http.StatusOK, session)
	}
}

// fieldMessages renders validation problems in the request locale
func (h *Handlers) fieldMessages(c *gin.Context, problems wizard.FieldErrors) map[string]string {
	locale := i18n.FromContext(c.Request.Context())
	return problems.Messages(func(p validation.Problem) string {
		return h.messages.Problem(locale, p)
	})
}

// readUpload reads the multipart file. The content is read up to one byte
// past the policy ceiling so the size check still sees an oversized file.
func (h *Handlers) readUpload(c *gin.Context) (name, mimeType string, content []byte, err error) {
	header, err := c.FormFile(uploadField)
	if err != nil {
		fail(c, http.StatusBadRequest, KindValidation, h.translate(c, "http.bad_request"), nil)
		return "", "", nil, err
	}

	f, err := header.Open()
	if err != nil {
		fail(c, http.StatusBadRequest, KindValidation, h.translate(c, "http.bad_request"), nil)
		return "", "", nil, err
	}
	defer f.Close()

	limit := h.flows.Policy().MaxBytes
	var r io.Reader = f
	if limit > 0 {
		r = io.LimitReader(f, limit+1)
	}
	content, err = io.ReadAll(r)
	if err != nil {
		fail(c, http.StatusBadRequest, KindValidation, h.translate(c, "http.bad_request"), nil)
		return "", "", nil, err
	}

	return header.Filename, header.Header.Get("Content-Type"), content, nil
}
