package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/application/flow"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/application/service"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/domain/upload"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/domain/wizard"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/domain/workflow"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/i18n"
)

// Response represents a standard JSON response
type Response struct {
	Success bool              `json:"success"`
	Data    interface{}       `json:"data,omitempty"`
	Error   string            `json:"error,omitempty"`
	Kind    string            `json:"kind,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// Kinds reported next to an error message
const (
	KindValidation = "validation"
	KindUpload     = "upload"
	KindSubmission = string(wizard.FailureSubmission)
	KindTransport  = string(wizard.FailureTransport)
	KindState      = "state"
	KindNotFound   = "not_found"
	KindAuth       = "auth"
	KindInternal   = "internal"
)

type errorMapping struct {
	target  error
	status  int
	message string
	kind    string
}

// knownErrors maps sentinel errors to a status and a catalog key
var knownErrors = []errorMapping{
	{service.ErrSessionNotFound, http.StatusNotFound, "wizard.not_found", KindNotFound},
	{flow.ErrUnknownFlow, http.StatusNotFound, "submission.unknown_flow", KindNotFound},
	{upload.ErrNotFound, http.StatusNotFound, "http.not_found", KindNotFound},
	{service.ErrSubmissionNotFound, http.StatusNotFound, "http.not_found", KindNotFound},
	{service.ErrReceiptNotFound, http.StatusNotFound, "http.not_found", KindNotFound},
	{service.ErrPageNotFound, http.StatusNotFound, "http.not_found", KindNotFound},
	{service.ErrUnknownContentKind, http.StatusNotFound, "http.not_found", KindNotFound},
	{service.ErrTooManySessions, http.StatusServiceUnavailable, "http.too_many_sessions", KindTransport},
	{service.ErrNoVerification, http.StatusConflict, "http.no_verification", KindState},
	{service.ErrResendTooSoon, http.StatusTooManyRequests, "verification.too_soon", KindState},
	{service.ErrReceiptNotReady, http.StatusConflict, "http.receipt_not_ready", KindState},
	{service.ErrInvalidDecision, http.StatusBadRequest, "http.invalid_decision", KindValidation},
	{service.ErrInvalidContent, http.StatusBadRequest, "http.invalid_content", KindValidation},
	{wizard.ErrStepNotOptional, http.StatusConflict, "wizard.step_not_optional", KindState},
	{wizard.ErrNotAtFinalStep, http.StatusConflict, "wizard.not_at_final_step", KindState},
	{wizard.ErrSubmissionInFlight, http.StatusConflict, "wizard.submission_in_flight", KindState},
	{wizard.ErrAlreadySubmitted, http.StatusConflict, "wizard.already_submitted", KindState},
	{wizard.ErrUploadsNotAccepted, http.StatusConflict, "wizard.uploads_not_accepted", KindState},
	{wizard.ErrFieldNotOwned, http.StatusBadRequest, "wizard.field_not_owned", KindValidation},
	{wizard.ErrReceiptNotFailed, http.StatusConflict, "wizard.receipt_not_failed", KindState},
	{wizard.ErrNotCompleted, http.StatusConflict, "wizard.not_completed", KindState},
	{wizard.ErrStepIncomplete, http.StatusUnprocessableEntity, "wizard.step_incomplete", KindValidation},
	{wizard.ErrClosed, http.StatusGone, "wizard.closed", KindState},
	{workflow.ErrInvalidTransition, http.StatusConflict, "http.bad_request", KindState},
}

// ok writes a success envelope
func ok(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Response{Success: true, Data: data})
}

// fail writes an error envelope
func fail(c *gin.Context, status int, kind, message string, fields map[string]string) {
	c.AbortWithStatusJSON(status, Response{Success: false, Error: message, Kind: kind, Fields: fields})
}

// failWith writes an error envelope carrying data alongside the error, so a
// client can render the wizard state and the problem together
func failWith(c *gin.Context, status int, kind, message string, fields map[string]string, data interface{}) {
	c.AbortWithStatusJSON(status, Response{Success: false, Data: data, Error: message, Kind: kind, Fields: fields})
}

// translate renders a catalog key for the request locale
func (h *Handlers) translate(c *gin.Context, key string) string {
	return h.messages.Message(i18n.FromContext(c.Request.Context()), key, nil)
}

// errorResponse classifies err into status, kind, localized message and
// field messages
func (h *Handlers) errorResponse(c *gin.Context, err error) (int, Response) {
	locale := i18n.FromContext(c.Request.Context())

	var failure *wizard.Failure
	if errors.As(err, &failure) {
		resp := Response{Kind: string(failure.Kind), Fields: failure.Fields}
		if failure.Kind == wizard.FailureSubmission {
			resp.Error = failure.Message
			if resp.Error == "" {
				resp.Error = h.messages.Message(locale, "wizard.failure.submission", nil)
			}
			return http.StatusUnprocessableEntity, resp
		}
		resp.Error = h.messages.Message(locale, "wizard.failure.transport", nil)
		return http.StatusBadGateway, resp
	}

	var rejection *upload.Rejection
	if errors.As(err, &rejection) {
		return http.StatusUnprocessableEntity, Response{
			Kind:   KindUpload,
			Error:  h.messages.Rejection(locale, rejection),
			Fields: map[string]string{flow.StepDocuments: h.messages.Rejection(locale, rejection)},
		}
	}

	var rejected *wizard.RejectedError
	if errors.As(err, &rejected) {
		return http.StatusUnprocessableEntity, Response{Kind: KindSubmission, Error: rejected.Message, Fields: rejected.Fields}
	}

	var transport *wizard.TransportError
	if errors.As(err, &transport) {
		return http.StatusServiceUnavailable, Response{
			Kind:  KindTransport,
			Error: h.messages.Message(locale, "wizard.failure.transport", nil),
		}
	}

	for _, m := range knownErrors {
		if errors.Is(err, m.target) {
			return m.status, Response{Kind: m.kind, Error: h.messages.Message(locale, m.message, nil)}
		}
	}

	return http.StatusInternalServerError, Response{
		Kind:  KindInternal,
		Error: h.messages.Message(locale, "http.internal", nil),
	}
}

// respondError writes the envelope for err, logging unexpected failures
func (h *Handlers) respondError(c *gin.Context, err error) {
	h.respondErrorWith(c, err, nil)
}

// respondErrorWith writes the envelope for err with data attached
func (h *Handlers) respondErrorWith(c *gin.Context, err error, data interface{}) {
	status, resp := h.errorResponse(c, err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", status,
			"error", err,
		)
	}
	_ = c.Error(err)
	resp.Success = false
	resp.Data = data
	c.AbortWithStatusJSON(status, resp)
}
