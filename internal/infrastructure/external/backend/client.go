package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/domain/wizard"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/i18n"
)

const maxResponseBytes = 1 << 20

// Client implements wizard.Submitter against a remote portal backend. It
// posts to POST <base>/api/v1/submissions.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient creates a new backend client. token, when set, is sent as a
// bearer token.
func NewClient(baseURL, token string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type attachmentPayload struct {
	Name     string `json:"name"`
	MimeType string `json:"mime_type"`
	Content  []byte `json:"content"`
}

type submissionPayload struct {
	Flow        string              `json:"flow"`
	Fields      map[string]string   `json:"fields"`
	Attachments []attachmentPayload `json:"attachments,omitempty"`
}

type envelope struct {
	Success bool                     `json:"success"`
	Data    *wizard.SubmissionResult `json:"data"`
	Error   string                   `json:"error"`
	Fields  map[string]string        `json:"fields"`
}

// Submit sends req. A 4xx reply is a refusal; network errors, timeouts and
// 5xx replies are transport failures.
func (c *Client) Submit(ctx context.Context, req wizard.SubmissionRequest) (*wizard.SubmissionResult, error) {
	payload := submissionPayload{Flow: req.Flow, Fields: req.Fields}
	for _, a := range req.Attachments {
		payload.Attachments = append(payload.Attachments, attachmentPayload{
			Name:     a.Name,
			MimeType: a.MimeType,
			Content:  a.Content(),
		})
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode submission: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/submissions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept-Language", i18n.FromContext(ctx).String())
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.logger.Error("Backend unreachable", zap.String("flow", req.Flow), zap.Error(err))
		return nil, &wizard.TransportError{Op: "post submission", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &wizard.TransportError{Op: "read response", Err: err}
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	switch {
	case resp.StatusCode >= 500:
		return nil, &wizard.TransportError{Op: "post submission", Err: fmt.Errorf("backend returned %d", resp.StatusCode)}
	case resp.StatusCode >= 400:
		if decodeErr != nil || env.Error == "" {
			return nil, &wizard.RejectedError{Message: http.StatusText(resp.StatusCode)}
		}
		c.logger.Info("Backend refused submission",
			zap.String("flow", req.Flow),
			zap.Int("status", resp.StatusCode))
		return nil, &wizard.RejectedError{Message: env.Error, Fields: env.Fields}
	case decodeErr != nil:
		return nil, &wizard.TransportError{Op: "decode response", Err: decodeErr}
	case !env.Success || env.Data == nil || env.Data.ReferenceID == "":
		return nil, &wizard.TransportError{Op: "decode response", Err: errors.New("response carries no reference id")}
	}

	c.logger.Info("Submission accepted by backend",
		zap.String("flow", req.Flow),
		zap.String("reference_id", env.Data.ReferenceID))
	return env.Data, nil
}
