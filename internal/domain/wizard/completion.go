package wizard

import (
	"context"
	"sync"
	"time"
)

// Status is the review state of a stored submission.
type Status string

const (
	StatusPending  Status = "Pending"
	StatusAccepted Status = "Accepted"
	StatusRejected Status = "Rejected"
)

// SubmissionResult is produced once the submission collaborator accepts the
// aggregate data. It is never modified afterwards; accessors return copies.
type SubmissionResult struct {
	ReferenceID     string    `json:"reference_id"`
	Status          Status    `json:"status"`
	SubmittedFields Fields    `json:"submitted_fields"`
	SubmittedAt     time.Time `json:"submitted_at"`
}

func (r SubmissionResult) clone() SubmissionResult {
	r.SubmittedFields = r.SubmittedFields.Clone()
	return r
}

// ReceiptStatus is the state of the receipt side effect, tracked apart from
// the submission status.
type ReceiptStatus string

const (
	ReceiptNotRequested ReceiptStatus = "not_requested"
	ReceiptPending      ReceiptStatus = "pending"
	ReceiptReady        ReceiptStatus = "ready"
	ReceiptFailed       ReceiptStatus = "failed"
)

// ReceiptGenerator is the document-generation collaborator.
type ReceiptGenerator interface {
	Request(ctx context.Context, referenceID string, snapshot Fields) error
	Retry(ctx context.Context, referenceID string) error
	Status(ctx context.Context, referenceID string) (ReceiptStatus, error)
}

// Completion is the terminal view of a successful submission. It fires the
// receipt request once no matter how often it is rendered.
type Completion struct {
	result   SubmissionResult
	receipts ReceiptGenerator

	once      sync.Once
	mu        sync.Mutex
	status    ReceiptStatus
	requested bool
	lastErr   error
}

func newCompletion(result SubmissionResult, receipts ReceiptGenerator) *Completion {
	return &Completion{
		result:   result.clone(),
		receipts: receipts,
		status:   ReceiptNotRequested,
	}
}

// Result returns a copy of the submission result.
func (c *Completion) Result() SubmissionResult {
	return c.result.clone()
}

// TriggerReceipt requests the receipt on the first call and does nothing on
// later calls. It reports whether this call fired the request.
func (c *Completion) TriggerReceipt(ctx context.Context) bool {
	fired := false
	c.once.Do(func() {
		fired = true
		c.request(ctx)
	})
	return fired
}

func (c *Completion) request(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.receipts == nil {
		return
	}
	c.status = ReceiptPending
	if err := c.receipts.Request(ctx, c.result.ReferenceID, c.result.SubmittedFields.Clone()); err != nil {
		c.status = ReceiptFailed
		c.lastErr = err
		return
	}
	c.requested = true
	c.lastErr = nil
}

// ReceiptStatus refreshes the indicator from the collaborator. A lookup error
// keeps the last known status.
func (c *Completion) ReceiptStatus(ctx context.Context) ReceiptStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.requested || c.receipts == nil {
		return c.status
	}
	status, err := c.receipts.Status(ctx, c.result.ReferenceID)
	if err != nil {
		c.lastErr = err
		return c.status
	}
	c.status = status
	return status
}

// LastError returns the most recent receipt error, if any.
func (c *Completion) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// RetryReceipt re-runs only the receipt generation. It is refused unless the
// receipt is in the failed state.
func (c *Completion) RetryReceipt(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.receipts == nil {
		return ErrReceiptNotFailed
	}
	if c.requested {
		if status, err := c.receipts.Status(ctx, c.result.ReferenceID); err == nil {
			c.status = status
		}
	}
	if c.status != ReceiptFailed {
		return ErrReceiptNotFailed
	}

	var err error
	if c.requested {
		err = c.receipts.Retry(ctx, c.result.ReferenceID)
	} else {
		err = c.receipts.Request(ctx, c.result.ReferenceID, c.result.SubmittedFields.Clone())
	}
	if err != nil {
		c.lastErr = err
		return err
	}

	c.requested = true
	c.status = ReceiptPending
	c.lastErr = nil
	return nil
}
