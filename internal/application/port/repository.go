package port

import (
	"context"
	"time"

	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/domain/entity"
)

// SubmissionRepository defines persistence operations for Submission
type SubmissionRepository interface {
	Create(ctx context.Context, sub *entity.Submission) error
	GetByReferenceID(ctx context.Context, referenceID string) (*entity.Submission, error)
	// ExistsActive reports whether a non-rejected submission exists for the flow and phone
	ExistsActive(ctx context.Context, flow, phone string) (bool, error)
	UpdateStatus(ctx context.Context, id int64, status, note string, reviewedAt time.Time) error
	List(ctx context.Context, filter SubmissionFilter) ([]*entity.Submission, error)
}

// SubmissionFilter narrows List. Empty strings match everything.
type SubmissionFilter struct {
	Flow   string
	Status string
	Limit  int
	Offset int
}

// AttachmentRepository defines persistence operations for Attachment
type AttachmentRepository interface {
	Create(ctx context.Context, att *entity.Attachment) error
	GetBySubmissionID(ctx context.Context, submissionID int64) ([]*entity.Attachment, error)
}

// ReceiptRepository defines persistence operations for Receipt
type ReceiptRepository interface {
	// CreateIfAbsent inserts the receipt unless one exists for its reference id
	CreateIfAbsent(ctx context.Context, receipt *entity.Receipt) (bool, error)
	GetByReferenceID(ctx context.Context, referenceID string) (*entity.Receipt, error)
	GetPending(ctx context.Context, limit int) ([]*entity.Receipt, error)
	// MarkGenerating moves a receipt to GENERATING and counts the attempt
	MarkGenerating(ctx context.Context, id int64) error
	MarkReady(ctx context.Context, id int64, filePath string, generatedAt time.Time) error
	UpdateStatus(ctx context.Context, id int64, status, errorMsg string) error
	// MoveStatus moves every receipt in status from to status to
	MoveStatus(ctx context.Context, from, to string) (int64, error)
}

// ContentRepository defines persistence operations for ContentDocument
type ContentRepository interface {
	List(ctx context.Context, kind string) ([]*entity.ContentDocument, error)
	Get(ctx context.Context, kind, id string) (*entity.ContentDocument, error)
	Upsert(ctx context.Context, doc *entity.ContentDocument) error
	Delete(ctx context.Context, kind, id string) error
}

// VerificationRepository defines persistence operations for VerificationCode
type VerificationRepository interface {
	Create(ctx context.Context, code *entity.VerificationCode) error
	// Latest returns the most recently issued code for subject
	Latest(ctx context.Context, subject string) (*entity.VerificationCode, error)
	// ClaimAttempt counts one check against an unconsumed code still under
	// maxAttempts. It reports false when the code is used up.
	ClaimAttempt(ctx context.Context, id int64, maxAttempts int) (bool, error)
	// MarkConsumed consumes an unconsumed code. It reports false when another
	// check consumed it first.
	MarkConsumed(ctx context.Context, id int64, at time.Time) (bool, error)
	// DeleteExpired removes codes that expired before the cutoff
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
