package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/application/dispatcher"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/application/flow"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/application/port"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/application/workflow"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/domain/entity"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/domain/event"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/domain/upload"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/domain/validation"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/domain/wizard"
	domainwf "github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/domain/workflow"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/i18n"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/pkg/utils"
)

var (
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrInvalidDecision    = errors.New("review decision must be ACCEPTED or REJECTED")
)

// flowCodes shortens flow names inside reference ids
var flowCodes = map[string]string{
	entity.FlowRegistration:    "REG",
	entity.FlowYouthLeadership: "YLP",
}

// SubmissionService is the submission collaborator of the wizards and the
// review surface for staff.
type SubmissionService interface {
	wizard.Submitter
	Get(ctx context.Context, referenceID string) (*entity.Submission, error)
	List(ctx context.Context, filter port.SubmissionFilter) ([]*entity.Submission, error)
	Review(ctx context.Context, referenceID, status, note string) (*entity.Submission, error)
}

type submissionServiceImpl struct {
	submissions port.SubmissionRepository
	attachments port.AttachmentRepository
	storage     port.FileStorage
	txManager   port.TransactionManager
	flows       *flow.Catalog
	review      workflow.Lifecycle
	dispatcher  dispatcher.Dispatcher
	messages    *i18n.Catalog
	logger      Logger

	now func() time.Time
}

// NewSubmissionService creates a new SubmissionService
func NewSubmissionService(
	submissions port.SubmissionRepository,
	attachments port.AttachmentRepository,
	storage port.FileStorage,
	txManager port.TransactionManager,
	flows *flow.Catalog,
	d dispatcher.Dispatcher,
	messages *i18n.Catalog,
	logger Logger,
) SubmissionService {
	return &submissionServiceImpl{
		submissions: submissions,
		attachments: attachments,
		storage:     storage,
		txManager:   txManager,
		flows:       flows,
		review:      workflow.NewReviewLifecycle(),
		dispatcher:  d,
		messages:    messages,
		logger:      logger,
		now:         time.Now,
	}
}

// Submit validates and stores a completed flow. Refusals are returned as
// *wizard.RejectedError, storage failures as *wizard.TransportError.
func (s *submissionServiceImpl) Submit(ctx context.Context, req wizard.SubmissionRequest) (*wizard.SubmissionResult, error) {
	locale := i18n.FromContext(ctx)

	if _, err := s.flows.Get(req.Flow); err != nil {
		return nil, &wizard.RejectedError{Message: s.messages.Message(locale, "submission.unknown_flow", nil)}
	}

	fields := flow.Persisted(req.Fields)
	problems, err := s.flows.Validate(ctx, req.Flow, fields)
	if err != nil {
		return nil, fmt.Errorf("validate submission: %w", err)
	}
	if len(problems) > 0 {
		return nil, &wizard.RejectedError{
			Message: s.messages.Message(locale, "wizard.step_incomplete", nil),
			Fields: problems.Messages(func(p validation.Problem) string {
				return s.messages.Problem(locale, p)
			}),
		}
	}

	set := upload.NewSet(s.flows.Policy())
	for _, a := range req.Attachments {
		if err := set.Add(a); err != nil {
			msg := s.rejectionMessage(locale, err)
			return nil, &wizard.RejectedError{Message: msg, Fields: map[string]string{flow.StepDocuments: msg}}
		}
	}

	now := s.now().UTC()
	sub := &entity.Submission{
		ReferenceID: NewReferenceID(req.Flow, now),
		Flow:        req.Flow,
		Status:      entity.SubmissionStatusPending,
		Phone:       utils.NormalizeMobile(fields["phone"]),
		Email:       strings.TrimSpace(fields["email"]),
		Locale:      locale.String(),
		Fields:      fields,
		SubmittedAt: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	var duplicate bool
	var saved []string
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		exists, err := s.submissions.ExistsActive(txCtx, sub.Flow, sub.Phone)
		if err != nil {
			return fmt.Errorf("check duplicate: %w", err)
		}
		if exists {
			duplicate = true
			return nil
		}

		if err := s.submissions.Create(txCtx, sub); err != nil {
			return fmt.Errorf("create submission: %w", err)
		}

		for i, a := range set.List() {
			path := port.AttachmentPath(sub.ReferenceID, i+1, utils.SanitizeFileName(a.Name))
			if err := s.storage.Save(txCtx, path, a.Content()); err != nil {
				return fmt.Errorf("save attachment: %w", err)
			}
			saved = append(saved, path)

			att := &entity.Attachment{
				SubmissionID: sub.ID,
				FileName:     a.Name,
				MimeType:     a.MimeType,
				FileSize:     a.SizeBytes,
				FilePath:     path,
				CreatedAt:    now,
			}
			if err := s.attachments.Create(txCtx, att); err != nil {
				return fmt.Errorf("create attachment: %w", err)
			}
			sub.Attachments = append(sub.Attachments, att)
		}
		return nil
	})
	if err != nil {
		s.discard(ctx, saved)
		s.logger.Error("Failed to store submission", "flow", req.Flow, "error", err)
		return nil, &wizard.TransportError{Op: "store submission", Err: err}
	}
	if duplicate {
		msg := s.messages.Message(locale, "submission.duplicate", nil)
		s.logger.Info("Duplicate submission refused", "flow", req.Flow)
		return nil, &wizard.RejectedError{Message: msg, Fields: map[string]string{"phone": msg}}
	}

	s.logger.Info("Submission stored",
		"reference_id", sub.ReferenceID,
		"flow", sub.Flow,
		"attachments", len(sub.Attachments),
	)

	if s.dispatcher != nil {
		evt := event.NewEvent(event.TypeSubmissionCreated, sub.ReferenceID, map[string]interface{}{
			"flow":   sub.Flow,
			"name":   fields["name"],
			"email":  sub.Email,
			"locale": sub.Locale,
		})
		s.dispatcher.DispatchAsync(ctx, evt)
	}

	return &wizard.SubmissionResult{
		ReferenceID:     sub.ReferenceID,
		Status:          wizardStatus(sub.Status),
		SubmittedFields: fields.Clone(),
		SubmittedAt:     now,
	}, nil
}

func (s *submissionServiceImpl) rejectionMessage(locale i18n.Locale, err error) string {
	var rejection *upload.Rejection
	if errors.As(err, &rejection) {
		return s.messages.Rejection(locale, rejection)
	}
	return err.Error()
}

// discard removes files written by a rolled back submission
func (s *submissionServiceImpl) discard(ctx context.Context, paths []string) {
	for _, p := range paths {
		if err := s.storage.Delete(context.WithoutCancel(ctx), p); err != nil {
			s.logger.Error("Failed to remove orphaned attachment", "path", p, "error", err)
		}
	}
}

// Get returns a submission with its attachments
func (s *submissionServiceImpl) Get(ctx context.Context, referenceID string) (*entity.Submission, error) {
	sub, err := s.submissions.GetByReferenceID(ctx, referenceID)
	if err != nil {
		return nil, fmt.Errorf("get submission: %w", err)
	}
	if sub == nil {
		return nil, ErrSubmissionNotFound
	}

	atts, err := s.attachments.GetBySubmissionID(ctx, sub.ID)
	if err != nil {
		return nil, fmt.Errorf("get attachments: %w", err)
	}
	sub.Attachments = atts
	return sub, nil
}

// List returns submissions matching filter, newest first
func (s *submissionServiceImpl) List(ctx context.Context, filter port.SubmissionFilter) ([]*entity.Submission, error) {
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 50
	}
	subs, err := s.submissions.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return subs, nil
}

// Review records a staff decision on a pending submission
func (s *submissionServiceImpl) Review(ctx context.Context, referenceID, status, note string) (*entity.Submission, error) {
	var trigger domainwf.Trigger
	switch strings.ToUpper(status) {
	case entity.SubmissionStatusAccepted:
		trigger = workflow.TriggerAccept
	case entity.SubmissionStatusRejected:
		trigger = workflow.TriggerReject
	default:
		return nil, ErrInvalidDecision
	}

	sub, err := s.submissions.GetByReferenceID(ctx, referenceID)
	if err != nil {
		return nil, fmt.Errorf("get submission: %w", err)
	}
	if sub == nil {
		return nil, ErrSubmissionNotFound
	}

	next, err := s.review.Next(ctx, sub.Status, trigger)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if err := s.submissions.UpdateStatus(ctx, sub.ID, next.String(), note, now); err != nil {
		return nil, fmt.Errorf("update submission status: %w", err)
	}
	sub.Status = next.String()
	sub.ReviewNote = note
	sub.ReviewedAt = &now

	s.logger.Info("Submission reviewed", "reference_id", referenceID, "status", sub.Status)

	if s.dispatcher != nil {
		evt := event.NewEvent(event.TypeSubmissionReviewed, sub.ReferenceID, map[string]interface{}{
			"status": sub.Status,
			"note":   note,
			"name":   sub.Fields["name"],
			"email":  sub.Email,
			"locale": sub.Locale,
		})
		s.dispatcher.DispatchAsync(ctx, evt)
	}
	return sub, nil
}

// NewReferenceID builds KA-<FLOW>-<YYYYMMDD>-<8 hex>
func NewReferenceID(flowName string, at time.Time) string {
	code, ok := flowCodes[flowName]
	if !ok {
		code = strings.ToUpper(flowName)
	}
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("KA-%s-%s-%s", code, at.UTC().Format("20060102"), suffix)
}

func wizardStatus(status string) wizard.Status {
	switch status {
	case entity.SubmissionStatusAccepted:
		return wizard.StatusAccepted
	case entity.SubmissionStatusRejected:
		return wizard.StatusRejected
	default:
		return wizard.StatusPending
	}
}
