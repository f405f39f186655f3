package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/application/flow"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/domain/upload"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/domain/wizard"
)

var (
	ErrSessionNotFound = errors.New("wizard session not found")
	ErrTooManySessions = errors.New("too many open wizard sessions")
	ErrNoVerification  = errors.New("current step does not verify a mobile number")
)

// SessionConfig bounds the in-memory wizard sessions
type SessionConfig struct {
	IdleTimeout time.Duration
	MaxSessions int
}

// Session is a wizard snapshot addressed by its session id
type Session struct {
	ID        string          `json:"id"`
	ExpiresAt time.Time       `json:"expires_at"`
	State     wizard.Snapshot `json:"state"`
}

// ReceiptView is the receipt indicator of a completed wizard
type ReceiptView struct {
	ReferenceID string               `json:"reference_id"`
	Status      wizard.ReceiptStatus `json:"status"`
	Error       string               `json:"error,omitempty"`
}

// WizardService hosts wizards as server-side sessions. Every session owns
// one wizard.Wizard; the wizard serializes its own state changes.
type WizardService interface {
	Start(ctx context.Context, flowName string) (*Session, error)
	Get(ctx context.Context, id string) (*Session, error)
	Advance(ctx context.Context, id string, input wizard.Fields) (*Session, wizard.FieldErrors, error)
	Retreat(ctx context.Context, id string) (*Session, error)
	Skip(ctx context.Context, id string) (*Session, error)
	SetFields(ctx context.Context, id string, fields wizard.Fields) (*Session, error)
	AddAttachment(ctx context.Context, id, name, mimeType string, content []byte) (*Session, error)
	ReplaceAttachment(ctx context.Context, id, attachmentID, name, mimeType string, content []byte) (*Session, error)
	RemoveAttachment(ctx context.Context, id, attachmentID string) (*Session, error)
	ResendCode(ctx context.Context, id string) error
	Submit(ctx context.Context, id string) (*Session, error)
	Receipt(ctx context.Context, id string) (*ReceiptView, error)
	RetryReceipt(ctx context.Context, id string) (*ReceiptView, error)
	Close(ctx context.Context, id string) error
	// Sweep closes sessions idle since before now minus the idle timeout
	Sweep(now time.Time) int
}

type session struct {
	id       string
	flow     flow.Definition
	wizard   *wizard.Wizard
	lastSeen time.Time
}

type wizardServiceImpl struct {
	flows        *flow.Catalog
	submitter    wizard.Submitter
	receipts     wizard.ReceiptGenerator
	verification VerificationService
	config       SessionConfig
	logger       Logger

	mu       sync.Mutex
	sessions map[string]*session
	now      func() time.Time
}

// NewWizardService creates a new WizardService. verification may be nil, in
// which case no codes are issued.
func NewWizardService(
	flows *flow.Catalog,
	submitter wizard.Submitter,
	receipts wizard.ReceiptGenerator,
	verification VerificationService,
	config SessionConfig,
	logger Logger,
) WizardService {
	if config.IdleTimeout <= 0 {
		config.IdleTimeout = 30 * time.Minute
	}
	return &wizardServiceImpl{
		flows:        flows,
		submitter:    submitter,
		receipts:     receipts,
		verification: verification,
		config:       config,
		logger:       logger,
		sessions:     make(map[string]*session),
		now:          time.Now,
	}
}

// Start opens a session over flowName
func (s *wizardServiceImpl) Start(ctx context.Context, flowName string) (*Session, error) {
	def, err := s.flows.Get(flowName)
	if err != nil {
		return nil, err
	}
	w, err := s.flows.NewWizard(flowName, s.receipts)
	if err != nil {
		return nil, fmt.Errorf("create wizard: %w", err)
	}

	sess := &session{
		id:       uuid.NewString(),
		flow:     def,
		wizard:   w,
		lastSeen: s.now(),
	}

	s.mu.Lock()
	if s.config.MaxSessions > 0 && len(s.sessions) >= s.config.MaxSessions {
		s.mu.Unlock()
		w.Close()
		return nil, ErrTooManySessions
	}
	s.sessions[sess.id] = sess
	s.mu.Unlock()

	s.logger.Info("Wizard session started", "session_id", sess.id, "flow", flowName)
	return s.view(sess), nil
}

// lookup returns the session and refreshes its idle deadline
func (s *wizardServiceImpl) lookup(id string) (*session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	sess.lastSeen = s.now()
	return sess, nil
}

func (s *wizardServiceImpl) view(sess *session) *Session {
	s.mu.Lock()
	expires := sess.lastSeen.Add(s.config.IdleTimeout)
	s.mu.Unlock()

	return &Session{
		ID:        sess.id,
		ExpiresAt: expires.UTC(),
		State:     sess.wizard.Snapshot(),
	}
}

// Get returns the current snapshot
func (s *wizardServiceImpl) Get(ctx context.Context, id string) (*Session, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	return s.view(sess), nil
}

// Advance validates the active step. Entering the verification step issues a
// one-time code to the phone number given earlier.
func (s *wizardServiceImpl) Advance(ctx context.Context, id string, input wizard.Fields) (*Session, wizard.FieldErrors, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, nil, err
	}

	before, _ := sess.wizard.CurrentStep()
	errs, err := sess.wizard.Advance(ctx, input)
	if err != nil {
		return s.view(sess), nil, err
	}
	if len(errs) > 0 {
		return s.view(sess), errs, nil
	}

	after, step := sess.wizard.CurrentStep()
	if after != before && step.ID == sess.flow.VerificationStep {
		if err := s.issueCode(ctx, sess); err != nil && !errors.Is(err, ErrResendTooSoon) {
			s.logger.Error("Failed to issue verification code", "session_id", id, "error", err)
		}
	}
	return s.view(sess), nil, nil
}

func (s *wizardServiceImpl) issueCode(ctx context.Context, sess *session) error {
	if s.verification == nil {
		return nil
	}
	data := sess.wizard.Snapshot().Data
	subject := flow.Subject(sess.flow.Name, data["phone"])
	return s.verification.Issue(ctx, subject, Recipient{Phone: data["phone"], Email: data["email"]})
}

// ResendCode issues a fresh code while the verification step is active
func (s *wizardServiceImpl) ResendCode(ctx context.Context, id string) error {
	sess, err := s.lookup(id)
	if err != nil {
		return err
	}
	if _, step := sess.wizard.CurrentStep(); step.ID != sess.flow.VerificationStep {
		return ErrNoVerification
	}
	return s.issueCode(ctx, sess)
}

// Retreat moves back one step
func (s *wizardServiceImpl) Retreat(ctx context.Context, id string) (*Session, error) {
	return s.apply(id, func(w *wizard.Wizard) error { return w.Retreat() })
}

// Skip passes an optional step
func (s *wizardServiceImpl) Skip(ctx context.Context, id string) (*Session, error) {
	return s.apply(id, func(w *wizard.Wizard) error { return w.Skip() })
}

// SetFields echoes local edits so their errors clear as values change
func (s *wizardServiceImpl) SetFields(ctx context.Context, id string, fields wizard.Fields) (*Session, error) {
	return s.apply(id, func(w *wizard.Wizard) error {
		for name, value := range fields {
			if err := w.SetField(name, value); err != nil {
				return err
			}
		}
		return nil
	})
}

// AddAttachment selects a file on the upload step
func (s *wizardServiceImpl) AddAttachment(ctx context.Context, id, name, mimeType string, content []byte) (*Session, error) {
	return s.apply(id, func(w *wizard.Wizard) error {
		return w.AddAttachment(upload.NewAttachment(name, mimeType, content))
	})
}

// ReplaceAttachment swaps a selected file
func (s *wizardServiceImpl) ReplaceAttachment(ctx context.Context, id, attachmentID, name, mimeType string, content []byte) (*Session, error) {
	return s.apply(id, func(w *wizard.Wizard) error {
		return w.ReplaceAttachment(attachmentID, upload.NewAttachment(name, mimeType, content))
	})
}

// RemoveAttachment drops a selected file
func (s *wizardServiceImpl) RemoveAttachment(ctx context.Context, id, attachmentID string) (*Session, error) {
	return s.apply(id, func(w *wizard.Wizard) error {
		return w.RemoveAttachment(attachmentID)
	})
}

// apply runs op against the session's wizard and returns the snapshot. The
// snapshot is returned with op's error so callers can render both.
func (s *wizardServiceImpl) apply(id string, op func(w *wizard.Wizard) error) (*Session, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	opErr := op(sess.wizard)
	return s.view(sess), opErr
}

// Submit hands the wizard to the submission collaborator and, on success,
// requests the receipt once.
func (s *wizardServiceImpl) Submit(ctx context.Context, id string) (*Session, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	result, err := sess.wizard.SubmitFinal(ctx, s.submitter)
	if err != nil {
		var failure *wizard.Failure
		if errors.As(err, &failure) {
			s.logger.Info("Wizard submission failed",
				"session_id", id,
				"flow", sess.flow.Name,
				"kind", failure.Kind,
			)
		}
		return s.view(sess), err
	}

	s.logger.Info("Wizard submitted",
		"session_id", id,
		"flow", sess.flow.Name,
		"reference_id", result.ReferenceID,
	)

	if completion, err := sess.wizard.Completion(); err == nil {
		completion.TriggerReceipt(ctx)
	}
	return s.view(sess), nil
}

// Receipt renders the completion's receipt indicator
func (s *wizardServiceImpl) Receipt(ctx context.Context, id string) (*ReceiptView, error) {
	completion, err := s.completion(id)
	if err != nil {
		return nil, err
	}
	completion.TriggerReceipt(ctx)
	return receiptView(ctx, completion), nil
}

// RetryReceipt re-runs receipt generation only
func (s *wizardServiceImpl) RetryReceipt(ctx context.Context, id string) (*ReceiptView, error) {
	completion, err := s.completion(id)
	if err != nil {
		return nil, err
	}
	if err := completion.RetryReceipt(ctx); err != nil {
		return receiptView(ctx, completion), err
	}
	return receiptView(ctx, completion), nil
}

func (s *wizardServiceImpl) completion(id string) (*wizard.Completion, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	return sess.wizard.Completion()
}

func receiptView(ctx context.Context, c *wizard.Completion) *ReceiptView {
	v := &ReceiptView{
		ReferenceID: c.Result().ReferenceID,
		Status:      c.ReceiptStatus(ctx),
	}
	if err := c.LastError(); err != nil && v.Status == wizard.ReceiptFailed {
		v.Error = err.Error()
	}
	return v
}

// Close tears the session down
func (s *wizardServiceImpl) Close(ctx context.Context, id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	sess.wizard.Close()
	s.logger.Info("Wizard session closed", "session_id", id)
	return nil
}

// Sweep closes idle sessions and returns how many were closed
func (s *wizardServiceImpl) Sweep(now time.Time) int {
	cutoff := now.Add(-s.config.IdleTimeout)

	s.mu.Lock()
	var expired []*session
	for id, sess := range s.sessions {
		if sess.lastSeen.Before(cutoff) {
			expired = append(expired, sess)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, sess := range expired {
		sess.wizard.Close()
	}
	if len(expired) > 0 {
		s.logger.Info("Expired wizard sessions closed", "count", len(expired))
	}
	return len(expired)
}
