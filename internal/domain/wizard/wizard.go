package wizard

import (
	"context"
	"fmt"
	"sync"

	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/domain/upload"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/domain/validation"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/domain/workflow"
)

// SubmissionRequest carries a completed wizard to the submission collaborator.
type SubmissionRequest struct {
	Flow        string
	Fields      Fields
	Attachments []*upload.Attachment
}

// Submitter is the submission collaborator.
type Submitter interface {
	Submit(ctx context.Context, req SubmissionRequest) (*SubmissionResult, error)
}

// SubmitterFunc adapts a function to Submitter.
type SubmitterFunc func(ctx context.Context, req SubmissionRequest) (*SubmissionResult, error)

func (f SubmitterFunc) Submit(ctx context.Context, req SubmissionRequest) (*SubmissionResult, error) {
	return f(ctx, req)
}

// Option configures a Wizard.
type Option func(*Wizard)

// WithUploadPolicy replaces the default attachment policy.
func WithUploadPolicy(p upload.Policy) Option {
	return func(w *Wizard) {
		w.attachments = upload.NewSet(p)
	}
}

// WithReceipts sets the receipt collaborator used by the completion.
func WithReceipts(r ReceiptGenerator) Option {
	return func(w *Wizard) {
		w.receipts = r
	}
}

// Wizard is the controller of one multi-step form. It exclusively owns the
// step index, the aggregate data, the field errors and the attachment set.
// Methods are safe for concurrent use; the lock is not held while the
// submission collaborator runs.
type Wizard struct {
	mu sync.Mutex

	flow     string
	steps    []StepDefinition
	receipts ReceiptGenerator

	index       int
	completed   []bool
	data        Fields
	draft       Fields
	errors      FieldErrors
	attachments *upload.Set
	phase       workflow.StateMachine
	failure     *Failure
	completion  *Completion
}

// New builds a wizard over a copy of steps.
func New(flow string, steps []StepDefinition, opts ...Option) (*Wizard, error) {
	if len(steps) == 0 {
		return nil, ErrNoSteps
	}

	seen := make(map[string]bool, len(steps))
	copied := make([]StepDefinition, len(steps))
	for i, s := range steps {
		if seen[s.ID] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateStep, s.ID)
		}
		seen[s.ID] = true
		copied[i] = s.clone()
	}

	w := &Wizard{
		flow:        flow,
		steps:       copied,
		completed:   make([]bool, len(copied)),
		data:        Fields{},
		draft:       Fields{},
		errors:      FieldErrors{},
		attachments: upload.NewSet(upload.DefaultPolicy()),
		phase:       phases.Build(PhaseEditing),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Flow returns the flow name given at construction.
func (w *Wizard) Flow() string {
	return w.flow
}

// CurrentStep returns the index and definition of the active step.
func (w *Wizard) CurrentStep() (int, StepDefinition) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.index, w.steps[w.index].clone()
}

// Phase returns the lifecycle phase.
func (w *Wizard) Phase() workflow.State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.phase.State()
}

func (w *Wizard) editable() error {
	switch w.phase.State() {
	case PhaseEditing:
		return nil
	case PhaseSubmitting:
		return ErrSubmissionInFlight
	case PhaseSubmitted:
		return ErrAlreadySubmitted
	default:
		return ErrClosed
	}
}

func (w *Wizard) isLast() bool {
	return w.index == len(w.steps)-1
}

// SetField records a local edit of the active step. The field's error is
// cleared as soon as its value changes. Fields the step does not own are
// refused with ErrFieldNotOwned.
func (w *Wizard) SetField(name, value string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.editable(); err != nil {
		return err
	}
	if step := w.steps[w.index]; !step.Owns(name) {
		return fmt.Errorf("%w: %s is not part of step %s", ErrFieldNotOwned, name, step.ID)
	}

	prev, ok := w.draft[name]
	if !ok {
		prev = w.data[name]
	}
	if value != prev {
		delete(w.errors, name)
	}
	w.draft[name] = value
	return nil
}

// Advance validates the active step against input merged over the local
// edits. On failure the errors are stored and returned and the index does not
// move. On success the input is merged into the aggregate data and the index
// moves forward, staying put at the last step. The returned error is reserved
// for calls the current phase does not allow.
func (w *Wizard) Advance(ctx context.Context, input Fields) (FieldErrors, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.editable(); err != nil {
		return nil, err
	}

	errs := w.validateStep(ctx, input)
	if len(errs) > 0 {
		return errs, nil
	}

	w.moveForward()
	return nil, nil
}

// validateStep checks the active step and, on success, commits its input.
// Keys the step does not own are ignored.
func (w *Wizard) validateStep(ctx context.Context, input Fields) FieldErrors {
	step := w.steps[w.index]
	effective := w.draft.Clone()
	for k, v := range step.owned(input) {
		effective[k] = v
	}

	errs := step.Check(ctx, effective, w.data.Clone())
	if len(errs) > 0 {
		w.errors = errs
		w.draft = effective
		return cloneErrors(errs)
	}

	for k, v := range effective {
		w.data[k] = v
	}
	w.errors = FieldErrors{}
	w.draft = Fields{}
	w.failure = nil
	w.completed[w.index] = true
	return nil
}

func (w *Wizard) moveForward() {
	if !w.isLast() {
		w.index++
	}
}

// Retreat moves back one step, stopping at the first. Aggregate data is kept.
func (w *Wizard) Retreat() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.editable(); err != nil {
		return err
	}
	if w.index > 0 {
		w.index--
		w.draft = Fields{}
		w.errors = FieldErrors{}
	}
	return nil
}

// Skip passes an optional step without input or validation. Skipping an
// upload step drops any selected attachments.
func (w *Wizard) Skip() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.editable(); err != nil {
		return err
	}

	step := w.steps[w.index]
	if !step.Optional {
		return fmt.Errorf("%w: %s", ErrStepNotOptional, step.ID)
	}
	if step.AcceptsUploads {
		w.attachments.Release()
	}

	w.draft = Fields{}
	w.errors = FieldErrors{}
	w.completed[w.index] = true
	w.moveForward()
	return nil
}

// AddAttachment adds a file to the active upload step.
func (w *Wizard) AddAttachment(a *upload.Attachment) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.uploadable(); err != nil {
		return err
	}
	return w.attachments.Add(a)
}

// ReplaceAttachment swaps a selected file for another.
func (w *Wizard) ReplaceAttachment(id string, a *upload.Attachment) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.uploadable(); err != nil {
		return err
	}
	return w.attachments.Replace(id, a)
}

// RemoveAttachment drops a selected file.
func (w *Wizard) RemoveAttachment(id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.uploadable(); err != nil {
		return err
	}
	return w.attachments.Remove(id)
}

func (w *Wizard) uploadable() error {
	if err := w.editable(); err != nil {
		return err
	}
	if !w.steps[w.index].AcceptsUploads {
		return ErrUploadsNotAccepted
	}
	return nil
}

// SubmitFinal hands the aggregate data to sub. It is only allowed from the
// last step and never runs twice concurrently. A failure keeps the aggregate
// data and records a retryable Failure. If the wizard is closed while the
// collaborator runs, the outcome is discarded and ErrClosed returned.
func (w *Wizard) SubmitFinal(ctx context.Context, sub Submitter) (*SubmissionResult, error) {
	req, err := w.beginSubmit(ctx)
	if err != nil {
		return nil, err
	}

	res, subErr := sub.Submit(ctx, req)

	return w.finishSubmit(ctx, res, subErr)
}

func (w *Wizard) beginSubmit(ctx context.Context) (SubmissionRequest, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.editable(); err != nil {
		return SubmissionRequest{}, err
	}
	if !w.isLast() {
		return SubmissionRequest{}, ErrNotAtFinalStep
	}

	last := w.steps[w.index]
	if !w.completed[w.index] && !last.Optional {
		if errs := w.validateStep(ctx, nil); len(errs) > 0 {
			return SubmissionRequest{}, ErrStepIncomplete
		}
	}

	if err := w.phase.Fire(ctx, triggerSubmit); err != nil {
		return SubmissionRequest{}, err
	}
	w.failure = nil

	// The collaborator runs unlocked, so it gets its own handles; Close may
	// release the set meanwhile.
	return SubmissionRequest{
		Flow:        w.flow,
		Fields:      w.data.Clone(),
		Attachments: w.attachments.Detached(),
	}, nil
}

func (w *Wizard) finishSubmit(ctx context.Context, res *SubmissionResult, subErr error) (*SubmissionResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.phase.State() != PhaseSubmitting {
		return nil, ErrClosed
	}

	if subErr == nil && res == nil {
		subErr = &TransportError{Op: "submit", Err: fmt.Errorf("empty response")}
	}
	if subErr != nil {
		if err := w.phase.Fire(ctx, triggerFail); err != nil {
			return nil, err
		}
		w.failure = newFailure(subErr)
		for field, msg := range w.failure.Fields {
			w.errors[field] = validation.Rejected(msg)
		}
		return nil, w.failure
	}

	if err := w.phase.Fire(ctx, triggerSucceed); err != nil {
		return nil, err
	}
	result := res.clone()
	if result.Status == "" {
		result.Status = StatusPending
	}
	w.completion = newCompletion(result, w.receipts)
	w.attachments.Release()

	out := result.clone()
	return &out, nil
}

// Completion returns the terminal view once the submission succeeded.
func (w *Wizard) Completion() (*Completion, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.completion == nil {
		return nil, ErrNotCompleted
	}
	return w.completion, nil
}

// Close tears the wizard down and releases attachment handles. Calling it
// again is a no-op.
func (w *Wizard) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.phase.State() == PhaseClosed {
		return
	}
	_ = w.phase.Fire(context.Background(), triggerClose)
	w.attachments.Release()
}

func cloneErrors(errs FieldErrors) FieldErrors {
	out := make(FieldErrors, len(errs))
	for k, v := range errs {
		out[k] = v
	}
	return out
}
