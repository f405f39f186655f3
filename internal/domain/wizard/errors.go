package wizard

import (
	"errors"
	"fmt"
)

var (
	ErrNoSteps            = errors.New("wizard has no steps")
	ErrDuplicateStep      = errors.New("duplicate step id")
	ErrStepNotOptional    = errors.New("step is not optional")
	ErrStepIncomplete     = errors.New("final step has validation errors")
	ErrNotAtFinalStep     = errors.New("submission is only allowed from the final step")
	ErrSubmissionInFlight = errors.New("a submission is already in flight")
	ErrAlreadySubmitted   = errors.New("wizard already submitted")
	ErrClosed             = errors.New("wizard closed")
	ErrUploadsNotAccepted = errors.New("current step does not accept uploads")
	ErrFieldNotOwned      = errors.New("field does not belong to the current step")
	ErrReceiptNotFailed   = errors.New("receipt generation has not failed")
	ErrNotCompleted       = errors.New("wizard has no completed submission")
)

// FailureKind separates a refused submission from an unreachable collaborator.
type FailureKind string

const (
	FailureSubmission FailureKind = "submission"
	FailureTransport  FailureKind = "transport"
)

// RejectedError is returned by a collaborator that received the request and
// refused it, e.g. a duplicate or malformed submission.
type RejectedError struct {
	Message string
	Fields  map[string]string
}

func (e *RejectedError) Error() string {
	return "submission rejected: " + e.Message
}

// TransportError is returned when the collaborator could not be reached or
// did not answer in time.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ClassifyFailure maps a collaborator error to the kind the user is shown.
// Anything that is not an explicit rejection is treated as transport.
func ClassifyFailure(err error) FailureKind {
	var rejected *RejectedError
	if errors.As(err, &rejected) {
		return FailureSubmission
	}
	return FailureTransport
}

// Failure is the retryable error recorded by a failed SubmitFinal. The
// aggregate data is untouched.
type Failure struct {
	Kind    FailureKind       `json:"kind"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
	Err     error             `json:"-"`
}

func newFailure(err error) *Failure {
	f := &Failure{Kind: ClassifyFailure(err), Err: err}
	var rejected *RejectedError
	if errors.As(err, &rejected) {
		f.Message = rejected.Message
		f.Fields = rejected.Fields
	} else {
		f.Message = err.Error()
	}
	return f
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s failure: %s", f.Kind, f.Message)
}

func (f *Failure) Unwrap() error {
	return f.Err
}
