package workflow

import (
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/domain/entity"
	domainwf "github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/domain/workflow"
)

// Review triggers
const (
	TriggerAccept domainwf.Trigger = "ACCEPT"
	TriggerReject domainwf.Trigger = "REJECT"
)

// Receipt triggers
const (
	TriggerStart    domainwf.Trigger = "START"
	TriggerComplete domainwf.Trigger = "COMPLETE"
	TriggerFail     domainwf.Trigger = "FAIL"
	TriggerRetry    domainwf.Trigger = "RETRY"
	TriggerRequeue  domainwf.Trigger = "REQUEUE"
)

// NewReviewLifecycle builds the submission review lifecycle:
// PENDING -> ACCEPTED | REJECTED. Both outcomes are terminal.
func NewReviewLifecycle() Lifecycle {
	pending := domainwf.State(entity.SubmissionStatusPending)
	accepted := domainwf.State(entity.SubmissionStatusAccepted)
	rejected := domainwf.State(entity.SubmissionStatusRejected)

	builder := domainwf.NewBuilder(pending, accepted, rejected)
	builder.Configure(pending).
		Permit(TriggerAccept, accepted).
		Permit(TriggerReject, rejected)

	return &lifecycleImpl{name: "review", builder: builder}
}

// NewReceiptLifecycle builds the receipt generation lifecycle:
// PENDING -> GENERATING -> READY | FAILED, FAILED -> PENDING on retry.
// A failure while still PENDING (the snapshot could not be loaded) is
// allowed too. GENERATING -> PENDING requeues work a stopped worker left
// behind.
func NewReceiptLifecycle() Lifecycle {
	pending := domainwf.State(entity.ReceiptStatusPending)
	generating := domainwf.State(entity.ReceiptStatusGenerating)
	ready := domainwf.State(entity.ReceiptStatusReady)
	failed := domainwf.State(entity.ReceiptStatusFailed)

	builder := domainwf.NewBuilder(pending, generating, ready, failed)
	builder.Configure(pending).
		Permit(TriggerStart, generating).
		Permit(TriggerFail, failed)
	builder.Configure(generating).
		Permit(TriggerComplete, ready).
		Permit(TriggerFail, failed).
		Permit(TriggerRequeue, pending)
	builder.Configure(failed).
		Permit(TriggerRetry, pending)

	return &lifecycleImpl{name: "receipt", builder: builder}
}
