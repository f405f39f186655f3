package wizard

import "github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/domain/workflow"

// Wizard phases.
const (
	PhaseEditing    workflow.State = "EDITING"
	PhaseSubmitting workflow.State = "SUBMITTING"
	PhaseSubmitted  workflow.State = "SUBMITTED"
	PhaseClosed     workflow.State = "CLOSED"
)

const (
	triggerSubmit  workflow.Trigger = "SUBMIT"
	triggerSucceed workflow.Trigger = "SUCCEED"
	triggerFail    workflow.Trigger = "FAIL"
	triggerClose   workflow.Trigger = "CLOSE"
)

var phases = newPhaseBuilder()

func newPhaseBuilder() workflow.StateMachineBuilder {
	b := workflow.NewBuilder(PhaseEditing, PhaseSubmitting, PhaseSubmitted, PhaseClosed)

	b.Configure(PhaseEditing).
		Permit(triggerSubmit, PhaseSubmitting).
		Permit(triggerClose, PhaseClosed)

	b.Configure(PhaseSubmitting).
		Permit(triggerSucceed, PhaseSubmitted).
		Permit(triggerFail, PhaseEditing).
		Permit(triggerClose, PhaseClosed)

	b.Configure(PhaseSubmitted).
		Permit(triggerClose, PhaseClosed)

	return b
}
