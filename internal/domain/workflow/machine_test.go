package workflow

import (
	"context"
	"errors"
	"testing"
)

const (
	stateDraft     State = "DRAFT"
	stateSending   State = "SENDING"
	stateSent      State = "SENT"
	stateCancelled State = "CANCELLED"

	triggerSend    Trigger = "SEND"
	triggerSucceed Trigger = "SUCCEED"
	triggerFail    Trigger = "FAIL"
	triggerCancel  Trigger = "CANCEL"
)

type ctxKey string

func newTestBuilder() StateMachineBuilder {
	return NewBuilder(stateDraft, stateSending, stateSent, stateCancelled)
}

func TestBuilder_Configure(t *testing.T) {
	builder := newTestBuilder()

	config := builder.Configure(stateDraft)
	if config == nil {
		t.Fatal("Configure() returned nil")
	}

	if config2 := builder.Configure(stateDraft); config != config2 {
		t.Error("Configure() should return same config for same state")
	}
}

func TestBuilder_ConfigurePanicsOnUndeclaredState(t *testing.T) {
	builder := newTestBuilder()

	defer func() {
		if r := recover(); r == nil {
			t.Error("Configure() should panic on undeclared state")
		}
	}()

	builder.Configure(State("INVALID"))
}

func TestBuilder_BuildPanicsOnInvalidInitialState(t *testing.T) {
	builder := newTestBuilder()

	defer func() {
		if r := recover(); r == nil {
			t.Error("Build() should panic on invalid initial state")
		}
	}()

	builder.Build(State("INVALID"))
}

func TestNewBuilder_PanicsOnEmptyState(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("NewBuilder() should panic on empty state")
		}
	}()

	NewBuilder(stateDraft, "")
}

func TestStateConfiguration_PermitPanicsOnInvalidTarget(t *testing.T) {
	builder := newTestBuilder()

	defer func() {
		if r := recover(); r == nil {
			t.Error("Permit() should panic on invalid target state")
		}
	}()

	builder.Configure(stateDraft).Permit(triggerSend, State("INVALID"))
}

func TestStateConfiguration_Permit(t *testing.T) {
	builder := newTestBuilder()
	builder.Configure(stateDraft).Permit(triggerSend, stateSending)

	machine := builder.Build(stateDraft)

	if !machine.CanFire(triggerSend) {
		t.Error("CanFire() should return true for permitted trigger")
	}
	if err := machine.Fire(context.Background(), triggerSend); err != nil {
		t.Errorf("Fire() failed: %v", err)
	}
	if machine.State() != stateSending {
		t.Errorf("State after Fire() = %v, want %v", machine.State(), stateSending)
	}
}

func TestStateConfiguration_PermitIf_GuardFails(t *testing.T) {
	builder := newTestBuilder()
	builder.Configure(stateDraft).
		PermitIf(triggerSend, stateSending, func(ctx context.Context) bool { return false })

	machine := builder.Build(stateDraft)

	err := machine.Fire(context.Background(), triggerSend)
	if !errors.Is(err, ErrGuardFailed) {
		t.Fatalf("Fire() error = %v, want %v", err, ErrGuardFailed)
	}
	if machine.State() != stateDraft {
		t.Errorf("State should remain %v after failed Fire(), got %v", stateDraft, machine.State())
	}
}

func TestStateConfiguration_PermitIf_FirstPassingGuardWins(t *testing.T) {
	builder := newTestBuilder()
	builder.Configure(stateDraft).
		PermitIf(triggerSend, stateSent, func(ctx context.Context) bool {
			return ctx.Value(ctxKey("direct")) == true
		}).
		PermitIf(triggerSend, stateSending, nil)

	direct := builder.Build(stateDraft)
	ctx := context.WithValue(context.Background(), ctxKey("direct"), true)
	if err := direct.Fire(ctx, triggerSend); err != nil {
		t.Fatalf("Fire() failed: %v", err)
	}
	if direct.State() != stateSent {
		t.Errorf("State = %v, want %v", direct.State(), stateSent)
	}

	queued := builder.Build(stateDraft)
	if err := queued.Fire(context.Background(), triggerSend); err != nil {
		t.Fatalf("Fire() failed: %v", err)
	}
	if queued.State() != stateSending {
		t.Errorf("State = %v, want %v", queued.State(), stateSending)
	}
}

func TestStateMachine_Fire_InvalidTransition(t *testing.T) {
	builder := newTestBuilder()
	builder.Configure(stateDraft).Permit(triggerSend, stateSending)

	machine := builder.Build(stateDraft)

	err := machine.Fire(context.Background(), triggerSucceed)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Fire() error = %v, want %v", err, ErrInvalidTransition)
	}

	// unconfigured state
	err = builder.Build(stateSent).Fire(context.Background(), triggerSend)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Fire() error = %v, want %v", err, ErrInvalidTransition)
	}
}

func TestStateMachine_PermittedTriggersSorted(t *testing.T) {
	builder := newTestBuilder()
	builder.Configure(stateSending).
		Permit(triggerSucceed, stateSent).
		Permit(triggerFail, stateDraft).
		Permit(triggerCancel, stateCancelled)

	got := builder.Build(stateSending).PermittedTriggers()
	want := []Trigger{triggerCancel, triggerFail, triggerSucceed}
	if len(got) != len(want) {
		t.Fatalf("PermittedTriggers() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("PermittedTriggers()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestStateMachine_IsTerminal(t *testing.T) {
	builder := newTestBuilder()
	builder.Configure(stateDraft).Permit(triggerSend, stateSending)

	if builder.Build(stateDraft).IsTerminal() {
		t.Error("DRAFT has outgoing transitions and must not be terminal")
	}
	if !builder.Build(stateSent).IsTerminal() {
		t.Error("SENT has no outgoing transitions and must be terminal")
	}
}

func TestStateMachine_Independence(t *testing.T) {
	builder := newTestBuilder()
	builder.Configure(stateDraft).Permit(triggerSend, stateSending)

	machine1 := builder.Build(stateDraft)
	machine2 := builder.Build(stateDraft)

	if err := machine1.Fire(context.Background(), triggerSend); err != nil {
		t.Fatalf("Fire() failed: %v", err)
	}
	if machine2.State() != stateDraft {
		t.Errorf("machine2 state = %v, want %v (machines should be independent)", machine2.State(), stateDraft)
	}

	// configuring after Build must not leak into built machines
	builder.Configure(stateDraft).Permit(triggerCancel, stateCancelled)
	if machine2.CanFire(triggerCancel) {
		t.Error("machine2 should not see transitions configured after Build()")
	}
}

func TestStateMachine_RetryLoop(t *testing.T) {
	builder := newTestBuilder()
	builder.Configure(stateDraft).Permit(triggerSend, stateSending)
	builder.Configure(stateSending).
		Permit(triggerSucceed, stateSent).
		Permit(triggerFail, stateDraft)

	machine := builder.Build(stateDraft)
	steps := []struct {
		trigger Trigger
		want    State
	}{
		{triggerSend, stateSending},
		{triggerFail, stateDraft},
		{triggerSend, stateSending},
		{triggerSucceed, stateSent},
	}

	for i, step := range steps {
		if err := machine.Fire(context.Background(), step.trigger); err != nil {
			t.Fatalf("step %d: Fire(%v) failed: %v", i, step.trigger, err)
		}
		if machine.State() != step.want {
			t.Errorf("step %d: State = %v, want %v", i, machine.State(), step.want)
		}
	}
}

func TestRestore(t *testing.T) {
	builder := newTestBuilder()

	machine, err := Restore(builder, stateSent)
	if err != nil {
		t.Fatalf("Restore() failed: %v", err)
	}
	if machine.State() != stateSent {
		t.Errorf("State = %v, want %v", machine.State(), stateSent)
	}

	if _, err := Restore(builder, State("bogus")); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Restore() error = %v, want %v", err, ErrInvalidState)
	}
}
