package workflow

import (
	"context"
	"errors"
	"testing"
)

func TestState_IsTerminal(t *testing.T) {
	tests := []struct {
		state    State
		expected bool
	}{
		{StateEditing, false},
		{StateValidating, false},
		{StateSubmitting, false},
		{StateFailed, false},
		{StateSucceeded, true},
		{StateDraft, false},
		{StatePending, false},
		{StateReturned, false},
		{StateApproved, true},
		{StateRejected, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			if got := tt.state.IsTerminal(); got != tt.expected {
				t.Errorf("State.IsTerminal() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestState_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		state    State
		expected bool
	}{
		{"form state", StateEditing, true},
		{"lifecycle state", StatePending, true},
		{"invalid state", State("INVALID"), false},
		{"empty state", State(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.IsValid(); got != tt.expected {
				t.Errorf("State.IsValid() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestBuilder_ConfigureReturnsSameConfig(t *testing.T) {
	builder := NewBuilder()

	config := builder.Configure(StateEditing)
	if config == nil {
		t.Fatal("Configure() returned nil")
	}

	if config2 := builder.Configure(StateEditing); config != config2 {
		t.Error("Configure() should return same config for same state")
	}
}

func TestBuilder_ConfigurePanicsOnInvalidState(t *testing.T) {
	builder := NewBuilder()

	defer func() {
		if r := recover(); r == nil {
			t.Error("Configure() should panic on invalid state")
		}
	}()

	builder.Configure(State("INVALID"))
}

func TestBuilder_BuildPanicsOnInvalidInitialState(t *testing.T) {
	builder := NewBuilder()

	defer func() {
		if r := recover(); r == nil {
			t.Error("Build() should panic on invalid initial state")
		}
	}()

	builder.Build(State("INVALID"))
}

func TestStateConfiguration_PermitIf_GuardFails(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StateEditing).
		PermitIf(TriggerValidate, StateValidating, func(ctx context.Context) bool {
			return false
		})

	machine := builder.Build(StateEditing)

	err := machine.Fire(context.Background(), TriggerValidate)
	if !errors.Is(err, ErrGuardFailed) {
		t.Fatalf("Fire() error = %v, want %v", err, ErrGuardFailed)
	}

	if machine.State() != StateEditing {
		t.Errorf("State should remain %v after failed Fire(), got %v", StateEditing, machine.State())
	}
}

func TestStateMachine_FireUnconfiguredTrigger(t *testing.T) {
	machine := NewSubmissionMachine()

	err := machine.Fire(context.Background(), TriggerSucceed)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Fire() error = %v, want %v", err, ErrInvalidTransition)
	}
}

func TestSubmissionMachine_HappyPath(t *testing.T) {
	machine := NewSubmissionMachine()
	ctx := context.Background()

	steps := []struct {
		trigger       Trigger
		expectedState State
	}{
		{TriggerValidate, StateValidating},
		{TriggerSubmit, StateSubmitting},
		{TriggerSucceed, StateSucceeded},
	}

	for i, step := range steps {
		if err := machine.Fire(ctx, step.trigger); err != nil {
			t.Fatalf("Step %d: Fire(%v) failed: %v", i, step.trigger, err)
		}
		if machine.State() != step.expectedState {
			t.Errorf("Step %d: State after Fire(%v) = %v, want %v", i, step.trigger, machine.State(), step.expectedState)
		}
	}

	if !machine.State().IsTerminal() {
		t.Error("Final state should be terminal")
	}
	if triggers := machine.PermittedTriggers(); len(triggers) != 0 {
		t.Errorf("Terminal state should have 0 permitted triggers, got %d", len(triggers))
	}
}

func TestSubmissionMachine_FailureReturnsToEditing(t *testing.T) {
	machine := NewSubmissionMachine()
	ctx := context.Background()

	for _, trigger := range []Trigger{TriggerValidate, TriggerSubmit, TriggerFail, TriggerEdit} {
		if err := machine.Fire(ctx, trigger); err != nil {
			t.Fatalf("Fire(%v) failed: %v", trigger, err)
		}
	}

	if machine.State() != StateEditing {
		t.Errorf("State = %v, want %v", machine.State(), StateEditing)
	}
}

func TestSubmissionMachine_ValidationFailureReturnsToEditing(t *testing.T) {
	machine := NewSubmissionMachine()
	ctx := context.Background()

	if err := machine.Fire(ctx, TriggerValidate); err != nil {
		t.Fatalf("Fire(TriggerValidate) failed: %v", err)
	}
	if err := machine.Fire(ctx, TriggerValidationFail); err != nil {
		t.Fatalf("Fire(TriggerValidationFail) failed: %v", err)
	}

	if machine.State() != StateEditing {
		t.Errorf("State = %v, want %v", machine.State(), StateEditing)
	}
}

func TestLifecycleMachine_ApproveDependsOnFinalStage(t *testing.T) {
	ctx := context.Background()

	intermediate := NewLifecycleMachine(StatePending, func() bool { return false })
	if err := intermediate.Fire(ctx, TriggerApprove); err != nil {
		t.Fatalf("Fire(TriggerApprove) failed: %v", err)
	}
	if intermediate.State() != StatePending {
		t.Errorf("State = %v, want %v", intermediate.State(), StatePending)
	}

	final := NewLifecycleMachine(StatePending, func() bool { return true })
	if err := final.Fire(ctx, TriggerApprove); err != nil {
		t.Fatalf("Fire(TriggerApprove) failed: %v", err)
	}
	if final.State() != StateApproved {
		t.Errorf("State = %v, want %v", final.State(), StateApproved)
	}
}

func TestLifecycleMachine_ReturnedCanBeResent(t *testing.T) {
	ctx := context.Background()
	machine := NewLifecycleMachine(StatePending, nil)

	if err := machine.Fire(ctx, TriggerReturn); err != nil {
		t.Fatalf("Fire(TriggerReturn) failed: %v", err)
	}
	if err := machine.Fire(ctx, TriggerSend); err != nil {
		t.Fatalf("Fire(TriggerSend) failed: %v", err)
	}
	if machine.State() != StatePending {
		t.Errorf("State = %v, want %v", machine.State(), StatePending)
	}
}

func TestLifecycleMachine_PermittedTriggers(t *testing.T) {
	machine := NewLifecycleMachine(StatePending, nil)

	got := machine.PermittedTriggers()
	want := []Trigger{TriggerApprove, TriggerReject, TriggerReturn}
	if len(got) != len(want) {
		t.Fatalf("PermittedTriggers() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("PermittedTriggers()[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	if NewLifecycleMachine(StateApproved, nil).CanFire(TriggerApprove) {
		t.Error("Approved request should not accept further approvals")
	}
}

func TestLifecycleMachine_UnknownStatusStartsAsDraft(t *testing.T) {
	machine := NewLifecycleMachine(State("Archived"), nil)
	if machine.State() != StateDraft {
		t.Errorf("State = %v, want %v", machine.State(), StateDraft)
	}
}
