package workflow

import "context"

// NewSubmissionMachine returns the create-request form flow:
//
//	EDITING -> VALIDATING -> SUBMITTING -> SUCCEEDED
//	              |              |
//	              v              v
//	           EDITING         FAILED -> EDITING
func NewSubmissionMachine() StateMachine {
	b := NewBuilder()
	b.Configure(StateEditing).
		Permit(TriggerValidate, StateValidating)
	b.Configure(StateValidating).
		Permit(TriggerSubmit, StateSubmitting).
		Permit(TriggerValidationFail, StateEditing)
	b.Configure(StateSubmitting).
		Permit(TriggerSucceed, StateSucceeded).
		Permit(TriggerFail, StateFailed)
	b.Configure(StateFailed).
		Permit(TriggerEdit, StateEditing)
	return b.Build(StateEditing)
}

// NewLifecycleMachine returns the advisory payment request lifecycle starting
// at status. finalStage reports whether the stage awaiting action is the last
// one; an approval on a non-final stage keeps the request Pending. The API
// remains the authority on every transition.
func NewLifecycleMachine(status State, finalStage func() bool) StateMachine {
	isFinal := func(ctx context.Context) bool { return finalStage != nil && finalStage() }
	notFinal := func(ctx context.Context) bool { return !isFinal(ctx) }

	b := NewBuilder()
	b.Configure(StateDraft).
		Permit(TriggerSend, StatePending)
	b.Configure(StatePending).
		PermitIf(TriggerApprove, StateApproved, isFinal).
		PermitIf(TriggerApprove, StatePending, notFinal).
		Permit(TriggerReturn, StateReturned).
		Permit(TriggerReject, StateRejected)
	b.Configure(StateReturned).
		Permit(TriggerSend, StatePending)

	if !status.IsValid() {
		status = StateDraft
	}
	return b.Build(status)
}
