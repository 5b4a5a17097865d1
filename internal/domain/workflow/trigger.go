package workflow

// Trigger represents an event that can cause a state transition
type Trigger string

// Form submission triggers
const (
	TriggerValidate       Trigger = "VALIDATE"
	TriggerValidationFail Trigger = "VALIDATION_FAIL"
	TriggerSubmit         Trigger = "SUBMIT"
	TriggerSucceed        Trigger = "SUCCEED"
	TriggerFail           Trigger = "FAIL"
	TriggerEdit           Trigger = "EDIT"
)

// Payment request lifecycle triggers
const (
	TriggerSend    Trigger = "SEND"
	TriggerApprove Trigger = "APPROVE"
	TriggerReturn  Trigger = "RETURN"
	TriggerReject  Trigger = "REJECT"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
