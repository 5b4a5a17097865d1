package form

import (
	"context"
	"errors"
	"fmt"

	"github.com/garyjia/payment-portal/internal/domain/entity"
	"github.com/garyjia/payment-portal/internal/domain/workflow"
	"github.com/garyjia/payment-portal/internal/gateway"
)

// ErrSubmitFailed is returned when the payment API rejected or never
// received the request; the reason has been surfaced as a notice
var ErrSubmitFailed = errors.New("submission failed")

// ErrAlreadySubmitted is returned when Submit is called on a finished flow
var ErrAlreadySubmitted = errors.New("form already submitted")

// Submitter sends the create call
type Submitter interface {
	CreatePaymentRequest(ctx context.Context, s gateway.Scope, payload *entity.CreatePaymentRequest, files []gateway.File) (*entity.PaymentRequest, bool)
}

// Flow drives one submission of a create-request form through
// EDITING -> VALIDATING -> SUBMITTING -> SUCCEEDED | FAILED
type Flow struct {
	form    *CreateRequestForm
	machine workflow.StateMachine
}

// NewFlow starts a flow in EDITING
func NewFlow(f *CreateRequestForm) *Flow {
	return &Flow{
		form:    f,
		machine: workflow.NewSubmissionMachine(),
	}
}

// State returns the current flow state
func (fl *Flow) State() workflow.State {
	return fl.machine.State()
}

// Form returns the form being submitted
func (fl *Flow) Form() *CreateRequestForm {
	return fl.form
}

// Submit validates and sends the form. Validation failures are aggregated
// into one validation notice and return *ValidationErrors with the flow back
// in EDITING. A failed create returns ErrSubmitFailed, also back in EDITING.
func (fl *Flow) Submit(ctx context.Context, api Submitter, s gateway.Scope, user entity.User, d Defaults) (*entity.PaymentRequest, error) {
	if fl.State().IsTerminal() {
		return nil, ErrAlreadySubmitted
	}
	if err := fl.machine.Fire(ctx, workflow.TriggerValidate); err != nil {
		return nil, fmt.Errorf("failed to start validation: %w", err)
	}

	if err := fl.form.Validate(); err != nil {
		if s.Notifier != nil {
			s.Notifier.Notify(gateway.Notice{Kind: gateway.NoticeValidation, Message: err.Error()})
		}
		if ferr := fl.machine.Fire(ctx, workflow.TriggerValidationFail); ferr != nil {
			return nil, fmt.Errorf("failed to return to editing: %w", ferr)
		}
		return nil, err
	}

	if err := fl.machine.Fire(ctx, workflow.TriggerSubmit); err != nil {
		return nil, fmt.Errorf("failed to start submission: %w", err)
	}

	payload, files := fl.form.Payload(user, d)
	created, ok := api.CreatePaymentRequest(ctx, s, payload, files)
	if !ok {
		if err := fl.machine.Fire(ctx, workflow.TriggerFail); err != nil {
			return nil, fmt.Errorf("failed to record failure: %w", err)
		}
		if err := fl.machine.Fire(ctx, workflow.TriggerEdit); err != nil {
			return nil, fmt.Errorf("failed to return to editing: %w", err)
		}
		return nil, ErrSubmitFailed
	}

	if err := fl.machine.Fire(ctx, workflow.TriggerSucceed); err != nil {
		return nil, fmt.Errorf("failed to record success: %w", err)
	}
	return created, nil
}
