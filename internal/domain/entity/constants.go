package entity

// Status constants for PaymentRequest
const (
	StatusDraft    = "Draft"
	StatusPending  = "Pending"
	StatusReturned = "Returned"
	StatusApproved = "Approved"
	StatusRejected = "Rejected"
)

// Payment mode constants
const (
	PaymentModeWire         = "Wire"
	PaymentModeBankTransfer = "Bank Transfer"
	PaymentModeCheque       = "Cheque"
	PaymentModeCash         = "Cash"
)

// Payment type codes as the API reports them
const (
	PaymentTypeCreditCard         = "credit_card"
	PaymentTypeStaffReimbursement = "staff_reimbursement"
	PaymentTypeVendorPayment      = "vendor_payment"
	PaymentTypeCashAdvance        = "cash_advance"
	PaymentTypeUtilities          = "utilities"
)

// VAT status constants for Vendor
const (
	VatStatusVatable    = "Vatable"
	VatStatusNonVatable = "Non-Vatable"
)

// Approval action constants
const (
	ApprovalActionPending  = "Pending"
	ApprovalActionApproved = "Approved"
	ApprovalActionRejected = "Rejected"
)

// Role constants
const (
	RoleAdmin     = "admin"
	RoleApprover  = "approver"
	RoleInitiator = "initiator"
)

var paymentTypeLabels = map[string]string{
	PaymentTypeCreditCard:         "Credit Card",
	PaymentTypeStaffReimbursement: "Staff Reimbursement",
	PaymentTypeVendorPayment:      "Vendor Payment",
	PaymentTypeCashAdvance:        "Cash Advance",
	PaymentTypeUtilities:          "Utilities",
}

// PaymentTypeLabel returns the display label for a payment type code.
// Unknown codes are returned unchanged.
func PaymentTypeLabel(code string) string {
	if label, ok := paymentTypeLabels[code]; ok {
		return label
	}
	return code
}

// NormalizePaymentType accepts either a code ("credit_card") or a label
// ("Credit Card") and returns the code. Unknown values are returned unchanged.
func NormalizePaymentType(value string) string {
	if _, ok := paymentTypeLabels[value]; ok {
		return value
	}
	for code, label := range paymentTypeLabels {
		if label == value {
			return code
		}
	}
	return value
}

// AllowsMultipleVendors reports whether a payment type may carry more than one vendor
func AllowsMultipleVendors(paymentType string) bool {
	switch NormalizePaymentType(paymentType) {
	case PaymentTypeCreditCard, PaymentTypeStaffReimbursement:
		return true
	default:
		return false
	}
}

// UsesBankFields reports whether a payment mode needs bank/routing details
func UsesBankFields(mode string) bool {
	return mode == PaymentModeWire || mode == PaymentModeBankTransfer
}

// UsesChequeFields reports whether a payment mode needs cheque details
func UsesChequeFields(mode string) bool {
	return mode == PaymentModeCheque
}
