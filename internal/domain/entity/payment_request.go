package entity

import "github.com/shopspring/decimal"

// PaymentRequest is the aggregate the payment API owns. The portal holds
// read-only copies.
type PaymentRequest struct {
	RequestID         int64      `json:"RequestId"`
	InitiatorID       int64      `json:"InitiatorId"`
	InitiatorName     string     `json:"initiator_name,omitempty"`
	EntityID          int        `json:"EntityId"`
	PaymentMode       string     `json:"PaymentMode"`
	PaymentType       string     `json:"PaymentType"`
	DepartmentID      int64      `json:"DepartmentId"`
	DepartmentHeadID  int64      `json:"DepartmentHeadId"`
	BankName          string     `json:"BankName,omitempty"`
	BankAccountNumber string     `json:"BankAccountNumber,omitempty"`
	RoutingNumber     string     `json:"RoutingNumber,omitempty"`
	SwiftCode         string     `json:"SwiftCode,omitempty"`
	ChequePayee       string     `json:"ChequePayee,omitempty"`
	Remarks           string     `json:"Remarks,omitempty"`
	Status            string     `json:"Status"`
	CurrentStage      string     `json:"current_stage"`
	TotalAmount       Amount     `json:"total_amount"`
	Vendors           []Vendor   `json:"Vendors"`
	Approvals         []Approval `json:"approvals"`
	CreatedAt         Timestamp  `json:"created_at"`
	UpdatedAt         Timestamp  `json:"updated_at"`
}

// Vendor belongs to exactly one PaymentRequest
type Vendor struct {
	VendorID          int64     `json:"VendorId,omitempty"`
	PayeeName         string    `json:"PayeeName"`
	AccountHolderName string    `json:"AccountHolderName"`
	BankAccount       string    `json:"BankAccount"`
	VatStatus         string    `json:"VatStatus"`
	TIN               string    `json:"TIN,omitempty"`
	InvoiceNumber     string    `json:"InvoiceNumber,omitempty"`
	InvoiceDate       string    `json:"InvoiceDate,omitempty"`
	Currency          string    `json:"Currency"`
	GLEntries         []GLEntry `json:"GLEntries"`
}

// GLEntry belongs to exactly one Vendor
type GLEntry struct {
	GLEntryID   int64        `json:"GLEntryId,omitempty"`
	GLAccount   string       `json:"GLAccount"`
	Description string       `json:"Description"`
	Amount      Amount       `json:"Amount"`
	Attachments []Attachment `json:"Attachments"`
}

// Attachment belongs to exactly one GLEntry. File is a URL or path, or the
// multipart field name of a file handed off with the create call.
type Attachment struct {
	AttachmentID int64  `json:"AttachmentId,omitempty"`
	File         string `json:"File"`
}

// Approval is one stage transition. Approvals are append-only and
// server-ordered.
type Approval struct {
	ApprovalID      int64     `json:"ApprovalId"`
	Stage           string    `json:"stage"`
	Action          string    `json:"action"`
	PerformedBy     int64     `json:"performed_by"`
	PerformedByName string    `json:"performed_by_name,omitempty"`
	Timestamp       Timestamp `json:"timestamp"`
	Remarks         string    `json:"remarks,omitempty"`
	RejectionReason string    `json:"rejection_reason,omitempty"`
}

// IsPending returns true if the approval still awaits action
func (a *Approval) IsPending() bool {
	return a.Action == ApprovalActionPending
}

// VendorTotal sums the GL-entry amounts of a vendor. Unparseable amounts are
// skipped and reported through ok=false.
func (v *Vendor) VendorTotal() (total decimal.Decimal, ok bool) {
	ok = true
	for _, gl := range v.GLEntries {
		d, err := gl.Amount.Decimal()
		if err != nil {
			ok = false
			continue
		}
		total = total.Add(d)
	}
	return total, ok
}

// TotalsConsistent reports whether total_amount equals the sum of all GL
// entries. The server owns the total; this is for diagnostics only.
func (r *PaymentRequest) TotalsConsistent() bool {
	total, err := r.TotalAmount.Decimal()
	if err != nil {
		return false
	}
	sum := decimal.Zero
	for i := range r.Vendors {
		vt, ok := r.Vendors[i].VendorTotal()
		if !ok {
			return false
		}
		sum = sum.Add(vt)
	}
	return sum.Equal(total)
}

// CreatePaymentRequest is the nested payload sent to POST /payment-requests/
type CreatePaymentRequest struct {
	CreatedBy         int64    `json:"CreatedBy"`
	EntityID          int      `json:"EntityId"`
	DepartmentID      int64    `json:"DepartmentId"`
	PaymentMode       string   `json:"PaymentMode"`
	PaymentType       string   `json:"PaymentType"`
	BankName          string   `json:"BankName,omitempty"`
	BankAccountNumber string   `json:"BankAccountNumber,omitempty"`
	RoutingNumber     string   `json:"RoutingNumber,omitempty"`
	SwiftCode         string   `json:"SwiftCode,omitempty"`
	ChequePayee       string   `json:"ChequePayee,omitempty"`
	Remarks           string   `json:"Remarks,omitempty"`
	Status            string   `json:"Status"`
	Vendors           []Vendor `json:"Vendors"`
}

// ApprovalDecision is the body of approve/reject calls
type ApprovalDecision struct {
	Remarks         string `json:"remarks,omitempty"`
	RejectionReason string `json:"rejection_reason,omitempty"`
}
