package resource

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"

	"github.com/garyjia/payment-portal/internal/domain/entity"
	"github.com/garyjia/payment-portal/internal/domain/workflow"
)

// DefaultCurrency is used when a request carries no vendor currency
const DefaultCurrency = "USD"

const dateLayout = "2006-01-02"

var entityNames = map[int64]string{
	1: "FGI",
	2: "FGC",
	3: "FGG",
}

var currencySymbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
	"PHP": "₱",
	"SGD": "S$",
	"HKD": "HK$",
	"CNY": "CN¥",
}

// EntityName maps an entity id to its short code
func EntityName(id int64) string {
	if name, ok := entityNames[id]; ok {
		return name
	}
	return fmt.Sprintf("Entity %d", id)
}

// FormatCurrency renders amount with two decimals, thousands grouping and the
// currency symbol, e.g. "$1,234.50". An empty code means USD. Codes that are
// not ISO 4217 are rendered as a prefix without validation; an amount that is
// not a decimal is returned unchanged.
func FormatCurrency(amount, code string) string {
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return amount
	}

	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		code = DefaultCurrency
	}

	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	whole, frac, _ := strings.Cut(d.StringFixed(2), ".")

	return sign + currencyPrefix(code) + groupThousands(whole) + "." + frac
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

func currencyPrefix(code string) string {
	if sym, ok := currencySymbols[code]; ok {
		return sym
	}
	if unit, err := currency.ParseISO(code); err == nil {
		return unit.String() + " "
	}
	return code + " "
}

// ValidCurrency reports whether code is a known ISO 4217 currency
func ValidCurrency(code string) bool {
	_, err := currency.ParseISO(strings.TrimSpace(code))
	return err == nil
}

// RequestNo renders the display number of a request
func RequestNo(id int64) string {
	return fmt.Sprintf("REQ-%06d", id)
}

// Contact is who currently holds a request
type Contact struct {
	Name  string
	Stage string
}

// PointOfContact returns the performer and stage of the first pending
// approval. ok is false when nothing is pending.
func PointOfContact(approvals []entity.Approval) (contact Contact, ok bool) {
	for i := range approvals {
		if approvals[i].IsPending() {
			name := approvals[i].PerformedByName
			if name == "" && approvals[i].PerformedBy != 0 {
				name = fmt.Sprintf("User %d", approvals[i].PerformedBy)
			}
			return Contact{Name: name, Stage: approvals[i].Stage}, true
		}
	}
	return Contact{}, false
}

// Counts tallies requests by status
type Counts struct {
	Total    int
	Draft    int
	Pending  int
	Returned int
	Approved int
	Rejected int
}

// StatusCounts counts requests by status
func StatusCounts(requests []entity.PaymentRequest) Counts {
	c := Counts{Total: len(requests)}
	for i := range requests {
		switch requests[i].Status {
		case entity.StatusDraft:
			c.Draft++
		case entity.StatusPending:
			c.Pending++
		case entity.StatusReturned:
			c.Returned++
		case entity.StatusApproved:
			c.Approved++
		case entity.StatusRejected:
			c.Rejected++
		}
	}
	return c
}

// RequestRow is one line of the requests table
type RequestRow struct {
	ID             int64
	RequestNo      string
	Entity         string
	PaymentType    string
	PaymentMode    string
	Status         string
	Stage          string
	Currency       string
	Amount         string
	AmountRaw      string
	Initiator      string
	PointOfContact string
	CreatedAt      string
}

// RequestRows reshapes requests into table rows, keeping server order
func RequestRows(requests []entity.PaymentRequest) []RequestRow {
	rows := make([]RequestRow, 0, len(requests))
	for i := range requests {
		rows = append(rows, requestRow(&requests[i]))
	}
	return rows
}

func requestRow(r *entity.PaymentRequest) RequestRow {
	cur := RequestCurrency(r)
	row := RequestRow{
		ID:          r.RequestID,
		RequestNo:   RequestNo(r.RequestID),
		Entity:      EntityName(int64(r.EntityID)),
		PaymentType: entity.PaymentTypeLabel(r.PaymentType),
		PaymentMode: r.PaymentMode,
		Status:      r.Status,
		Stage:       r.CurrentStage,
		Currency:    cur,
		Amount:      FormatCurrency(r.TotalAmount.String(), cur),
		AmountRaw:   r.TotalAmount.String(),
		Initiator:   r.InitiatorName,
	}
	if contact, ok := PointOfContact(r.Approvals); ok {
		row.PointOfContact = contact.Name
	}
	if !r.CreatedAt.IsZero() {
		row.CreatedAt = r.CreatedAt.Format(dateLayout)
	}
	return row
}

// RequestCurrency returns the currency of the first vendor that names one
func RequestCurrency(r *entity.PaymentRequest) string {
	for i := range r.Vendors {
		if r.Vendors[i].Currency != "" {
			return r.Vendors[i].Currency
		}
	}
	return DefaultCurrency
}

// GLEntryView is one GL line on the detail page
type GLEntryView struct {
	Account     string
	Description string
	Amount      string
	Attachments []string
}

// VendorView is one vendor block on the detail page
type VendorView struct {
	PayeeName         string
	AccountHolderName string
	BankAccount       string
	VatStatus         string
	TIN               string
	InvoiceNumber     string
	InvoiceDate       string
	Currency          string
	Total             string
	GLEntries         []GLEntryView
}

// ApprovalView is one line of the approval trail
type ApprovalView struct {
	Stage           string
	Action          string
	PerformedBy     string
	Timestamp       string
	Remarks         string
	RejectionReason string
}

// Detail is the view model of the request detail page
type Detail struct {
	RequestRow
	Remarks           string
	BankName          string
	BankAccountNumber string
	RoutingNumber     string
	SwiftCode         string
	ChequePayee       string
	ShowBankFields    bool
	ShowChequeFields  bool
	Vendors           []VendorView
	Approvals         []ApprovalView
	// Actions are the lifecycle triggers the request's status permits
	Actions []string
	// TotalsMismatch flags a total_amount that differs from the sum of its
	// GL entries
	TotalsMismatch bool
}

// DetailView reshapes a request for the detail page. The approval trail is
// kept in server order.
func DetailView(r *entity.PaymentRequest) Detail {
	if r == nil {
		return Detail{}
	}
	d := Detail{
		RequestRow:        requestRow(r),
		Remarks:           r.Remarks,
		BankName:          r.BankName,
		BankAccountNumber: r.BankAccountNumber,
		RoutingNumber:     r.RoutingNumber,
		SwiftCode:         r.SwiftCode,
		ChequePayee:       r.ChequePayee,
		ShowBankFields:    entity.UsesBankFields(r.PaymentMode),
		ShowChequeFields:  entity.UsesChequeFields(r.PaymentMode),
		Vendors:           make([]VendorView, 0, len(r.Vendors)),
		Approvals:         make([]ApprovalView, 0, len(r.Approvals)),
		TotalsMismatch:    !r.TotalsConsistent(),
	}

	for i := range r.Vendors {
		d.Vendors = append(d.Vendors, vendorView(&r.Vendors[i]))
	}

	for _, a := range r.Approvals {
		view := ApprovalView{
			Stage:           a.Stage,
			Action:          a.Action,
			PerformedBy:     a.PerformedByName,
			Remarks:         a.Remarks,
			RejectionReason: a.RejectionReason,
		}
		if !a.Timestamp.IsZero() {
			view.Timestamp = a.Timestamp.Format("2006-01-02 15:04")
		}
		d.Approvals = append(d.Approvals, view)
	}

	machine := workflow.NewLifecycleMachine(workflow.State(r.Status), func() bool {
		return finalStagePending(r.Approvals)
	})
	for _, t := range machine.PermittedTriggers() {
		d.Actions = append(d.Actions, t.String())
	}
	return d
}

func vendorView(v *entity.Vendor) VendorView {
	cur := v.Currency
	if cur == "" {
		cur = DefaultCurrency
	}
	view := VendorView{
		PayeeName:         v.PayeeName,
		AccountHolderName: v.AccountHolderName,
		BankAccount:       v.BankAccount,
		VatStatus:         v.VatStatus,
		TIN:               v.TIN,
		InvoiceNumber:     v.InvoiceNumber,
		InvoiceDate:       v.InvoiceDate,
		Currency:          cur,
		GLEntries:         make([]GLEntryView, 0, len(v.GLEntries)),
	}
	if total, ok := v.VendorTotal(); ok {
		view.Total = FormatCurrency(total.String(), cur)
	}
	for _, gl := range v.GLEntries {
		glView := GLEntryView{
			Account:     gl.GLAccount,
			Description: gl.Description,
			Amount:      FormatCurrency(gl.Amount.String(), cur),
		}
		for _, att := range gl.Attachments {
			glView.Attachments = append(glView.Attachments, att.File)
		}
		view.GLEntries = append(view.GLEntries, glView)
	}
	return view
}

// finalStagePending reports whether the only pending approval is the last
// one in the trail
func finalStagePending(approvals []entity.Approval) bool {
	pending := -1
	for i := range approvals {
		if approvals[i].IsPending() {
			if pending >= 0 {
				return false
			}
			pending = i
		}
	}
	return pending >= 0 && pending == len(approvals)-1
}
