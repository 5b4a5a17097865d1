package form

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/text/currency"

	"github.com/garyjia/payment-portal/internal/domain/entity"
	"github.com/garyjia/payment-portal/internal/gateway"
	"github.com/garyjia/payment-portal/pkg/utils"
)

// Attachment is a file staged on disk for hand-off with the create call
type Attachment struct {
	FileName string
	Path     string
}

// GLEntryInput is one GL line as typed
type GLEntryInput struct {
	GLAccount   string       `form:"gl_account" validate:"max=32"`
	Description string       `form:"description" validate:"max=255"`
	Amount      string       `form:"amount" validate:"required"`
	Attachments []Attachment `form:"-"`
}

// VendorInput is one vendor block as typed
type VendorInput struct {
	PayeeName         string         `form:"payee_name" validate:"required,max=255"`
	AccountHolderName string         `form:"account_holder_name" validate:"max=255"`
	BankAccount       string         `form:"bank_account" validate:"max=64"`
	VatStatus         string         `form:"vat_status" validate:"required,oneof=Vatable Non-Vatable"`
	TIN               string         `form:"tin" validate:"max=20"`
	InvoiceNumber     string         `form:"invoice_number" validate:"max=64"`
	InvoiceDate       string         `form:"invoice_date" validate:"omitempty,datetime=2006-01-02"`
	Currency          string         `form:"currency"`
	GLEntries         []GLEntryInput `form:"gl_entries" validate:"min=1,dive"`
}

// CreateRequestForm is the state of the create-request page
type CreateRequestForm struct {
	EntityID          int64         `form:"entity_id"`
	DepartmentID      int64         `form:"department_id"`
	PaymentMode       string        `form:"payment_mode" validate:"required"`
	PaymentType       string        `form:"payment_type" validate:"required"`
	BankName          string        `form:"bank_name" validate:"max=128"`
	BankAccountNumber string        `form:"bank_account_number" validate:"max=64"`
	RoutingNumber     string        `form:"routing_number" validate:"max=32"`
	SwiftCode         string        `form:"swift_code" validate:"omitempty,min=8,max=11"`
	ChequePayee       string        `form:"cheque_payee" validate:"max=255"`
	Remarks           string        `form:"remarks" validate:"max=2000"`
	SaveAsDraft       bool          `form:"save_as_draft"`
	Vendors           []VendorInput `form:"vendors" validate:"dive"`
}

// Defaults fill selections the user left empty. They never override a
// value the user chose.
type Defaults struct {
	EntityID     int64
	DepartmentID int64
	GLAccount    string
	Currency     string
}

var paymentModes = []string{
	entity.PaymentModeWire,
	entity.PaymentModeBankTransfer,
	entity.PaymentModeCheque,
	entity.PaymentModeCash,
}

// NewCreateRequestForm returns an empty form with one vendor and one GL line
func NewCreateRequestForm() *CreateRequestForm {
	return &CreateRequestForm{
		Vendors: []VendorInput{{GLEntries: []GLEntryInput{{}}}},
	}
}

// SetPaymentMode selects the payment mode and clears the field group the
// new mode hides
func (f *CreateRequestForm) SetPaymentMode(mode string) {
	f.PaymentMode = mode
	if !entity.UsesBankFields(mode) {
		f.BankName = ""
		f.BankAccountNumber = ""
		f.RoutingNumber = ""
		f.SwiftCode = ""
	}
	if !entity.UsesChequeFields(mode) {
		f.ChequePayee = ""
	}
}

// SetPaymentType selects the payment type, given as code or label. When the
// new type allows a single vendor the list is pruned to its first entry; the
// number of dropped vendors is returned.
func (f *CreateRequestForm) SetPaymentType(paymentType string) int {
	f.PaymentType = entity.NormalizePaymentType(paymentType)
	if entity.AllowsMultipleVendors(f.PaymentType) || len(f.Vendors) <= 1 {
		return 0
	}
	dropped := len(f.Vendors) - 1
	f.Vendors = f.Vendors[:1]
	return dropped
}

// ShowBankFields reports whether the bank-transfer field group is visible
func (f *CreateRequestForm) ShowBankFields() bool {
	return entity.UsesBankFields(f.PaymentMode)
}

// ShowChequeFields reports whether the cheque field group is visible
func (f *CreateRequestForm) ShowChequeFields() bool {
	return entity.UsesChequeFields(f.PaymentMode)
}

// AllowsMultipleVendors reports whether the vendor list may grow
func (f *CreateRequestForm) AllowsMultipleVendors() bool {
	return entity.AllowsMultipleVendors(f.PaymentType)
}

// AddVendor appends an empty vendor block when the payment type allows it
func (f *CreateRequestForm) AddVendor() bool {
	if len(f.Vendors) > 0 && !f.AllowsMultipleVendors() {
		return false
	}
	f.Vendors = append(f.Vendors, VendorInput{GLEntries: []GLEntryInput{{}}})
	return true
}

// Validate checks every rule and aggregates all failures into one
// *ValidationErrors
func (f *CreateRequestForm) Validate() error {
	errs := &ValidationErrors{}
	collect(errs, f)

	if f.PaymentMode != "" && !contains(paymentModes, f.PaymentMode) {
		errs.add("payment_mode", "Payment mode must be one of: %s", strings.Join(paymentModes, ", "))
	}
	if f.PaymentType != "" && entity.PaymentTypeLabel(f.PaymentType) == f.PaymentType {
		errs.add("payment_type", "Payment type %q is not supported", f.PaymentType)
	}

	if f.ShowBankFields() {
		if f.BankName == "" {
			errs.add("bank_name", "Bank name is required for %s payments", f.PaymentMode)
		}
		if f.BankAccountNumber == "" {
			errs.add("bank_account_number", "Bank account number is required for %s payments", f.PaymentMode)
		}
	}
	if f.ShowChequeFields() && f.ChequePayee == "" {
		errs.add("cheque_payee", "Cheque payee is required for cheque payments")
	}

	switch {
	case len(f.Vendors) == 0:
		errs.add("vendors", "At least one vendor is required")
	case len(f.Vendors) > 1 && !f.AllowsMultipleVendors():
		errs.add("vendors", "%s requests allow only one vendor", entity.PaymentTypeLabel(f.PaymentType))
	}

	for i, v := range f.Vendors {
		prefix := fmt.Sprintf("vendors[%d]", i)
		if v.VatStatus == entity.VatStatusVatable {
			if v.TIN == "" {
				errs.add(prefix+"[tin]", "TIN is required for Vatable vendors")
			} else if err := utils.ValidateTIN(v.TIN); err != nil {
				errs.add(prefix+"[tin]", "TIN %q is not valid", v.TIN)
			}
		}
		if v.Currency != "" {
			if _, err := currency.ParseISO(v.Currency); err != nil {
				errs.add(prefix+"[currency]", "Currency %q is not a valid ISO code", v.Currency)
			}
		}
		for j, gl := range v.GLEntries {
			if gl.Amount == "" {
				continue
			}
			if err := utils.ValidateAmount(gl.Amount); err != nil {
				errs.add(fmt.Sprintf("%s[gl_entries][%d][amount]", prefix, j),
					"Amount %q must be a positive number with at most two decimals", gl.Amount)
			}
		}
	}

	errs.sortBy(createRequestPosition)
	return errs.orNil()
}

// Field order of the create-request page, one list per nesting level
var (
	requestFieldOrder = []string{
		"payment_type", "payment_mode", "entity_id", "department_id",
		"bank_name", "bank_account_number", "routing_number", "swift_code",
		"cheque_payee", "remarks", "vendors",
	}
	vendorFieldOrder = []string{
		"payee_name", "account_holder_name", "bank_account", "vat_status",
		"tin", "invoice_number", "invoice_date", "currency", "gl_entries",
	}
	glEntryFieldOrder = []string{"gl_account", "description", "amount", "attachments"}
)

// createRequestPosition maps a form name such as
// "vendors[1][gl_entries][0][amount]" to its place on the page. Unknown
// names sort last within their level.
func createRequestPosition(field string) []int {
	levels := [][]string{requestFieldOrder, vendorFieldOrder, glEntryFieldOrder}
	parts := strings.Split(strings.ReplaceAll(field, "]", ""), "[")

	key := make([]int, 0, len(parts))
	level := 0
	for _, part := range parts {
		if n, err := strconv.Atoi(part); err == nil {
			key = append(key, n)
			continue
		}
		if level >= len(levels) {
			key = append(key, 0)
			continue
		}
		pos := slices.Index(levels[level], part)
		if pos < 0 {
			pos = len(levels[level])
		}
		key = append(key, pos)
		level++
	}
	return key
}

// Payload assembles the nested create payload. Amounts are copied exactly as
// typed. Each attachment becomes a multipart file whose field name is also
// recorded on its GL entry.
func (f *CreateRequestForm) Payload(user entity.User, d Defaults) (*entity.CreatePaymentRequest, []gateway.File) {
	status := entity.StatusPending
	if f.SaveAsDraft {
		status = entity.StatusDraft
	}

	p := &entity.CreatePaymentRequest{
		CreatedBy:         user.ID,
		EntityID:          int(firstNonZero(f.EntityID, d.EntityID)),
		DepartmentID:      firstNonZero(f.DepartmentID, user.DepartmentID, d.DepartmentID),
		PaymentMode:       f.PaymentMode,
		PaymentType:       entity.NormalizePaymentType(f.PaymentType),
		BankName:          f.BankName,
		BankAccountNumber: f.BankAccountNumber,
		RoutingNumber:     f.RoutingNumber,
		SwiftCode:         f.SwiftCode,
		ChequePayee:       f.ChequePayee,
		Remarks:           f.Remarks,
		Status:            status,
		Vendors:           make([]entity.Vendor, 0, len(f.Vendors)),
	}

	var files []gateway.File
	for i, v := range f.Vendors {
		vendor := entity.Vendor{
			PayeeName:         v.PayeeName,
			AccountHolderName: v.AccountHolderName,
			BankAccount:       v.BankAccount,
			VatStatus:         v.VatStatus,
			TIN:               v.TIN,
			InvoiceNumber:     v.InvoiceNumber,
			InvoiceDate:       v.InvoiceDate,
			Currency:          firstNonEmpty(strings.ToUpper(v.Currency), d.Currency),
			GLEntries:         make([]entity.GLEntry, 0, len(v.GLEntries)),
		}
		for j, gl := range v.GLEntries {
			entry := entity.GLEntry{
				GLAccount:   firstNonEmpty(gl.GLAccount, d.GLAccount),
				Description: gl.Description,
				Amount:      entity.Amount(gl.Amount),
				Attachments: []entity.Attachment{},
			}
			for k, att := range gl.Attachments {
				field := AttachmentField(i, j, k)
				entry.Attachments = append(entry.Attachments, entity.Attachment{File: field})
				files = append(files, gateway.File{Field: field, FileName: att.FileName, Path: att.Path})
			}
			vendor.GLEntries = append(vendor.GLEntries, entry)
		}
		p.Vendors = append(p.Vendors, vendor)
	}
	return p, files
}

// AttachmentField names the multipart part of attachment k of GL entry j of
// vendor i
func AttachmentField(vendor, entry, k int) string {
	return fmt.Sprintf("attachment_%d_%d_%d", vendor, entry, k)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func firstNonZero(values ...int64) int64 {
	for _, v := range values {
		if v != 0 {
			return v
		}
	}
	return 0
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
