package form

import (
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/garyjia/payment-portal/pkg/utils"
)

var (
	vendorKey  = regexp.MustCompile(`^vendors\[(\d+)\]\[([a-z_]+)\]$`)
	glEntryKey = regexp.MustCompile(`^vendors\[(\d+)\]\[gl_entries\]\[(\d+)\]\[([a-z_]+)\]$`)
)

// ParseCreateRequest reads a submitted create-request page. Vendor and GL
// inputs use indexed names such as "vendors[0][gl_entries][1][amount]";
// gaps in the indexes are closed in index order. Amounts are kept exactly
// as submitted.
func ParseCreateRequest(values url.Values) *CreateRequestForm {
	f := &CreateRequestForm{
		EntityID:          parseID(values.Get("entity_id")),
		DepartmentID:      parseID(values.Get("department_id")),
		BankName:          utils.SanitizeString(values.Get("bank_name")),
		BankAccountNumber: utils.SanitizeString(values.Get("bank_account_number")),
		RoutingNumber:     utils.SanitizeString(values.Get("routing_number")),
		SwiftCode:         utils.SanitizeString(values.Get("swift_code")),
		ChequePayee:       utils.SanitizeString(values.Get("cheque_payee")),
		Remarks:           utils.SanitizeText(values.Get("remarks")),
		SaveAsDraft:       values.Get("save_as_draft") != "",
	}

	vendors := map[int]*VendorInput{}
	entries := map[int]map[int]*GLEntryInput{}

	vendorAt := func(i int) *VendorInput {
		v, ok := vendors[i]
		if !ok {
			v = &VendorInput{}
			vendors[i] = v
			entries[i] = map[int]*GLEntryInput{}
		}
		return v
	}

	for key, vals := range values {
		if len(vals) == 0 {
			continue
		}
		if m := glEntryKey.FindStringSubmatch(key); m != nil {
			vi, _ := strconv.Atoi(m[1])
			gi, _ := strconv.Atoi(m[2])
			vendorAt(vi)
			gl, ok := entries[vi][gi]
			if !ok {
				gl = &GLEntryInput{}
				entries[vi][gi] = gl
			}
			setGLField(gl, m[3], vals[0])
			continue
		}
		if m := vendorKey.FindStringSubmatch(key); m != nil {
			vi, _ := strconv.Atoi(m[1])
			setVendorField(vendorAt(vi), m[2], vals[0])
		}
	}

	for _, vi := range sortedKeys(vendors) {
		v := vendors[vi]
		for _, gi := range sortedKeys(entries[vi]) {
			v.GLEntries = append(v.GLEntries, *entries[vi][gi])
		}
		f.Vendors = append(f.Vendors, *v)
	}

	// Order matters: the type may prune vendors, the mode clears hidden groups.
	f.SetPaymentType(utils.SanitizeString(values.Get("payment_type")))
	f.SetPaymentMode(utils.SanitizeString(values.Get("payment_mode")))
	return f
}

func setVendorField(v *VendorInput, name, value string) {
	value = utils.SanitizeString(value)
	switch name {
	case "payee_name":
		v.PayeeName = value
	case "account_holder_name":
		v.AccountHolderName = value
	case "bank_account":
		v.BankAccount = value
	case "vat_status":
		v.VatStatus = value
	case "tin":
		v.TIN = value
	case "invoice_number":
		v.InvoiceNumber = value
	case "invoice_date":
		v.InvoiceDate = value
	case "currency":
		v.Currency = strings.ToUpper(value)
	}
}

func setGLField(gl *GLEntryInput, name, value string) {
	switch name {
	case "gl_account":
		gl.GLAccount = utils.SanitizeString(value)
	case "description":
		gl.Description = utils.SanitizeText(value)
	case "amount":
		gl.Amount = value
	}
}

// GLEntryIndex parses a file input name "vendors[i][gl_entries][j][attachments]"
func GLEntryIndex(name string) (vendor, entry int, ok bool) {
	m := glEntryKey.FindStringSubmatch(name)
	if m == nil || m[3] != "attachments" {
		return 0, 0, false
	}
	vendor, _ = strconv.Atoi(m[1])
	entry, _ = strconv.Atoi(m[2])
	return vendor, entry, true
}

// Attach adds a staged file to GL entry entry of vendor vendor. Files for
// entries that do not exist are ignored.
func (f *CreateRequestForm) Attach(vendor, entry int, att Attachment) bool {
	if vendor < 0 || vendor >= len(f.Vendors) {
		return false
	}
	if entry < 0 || entry >= len(f.Vendors[vendor].GLEntries) {
		return false
	}
	gl := &f.Vendors[vendor].GLEntries[entry]
	gl.Attachments = append(gl.Attachments, att)
	return true
}

func parseID(s string) int64 {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id < 0 {
		return 0
	}
	return id
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
