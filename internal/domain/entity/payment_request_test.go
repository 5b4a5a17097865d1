package entity

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAmount_DecodesStringsAndNumbers(t *testing.T) {
	var gl GLEntry
	require.NoError(t, json.Unmarshal([]byte(`{"Amount":"1234.50"}`), &gl))
	assert.Equal(t, Amount("1234.50"), gl.Amount)

	require.NoError(t, json.Unmarshal([]byte(`{"Amount":1234.5}`), &gl))
	assert.Equal(t, Amount("1234.5"), gl.Amount)

	require.NoError(t, json.Unmarshal([]byte(`{"Amount":null}`), &gl))
	assert.Equal(t, Amount(""), gl.Amount)
}

func TestAmount_EncodesAsString(t *testing.T) {
	out, err := json.Marshal(GLEntry{GLAccount: "6100", Amount: "0.10"})
	require.NoError(t, err)
	assert.Contains(t, string(out), `"Amount":"0.10"`)
}

func TestAmount_Decimal(t *testing.T) {
	d, err := Amount(" 10.25 ").Decimal()
	require.NoError(t, err)
	assert.Equal(t, "10.25", d.String())

	zero, err := Amount("").Decimal()
	require.NoError(t, err)
	assert.True(t, zero.IsZero())

	_, err = Amount("ten").Decimal()
	assert.Error(t, err)
}

func TestPaymentRequest_TotalsConsistent(t *testing.T) {
	req := PaymentRequest{
		TotalAmount: "300.30",
		Vendors: []Vendor{
			{GLEntries: []GLEntry{{Amount: "100.10"}, {Amount: "100.10"}}},
			{GLEntries: []GLEntry{{Amount: "100.10"}}},
		},
	}
	assert.True(t, req.TotalsConsistent())

	req.TotalAmount = "300.31"
	assert.False(t, req.TotalsConsistent())

	req.TotalAmount = "300.30"
	req.Vendors[1].GLEntries[0].Amount = "abc"
	assert.False(t, req.TotalsConsistent())
}

func TestPaymentRequest_DecodesAPIPayload(t *testing.T) {
	payload := `{
		"RequestId": 42,
		"EntityId": 2,
		"PaymentMode": "Wire",
		"PaymentType": "credit_card",
		"Status": "Pending",
		"current_stage": "Finance Review",
		"total_amount": "250.00",
		"created_at": "2024-03-01T08:15:00.123456",
		"Vendors": [{"PayeeName": "Acme", "VatStatus": "Vatable", "Currency": "PHP",
			"GLEntries": [{"GLAccount": "6100", "Description": "Cards", "Amount": 250,
				"Attachments": [{"AttachmentId": 9, "File": "/media/a.pdf"}]}]}],
		"approvals": [{"ApprovalId": 1, "stage": "Finance Review", "action": "Pending",
			"performed_by": 7, "timestamp": "2024-03-01T09:00:00Z"}]
	}`

	var req PaymentRequest
	require.NoError(t, json.Unmarshal([]byte(payload), &req))

	assert.Equal(t, int64(42), req.RequestID)
	assert.Equal(t, "Finance Review", req.CurrentStage)
	assert.Equal(t, 2024, req.CreatedAt.Year())
	require.Len(t, req.Vendors, 1)
	assert.Equal(t, Amount("250"), req.Vendors[0].GLEntries[0].Amount)
	assert.Equal(t, "/media/a.pdf", req.Vendors[0].GLEntries[0].Attachments[0].File)
	require.Len(t, req.Approvals, 1)
	assert.True(t, req.Approvals[0].IsPending())
	assert.True(t, req.TotalsConsistent())
}

func TestTimestamp_RejectsGarbage(t *testing.T) {
	var ts Timestamp
	assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &ts))
	require.NoError(t, json.Unmarshal([]byte(`null`), &ts))
	assert.True(t, ts.IsZero())
}

func TestChoice_AcceptsAllShapes(t *testing.T) {
	var choices PaymentRequestChoices
	payload := `{
		"payment_modes": ["Wire", "Cheque"],
		"payment_types": [["credit_card", "Credit Card"]],
		"vat_statuses": [{"value": "Vatable", "label": "Vatable"}],
		"currencies": [{"value": "USD"}]
	}`
	require.NoError(t, json.Unmarshal([]byte(payload), &choices))

	assert.Equal(t, Choice{Value: "Wire", Label: "Wire"}, choices.PaymentModes[0])
	assert.Equal(t, Choice{Value: "credit_card", Label: "Credit Card"}, choices.PaymentTypes[0])
	assert.Equal(t, "Vatable", choices.VatStatuses[0].Label)
	assert.Equal(t, "USD", choices.Currencies[0].Label)

	var bad Choice
	assert.Error(t, json.Unmarshal([]byte(`["a","b","c"]`), &bad))
}

func TestPaymentTypeRules(t *testing.T) {
	assert.Equal(t, PaymentTypeCreditCard, NormalizePaymentType("Credit Card"))
	assert.Equal(t, PaymentTypeCreditCard, NormalizePaymentType("credit_card"))
	assert.Equal(t, "Staff Reimbursement", PaymentTypeLabel(PaymentTypeStaffReimbursement))

	assert.True(t, AllowsMultipleVendors("Credit Card"))
	assert.True(t, AllowsMultipleVendors(PaymentTypeStaffReimbursement))
	assert.False(t, AllowsMultipleVendors(PaymentTypeVendorPayment))
	assert.False(t, AllowsMultipleVendors("Utilities"))
}

func TestUser_HasRole(t *testing.T) {
	u := User{Role: RoleInitiator, Roles: []string{RoleApprover}}
	assert.True(t, u.HasRole(RoleInitiator))
	assert.True(t, u.HasRole(RoleApprover))
	assert.False(t, u.HasRole(RoleAdmin))
}
