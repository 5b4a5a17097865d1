package resource

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/payment-portal/internal/domain/entity"
)

func TestEntityName(t *testing.T) {
	tests := []struct {
		id   int64
		want string
	}{
		{1, "FGI"},
		{2, "FGC"},
		{3, "FGG"},
		{0, "Entity 0"},
		{4, "Entity 4"},
		{99, "Entity 99"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, EntityName(tt.id))
	}
}

func TestFormatCurrency(t *testing.T) {
	assert.Equal(t, "$1,234.50", FormatCurrency("1234.5", "USD"))
	assert.Equal(t, "$999.00", FormatCurrency("999", "USD"))
	assert.Equal(t, "$1,000,000.00", FormatCurrency("1000000", "USD"))
	assert.Equal(t, "$12,345,678,901,234,567.89", FormatCurrency("12345678901234567.89", "USD"))
	assert.Equal(t, "-$98,765,432,109,876,543.21", FormatCurrency("-98765432109876543.21", "USD"))
	assert.Regexp(t, `^\$0\.00$`, FormatCurrency("0", ""))
	assert.Regexp(t, `^\$12\.35$`, FormatCurrency("12.345", "usd"))
	assert.Regexp(t, `^-\$5\.00$`, FormatCurrency("-5", "USD"))
	assert.Regexp(t, `^€10\.00$`, FormatCurrency("10", "EUR"))
	assert.Regexp(t, `^CHF 10\.00$`, FormatCurrency("10", "CHF"))
	assert.Equal(t, "n/a", FormatCurrency("n/a", "USD"))
}

func TestValidCurrency(t *testing.T) {
	assert.True(t, ValidCurrency("USD"))
	assert.True(t, ValidCurrency("php"))
	assert.False(t, ValidCurrency("DOLLARS"))
	assert.False(t, ValidCurrency(""))
}

func TestRequestNo(t *testing.T) {
	assert.Equal(t, "REQ-000042", RequestNo(42))
	assert.Equal(t, "REQ-000001", RequestNo(1))
	assert.Equal(t, "REQ-1234567", RequestNo(1234567))
}

func TestPointOfContact(t *testing.T) {
	approvals := []entity.Approval{
		{Stage: "Department Head", Action: entity.ApprovalActionApproved, PerformedByName: "Ben"},
		{Stage: "Finance", Action: entity.ApprovalActionPending, PerformedByName: "Cora"},
		{Stage: "CFO", Action: entity.ApprovalActionPending, PerformedByName: "Dan"},
	}

	contact, ok := PointOfContact(approvals)
	require.True(t, ok)
	assert.Equal(t, Contact{Name: "Cora", Stage: "Finance"}, contact)

	_, ok = PointOfContact(approvals[:1])
	assert.False(t, ok)

	_, ok = PointOfContact(nil)
	assert.False(t, ok)
}

func TestStatusCounts(t *testing.T) {
	requests := []entity.PaymentRequest{
		{Status: entity.StatusDraft},
		{Status: entity.StatusPending},
		{Status: entity.StatusPending},
		{Status: entity.StatusApproved},
		{Status: entity.StatusRejected},
	}
	assert.Equal(t, Counts{Total: 5, Draft: 1, Pending: 2, Approved: 1, Rejected: 1}, StatusCounts(requests))
	assert.Equal(t, Counts{}, StatusCounts(nil))
}

const detailJSON = `{
	"RequestId": 42,
	"EntityId": 1,
	"PaymentMode": "Cheque",
	"PaymentType": "credit_card",
	"ChequePayee": "Acme",
	"Status": "Pending",
	"current_stage": "Finance",
	"total_amount": "150.00",
	"created_at": "2024-03-01T09:30:00Z",
	"Vendors": [{
		"PayeeName": "Acme",
		"VatStatus": "Vatable",
		"TIN": "123",
		"Currency": "PHP",
		"GLEntries": [
			{"GLAccount": "6100", "Description": "Paper", "Amount": "100.00", "Attachments": [{"File": "/media/a.pdf"}]},
			{"GLAccount": "6200", "Description": "Ink", "Amount": 50}
		]
	}],
	"approvals": [
		{"stage": "Department Head", "action": "Approved", "performed_by_name": "Ben", "timestamp": "2024-03-02T10:00:00Z"},
		{"stage": "Finance", "action": "Pending", "performed_by_name": "Cora"}
	]
}`

func TestDetailView(t *testing.T) {
	var req entity.PaymentRequest
	require.NoError(t, json.Unmarshal([]byte(detailJSON), &req))

	d := DetailView(&req)
	assert.Equal(t, "REQ-000042", d.RequestNo)
	assert.Equal(t, "FGI", d.Entity)
	assert.Equal(t, "Credit Card", d.PaymentType)
	assert.Equal(t, "PHP", d.Currency)
	assert.Equal(t, "₱150.00", d.Amount)
	assert.Equal(t, "Cora", d.PointOfContact)
	assert.Equal(t, "2024-03-01", d.CreatedAt)
	assert.True(t, d.ShowChequeFields)
	assert.False(t, d.ShowBankFields)
	assert.False(t, d.TotalsMismatch)

	require.Len(t, d.Vendors, 1)
	assert.Equal(t, "₱150.00", d.Vendors[0].Total)
	require.Len(t, d.Vendors[0].GLEntries, 2)
	assert.Equal(t, []string{"/media/a.pdf"}, d.Vendors[0].GLEntries[0].Attachments)

	require.Len(t, d.Approvals, 2)
	assert.Equal(t, "Department Head", d.Approvals[0].Stage)
	assert.Equal(t, "2024-03-02 10:00", d.Approvals[0].Timestamp)
	assert.Equal(t, "Finance", d.Approvals[1].Stage)

	assert.ElementsMatch(t, []string{"APPROVE", "RETURN", "REJECT"}, d.Actions)
}

func TestDetailView_NilAndMismatch(t *testing.T) {
	assert.Equal(t, Detail{}, DetailView(nil))

	req := entity.PaymentRequest{
		RequestID:   1,
		Status:      entity.StatusApproved,
		TotalAmount: "99",
		Vendors: []entity.Vendor{{
			GLEntries: []entity.GLEntry{{Amount: "10"}},
		}},
	}
	d := DetailView(&req)
	assert.True(t, d.TotalsMismatch)
	assert.Empty(t, d.Actions)
	assert.Equal(t, "USD", d.Currency)
}

func TestFinalStagePending(t *testing.T) {
	assert.True(t, finalStagePending([]entity.Approval{
		{Action: entity.ApprovalActionApproved},
		{Action: entity.ApprovalActionPending},
	}))
	assert.False(t, finalStagePending([]entity.Approval{
		{Action: entity.ApprovalActionPending},
		{Action: entity.ApprovalActionPending},
	}))
	assert.False(t, finalStagePending(nil))
}
