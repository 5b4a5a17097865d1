package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/payment-portal/internal/resource"
)

func TestRequestsExporter_Write(t *testing.T) {
	rows := []resource.RequestRow{
		{RequestNo: "REQ-000042", Entity: "FGC", PaymentType: "Credit Card", PaymentMode: "Wire",
			Status: "Pending", Stage: "Finance", Currency: "USD", AmountRaw: "1234.5", Initiator: "Ana"},
		{RequestNo: "REQ-000043", Entity: "FGI", Status: "Draft", AmountRaw: "n/a"},
	}

	var buf bytes.Buffer
	require.NoError(t, NewRequestsExporter(zap.NewNop()).Write(&buf, rows))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetName}, f.GetSheetList())

	got, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "Request No", got[0][0])
	assert.Equal(t, "Created", got[0][10])
	assert.Equal(t, "REQ-000042", got[1][0])
	assert.Equal(t, "FGC", got[1][1])

	raw, err := f.GetCellValue(SheetName, "H2", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "1234.5", raw)

	text, err := f.GetCellValue(SheetName, "H3")
	require.NoError(t, err)
	assert.Equal(t, "n/a", text)
}

func TestRequestsExporter_EmptyList(t *testing.T) {
	f, err := NewRequestsExporter(zap.NewNop()).Workbook(nil)
	require.NoError(t, err)
	defer f.Close()

	got, err := f.GetRows(SheetName)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
