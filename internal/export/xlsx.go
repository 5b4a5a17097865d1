// Package export renders request tables as spreadsheets.
package export

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/payment-portal/internal/resource"
)

// SheetName is the single sheet of the requests workbook
const SheetName = "Requests"

// ContentType is the MIME type of an xlsx workbook
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var header = []interface{}{
	"Request No", "Entity", "Payment Type", "Payment Mode", "Status",
	"Stage", "Currency", "Amount", "Initiator", "Point of Contact", "Created",
}

// RequestsExporter writes the requests list as an xlsx workbook
type RequestsExporter struct {
	logger *zap.Logger
}

// NewRequestsExporter creates an exporter
func NewRequestsExporter(logger *zap.Logger) *RequestsExporter {
	return &RequestsExporter{logger: logger}
}

// Workbook builds the workbook. Amounts that parse as decimals are written
// as numbers with two decimals; anything else is written as text.
func (e *RequestsExporter) Workbook(rows []resource.RequestRow) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}
	amountFmt := "#,##0.00"
	money, err := f.NewStyle(&excelize.Style{CustomNumFmt: &amountFmt})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create amount style: %w", err)
	}

	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(header))
	e.setStyle(f, "A1", lastCol+"1", bold)

	for i, row := range rows {
		line := i + 2
		cell, _ := excelize.CoordinatesToCellName(1, line)
		values := []interface{}{
			row.RequestNo, row.Entity, row.PaymentType, row.PaymentMode, row.Status,
			row.Stage, row.Currency, amountValue(row.AmountRaw), row.Initiator, row.PointOfContact, row.CreatedAt,
		}
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write row %d: %w", line, err)
		}
		amountCell, _ := excelize.CoordinatesToCellName(8, line)
		e.setStyle(f, amountCell, amountCell, money)
	}

	if err := f.SetColWidth(SheetName, "A", lastCol, 16); err != nil {
		e.logger.Warn("Failed to set column width", zap.Error(err))
	}
	if err := f.SetPanes(SheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		e.logger.Warn("Failed to freeze header row", zap.Error(err))
	}

	return f, nil
}

// Write builds the workbook and writes it to w
func (e *RequestsExporter) Write(w io.Writer, rows []resource.RequestRow) error {
	f, err := e.Workbook(rows)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	e.logger.Debug("Requests workbook written", zap.Int("rows", len(rows)))
	return nil
}

func (e *RequestsExporter) setStyle(f *excelize.File, from, to string, style int) {
	if err := f.SetCellStyle(SheetName, from, to, style); err != nil {
		e.logger.Warn("Failed to set cell style",
			zap.String("from", from),
			zap.String("to", to),
			zap.Error(err))
	}
}

func amountValue(raw string) interface{} {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return raw
	}
	v, _ := d.Round(2).Float64()
	return v
}
