package receipt

import (
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/application/port"
)

const sheetName = "Receipt"

// ist is used for the printed submission time
var ist = time.FixedZone("IST", 5*3600+1800)

// ExcelRenderer implements port.ReceiptRenderer as a one-sheet workbook
type ExcelRenderer struct {
	organisation string
	logger       *zap.Logger
}

// NewExcelRenderer creates a new receipt renderer
func NewExcelRenderer(organisation string, logger *zap.Logger) *ExcelRenderer {
	return &ExcelRenderer{
		organisation: organisation,
		logger:       logger,
	}
}

// Extension returns the file extension of rendered receipts
func (r *ExcelRenderer) Extension() string {
	return ".xlsx"
}

// ContentType returns the MIME type of rendered receipts
func (r *ExcelRenderer) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Render builds the receipt workbook
func (r *ExcelRenderer) Render(ctx context.Context, data port.ReceiptData) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	titleStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}})
	if err != nil {
		return nil, fmt.Errorf("failed to create style: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"E2EFDA"}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create style: %w", err)
	}

	label := func(key, fallback string) string {
		if v, ok := data.Labels[key]; ok && v != "" {
			return v
		}
		return fallback
	}

	title := label("title", "Submission Receipt")
	if r.organisation != "" {
		title = r.organisation + " - " + title
	}
	r.setCell(f, "A1", title)
	r.setStyle(f, "A1", "B1", titleStyle)
	if err := f.MergeCell(sheetName, "A1", "B1"); err != nil {
		return nil, fmt.Errorf("failed to merge title: %w", err)
	}

	r.setCell(f, "A3", label("reference", "Reference ID"))
	r.setCell(f, "B3", data.ReferenceID)
	r.setCell(f, "A4", label("flow", "Form"))
	r.setCell(f, "B4", label("flow_title", data.Flow))
	r.setCell(f, "A5", label("submitted_at", "Submitted at"))
	r.setCell(f, "B5", data.SubmittedAt.In(ist).Format("02 Jan 2006 15:04 MST"))
	r.setStyle(f, "A3", "A5", headerStyle)

	r.setCell(f, "A7", label("field", "Field"))
	r.setCell(f, "B7", label("value", "Value"))
	r.setStyle(f, "A7", "B7", headerStyle)

	row := 8
	for _, name := range data.FieldOrder {
		value, ok := data.Fields[name]
		if !ok || value == "" {
			continue
		}
		r.setCell(f, fmt.Sprintf("A%d", row), label("field."+name, name))
		r.setCell(f, fmt.Sprintf("B%d", row), value)
		row++
	}

	if err := f.SetColWidth(sheetName, "A", "A", 30); err != nil {
		return nil, fmt.Errorf("failed to size column: %w", err)
	}
	if err := f.SetColWidth(sheetName, "B", "B", 60); err != nil {
		return nil, fmt.Errorf("failed to size column: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}

	r.logger.Debug("Receipt rendered",
		zap.String("reference_id", data.ReferenceID),
		zap.Int("fields", row-8))
	return buf.Bytes(), nil
}

// setCell sets a cell value, logging failures
func (r *ExcelRenderer) setCell(f *excelize.File, cell, value string) {
	if err := f.SetCellValue(sheetName, cell, value); err != nil {
		r.logger.Warn("Failed to set cell value",
			zap.String("cell", cell),
			zap.Error(err))
	}
}

func (r *ExcelRenderer) setStyle(f *excelize.File, from, to string, style int) {
	if err := f.SetCellStyle(sheetName, from, to, style); err != nil {
		r.logger.Warn("Failed to set cell style",
			zap.String("range", from+":"+to),
			zap.Error(err))
	}
}
