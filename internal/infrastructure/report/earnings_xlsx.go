package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/referral-workflow/internal/application/port"
)

const (
	earningsSheet = "Earnings"
	dateLayout    = "2006-01-02 15:04"

	// built-in number format "#,##0.00"
	amountNumFmt = 4
)

var earningsHeader = []string{"Earning ID", "Referral ID", "Candidate", "Employee", "Job", "Amount", "Recorded At"}

// EarningsXLSX renders the earnings ledger as an Excel workbook
type EarningsXLSX struct {
	logger *zap.Logger
}

// NewEarningsXLSX creates a new earnings workbook writer
func NewEarningsXLSX(logger *zap.Logger) *EarningsXLSX {
	return &EarningsXLSX{logger: logger}
}

// ContentType returns the MIME type of the rendered workbook
func (x *EarningsXLSX) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Write renders one row per earning followed by a total row
func (x *EarningsXLSX) Write(w io.Writer, rows []port.EarningReportRow) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", earningsSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"DDEBF7"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	amountStyle, err := f.NewStyle(&excelize.Style{NumFmt: amountNumFmt})
	if err != nil {
		return fmt.Errorf("failed to create amount style: %w", err)
	}

	for col, title := range earningsHeader {
		x.setCell(f, cellName(col+1, 1), title)
	}
	if err := f.SetCellStyle(earningsSheet, "A1", cellName(len(earningsHeader), 1), headerStyle); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	var totalCents int64
	for i, row := range rows {
		r := i + 2
		x.setCell(f, cellName(1, r), row.EarningID)
		x.setCell(f, cellName(2, r), row.ReferralID)
		x.setCell(f, cellName(3, r), row.CandidateName)
		x.setCell(f, cellName(4, r), row.EmployeeName)
		x.setCell(f, cellName(5, r), row.JobTitle)
		x.setCell(f, cellName(6, r), centsToAmount(row.AmountCents))
		x.setCell(f, cellName(7, r), row.CreatedAt.UTC().Format(dateLayout))
		totalCents += row.AmountCents
	}

	totalRow := len(rows) + 2
	x.setCell(f, cellName(5, totalRow), "Total")
	x.setCell(f, cellName(6, totalRow), centsToAmount(totalCents))
	if err := f.SetCellStyle(earningsSheet, cellName(6, 2), cellName(6, totalRow), amountStyle); err != nil {
		return fmt.Errorf("failed to style amounts: %w", err)
	}

	if err := f.SetColWidth(earningsSheet, "C", "E", 24); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}
	if err := f.SetColWidth(earningsSheet, "G", "G", 18); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	x.logger.Debug("Earnings workbook rendered", zap.Int("rows", len(rows)))
	return nil
}

// setCell sets a cell value in the earnings sheet
func (x *EarningsXLSX) setCell(f *excelize.File, cell string, value interface{}) {
	if err := f.SetCellValue(earningsSheet, cell, value); err != nil {
		x.logger.Warn("Failed to set cell value",
			zap.String("cell", cell),
			zap.Error(err))
	}
}

func cellName(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

func centsToAmount(cents int64) float64 {
	return float64(cents) / 100
}

// Verify interface compliance
var _ port.EarningsReportWriter = (*EarningsXLSX)(nil)
