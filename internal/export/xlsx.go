// Package export renders claim reports into downloadable workbooks.
package export

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/claims-pipeline/internal/core/domain"
)

const (
	sheetSummary       = "Summary"
	sheetDocuments     = "Documents"
	sheetDiscrepancies = "Discrepancies"
)

// ClaimReportXLSX renders one report as an XLSX workbook: a summary
// sheet, then one row per document and one per discrepancy.
func ClaimReportXLSX(report *domain.ClaimReport) ([]byte, error) {
	if report == nil {
		return nil, fmt.Errorf("nil report")
	}

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheetSummary); err != nil {
		return nil, fmt.Errorf("rename summary sheet: %w", err)
	}
	if _, err := f.NewSheet(sheetDocuments); err != nil {
		return nil, fmt.Errorf("create documents sheet: %w", err)
	}
	if _, err := f.NewSheet(sheetDiscrepancies); err != nil {
		return nil, fmt.Errorf("create discrepancies sheet: %w", err)
	}

	writeSummary(f, report)
	writeDocuments(f, report.Records)
	writeDiscrepancies(f, report.Validation)

	if index, err := f.GetSheetIndex(sheetSummary); err == nil {
		f.SetActiveSheet(index)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSummary(f *excelize.File, report *domain.ClaimReport) {
	missing := make([]string, 0, len(report.Validation.MissingTypes))
	for _, t := range report.Validation.MissingTypes {
		missing = append(missing, string(t))
	}

	rows := [][2]any{
		{"Claim ID", report.ClaimID},
		{"Decision", string(report.Decision.Status)},
		{"Confidence", fmt.Sprintf("%.2f", report.Decision.Confidence)},
		{"Reason", report.Decision.Reason},
		{"Consistent", report.Validation.IsValid},
		{"Missing Document Types", strings.Join(missing, ", ")},
		{"Documents", len(report.Records)},
		{"Discrepancies", len(report.Validation.Discrepancies)},
		{"Processing Seconds", fmt.Sprintf("%.2f", report.ElapsedSeconds)},
	}
	for i, pair := range rows {
		setCell(f, sheetSummary, 1, i+1, pair[0])
		setCell(f, sheetSummary, 2, i+1, pair[1])
	}

	_ = f.SetColWidth(sheetSummary, "A", "A", 24)
	_ = f.SetColWidth(sheetSummary, "B", "B", 70)
}

func writeDocuments(f *excelize.File, records []domain.ExtractedRecord) {
	headers := []string{
		"Filename",
		"Type",
		"Extraction Confidence",
		"Language",
		"Scanned",
		"Degraded",
		"Failure Cause",
		"Extracted Fields",
	}
	for i, h := range headers {
		setCell(f, sheetDocuments, i+1, 1, h)
	}

	row := 2
	for _, rec := range records {
		fields := ""
		if raw, err := json.Marshal(rec.Fields); err == nil {
			fields = string(raw)
		}

		setCell(f, sheetDocuments, 1, row, rec.Filename)
		setCell(f, sheetDocuments, 2, row, string(rec.Type))
		setCell(f, sheetDocuments, 3, row, fmt.Sprintf("%.2f", rec.Confidence))
		setCell(f, sheetDocuments, 4, row, string(rec.Language))
		setCell(f, sheetDocuments, 5, row, rec.IsScanned)
		setCell(f, sheetDocuments, 6, row, rec.Degraded)
		setCell(f, sheetDocuments, 7, row, rec.FailureCause)
		setCell(f, sheetDocuments, 8, row, fields)
		row++
	}

	_ = f.SetColWidth(sheetDocuments, "A", "A", 28)
	_ = f.SetColWidth(sheetDocuments, "B", "B", 18)
	_ = f.SetColWidth(sheetDocuments, "C", "F", 12)
	_ = f.SetColWidth(sheetDocuments, "G", "G", 40)
	_ = f.SetColWidth(sheetDocuments, "H", "H", 80)
}

func writeDiscrepancies(f *excelize.File, validation domain.ValidationResult) {
	headers := []string{"Field", "Document A", "Document B", "Value A", "Value B", "Severity"}
	for i, h := range headers {
		setCell(f, sheetDiscrepancies, i+1, 1, h)
	}

	row := 2
	for _, d := range validation.Discrepancies {
		setCell(f, sheetDiscrepancies, 1, row, d.Field)
		setCell(f, sheetDiscrepancies, 2, row, d.DocA)
		setCell(f, sheetDiscrepancies, 3, row, d.DocB)
		setCell(f, sheetDiscrepancies, 4, row, d.ValueA)
		setCell(f, sheetDiscrepancies, 5, row, d.ValueB)
		setCell(f, sheetDiscrepancies, 6, row, string(d.Severity))
		row++
	}

	_ = f.SetColWidth(sheetDiscrepancies, "A", "A", 20)
	_ = f.SetColWidth(sheetDiscrepancies, "B", "C", 28)
	_ = f.SetColWidth(sheetDiscrepancies, "D", "E", 24)
	_ = f.SetColWidth(sheetDiscrepancies, "F", "F", 10)
}

func setCell(f *excelize.File, sheet string, col, row int, value any) {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return
	}
	_ = f.SetCellValue(sheet, cell, value)
}
