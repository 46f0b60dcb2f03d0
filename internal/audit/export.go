package audit

import (
	"bytes"
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/EdwinT12/Teachers-Portal-main-sub001/internal/model"
	"github.com/EdwinT12/Teachers-Portal-main-sub001/internal/storage"
)

// ExportWorkbook renders a report to an xlsx workbook: one summary sheet plus
// one sheet listing every issue and warning. The caller decides whether the
// bytes go to the HTTP response, the archive, or both.
func ExportWorkbook(report model.AuditReport) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	const summarySheet = "Summary"
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, fmt.Errorf("failed to rename summary sheet: %w", err)
	}

	summaryRows := [][]interface{}{
		{"Report ID", report.ID},
		{"Generated at", report.GeneratedAt.Format("2006-01-02 15:04:05")},
		{},
		{"Total links", report.Summary.TotalLinks},
		{"Resolved links", report.Summary.ResolvedLinks},
		{"Unresolved links", report.Summary.UnresolvedLinks},
		{"Missing repair fields", report.Summary.MissingRepairFields},
		{"Orphaned annotations", report.Summary.OrphanedAnnotations},
		{"Duplicate evaluation keys", report.Summary.DuplicateEvalKeys},
		{"Duplicate attendance keys", report.Summary.DuplicateAttendKeys},
	}
	for i, row := range summaryRows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write summary row: %w", err)
		}
	}

	const findingsSheet = "Findings"
	if _, err := f.NewSheet(findingsSheet); err != nil {
		return nil, fmt.Errorf("failed to create findings sheet: %w", err)
	}

	header := []interface{}{"Severity", "Code", "Message", "Count", "Details"}
	if err := f.SetSheetRow(findingsSheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write findings header: %w", err)
	}

	rowIdx := 2
	for _, issue := range append(report.Issues, report.Warnings...) {
		details := ""
		for i, d := range issue.Details {
			if i > 0 {
				details += "; "
			}
			details += d
		}
		row := []interface{}{string(issue.Severity), issue.Code, issue.Message, issue.Count, details}
		cell, _ := excelize.CoordinatesToCellName(1, rowIdx)
		if err := f.SetSheetRow(findingsSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write finding: %w", err)
		}
		rowIdx++
	}

	const recsSheet = "Recommendations"
	if _, err := f.NewSheet(recsSheet); err != nil {
		return nil, fmt.Errorf("failed to create recommendations sheet: %w", err)
	}
	for i, rec := range report.Recommendations {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetCellValue(recsSheet, cell, rec); err != nil {
			return nil, fmt.Errorf("failed to write recommendation: %w", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to generate workbook: %w", err)
	}

	return buf, nil
}

// ArchiveKey names a stored report after its ID.
func ArchiveKey(report model.AuditReport) string {
	return ArchiveKeyForID(report.ID)
}

// ArchiveKeyForID maps a report ID to its object key, for retrieval without
// the report in hand.
func ArchiveKeyForID(id string) string {
	return fmt.Sprintf("audit-reports/%s.xlsx", id)
}

// ExportAndArchive renders the workbook and uploads it, returning the
// workbook bytes and the archive key.
func ExportAndArchive(ctx context.Context, report model.AuditReport, archive storage.Archive) (*bytes.Buffer, string, error) {
	buf, err := ExportWorkbook(report)
	if err != nil {
		return nil, "", err
	}

	key := ArchiveKey(report)
	if err := archive.Upload(ctx, key, bytes.NewReader(buf.Bytes())); err != nil {
		return nil, "", fmt.Errorf("failed to archive report: %w", err)
	}

	return buf, key, nil
}
