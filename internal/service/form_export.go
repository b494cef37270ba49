package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"

	"github.com/noah-isme/exam-hall-api/internal/models"
	"github.com/noah-isme/exam-hall-api/internal/repository"
)

const formExportSheet = "Exam Forms"

var formExportColumns = []string{"Form ID", "Student", "Email", "Exam", "Exam Date", "Status", "Submitted At", "Accepted At"}

// ExportXLSX renders every exam form into a workbook, one row per form. Payload fields
// become trailing columns.
func (s *examFormService) ExportXLSX(ctx context.Context, actor Actor) ([]byte, error) {
	rows, err := s.store.Forms().ListAll(ctx)
	if err != nil {
		return nil, err
	}

	workbook, err := buildFormWorkbook(rows)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to build forms workbook")
		return nil, err
	}

	if err := appendAudit(ctx, s.store.AuditLogs(), AuditEntry{
		ActorID:  actor.ID,
		Action:   models.AuditExportForms,
		Details:  "Exported exam forms",
		Metadata: map[string]interface{}{"count": len(rows)},
	}); err != nil {
		return nil, err
	}

	return workbook, nil
}

func buildFormWorkbook(rows []repository.ExamFormRow) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", formExportSheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	payloadKeys := payloadColumns(rows)
	header := make([]interface{}, 0, len(formExportColumns)+len(payloadKeys))
	for _, column := range formExportColumns {
		header = append(header, column)
	}
	for _, key := range payloadKeys {
		header = append(header, key)
	}
	if err := f.SetSheetRow(formExportSheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}
	lastHeader, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(formExportSheet, "A1", lastHeader, bold); err != nil {
		return nil, fmt.Errorf("failed to style header: %w", err)
	}

	for idx, row := range rows {
		acceptedAt := ""
		if row.AcceptedAt != nil {
			acceptedAt = row.AcceptedAt.UTC().Format("2006-01-02 15:04:05")
		}
		examDate := ""
		if !row.ExamDate.IsZero() {
			examDate = row.ExamDate.UTC().Format(models.ExamDateLayout)
		}

		values := []interface{}{
			row.ID,
			row.StudentName,
			row.StudentEmail,
			row.ExamName,
			examDate,
			string(row.Status),
			row.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
			acceptedAt,
		}
		for _, key := range payloadKeys {
			if value, ok := row.Payload[key]; ok && value != nil {
				values = append(values, fmt.Sprint(value))
			} else {
				values = append(values, "")
			}
		}

		cell, err := excelize.CoordinatesToCellName(1, idx+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(formExportSheet, cell, &values); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", idx+2, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to encode workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// payloadColumns lists payload keys across all forms, roll number and subject first.
func payloadColumns(rows []repository.ExamFormRow) []string {
	seen := map[string]struct{}{}
	for _, row := range rows {
		for key := range row.Payload {
			seen[key] = struct{}{}
		}
	}

	keys := []string{}
	for _, key := range []string{models.PayloadRollNumber, models.PayloadSubject} {
		if _, ok := seen[key]; ok {
			keys = append(keys, key)
			delete(seen, key)
		}
	}

	rest := make([]string, 0, len(seen))
	for key := range seen {
		rest = append(rest, key)
	}
	sort.Strings(rest)

	return append(keys, rest...)
}
