// Package hallticket renders admission documents for accepted exam forms.
package hallticket

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
)

const dateLayout = "2006-01-02"

// Payload keys promoted to the top of the ticket, in order.
var leadingFields = []struct {
	Key   string
	Label string
}{
	{Key: "rollNumber", Label: "Roll Number"},
	{Key: "subject", Label: "Subject"},
}

// Ticket holds everything printed on a hall ticket.
type Ticket struct {
	FormID      uint
	StudentName string
	ExamName    string
	ExamDate    time.Time
	Fields      map[string]interface{}
}

// Render produces the PDF bytes for the ticket. Identical tickets render to identical bytes.
func Render(ticket Ticket) ([]byte, error) {
	if strings.TrimSpace(ticket.StudentName) == "" || strings.TrimSpace(ticket.ExamName) == "" {
		return nil, errors.New("hall ticket requires student and exam names")
	}

	stamp := ticket.ExamDate.UTC()
	if stamp.IsZero() {
		stamp = time.Unix(0, 0).UTC()
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(false)
	pdf.SetCatalogSort(true)
	pdf.SetCreationDate(stamp)
	pdf.SetModificationDate(stamp)
	pdf.SetTitle("Hall Ticket", true)
	pdf.SetCreator("exam-hall-api", true)
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(0, 12, "Hall Ticket", "", 1, "C", false, 0, "")
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "", 14)
	line := func(label, value string) {
		pdf.CellFormat(0, 9, tr(fmt.Sprintf("%s: %s", label, value)), "", 1, "L", false, 0, "")
	}

	if ticket.FormID > 0 {
		line("Form", fmt.Sprintf("#%d", ticket.FormID))
	}
	line("Student", ticket.StudentName)
	line("Exam", ticket.ExamName)
	line("Date", ticket.ExamDate.UTC().Format(dateLayout))

	for _, field := range leadingFields {
		line(field.Label, formatValue(ticket.Fields[field.Key]))
	}

	extra := extraKeys(ticket.Fields)
	if len(extra) > 0 {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "", 12)
		for _, key := range extra {
			line(key, formatValue(ticket.Fields[key]))
		}
	}

	pdf.Ln(10)
	pdf.SetFont("Helvetica", "I", 10)
	pdf.MultiCell(0, 6, "Present this ticket together with a photo ID at the examination hall.", "", "L", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render hall ticket: %w", err)
	}
	return buf.Bytes(), nil
}

func extraKeys(fields map[string]interface{}) []string {
	keys := make([]string, 0, len(fields))
	for key := range fields {
		leading := false
		for _, field := range leadingFields {
			if field.Key == key {
				leading = true
				break
			}
		}
		if !leading {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

func formatValue(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return "-"
	case string:
		if strings.TrimSpace(v) == "" {
			return "-"
		}
		return v
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%g", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
