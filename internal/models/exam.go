package models

import (
	"time"

	"gorm.io/datatypes"
)

// ExamDateLayout is the calendar-day layout used for exam dates on the wire and on hall tickets.
const ExamDateLayout = "2006-01-02"

// Exam describes a scheduled examination created by an administrator.
type Exam struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Name         string         `gorm:"size:255;not null" json:"name"`
	Date         time.Time      `gorm:"not null;index" json:"date"`
	Description  string         `gorm:"type:text" json:"description"`
	DocumentPath string         `gorm:"size:512" json:"document_path"`
	FormSchema   datatypes.JSON `json:"form_schema,omitempty"`
	CreatedBy    uint           `gorm:"not null;index" json:"created_by"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// DateString renders the exam date as YYYY-MM-DD.
func (e Exam) DateString() string {
	if e.Date.IsZero() {
		return ""
	}
	return e.Date.UTC().Format(ExamDateLayout)
}

// HasDocument reports whether a document reference has been stored.
func (e Exam) HasDocument() bool {
	return e.DocumentPath != ""
}

// HasFormSchema reports whether submissions are validated against a JSON schema.
func (e Exam) HasFormSchema() bool {
	return len(e.FormSchema) > 0 && string(e.FormSchema) != "null"
}
