package models

import (
	"time"

	"gorm.io/datatypes"
)

// FormStatus is the lifecycle state of an exam form.
type FormStatus string

// Form lifecycle states. Accepted is terminal.
const (
	FormStatusPending  FormStatus = "pending"
	FormStatusAccepted FormStatus = "accepted"
)

// Well-known payload keys rendered on hall tickets.
const (
	PayloadRollNumber = "rollNumber"
	PayloadSubject    = "subject"
)

// ExamForm is a student's application to sit an exam.
type ExamForm struct {
	ID         uint              `gorm:"primaryKey" json:"id"`
	StudentID  uint              `gorm:"not null;uniqueIndex:idx_exam_forms_student_exam" json:"student_id"`
	ExamID     uint              `gorm:"not null;uniqueIndex:idx_exam_forms_student_exam;index" json:"exam_id"`
	Payload    datatypes.JSONMap `gorm:"type:json" json:"submission_data"`
	Status     FormStatus        `gorm:"size:16;not null;default:pending;index" json:"status"`
	AcceptedAt *time.Time        `json:"accepted_at,omitempty"`
	AcceptedBy *uint             `json:"accepted_by,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// IsAccepted reports whether the form reached the terminal accepted state.
func (f ExamForm) IsAccepted() bool {
	return f.Status == FormStatusAccepted
}
