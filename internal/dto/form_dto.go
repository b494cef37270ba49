package dto

import (
	"time"

	"github.com/noah-isme/exam-hall-api/internal/models"
	"github.com/noah-isme/exam-hall-api/internal/repository"
)

// FormSubmitRequest captures a student's exam form submission.
//
// StudentID is optional; when present it must match the authenticated student.
type FormSubmitRequest struct {
	StudentID      uint                   `json:"student_id"`
	ExamID         uint                   `json:"exam_id" validate:"required,gt=0"`
	SubmissionData map[string]interface{} `json:"submission_data" validate:"required"`
}

// FormResponse serializes an exam form.
type FormResponse struct {
	ID             uint                   `json:"id"`
	StudentID      uint                   `json:"student_id"`
	StudentName    string                 `json:"student_name,omitempty"`
	ExamID         uint                   `json:"exam_id"`
	ExamName       string                 `json:"exam_name,omitempty"`
	SubmissionData map[string]interface{} `json:"submission_data"`
	Status         string                 `json:"status"`
	AcceptedAt     *time.Time             `json:"accepted_at,omitempty"`
	AcceptedBy     *uint                  `json:"accepted_by,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

// NewFormResponse converts a form model into a DTO.
func NewFormResponse(form models.ExamForm) FormResponse {
	data := map[string]interface{}{}
	for key, value := range form.Payload {
		data[key] = value
	}

	return FormResponse{
		ID:             form.ID,
		StudentID:      form.StudentID,
		ExamID:         form.ExamID,
		SubmissionData: data,
		Status:         string(form.Status),
		AcceptedAt:     form.AcceptedAt,
		AcceptedBy:     form.AcceptedBy,
		CreatedAt:      form.CreatedAt,
		UpdatedAt:      form.UpdatedAt,
	}
}

// NewFormRowResponse converts a joined form row into a DTO.
func NewFormRowResponse(row repository.ExamFormRow) FormResponse {
	response := NewFormResponse(row.ExamForm)
	response.StudentName = row.StudentName
	response.ExamName = row.ExamName
	return response
}

// NewFormRowResponses converts a slice of joined form rows.
func NewFormRowResponses(rows []repository.ExamFormRow) []FormResponse {
	responses := make([]FormResponse, 0, len(rows))
	for _, row := range rows {
		responses = append(responses, NewFormRowResponse(row))
	}
	return responses
}

// FormAcceptResponse reports the outcome of an acceptance request.
type FormAcceptResponse struct {
	Form             FormResponse `json:"form"`
	Transitioned     bool         `json:"transitioned"`
	NotificationSent bool         `json:"notification_sent"`
	Warning          string       `json:"warning,omitempty"`
}
