package dto

import (
	"encoding/json"
	"time"

	"github.com/noah-isme/exam-hall-api/internal/models"
)

// ExamCreateRequest captures the payload for creating an exam.
//
// CreatedBy is accepted for compatibility with older clients but the creator is always
// the authenticated administrator.
type ExamCreateRequest struct {
	Name        string          `json:"name" validate:"required,min=2,max=255"`
	Date        string          `json:"date" validate:"required,datetime=2006-01-02"`
	Description string          `json:"description" validate:"omitempty,max=5000"`
	FormSchema  json.RawMessage `json:"form_schema"`
	CreatedBy   uint            `json:"created_by"`
}

// ExamUpdateRequest patches exam metadata.
type ExamUpdateRequest struct {
	Name        *string         `json:"name" validate:"omitempty,min=2,max=255"`
	Date        *string         `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Description *string         `json:"description" validate:"omitempty,max=5000"`
	FormSchema  json.RawMessage `json:"form_schema"`
}

// ExamResponse serializes exam data.
type ExamResponse struct {
	ID           uint            `json:"id"`
	Name         string          `json:"name"`
	Date         string          `json:"date"`
	Description  string          `json:"description"`
	DocumentPath string          `json:"document_path,omitempty"`
	HasDocument  bool            `json:"has_document"`
	FormSchema   json.RawMessage `json:"form_schema,omitempty"`
	CreatedBy    uint            `json:"created_by"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// NewExamResponse converts an exam model into a DTO.
func NewExamResponse(exam models.Exam) ExamResponse {
	response := ExamResponse{
		ID:           exam.ID,
		Name:         exam.Name,
		Date:         exam.DateString(),
		Description:  exam.Description,
		DocumentPath: exam.DocumentPath,
		HasDocument:  exam.HasDocument(),
		CreatedBy:    exam.CreatedBy,
		CreatedAt:    exam.CreatedAt,
		UpdatedAt:    exam.UpdatedAt,
	}
	if exam.HasFormSchema() {
		response.FormSchema = json.RawMessage(exam.FormSchema)
	}
	return response
}

// NewExamResponses converts a slice of exams.
func NewExamResponses(exams []models.Exam) []ExamResponse {
	responses := make([]ExamResponse, 0, len(exams))
	for _, exam := range exams {
		responses = append(responses, NewExamResponse(exam))
	}
	return responses
}

// DocumentUploadResponse describes a stored exam document.
type DocumentUploadResponse struct {
	ExamID    uint   `json:"exam_id"`
	FilePath  string `json:"file_path"`
	FileName  string `json:"file_name"`
	MimeType  string `json:"mime_type"`
	SizeBytes int64  `json:"size_bytes"`
	Checksum  string `json:"checksum"`
}
