package dto

import (
	"time"

	"github.com/noah-isme/exam-hall-api/internal/repository"
)

// GroupCreateRequest captures the payload for creating a student group.
type GroupCreateRequest struct {
	Name   string `json:"name" validate:"required,min=1,max=255"`
	ExamID uint   `json:"exam_id" validate:"required,gt=0"`
}

// GroupAssignRequest bulk-assigns students to a group.
type GroupAssignRequest struct {
	StudentIDs []uint `json:"student_ids" validate:"required,min=1,max=500,dive,gt=0"`
}

// GroupResponse serializes a group with its exam name.
type GroupResponse struct {
	ID          uint      `json:"id"`
	Name        string    `json:"name"`
	ExamID      uint      `json:"exam_id"`
	ExamName    string    `json:"exam_name"`
	MemberCount int64     `json:"member_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewGroupResponse converts a joined group row into a DTO.
func NewGroupResponse(row repository.GroupRow) GroupResponse {
	return GroupResponse{
		ID:          row.ID,
		Name:        row.Name,
		ExamID:      row.ExamID,
		ExamName:    row.ExamName,
		MemberCount: row.MemberCount,
		CreatedAt:   row.CreatedAt,
	}
}

// GroupAssignResponse reports the outcome of a bulk assignment.
type GroupAssignResponse struct {
	GroupID   uint  `json:"group_id"`
	Requested int   `json:"requested"`
	Added     int64 `json:"added"`
}
