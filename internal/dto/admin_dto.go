package dto

import (
	"time"

	"github.com/noah-isme/exam-hall-api/internal/models"
	"github.com/noah-isme/exam-hall-api/internal/repository"
)

// PaginationMeta captures pagination metadata for list responses.
type PaginationMeta struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
}

// AdminStudentCreateRequest captures the payload for creating a student account.
type AdminStudentCreateRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=255"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// UserResponse serializes a user without credentials.
type UserResponse struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// NewUserResponse converts a user model into a DTO.
func NewUserResponse(user models.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Role:      string(user.Role),
		CreatedAt: user.CreatedAt,
	}
}

// NewUserResponses converts a slice of users.
func NewUserResponses(users []models.User) []UserResponse {
	responses := make([]UserResponse, 0, len(users))
	for _, user := range users {
		responses = append(responses, NewUserResponse(user))
	}
	return responses
}

// AuditLogListRequest defines filters for retrieving audit logs.
type AuditLogListRequest struct {
	Page     int
	PageSize int
	UserID   uint
	Action   string
}

// AuditLogResponse serializes audit entries.
type AuditLogResponse struct {
	ID        uint                   `json:"id"`
	UserID    uint                   `json:"user_id"`
	UserName  string                 `json:"user_name"`
	Action    string                 `json:"action"`
	Details   string                 `json:"details"`
	Metadata  map[string]interface{} `json:"metadata"`
	CreatedAt time.Time              `json:"created_at"`
}

// AuditLogListResponse wraps paginated audit logs.
type AuditLogListResponse struct {
	Items      []AuditLogResponse `json:"items"`
	Pagination PaginationMeta     `json:"pagination"`
}

// NewAuditLogResponse converts a joined audit row into a DTO.
func NewAuditLogResponse(row repository.AuditLogRow) AuditLogResponse {
	metadata := map[string]interface{}{}
	for key, value := range row.Metadata {
		metadata[key] = value
	}

	return AuditLogResponse{
		ID:        row.ID,
		UserID:    row.UserID,
		UserName:  row.UserName,
		Action:    row.Action,
		Details:   row.Details,
		Metadata:  metadata,
		CreatedAt: row.CreatedAt,
	}
}
