package models

import (
	"time"

	"gorm.io/datatypes"
)

// Audit action tags recorded for privileged operations.
const (
	AuditAddStudent          = "add_student"
	AuditCreateExam          = "create_exam"
	AuditUpdateExam          = "update_exam"
	AuditUploadExamDocument  = "upload_exam_document"
	AuditAddGroup            = "add_group"
	AuditAssignGroupStudents = "assign_group_students"
	AuditViewForms           = "view_forms"
	AuditAcceptForm          = "accept_form"
	AuditExportForms         = "export_forms"
)

// AuditLog captures auditable events triggered by administrators. Rows are append-only.
type AuditLog struct {
	ID        uint              `gorm:"primaryKey" json:"id"`
	UserID    uint              `gorm:"not null;index" json:"user_id"`
	Action    string            `gorm:"size:64;not null;index" json:"action"`
	Details   string            `gorm:"type:text" json:"details"`
	Metadata  datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	CreatedAt time.Time         `gorm:"index" json:"created_at"`
}
