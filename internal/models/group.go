package models

import "time"

// Group is an administrator-defined cohort of students bound to one exam.
type Group struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	ExamID    uint      `gorm:"not null;index" json:"exam_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName keeps the original table name; "groups" collides with SQL keywords on some engines.
func (Group) TableName() string {
	return "student_groups"
}

// GroupMember is the join row between a group and a student.
type GroupMember struct {
	GroupID   uint      `gorm:"primaryKey" json:"group_id"`
	StudentID uint      `gorm:"primaryKey;index" json:"student_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName pins the join table name.
func (GroupMember) TableName() string {
	return "group_members"
}
