package models

import (
	"strings"
	"time"
)

// Role identifies the capability set granted to a user.
type Role string

// Supported roles.
const (
	RoleAdmin   Role = "admin"
	RoleStudent Role = "student"
)

// ParseRole normalises a raw role string. Unknown values map to RoleStudent.
func ParseRole(raw string) Role {
	if Role(strings.ToLower(strings.TrimSpace(raw))) == RoleAdmin {
		return RoleAdmin
	}
	return RoleStudent
}

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleStudent
}

// User is an account able to authenticate against the API.
//
// AdminSlot is set to 1 for the administrator and left NULL for everyone else; the unique
// index on it guarantees a single admin row even under concurrent registrations.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"size:255;not null" json:"name"`
	Email        string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	Role         Role      `gorm:"size:16;not null;index" json:"role"`
	AdminSlot    *int      `gorm:"uniqueIndex" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsAdmin reports whether the user holds the admin role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
