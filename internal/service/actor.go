package service

import (
	"errors"
	"math"

	"github.com/noah-isme/exam-hall-api/internal/dto"
	"github.com/noah-isme/exam-hall-api/internal/models"
)

// ErrForbidden indicates the actor may not touch a resource owned by someone else.
var ErrForbidden = errors.New("access to resource denied")

// Actor represents the authenticated user performing an operation.
type Actor struct {
	ID   uint
	Role models.Role
	Name string
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

// CanActFor reports whether the actor may address resources of the given student.
func (a Actor) CanActFor(studentID uint) bool {
	return a.IsAdmin() || a.ID == studentID
}

func paginationMeta(page, pageSize int, total int64) dto.PaginationMeta {
	meta := dto.PaginationMeta{
		Page:       maxInt(page, 1),
		PageSize:   pageSize,
		TotalItems: total,
	}
	if pageSize > 0 {
		meta.TotalPages = int(math.Ceil(float64(total) / float64(pageSize)))
	} else {
		meta.TotalPages = 1
	}
	return meta
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
