package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/exam-hall-api/internal/models"
)

// ExamFormRow is a form joined with the names of its student and exam.
type ExamFormRow struct {
	models.ExamForm `gorm:"embedded"`
	StudentName     string
	StudentEmail    string
	ExamName        string
	ExamDate        time.Time
}

// ExamFormRepository persists exam forms and their lifecycle transitions.
type ExamFormRepository interface {
	Create(ctx context.Context, form *models.ExamForm) error
	GetByID(ctx context.Context, id uint) (models.ExamForm, error)
	Exists(ctx context.Context, studentID, examID uint) (bool, error)
	ListAll(ctx context.Context) ([]ExamFormRow, error)
	ListByStudent(ctx context.Context, studentID uint) ([]ExamFormRow, error)
	MarkAccepted(ctx context.Context, id, actorID uint, at time.Time) (bool, error)
}

type examFormRepository struct {
	db *gorm.DB
}

// NewExamFormRepository constructs the exam form repository.
func NewExamFormRepository(db *gorm.DB) ExamFormRepository {
	return &examFormRepository{db: db}
}

func (r *examFormRepository) Create(ctx context.Context, form *models.ExamForm) error {
	return r.db.WithContext(ctx).Create(form).Error
}

func (r *examFormRepository) GetByID(ctx context.Context, id uint) (models.ExamForm, error) {
	var form models.ExamForm
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&form).Error; err != nil {
		return models.ExamForm{}, err
	}
	return form, nil
}

func (r *examFormRepository) Exists(ctx context.Context, studentID, examID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.ExamForm{}).
		Where("student_id = ? AND exam_id = ?", studentID, examID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *examFormRepository) ListAll(ctx context.Context) ([]ExamFormRow, error) {
	var rows []ExamFormRow
	if err := r.joined(ctx).Order("exam_forms.id ASC").Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *examFormRepository) ListByStudent(ctx context.Context, studentID uint) ([]ExamFormRow, error) {
	var rows []ExamFormRow
	if err := r.joined(ctx).
		Where("exam_forms.student_id = ?", studentID).
		Order("exam_forms.id ASC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// MarkAccepted moves a pending form to accepted. It reports false when the form was
// not pending, which makes repeated or concurrent acceptance a no-op.
func (r *examFormRepository) MarkAccepted(ctx context.Context, id, actorID uint, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.ExamForm{}).
		Where("id = ? AND status = ?", id, models.FormStatusPending).
		Updates(map[string]interface{}{
			"status":      models.FormStatusAccepted,
			"accepted_at": at,
			"accepted_by": actorID,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *examFormRepository) joined(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Table("exam_forms").
		Select("exam_forms.*, users.name AS student_name, users.email AS student_email, exams.name AS exam_name, exams.date AS exam_date").
		Joins("LEFT JOIN users ON users.id = exam_forms.student_id").
		Joins("LEFT JOIN exams ON exams.id = exam_forms.exam_id")
}
