package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/exam-hall-api/internal/models"
)

// ExamRepository persists exams.
type ExamRepository interface {
	Create(ctx context.Context, exam *models.Exam) error
	Save(ctx context.Context, exam *models.Exam) error
	GetByID(ctx context.Context, id uint) (models.Exam, error)
	List(ctx context.Context) ([]models.Exam, error)
	ListForStudent(ctx context.Context, studentID uint) ([]models.Exam, error)
	SetDocument(ctx context.Context, id uint, path string) error
}

type examRepository struct {
	db *gorm.DB
}

// NewExamRepository constructs the exam repository.
func NewExamRepository(db *gorm.DB) ExamRepository {
	return &examRepository{db: db}
}

func (r *examRepository) Create(ctx context.Context, exam *models.Exam) error {
	return r.db.WithContext(ctx).Create(exam).Error
}

func (r *examRepository) Save(ctx context.Context, exam *models.Exam) error {
	return r.db.WithContext(ctx).Save(exam).Error
}

func (r *examRepository) GetByID(ctx context.Context, id uint) (models.Exam, error) {
	var exam models.Exam
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&exam).Error; err != nil {
		return models.Exam{}, err
	}
	return exam, nil
}

func (r *examRepository) List(ctx context.Context) ([]models.Exam, error) {
	var exams []models.Exam
	if err := r.db.WithContext(ctx).Order("date ASC, id ASC").Find(&exams).Error; err != nil {
		return nil, err
	}
	return exams, nil
}

// ListForStudent returns the exams reachable through the student's group memberships.
func (r *examRepository) ListForStudent(ctx context.Context, studentID uint) ([]models.Exam, error) {
	reachable := r.db.Table("student_groups").
		Select("student_groups.exam_id").
		Joins("JOIN group_members ON group_members.group_id = student_groups.id").
		Where("group_members.student_id = ?", studentID)

	var exams []models.Exam
	if err := r.db.WithContext(ctx).
		Where("id IN (?)", reachable).
		Order("date ASC, id ASC").
		Find(&exams).Error; err != nil {
		return nil, err
	}
	return exams, nil
}

func (r *examRepository) SetDocument(ctx context.Context, id uint, path string) error {
	result := r.db.WithContext(ctx).Model(&models.Exam{}).
		Where("id = ?", id).
		Update("document_path", path)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
