package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/exam-hall-api/internal/models"
)

// GroupRow is a group joined with its exam name and member count.
type GroupRow struct {
	models.Group `gorm:"embedded"`
	ExamName     string
	MemberCount  int64
}

// GroupRepository persists student groups and their membership.
type GroupRepository interface {
	Create(ctx context.Context, group *models.Group) error
	GetByID(ctx context.Context, id uint) (models.Group, error)
	List(ctx context.Context) ([]GroupRow, error)
	Members(ctx context.Context, groupID uint) ([]models.User, error)
	AddMembers(ctx context.Context, groupID uint, studentIDs []uint) (int64, error)
	IsMemberForExam(ctx context.Context, studentID, examID uint) (bool, error)
	StudentIDsForExam(ctx context.Context, examID uint) ([]uint, error)
}

type groupRepository struct {
	db *gorm.DB
}

// NewGroupRepository constructs the group repository.
func NewGroupRepository(db *gorm.DB) GroupRepository {
	return &groupRepository{db: db}
}

func (r *groupRepository) Create(ctx context.Context, group *models.Group) error {
	return r.db.WithContext(ctx).Create(group).Error
}

func (r *groupRepository) GetByID(ctx context.Context, id uint) (models.Group, error) {
	var group models.Group
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&group).Error; err != nil {
		return models.Group{}, err
	}
	return group, nil
}

func (r *groupRepository) List(ctx context.Context) ([]GroupRow, error) {
	memberCounts := r.db.Table("group_members").
		Select("group_id, COUNT(*) AS member_count").
		Group("group_id")

	var rows []GroupRow
	err := r.db.WithContext(ctx).Table("student_groups").
		Select("student_groups.*, exams.name AS exam_name, COALESCE(mc.member_count, 0) AS member_count").
		Joins("LEFT JOIN exams ON exams.id = student_groups.exam_id").
		Joins("LEFT JOIN (?) AS mc ON mc.group_id = student_groups.id", memberCounts).
		Order("student_groups.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *groupRepository) Members(ctx context.Context, groupID uint) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).
		Joins("JOIN group_members ON group_members.student_id = users.id").
		Where("group_members.group_id = ?", groupID).
		Order("users.name ASC, users.id ASC").
		Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// AddMembers inserts memberships, skipping students that already belong to the group.
// It returns the number of new memberships.
func (r *groupRepository) AddMembers(ctx context.Context, groupID uint, studentIDs []uint) (int64, error) {
	if len(studentIDs) == 0 {
		return 0, nil
	}

	members := make([]models.GroupMember, 0, len(studentIDs))
	for _, id := range studentIDs {
		members = append(members, models.GroupMember{GroupID: groupID, StudentID: id})
	}

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&members)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *groupRepository) IsMemberForExam(ctx context.Context, studentID, examID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Table("group_members").
		Joins("JOIN student_groups ON student_groups.id = group_members.group_id").
		Where("group_members.student_id = ? AND student_groups.exam_id = ?", studentID, examID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *groupRepository) StudentIDsForExam(ctx context.Context, examID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Table("group_members").
		Joins("JOIN student_groups ON student_groups.id = group_members.group_id").
		Where("student_groups.exam_id = ?", examID).
		Distinct().
		Pluck("group_members.student_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
