package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/exam-hall-api/internal/dto"
	"github.com/noah-isme/exam-hall-api/internal/models"
	"github.com/noah-isme/exam-hall-api/internal/repository"
)

var (
	// ErrGroupNotFound indicates the group does not exist.
	ErrGroupNotFound = errors.New("group not found")
	// ErrUnknownStudents indicates some ids in a bulk assignment are not student accounts.
	ErrUnknownStudents = errors.New("one or more ids are not students")
)

// GroupService manages student groups and their membership.
type GroupService interface {
	Create(ctx context.Context, actor Actor, req dto.GroupCreateRequest) (dto.GroupResponse, error)
	List(ctx context.Context) ([]dto.GroupResponse, error)
	Members(ctx context.Context, groupID uint) ([]dto.UserResponse, error)
	AssignStudents(ctx context.Context, actor Actor, groupID uint, req dto.GroupAssignRequest) (dto.GroupAssignResponse, error)
}

type groupService struct {
	store     repository.Store
	cache     *ExamCache
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
}

// NewGroupService constructs the group service.
func NewGroupService(store repository.Store, cache *ExamCache, validate *validator.Validate, logger zerolog.Logger) GroupService {
	return &groupService{
		store:     store,
		cache:     cache,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "group_service").Logger(),
	}
}

func (s *groupService) Create(ctx context.Context, actor Actor, req dto.GroupCreateRequest) (dto.GroupResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.GroupResponse{}, err
	}

	name := strings.TrimSpace(s.sanitizer.Sanitize(req.Name))
	if name == "" {
		return dto.GroupResponse{}, ErrInvalidName
	}

	var row repository.GroupRow
	err := s.store.WithTransaction(ctx, func(tx repository.Store) error {
		exam, err := tx.Exams().GetByID(ctx, req.ExamID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrExamNotFound
			}
			return err
		}

		group := models.Group{Name: name, ExamID: exam.ID}
		if err := tx.Groups().Create(ctx, &group); err != nil {
			return fmt.Errorf("failed to create group: %w", err)
		}
		row = repository.GroupRow{Group: group, ExamName: exam.Name}

		return appendAudit(ctx, tx.AuditLogs(), AuditEntry{
			ActorID:  actor.ID,
			Action:   models.AuditAddGroup,
			Details:  fmt.Sprintf("Added group %s for exam %s", group.Name, exam.Name),
			Metadata: map[string]interface{}{"group_id": group.ID, "exam_id": exam.ID},
		})
	})
	if err != nil {
		return dto.GroupResponse{}, err
	}

	return dto.NewGroupResponse(row), nil
}

func (s *groupService) List(ctx context.Context) ([]dto.GroupResponse, error) {
	rows, err := s.store.Groups().List(ctx)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.GroupResponse, 0, len(rows))
	for _, row := range rows {
		responses = append(responses, dto.NewGroupResponse(row))
	}
	return responses, nil
}

func (s *groupService) Members(ctx context.Context, groupID uint) ([]dto.UserResponse, error) {
	if _, err := s.store.Groups().GetByID(ctx, groupID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, err
	}

	members, err := s.store.Groups().Members(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return dto.NewUserResponses(members), nil
}

func (s *groupService) AssignStudents(ctx context.Context, actor Actor, groupID uint, req dto.GroupAssignRequest) (dto.GroupAssignResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.GroupAssignResponse{}, err
	}

	ids := uniqueIDs(req.StudentIDs)

	var added int64
	err := s.store.WithTransaction(ctx, func(tx repository.Store) error {
		group, err := tx.Groups().GetByID(ctx, groupID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrGroupNotFound
			}
			return err
		}

		students, err := tx.Users().FilterIDsByRole(ctx, ids, models.RoleStudent)
		if err != nil {
			return err
		}
		if len(students) != len(ids) {
			return fmt.Errorf("%w: %v", ErrUnknownStudents, missingIDs(ids, students))
		}

		added, err = tx.Groups().AddMembers(ctx, group.ID, ids)
		if err != nil {
			return fmt.Errorf("failed to assign students: %w", err)
		}

		return appendAudit(ctx, tx.AuditLogs(), AuditEntry{
			ActorID: actor.ID,
			Action:  models.AuditAssignGroupStudents,
			Details: fmt.Sprintf("Assigned %d students to group %s", added, group.Name),
			Metadata: map[string]interface{}{
				"group_id":    group.ID,
				"exam_id":     group.ExamID,
				"student_ids": ids,
			},
		})
	})
	if err != nil {
		return dto.GroupAssignResponse{}, err
	}

	s.cache.Invalidate(ctx, ids...)

	return dto.GroupAssignResponse{GroupID: groupID, Requested: len(ids), Added: added}, nil
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	result := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result
}

func missingIDs(requested, found []uint) []uint {
	present := make(map[uint]struct{}, len(found))
	for _, id := range found {
		present[id] = struct{}{}
	}
	missing := []uint{}
	for _, id := range requested {
		if _, ok := present[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}
