package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/exam-hall-api/internal/dto"
	"github.com/noah-isme/exam-hall-api/internal/models"
	"github.com/noah-isme/exam-hall-api/internal/repository"
)

var (
	// ErrExamNotFound indicates the exam does not exist.
	ErrExamNotFound = errors.New("exam not found")
	// ErrInvalidExamDate indicates the exam date is not a YYYY-MM-DD calendar day.
	ErrInvalidExamDate = errors.New("exam date must use YYYY-MM-DD")
)

// ExamService manages the exam catalogue.
type ExamService interface {
	Create(ctx context.Context, actor Actor, req dto.ExamCreateRequest) (dto.ExamResponse, error)
	Update(ctx context.Context, actor Actor, id uint, req dto.ExamUpdateRequest) (dto.ExamResponse, error)
	List(ctx context.Context) ([]dto.ExamResponse, error)
}

type examService struct {
	store     repository.Store
	cache     *ExamCache
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
}

// NewExamService constructs the exam catalogue service.
func NewExamService(store repository.Store, cache *ExamCache, validate *validator.Validate, logger zerolog.Logger) ExamService {
	return &examService{
		store:     store,
		cache:     cache,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "exam_service").Logger(),
	}
}

func (s *examService) Create(ctx context.Context, actor Actor, req dto.ExamCreateRequest) (dto.ExamResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.ExamResponse{}, err
	}

	date, err := parseExamDate(req.Date)
	if err != nil {
		return dto.ExamResponse{}, err
	}

	schema, err := normalizeFormSchema(req.FormSchema)
	if err != nil {
		return dto.ExamResponse{}, err
	}

	exam := models.Exam{
		Name:        strings.TrimSpace(s.sanitizer.Sanitize(req.Name)),
		Date:        date,
		Description: strings.TrimSpace(s.sanitizer.Sanitize(req.Description)),
		CreatedBy:   actor.ID,
	}
	if exam.Name == "" {
		return dto.ExamResponse{}, ErrInvalidName
	}
	if schema != nil {
		exam.FormSchema = datatypes.JSON(schema)
	}

	err = s.store.WithTransaction(ctx, func(tx repository.Store) error {
		if err := tx.Exams().Create(ctx, &exam); err != nil {
			return fmt.Errorf("failed to create exam: %w", err)
		}
		return appendAudit(ctx, tx.AuditLogs(), AuditEntry{
			ActorID:  actor.ID,
			Action:   models.AuditCreateExam,
			Details:  fmt.Sprintf("Created exam %s", exam.Name),
			Metadata: map[string]interface{}{"exam_id": exam.ID, "date": exam.DateString()},
		})
	})
	if err != nil {
		s.logger.Error().Err(err).Uint("actor_id", actor.ID).Msg("failed to create exam")
		return dto.ExamResponse{}, err
	}

	return dto.NewExamResponse(exam), nil
}

func (s *examService) Update(ctx context.Context, actor Actor, id uint, req dto.ExamUpdateRequest) (dto.ExamResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.ExamResponse{}, err
	}

	var updated models.Exam
	err := s.store.WithTransaction(ctx, func(tx repository.Store) error {
		exam, err := tx.Exams().GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrExamNotFound
			}
			return err
		}

		changed := []string{}
		if req.Name != nil {
			name := strings.TrimSpace(s.sanitizer.Sanitize(*req.Name))
			if name == "" {
				return ErrInvalidName
			}
			exam.Name = name
			changed = append(changed, "name")
		}
		if req.Date != nil {
			date, err := parseExamDate(*req.Date)
			if err != nil {
				return err
			}
			exam.Date = date
			changed = append(changed, "date")
		}
		if req.Description != nil {
			exam.Description = strings.TrimSpace(s.sanitizer.Sanitize(*req.Description))
			changed = append(changed, "description")
		}
		if len(req.FormSchema) > 0 {
			schema, err := normalizeFormSchema(req.FormSchema)
			if err != nil {
				return err
			}
			exam.FormSchema = datatypes.JSON(schema)
			changed = append(changed, "form_schema")
		}

		if err := tx.Exams().Save(ctx, &exam); err != nil {
			return fmt.Errorf("failed to update exam: %w", err)
		}
		updated = exam

		return appendAudit(ctx, tx.AuditLogs(), AuditEntry{
			ActorID:  actor.ID,
			Action:   models.AuditUpdateExam,
			Details:  fmt.Sprintf("Updated exam %s", exam.Name),
			Metadata: map[string]interface{}{"exam_id": exam.ID, "fields": changed},
		})
	})
	if err != nil {
		return dto.ExamResponse{}, err
	}

	s.invalidateExam(ctx, updated.ID)

	return dto.NewExamResponse(updated), nil
}

func (s *examService) List(ctx context.Context) ([]dto.ExamResponse, error) {
	exams, err := s.store.Exams().List(ctx)
	if err != nil {
		return nil, err
	}
	return dto.NewExamResponses(exams), nil
}

func (s *examService) invalidateExam(ctx context.Context, examID uint) {
	if !s.cache.Enabled() {
		return
	}

	studentIDs, err := s.store.Groups().StudentIDsForExam(ctx, examID)
	if err != nil {
		s.logger.Warn().Err(err).Uint("exam_id", examID).Msg("failed to resolve students for cache invalidation")
		return
	}
	s.cache.Invalidate(ctx, studentIDs...)
}

func parseExamDate(raw string) (time.Time, error) {
	date, err := time.ParseInLocation(models.ExamDateLayout, strings.TrimSpace(raw), time.UTC)
	if err != nil {
		return time.Time{}, ErrInvalidExamDate
	}
	return date, nil
}
