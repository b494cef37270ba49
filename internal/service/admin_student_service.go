package service

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/noah-isme/exam-hall-api/internal/auth"
	"github.com/noah-isme/exam-hall-api/internal/dto"
	"github.com/noah-isme/exam-hall-api/internal/models"
	"github.com/noah-isme/exam-hall-api/internal/repository"
)

// AdminStudentService lets administrators manage student accounts.
type AdminStudentService interface {
	Create(ctx context.Context, actor Actor, req dto.AdminStudentCreateRequest) (dto.UserResponse, error)
	List(ctx context.Context) ([]dto.UserResponse, error)
}

type adminStudentService struct {
	store     repository.Store
	hasher    *auth.PasswordHasher
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
}

// NewAdminStudentService constructs the admin student service.
func NewAdminStudentService(store repository.Store, hasher *auth.PasswordHasher, validate *validator.Validate, logger zerolog.Logger) AdminStudentService {
	return &adminStudentService{
		store:     store,
		hasher:    hasher,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "admin_student_service").Logger(),
	}
}

func (s *adminStudentService) Create(ctx context.Context, actor Actor, req dto.AdminStudentCreateRequest) (dto.UserResponse, error) {
	req.Email = repository.NormalizeEmail(req.Email)
	if err := s.validator.Struct(req); err != nil {
		return dto.UserResponse{}, err
	}

	var created models.User
	err := s.store.WithTransaction(ctx, func(tx repository.Store) error {
		user, err := createAccount(ctx, tx.Users(), s.hasher, s.sanitizer, req.Name, req.Email, req.Password, models.RoleStudent)
		if err != nil {
			return err
		}
		created = user

		return appendAudit(ctx, tx.AuditLogs(), AuditEntry{
			ActorID:  actor.ID,
			Action:   models.AuditAddStudent,
			Details:  fmt.Sprintf("Added student %s", user.Name),
			Metadata: map[string]interface{}{"student_id": user.ID, "email": user.Email},
		})
	})
	if err != nil {
		return dto.UserResponse{}, err
	}

	s.logger.Info().Uint("actor_id", actor.ID).Uint("student_id", created.ID).Msg("student created")

	return dto.NewUserResponse(created), nil
}

func (s *adminStudentService) List(ctx context.Context) ([]dto.UserResponse, error) {
	users, err := s.store.Users().ListByRole(ctx, models.RoleStudent)
	if err != nil {
		return nil, err
	}
	return dto.NewUserResponses(users), nil
}
