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
	"gorm.io/gorm"

	"github.com/noah-isme/exam-hall-api/internal/auth"
	"github.com/noah-isme/exam-hall-api/internal/dto"
	"github.com/noah-isme/exam-hall-api/internal/models"
	"github.com/noah-isme/exam-hall-api/internal/repository"
)

var (
	// ErrDuplicateEmail indicates an account with the email already exists.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrInvalidCredentials indicates the email or password did not match.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrAdminRegistrationClosed indicates an administrator already exists.
	ErrAdminRegistrationClosed = errors.New("admin registration is closed")
	// ErrInvalidName indicates the display name was empty after sanitizing.
	ErrInvalidName = errors.New("name must not be empty")
)

// TokenIssuer mints session tokens.
type TokenIssuer interface {
	Issue(userID uint, role models.Role, name string) (string, time.Time, error)
}

// AuthService registers accounts and verifies credentials.
type AuthService interface {
	Register(ctx context.Context, req dto.RegisterRequest) (dto.AuthResponse, error)
	Login(ctx context.Context, req dto.LoginRequest) (dto.AuthResponse, error)
	Verify(ctx context.Context, email, password string) (models.User, error)
}

type authService struct {
	users     repository.UserRepository
	hasher    *auth.PasswordHasher
	tokens    TokenIssuer
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
}

// NewAuthService constructs the credential store service.
func NewAuthService(users repository.UserRepository, hasher *auth.PasswordHasher, tokens TokenIssuer, validate *validator.Validate, logger zerolog.Logger) AuthService {
	return &authService{
		users:     users,
		hasher:    hasher,
		tokens:    tokens,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "auth_service").Logger(),
	}
}

func (s *authService) Register(ctx context.Context, req dto.RegisterRequest) (dto.AuthResponse, error) {
	req.Email = repository.NormalizeEmail(req.Email)
	if err := s.validator.Struct(req); err != nil {
		return dto.AuthResponse{}, err
	}

	role := models.ParseRole(req.Role)
	user, err := createAccount(ctx, s.users, s.hasher, s.sanitizer, req.Name, req.Email, req.Password, role)
	if err != nil {
		return dto.AuthResponse{}, err
	}

	s.logger.Info().Uint("user_id", user.ID).Str("role", string(user.Role)).Msg("account registered")

	return s.issue(user)
}

func (s *authService) Login(ctx context.Context, req dto.LoginRequest) (dto.AuthResponse, error) {
	req.Email = repository.NormalizeEmail(req.Email)
	if err := s.validator.Struct(req); err != nil {
		return dto.AuthResponse{}, err
	}

	user, err := s.Verify(ctx, req.Email, req.Password)
	if err != nil {
		return dto.AuthResponse{}, err
	}

	return s.issue(user)
}

func (s *authService) Verify(ctx context.Context, email, password string) (models.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.hasher.CompareDummy(password)
			return models.User{}, ErrInvalidCredentials
		}
		return models.User{}, err
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return models.User{}, ErrInvalidCredentials
		}
		return models.User{}, err
	}

	return user, nil
}

func (s *authService) issue(user models.User) (dto.AuthResponse, error) {
	token, expiresAt, err := s.tokens.Issue(user.ID, user.Role, user.Name)
	if err != nil {
		s.logger.Error().Err(err).Uint("user_id", user.ID).Msg("failed to issue token")
		return dto.AuthResponse{}, err
	}

	return dto.AuthResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		UserID:    user.ID,
		Name:      user.Name,
		Role:      string(user.Role),
	}, nil
}

// createAccount hashes the password and inserts the user. Admin accounts take the single
// admin slot, so a concurrent second admin insert fails on the unique index.
func createAccount(ctx context.Context, users repository.UserRepository, hasher *auth.PasswordHasher, sanitizer *bluemonday.Policy, name, email, password string, role models.Role) (models.User, error) {
	cleanName := strings.TrimSpace(sanitizer.Sanitize(name))
	if cleanName == "" {
		return models.User{}, ErrInvalidName
	}

	exists, err := users.EmailExists(ctx, email)
	if err != nil {
		return models.User{}, err
	}
	if exists {
		return models.User{}, ErrDuplicateEmail
	}

	if role == models.RoleAdmin {
		if closed, err := adminExists(ctx, users); err != nil {
			return models.User{}, err
		} else if closed {
			return models.User{}, ErrAdminRegistrationClosed
		}
	}

	hash, err := hasher.Hash(password)
	if err != nil {
		return models.User{}, err
	}

	user := models.User{
		Name:         cleanName,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}
	if role == models.RoleAdmin {
		slot := 1
		user.AdminSlot = &slot
	}

	if err := users.Create(ctx, &user); err != nil {
		// Lost a race against another insert; report which constraint we hit.
		if role == models.RoleAdmin {
			if closed, checkErr := adminExists(ctx, users); checkErr == nil && closed {
				return models.User{}, ErrAdminRegistrationClosed
			}
		}
		if exists, checkErr := users.EmailExists(ctx, email); checkErr == nil && exists {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

func adminExists(ctx context.Context, users repository.UserRepository) (bool, error) {
	count, err := users.CountByRole(ctx, models.RoleAdmin)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
