package handler

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/exam-hall-api/internal/middleware"
	"github.com/noah-isme/exam-hall-api/internal/models"
	"github.com/noah-isme/exam-hall-api/internal/service"
	"github.com/noah-isme/exam-hall-api/internal/utils"
)

func parseQueryInt(c *fiber.Ctx, key string) (int, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return 0, nil
	}
	return strconv.Atoi(value)
}

func parseUintParam(c *fiber.Ctx, name string) (uint, error) {
	parsed, err := strconv.ParseUint(strings.TrimSpace(c.Params(name)), 10, 64)
	if err != nil || parsed == 0 {
		return 0, errors.New("invalid identifier")
	}
	return uint(parsed), nil
}

func actorFromContext(c *fiber.Ctx) service.Actor {
	actor := service.Actor{}
	if id, ok := c.Locals("user_id").(uint); ok {
		actor.ID = id
	}
	if role, ok := c.Locals("user_role").(string); ok {
		actor.Role = models.Role(strings.ToLower(role))
	}
	if name, ok := c.Locals("user_name").(string); ok {
		actor.Name = name
	}
	return actor
}

func withRequestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

func isValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}

func validationDetails(err error) []string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil
	}
	details := make([]string, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		details = append(details, strings.ToLower(fieldErr.Field())+" failed "+fieldErr.Tag())
	}
	return details
}

// serviceErrorStatus maps service sentinel errors to HTTP statuses.
var serviceErrorStatus = []struct {
	err    error
	status int
}{
	{service.ErrDuplicateEmail, fiber.StatusBadRequest},
	{service.ErrInvalidName, fiber.StatusBadRequest},
	{service.ErrInvalidSubmission, fiber.StatusBadRequest},
	{service.ErrInvalidFormSchema, fiber.StatusBadRequest},
	{service.ErrInvalidExamDate, fiber.StatusBadRequest},
	{service.ErrUnknownStudents, fiber.StatusBadRequest},
	{service.ErrUploadTypeNotAllowed, fiber.StatusBadRequest},
	{service.ErrUploadScanFailed, fiber.StatusBadRequest},
	{service.ErrFileRequired, fiber.StatusBadRequest},
	{service.ErrInvalidCredentials, fiber.StatusUnauthorized},
	{service.ErrAdminRegistrationClosed, fiber.StatusForbidden},
	{service.ErrForbidden, fiber.StatusForbidden},
	{service.ErrFormNotAccepted, fiber.StatusForbidden},
	{service.ErrExamNotFound, fiber.StatusNotFound},
	{service.ErrGroupNotFound, fiber.StatusNotFound},
	{service.ErrFormNotFound, fiber.StatusNotFound},
	{service.ErrStudentNotFound, fiber.StatusNotFound},
	{service.ErrDocumentNotFound, fiber.StatusNotFound},
	{service.ErrDuplicateForm, fiber.StatusConflict},
	{service.ErrUploadTooLarge, fiber.StatusRequestEntityTooLarge},
}

// respondError writes the error envelope for err. Unexpected errors are logged and
// reported with fallback as the message.
func respondError(c *fiber.Ctx, logger zerolog.Logger, err error, fallback string) error {
	if isValidationError(err) {
		return utils.Fail(c, fiber.StatusBadRequest, "validation failed", validationDetails(err))
	}
	for _, mapping := range serviceErrorStatus {
		if errors.Is(err, mapping.err) {
			return utils.SendError(c, mapping.status, err.Error())
		}
	}

	requestLogger(logger, c).Error().Err(err).Msg(fallback)
	return utils.SendError(c, fiber.StatusInternalServerError, fallback)
}
