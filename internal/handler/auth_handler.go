package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/exam-hall-api/internal/dto"
	"github.com/noah-isme/exam-hall-api/internal/service"
	"github.com/noah-isme/exam-hall-api/internal/utils"
)

// AuthHandler exposes login and self-registration.
type AuthHandler struct {
	service service.AuthService
	limiter fiber.Handler
	logger  zerolog.Logger
}

// NewAuthHandler constructs the handler. limiter guards the login route and may be nil.
func NewAuthHandler(service service.AuthService, limiter fiber.Handler, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		limiter: limiter,
		logger:  logger.With().Str("component", "auth_handler").Logger(),
	}
}

// Register attaches auth routes.
func (h *AuthHandler) Register(router fiber.Router) {
	if h.limiter != nil {
		router.Post("/login", h.limiter, h.login)
	} else {
		router.Post("/login", h.login)
	}
	router.Post("/register", h.register)
}

func (h *AuthHandler) login(c *fiber.Ctx) error {
	var payload dto.LoginRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	response, err := h.service.Login(withRequestContext(c), payload)
	if err != nil {
		if isValidationError(err) {
			// Malformed credentials are reported like wrong ones.
			return utils.SendError(c, fiber.StatusUnauthorized, service.ErrInvalidCredentials.Error())
		}
		return respondError(c, h.logger, err, "login failed")
	}

	return utils.SendSuccess(c, "login successful", response)
}

func (h *AuthHandler) register(c *fiber.Ctx) error {
	var payload dto.RegisterRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	response, err := h.service.Register(withRequestContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err, "registration failed")
	}

	requestLogger(h.logger, c).Info().Uint("user_id", response.UserID).Str("role", response.Role).Msg("account registered")
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "registration successful", response)
}
