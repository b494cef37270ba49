package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/exam-hall-api/internal/dto"
	"github.com/noah-isme/exam-hall-api/internal/service"
	"github.com/noah-isme/exam-hall-api/internal/utils"
)

// AdminGroupHandler wires student group endpoints.
type AdminGroupHandler struct {
	service service.GroupService
	logger  zerolog.Logger
}

// NewAdminGroupHandler constructs the handler.
func NewAdminGroupHandler(service service.GroupService, logger zerolog.Logger) *AdminGroupHandler {
	return &AdminGroupHandler{
		service: service,
		logger:  logger.With().Str("component", "admin_group_handler").Logger(),
	}
}

// Register attaches group routes.
func (h *AdminGroupHandler) Register(router fiber.Router) {
	router.Post("", h.create)
	router.Get("", h.list)
	router.Get("/:id/students", h.members)
	router.Post("/:id/students", h.assign)
}

func (h *AdminGroupHandler) create(c *fiber.Ctx) error {
	var payload dto.GroupCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	group, err := h.service.Create(withRequestContext(c), actorFromContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to create group")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "group created", group)
}

func (h *AdminGroupHandler) list(c *fiber.Ctx) error {
	groups, err := h.service.List(withRequestContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to list groups")
	}
	return utils.SendSuccess(c, "groups retrieved", groups)
}

func (h *AdminGroupHandler) members(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	members, err := h.service.Members(withRequestContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err, "failed to list group members")
	}
	return utils.SendSuccess(c, "group members retrieved", members)
}

func (h *AdminGroupHandler) assign(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.GroupAssignRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	result, err := h.service.AssignStudents(withRequestContext(c), actorFromContext(c), id, payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to assign students")
	}

	return utils.SendSuccess(c, "students assigned", result)
}
