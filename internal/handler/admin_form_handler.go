package handler

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/exam-hall-api/internal/service"
	"github.com/noah-isme/exam-hall-api/internal/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// AdminFormHandler wires exam form review endpoints.
type AdminFormHandler struct {
	service service.ExamFormService
	logger  zerolog.Logger
	now     func() time.Time
}

// NewAdminFormHandler constructs the handler.
func NewAdminFormHandler(service service.ExamFormService, logger zerolog.Logger) *AdminFormHandler {
	return &AdminFormHandler{
		service: service,
		logger:  logger.With().Str("component", "admin_form_handler").Logger(),
		now:     time.Now,
	}
}

// Register attaches form review routes. The export route is registered ahead of the
// parameterised routes so "export" is never parsed as an identifier.
func (h *AdminFormHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/export", h.export)
	router.Post("/:id/accept", h.accept)
}

func (h *AdminFormHandler) list(c *fiber.Ctx) error {
	forms, err := h.service.ListAll(withRequestContext(c), actorFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to list exam forms")
	}
	return utils.SendSuccess(c, "exam forms retrieved", forms)
}

func (h *AdminFormHandler) export(c *fiber.Ctx) error {
	workbook, err := h.service.ExportXLSX(withRequestContext(c), actorFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to export exam forms")
	}

	fileName := fmt.Sprintf("exam-forms-%s.xlsx", h.now().UTC().Format("20060102"))
	c.Set(fiber.HeaderContentType, xlsxContentType)
	c.Set(fiber.HeaderContentDisposition, contentDisposition("attachment", fileName))
	return c.Status(fiber.StatusOK).Send(workbook)
}

func (h *AdminFormHandler) accept(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.service.Accept(withRequestContext(c), actorFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err, "failed to accept exam form")
	}

	message := "exam form accepted"
	if !result.Transitioned {
		message = "exam form already accepted"
	}
	if result.Warning != "" {
		requestLogger(h.logger, c).Warn().Uint("form_id", id).Str("warning", result.Warning).Msg("acceptance notification degraded")
	}

	return utils.SendSuccess(c, message, result)
}
