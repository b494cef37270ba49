package handler

import (
	"fmt"
	"mime"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/exam-hall-api/internal/dto"
	"github.com/noah-isme/exam-hall-api/internal/service"
	"github.com/noah-isme/exam-hall-api/internal/utils"
)

// documentField is the multipart field carrying an exam document.
const documentField = "document"

// AdminExamHandler wires exam management and exam document endpoints.
type AdminExamHandler struct {
	exams     service.ExamService
	documents service.DocumentService
	logger    zerolog.Logger
}

// NewAdminExamHandler constructs the handler.
func NewAdminExamHandler(exams service.ExamService, documents service.DocumentService, logger zerolog.Logger) *AdminExamHandler {
	return &AdminExamHandler{
		exams:     exams,
		documents: documents,
		logger:    logger.With().Str("component", "admin_exam_handler").Logger(),
	}
}

// Register attaches admin-only exam routes. The document download route is shared with
// students and is mounted separately through StreamDocument.
func (h *AdminExamHandler) Register(router fiber.Router) {
	router.Post("", h.create)
	router.Get("", h.list)
	router.Put("/:id", h.update)
	router.Post("/:id/document", h.uploadDocument)
}

func (h *AdminExamHandler) create(c *fiber.Ctx) error {
	var payload dto.ExamCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	exam, err := h.exams.Create(withRequestContext(c), actorFromContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to create exam")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "exam created", exam)
}

func (h *AdminExamHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.ExamUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	exam, err := h.exams.Update(withRequestContext(c), actorFromContext(c), id, payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to update exam")
	}

	return utils.SendSuccess(c, "exam updated", exam)
}

func (h *AdminExamHandler) list(c *fiber.Ctx) error {
	exams, err := h.exams.List(withRequestContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to list exams")
	}
	return utils.SendSuccess(c, "exams retrieved", exams)
}

func (h *AdminExamHandler) uploadDocument(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	file, err := c.FormFile(documentField)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, service.ErrFileRequired.Error())
	}

	response, err := h.documents.Upload(withRequestContext(c), actorFromContext(c), id, file)
	if err != nil {
		return respondError(c, h.logger, err, "failed to upload document")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "document uploaded", response)
}

// StreamDocument serves the stored document of an exam to administrators and students.
func (h *AdminExamHandler) StreamDocument(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	document, err := h.documents.Open(withRequestContext(c), actorFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err, "failed to open document")
	}

	c.Set(fiber.HeaderContentType, document.MimeType)
	c.Set(fiber.HeaderContentDisposition, contentDisposition("inline", document.FileName))
	// fasthttp closes the stream once the body has been written.
	return c.Status(fiber.StatusOK).SendStream(document.Content)
}

func contentDisposition(kind, fileName string) string {
	if disposition := mime.FormatMediaType(kind, map[string]string{"filename": fileName}); disposition != "" {
		return disposition
	}
	return fmt.Sprintf("%s; filename=%q", kind, fileName)
}
