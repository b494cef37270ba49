package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/exam-hall-api/internal/dto"
	"github.com/noah-isme/exam-hall-api/internal/middleware"
	"github.com/noah-isme/exam-hall-api/internal/service"
	"github.com/noah-isme/exam-hall-api/internal/utils"
)

// StudentHandler wires the student-facing exam, form and hall ticket endpoints.
type StudentHandler struct {
	exams       service.StudentExamService
	forms       service.ExamFormService
	hallTickets service.HallTicketService
	logger      zerolog.Logger
}

// NewStudentHandler constructs the handler.
func NewStudentHandler(exams service.StudentExamService, forms service.ExamFormService, hallTickets service.HallTicketService, logger zerolog.Logger) *StudentHandler {
	return &StudentHandler{
		exams:       exams,
		forms:       forms,
		hallTickets: hallTickets,
		logger:      logger.With().Str("component", "student_handler").Logger(),
	}
}

// Register attaches student routes. Ownership of path-addressed records is enforced
// here and again by the services.
func (h *StudentHandler) Register(router fiber.Router) {
	self := middleware.AuthOptions{Role: middleware.AuthRoleStudent, OwnerParam: "studentId"}

	router.Get("/exams/:studentId", middleware.WithAuth(h.listExams, self))
	router.Post("/forms", middleware.WithAuth(h.submitForm, middleware.AuthOptions{Role: middleware.AuthRoleStudent}))
	router.Get("/forms/:studentId", middleware.WithAuth(h.listForms, self))
	router.Get("/hallticket/:formId", middleware.WithAuth(h.hallTicket, middleware.AuthOptions{Role: middleware.AuthRoleStudent}))
}

func (h *StudentHandler) listExams(c *fiber.Ctx) error {
	studentID, err := parseUintParam(c, "studentId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	exams, err := h.exams.ListForStudent(withRequestContext(c), actorFromContext(c), studentID)
	if err != nil {
		return respondError(c, h.logger, err, "failed to list exams")
	}
	return utils.SendSuccess(c, "exams retrieved", exams)
}

func (h *StudentHandler) submitForm(c *fiber.Ctx) error {
	var payload dto.FormSubmitRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	form, err := h.forms.Submit(withRequestContext(c), actorFromContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to submit exam form")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "exam form submitted", form)
}

func (h *StudentHandler) listForms(c *fiber.Ctx) error {
	studentID, err := parseUintParam(c, "studentId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	forms, err := h.forms.ListByStudent(withRequestContext(c), actorFromContext(c), studentID)
	if err != nil {
		return respondError(c, h.logger, err, "failed to list exam forms")
	}
	return utils.SendSuccess(c, "exam forms retrieved", forms)
}

func (h *StudentHandler) hallTicket(c *fiber.Ctx) error {
	formID, err := parseUintParam(c, "formId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	ticket, err := h.hallTickets.Generate(withRequestContext(c), actorFromContext(c), formID)
	if err != nil {
		return respondError(c, h.logger, err, "failed to generate hall ticket")
	}

	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, contentDisposition("attachment", ticket.FileName))
	return c.Status(fiber.StatusOK).Send(ticket.Content)
}
