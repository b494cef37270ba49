package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/exam-hall-api/internal/observability"
	"github.com/noah-isme/exam-hall-api/internal/repository"
	"github.com/noah-isme/exam-hall-api/pkg/hallticket"
)

// ErrFormNotAccepted indicates a hall ticket was requested for a form that is not accepted.
var ErrFormNotAccepted = errors.New("exam form has not been accepted")

// HallTicket is a rendered hall ticket ready for download.
type HallTicket struct {
	FileName string
	Content  []byte
}

// HallTicketService renders hall tickets for accepted exam forms.
type HallTicketService interface {
	Generate(ctx context.Context, actor Actor, formID uint) (HallTicket, error)
}

type hallTicketService struct {
	store  repository.Store
	logger zerolog.Logger
	tracer trace.Tracer
}

// NewHallTicketService constructs the hall ticket service.
func NewHallTicketService(store repository.Store, logger zerolog.Logger) HallTicketService {
	return &hallTicketService{
		store:  store,
		logger: logger.With().Str("component", "hall_ticket_service").Logger(),
		tracer: otel.Tracer("github.com/noah-isme/exam-hall-api/internal/service/hall_ticket"),
	}
}

func (s *hallTicketService) Generate(ctx context.Context, actor Actor, formID uint) (HallTicket, error) {
	ctx, span := s.tracer.Start(ctx, "hall_ticket.generate", trace.WithAttributes(
		attribute.Int("form.id", int(formID)),
	))
	defer span.End()

	form, err := s.store.Forms().GetByID(ctx, formID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return HallTicket{}, ErrFormNotFound
		}
		return HallTicket{}, err
	}

	if !actor.CanActFor(form.StudentID) {
		return HallTicket{}, ErrForbidden
	}
	if !form.IsAccepted() {
		return HallTicket{}, ErrFormNotAccepted
	}

	student, err := s.store.Users().GetByID(ctx, form.StudentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return HallTicket{}, ErrStudentNotFound
		}
		return HallTicket{}, err
	}
	exam, err := s.store.Exams().GetByID(ctx, form.ExamID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return HallTicket{}, ErrExamNotFound
		}
		return HallTicket{}, err
	}

	content, err := hallticket.Render(hallticket.Ticket{
		FormID:      form.ID,
		StudentName: student.Name,
		ExamName:    exam.Name,
		ExamDate:    exam.Date,
		Fields:      form.Payload,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "render failed")
		s.logger.Error().Err(err).Uint("form_id", formID).Msg("failed to render hall ticket")
		return HallTicket{}, err
	}

	observability.HallTicketsRendered().Inc()

	return HallTicket{
		FileName: fmt.Sprintf("hall-ticket-%d.pdf", form.ID),
		Content:  content,
	}, nil
}
