package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/exam-hall-api/internal/dto"
	"github.com/noah-isme/exam-hall-api/internal/models"
	"github.com/noah-isme/exam-hall-api/internal/observability"
	"github.com/noah-isme/exam-hall-api/internal/repository"
)

var (
	// ErrFormNotFound indicates the exam form does not exist.
	ErrFormNotFound = errors.New("exam form not found")
	// ErrDuplicateForm indicates the student already submitted a form for the exam.
	ErrDuplicateForm = errors.New("exam form already submitted")
	// ErrStudentNotFound indicates the student account does not exist.
	ErrStudentNotFound = errors.New("student not found")
)

// ExamFormService drives the exam form lifecycle.
type ExamFormService interface {
	Submit(ctx context.Context, actor Actor, req dto.FormSubmitRequest) (dto.FormResponse, error)
	Accept(ctx context.Context, actor Actor, formID uint) (dto.FormAcceptResponse, error)
	ListAll(ctx context.Context, actor Actor) ([]dto.FormResponse, error)
	ListByStudent(ctx context.Context, actor Actor, studentID uint) ([]dto.FormResponse, error)
	ExportXLSX(ctx context.Context, actor Actor) ([]byte, error)
}

type examFormService struct {
	store     repository.Store
	notifier  NotificationService
	validator *validator.Validate
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewExamFormService constructs the exam form lifecycle service. notifier may be nil.
func NewExamFormService(store repository.Store, notifier NotificationService, validate *validator.Validate, logger zerolog.Logger) ExamFormService {
	return &examFormService{
		store:     store,
		notifier:  notifier,
		validator: validate,
		logger:    logger.With().Str("component", "exam_form_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/exam-hall-api/internal/service/exam_form"),
		now:       time.Now,
	}
}

func (s *examFormService) Submit(ctx context.Context, actor Actor, req dto.FormSubmitRequest) (dto.FormResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.FormResponse{}, err
	}

	studentID := actor.ID
	if req.StudentID != 0 && req.StudentID != actor.ID {
		return dto.FormResponse{}, ErrForbidden
	}

	ctx, span := s.tracer.Start(ctx, "exam_form.submit", trace.WithAttributes(
		attribute.Int("student.id", int(studentID)),
		attribute.Int("exam.id", int(req.ExamID)),
	))
	defer span.End()

	student, err := s.store.Users().GetByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.FormResponse{}, ErrStudentNotFound
		}
		return dto.FormResponse{}, err
	}
	if student.Role != models.RoleStudent {
		return dto.FormResponse{}, ErrStudentNotFound
	}

	exam, err := s.store.Exams().GetByID(ctx, req.ExamID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.FormResponse{}, ErrExamNotFound
		}
		return dto.FormResponse{}, err
	}

	if exam.HasFormSchema() {
		if err := validateSubmission(exam.FormSchema, req.SubmissionData); err != nil {
			span.RecordError(err)
			return dto.FormResponse{}, err
		}
	}

	exists, err := s.store.Forms().Exists(ctx, studentID, exam.ID)
	if err != nil {
		return dto.FormResponse{}, err
	}
	if exists {
		return dto.FormResponse{}, ErrDuplicateForm
	}

	form := models.ExamForm{
		StudentID: studentID,
		ExamID:    exam.ID,
		Payload:   datatypes.JSONMap(req.SubmissionData),
		Status:    models.FormStatusPending,
	}
	if err := s.store.Forms().Create(ctx, &form); err != nil {
		if exists, checkErr := s.store.Forms().Exists(ctx, studentID, exam.ID); checkErr == nil && exists {
			return dto.FormResponse{}, ErrDuplicateForm
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "persistence failed")
		return dto.FormResponse{}, fmt.Errorf("failed to create exam form: %w", err)
	}

	observability.FormTransitions().WithLabelValues(string(models.FormStatusPending)).Inc()
	s.logger.Info().Uint("form_id", form.ID).Uint("student_id", studentID).Uint("exam_id", exam.ID).Msg("exam form submitted")

	response := dto.NewFormResponse(form)
	response.StudentName = student.Name
	response.ExamName = exam.Name
	return response, nil
}

// Accept moves a pending form to accepted. Accepting a form that is already accepted is a
// no-op that neither audits nor notifies.
func (s *examFormService) Accept(ctx context.Context, actor Actor, formID uint) (dto.FormAcceptResponse, error) {
	ctx, span := s.tracer.Start(ctx, "exam_form.accept", trace.WithAttributes(
		attribute.Int("form.id", int(formID)),
		attribute.Int("actor.id", int(actor.ID)),
	))
	defer span.End()

	var (
		form         models.ExamForm
		transitioned bool
	)
	acceptedAt := s.now().UTC()

	err := s.store.WithTransaction(ctx, func(tx repository.Store) error {
		current, err := tx.Forms().GetByID(ctx, formID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrFormNotFound
			}
			return err
		}

		transitioned, err = tx.Forms().MarkAccepted(ctx, formID, actor.ID, acceptedAt)
		if err != nil {
			return fmt.Errorf("failed to accept exam form: %w", err)
		}
		if !transitioned {
			form = current
			return nil
		}

		if err := appendAudit(ctx, tx.AuditLogs(), AuditEntry{
			ActorID:  actor.ID,
			Action:   models.AuditAcceptForm,
			Details:  fmt.Sprintf("Accepted exam form #%d", formID),
			Metadata: map[string]interface{}{"form_id": formID, "student_id": current.StudentID, "exam_id": current.ExamID},
		}); err != nil {
			return err
		}

		form, err = tx.Forms().GetByID(ctx, formID)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "accept failed")
		return dto.FormAcceptResponse{}, err
	}

	span.SetAttributes(attribute.Bool("form.transitioned", transitioned))
	response := dto.FormAcceptResponse{
		Form:         dto.NewFormResponse(form),
		Transitioned: transitioned,
	}
	if !transitioned {
		return response, nil
	}

	observability.FormTransitions().WithLabelValues(string(models.FormStatusAccepted)).Inc()
	s.logger.Info().Uint("form_id", formID).Uint("actor_id", actor.ID).Msg("exam form accepted")

	if warning := s.notifyAccepted(ctx, form, actor.ID); warning != "" {
		response.Warning = warning
	} else {
		response.NotificationSent = true
	}

	return response, nil
}

// notifyAccepted runs after commit. It returns a warning message instead of failing.
func (s *examFormService) notifyAccepted(ctx context.Context, form models.ExamForm, actorID uint) string {
	if s.notifier == nil {
		return "notification service unavailable"
	}

	student, err := s.store.Users().GetByID(ctx, form.StudentID)
	if err != nil {
		s.logger.Warn().Err(err).Uint("form_id", form.ID).Msg("failed to load student for notification")
		return "student notification could not be sent"
	}
	exam, err := s.store.Exams().GetByID(ctx, form.ExamID)
	if err != nil {
		s.logger.Warn().Err(err).Uint("form_id", form.ID).Msg("failed to load exam for notification")
		return "student notification could not be sent"
	}

	acceptedAt := s.now().UTC()
	if form.AcceptedAt != nil {
		acceptedAt = *form.AcceptedAt
	}

	event := FormAcceptedEvent{
		FormID:       form.ID,
		StudentID:    student.ID,
		StudentName:  student.Name,
		StudentEmail: student.Email,
		ExamID:       exam.ID,
		ExamName:     exam.Name,
		ExamDate:     exam.DateString(),
		AcceptedBy:   actorID,
		AcceptedAt:   acceptedAt,
	}
	if err := s.notifier.FormAccepted(ctx, event); err != nil {
		s.logger.Warn().Err(err).Uint("form_id", form.ID).Msg("form accepted but notification failed")
		return "form accepted but the student notification failed"
	}
	return ""
}

func (s *examFormService) ListAll(ctx context.Context, actor Actor) ([]dto.FormResponse, error) {
	rows, err := s.store.Forms().ListAll(ctx)
	if err != nil {
		return nil, err
	}

	if err := appendAudit(ctx, s.store.AuditLogs(), AuditEntry{
		ActorID:  actor.ID,
		Action:   models.AuditViewForms,
		Details:  "Viewed exam forms",
		Metadata: map[string]interface{}{"count": len(rows)},
	}); err != nil {
		s.logger.Error().Err(err).Msg("failed to audit form listing")
		return nil, err
	}

	return dto.NewFormRowResponses(rows), nil
}

func (s *examFormService) ListByStudent(ctx context.Context, actor Actor, studentID uint) ([]dto.FormResponse, error) {
	if !actor.CanActFor(studentID) {
		return nil, ErrForbidden
	}

	rows, err := s.store.Forms().ListByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	return dto.NewFormRowResponses(rows), nil
}
