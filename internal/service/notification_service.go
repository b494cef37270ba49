package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/exam-hall-api/internal/observability"
	"github.com/noah-isme/exam-hall-api/pkg/mailer"
)

// FormAcceptedSubject is the NATS subject announcing accepted exam forms.
const FormAcceptedSubject = "exams.forms.accepted"

// Mailer delivers email messages.
type Mailer interface {
	Send(ctx context.Context, msg mailer.Message) error
}

// FormAcceptedEvent describes an exam form that just became accepted.
type FormAcceptedEvent struct {
	FormID       uint      `json:"form_id"`
	StudentID    uint      `json:"student_id"`
	StudentName  string    `json:"student_name"`
	StudentEmail string    `json:"-"`
	ExamID       uint      `json:"exam_id"`
	ExamName     string    `json:"exam_name"`
	ExamDate     string    `json:"exam_date"`
	AcceptedBy   uint      `json:"accepted_by"`
	AcceptedAt   time.Time `json:"accepted_at"`
}

// NotificationService tells students their exam form was accepted.
type NotificationService interface {
	FormAccepted(ctx context.Context, event FormAcceptedEvent) error
}

type notificationService struct {
	mailer Mailer
	nats   *nats.Conn
	logger zerolog.Logger
	tracer trace.Tracer
}

// NewNotificationService constructs the notification service. natsConn may be nil.
func NewNotificationService(m Mailer, natsConn *nats.Conn, logger zerolog.Logger) NotificationService {
	return &notificationService{
		mailer: m,
		nats:   natsConn,
		logger: logger.With().Str("component", "notification_service").Logger(),
		tracer: otel.Tracer("github.com/noah-isme/exam-hall-api/internal/service/notification"),
	}
}

// FormAccepted emails the student and publishes the event. Only the email outcome is
// reported; broker failures are logged.
func (s *notificationService) FormAccepted(ctx context.Context, event FormAcceptedEvent) error {
	ctx, span := s.tracer.Start(ctx, "notifications.form_accepted", trace.WithAttributes(
		attribute.Int("form.id", int(event.FormID)),
		attribute.Int("exam.id", int(event.ExamID)),
	))
	defer span.End()

	if err := s.publish(event); err != nil {
		s.logger.Warn().Err(err).Uint("form_id", event.FormID).Msg("failed to publish form accepted event")
	}

	if s.mailer == nil || strings.TrimSpace(event.StudentEmail) == "" {
		observability.Notifications().WithLabelValues("skipped").Inc()
		return nil
	}

	msg := mailer.Message{
		To:      event.StudentEmail,
		Subject: "Hall Ticket Accepted",
		Body:    acceptanceBody(event),
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		observability.Notifications().WithLabelValues("failed").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "mail failed")
		return fmt.Errorf("failed to notify student: %w", err)
	}

	observability.Notifications().WithLabelValues("sent").Inc()
	return nil
}

func (s *notificationService) publish(event FormAcceptedEvent) error {
	if s.nats == nil {
		return nil
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return s.nats.Publish(FormAcceptedSubject, payload)
}

func acceptanceBody(event FormAcceptedEvent) string {
	name := event.StudentName
	if name == "" {
		name = "student"
	}
	return fmt.Sprintf(
		"Hello %s,\n\nYour exam form for %s on %s has been accepted.\nYou can now download your hall ticket (form #%d).\n",
		name, event.ExamName, event.ExamDate, event.FormID,
	)
}
