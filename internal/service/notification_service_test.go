package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func acceptedEvent() FormAcceptedEvent {
	return FormAcceptedEvent{
		FormID:       7,
		StudentID:    3,
		StudentName:  "Sam",
		StudentEmail: "sam@example.com",
		ExamID:       2,
		ExamName:     "Midterm",
		ExamDate:     "2024-06-01",
		AcceptedBy:   1,
		AcceptedAt:   time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC),
	}
}

func TestNotificationServiceSendsAcceptanceMail(t *testing.T) {
	mail := &recordingMailer{}
	svc := NewNotificationService(mail, nil, testLogger())

	require.NoError(t, svc.FormAccepted(context.Background(), acceptedEvent()))
	require.Len(t, mail.messages, 1)

	msg := mail.messages[0]
	require.Equal(t, "sam@example.com", msg.To)
	require.Equal(t, "Hall Ticket Accepted", msg.Subject)
	require.True(t, strings.Contains(msg.Body, "Midterm on 2024-06-01"))
	require.True(t, strings.Contains(msg.Body, "form #7"))
}

func TestNotificationServiceReportsMailFailure(t *testing.T) {
	mail := &recordingMailer{err: errors.New("relay refused")}
	svc := NewNotificationService(mail, nil, testLogger())

	err := svc.FormAccepted(context.Background(), acceptedEvent())
	require.Error(t, err)
}

func TestNotificationServiceSkipsMissingRecipient(t *testing.T) {
	mail := &recordingMailer{}
	svc := NewNotificationService(mail, nil, testLogger())

	event := acceptedEvent()
	event.StudentEmail = ""
	require.NoError(t, svc.FormAccepted(context.Background(), event))
	require.Empty(t, mail.messages)
}
