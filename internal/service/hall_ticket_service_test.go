package service

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/exam-hall-api/internal/models"
)

func TestHallTicketServiceRequiresAcceptedForm(t *testing.T) {
	store, _ := setupStore(t)
	admin := seedUser(t, store, "Ada", models.RoleAdmin)
	student := seedUser(t, store, "Sam", models.RoleStudent)
	exam := seedExam(t, store, "Midterm", "2024-06-01", admin.ID)
	forms := NewExamFormService(store, nil, testValidator(), testLogger())
	svc := NewHallTicketService(store, testLogger())

	form := submitForm(t, forms, student, exam.ID)

	_, err := svc.Generate(context.Background(), actorFor(student), form.ID)
	require.ErrorIs(t, err, ErrFormNotAccepted)

	_, err = svc.Generate(context.Background(), actorFor(student), 404)
	require.ErrorIs(t, err, ErrFormNotFound)
}

func TestHallTicketServiceRendersAcceptedForm(t *testing.T) {
	store, _ := setupStore(t)
	admin := seedUser(t, store, "Ada", models.RoleAdmin)
	student := seedUser(t, store, "Sam", models.RoleStudent)
	intruder := seedUser(t, store, "Eve", models.RoleStudent)
	exam := seedExam(t, store, "Midterm", "2024-06-01", admin.ID)
	forms := NewExamFormService(store, nil, testValidator(), testLogger())
	svc := NewHallTicketService(store, testLogger())

	form := submitForm(t, forms, student, exam.ID)
	_, err := forms.Accept(context.Background(), actorFor(admin), form.ID)
	require.NoError(t, err)

	ticket, err := svc.Generate(context.Background(), actorFor(student), form.ID)
	require.NoError(t, err)
	require.Equal(t, "hall-ticket-1.pdf", ticket.FileName)
	require.True(t, bytes.HasPrefix(ticket.Content, []byte("%PDF")))
	for _, want := range []string{"Sam", "Midterm", "2024-06-01", "101", "Math"} {
		require.True(t, bytes.Contains(ticket.Content, []byte(want)), "hall ticket should contain %q", want)
	}

	again, err := svc.Generate(context.Background(), actorFor(student), form.ID)
	require.NoError(t, err)
	require.Equal(t, ticket.Content, again.Content)

	_, err = svc.Generate(context.Background(), actorFor(intruder), form.ID)
	require.ErrorIs(t, err, ErrForbidden)
}
