package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/exam-hall-api/internal/service"
)

func TestRespondErrorMapsServiceErrors(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{service.ErrDuplicateEmail, fiber.StatusBadRequest},
		{fmt.Errorf("%w: rollNumber is required", service.ErrInvalidSubmission), fiber.StatusBadRequest},
		{service.ErrInvalidCredentials, fiber.StatusUnauthorized},
		{service.ErrAdminRegistrationClosed, fiber.StatusForbidden},
		{service.ErrFormNotAccepted, fiber.StatusForbidden},
		{service.ErrFormNotFound, fiber.StatusNotFound},
		{service.ErrDuplicateForm, fiber.StatusConflict},
		{service.ErrUploadTooLarge, fiber.StatusRequestEntityTooLarge},
		{errors.New("connection reset"), fiber.StatusInternalServerError},
	}

	for _, tc := range cases {
		err := tc.err
		app := fiber.New()
		app.Get("/", func(c *fiber.Ctx) error {
			return respondError(c, zerolog.Nop(), err, "operation failed")
		})

		resp, testErr := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
		require.NoError(t, testErr)
		require.Equal(t, tc.status, resp.StatusCode, err.Error())
	}
}

func TestRespondErrorHidesInternalErrors(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return respondError(c, zerolog.Nop(), errors.New("pq: password authentication failed"), "failed to list exams")
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &payload))
	require.Equal(t, "failed to list exams", payload["message"])
	require.NotContains(t, string(body), "pq:")
}

func TestRespondErrorIncludesValidationDetails(t *testing.T) {
	type request struct {
		Email string `validate:"required,email"`
	}
	validationErr := validator.New().Struct(request{Email: "nope"})
	require.Error(t, validationErr)

	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return respondError(c, zerolog.Nop(), validationErr, "failed")
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var payload struct {
		Details []string `json:"details"`
	}
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(body, &payload))
	require.Equal(t, []string{"email failed email"}, payload.Details)
}

func TestParseUintParam(t *testing.T) {
	app := fiber.New()
	app.Get("/:id", func(c *fiber.Ctx) error {
		id, err := parseUintParam(c, "id")
		if err != nil {
			return c.SendStatus(fiber.StatusBadRequest)
		}
		return c.SendString(fmt.Sprint(id))
	})

	for path, status := range map[string]int{"/42": fiber.StatusOK, "/0": fiber.StatusBadRequest, "/abc": fiber.StatusBadRequest, "/-1": fiber.StatusBadRequest} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
		require.NoError(t, err)
		require.Equal(t, status, resp.StatusCode, path)
	}
}

func TestContentDisposition(t *testing.T) {
	require.Equal(t, `attachment; filename=hall-ticket-7.pdf`, contentDisposition("attachment", "hall-ticket-7.pdf"))
	require.Equal(t, `inline; filename="exam notes.pdf"`, contentDisposition("inline", "exam notes.pdf"))
}
