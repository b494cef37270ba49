package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/exam-hall-api/internal/auth"
	"github.com/noah-isme/exam-hall-api/internal/middleware"
	"github.com/noah-isme/exam-hall-api/internal/models"
)

func protectedApp(t *testing.T, tokens *auth.TokenManager) *fiber.App {
	t.Helper()
	app := fiber.New()
	app.Get("/me", middleware.JWTProtected(tokens), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"id":   c.Locals("user_id"),
			"role": c.Locals("user_role"),
			"name": c.Locals("user_name"),
		})
	})
	return app
}

func bearerRequest(token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func TestJWTProtectedAcceptsValidToken(t *testing.T) {
	tokens, err := auth.NewTokenManager("secret", "exam-hall-api")
	require.NoError(t, err)
	token, _, err := tokens.Issue(5, models.RoleStudent, "Sam")
	require.NoError(t, err)

	resp, err := protectedApp(t, tokens).Test(bearerRequest(token))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestJWTProtectedRejectsMissingAndInvalidTokens(t *testing.T) {
	tokens, err := auth.NewTokenManager("secret", "exam-hall-api")
	require.NoError(t, err)
	app := protectedApp(t, tokens)

	resp, err := app.Test(bearerRequest(""))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, err = app.Test(bearerRequest("not-a-token"))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	other, err := auth.NewTokenManager("another-secret", "exam-hall-api")
	require.NoError(t, err)
	forged, _, err := other.Issue(1, models.RoleAdmin, "Mallory")
	require.NoError(t, err)

	resp, err = app.Test(bearerRequest(forged))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestJWTProtectedRejectsExpiredToken(t *testing.T) {
	issuedAt := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	past, err := auth.NewTokenManager("secret", "exam-hall-api", auth.WithClock(func() time.Time { return issuedAt }))
	require.NoError(t, err)
	token, _, err := past.Issue(5, models.RoleStudent, "Sam")
	require.NoError(t, err)

	now, err := auth.NewTokenManager("secret", "exam-hall-api", auth.WithClock(func() time.Time { return issuedAt.Add(25 * time.Hour) }))
	require.NoError(t, err)

	resp, err := protectedApp(t, now).Test(bearerRequest(token))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
