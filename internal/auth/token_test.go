package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/exam-hall-api/internal/models"
)

func TestTokenRoundTrip(t *testing.T) {
	manager, err := NewTokenManager("signing-secret", "exam-hall-api")
	require.NoError(t, err)

	token, expiresAt, err := manager.Issue(42, models.RoleAdmin, "Ada")
	require.NoError(t, err)

	claims, err := manager.Verify(token)
	require.NoError(t, err)
	require.Equal(t, uint(42), claims.UserID)
	require.Equal(t, models.RoleAdmin, claims.Role)
	require.Equal(t, "Ada", claims.Name)
	require.True(t, claims.ExpiresAt.Equal(expiresAt))
	require.Equal(t, TokenLifetime, claims.ExpiresAt.Sub(claims.IssuedAt))
}

func TestTokenExpiresAfterLifetime(t *testing.T) {
	issuedAt := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	current := issuedAt
	manager, err := NewTokenManager("signing-secret", "exam-hall-api", WithClock(func() time.Time { return current }))
	require.NoError(t, err)

	token, _, err := manager.Issue(7, models.RoleStudent, "Sam")
	require.NoError(t, err)

	current = issuedAt.Add(TokenLifetime - time.Minute)
	_, err = manager.Verify(token)
	require.NoError(t, err)

	current = issuedAt.Add(TokenLifetime + time.Minute)
	_, err = manager.Verify(token)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenRejectsForeignSignature(t *testing.T) {
	issuer, err := NewTokenManager("secret-a", "exam-hall-api")
	require.NoError(t, err)
	verifier, err := NewTokenManager("secret-b", "exam-hall-api")
	require.NoError(t, err)

	token, _, err := issuer.Issue(1, models.RoleAdmin, "Ada")
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	require.ErrorIs(t, err, ErrSignatureInvalid)
}

func TestTokenRejectsTamperedPayload(t *testing.T) {
	manager, err := NewTokenManager("signing-secret", "exam-hall-api")
	require.NoError(t, err)

	token, _, err := manager.Issue(1, models.RoleStudent, "Sam")
	require.NoError(t, err)
	other, _, err := manager.Issue(2, models.RoleAdmin, "Ada")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	otherParts := strings.Split(other, ".")
	forged := strings.Join([]string{parts[0], otherParts[1], parts[2]}, ".")

	_, err = manager.Verify(forged)
	require.ErrorIs(t, err, ErrSignatureInvalid)
}

func TestTokenRejectsGarbage(t *testing.T) {
	manager, err := NewTokenManager("signing-secret", "exam-hall-api")
	require.NoError(t, err)

	_, err = manager.Verify("not-a-token")
	require.ErrorIs(t, err, ErrTokenMalformed)
}

func TestNewTokenManagerRequiresSecret(t *testing.T) {
	_, err := NewTokenManager("  ", "exam-hall-api")
	require.Error(t, err)
}

func TestTokenRejectsForeignIssuer(t *testing.T) {
	other, err := NewTokenManager("signing-secret", "another-service")
	require.NoError(t, err)
	manager, err := NewTokenManager("signing-secret", "exam-hall-api")
	require.NoError(t, err)

	token, _, err := other.Issue(3, models.RoleAdmin, "Mallory")
	require.NoError(t, err)

	_, err = manager.Verify(token)
	require.ErrorIs(t, err, ErrTokenMalformed)
}
