package auth

import (
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/classmarket/wallet/internal/models"
)

const testSecret = "test-secret-key"

func signToken(t *testing.T, secret string, userID uuid.UUID, role string, expiresAt time.Time) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Role: role,
	})

	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestParseToken(t *testing.T) {
	service, err := NewService(Config{SecretKey: testSecret})
	require.NoError(t, err)

	t.Run("valid token", func(t *testing.T) {
		userID := uuid.New()
		token := signToken(t, testSecret, userID, models.RoleAdmin, time.Now().Add(time.Hour))

		user, err := service.ParseToken(token)

		require.NoError(t, err)
		require.Equal(t, userID, user.ID)
		require.Equal(t, models.RoleAdmin, user.Role)
	})

	t.Run("missing role defaults to teacher", func(t *testing.T) {
		token := signToken(t, testSecret, uuid.New(), "", time.Now().Add(time.Hour))

		user, err := service.ParseToken(token)

		require.NoError(t, err)
		require.Equal(t, models.RoleTeacher, user.Role)
	})

	t.Run("expired token", func(t *testing.T) {
		token := signToken(t, testSecret, uuid.New(), models.RoleTeacher, time.Now().Add(-time.Hour))

		_, err := service.ParseToken(token)

		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong key", func(t *testing.T) {
		token := signToken(t, "other-secret", uuid.New(), models.RoleTeacher, time.Now().Add(time.Hour))

		_, err := service.ParseToken(token)

		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage subject", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "not-a-uuid",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		})
		signed, err := token.SignedString([]byte(testSecret))
		require.NoError(t, err)

		_, err = service.ParseToken(signed)

		require.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestGetUserFromRequest(t *testing.T) {
	service, err := NewService(Config{SecretKey: testSecret})
	require.NoError(t, err)

	t.Run("bearer token", func(t *testing.T) {
		userID := uuid.New()
		token := signToken(t, testSecret, userID, models.RoleTeacher, time.Now().Add(time.Hour))

		r, _ := http.NewRequest(http.MethodGet, "/api/wallet", nil)
		r.Header.Set("Authorization", "Bearer "+token)

		user, err := service.GetUserFromRequest(t.Context(), r)

		require.NoError(t, err)
		require.Equal(t, userID, user.ID)
	})

	t.Run("no header", func(t *testing.T) {
		r, _ := http.NewRequest(http.MethodGet, "/api/wallet", nil)

		_, err := service.GetUserFromRequest(t.Context(), r)

		require.ErrorIs(t, err, ErrNoToken)
	})

	t.Run("not bearer", func(t *testing.T) {
		r, _ := http.NewRequest(http.MethodGet, "/api/wallet", nil)
		r.Header.Set("Authorization", "Basic dXNlcjpwd2Q=")

		_, err := service.GetUserFromRequest(t.Context(), r)

		require.ErrorIs(t, err, ErrNoToken)
	})
}
