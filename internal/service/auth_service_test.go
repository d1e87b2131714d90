package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/quizhub-api/internal/models"
	appErrors "github.com/noah-isme/quizhub-api/pkg/errors"
)

func signToken(t *testing.T, secret string, method jwt.SigningMethod, claims models.JWTClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func testClaims(userID string, role models.UserRole, expiresAt time.Time) models.JWTClaims {
	return models.JWTClaims{
		UserID: userID,
		Role:   role,
		Email:  userID + "@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "quizhub",
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
}

func TestAuthServiceValidateToken(t *testing.T) {
	svc := NewAuthService(zap.NewNop(), AuthConfig{AccessTokenSecret: "secret", Issuer: "quizhub"})
	token := signToken(t, "secret", jwt.SigningMethodHS256, testClaims("mentor-1", models.RoleMentor, time.Now().Add(time.Hour)))

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "mentor-1", claims.UserID)
	assert.Equal(t, models.RoleMentor, claims.Role)
}

func TestAuthServiceRejectsInvalidTokens(t *testing.T) {
	svc := NewAuthService(nil, AuthConfig{AccessTokenSecret: "secret", Issuer: "quizhub"})

	cases := map[string]string{
		"expired":      signToken(t, "secret", jwt.SigningMethodHS256, testClaims("u", models.RoleStudent, time.Now().Add(-time.Minute))),
		"wrong secret": signToken(t, "other", jwt.SigningMethodHS256, testClaims("u", models.RoleStudent, time.Now().Add(time.Hour))),
		"wrong alg":    signToken(t, "secret", jwt.SigningMethodHS512, testClaims("u", models.RoleStudent, time.Now().Add(time.Hour))),
		"no subject":   signToken(t, "secret", jwt.SigningMethodHS256, testClaims("", models.RoleStudent, time.Now().Add(time.Hour))),
		"garbage":      "not-a-token",
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.ValidateToken(token)
			require.Error(t, err)
			assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
		})
	}
}

func TestAuthServiceChecksIssuer(t *testing.T) {
	svc := NewAuthService(nil, AuthConfig{AccessTokenSecret: "secret", Issuer: "someone-else"})
	token := signToken(t, "secret", jwt.SigningMethodHS256, testClaims("u", models.RoleStudent, time.Now().Add(time.Hour)))

	_, err := svc.ValidateToken(token)
	assert.Error(t, err)
}
