package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appctx "storeops/internal/core/context"
)

func TestJWT_RoundTrip(t *testing.T) {
	svc := NewJWTService(DefaultJWTConfig("secret"))
	user := appctx.UserContext{
		UserID:     "u-1",
		Roles:      []string{appctx.RoleCustomer},
		CustomerID: "0195f0c2-0000-7000-8000-000000000001",
	}

	token, expiresAt, err := svc.GenerateAccessToken(user)
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	got, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.UserID, got.UserID)
	assert.Equal(t, user.CustomerID, got.CustomerID)
	assert.Equal(t, user.Roles, got.Roles)
	assert.False(t, got.IsStaff())
}

func TestJWT_Rejects(t *testing.T) {
	svc := NewJWTService(DefaultJWTConfig("secret"))
	staff := appctx.UserContext{UserID: "u-2", Roles: []string{appctx.RoleStaff}, EmployeeID: "e-1"}

	otherKey, _, err := NewJWTService(DefaultJWTConfig("other")).GenerateAccessToken(staff)
	require.NoError(t, err)

	otherIssuer := DefaultJWTConfig("secret")
	otherIssuer.Issuer = "someone-else"
	foreign, _, err := NewJWTService(otherIssuer).GenerateAccessToken(staff)
	require.NoError(t, err)

	past := NewJWTService(DefaultJWTConfig("secret"))
	past.now = func() time.Time { return time.Now().Add(-time.Hour) }
	expired, _, err := past.GenerateAccessToken(staff)
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: "u-3"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := map[string]string{
		"wrong key":    otherKey,
		"wrong issuer": foreign,
		"expired":      expired,
		"alg none":     none,
		"garbage":      "not-a-token",
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := svc.ValidateToken(token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}
