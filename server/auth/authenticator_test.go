package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticate(t *testing.T) {
	a := NewAuthenticator("secret")
	ctx := context.Background()

	token, err := GenerateAccessToken("secret", "user-1", time.Now().Add(time.Hour))
	require.NoError(t, err)
	result, err := a.Authenticate(ctx, "Bearer "+token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", result.UserID)
	assert.Equal(t, "authenticated", result.Claims.Role)

	result, err = a.Authenticate(ctx, "bearer   "+token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", result.UserID)
}

func TestAuthenticate_Rejects(t *testing.T) {
	a := NewAuthenticator("secret")
	ctx := context.Background()

	expired, err := GenerateAccessToken("secret", "user-1", time.Now().Add(-time.Hour))
	require.NoError(t, err)
	wrongKey, err := GenerateAccessToken("other", "user-1", time.Now().Add(time.Hour))
	require.NoError(t, err)
	noSubject, err := GenerateAccessToken("secret", "", time.Now().Add(time.Hour))
	require.NoError(t, err)
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "user-1"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, header := range map[string]string{
		"empty":      "",
		"basic":      "Basic dXNlcjpwYXNz",
		"garbage":    "Bearer not-a-jwt",
		"expired":    "Bearer " + expired,
		"wrong key":  "Bearer " + wrongKey,
		"no subject": "Bearer " + noSubject,
		"alg none":   "Bearer " + none,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := a.Authenticate(ctx, header)
			assert.Error(t, err)
		})
	}

	_, err = NewAuthenticator("").Authenticate(ctx, "Bearer x")
	assert.Error(t, err)
}

func TestUserIDContext(t *testing.T) {
	ctx := SetUserIDInContext(context.Background(), "user-1")
	assert.Equal(t, "user-1", GetUserID(ctx))
	assert.Empty(t, GetUserID(context.Background()))
}
