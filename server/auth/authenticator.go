// Package auth verifies the bearer tokens issued by the identity provider.
package auth

import (
	"context"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// ContextKey is the key type of values stored in a request context.
type ContextKey int

const (
	// UserIDContextKey holds the authenticated user id.
	UserIDContextKey ContextKey = iota
)

// UserClaims are the claims of an access token. The subject is the user id.
type UserClaims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// AuthResult is the outcome of a successful authentication.
type AuthResult struct {
	UserID string
	Claims *UserClaims
}

// Authenticator verifies HS256 access tokens signed with a shared secret.
type Authenticator struct {
	secret []byte
}

func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

// Authenticate validates the Authorization header value.
func (a *Authenticator) Authenticate(_ context.Context, authHeader string) (*AuthResult, error) {
	if len(a.secret) == 0 {
		return nil, errors.New("authentication is not configured")
	}
	token, ok := ExtractBearerToken(authHeader)
	if !ok {
		return nil, errors.New("missing bearer token")
	}

	claims := &UserClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithLeeway(30*time.Second))
	if err != nil {
		return nil, errors.Wrap(err, "invalid access token")
	}
	if !parsed.Valid {
		return nil, errors.New("invalid access token")
	}
	if claims.Subject == "" {
		return nil, errors.New("access token has no subject")
	}
	return &AuthResult{UserID: claims.Subject, Claims: claims}, nil
}

// ExtractBearerToken returns the token of a "Bearer <token>" header.
func ExtractBearerToken(authHeader string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(authHeader), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// GenerateAccessToken signs a token for userID. Used by the dev token command and tests.
func GenerateAccessToken(secret, userID string, expiresAt time.Time) (string, error) {
	now := time.Now()
	claims := &UserClaims{
		Role: "authenticated",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", errors.Wrap(err, "failed to sign access token")
	}
	return token, nil
}

// SetUserIDInContext stores the authenticated user id.
func SetUserIDInContext(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDContextKey, userID)
}

// GetUserID returns the authenticated user id, or "" for anonymous requests.
func GetUserID(ctx context.Context) string {
	userID, _ := ctx.Value(UserIDContextKey).(string)
	return userID
}
