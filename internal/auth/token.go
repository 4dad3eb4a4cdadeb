// Package auth verifies bearer access tokens issued by the managed auth
// service and resolves them to a domain.Identity.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dukerupert/roastbox/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrMissingToken is returned when no bearer credential is supplied.
	ErrMissingToken = errors.New("auth: missing bearer token")

	// ErrInvalidToken is returned for malformed, expired or forged tokens.
	ErrInvalidToken = errors.New("auth: invalid token")
)

// AdminRole is the app_metadata role that grants admin delivery overrides.
const AdminRole = "admin"

// Claims are the access token claims the service reads.
type Claims struct {
	jwt.RegisteredClaims
	Email       string `json:"email"`
	Role        string `json:"role"`
	AppMetadata struct {
		Role string `json:"role"`
	} `json:"app_metadata"`
}

// TokenVerifier validates HS256 tokens with a shared secret.
type TokenVerifier struct {
	secret   []byte
	audience string
	leeway   time.Duration
}

// NewTokenVerifier returns a verifier. audience is optional.
func NewTokenVerifier(secret, audience string) (*TokenVerifier, error) {
	if secret == "" {
		return nil, errors.New("auth: JWT secret is required")
	}
	return &TokenVerifier{secret: []byte(secret), audience: audience, leeway: 30 * time.Second}, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", ErrMissingToken
	}
	return strings.TrimSpace(token), nil
}

// Verify parses and validates a token and returns the caller identity.
func (v *TokenVerifier) Verify(token string) (*domain.Identity, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: subject is not a user id", ErrInvalidToken)
	}

	return &domain.Identity{
		UserID: userID,
		Email:  claims.Email,
		Admin:  claims.AppMetadata.Role == AdminRole || claims.Role == AdminRole,
	}, nil
}
