package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dd0wney/cluso-uaspace/pkg/metrics"
)

// Claims are the JWT claims of an issued session token.
type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// TokenManager issues and validates HS256 session tokens. It is an
// Authenticator for Credentials carrying a Token.
type TokenManager struct {
	secret   []byte
	issuer   string
	duration time.Duration
	metrics  *metrics.Registry
}

// NewTokenManager creates a token manager. The secret must be at least 32
// characters long.
func NewTokenManager(secret, issuer string, duration time.Duration, m *metrics.Registry) (*TokenManager, error) {
	if len(secret) < 32 {
		return nil, ErrShortSecret
	}
	return &TokenManager{secret: []byte(secret), issuer: issuer, duration: duration, metrics: m}, nil
}

// Issue signs a token for id.
func (m *TokenManager) Issue(id *Identity) (string, error) {
	if id == nil || id.UserID == "" || id.Username == "" {
		return "", fmt.Errorf("%w: empty identity", ErrInvalidClaims)
	}
	if !ValidRole(id.Role) {
		return "", fmt.Errorf("%w: %s", ErrInvalidRole, id.Role)
	}

	now := time.Now()
	claims := Claims{
		Username: id.Username,
		Role:     id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.duration)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Validate parses and verifies a token.
func (m *TokenManager) Validate(token string) (*Claims, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	}, opts...)
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrExpiredToken
	default:
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims.Subject == "" || claims.Username == "" {
		return nil, fmt.Errorf("%w: missing subject or username", ErrInvalidClaims)
	}
	if !ValidRole(claims.Role) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRole, claims.Role)
	}
	return claims, nil
}

// Authenticate implements Authenticator.
func (m *TokenManager) Authenticate(_ context.Context, c Credentials) (*Identity, error) {
	claims, err := m.Validate(c.Token)
	m.metrics.RecordAuth(m.Method(), err == nil)
	if err != nil {
		return nil, err
	}
	return &Identity{UserID: claims.Subject, Username: claims.Username, Role: claims.Role}, nil
}

// Method implements Authenticator.
func (m *TokenManager) Method() string { return "jwt" }

// Duration returns the lifetime of issued tokens.
func (m *TokenManager) Duration() time.Duration { return m.duration }
