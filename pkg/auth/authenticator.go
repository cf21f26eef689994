// Package auth holds the session authenticators the server consults before
// answering requests: an anonymous mode, a bcrypt username/password store
// and HS256 issued tokens.
package auth

import (
	"context"
	"errors"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrExpiredToken       = errors.New("token has expired")
	ErrInvalidClaims      = errors.New("invalid token claims")
	ErrInvalidRole        = errors.New("invalid role")
	ErrShortSecret        = errors.New("secret must be at least 32 characters")
)

// Roles. Observers may browse and read history; operators may in addition
// be handed write access once the server supports it.
const (
	RoleAdmin    = "admin"
	RoleOperator = "operator"
	RoleObserver = "observer"
)

var validRoles = map[string]bool{
	RoleAdmin:    true,
	RoleOperator: true,
	RoleObserver: true,
}

// ValidRole reports whether role is known.
func ValidRole(role string) bool { return validRoles[role] }

// Credentials carry what a client presented. Either Username and Password
// or Token is set.
type Credentials struct {
	Username string
	Password string
	Token    string
}

// Identity is an authenticated user.
type Identity struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Authenticator verifies client credentials.
type Authenticator interface {
	Authenticate(ctx context.Context, c Credentials) (*Identity, error)
	// Method names the mechanism for logs and metrics.
	Method() string
}

// Anonymous accepts every request as an observer.
type Anonymous struct{}

// Authenticate implements Authenticator.
func (Anonymous) Authenticate(context.Context, Credentials) (*Identity, error) {
	return &Identity{UserID: "anonymous", Username: "anonymous", Role: RoleObserver}, nil
}

// Method implements Authenticator.
func (Anonymous) Method() string { return "anonymous" }

// Chain tries each authenticator in order and returns the first success.
type Chain []Authenticator

// Authenticate implements Authenticator. The last error is returned when
// every authenticator rejects the credentials.
func (c Chain) Authenticate(ctx context.Context, creds Credentials) (*Identity, error) {
	lastErr := ErrInvalidCredentials
	for _, a := range c {
		id, err := a.Authenticate(ctx, creds)
		if err == nil {
			return id, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// Method implements Authenticator.
func (c Chain) Method() string { return "chain" }
