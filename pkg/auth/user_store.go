package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dd0wney/cluso-uaspace/pkg/logging"
	"github.com/dd0wney/cluso-uaspace/pkg/metrics"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrEmptyPassword      = errors.New("password cannot be empty")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrInvalidUsername    = errors.New("username must be 3-50 alphanumeric characters")
	ErrInvalidHash        = errors.New("not a bcrypt hash")
	ErrPasswordHashFailed = errors.New("failed to hash password")
)

const (
	MinPasswordLength = 8
	MinUsernameLength = 3
	MaxUsernameLength = 50
	DefaultBcryptCost = 12
)

var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// User is one account of the password store.
type User struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
	Role         string `json:"role"`
}

// Identity returns the authenticated form of u.
func (u *User) Identity() *Identity {
	return &Identity{UserID: u.ID, Username: u.Username, Role: u.Role}
}

// StoreOption configures a UserStore.
type StoreOption func(*UserStore)

// WithBcryptCost sets the hashing cost for passwords added in clear text.
func WithBcryptCost(cost int) StoreOption {
	return func(s *UserStore) { s.cost = cost }
}

// WithStoreLogger sets the logger.
func WithStoreLogger(l logging.Logger) StoreOption {
	return func(s *UserStore) { s.logger = l }
}

// WithStoreMetrics sets the metrics registry.
func WithStoreMetrics(m *metrics.Registry) StoreOption {
	return func(s *UserStore) { s.metrics = m }
}

// UserStore is an in-memory username/password Authenticator. Users come
// from configuration, usually as pre-computed bcrypt hashes.
type UserStore struct {
	mu      sync.RWMutex
	users   map[string]*User // username -> user
	cost    int
	logger  logging.Logger
	metrics *metrics.Registry
}

// NewUserStore creates an empty store.
func NewUserStore(opts ...StoreOption) *UserStore {
	s := &UserStore{users: make(map[string]*User), cost: DefaultBcryptCost}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.OrDefault(s.logger).With(logging.Component("auth"))
	return s
}

// AddUser hashes password and stores a new user.
func (s *UserStore) AddUser(username, password, role string) (*User, error) {
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPasswordHashFailed, err)
	}
	return s.AddHashed(username, string(hash), role)
}

// AddHashed stores a user whose password is already a bcrypt hash.
func (s *UserStore) AddHashed(username, hash, role string) (*User, error) {
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if !ValidRole(role) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRole, role)
	}
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return nil, fmt.Errorf("%w: user %s", ErrInvalidHash, username)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[username]; exists {
		return nil, fmt.Errorf("%w: %s", ErrUserExists, username)
	}
	u := &User{ID: uuid.New().String(), Username: username, PasswordHash: hash, Role: role}
	s.users[username] = u
	return u, nil
}

// User returns the user with the given name.
func (s *UserStore) User(username string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[username]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, username)
	}
	return u, nil
}

// Usernames returns the stored user names, sorted.
func (s *UserStore) Usernames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.users))
	for name := range s.users {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Authenticate implements Authenticator. Unknown users and wrong passwords
// both yield ErrInvalidCredentials.
func (s *UserStore) Authenticate(ctx context.Context, c Credentials) (*Identity, error) {
	start := time.Now()
	u, err := s.User(c.Username)
	if err == nil && c.Password != "" {
		err = bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(c.Password))
	} else if err == nil {
		err = ErrEmptyPassword
	}

	ok := err == nil
	s.metrics.RecordAuth(s.Method(), ok)
	if !ok {
		s.logger.Info("authentication failed", logging.String("username", c.Username), logging.Latency(time.Since(start)))
		return nil, ErrInvalidCredentials
	}
	s.logger.Debug("authenticated", logging.String("username", u.Username), logging.String("role", u.Role))
	return u.Identity(), nil
}

// Method implements Authenticator.
func (s *UserStore) Method() string { return "password" }

func validateUsername(username string) error {
	if len(username) < MinUsernameLength || len(username) > MaxUsernameLength {
		return ErrInvalidUsername
	}
	if !usernameRegex.MatchString(username) {
		return ErrInvalidUsername
	}
	return nil
}

func validatePassword(password string) error {
	if password == "" {
		return ErrEmptyPassword
	}
	if len(password) < MinPasswordLength {
		return ErrWeakPassword
	}
	return nil
}
