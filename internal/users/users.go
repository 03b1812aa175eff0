// Package users registers and authenticates accounts. Passwords are stored
// as bcrypt hashes; the rest of the system only sees the username.
package users

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

const (
	MinUsernameLen = 3
	MaxUsernameLen = 30
	MinPasswordLen = 6
)

var (
	ErrUserExists         = storage.ErrUserExists
	ErrReservedUsername   = errors.New("username is reserved")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// DefaultReserved lists usernames nobody may register.
var DefaultReserved = []string{"admin", "root", "system"}

type Service struct {
	store    storage.UserStore
	reserved map[string]struct{}
	cost     int
}

// Option configures a Service.
type Option func(*Service)

// WithCost sets the bcrypt cost. Tests use bcrypt.MinCost.
func WithCost(cost int) Option {
	return func(s *Service) { s.cost = cost }
}

// WithReserved replaces the reserved username list.
func WithReserved(names ...string) Option {
	return func(s *Service) {
		s.reserved = map[string]struct{}{}
		for _, n := range names {
			s.reserved[strings.ToLower(n)] = struct{}{}
		}
	}
}

func NewService(store storage.UserStore, opts ...Option) *Service {
	s := &Service{store: store, cost: bcrypt.DefaultCost}
	WithReserved(DefaultReserved...)(s)
	for _, o := range opts {
		o(s)
	}
	return s
}

// ValidateUsername trims and checks a username.
func (s *Service) ValidateUsername(username string) (string, error) {
	username = strings.TrimSpace(username)
	n := utf8.RuneCountInString(username)
	if n < MinUsernameLen || n > MaxUsernameLen {
		return "", &core.ValidationError{Field: "username", Err: errors.New("must be 3 to 30 characters")}
	}
	if _, ok := s.reserved[strings.ToLower(username)]; ok {
		return "", &core.ValidationError{Field: "username", Err: ErrReservedUsername}
	}
	return username, nil
}

// Register creates an account and returns the stored username.
func (s *Service) Register(ctx context.Context, username, password, confirm string) (string, error) {
	username, err := s.ValidateUsername(username)
	if err != nil {
		return "", err
	}
	if utf8.RuneCountInString(password) < MinPasswordLen {
		return "", &core.ValidationError{Field: "password", Err: errors.New("must be at least 6 characters")}
	}
	if password != confirm {
		return "", &core.ValidationError{Field: "password_confirm", Err: ErrPasswordMismatch}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", &core.ValidationError{Field: "password", Err: err}
	}
	if err := s.store.CreateUser(ctx, username, string(hash)); err != nil {
		return "", err
	}
	return username, nil
}

// Authenticate checks credentials. Unknown users and wrong passwords both
// return ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, username, password string) (string, error) {
	username = strings.TrimSpace(username)
	hash, err := s.store.GetUserHash(ctx, username)
	if errors.Is(err, core.ErrNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return username, nil
}
