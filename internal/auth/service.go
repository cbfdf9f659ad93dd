package auth

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Service registers users and issues session tokens.
type Service struct {
	users  UserRepository
	secret string
	ttl    time.Duration
}

// NewService creates a Service signing tokens with secret. A ttl of zero
// uses DefaultTokenTTL.
func NewService(users UserRepository, secret string, ttl time.Duration) *Service {
	return &Service{users: users, secret: secret, ttl: ttl}
}

// Register creates an account and returns it with a fresh session token.
func (s *Service) Register(ctx context.Context, reg Registration) (*User, string, error) {
	reg.Normalize()
	if err := reg.Validate(); err != nil {
		return nil, "", err
	}

	hash, err := HashPassword(reg.Password)
	if err != nil {
		return nil, "", fmt.Errorf("hashing password: %w", err)
	}

	user := &User{
		Email:          reg.Email,
		Name:           reg.Name,
		PasswordHash:   hash,
		NotifyTelegram: true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", err
	}

	token, err := GenerateToken(user, s.secret, s.ttl)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Login checks the credentials and returns the user with a session token.
// Unknown emails and wrong passwords both report ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (*User, string, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("loading user: %w", err)
	}

	ok, err := VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, "", fmt.Errorf("verifying password: %w", err)
	}
	if !ok {
		return nil, "", ErrInvalidCredentials
	}

	token, err := GenerateToken(user, s.secret, s.ttl)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Authenticate parses a session token and returns its claims.
func (s *Service) Authenticate(token string) (*Claims, error) {
	return ParseToken(token, s.secret)
}
