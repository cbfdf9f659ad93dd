package auth

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
)

// Domain errors for authentication operations.
var (
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrUserNotFound       = errors.New("auth: user not found")
	ErrEmailExists        = errors.New("auth: email already exists")
	ErrTokenInvalid       = errors.New("auth: token invalid")
	ErrInvalidUser        = errors.New("auth: invalid user")
	ErrMalformedHash      = errors.New("auth: malformed password hash")
)

// MinPasswordLength is the shortest password Register accepts.
const MinPasswordLength = 6

// User is a SmartEgg account. PasswordHash is never serialised.
type User struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	Name           string    `json:"name"`
	PasswordHash   string    `json:"-"`
	TelegramChatID *int64    `json:"telegramChatId"`
	NotifyTelegram bool      `json:"notifyTelegram"`
	NotifyEmail    bool      `json:"notifyEmail"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Registration is the input for a new account.
type Registration struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// ProfilePatch carries the profile fields a user may change. Nil fields are
// left untouched. A TelegramChatID of 0 unlinks the chat.
type ProfilePatch struct {
	Name           *string `json:"name"`
	TelegramChatID *int64  `json:"telegramChatId"`
	NotifyTelegram *bool   `json:"notifyTelegram"`
	NotifyEmail    *bool   `json:"notifyEmail"`
}

// Normalize trims whitespace and lower-cases the email.
func (r *Registration) Normalize() {
	r.Email = normalizeEmail(r.Email)
	r.Name = strings.TrimSpace(r.Name)
}

// Validate checks that the registration can become an account.
func (r Registration) Validate() error {
	if err := validateEmail(r.Email); err != nil {
		return err
	}
	if len(r.Password) < MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidUser, MinPasswordLength)
	}
	if r.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidUser)
	}
	return nil
}

// Validate checks the fields the patch sets.
func (p ProfilePatch) Validate() error {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return fmt.Errorf("%w: name must not be empty", ErrInvalidUser)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrInvalidUser)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("%w: email %q is not valid", ErrInvalidUser, email)
	}
	return nil
}
