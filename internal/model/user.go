package model

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

// RoleUser is assigned to every account created through registration.
const RoleUser = "USER_ROLE"

// MinPasswordLength is the shortest password accepted at registration.
const MinPasswordLength = 6

var (
	ErrNameRequired     = errors.New("missing name")
	ErrEmailRequired    = errors.New("missing email")
	ErrEmailInvalid     = errors.New("invalid email")
	ErrPasswordRequired = errors.New("missing password")
	ErrPasswordTooShort = errors.New("password must be at least 6 characters")
)

var emailPattern = regexp.MustCompile(`^[\w.+-]+@([\w-]+\.)+[\w-]{2,}$`)

// User represents a user in the database.
type User struct {
	ID             string
	Name           string
	Email          string
	EmailConfirmed bool
	PasswordHash   string `json:"-"`
	Avatar         string
	Roles          []string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// RegisterRequest represents a user registration request.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks the request in the order a client would fix it.
func (r RegisterRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrNameRequired
	}
	if err := validateEmail(r.Email); err != nil {
		return err
	}
	if r.Password == "" {
		return ErrPasswordRequired
	}
	if len(r.Password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	return nil
}

// LoginRequest represents a user login request.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r LoginRequest) Validate() error {
	if err := validateEmail(r.Email); err != nil {
		return err
	}
	if r.Password == "" {
		return ErrPasswordRequired
	}
	return nil
}

func validateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ErrEmailRequired
	}
	if !emailPattern.MatchString(email) {
		return ErrEmailInvalid
	}
	return nil
}

// NormalizeEmail lowercases and trims an address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// AuthResponse represents an authentication response with a JWT token and user info.
type AuthResponse struct {
	User  UserResponse `json:"user"`
	Token string       `json:"token"`
}

// UserResponse represents user data safe for API responses (no sensitive fields).
type UserResponse struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	EmailConfirmed bool      `json:"email_confirmed"`
	Avatar         string    `json:"avatar,omitempty"`
	Roles          []string  `json:"roles"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewUserResponse strips the password hash from u.
func NewUserResponse(u *User) UserResponse {
	return UserResponse{
		ID:             u.ID,
		Name:           u.Name,
		Email:          u.Email,
		EmailConfirmed: u.EmailConfirmed,
		Avatar:         u.Avatar,
		Roles:          append([]string(nil), u.Roles...),
		CreatedAt:      u.CreatedAt,
	}
}
