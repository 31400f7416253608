package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/authkeep/authkeep-go/internal/crypto"
	"github.com/authkeep/authkeep-go/internal/model"
	"github.com/authkeep/authkeep-go/internal/notify"
	"github.com/authkeep/authkeep-go/internal/repository"
)

const (
	claimID    = "id"
	claimEmail = "email"

	confirmationSubject = "Validate your email"
)

// UserStore persists users. FindByEmail and FindByID return
// repository.ErrUserNotFound when nothing matches; Insert returns
// repository.ErrDuplicateEmail when the email is taken.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
	Insert(ctx context.Context, user *model.User) error
	Save(ctx context.Context, user *model.User) error
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encodedHash string) (bool, error)
}

type TokenSigner interface {
	Sign(claims crypto.Claims, ttl time.Duration) (string, error)
	Verify(token string) (crypto.Claims, error)
}

// NotificationDispatcher runs deliveries without blocking the caller.
type NotificationDispatcher interface {
	Dispatch(ctx context.Context, compose notify.ComposeFunc)
}

// AuthConfig holds the token windows and the public base URL used in
// confirmation links.
type AuthConfig struct {
	SessionTTL      time.Duration
	ConfirmationTTL time.Duration
	WebserviceURL   string
}

// AuthService handles authentication business logic.
type AuthService struct {
	users      UserStore
	hasher     PasswordHasher
	signer     TokenSigner
	dispatcher NotificationDispatcher
	cfg        AuthConfig
	logger     *slog.Logger

	// dummyHash is verified against when a login email is unknown so both
	// failure paths cost one hash verification.
	dummyHash string
}

// NewAuthService creates a new AuthService.
func NewAuthService(
	users UserStore,
	hasher PasswordHasher,
	signer TokenSigner,
	dispatcher NotificationDispatcher,
	cfg AuthConfig,
	logger *slog.Logger,
) (*AuthService, error) {
	dummy, err := hasher.Hash(uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("computing dummy hash: %w", err)
	}
	return &AuthService{
		users:      users,
		hasher:     hasher,
		signer:     signer,
		dispatcher: dispatcher,
		cfg:        cfg,
		logger:     logger,
		dummyHash:  dummy,
	}, nil
}

// Register creates a new user account, schedules the confirmation email and
// returns a session token.
func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest) (model.AuthResponse, error) {
	email := model.NormalizeEmail(req.Email)

	_, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return model.AuthResponse{}, newError(KindConflict, ErrEmailTaken)
	case !errors.Is(err, repository.ErrUserNotFound):
		return model.AuthResponse{}, internal(fmt.Errorf("looking up email: %w", err))
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return model.AuthResponse{}, internal(fmt.Errorf("hashing password: %w", err))
	}

	now := time.Now().UTC()
	user := &model.User{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		PasswordHash: hash,
		Roles:        []string{model.RoleUser},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Insert(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return model.AuthResponse{}, newError(KindConflict, ErrEmailTaken)
		}
		return model.AuthResponse{}, internal(fmt.Errorf("inserting user: %w", err))
	}

	s.dispatcher.Dispatch(ctx, s.confirmationMessage(user.Email))

	token, err := s.signer.Sign(crypto.Claims{claimID: user.ID}, s.cfg.SessionTTL)
	if err != nil {
		return model.AuthResponse{}, internal(fmt.Errorf("signing session token: %w", err))
	}

	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID)

	return model.AuthResponse{Token: token, User: model.NewUserResponse(user)}, nil
}

// Login authenticates a user and returns a session token. Unconfirmed users
// may log in.
func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (model.AuthResponse, error) {
	user, err := s.users.FindByEmail(ctx, model.NormalizeEmail(req.Email))
	if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		return model.AuthResponse{}, internal(fmt.Errorf("looking up email: %w", err))
	}

	if user == nil {
		_, _ = s.hasher.Verify(req.Password, s.dummyHash)
		return model.AuthResponse{}, newError(KindInvalidCredentials, ErrInvalidCredentials)
	}

	match, err := s.hasher.Verify(req.Password, user.PasswordHash)
	if err != nil {
		return model.AuthResponse{}, internal(fmt.Errorf("verifying password: %w", err))
	}
	if !match {
		return model.AuthResponse{}, newError(KindInvalidCredentials, ErrInvalidCredentials)
	}

	token, err := s.signer.Sign(crypto.Claims{claimID: user.ID}, s.cfg.SessionTTL)
	if err != nil {
		return model.AuthResponse{}, internal(fmt.Errorf("signing session token: %w", err))
	}

	return model.AuthResponse{Token: token, User: model.NewUserResponse(user)}, nil
}

// ConfirmEmail marks the email carried by a confirmation token as confirmed.
// Confirming an already confirmed email succeeds.
func (s *AuthService) ConfirmEmail(ctx context.Context, token string) error {
	claims, err := s.signer.Verify(token)
	if err != nil {
		return newError(KindUnauthorized, ErrInvalidToken)
	}

	email, ok := claims.String(claimEmail)
	if !ok {
		return internal(ErrTokenMissingEmail)
	}

	user, err := s.users.FindByEmail(ctx, model.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return newError(KindNotFound, ErrUserNotFound)
		}
		return internal(fmt.Errorf("looking up email: %w", err))
	}

	user.EmailConfirmed = true
	user.UpdatedAt = time.Now().UTC()
	if err := s.users.Save(ctx, user); err != nil {
		return internal(fmt.Errorf("saving user: %w", err))
	}

	s.logger.InfoContext(ctx, "email confirmed", "user_id", user.ID)
	return nil
}

// Authenticate verifies a session token and returns the user id it carries.
func (s *AuthService) Authenticate(_ context.Context, token string) (string, error) {
	claims, err := s.signer.Verify(token)
	if err != nil {
		return "", newError(KindUnauthorized, ErrInvalidToken)
	}
	id, ok := claims.String(claimID)
	if !ok {
		return "", newError(KindUnauthorized, ErrInvalidToken)
	}
	return id, nil
}

// GetUser retrieves a user by ID and returns safe user data.
func (s *AuthService) GetUser(ctx context.Context, userID string) (model.UserResponse, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return model.UserResponse{}, newError(KindNotFound, ErrUserNotFound)
		}
		return model.UserResponse{}, internal(fmt.Errorf("looking up user: %w", err))
	}
	return model.NewUserResponse(user), nil
}

// confirmationMessage signs the confirmation token when the delivery runs,
// not when registration returns.
func (s *AuthService) confirmationMessage(email string) notify.ComposeFunc {
	return func(context.Context) (notify.Message, error) {
		token, err := s.signer.Sign(crypto.Claims{claimEmail: email}, s.cfg.ConfirmationTTL)
		if err != nil {
			return notify.Message{}, fmt.Errorf("signing confirmation token: %w", err)
		}
		link := ConfirmationLink(s.cfg.WebserviceURL, token)
		return notify.Message{
			To:      email,
			Subject: confirmationSubject,
			Body: fmt.Sprintf(`<h1>Validate your email</h1><p>Click <a href="%s">here</a> to validate your email</p>`,
				html.EscapeString(link)),
		}, nil
	}
}

// ConfirmationLink builds the URL a user follows to confirm their email.
func ConfirmationLink(baseURL, token string) string {
	return strings.TrimRight(baseURL, "/") + "/auth/validate-email/" + url.PathEscape(token)
}
