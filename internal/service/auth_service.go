package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"campus/internal/middleware"
	"campus/internal/models"
	"campus/internal/observability"
	"campus/internal/repository"
	"campus/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

// RegisterInput is the registration form.
type RegisterInput struct {
	Username string `json:"username" validate:"notblank,max=50"`
	Password string `json:"password" validate:"required,max=72"`
	Email    string `json:"email" validate:"required,email,max=255"`
	BornDate string `json:"bornDate" validate:"required"`
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	User  *models.User
	Token string
}

// AuthService registers users and issues tokens.
type AuthService struct {
	users  repository.UserRepository
	tokens *TokenManager
}

func NewAuthService(users repository.UserRepository, tokens *TokenManager) *AuthService {
	return &AuthService{users: users, tokens: tokens}
}

// Register creates a user and signs them in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if err := validation.Struct(in); err != nil {
		observability.AuthEvents.WithLabelValues("register", "invalid").Inc()
		return nil, models.ErrMissingFields
	}
	born, ok := parseDate(in.BornDate)
	if !ok {
		observability.AuthEvents.WithLabelValues("register", "invalid").Inc()
		return nil, models.ErrMissingFields
	}

	existing, err := s.users.GetByUsername(ctx, in.Username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		observability.AuthEvents.WithLabelValues("register", "conflict").Inc()
		return nil, models.ErrUsernameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Username: in.Username,
		Email:    in.Email,
		Password: string(hash),
		BornDate: &born,
	}
	// The username check above is advisory; the unique index decides.
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, models.ErrUsernameTaken) {
			observability.AuthEvents.WithLabelValues("register", "conflict").Inc()
		}
		return nil, err
	}

	token, err := s.tokens.Generate(user.ID, user.Username)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	observability.AuthEvents.WithLabelValues("register", "ok").Inc()
	middleware.Logger.InfoContext(ctx, "user registered", "user_id", user.ID)
	return &AuthResult{User: user, Token: token}, nil
}

// Login checks credentials. Unknown users and wrong passwords are indistinguishable.
func (s *AuthService) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		observability.AuthEvents.WithLabelValues("login", "invalid").Inc()
		return nil, models.ErrMissingFields
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		observability.AuthEvents.WithLabelValues("login", "rejected").Inc()
		return nil, models.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		observability.AuthEvents.WithLabelValues("login", "rejected").Inc()
		return nil, models.ErrInvalidCredentials
	}

	token, err := s.tokens.Generate(user.ID, user.Username)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	observability.AuthEvents.WithLabelValues("login", "ok").Inc()
	return &AuthResult{User: user, Token: token}, nil
}

// Logout revokes the presented token. Without Redis this is a no-op.
func (s *AuthService) Logout(ctx context.Context, claims *middleware.Claims) error {
	if err := s.tokens.Revoke(ctx, claims); err != nil {
		observability.AuthEvents.WithLabelValues("logout", "error").Inc()
		return models.NewInternalError(err)
	}
	observability.AuthEvents.WithLabelValues("logout", "ok").Inc()
	return nil
}

var dateLayouts = []string{"2006-01-02", time.RFC3339, "2006-01-02T15:04"}

// parseDate accepts a date, an RFC 3339 timestamp or an HTML datetime-local value.
func parseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
