package services

import (
	"context"
	"errors"
	"strings"

	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/app/repositories"
	"github.com/shashiranjanraj/storefront/pkg/auth"
)

// ErrBadCredentials hides whether the email or the password was wrong.
var ErrBadCredentials = errors.New("invalid email or password")

// MinPasswordLen applies to registration and admin resets.
const MinPasswordLen = 6

type AuthService struct {
	users  *repositories.UserRepository
	issuer *auth.Issuer
}

func NewAuthService(users *repositories.UserRepository, issuer *auth.Issuer) *AuthService {
	return &AuthService{users: users, issuer: issuer}
}

// Session is returned by Login.
type Session struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// Register creates a regular user. A taken username or email yields
// models.ErrConflict.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (models.User, error) {
	u := models.User{
		Username: strings.TrimSpace(username),
		Email:    strings.ToLower(strings.TrimSpace(email)),
		Role:     models.RoleUser,
	}
	if u.Username == "" {
		return models.User{}, models.Invalid("username", "is required")
	}
	if u.Email == "" {
		return models.User{}, models.Invalid("email", "is required")
	}
	if len(password) < MinPasswordLen {
		return models.User{}, models.Invalid("password", "must be at least 6 characters")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return models.User{}, err
	}
	u.Password = hash

	if err := s.users.Create(ctx, &u); err != nil {
		return models.User{}, err
	}
	return u, nil
}

// Login checks the credentials and issues a token.
func (s *AuthService) Login(ctx context.Context, email, password string) (Session, error) {
	u, err := s.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, models.ErrNotFound) {
		return Session{}, ErrBadCredentials
	}
	if err != nil {
		return Session{}, err
	}
	if !auth.CheckPassword(u.Password, password) {
		return Session{}, ErrBadCredentials
	}

	token, err := s.issuer.GenerateToken(u.ID, u.Role)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, User: u}, nil
}

// Me returns the current user.
func (s *AuthService) Me(ctx context.Context, id uint) (models.User, error) {
	return s.users.FindByID(ctx, id)
}
