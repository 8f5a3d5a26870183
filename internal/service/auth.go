package service

import (
	"context"
	"log/slog"

	"github.com/lueurxax/cryptosavings-server/internal/auth"
	"github.com/lueurxax/cryptosavings-server/internal/models"
)

// AuthService handles registration and login, pairing the authenticator with
// JWT issuance.
type AuthService struct {
	authenticator auth.Authenticator
	jwtManager    *auth.JWTManager
	log           *slog.Logger
}

// NewAuthService wires an auth service.
func NewAuthService(authenticator auth.Authenticator, jwtManager *auth.JWTManager, log *slog.Logger) *AuthService {
	if log == nil {
		log = slog.Default()
	}
	return &AuthService{
		authenticator: authenticator,
		jwtManager:    jwtManager,
		log:           log,
	}
}

// Register creates a new account and returns the user with a session token.
func (s *AuthService) Register(ctx context.Context, email, displayName, password string) (*models.User, string, error) {
	user, err := s.authenticator.Register(ctx, email, displayName, password)
	if err != nil {
		return nil, "", err
	}

	token, err := s.jwtManager.Generate(user)
	if err != nil {
		return nil, "", err
	}

	s.log.Info("registered user", "user", user.ID, "email", user.Email)
	return user, token, nil
}

// Login verifies credentials and returns the user with a session token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	user, err := s.authenticator.Authenticate(ctx, email, password)
	if err != nil {
		return nil, "", err
	}

	token, err := s.jwtManager.Generate(user)
	if err != nil {
		return nil, "", err
	}

	return user, token, nil
}
