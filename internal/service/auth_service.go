package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/ops-hub/internal/auth"
	"github.com/spec-kit/ops-hub/internal/config"
	"github.com/spec-kit/ops-hub/internal/domain"
	"github.com/spec-kit/ops-hub/internal/repository"
	apperrors "github.com/spec-kit/ops-hub/pkg/util"
)

// AuthService authenticates users and issues tokens carrying the
// normalized role.
type AuthService struct {
	users        repository.UserRepository
	tokenManager *auth.TokenManager
	bcryptCost   int
}

// NewAuthService creates the service.
func NewAuthService(cfg config.AuthConfig, users repository.UserRepository) *AuthService {
	return &AuthService{
		users:        users,
		tokenManager: auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
		bcryptCost:   cfg.BcryptCost,
	}
}

// TokenManager exposes the manager for token validation at the transport
// boundary.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenManager
}

// Login verifies credentials by username or employee id and returns a
// signed token.
func (s *AuthService) Login(ctx context.Context, login, password string) (string, time.Time, *domain.User, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return "", time.Time{}, nil, apperrors.NewValidationError("login and password required", nil)
	}

	user, err := s.users.GetByUsername(ctx, login)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return "", time.Time{}, nil, apperrors.MapError(err)
		}
		user, err = s.users.GetByEmployeeID(ctx, login)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return "", time.Time{}, nil, apperrors.NewUnauthorized("invalid credentials")
			}
			return "", time.Time{}, nil, apperrors.MapError(err)
		}
	}

	if !user.Active {
		return "", time.Time{}, nil, apperrors.NewUnauthorized("account disabled")
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return "", time.Time{}, nil, apperrors.NewUnauthorized("invalid credentials")
	}

	token, expiresAt, err := s.tokenManager.GenerateToken(user)
	if err != nil {
		return "", time.Time{}, nil, apperrors.NewInternalError(err)
	}
	return token, expiresAt, user, nil
}

// SetPassword hashes and stores a new password for the user.
func (s *AuthService) SetPassword(ctx context.Context, user *domain.User, password string) error {
	if len(password) < 8 {
		return apperrors.NewValidationError("password must be at least 8 characters", nil)
	}
	hashed, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	user.PasswordHash = hashed
	if err := s.users.Update(ctx, user); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}
