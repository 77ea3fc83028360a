// Package service provides the business logic for authentication, users and images,
// delegating persistence to repository interfaces.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/atinyakov/imagerepo/internal/models"
)

// DefaultSessionTTL is how long a session token stays valid when no TTL is configured.
const DefaultSessionTTL = 30 * time.Minute

// CredentialRepository defines the persistence operations
// required by the authentication service.
type CredentialRepository interface {
	// ValidateCredential returns the id of the user registered with email and secret,
	// or models.ErrNotFound.
	ValidateCredential(ctx context.Context, email, secret string) (int64, error)
	// CreateSession stores a new token for userID that expires after ttl.
	CreateSession(ctx context.Context, userID int64, ttl time.Duration) (*models.Session, error)
	// ResolveSession returns the user bound to an unexpired token, or models.ErrNotFound.
	ResolveSession(ctx context.Context, token string) (int64, error)
	// DeleteSession removes the token. Deleting an unknown token is not an error.
	DeleteSession(ctx context.Context, token string) error
}

// AuthService issues, resolves and revokes session tokens.
type AuthService struct {
	repo CredentialRepository
	ttl  time.Duration
}

// NewAuthService constructs an AuthService whose tokens live for ttl.
// A non-positive ttl falls back to DefaultSessionTTL.
func NewAuthService(repo CredentialRepository, ttl time.Duration) *AuthService {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &AuthService{repo: repo, ttl: ttl}
}

// Login exchanges an email/secret pair for a session.
// A pair that matches no user yields models.ErrLoginFailed without saying which part was wrong.
func (s *AuthService) Login(ctx context.Context, email, secret string) (*models.Session, error) {
	if email == "" || secret == "" {
		return nil, models.Invalid("credentials", "email and secret are required")
	}

	userID, err := s.repo.ValidateCredential(ctx, email, secret)
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.ErrLoginFailed
	}
	if err != nil {
		return nil, err
	}
	return s.repo.CreateSession(ctx, userID, s.ttl)
}

// Logout revokes token.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return models.ErrUnauthorized
	}
	return s.repo.DeleteSession(ctx, token)
}

// Authenticate resolves token to the id of the user it was issued to.
// Empty, unknown and expired tokens all yield models.ErrUnauthorized.
func (s *AuthService) Authenticate(ctx context.Context, token string) (int64, error) {
	if token == "" {
		return 0, models.ErrUnauthorized
	}

	userID, err := s.repo.ResolveSession(ctx, token)
	if errors.Is(err, models.ErrNotFound) {
		return 0, models.ErrUnauthorized
	}
	if err != nil {
		return 0, err
	}
	return userID, nil
}
