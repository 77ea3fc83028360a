package service

import (
	"context"
	"strings"

	"github.com/atinyakov/imagerepo/internal/models"
)

// UserRepository defines the persistence operations needed by the UserService.
type UserRepository interface {
	CreateUser(ctx context.Context, u *models.User) error
	UpdateUser(ctx context.Context, u *models.User) error
	DeleteUser(ctx context.Context, id int64) error
	GetUser(ctx context.Context, id int64) (*models.User, error)
	SearchUserByEmail(ctx context.Context, email string) ([]models.User, error)
	SearchUserByName(ctx context.Context, first, last *string) ([]models.User, error)
}

// UserService implements registration, profile maintenance and user lookup.
type UserService struct {
	repo UserRepository
}

// NewUserService constructs a UserService with the provided UserRepository.
func NewUserService(repo UserRepository) *UserService {
	return &UserService{repo: repo}
}

func validateUser(u *models.User) error {
	if strings.TrimSpace(u.Email) == "" {
		return models.Invalid("email", "must not be empty")
	}
	if u.Secret == "" {
		return models.Invalid("secret", "must not be empty")
	}
	return nil
}

// Register creates a new user at revision 0. The id is assigned by storage.
func (s *UserService) Register(ctx context.Context, u *models.User) error {
	if err := validateUser(u); err != nil {
		return err
	}
	u.ID = 0
	return s.repo.CreateUser(ctx, u)
}

// Update overwrites the profile of u.ID. Only the user themself may do so, and
// u.Revision must match the stored revision.
func (s *UserService) Update(ctx context.Context, requesterID int64, u *models.User) error {
	if err := AuthorizeOwnerAction(u.ID, requesterID); err != nil {
		return err
	}
	if err := validateUser(u); err != nil {
		return err
	}
	return s.repo.UpdateUser(ctx, u)
}

// Unregister deletes userID with all their images and sessions.
func (s *UserService) Unregister(ctx context.Context, requesterID, userID int64) error {
	if err := AuthorizeOwnerAction(userID, requesterID); err != nil {
		return err
	}
	return s.repo.DeleteUser(ctx, userID)
}

// Get returns the user with id, or models.ErrNotFound.
func (s *UserService) Get(ctx context.Context, id int64) (*models.User, error) {
	return s.repo.GetUser(ctx, id)
}

// SearchByEmail returns the users registered with email.
func (s *UserService) SearchByEmail(ctx context.Context, email string) ([]models.User, error) {
	if email == "" {
		return nil, models.Invalid("email", "must not be empty")
	}
	return s.repo.SearchUserByEmail(ctx, email)
}

// SearchByName looks users up by first name, last name or both.
// Empty names are treated as absent.
func (s *UserService) SearchByName(ctx context.Context, first, last string) ([]models.User, error) {
	var fp, lp *string
	if first != "" {
		fp = &first
	}
	if last != "" {
		lp = &last
	}
	if fp == nil && lp == nil {
		return nil, models.Invalid("name", "first or last name is required")
	}
	return s.repo.SearchUserByName(ctx, fp, lp)
}
