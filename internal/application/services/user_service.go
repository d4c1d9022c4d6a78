package services

import (
	"context"

	"github.com/tourbase/backend/internal/domain/entities"
	"github.com/tourbase/backend/internal/domain/repositories"
	apperrors "github.com/tourbase/backend/pkg/errors"
)

// UserService handles account profile operations
type UserService struct {
	repo repositories.UserRepository
}

// NewUserService creates a new user service
func NewUserService(repo repositories.UserRepository) *UserService {
	return &UserService{repo: repo}
}

// UpdateMe applies the self-service profile fields. Password and role are
// never updated here.
func (s *UserService) UpdateMe(ctx context.Context, userID string, update repositories.UserUpdate) (*entities.User, error) {
	if update.Email != nil && *update.Email == "" {
		return nil, apperrors.NewValidationError("email cannot be empty")
	}
	if update.Name != nil && *update.Name == "" {
		return nil, apperrors.NewValidationError("name cannot be empty")
	}
	return s.repo.Update(ctx, userID, update)
}

// DeactivateMe soft-deletes the caller's account
func (s *UserService) DeactivateMe(ctx context.Context, userID string) error {
	return s.repo.Deactivate(ctx, userID)
}

// GetUser returns a user by ID (admin)
func (s *UserService) GetUser(ctx context.Context, id string) (*entities.User, error) {
	return s.repo.GetByID(ctx, id)
}

// ListUsers returns users matching the filter (admin)
func (s *UserService) ListUsers(ctx context.Context, filter repositories.UserFilter) ([]*entities.User, error) {
	if filter.Role != "" && !entities.ValidRole(filter.Role) {
		return nil, apperrors.NewValidationError("unknown role")
	}
	return s.repo.List(ctx, filter)
}

// UpdateUser applies an admin profile update
func (s *UserService) UpdateUser(ctx context.Context, id string, update repositories.UserUpdate) (*entities.User, error) {
	return s.repo.Update(ctx, id, update)
}

// DeleteUser removes a user entirely (admin)
func (s *UserService) DeleteUser(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}
