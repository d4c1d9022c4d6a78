package repositories

import (
	"context"
	"time"

	"github.com/tourbase/backend/internal/domain/entities"
)

// UserFilter narrows user listings
type UserFilter struct {
	Role   entities.Role
	Active *bool
	Limit  int
	Offset int
}

// UserUpdate carries the self-service mutable fields. Nil means unchanged.
type UserUpdate struct {
	Name  *string
	Email *string
	Photo *string
}

// UserRepository defines the interface for user persistence
type UserRepository interface {
	Create(ctx context.Context, user *entities.User) error
	GetByID(ctx context.Context, id string) (*entities.User, error)
	GetByEmail(ctx context.Context, email string) (*entities.User, error)
	// GetByResetToken looks up a user by hashed reset token with an
	// unexpired expiry.
	GetByResetToken(ctx context.Context, hashedToken string) (*entities.User, error)
	List(ctx context.Context, filter UserFilter) ([]*entities.User, error)
	Update(ctx context.Context, id string, update UserUpdate) (*entities.User, error)
	// UpdatePassword sets a new password hash, bumps password_changed_at and
	// clears any reset token.
	UpdatePassword(ctx context.Context, id string, passwordHash string) error
	// SetResetToken stores the hashed reset token and its expiry. Passing
	// nils clears the token.
	SetResetToken(ctx context.Context, id string, hashedToken *string, expires *time.Time) error
	Deactivate(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}
