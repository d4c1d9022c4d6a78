package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/tourbase/backend/internal/domain/entities"
	"github.com/tourbase/backend/internal/domain/repositories"
	"github.com/tourbase/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/tourbase/backend/pkg/errors"
)

// UserAdapter implements the UserRepository interface
type UserAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewUserAdapter creates a new user adapter
func NewUserAdapter(client *postgres.Client) repositories.UserRepository {
	return &UserAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

var userColumns = []interface{}{
	"id", "name", "email", "photo", "role", "password_hash",
	"password_changed_at", "password_reset_token", "password_reset_expires",
	"active", "created_at", "updated_at",
}

// Create creates a new user
func (a *UserAdapter) Create(ctx context.Context, user *entities.User) error {
	record := goqu.Record{
		"id":            user.ID,
		"name":          user.Name,
		"email":         user.Email,
		"photo":         sql.NullString{String: user.Photo, Valid: user.Photo != ""},
		"role":          user.Role,
		"password_hash": user.PasswordHash,
		"active":        user.Active,
		"created_at":    user.CreatedAt,
		"updated_at":    user.UpdatedAt,
	}

	query, args, err := a.db.Insert("users").Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build user insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return apperrors.NewConflictError("a user with this email already exists")
		}
		return apperrors.NewInternalError("failed to create user", err)
	}

	return nil
}

// GetByID retrieves a user by ID
func (a *UserAdapter) GetByID(ctx context.Context, id string) (*entities.User, error) {
	return a.getOne(ctx, goqu.Ex{"id": id}, fmt.Sprintf("user with id %s not found", id))
}

// GetByEmail retrieves a user by email
func (a *UserAdapter) GetByEmail(ctx context.Context, email string) (*entities.User, error) {
	return a.getOne(ctx, goqu.Ex{"email": email}, "no user with that email address")
}

// GetByResetToken retrieves a user by hashed reset token with an unexpired
// expiry
func (a *UserAdapter) GetByResetToken(ctx context.Context, hashedToken string) (*entities.User, error) {
	return a.getOne(ctx, goqu.Ex{
		"password_reset_token":   hashedToken,
		"password_reset_expires": goqu.Op{"gt": time.Now()},
	}, "token is invalid or expired")
}

func (a *UserAdapter) getOne(ctx context.Context, where goqu.Ex, notFoundMsg string) (*entities.User, error) {
	query, args, err := a.db.Select(userColumns...).From("users").Where(where).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build user query", err)
	}

	user, err := scanUser(a.client.DB().QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(notFoundMsg)
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get user", err)
	}
	return user, nil
}

// List retrieves users matching the filter
func (a *UserAdapter) List(ctx context.Context, filter repositories.UserFilter) ([]*entities.User, error) {
	ds := a.db.Select(userColumns...).From("users")

	if filter.Role != "" {
		ds = ds.Where(goqu.Ex{"role": filter.Role})
	}
	if filter.Active != nil {
		ds = ds.Where(goqu.Ex{"active": *filter.Active})
	}

	ds = ds.Order(goqu.I("created_at").Desc())

	if filter.Limit > 0 {
		ds = ds.Limit(uint(filter.Limit))
	}
	if filter.Offset > 0 {
		ds = ds.Offset(uint(filter.Offset))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build user list query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list users", err)
	}
	defer rows.Close()

	var users []*entities.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan user", err)
		}
		users = append(users, user)
	}

	return users, nil
}

// Update applies the self-service mutable fields
func (a *UserAdapter) Update(ctx context.Context, id string, update repositories.UserUpdate) (*entities.User, error) {
	record := goqu.Record{"updated_at": time.Now()}
	if update.Name != nil {
		record["name"] = *update.Name
	}
	if update.Email != nil {
		record["email"] = *update.Email
	}
	if update.Photo != nil {
		record["photo"] = *update.Photo
	}

	query, args, err := a.db.Update("users").Set(record).Where(goqu.Ex{"id": id}).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build user update query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.NewConflictError("a user with this email already exists")
		}
		return nil, apperrors.NewInternalError("failed to update user", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("user with id %s not found", id))
	}

	return a.GetByID(ctx, id)
}

// UpdatePassword sets a new password hash, bumps password_changed_at and
// clears any reset token
func (a *UserAdapter) UpdatePassword(ctx context.Context, id string, passwordHash string) error {
	query, args, err := a.db.Update("users").Set(goqu.Record{
		"password_hash":          passwordHash,
		"password_changed_at":    time.Now(),
		"password_reset_token":   nil,
		"password_reset_expires": nil,
		"updated_at":             time.Now(),
	}).Where(goqu.Ex{"id": id}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build password update query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to update password", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("user with id %s not found", id))
	}

	return nil
}

// SetResetToken stores the hashed reset token and its expiry
func (a *UserAdapter) SetResetToken(ctx context.Context, id string, hashedToken *string, expires *time.Time) error {
	query, args, err := a.db.Update("users").Set(goqu.Record{
		"password_reset_token":   hashedToken,
		"password_reset_expires": expires,
		"updated_at":             time.Now(),
	}).Where(goqu.Ex{"id": id}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build reset token query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to set reset token", err)
	}

	return nil
}

// Deactivate soft-deletes a user
func (a *UserAdapter) Deactivate(ctx context.Context, id string) error {
	query, args, err := a.db.Update("users").Set(goqu.Record{
		"active":     false,
		"updated_at": time.Now(),
	}).Where(goqu.Ex{"id": id}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build deactivate query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to deactivate user", err)
	}

	return nil
}

// Delete removes a user
func (a *UserAdapter) Delete(ctx context.Context, id string) error {
	query, args, err := a.db.Delete("users").Where(goqu.Ex{"id": id}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build user delete query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to delete user", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("user with id %s not found", id))
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*entities.User, error) {
	user := &entities.User{}
	var photo, resetToken sql.NullString
	var changedAt, resetExpires sql.NullTime

	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&photo,
		&user.Role,
		&user.PasswordHash,
		&changedAt,
		&resetToken,
		&resetExpires,
		&user.Active,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	user.Photo = photo.String
	if changedAt.Valid {
		user.PasswordChangedAt = &changedAt.Time
	}
	if resetToken.Valid {
		user.PasswordResetToken = &resetToken.String
	}
	if resetExpires.Valid {
		user.PasswordResetExpires = &resetExpires.Time
	}

	return user, nil
}
