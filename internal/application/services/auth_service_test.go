package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/tourbase/backend/internal/application/services"
	"github.com/tourbase/backend/internal/domain/entities"
	"github.com/tourbase/backend/pkg/config"
	apperrors "github.com/tourbase/backend/pkg/errors"
)

func newAuthService(repo *MockUserRepository) *services.AuthService {
	return services.NewAuthService(repo, nil, &config.JWTConfig{
		Secret: "test-secret",
		Expiry: time.Hour,
	}, "http://localhost:8080")
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestAuthService_SignUp(t *testing.T) {
	t.Run("creates a user with the user role and returns a token", func(t *testing.T) {
		repo := new(MockUserRepository)
		service := newAuthService(repo)

		repo.On("Create", mock.Anything, mock.MatchedBy(func(u *entities.User) bool {
			return u.Role == entities.RoleUser && u.Email == "jo@example.com" && u.Active
		})).Return(nil)

		user, token, err := service.SignUp(context.Background(), services.SignUpInput{
			Name:            "Jo",
			Email:           "jo@example.com",
			Password:        "password123",
			PasswordConfirm: "password123",
		})

		require.NoError(t, err)
		assert.NotEmpty(t, token)
		assert.NotEmpty(t, user.ID)
		repo.AssertExpectations(t)
	})

	t.Run("rejects mismatched passwords", func(t *testing.T) {
		repo := new(MockUserRepository)
		service := newAuthService(repo)

		_, _, err := service.SignUp(context.Background(), services.SignUpInput{
			Name:            "Jo",
			Email:           "jo@example.com",
			Password:        "password123",
			PasswordConfirm: "different123",
		})

		require.Error(t, err)
		assert.Equal(t, apperrors.ErrorTypeValidation, apperrors.TypeOf(err))
		repo.AssertNotCalled(t, "Create")
	})

	t.Run("rejects short passwords", func(t *testing.T) {
		repo := new(MockUserRepository)
		service := newAuthService(repo)

		_, _, err := service.SignUp(context.Background(), services.SignUpInput{
			Name:            "Jo",
			Email:           "jo@example.com",
			Password:        "short",
			PasswordConfirm: "short",
		})

		require.Error(t, err)
		assert.Equal(t, apperrors.ErrorTypeValidation, apperrors.TypeOf(err))
	})
}

func TestAuthService_Login(t *testing.T) {
	t.Run("returns a token for valid credentials", func(t *testing.T) {
		repo := new(MockUserRepository)
		service := newAuthService(repo)

		repo.On("GetByEmail", mock.Anything, "jo@example.com").Return(&entities.User{
			ID:           "user-1",
			Email:        "jo@example.com",
			PasswordHash: hashPassword(t, "password123"),
			Active:       true,
		}, nil)

		user, token, err := service.Login(context.Background(), "jo@example.com", "password123")

		require.NoError(t, err)
		assert.Equal(t, "user-1", user.ID)
		assert.NotEmpty(t, token)
	})

	t.Run("wrong password and unknown email yield the same error", func(t *testing.T) {
		repo := new(MockUserRepository)
		service := newAuthService(repo)

		repo.On("GetByEmail", mock.Anything, "jo@example.com").Return(&entities.User{
			ID:           "user-1",
			PasswordHash: hashPassword(t, "password123"),
			Active:       true,
		}, nil)
		repo.On("GetByEmail", mock.Anything, "nobody@example.com").
			Return(nil, apperrors.NewNotFoundError("no user with that email address"))

		_, _, wrongPass := service.Login(context.Background(), "jo@example.com", "wrong-password")
		_, _, unknown := service.Login(context.Background(), "nobody@example.com", "password123")

		require.Error(t, wrongPass)
		require.Error(t, unknown)
		assert.Equal(t, wrongPass.Error(), unknown.Error())
		assert.Equal(t, apperrors.ErrorTypeUnauthorized, apperrors.TypeOf(wrongPass))
	})

	t.Run("deactivated accounts cannot log in", func(t *testing.T) {
		repo := new(MockUserRepository)
		service := newAuthService(repo)

		repo.On("GetByEmail", mock.Anything, "jo@example.com").Return(&entities.User{
			ID:           "user-1",
			PasswordHash: hashPassword(t, "password123"),
			Active:       false,
		}, nil)

		_, _, err := service.Login(context.Background(), "jo@example.com", "password123")

		require.Error(t, err)
		assert.Equal(t, apperrors.ErrorTypeUnauthorized, apperrors.TypeOf(err))
	})
}

func TestAuthService_VerifyToken(t *testing.T) {
	t.Run("a fresh token resolves to its user", func(t *testing.T) {
		repo := new(MockUserRepository)
		service := newAuthService(repo)

		user := &entities.User{
			ID:           "user-1",
			PasswordHash: hashPassword(t, "password123"),
			Active:       true,
		}
		repo.On("GetByEmail", mock.Anything, "jo@example.com").Return(user, nil)
		repo.On("GetByID", mock.Anything, "user-1").Return(user, nil)

		_, token, err := service.Login(context.Background(), "jo@example.com", "password123")
		require.NoError(t, err)

		got, err := service.VerifyToken(context.Background(), token)

		require.NoError(t, err)
		assert.Equal(t, "user-1", got.ID)
	})

	t.Run("rejects a garbage token", func(t *testing.T) {
		repo := new(MockUserRepository)
		service := newAuthService(repo)

		_, err := service.VerifyToken(context.Background(), "not-a-token")

		require.Error(t, err)
		assert.Equal(t, apperrors.ErrorTypeUnauthorized, apperrors.TypeOf(err))
	})

	t.Run("rejects a token issued before a password change", func(t *testing.T) {
		repo := new(MockUserRepository)
		service := newAuthService(repo)

		user := &entities.User{
			ID:           "user-1",
			PasswordHash: hashPassword(t, "password123"),
			Active:       true,
		}
		repo.On("GetByEmail", mock.Anything, "jo@example.com").Return(user, nil)

		_, token, err := service.Login(context.Background(), "jo@example.com", "password123")
		require.NoError(t, err)

		changed := time.Now().Add(2 * time.Second)
		repo.On("GetByID", mock.Anything, "user-1").Return(&entities.User{
			ID:                "user-1",
			Active:            true,
			PasswordChangedAt: &changed,
		}, nil)

		_, err = service.VerifyToken(context.Background(), token)

		require.Error(t, err)
		assert.Equal(t, apperrors.ErrorTypeUnauthorized, apperrors.TypeOf(err))
	})
}

func TestAuthService_ForgotPassword(t *testing.T) {
	t.Run("stores a hashed token with an expiry", func(t *testing.T) {
		repo := new(MockUserRepository)
		service := newAuthService(repo)

		repo.On("GetByEmail", mock.Anything, "jo@example.com").Return(&entities.User{
			ID:     "user-1",
			Email:  "jo@example.com",
			Active: true,
		}, nil)
		repo.On("SetResetToken", mock.Anything, "user-1",
			mock.MatchedBy(func(token *string) bool { return token != nil && len(*token) == 64 }),
			mock.MatchedBy(func(expires *time.Time) bool { return expires != nil && expires.After(time.Now()) }),
		).Return(nil)

		err := service.ForgotPassword(context.Background(), "jo@example.com")

		require.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("an unknown email succeeds silently", func(t *testing.T) {
		repo := new(MockUserRepository)
		service := newAuthService(repo)

		repo.On("GetByEmail", mock.Anything, "nobody@example.com").
			Return(nil, apperrors.NewNotFoundError("no user with that email address"))

		err := service.ForgotPassword(context.Background(), "nobody@example.com")

		require.NoError(t, err)
		repo.AssertNotCalled(t, "SetResetToken")
	})
}

func TestAuthService_ResetPassword(t *testing.T) {
	t.Run("a token can only be redeemed once", func(t *testing.T) {
		repo := new(MockUserRepository)
		service := newAuthService(repo)

		user := &entities.User{ID: "user-1", Email: "jo@example.com", Active: true}

		// The lookup receives the digest, never the plaintext token.
		repo.On("GetByResetToken", mock.Anything, mock.MatchedBy(func(hashed string) bool {
			return len(hashed) == 64 && hashed != "raw-token"
		})).Return(user, nil).Once()
		repo.On("UpdatePassword", mock.Anything, "user-1", mock.MatchedBy(func(hash string) bool {
			return bcrypt.CompareHashAndPassword([]byte(hash), []byte("newpassword1")) == nil
		})).Return(nil).Once()
		// UpdatePassword clears the stored token, so the second lookup misses.
		repo.On("GetByResetToken", mock.Anything, mock.Anything).
			Return(nil, apperrors.NewNotFoundError("token is invalid or expired"))

		got, token, err := service.ResetPassword(context.Background(), "raw-token", "newpassword1", "newpassword1")

		require.NoError(t, err)
		assert.Equal(t, "user-1", got.ID)
		assert.NotEmpty(t, token)

		_, _, err = service.ResetPassword(context.Background(), "raw-token", "otherpassword1", "otherpassword1")

		require.Error(t, err)
		assert.Equal(t, apperrors.ErrorTypeValidation, apperrors.TypeOf(err))
		repo.AssertExpectations(t)
		repo.AssertNumberOfCalls(t, "UpdatePassword", 1)
	})

	t.Run("an expired or unknown token is rejected", func(t *testing.T) {
		repo := new(MockUserRepository)
		service := newAuthService(repo)

		repo.On("GetByResetToken", mock.Anything, mock.Anything).
			Return(nil, apperrors.NewNotFoundError("token is invalid or expired"))

		_, _, err := service.ResetPassword(context.Background(), "stale-token", "newpassword1", "newpassword1")

		require.Error(t, err)
		assert.Equal(t, apperrors.ErrorTypeValidation, apperrors.TypeOf(err))
		repo.AssertNotCalled(t, "UpdatePassword")
	})

	t.Run("rejects mismatched passwords before touching the repository", func(t *testing.T) {
		repo := new(MockUserRepository)
		service := newAuthService(repo)

		_, _, err := service.ResetPassword(context.Background(), "raw-token", "newpassword1", "different1")

		require.Error(t, err)
		assert.Equal(t, apperrors.ErrorTypeValidation, apperrors.TypeOf(err))
		repo.AssertNotCalled(t, "GetByResetToken")
	})
}

func TestAuthService_UpdatePassword(t *testing.T) {
	t.Run("requires the current password", func(t *testing.T) {
		repo := new(MockUserRepository)
		service := newAuthService(repo)

		user := &entities.User{
			ID:           "user-1",
			PasswordHash: hashPassword(t, "password123"),
		}

		_, err := service.UpdatePassword(context.Background(), user, "wrong-password", "newpassword1", "newpassword1")

		require.Error(t, err)
		assert.Equal(t, apperrors.ErrorTypeUnauthorized, apperrors.TypeOf(err))
		repo.AssertNotCalled(t, "UpdatePassword")
	})

	t.Run("rotates the password and returns a new token", func(t *testing.T) {
		repo := new(MockUserRepository)
		service := newAuthService(repo)

		user := &entities.User{
			ID:           "user-1",
			PasswordHash: hashPassword(t, "password123"),
		}
		repo.On("UpdatePassword", mock.Anything, "user-1", mock.Anything).Return(nil)

		token, err := service.UpdatePassword(context.Background(), user, "password123", "newpassword1", "newpassword1")

		require.NoError(t, err)
		assert.NotEmpty(t, token)
	})
}
