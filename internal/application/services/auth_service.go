package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/tourbase/backend/internal/domain/entities"
	"github.com/tourbase/backend/internal/domain/repositories"
	"github.com/tourbase/backend/pkg/config"
	apperrors "github.com/tourbase/backend/pkg/errors"
)

const resetTokenTTL = 10 * time.Minute

// SignUpInput carries the fields accepted at registration. Role is always
// "user"; privileged roles are assigned by an admin afterwards.
type SignUpInput struct {
	Name            string
	Email           string
	Password        string
	PasswordConfirm string
}

// AuthService handles registration, sessions and password lifecycle
type AuthService struct {
	userRepo      repositories.UserRepository
	notifications *NotificationService
	jwtSecret     []byte
	jwtExpiry     time.Duration
	baseURL       string
}

// NewAuthService creates a new auth service
func NewAuthService(
	userRepo repositories.UserRepository,
	notifications *NotificationService,
	jwtCfg *config.JWTConfig,
	baseURL string,
) *AuthService {
	return &AuthService{
		userRepo:      userRepo,
		notifications: notifications,
		jwtSecret:     []byte(jwtCfg.Secret),
		jwtExpiry:     jwtCfg.Expiry,
		baseURL:       baseURL,
	}
}

// SignUp registers a new user and returns the user with a session token
func (s *AuthService) SignUp(ctx context.Context, input SignUpInput) (*entities.User, string, error) {
	if input.Name == "" || input.Email == "" {
		return nil, "", apperrors.NewValidationError("name and email are required")
	}
	if len(input.Password) < 8 {
		return nil, "", apperrors.NewValidationError("password must be at least 8 characters")
	}
	if input.Password != input.PasswordConfirm {
		return nil, "", apperrors.NewValidationError("passwords do not match")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", apperrors.NewInternalError("failed to hash password", err)
	}

	now := time.Now()
	user := &entities.User{
		ID:           uuid.New().String(),
		Name:         input.Name,
		Email:        input.Email,
		Role:         entities.RoleUser,
		PasswordHash: string(hash),
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, "", err
	}

	if s.notifications != nil {
		s.notifications.SendWelcome(ctx, user)
	}

	token, err := s.signToken(user.ID)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Login verifies credentials and returns the user with a session token
func (s *AuthService) Login(ctx context.Context, email, password string) (*entities.User, string, error) {
	if email == "" || password == "" {
		return nil, "", apperrors.NewValidationError("email and password are required")
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		// Same message as a wrong password so email enumeration isn't possible.
		if apperrors.TypeOf(err) == apperrors.ErrorTypeNotFound {
			return nil, "", apperrors.NewUnauthorizedError("incorrect email or password")
		}
		return nil, "", err
	}

	if !user.Active {
		return nil, "", apperrors.NewUnauthorizedError("incorrect email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", apperrors.NewUnauthorizedError("incorrect email or password")
	}

	token, err := s.signToken(user.ID)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// VerifyToken validates a session token and loads its user. Tokens issued
// before the last password change are rejected.
func (s *AuthService) VerifyToken(ctx context.Context, tokenString string) (*entities.User, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, apperrors.NewUnauthorizedError("invalid or expired token")
	}

	user, err := s.userRepo.GetByID(ctx, claims.Subject)
	if err != nil {
		if apperrors.TypeOf(err) == apperrors.ErrorTypeNotFound {
			return nil, apperrors.NewUnauthorizedError("the user belonging to this token no longer exists")
		}
		return nil, err
	}
	if !user.Active {
		return nil, apperrors.NewUnauthorizedError("the user belonging to this token no longer exists")
	}

	if claims.IssuedAt != nil && user.PasswordChangedAfter(claims.IssuedAt.Time) {
		return nil, apperrors.NewUnauthorizedError("password changed recently, please log in again")
	}

	return user, nil
}

// ForgotPassword issues a reset token and mails the reset link. It succeeds
// silently when the email is unknown so the endpoint cannot be used to probe
// for accounts.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	if email == "" {
		return apperrors.NewValidationError("email is required")
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if apperrors.TypeOf(err) == apperrors.ErrorTypeNotFound {
			return nil
		}
		return err
	}

	plaintext, hashed, err := generateResetToken()
	if err != nil {
		return apperrors.NewInternalError("failed to generate reset token", err)
	}

	expires := time.Now().Add(resetTokenTTL)
	if err := s.userRepo.SetResetToken(ctx, user.ID, &hashed, &expires); err != nil {
		return err
	}

	if s.notifications != nil {
		resetURL := fmt.Sprintf("%s/api/v1/users/reset-password/%s", s.baseURL, plaintext)
		s.notifications.SendPasswordReset(ctx, user, resetURL)
	}

	return nil
}

// ResetPassword consumes a reset token and sets the new password, returning a
// fresh session token
func (s *AuthService) ResetPassword(ctx context.Context, plaintextToken, password, passwordConfirm string) (*entities.User, string, error) {
	if len(password) < 8 {
		return nil, "", apperrors.NewValidationError("password must be at least 8 characters")
	}
	if password != passwordConfirm {
		return nil, "", apperrors.NewValidationError("passwords do not match")
	}

	hashedToken := hashResetToken(plaintextToken)
	user, err := s.userRepo.GetByResetToken(ctx, hashedToken)
	if err != nil {
		if apperrors.TypeOf(err) == apperrors.ErrorTypeNotFound {
			return nil, "", apperrors.NewValidationError("token is invalid or expired")
		}
		return nil, "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", apperrors.NewInternalError("failed to hash password", err)
	}

	if err := s.userRepo.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
		return nil, "", err
	}

	token, err := s.signToken(user.ID)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// UpdatePassword changes the password of a logged-in user after verifying the
// current one, returning a fresh session token
func (s *AuthService) UpdatePassword(ctx context.Context, user *entities.User, currentPassword, password, passwordConfirm string) (string, error) {
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)); err != nil {
		return "", apperrors.NewUnauthorizedError("your current password is wrong")
	}
	if len(password) < 8 {
		return "", apperrors.NewValidationError("password must be at least 8 characters")
	}
	if password != passwordConfirm {
		return "", apperrors.NewValidationError("passwords do not match")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", apperrors.NewInternalError("failed to hash password", err)
	}

	if err := s.userRepo.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
		return "", err
	}

	return s.signToken(user.ID)
}

func (s *AuthService) signToken(userID string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.jwtExpiry)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", apperrors.NewInternalError("failed to sign token", err)
	}
	return signed, nil
}

// generateResetToken returns a random token and its SHA-256 hex digest. Only
// the digest is stored; the plaintext goes out by email.
func generateResetToken() (plaintext, hashed string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", err
	}
	plaintext = hex.EncodeToString(buf)
	return plaintext, hashResetToken(plaintext), nil
}

func hashResetToken(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}
