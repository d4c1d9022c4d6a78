package entities

import (
	"time"
)

// Role enumerates user access levels
type Role string

const (
	RoleUser      Role = "user"
	RoleGuide     Role = "guide"
	RoleLeadGuide Role = "lead-guide"
	RoleAdmin     Role = "admin"
)

// ValidRole reports whether r is a known role
func ValidRole(r Role) bool {
	switch r {
	case RoleUser, RoleGuide, RoleLeadGuide, RoleAdmin:
		return true
	}
	return false
}

// User represents an account. The password hash and reset-token fields are
// never serialized.
type User struct {
	ID                   string     `json:"id" db:"id"`
	Name                 string     `json:"name" db:"name"`
	Email                string     `json:"email" db:"email"`
	Photo                string     `json:"photo,omitempty" db:"photo"`
	Role                 Role       `json:"role" db:"role"`
	PasswordHash         string     `json:"-" db:"password_hash"`
	PasswordChangedAt    *time.Time `json:"-" db:"password_changed_at"`
	PasswordResetToken   *string    `json:"-" db:"password_reset_token"`
	PasswordResetExpires *time.Time `json:"-" db:"password_reset_expires"`
	Active               bool       `json:"-" db:"active"`
	CreatedAt            time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at" db:"updated_at"`
}

// PasswordChangedAfter reports whether the password was changed after the
// given token issue time. Tokens issued before a password change are invalid.
func (u *User) PasswordChangedAfter(issuedAt time.Time) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	// Truncate to seconds: JWT iat has second precision.
	return u.PasswordChangedAt.Truncate(time.Second).After(issuedAt.Truncate(time.Second))
}
