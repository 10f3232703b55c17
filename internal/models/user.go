package models

import "time"

// User represents an account in the school directory.
type User struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Roles        []string   `json:"roles"`
	DisabledAt   *time.Time `json:"disabled_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// IsActive returns true if the account has not been disabled.
func (u *User) IsActive() bool {
	return u.DisabledAt == nil
}

// HasRole reports whether the user holds the given role.
func (u *User) HasRole(role Role) bool {
	for _, r := range u.Roles {
		if r == string(role) {
			return true
		}
	}
	return false
}

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
	RoleParent  Role = "parent"
)

// ParseRole maps a raw role string to the closed role set.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleAdmin, RoleTeacher, RoleStudent, RoleParent:
		return Role(s), true
	}
	return "", false
}

// ValidateRoles rejects role names outside the closed set.
// Raw strings stop at this boundary; business logic works with Role values.
func ValidateRoles(roles []string) bool {
	for _, r := range roles {
		if _, ok := ParseRole(r); !ok {
			return false
		}
	}
	return true
}

// Student is the minimal projection of a student record needed to
// resolve the owning user account for notifications.
type Student struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}
