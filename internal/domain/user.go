package domain

import (
	"fmt"
	"time"
)

// Role is the closed set of capabilities a user can hold.
type Role int

const (
	RoleAdmin Role = iota + 1
	RoleUser
)

const (
	roleAdminName = "Admin"
	roleUserName  = "User"
)

// ParseRole maps the stored role name to a Role.
func ParseRole(s string) (Role, error) {
	switch s {
	case roleAdminName:
		return RoleAdmin, nil
	case roleUserName:
		return RoleUser, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
}

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return roleAdminName
	case RoleUser:
		return roleUserName
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

// CanPurchase reports whether the role may buy tickets.
func (r Role) CanPurchase() bool {
	switch r {
	case RoleUser:
		return true
	case RoleAdmin:
		return false
	default:
		return false
	}
}

// CanCreateEvents reports whether the role may create events.
func (r Role) CanCreateEvents() bool {
	switch r {
	case RoleAdmin:
		return true
	case RoleUser:
		return false
	default:
		return false
	}
}

type User struct {
	ID           string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}

// Principal is the authenticated caller of an operation.
type Principal struct {
	UserID string
	Email  string
	Role   Role
}

func (u User) Principal() Principal {
	return Principal{UserID: u.ID, Email: u.Email, Role: u.Role}
}
