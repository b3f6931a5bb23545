package domain

import (
	"errors"
	"fmt"
)

var (
	ErrEventNotFound        = errors.New("event not found")
	ErrInsufficientCapacity = errors.New("not enough tickets available")
	ErrInvalidQuantity      = errors.New("invalid quantity")
	ErrInvalidID            = errors.New("invalid id")
	ErrPermissionDenied     = errors.New("permission denied")
	ErrDuplicateEvent       = errors.New("event with this name already exists")
	ErrEventNameRequired    = errors.New("event name required")
	ErrEventDateRequired    = errors.New("event date required")
	ErrInvalidTotalTickets  = errors.New("total tickets must be non-negative")
	ErrEmailTaken           = errors.New("email already registered")
	ErrInvalidEmail         = errors.New("invalid email")
	ErrPasswordRequired     = errors.New("password required")
	ErrInvalidRole          = errors.New("invalid role")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrUserNotFound         = errors.New("user not found")
)

// CapacityError reports a purchase that does not fit the remaining inventory.
type CapacityError struct {
	Available int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("not enough tickets available: only %d left", e.Available)
}

func (e *CapacityError) Is(target error) bool {
	return target == ErrInsufficientCapacity
}
