package user

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the users data access contract.
type Repository interface {
	// Create returns ErrEmailAlreadyExists when the email is taken.
	Create(ctx context.Context, user *User) error

	// FindByID / FindByEmail return ErrUserNotFound.
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)

	UpdateLastLogin(ctx context.Context, userID uuid.UUID) error
	UpdateRole(ctx context.Context, userID uuid.UUID, role Role) error
	UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error
}
