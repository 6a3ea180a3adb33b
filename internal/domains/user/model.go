package user

import (
	"time"

	"github.com/google/uuid"

	"gallery-backend/internal/shared"
)

// User maps 1:1 to the users table.
type User struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"full_name"`
	Role         Role       `db:"role" json:"role"`
	IsActive     bool       `db:"is_active" json:"is_active"`
	LastLoginAt  *time.Time `db:"last_login_at" json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

type Role string

const (
	RoleUser  Role = shared.RoleUser
	RoleAdmin Role = shared.RoleAdmin
)

func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleAdmin:
		return true
	}
	return false
}

func (r Role) String() string {
	return string(r)
}

// Actor is the caller identity derived from this user. Unknown roles get no privileges.
func (u *User) Actor() shared.Actor {
	role := u.Role
	if !role.IsValid() {
		role = RoleUser
	}
	return shared.Actor{UserID: u.ID, Role: role.String()}
}
