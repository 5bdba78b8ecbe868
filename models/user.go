package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/storeforge/access-plane/authz"
)

// User represents a platform user (admin dashboard or storefront) scoped to
// a store.
type User struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	Email        string     `json:"email" db:"email"`
	PasswordHash string     `json:"-" db:"password_hash"`
	StoreID      uuid.UUID  `json:"store_id" db:"store_id"`
	Role         authz.Role `json:"role" db:"role"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the User model
func (User) TableName() string {
	return "users"
}

// NewUser creates a new User instance
func NewUser(email, passwordHash string, storeID uuid.UUID, role authz.Role) *User {
	now := time.Now()
	return &User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: passwordHash,
		StoreID:      storeID,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// IsSuperAdmin returns true if the user has the super admin role
func (u *User) IsSuperAdmin() bool {
	return u.Role == authz.RoleSuperAdmin
}

// CanManageUsers returns true if the user's role grants user management
func (u *User) CanManageUsers() bool {
	return authz.PermissionsForRole(u.Role).Has(authz.PermUsersManage)
}
