package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/storeforge/access-plane/authz"
)

// Grant is a per-user permission granted on top of the user's role. Grants
// only ever widen access; revoking a grant returns the user to the role
// baseline.
type Grant struct {
	ID         uuid.UUID        `json:"id" db:"id"`
	UserID     uuid.UUID        `json:"user_id" db:"user_id"`
	Permission authz.Permission `json:"permission" db:"permission"`
	GrantedBy  uuid.UUID        `json:"granted_by" db:"granted_by"`
	CreatedAt  time.Time        `json:"created_at" db:"created_at"`
}

// TableName returns the table name for the Grant model
func (Grant) TableName() string {
	return "grants"
}

// NewGrant creates a new Grant instance
func NewGrant(userID uuid.UUID, permission authz.Permission, grantedBy uuid.UUID) *Grant {
	return &Grant{
		ID:         uuid.New(),
		UserID:     userID,
		Permission: permission,
		GrantedBy:  grantedBy,
		CreatedAt:  time.Now(),
	}
}
