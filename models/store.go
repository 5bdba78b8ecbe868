package models

import (
	"time"

	"github.com/google/uuid"
)

// Store represents a tenant in the multi-store platform. The admin
// dashboard and storefront apps both operate against a store.
type Store struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Slug      string    `json:"slug" db:"slug"` // URL-friendly identifier
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the Store model
func (Store) TableName() string {
	return "stores"
}

// NewStore creates a new Store instance
func NewStore(name, slug string) *Store {
	now := time.Now()
	return &Store{
		ID:        uuid.New(),
		Name:      name,
		Slug:      slug,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
