package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/storeforge/access-plane/authz"
	"github.com/storeforge/access-plane/models"
)

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction
	// Automatically commits if function succeeds, rolls back on error
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Context returns the transaction context
	Context() context.Context
}

// StoreRepository handles store data operations
type StoreRepository interface {
	// Create creates a new store
	Create(ctx context.Context, store *models.Store) error

	// GetByID retrieves a store by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.Store, error)

	// GetBySlug retrieves a store by slug
	GetBySlug(ctx context.Context, slug string) (*models.Store, error)

	// List retrieves all stores with pagination
	List(ctx context.Context, limit, offset int) ([]*models.Store, error)

	// Update updates a store
	Update(ctx context.Context, store *models.Store) error

	// Delete deletes a store
	Delete(ctx context.Context, id uuid.UUID) error

	// WithTx returns a new repository instance bound to the transaction
	WithTx(tx Transaction) StoreRepository
}

// UserRepository handles user data operations
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *models.User) error

	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)

	// GetByEmail retrieves a user by email
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// GetByStoreID retrieves all users for a store
	GetByStoreID(ctx context.Context, storeID uuid.UUID) ([]*models.User, error)

	// Update updates a user
	Update(ctx context.Context, user *models.User) error

	// Delete deletes a user
	Delete(ctx context.Context, id uuid.UUID) error

	// WithTx returns a new repository instance bound to the transaction
	WithTx(tx Transaction) UserRepository
}

// GrantRepository handles per-user permission grant operations
type GrantRepository interface {
	// Create creates a new grant
	Create(ctx context.Context, grant *models.Grant) error

	// GetByID retrieves a grant by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.Grant, error)

	// GetByUserID retrieves all grants for a user
	GetByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Grant, error)

	// GetPermissions retrieves the granted permission tokens for a user
	GetPermissions(ctx context.Context, userID uuid.UUID) ([]authz.Permission, error)

	// Delete deletes a grant
	Delete(ctx context.Context, id uuid.UUID) error

	// DeleteByUserAndPermission revokes a specific permission from a user
	DeleteByUserAndPermission(ctx context.Context, userID uuid.UUID, permission authz.Permission) error

	// WithTx returns a new repository instance bound to the transaction
	WithTx(tx Transaction) GrantRepository
}

// AuditRepository handles audit log data operations
type AuditRepository interface {
	// Insert inserts a new audit log entry
	Insert(ctx context.Context, log *models.AuditLog) error

	// GetByID retrieves an audit log by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.AuditLog, error)

	// GetByStoreID retrieves audit logs for a store with pagination
	GetByStoreID(ctx context.Context, storeID uuid.UUID, limit, offset int) ([]*models.AuditLog, error)

	// GetByUserID retrieves a store's audit logs for a user with pagination
	GetByUserID(ctx context.Context, storeID, userID uuid.UUID, limit, offset int) ([]*models.AuditLog, error)

	// GetByDateRange retrieves audit logs within a date range
	GetByDateRange(ctx context.Context, storeID uuid.UUID, start, end time.Time, limit, offset int) ([]*models.AuditLog, error)

	// GetByAction retrieves audit logs by action type
	GetByAction(ctx context.Context, storeID uuid.UUID, action models.AuditAction, limit, offset int) ([]*models.AuditLog, error)

	// GetByRequestID retrieves a store's audit logs by request ID
	GetByRequestID(ctx context.Context, storeID uuid.UUID, requestID string) ([]*models.AuditLog, error)

	// WithTx returns a new repository instance bound to the transaction
	WithTx(tx Transaction) AuditRepository
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Stores    StoreRepository
	Users     UserRepository
	Grants    GrantRepository
	AuditLogs AuditRepository
}
