package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/storeforge/access-plane/models"
	"github.com/storeforge/access-plane/repositories"
	"github.com/storeforge/access-plane/services"
)

// StoreRepository implements the repositories.StoreRepository interface
type StoreRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewStoreRepository creates a new store repository
func NewStoreRepository(db *DB, logger *zap.Logger) repositories.StoreRepository {
	return &StoreRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new store
func (r *StoreRepository) Create(ctx context.Context, store *models.Store) error {
	query := `
		INSERT INTO stores (id, name, slug, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		store.ID,
		store.Name,
		store.Slug,
		store.CreatedAt,
		store.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}

	r.logger.Debug("store created", zap.String("id", store.ID.String()), zap.String("slug", store.Slug))
	return nil
}

// GetByID retrieves a store by ID
func (r *StoreRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Store, error) {
	query := `
		SELECT id, name, slug, created_at, updated_at
		FROM stores
		WHERE id = $1
	`

	executor := GetExecutor(ctx, r.db)
	store := &models.Store{}

	err := executor.QueryRowContext(ctx, query, id).Scan(
		&store.ID,
		&store.Name,
		&store.Slug,
		&store.CreatedAt,
		&store.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, services.ErrStoreNotFound
		}
		return nil, fmt.Errorf("failed to get store: %w", err)
	}

	return store, nil
}

// GetBySlug retrieves a store by slug
func (r *StoreRepository) GetBySlug(ctx context.Context, slug string) (*models.Store, error) {
	query := `
		SELECT id, name, slug, created_at, updated_at
		FROM stores
		WHERE slug = $1
	`

	executor := GetExecutor(ctx, r.db)
	store := &models.Store{}

	err := executor.QueryRowContext(ctx, query, slug).Scan(
		&store.ID,
		&store.Name,
		&store.Slug,
		&store.CreatedAt,
		&store.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, services.ErrStoreNotFound
		}
		return nil, fmt.Errorf("failed to get store: %w", err)
	}

	return store, nil
}

// List retrieves all stores with pagination
func (r *StoreRepository) List(ctx context.Context, limit, offset int) ([]*models.Store, error) {
	query := `
		SELECT id, name, slug, created_at, updated_at
		FROM stores
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list stores: %w", err)
	}
	defer rows.Close()

	var stores []*models.Store
	for rows.Next() {
		store := &models.Store{}
		err := rows.Scan(
			&store.ID,
			&store.Name,
			&store.Slug,
			&store.CreatedAt,
			&store.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan store: %w", err)
		}
		stores = append(stores, store)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating store rows: %w", err)
	}

	return stores, nil
}

// Update updates a store
func (r *StoreRepository) Update(ctx context.Context, store *models.Store) error {
	query := `
		UPDATE stores
		SET name = $2,
		    slug = $3,
		    updated_at = $4
		WHERE id = $1
	`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query,
		store.ID,
		store.Name,
		store.Slug,
		store.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to update store: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("store not found: %s", store.ID)
	}

	r.logger.Debug("store updated", zap.String("id", store.ID.String()))
	return nil
}

// Delete deletes a store
func (r *StoreRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM stores WHERE id = $1`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete store: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("store not found: %s", id)
	}

	r.logger.Debug("store deleted", zap.String("id", id.String()))
	return nil
}

// WithTx returns a new repository instance bound to the transaction
func (r *StoreRepository) WithTx(tx repositories.Transaction) repositories.StoreRepository {
	return &StoreRepository{
		db:     r.db,
		logger: r.logger,
	}
}
