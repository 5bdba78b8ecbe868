package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/storeforge/access-plane/authz"
	"github.com/storeforge/access-plane/models"
	"github.com/storeforge/access-plane/repositories"
	"github.com/storeforge/access-plane/services"
)

// GrantRepository implements the repositories.GrantRepository interface
type GrantRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewGrantRepository creates a new grant repository
func NewGrantRepository(db *DB, logger *zap.Logger) repositories.GrantRepository {
	return &GrantRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new grant
func (r *GrantRepository) Create(ctx context.Context, grant *models.Grant) error {
	query := `
		INSERT INTO grants (id, user_id, permission, granted_by, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		grant.ID,
		grant.UserID,
		grant.Permission,
		grant.GrantedBy,
		grant.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create grant: %w", err)
	}

	r.logger.Debug("grant created",
		zap.String("id", grant.ID.String()),
		zap.String("user_id", grant.UserID.String()),
		zap.String("permission", string(grant.Permission)))
	return nil
}

// GetByID retrieves a grant by ID
func (r *GrantRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Grant, error) {
	query := `
		SELECT id, user_id, permission, granted_by, created_at
		FROM grants
		WHERE id = $1
	`

	executor := GetExecutor(ctx, r.db)
	grant := &models.Grant{}

	err := executor.QueryRowContext(ctx, query, id).Scan(
		&grant.ID,
		&grant.UserID,
		&grant.Permission,
		&grant.GrantedBy,
		&grant.CreatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, services.ErrGrantNotFound
		}
		return nil, fmt.Errorf("failed to get grant: %w", err)
	}

	return grant, nil
}

// GetByUserID retrieves all grants for a user
func (r *GrantRepository) GetByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Grant, error) {
	query := `
		SELECT id, user_id, permission, granted_by, created_at
		FROM grants
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query grants: %w", err)
	}
	defer rows.Close()

	var grants []*models.Grant
	for rows.Next() {
		grant := &models.Grant{}
		err := rows.Scan(
			&grant.ID,
			&grant.UserID,
			&grant.Permission,
			&grant.GrantedBy,
			&grant.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan grant: %w", err)
		}
		grants = append(grants, grant)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating grant rows: %w", err)
	}

	return grants, nil
}

// GetPermissions retrieves the granted permission tokens for a user
func (r *GrantRepository) GetPermissions(ctx context.Context, userID uuid.UUID) ([]authz.Permission, error) {
	query := `
		SELECT permission
		FROM grants
		WHERE user_id = $1
	`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query grant permissions: %w", err)
	}
	defer rows.Close()

	var perms []authz.Permission
	for rows.Next() {
		var perm authz.Permission
		if err := rows.Scan(&perm); err != nil {
			return nil, fmt.Errorf("failed to scan permission: %w", err)
		}
		perms = append(perms, perm)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating permission rows: %w", err)
	}

	return perms, nil
}

// Delete deletes a grant
func (r *GrantRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM grants WHERE id = $1`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete grant: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("grant not found: %s", id)
	}

	r.logger.Debug("grant deleted", zap.String("id", id.String()))
	return nil
}

// DeleteByUserAndPermission revokes a specific permission from a user
func (r *GrantRepository) DeleteByUserAndPermission(ctx context.Context, userID uuid.UUID, permission authz.Permission) error {
	query := `DELETE FROM grants WHERE user_id = $1 AND permission = $2`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query, userID, permission)
	if err != nil {
		return fmt.Errorf("failed to delete grant: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return services.ErrGrantNotFound
	}

	r.logger.Debug("grant revoked",
		zap.String("user_id", userID.String()),
		zap.String("permission", string(permission)))
	return nil
}

// WithTx returns a new repository instance bound to the transaction
func (r *GrantRepository) WithTx(tx repositories.Transaction) repositories.GrantRepository {
	return &GrantRepository{
		db:     r.db,
		logger: r.logger,
	}
}
