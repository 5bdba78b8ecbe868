package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/storeforge/access-plane/models"
	"github.com/storeforge/access-plane/repositories"
	"github.com/storeforge/access-plane/services"
)

// AuditRepository implements the repositories.AuditRepository interface
type AuditRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *DB, logger *zap.Logger) repositories.AuditRepository {
	return &AuditRepository{
		db:     db,
		logger: logger,
	}
}

// Insert inserts a new audit log entry
func (r *AuditRepository) Insert(ctx context.Context, log *models.AuditLog) error {
	query := `
		INSERT INTO audit_logs (
			id, store_id, user_id, action, resource_type, resource_id,
			details, ip_address, user_agent, request_id, timestamp,
			permission, role, path
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
		)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		log.ID,
		log.StoreID,
		log.UserID,
		log.Action,
		log.ResourceType,
		log.ResourceID,
		log.Details,
		log.IPAddress,
		log.UserAgent,
		log.RequestID,
		log.Timestamp,
		log.Permission,
		log.Role,
		log.Path,
	)

	if err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}

	r.logger.Debug("audit log inserted", zap.String("id", log.ID.String()), zap.String("action", string(log.Action)))
	return nil
}

// GetByID retrieves an audit log by ID
func (r *AuditRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.AuditLog, error) {
	query := `
		SELECT id, store_id, user_id, action, resource_type, resource_id,
		       details, ip_address, user_agent, request_id, timestamp,
		       permission, role, path
		FROM audit_logs
		WHERE id = $1
	`

	executor := GetExecutor(ctx, r.db)
	log := &models.AuditLog{}

	err := executor.QueryRowContext(ctx, query, id).Scan(
		&log.ID,
		&log.StoreID,
		&log.UserID,
		&log.Action,
		&log.ResourceType,
		&log.ResourceID,
		&log.Details,
		&log.IPAddress,
		&log.UserAgent,
		&log.RequestID,
		&log.Timestamp,
		&log.Permission,
		&log.Role,
		&log.Path,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, services.ErrAuditLogNotFound
		}
		return nil, fmt.Errorf("failed to get audit log: %w", err)
	}

	return log, nil
}

// GetByStoreID retrieves audit logs for a store with pagination
func (r *AuditRepository) GetByStoreID(ctx context.Context, storeID uuid.UUID, limit, offset int) ([]*models.AuditLog, error) {
	query := `
		SELECT id, store_id, user_id, action, resource_type, resource_id,
		       details, ip_address, user_agent, request_id, timestamp,
		       permission, role, path
		FROM audit_logs
		WHERE store_id = $1
		ORDER BY timestamp DESC
		LIMIT $2 OFFSET $3
	`

	return r.queryAuditLogs(ctx, query, storeID, limit, offset)
}

// GetByUserID retrieves a store's audit logs for a user with pagination
func (r *AuditRepository) GetByUserID(ctx context.Context, storeID, userID uuid.UUID, limit, offset int) ([]*models.AuditLog, error) {
	query := `
		SELECT id, store_id, user_id, action, resource_type, resource_id,
		       details, ip_address, user_agent, request_id, timestamp,
		       permission, role, path
		FROM audit_logs
		WHERE store_id = $1 AND user_id = $2
		ORDER BY timestamp DESC
		LIMIT $3 OFFSET $4
	`

	return r.queryAuditLogs(ctx, query, storeID, userID, limit, offset)
}

// GetByDateRange retrieves audit logs within a date range
func (r *AuditRepository) GetByDateRange(ctx context.Context, storeID uuid.UUID, start, end time.Time, limit, offset int) ([]*models.AuditLog, error) {
	query := `
		SELECT id, store_id, user_id, action, resource_type, resource_id,
		       details, ip_address, user_agent, request_id, timestamp,
		       permission, role, path
		FROM audit_logs
		WHERE store_id = $1 AND timestamp >= $2 AND timestamp <= $3
		ORDER BY timestamp DESC
		LIMIT $4 OFFSET $5
	`

	return r.queryAuditLogs(ctx, query, storeID, start, end, limit, offset)
}

// GetByAction retrieves audit logs by action type
func (r *AuditRepository) GetByAction(ctx context.Context, storeID uuid.UUID, action models.AuditAction, limit, offset int) ([]*models.AuditLog, error) {
	query := `
		SELECT id, store_id, user_id, action, resource_type, resource_id,
		       details, ip_address, user_agent, request_id, timestamp,
		       permission, role, path
		FROM audit_logs
		WHERE store_id = $1 AND action = $2
		ORDER BY timestamp DESC
		LIMIT $3 OFFSET $4
	`

	return r.queryAuditLogs(ctx, query, storeID, action, limit, offset)
}

// GetByRequestID retrieves a store's audit logs by request ID
func (r *AuditRepository) GetByRequestID(ctx context.Context, storeID uuid.UUID, requestID string) ([]*models.AuditLog, error) {
	query := `
		SELECT id, store_id, user_id, action, resource_type, resource_id,
		       details, ip_address, user_agent, request_id, timestamp,
		       permission, role, path
		FROM audit_logs
		WHERE store_id = $1 AND request_id = $2
		ORDER BY timestamp DESC
	`

	return r.queryAuditLogs(ctx, query, storeID, requestID)
}

// WithTx returns a new repository instance bound to the transaction
func (r *AuditRepository) WithTx(tx repositories.Transaction) repositories.AuditRepository {
	return &AuditRepository{
		db:     r.db,
		logger: r.logger,
	}
}

// queryAuditLogs is a helper method to query multiple audit logs
func (r *AuditRepository) queryAuditLogs(ctx context.Context, query string, args ...interface{}) ([]*models.AuditLog, error) {
	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit logs: %w", err)
	}
	defer rows.Close()

	var logs []*models.AuditLog
	for rows.Next() {
		log := &models.AuditLog{}
		err := rows.Scan(
			&log.ID,
			&log.StoreID,
			&log.UserID,
			&log.Action,
			&log.ResourceType,
			&log.ResourceID,
			&log.Details,
			&log.IPAddress,
			&log.UserAgent,
			&log.RequestID,
			&log.Timestamp,
			&log.Permission,
			&log.Role,
			&log.Path,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		logs = append(logs, log)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit log rows: %w", err)
	}

	return logs, nil
}
