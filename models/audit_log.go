package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/storeforge/access-plane/authz"
)

// AuditAction represents the type of action being audited
type AuditAction string

const (
	AuditActionAccessAllowed AuditAction = "access_allowed"
	AuditActionAccessDenied  AuditAction = "access_denied"
	AuditActionLogin         AuditAction = "login"
	AuditActionLoginFailed   AuditAction = "login_failed"
	AuditActionLogout        AuditAction = "logout"
	AuditActionGrantAdded    AuditAction = "grant_added"
	AuditActionGrantRevoked  AuditAction = "grant_revoked"
	AuditActionUserCreated   AuditAction = "user_created"
	AuditActionUserUpdated   AuditAction = "user_updated"
)

// AuditLog represents an audit trail entry
type AuditLog struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	StoreID      uuid.UUID       `json:"store_id" db:"store_id"`
	UserID       *uuid.UUID      `json:"user_id,omitempty" db:"user_id"`
	Action       AuditAction     `json:"action" db:"action"`
	ResourceType string          `json:"resource_type" db:"resource_type"` // route, grant, user, etc.
	ResourceID   *uuid.UUID      `json:"resource_id,omitempty" db:"resource_id"`
	Details      json.RawMessage `json:"details" db:"details"` // JSONB for flexible metadata
	IPAddress    string          `json:"ip_address" db:"ip_address"`
	UserAgent    string          `json:"user_agent" db:"user_agent"`
	RequestID    string          `json:"request_id" db:"request_id"`
	Timestamp    time.Time       `json:"timestamp" db:"timestamp"`

	// Access-decision fields
	Permission *string `json:"permission,omitempty" db:"permission"`
	Role       *string `json:"role,omitempty" db:"role"`
	Path       *string `json:"path,omitempty" db:"path"`
}

// TableName returns the table name for the AuditLog model
func (AuditLog) TableName() string {
	return "audit_logs"
}

// NewAuditLog creates a new AuditLog instance
func NewAuditLog(storeID uuid.UUID, action AuditAction, resourceType string) *AuditLog {
	return &AuditLog{
		ID:           uuid.New(),
		StoreID:      storeID,
		Action:       action,
		ResourceType: resourceType,
		Timestamp:    time.Now(),
	}
}

// WithUser sets the user ID
func (a *AuditLog) WithUser(userID uuid.UUID) *AuditLog {
	a.UserID = &userID
	return a
}

// WithResource sets the resource ID
func (a *AuditLog) WithResource(resourceID uuid.UUID) *AuditLog {
	a.ResourceID = &resourceID
	return a
}

// WithDetails sets the details
func (a *AuditLog) WithDetails(details interface{}) *AuditLog {
	if data, err := json.Marshal(details); err == nil {
		a.Details = data
	}
	return a
}

// WithRequest sets request metadata
func (a *AuditLog) WithRequest(requestID, ipAddress, userAgent string) *AuditLog {
	a.RequestID = requestID
	a.IPAddress = ipAddress
	a.UserAgent = userAgent
	return a
}

// WithDecision sets access-decision metadata
func (a *AuditLog) WithDecision(permission authz.Permission, role authz.Role, path string) *AuditLog {
	p := string(permission)
	r := string(role)
	a.Permission = &p
	a.Role = &r
	a.Path = &path
	return a
}
