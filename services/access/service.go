package access

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/storeforge/access-plane/authz"
	"github.com/storeforge/access-plane/models"
	"github.com/storeforge/access-plane/repositories"
	"github.com/storeforge/access-plane/services"
)

// Service resolves effective permission sets for users.
// The effective set is the role baseline unioned with per-user grants,
// so grants can only widen what a role already allows.
type Service struct {
	grantRepo repositories.GrantRepository
	userRepo  repositories.UserRepository
	cache     *PermissionCache
	logger    *zap.Logger
}

// NewService creates a new access Service instance
func NewService(grantRepo repositories.GrantRepository, userRepo repositories.UserRepository, cache *PermissionCache, logger *zap.Logger) *Service {
	return &Service{
		grantRepo: grantRepo,
		userRepo:  userRepo,
		cache:     cache,
		logger:    logger,
	}
}

// ResolvePermissions resolves the effective permission set for a user.
// Role baseline comes from the static role table; grants are fetched
// from the database with caching.
func (s *Service) ResolvePermissions(ctx context.Context, userID uuid.UUID, role authz.Role) (authz.PermissionSet, error) {
	base := authz.PermissionsForRole(role)

	if cached, ok := s.cache.Get(userID); ok {
		s.logger.Debug("cache hit for permissions",
			zap.String("user_id", userID.String()))
		return base.Union(cached), nil
	}

	granted, err := s.grantRepo.GetPermissions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch grants: %w", err)
	}

	// Unknown tokens in the grants table are dropped rather than honored.
	valid := make([]authz.Permission, 0, len(granted))
	for _, p := range granted {
		if authz.IsValidPermission(p) {
			valid = append(valid, p)
		} else {
			s.logger.Warn("ignoring unknown permission token in grants",
				zap.String("user_id", userID.String()),
				zap.String("permission", string(p)))
		}
	}

	grantSet := authz.NewPermissionSet(valid...)
	s.cache.Set(userID, grantSet)

	s.logger.Debug("cache miss for permissions, fetched from database",
		zap.String("user_id", userID.String()),
		zap.Int("grants", grantSet.Len()))

	return base.Union(grantSet), nil
}

// AddGrant grants an additional permission to a user and invalidates
// the cached permission set
func (s *Service) AddGrant(ctx context.Context, userID uuid.UUID, permission authz.Permission, grantedBy uuid.UUID) (*models.Grant, error) {
	if !authz.IsValidPermission(permission) {
		return nil, services.NewDomainError(services.ErrorTypeValidation, "invalid permission token", nil).
			WithDetail("permission", string(permission))
	}

	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return nil, services.ErrUserNotFound
	}

	existing, err := s.grantRepo.GetPermissions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch existing grants: %w", err)
	}
	for _, p := range existing {
		if p == permission {
			return nil, services.NewDomainError(services.ErrorTypeConflict, "grant already exists", nil).
				WithDetail("permission", string(permission))
		}
	}

	grant := models.NewGrant(userID, permission, grantedBy)
	if err := s.grantRepo.Create(ctx, grant); err != nil {
		return nil, fmt.Errorf("failed to create grant: %w", err)
	}

	s.cache.Invalidate(userID)
	s.logger.Info("permission granted",
		zap.String("user_id", userID.String()),
		zap.String("permission", string(permission)),
		zap.String("granted_by", grantedBy.String()))

	return grant, nil
}

// RevokeGrant revokes a previously granted permission from a user and
// invalidates the cached permission set
func (s *Service) RevokeGrant(ctx context.Context, userID uuid.UUID, permission authz.Permission) error {
	if err := s.grantRepo.DeleteByUserAndPermission(ctx, userID, permission); err != nil {
		if services.IsNotFoundError(err) {
			return err
		}
		return fmt.Errorf("failed to revoke grant: %w", err)
	}

	s.cache.Invalidate(userID)
	s.logger.Info("permission revoked",
		zap.String("user_id", userID.String()),
		zap.String("permission", string(permission)))

	return nil
}

// ListGrants lists all grants for a user
func (s *Service) ListGrants(ctx context.Context, userID uuid.UUID) ([]*models.Grant, error) {
	return s.grantRepo.GetByUserID(ctx, userID)
}

// InvalidateUser removes a user's cached permission set
func (s *Service) InvalidateUser(userID uuid.UUID) {
	s.cache.Invalidate(userID)
}

// GetCacheStats returns cache statistics
func (s *Service) GetCacheStats() CacheStats {
	return s.cache.Stats()
}

// StartCacheCleanup starts a background worker to clean up expired cache entries
func (s *Service) StartCacheCleanup(interval time.Duration, stopCh <-chan struct{}) {
	go s.cache.StartCleanupWorker(interval, stopCh)
	s.logger.Info("started cache cleanup worker",
		zap.Duration("interval", interval))
}

// UserSource adapts the access Service to the authz.PermissionSource
// interface for a specific user. A zero-value user (no session) always
// resolves to the empty set; resolution failures degrade to the empty
// set as well so checks deny rather than error.
type UserSource struct {
	service *Service
	userID  uuid.UUID
	role    authz.Role
	hasUser bool
}

// SourceFor returns a PermissionSource scoped to the given user
func (s *Service) SourceFor(userID uuid.UUID, role authz.Role) *UserSource {
	return &UserSource{
		service: s,
		userID:  userID,
		role:    role,
		hasUser: userID != uuid.Nil,
	}
}

// AnonymousSource returns a PermissionSource for an unauthenticated caller
func (s *Service) AnonymousSource() *UserSource {
	return &UserSource{service: s}
}

// CurrentPermissions implements authz.PermissionSource
func (u *UserSource) CurrentPermissions(ctx context.Context) authz.PermissionSet {
	if !u.hasUser {
		return authz.NewPermissionSet()
	}

	perms, err := u.service.ResolvePermissions(ctx, u.userID, u.role)
	if err != nil {
		u.service.logger.Warn("permission resolution failed, denying",
			zap.String("user_id", u.userID.String()),
			zap.Error(err))
		return authz.NewPermissionSet()
	}
	return perms
}

// CurrentRole implements authz.RoleSource
func (u *UserSource) CurrentRole(ctx context.Context) (authz.Role, bool) {
	if !u.hasUser {
		return "", false
	}
	return u.role, true
}
