package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/storeforge/access-plane/authz"
	"github.com/storeforge/access-plane/middleware"
	"github.com/storeforge/access-plane/services/access"
	"github.com/storeforge/access-plane/utils"
)

// AccessHandler exposes the permission resolver over HTTP so the admin
// dashboard can ask the same questions the route guards answer.
type AccessHandler struct {
	service *access.Service
	logger  *zap.Logger
}

// NewAccessHandler creates a new AccessHandler
func NewAccessHandler(service *access.Service, logger *zap.Logger) *AccessHandler {
	return &AccessHandler{
		service: service,
		logger:  logger,
	}
}

// CheckRequest is the request body for an access check. Either a single
// permission or a list may be given; the list honors require_all.
type CheckRequest struct {
	Permission  string   `json:"permission,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
	RequireAll  bool     `json:"require_all,omitempty"`
}

// CheckResponse is the response body for an access check
type CheckResponse struct {
	Allowed bool `json:"allowed"`
}

// HandleCheck handles POST /api/v1/access/check. The decision follows the
// guard's rules: single permission wins, then the list (all-of or any-of),
// and no constraint means allowed.
func (h *AccessHandler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}

	if req.Permission != "" && !authz.IsValidPermission(authz.Permission(req.Permission)) {
		_ = utils.WriteBadRequest(w, "Unknown permission token", map[string]interface{}{
			"permission": req.Permission,
		})
		return
	}
	for _, p := range req.Permissions {
		if !authz.IsValidPermission(authz.Permission(p)) {
			_ = utils.WriteBadRequest(w, "Unknown permission token", map[string]interface{}{
				"permission": p,
			})
			return
		}
	}

	resolver := middleware.GetResolverFromContext(ctx)

	var allowed bool
	switch {
	case req.Permission != "":
		allowed = resolver.HasPermission(ctx, authz.Permission(req.Permission))
	case len(req.Permissions) > 0:
		perms := make([]authz.Permission, len(req.Permissions))
		for i, p := range req.Permissions {
			perms[i] = authz.Permission(p)
		}
		if req.RequireAll {
			allowed = resolver.HasAllPermissions(ctx, perms...)
		} else {
			allowed = resolver.HasAnyPermission(ctx, perms...)
		}
	default:
		allowed = true
	}

	h.logger.Debug("access check",
		zap.String("request_id", middleware.GetRequestIDFromContext(ctx)),
		zap.String("permission", req.Permission),
		zap.Strings("permissions", req.Permissions),
		zap.Bool("require_all", req.RequireAll),
		zap.Bool("allowed", allowed))

	_ = utils.WriteOK(w, CheckResponse{Allowed: allowed})
}

// PermissionsResponse lists the subject's effective permissions
type PermissionsResponse struct {
	Role        authz.Role         `json:"role"`
	Permissions []authz.Permission `json:"permissions"`
	Badge       *authz.Badge       `json:"badge,omitempty"`
}

// HandlePermissions handles GET /api/v1/access/permissions, returning the
// effective permission set resolved for the authenticated subject.
func (h *AccessHandler) HandlePermissions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	claims := middleware.GetClaimsFromContext(ctx)
	if claims == nil {
		_ = utils.WriteUnauthorized(w, "Not authenticated")
		return
	}

	perms, err := h.service.ResolvePermissions(ctx, claims.Sub, claims.Role)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	resp := PermissionsResponse{
		Role:        claims.Role,
		Permissions: perms.List(),
	}
	if badge, ok := authz.BadgeForRole(claims.Role); ok {
		resp.Badge = &badge
	}

	_ = utils.WriteOK(w, resp)
}

// HandleCacheStats handles GET /api/v1/access/cache/stats
func (h *AccessHandler) HandleCacheStats(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteOK(w, h.service.GetCacheStats())
}
