package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/storeforge/access-plane/authz"
	"github.com/storeforge/access-plane/middleware"
	"github.com/storeforge/access-plane/models"
	"github.com/storeforge/access-plane/repositories"
	"github.com/storeforge/access-plane/services/access"
	"github.com/storeforge/access-plane/services/audit"
	"github.com/storeforge/access-plane/utils"
)

// GrantAuditor records grant changes
type GrantAuditor interface {
	LogGrantAdded(storeID uuid.UUID, grant *models.Grant, meta audit.RequestMeta) error
	LogGrantRevoked(storeID, targetUserID, revokedBy uuid.UUID, permission authz.Permission, meta audit.RequestMeta) error
}

// GrantHandler manages per-user permission grants. Operations are
// scoped to the caller's store through the target user, like UserHandler.
type GrantHandler struct {
	service  *access.Service
	userRepo repositories.UserRepository
	auditor  GrantAuditor
	logger   *zap.Logger
}

// NewGrantHandler creates a new GrantHandler. The auditor may be nil.
func NewGrantHandler(service *access.Service, userRepo repositories.UserRepository, auditor GrantAuditor, logger *zap.Logger) *GrantHandler {
	return &GrantHandler{
		service:  service,
		userRepo: userRepo,
		auditor:  auditor,
		logger:   logger,
	}
}

// AddGrantRequest is the request body for adding a grant
type AddGrantRequest struct {
	Permission string `json:"permission" validate:"required"`
}

// HandleList handles GET /api/v1/users/{userID}/grants
func (h *GrantHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid user ID", nil)
		return
	}

	if !h.targetInScope(w, r, userID) {
		return
	}

	grants, err := h.service.ListGrants(ctx, userID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, grants)
}

// HandleAdd handles POST /api/v1/users/{userID}/grants
func (h *GrantHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid user ID", nil)
		return
	}

	var req AddGrantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	grantedBy := middleware.GetUserIDFromContext(ctx)
	if grantedBy == nil {
		_ = utils.WriteUnauthorized(w, "Not authenticated")
		return
	}

	if !authz.IsValidPermission(authz.Permission(req.Permission)) {
		_ = utils.WriteBadRequest(w, "Unknown permission token", nil)
		return
	}

	if !h.targetInScope(w, r, userID) {
		return
	}

	grant, err := h.service.AddGrant(ctx, userID, authz.Permission(req.Permission), *grantedBy)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if h.auditor != nil {
		meta := requestMeta(r)
		if err := h.auditor.LogGrantAdded(middleware.GetStoreIDFromContext(ctx), grant, meta); err != nil {
			h.logger.Warn("failed to record grant addition", zap.Error(err))
		}
	}

	_ = utils.WriteCreated(w, grant)
}

// HandleRevoke handles DELETE /api/v1/users/{userID}/grants/{permission}
func (h *GrantHandler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid user ID", nil)
		return
	}

	permission := authz.Permission(chi.URLParam(r, "permission"))
	if !authz.IsValidPermission(permission) {
		_ = utils.WriteBadRequest(w, "Unknown permission token", nil)
		return
	}

	if !h.targetInScope(w, r, userID) {
		return
	}

	if err := h.service.RevokeGrant(ctx, userID, permission); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if h.auditor != nil {
		revokedBy := uuid.Nil
		if id := middleware.GetUserIDFromContext(ctx); id != nil {
			revokedBy = *id
		}
		meta := requestMeta(r)
		if err := h.auditor.LogGrantRevoked(middleware.GetStoreIDFromContext(ctx), userID, revokedBy, permission, meta); err != nil {
			h.logger.Warn("failed to record grant revocation", zap.Error(err))
		}
	}

	utils.WriteNoContent(w)
}

// targetInScope fetches the target user and verifies it belongs to the
// caller's store. Cross-store targets are hidden, not forbidden; the
// response is written on failure.
func (h *GrantHandler) targetInScope(w http.ResponseWriter, r *http.Request, userID uuid.UUID) bool {
	user, err := h.userRepo.GetByID(r.Context(), userID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return false
	}
	if !sameStore(r, user) {
		_ = utils.WriteNotFound(w, "user not found")
		return false
	}
	return true
}

// requestMeta builds audit metadata from the request
func requestMeta(r *http.Request) audit.RequestMeta {
	return audit.RequestMeta{
		RequestID: middleware.GetRequestIDFromContext(r.Context()),
		IPAddress: r.RemoteAddr,
		UserAgent: r.UserAgent(),
		Path:      r.URL.Path,
	}
}
