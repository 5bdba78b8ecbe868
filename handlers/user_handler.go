package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/storeforge/access-plane/authz"
	"github.com/storeforge/access-plane/middleware"
	"github.com/storeforge/access-plane/models"
	"github.com/storeforge/access-plane/repositories"
	"github.com/storeforge/access-plane/services"
	"github.com/storeforge/access-plane/utils"
)

// UserAuditor records user lifecycle changes
type UserAuditor interface {
	LogUserCreated(user *models.User, creatorID uuid.UUID) error
	LogUserUpdated(user *models.User, updaterID uuid.UUID, changes map[string]interface{}) error
}

// UserHandler manages platform users. Routes using it are gated on
// USERS_MANAGE; store scoping is enforced here.
type UserHandler struct {
	userRepo repositories.UserRepository
	auditor  UserAuditor
	logger   *zap.Logger
}

// NewUserHandler creates a new UserHandler. The auditor may be nil.
func NewUserHandler(userRepo repositories.UserRepository, auditor UserAuditor, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		userRepo: userRepo,
		auditor:  auditor,
		logger:   logger,
	}
}

// CreateUserRequest is the request body for creating a user
type CreateUserRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"required"`
}

// UpdateUserRequest is the request body for updating a user. Empty
// fields are left unchanged.
type UpdateUserRequest struct {
	Email    string `json:"email,omitempty" validate:"omitempty,email"`
	Password string `json:"password,omitempty" validate:"omitempty,min=8"`
	Role     string `json:"role,omitempty"`
}

// HandleList handles GET /api/v1/users, listing the users of the
// caller's store.
func (h *UserHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	storeID := middleware.GetStoreIDFromContext(ctx)
	if storeID == uuid.Nil {
		_ = utils.WriteUnauthorized(w, "Not authenticated")
		return
	}

	users, err := h.userRepo.GetByStoreID(ctx, storeID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, users)
}

// HandleCreate handles POST /api/v1/users. The new user joins the
// caller's store.
func (h *UserHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	storeID := middleware.GetStoreIDFromContext(ctx)
	if storeID == uuid.Nil {
		_ = utils.WriteUnauthorized(w, "Not authenticated")
		return
	}

	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	role := authz.Role(req.Role)
	if !authz.IsValidRole(role) {
		_ = utils.WriteBadRequest(w, "Unknown role", map[string]interface{}{"role": req.Role})
		return
	}

	if existing, err := h.userRepo.GetByEmail(ctx, req.Email); err == nil && existing != nil {
		HandleServiceError(w, services.ErrDuplicateEmail, h.logger)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("password hashing failed", zap.Error(err))
		_ = utils.WriteInternalServerError(w, "Failed to create user")
		return
	}

	user := models.NewUser(req.Email, string(hash), storeID, role)
	if err := h.userRepo.Create(ctx, user); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if creator := middleware.GetUserIDFromContext(ctx); creator != nil && h.auditor != nil {
		if err := h.auditor.LogUserCreated(user, *creator); err != nil {
			h.logger.Warn("failed to record user creation", zap.Error(err))
		}
	}

	_ = utils.WriteCreated(w, user)
}

// HandleGet handles GET /api/v1/users/{userID}
func (h *UserHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid user ID", nil)
		return
	}

	user, err := h.userRepo.GetByID(ctx, userID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if !sameStore(r, user) {
		_ = utils.WriteNotFound(w, "user not found")
		return
	}

	_ = utils.WriteOK(w, user)
}

// HandleUpdate handles PUT /api/v1/users/{userID}
func (h *UserHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid user ID", nil)
		return
	}

	var req UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	user, err := h.userRepo.GetByID(ctx, userID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	if !sameStore(r, user) {
		_ = utils.WriteNotFound(w, "user not found")
		return
	}

	changes := make(map[string]interface{})
	if req.Email != "" && req.Email != user.Email {
		user.Email = req.Email
		changes["email"] = req.Email
	}
	if req.Role != "" {
		role := authz.Role(req.Role)
		if !authz.IsValidRole(role) {
			_ = utils.WriteBadRequest(w, "Unknown role", map[string]interface{}{"role": req.Role})
			return
		}
		if role != user.Role {
			user.Role = role
			changes["role"] = req.Role
		}
	}
	if req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			h.logger.Error("password hashing failed", zap.Error(err))
			_ = utils.WriteInternalServerError(w, "Failed to update user")
			return
		}
		user.PasswordHash = string(hash)
		changes["password"] = "changed"
	}

	if err := h.userRepo.Update(ctx, user); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if updater := middleware.GetUserIDFromContext(ctx); updater != nil && h.auditor != nil && len(changes) > 0 {
		if err := h.auditor.LogUserUpdated(user, *updater, changes); err != nil {
			h.logger.Warn("failed to record user update", zap.Error(err))
		}
	}

	_ = utils.WriteOK(w, user)
}

// HandleDelete handles DELETE /api/v1/users/{userID}
func (h *UserHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid user ID", nil)
		return
	}

	user, err := h.userRepo.GetByID(ctx, userID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	if !sameStore(r, user) {
		_ = utils.WriteNotFound(w, "user not found")
		return
	}

	if err := h.userRepo.Delete(ctx, userID); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	utils.WriteNoContent(w)
}

// sameStore reports whether the target user belongs to the caller's
// store. Super admins operate across stores. Shared with GrantHandler,
// which scopes grant operations by their target user.
func sameStore(r *http.Request, user *models.User) bool {
	ctx := r.Context()
	if role, ok := middleware.GetRoleFromContext(ctx); ok && role == authz.RoleSuperAdmin {
		return true
	}
	return user.StoreID == middleware.GetStoreIDFromContext(ctx)
}
