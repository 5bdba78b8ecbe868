package auth

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/storeforge/access-plane/authz"
	"github.com/storeforge/access-plane/config"
	"github.com/storeforge/access-plane/middleware"
	"github.com/storeforge/access-plane/models"
	"github.com/storeforge/access-plane/repositories"
	"github.com/storeforge/access-plane/services"
	"github.com/storeforge/access-plane/services/audit"
	"github.com/storeforge/access-plane/token"
	"github.com/storeforge/access-plane/utils"
)

// TokenIssuer signs session tokens for authenticated users.
type TokenIssuer interface {
	Issue(userID, storeID uuid.UUID, email string, role authz.Role) (string, error)
	TTL() time.Duration
}

// LoginAuditor records authentication events.
type LoginAuditor interface {
	LogLogin(user *models.User, meta audit.RequestMeta) error
	LogLoginFailed(storeID uuid.UUID, email string, meta audit.RequestMeta) error
	LogLogout(user *models.User, meta audit.RequestMeta) error
}

// Handler handles session authentication (login, logout).
type Handler struct {
	cfg      *config.Config
	userRepo repositories.UserRepository
	issuer   TokenIssuer
	auditor  LoginAuditor
	logger   *zap.Logger
}

// NewHandler creates a new auth handler. The auditor may be nil, in which
// case authentication events are not recorded.
func NewHandler(cfg *config.Config, userRepo repositories.UserRepository, issuer TokenIssuer, auditor LoginAuditor, logger *zap.Logger) *Handler {
	return &Handler{
		cfg:      cfg,
		userRepo: userRepo,
		issuer:   issuer,
		auditor:  auditor,
		logger:   logger,
	}
}

// LoginRequest is the request body for login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// LoginResponse is the response body for a successful login
type LoginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// HandleLogin authenticates a user by email and password, issues a session
// token, and sets it as an HTTP-only cookie.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)
	meta := requestMeta(r, requestID)

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}

	if err := utils.ValidateStruct(&req); err != nil {
		details := make(map[string]interface{})
		for k, v := range utils.GetValidationFields(err) {
			details[k] = v
		}
		_ = utils.WriteBadRequest(w, "Validation failed", details)
		return
	}

	user, err := h.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		if services.IsNotFoundError(err) {
			h.recordLoginFailure(uuid.Nil, req.Email, meta)
			h.logger.Warn("login failed: unknown email",
				zap.String("request_id", requestID))
			_ = utils.WriteUnauthorized(w, "Invalid email or password")
			return
		}
		h.logger.Error("login failed: user lookup",
			zap.String("request_id", requestID),
			zap.Error(err))
		_ = utils.WriteInternalServerError(w, "Login failed")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		h.recordLoginFailure(user.StoreID, req.Email, meta)
		h.logger.Warn("login failed: bad password",
			zap.String("request_id", requestID),
			zap.String("user_id", user.ID.String()))
		_ = utils.WriteUnauthorized(w, "Invalid email or password")
		return
	}

	tok, err := h.issuer.Issue(user.ID, user.StoreID, user.Email, user.Role)
	if err != nil {
		h.logger.Error("token issuance failed",
			zap.String("request_id", requestID),
			zap.Error(err))
		_ = utils.WriteInternalServerError(w, "Login failed")
		return
	}

	h.setSessionCookie(w, tok, int(h.issuer.TTL().Seconds()))

	if h.auditor != nil {
		if err := h.auditor.LogLogin(user, meta); err != nil {
			h.logger.Warn("failed to record login", zap.Error(err))
		}
	}

	h.logger.Info("login successful",
		zap.String("request_id", requestID),
		zap.String("user_id", user.ID.String()),
		zap.String("store_id", user.StoreID.String()),
		zap.String("role", string(user.Role)))

	_ = utils.WriteOK(w, LoginResponse{
		Token:     tok,
		ExpiresAt: time.Now().Add(h.issuer.TTL()),
		User:      user,
	})
}

// HandleLogout clears the session cookie
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	h.setSessionCookie(w, "", -1)

	if claims := middleware.GetClaimsFromContext(ctx); claims != nil && h.auditor != nil {
		user := &models.User{
			ID:      claims.Sub,
			Email:   claims.Email,
			StoreID: claims.StoreID,
			Role:    claims.Role,
		}
		meta := requestMeta(r, middleware.GetRequestIDFromContext(ctx))
		if err := h.auditor.LogLogout(user, meta); err != nil {
			h.logger.Warn("failed to record logout", zap.Error(err))
		}
	}

	_ = utils.WriteOK(w, map[string]string{"status": "logged_out"})
}

// HandleMe returns the authenticated user's identity, role, and badge.
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		_ = utils.WriteUnauthorized(w, "Not authenticated")
		return
	}

	resp := map[string]interface{}{
		"id":       claims.Sub,
		"email":    claims.Email,
		"store_id": claims.StoreID,
		"role":     claims.Role,
	}
	if badge, ok := authz.BadgeForRole(claims.Role); ok {
		resp["badge"] = badge
	}

	_ = utils.WriteOK(w, resp)
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.Auth.CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.cfg.Auth.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *Handler) recordLoginFailure(storeID uuid.UUID, email string, meta audit.RequestMeta) {
	if h.auditor == nil {
		return
	}
	if err := h.auditor.LogLoginFailed(storeID, email, meta); err != nil {
		h.logger.Warn("failed to record login failure", zap.Error(err))
	}
}

func requestMeta(r *http.Request, requestID string) audit.RequestMeta {
	return audit.RequestMeta{
		RequestID: requestID,
		IPAddress: r.RemoteAddr,
		UserAgent: r.UserAgent(),
		Path:      r.URL.Path,
	}
}

var _ TokenIssuer = (*token.Issuer)(nil)
