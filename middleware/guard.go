package middleware

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/storeforge/access-plane/authz"
	"github.com/storeforge/access-plane/services/audit"
	"github.com/storeforge/access-plane/utils"
)

// DecisionAuditor records the outcome of permission checks
type DecisionAuditor interface {
	LogAccessDecision(storeID uuid.UUID, userID *uuid.UUID, permission authz.Permission, role authz.Role, allowed bool, meta audit.RequestMeta) error
}

// GuardConfig configures a permission guard for a route.
//
// Decision rules, evaluated in order:
//   - Permission set: the subject must hold it.
//   - Permissions non-empty: the subject must hold all of them when
//     RequireAll is set, otherwise at least one.
//   - Neither set: the request passes.
//
// A subject with no resolver bound to the context holds no permissions,
// so any configured requirement denies.
type GuardConfig struct {
	Permission  authz.Permission
	Permissions []authz.Permission
	RequireAll  bool

	// Fallback is invoked on denial. When nil, a 403 JSON response
	// is written.
	Fallback http.Handler
}

// Guard gates routes on the subject's permission set
type Guard struct {
	logger  *zap.Logger
	auditor DecisionAuditor
}

// NewGuard creates a new Guard. The auditor may be nil, in which case
// decisions are not recorded.
func NewGuard(logger *zap.Logger, auditor DecisionAuditor) *Guard {
	return &Guard{
		logger:  logger,
		auditor: auditor,
	}
}

// Protect returns a middleware enforcing the given guard configuration
func (g *Guard) Protect(cfg GuardConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			resolver := GetResolverFromContext(ctx)

			allowed, checked := g.decide(r, resolver, cfg)

			if g.auditor != nil && checked != "" {
				role, _ := GetRoleFromContext(ctx)
				meta := audit.RequestMeta{
					RequestID: GetRequestIDFromContext(ctx),
					IPAddress: r.RemoteAddr,
					UserAgent: r.UserAgent(),
					Path:      r.URL.Path,
				}
				if err := g.auditor.LogAccessDecision(GetStoreIDFromContext(ctx), GetUserIDFromContext(ctx), checked, role, allowed, meta); err != nil {
					g.logger.Warn("failed to record access decision", zap.Error(err))
				}
			}

			if !allowed {
				if cfg.Fallback != nil {
					cfg.Fallback.ServeHTTP(w, r)
					return
				}
				_ = utils.WriteForbidden(w, "Insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// decide applies the guard's decision rules. It returns the outcome and
// the permission that drove the decision (empty when nothing was checked).
func (g *Guard) decide(r *http.Request, resolver *authz.Resolver, cfg GuardConfig) (bool, authz.Permission) {
	ctx := r.Context()

	if cfg.Permission != "" {
		allowed := resolver.HasPermission(ctx, cfg.Permission)
		g.logDecision(r, cfg.Permission, allowed)
		return allowed, cfg.Permission
	}

	if len(cfg.Permissions) > 0 {
		var allowed bool
		if cfg.RequireAll {
			allowed = resolver.HasAllPermissions(ctx, cfg.Permissions...)
		} else {
			allowed = resolver.HasAnyPermission(ctx, cfg.Permissions...)
		}
		g.logDecision(r, cfg.Permissions[0], allowed)
		return allowed, cfg.Permissions[0]
	}

	// Nothing required
	return true, ""
}

func (g *Guard) logDecision(r *http.Request, permission authz.Permission, allowed bool) {
	g.logger.Debug("permission check",
		zap.String("request_id", GetRequestIDFromContext(r.Context())),
		zap.String("path", r.URL.Path),
		zap.String("permission", string(permission)),
		zap.Bool("allowed", allowed))
}

// Require returns a middleware requiring a single permission
func (g *Guard) Require(p authz.Permission) func(http.Handler) http.Handler {
	return g.Protect(GuardConfig{Permission: p})
}

// RequireAny returns a middleware requiring at least one of the given permissions
func (g *Guard) RequireAny(perms ...authz.Permission) func(http.Handler) http.Handler {
	return g.Protect(GuardConfig{Permissions: perms})
}

// RequireAll returns a middleware requiring every one of the given permissions
func (g *Guard) RequireAll(perms ...authz.Permission) func(http.Handler) http.Handler {
	return g.Protect(GuardConfig{Permissions: perms, RequireAll: true})
}
