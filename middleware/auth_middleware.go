package middleware

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/storeforge/access-plane/authz"
	"github.com/storeforge/access-plane/token"
	"github.com/storeforge/access-plane/utils"
)

// TokenValidator defines the interface for validating session tokens
type TokenValidator interface {
	// ValidateToken validates a token and returns its claims
	ValidateToken(ctx context.Context, token string) (*token.ParsedClaims, error)
}

// AuthMiddleware provides authentication middleware functionality
type AuthMiddleware struct {
	validator TokenValidator
	sources   SourceFactory
	logger    *zap.Logger
}

// SourceFactory builds the permission source for an authenticated subject
type SourceFactory func(claims *token.ParsedClaims) authz.PermissionSource

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(validator TokenValidator, sources SourceFactory, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		validator: validator,
		sources:   sources,
		logger:    logger,
	}
}

// authTokenCookieName is the cookie name for session tokens
// (Authorization header takes precedence)
const authTokenCookieName = "auth_token"

// RequireAuth is a middleware that requires a valid session token.
// On success the claims, role, and a permission resolver for the
// subject are bound to the request context.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := GetRequestIDFromContext(ctx)

		// Extract token from Authorization header ("Bearer TOKEN") or cookie
		tok := extractToken(r)
		if tok == "" {
			m.logger.Warn("missing token",
				zap.String("request_id", requestID))
			_ = utils.WriteUnauthorized(w, "Missing or invalid authorization")
			return
		}

		// Validate token
		claims, err := m.validator.ValidateToken(ctx, tok)
		if err != nil {
			m.logger.Warn("token validation failed",
				zap.String("request_id", requestID),
				zap.Error(err))
			_ = utils.WriteUnauthorized(w, "Invalid or expired token")
			return
		}

		// Bind subject to context
		ctx = WithClaims(ctx, claims)
		ctx = WithRole(ctx, claims.Role)
		ctx = WithResolver(ctx, authz.NewResolver(m.sources(claims)))

		m.logger.Debug("authentication successful",
			zap.String("request_id", requestID),
			zap.String("sub", claims.Sub.String()),
			zap.String("role", string(claims.Role)))

		// Call next handler
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// OptionalAuth binds the subject to the context when a valid token is
// present but lets unauthenticated requests through. Downstream guards
// still deny: an absent resolver resolves to no permissions.
func (m *AuthMiddleware) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		tok := extractToken(r)
		if tok != "" {
			if claims, err := m.validator.ValidateToken(ctx, tok); err == nil {
				ctx = WithClaims(ctx, claims)
				ctx = WithRole(ctx, claims.Role)
				ctx = WithResolver(ctx, authz.NewResolver(m.sources(claims)))
			}
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractToken extracts a token from the Authorization header
// ("Bearer TOKEN") or the auth_token cookie. The header takes
// precedence when both are present.
func extractToken(r *http.Request) string {
	if tok := extractBearerToken(r); tok != "" {
		return tok
	}
	if cookie, err := r.Cookie(authTokenCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return ""
}

// extractBearerToken extracts the Bearer token from the Authorization header
func extractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}

	return strings.TrimSpace(parts[1])
}
