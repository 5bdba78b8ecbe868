package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/storeforge/access-plane/authz"
	"github.com/storeforge/access-plane/token"
)

// Context key type to avoid collisions
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"

	// ClaimsKey is the context key for validated token claims
	ClaimsKey contextKey = "claims"

	// ResolverKey is the context key for the permission resolver
	ResolverKey contextKey = "resolver"

	// RoleKey is the context key for the subject's role
	RoleKey contextKey = "role"
)

// GetRequestIDFromContext retrieves the request ID from context
func GetRequestIDFromContext(ctx context.Context) string {
	if val := ctx.Value(RequestIDKey); val != nil {
		if requestID, ok := val.(string); ok {
			return requestID
		}
	}
	return ""
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetClaimsFromContext retrieves validated token claims from context
func GetClaimsFromContext(ctx context.Context) *token.ParsedClaims {
	if val := ctx.Value(ClaimsKey); val != nil {
		if claims, ok := val.(*token.ParsedClaims); ok {
			return claims
		}
	}
	return nil
}

// WithClaims adds validated token claims to the context
func WithClaims(ctx context.Context, claims *token.ParsedClaims) context.Context {
	return context.WithValue(ctx, ClaimsKey, claims)
}

// GetResolverFromContext retrieves the permission resolver from context.
// Returns nil when no authenticated subject is bound to the request;
// callers must treat that as holding no permissions.
func GetResolverFromContext(ctx context.Context) *authz.Resolver {
	if val := ctx.Value(ResolverKey); val != nil {
		if resolver, ok := val.(*authz.Resolver); ok {
			return resolver
		}
	}
	return nil
}

// WithResolver adds a permission resolver to the context
func WithResolver(ctx context.Context, resolver *authz.Resolver) context.Context {
	return context.WithValue(ctx, ResolverKey, resolver)
}

// GetRoleFromContext retrieves the subject's role from context
func GetRoleFromContext(ctx context.Context) (authz.Role, bool) {
	if val := ctx.Value(RoleKey); val != nil {
		if role, ok := val.(authz.Role); ok {
			return role, true
		}
	}
	return "", false
}

// WithRole adds the subject's role to the context
func WithRole(ctx context.Context, role authz.Role) context.Context {
	return context.WithValue(ctx, RoleKey, role)
}

// GetUserIDFromContext retrieves the authenticated user ID from context
func GetUserIDFromContext(ctx context.Context) *uuid.UUID {
	if claims := GetClaimsFromContext(ctx); claims != nil {
		id := claims.Sub
		return &id
	}
	return nil
}

// GetStoreIDFromContext retrieves the authenticated user's store ID from context
func GetStoreIDFromContext(ctx context.Context) uuid.UUID {
	if claims := GetClaimsFromContext(ctx); claims != nil {
		return claims.StoreID
	}
	return uuid.Nil
}
