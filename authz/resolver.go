package authz

import "context"

// PermissionSource resolves the permission set for the current subject.
// Implementations own the role state; the resolver only reads it.
// An absent or unresolvable session must yield the empty set, not an error.
type PermissionSource interface {
	CurrentPermissions(ctx context.Context) PermissionSet
}

// RoleSource resolves the current subject's role, when one exists.
type RoleSource interface {
	CurrentRole(ctx context.Context) (Role, bool)
}

// Resolver answers boolean permission queries against a PermissionSource.
// All queries are pure reads; the decision is recomputed on every call.
type Resolver struct {
	source PermissionSource
}

// NewResolver creates a Resolver backed by the given source.
func NewResolver(source PermissionSource) *Resolver {
	return &Resolver{source: source}
}

// HasPermission reports whether the current subject holds p.
func (r *Resolver) HasPermission(ctx context.Context, p Permission) bool {
	return r.permissions(ctx).Has(p)
}

// HasAnyPermission reports whether the current subject holds at least one
// of the given permissions. An empty list yields false.
func (r *Resolver) HasAnyPermission(ctx context.Context, perms ...Permission) bool {
	return r.permissions(ctx).HasAny(perms...)
}

// HasAllPermissions reports whether the current subject holds every one of
// the given permissions. An empty list yields true.
func (r *Resolver) HasAllPermissions(ctx context.Context, perms ...Permission) bool {
	return r.permissions(ctx).HasAll(perms...)
}

func (r *Resolver) permissions(ctx context.Context) PermissionSet {
	if r == nil || r.source == nil {
		return nil
	}
	return r.source.CurrentPermissions(ctx)
}

// StaticSource is a PermissionSource over a fixed set, mainly for tests and
// for contexts where the permission set is already resolved.
type StaticSource PermissionSet

// CurrentPermissions implements PermissionSource.
func (s StaticSource) CurrentPermissions(context.Context) PermissionSet {
	return PermissionSet(s)
}
