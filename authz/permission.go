package authz

// Permission is an atomic capability identifier checked before serving
// guarded resources. The set of valid permissions is fixed at compile time;
// values are case-sensitive and never minted at runtime.
type Permission string

const (
	PermOrdersView        Permission = "ORDERS_VIEW"
	PermOrdersEdit        Permission = "ORDERS_EDIT"
	PermProductsView      Permission = "PRODUCTS_VIEW"
	PermProductsEdit      Permission = "PRODUCTS_EDIT"
	PermCustomersView     Permission = "CUSTOMERS_VIEW"
	PermCustomersEdit     Permission = "CUSTOMERS_EDIT"
	PermReportsView       Permission = "REPORTS_VIEW"
	PermSettingsEdit      Permission = "SETTINGS_EDIT"
	PermUsersManage       Permission = "USERS_MANAGE"
	PermNotificationsSend Permission = "NOTIFICATIONS_SEND"
	PermMediaManage       Permission = "MEDIA_MANAGE"
)

// AllPermissions lists every permission known to the platform, in a stable
// order suitable for API responses.
func AllPermissions() []Permission {
	return []Permission{
		PermOrdersView,
		PermOrdersEdit,
		PermProductsView,
		PermProductsEdit,
		PermCustomersView,
		PermCustomersEdit,
		PermReportsView,
		PermSettingsEdit,
		PermUsersManage,
		PermNotificationsSend,
		PermMediaManage,
	}
}

// IsValidPermission reports whether p is part of the closed permission set.
func IsValidPermission(p Permission) bool {
	_, ok := validPermissions[p]
	return ok
}

var validPermissions = func() map[Permission]struct{} {
	m := make(map[Permission]struct{})
	for _, p := range AllPermissions() {
		m[p] = struct{}{}
	}
	return m
}()

// Role is a named bundle of permissions assigned to a user.
type Role string

const (
	RoleSuperAdmin Role = "SUPER_ADMIN"
	RoleAdmin      Role = "ADMIN"
	RoleStaff      Role = "STAFF"
	RoleCustomer   Role = "CUSTOMER"
)

// rolePermissions maps each role to its statically known permission subset.
// This table is the single owner of the role to permission mapping; callers
// only read it through PermissionsForRole.
var rolePermissions = map[Role][]Permission{
	RoleSuperAdmin: AllPermissions(),
	RoleAdmin: {
		PermOrdersView,
		PermOrdersEdit,
		PermProductsView,
		PermProductsEdit,
		PermCustomersView,
		PermCustomersEdit,
		PermReportsView,
		PermNotificationsSend,
		PermMediaManage,
	},
	RoleStaff: {
		PermOrdersView,
		PermOrdersEdit,
		PermProductsView,
		PermCustomersView,
	},
	// Storefront customers hold no back-office capabilities.
	RoleCustomer: {},
}

// IsValidRole reports whether r is a known role.
func IsValidRole(r Role) bool {
	_, ok := rolePermissions[r]
	return ok
}

// PermissionsForRole returns the permission set granted by a role. Unknown
// roles yield the empty set, never an error.
func PermissionsForRole(r Role) PermissionSet {
	return NewPermissionSet(rolePermissions[r]...)
}

// PermissionSet is an immutable-by-convention set of permissions answering
// the three boolean queries used by guards. The zero value is the empty set.
type PermissionSet map[Permission]struct{}

// NewPermissionSet builds a set from the given permissions.
func NewPermissionSet(perms ...Permission) PermissionSet {
	s := make(PermissionSet, len(perms))
	for _, p := range perms {
		s[p] = struct{}{}
	}
	return s
}

// Has reports whether p is a member of the set. Unknown permission tokens
// are simply absent, so the answer is false.
func (s PermissionSet) Has(p Permission) bool {
	_, ok := s[p]
	return ok
}

// HasAny reports whether at least one of the given permissions is a member.
// With no permissions supplied it returns false.
func (s PermissionSet) HasAny(perms ...Permission) bool {
	for _, p := range perms {
		if s.Has(p) {
			return true
		}
	}
	return false
}

// HasAll reports whether every given permission is a member. With no
// permissions supplied it returns true (vacuous truth).
func (s PermissionSet) HasAll(perms ...Permission) bool {
	for _, p := range perms {
		if !s.Has(p) {
			return false
		}
	}
	return true
}

// Union returns a new set containing members of both sets.
func (s PermissionSet) Union(other PermissionSet) PermissionSet {
	merged := make(PermissionSet, len(s)+len(other))
	for p := range s {
		merged[p] = struct{}{}
	}
	for p := range other {
		merged[p] = struct{}{}
	}
	return merged
}

// List returns the members in the stable AllPermissions order. Members
// outside the closed set are omitted.
func (s PermissionSet) List() []Permission {
	out := make([]Permission, 0, len(s))
	for _, p := range AllPermissions() {
		if s.Has(p) {
			out = append(out, p)
		}
	}
	return out
}

// Len returns the number of members.
func (s PermissionSet) Len() int {
	return len(s)
}
