package authz

// BadgeStyle names a display style for a role badge. Styles are consumed by
// the admin dashboard; the backend only selects them.
type BadgeStyle string

const (
	BadgeStyleDanger  BadgeStyle = "danger"
	BadgeStylePrimary BadgeStyle = "primary"
	BadgeStyleInfo    BadgeStyle = "info"
	BadgeStyleNeutral BadgeStyle = "neutral"
)

// Badge is the label/style pair shown for a resolved role.
type Badge struct {
	Label string     `json:"label"`
	Style BadgeStyle `json:"style"`
}

var roleBadges = map[Role]Badge{
	RoleSuperAdmin: {Label: "Super Admin", Style: BadgeStyleDanger},
	RoleAdmin:      {Label: "Admin", Style: BadgeStylePrimary},
	RoleStaff:      {Label: "Staff", Style: BadgeStyleInfo},
	RoleCustomer:   {Label: "Customer", Style: BadgeStyleNeutral},
}

// BadgeForRole returns the badge for a role. Unknown roles fall back to the
// raw role string with the neutral style; an empty role yields the zero
// Badge and ok=false so callers can render nothing.
func BadgeForRole(r Role) (Badge, bool) {
	if r == "" {
		return Badge{}, false
	}
	if b, ok := roleBadges[r]; ok {
		return b, true
	}
	return Badge{Label: string(r), Style: BadgeStyleNeutral}, true
}
