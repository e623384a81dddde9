package models

import "strings"

// Role is the closed set of account roles.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Capability names a permission granted to a role.
type Capability string

const (
	CapModerate         Capability = "moderate"
	CapManageCategories Capability = "manage_categories"
	CapManageUsers      Capability = "manage_users"
	CapManageAnyEvent   Capability = "manage_any_event"
	CapViewStats        Capability = "view_stats"
)

var roleCapabilities = map[Role][]Capability{
	RoleUser: {},
	RoleAdmin: {
		CapModerate,
		CapManageCategories,
		CapManageUsers,
		CapManageAnyEvent,
		CapViewStats,
	},
}

// ParseRole accepts exactly USER or ADMIN.
func ParseRole(raw string) (Role, bool) {
	role := Role(strings.TrimSpace(raw))
	if _, ok := roleCapabilities[role]; !ok {
		return "", false
	}
	return role, true
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	_, ok := roleCapabilities[r]
	return ok
}

// CapabilitiesFor returns a copy of the capability set of a role.
func CapabilitiesFor(role Role) []Capability {
	caps := roleCapabilities[role]
	out := make([]Capability, len(caps))
	copy(out, caps)
	return out
}

// Can reports whether the role grants the capability.
func (r Role) Can(capability Capability) bool {
	for _, c := range roleCapabilities[r] {
		if c == capability {
			return true
		}
	}
	return false
}

// HasCapability reports whether the identity's role grants the capability.
// A nil identity has no capabilities.
func HasCapability(user *Identity, capability Capability) bool {
	if user == nil {
		return false
	}
	return user.Role.Can(capability)
}
