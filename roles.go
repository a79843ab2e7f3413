package auth

// IsValid checks if the role is one of the predefined marketplace roles
func IsValidRole(r Role) bool {
	switch r {
	case RoleBuyer, RoleSeller, RoleAdmin:
		return true
	default:
		return false
	}
}

// ParseRole safely parses a string into a Role
func ParseRole(roleStr string) (Role, bool) {
	role := Role(roleStr)
	return role, IsValidRole(role)
}

// AllRoles returns the predefined roles in hierarchical order
func AllRoles() []Role {
	return []Role{
		RoleBuyer,
		RoleSeller,
		RoleAdmin,
	}
}

// RoleAtLeast checks if a role meets the minimum required level. Unknown
// roles never satisfy any requirement.
func RoleAtLeast(r, minRole Role) bool {
	roleHierarchy := map[Role]int{
		RoleBuyer:  0,
		RoleSeller: 1,
		RoleAdmin:  2,
	}

	currentLevel, exists := roleHierarchy[r]
	if !exists {
		return false
	}

	minLevel, exists := roleHierarchy[minRole]
	if !exists {
		return false
	}

	return currentLevel >= minLevel
}

// DashboardPath maps a role to its landing dashboard. Buyers, and any role
// the router does not recognize, land on the storefront root.
func DashboardPath(role Role) string {
	switch role {
	case RoleAdmin:
		return "/admin"
	case RoleSeller:
		return "/seller"
	default:
		return "/"
	}
}

// RoleAllowed reports whether role is contained in allowed. An empty allow
// list admits every authenticated principal.
func RoleAllowed(role Role, allowed []Role) bool {
	if len(allowed) == 0 {
		return true
	}

	for _, a := range allowed {
		if a == role {
			return true
		}
	}

	return false
}
