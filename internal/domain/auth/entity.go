// internal/domain/auth/entity.go
package auth

// EditPolicy decides which Discord users may edit maps.
type EditPolicy struct {
	AllowUserIDs []string
	AllowRoleIDs []string
	GuildID      string
}

// AllowsUser reports whether id is on the user allow-list.
func (p EditPolicy) AllowsUser(id string) bool {
	return contains(p.AllowUserIDs, id)
}

// NeedsRoles reports whether a guild role lookup can grant edit rights.
func (p EditPolicy) NeedsRoles() bool {
	return len(p.AllowRoleIDs) > 0
}

// AllowsAnyRole reports whether roles intersects the role allow-list.
func (p EditPolicy) AllowsAnyRole(roles []string) bool {
	for _, r := range roles {
		if contains(p.AllowRoleIDs, r) {
			return true
		}
	}
	return false
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
