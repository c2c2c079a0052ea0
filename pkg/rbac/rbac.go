package rbac

// Permissions over the shared objective aggregate.
const (
	PermissionReadObjective   = "objective:read"
	PermissionUpdateObjective = "objective:update"

	// PermissionSeedObjective gates the one-time seeding procedure.
	PermissionSeedObjective = "objective:seed"
)

const (
	RoleViewer = "viewer"
	RoleEditor = "editor"
	RoleAdmin  = "admin"
)

var rolePermissions = map[string][]string{
	RoleViewer: {
		PermissionReadObjective,
	},
	RoleEditor: {
		PermissionReadObjective,
		PermissionUpdateObjective,
	},
	RoleAdmin: {
		PermissionReadObjective,
		PermissionUpdateObjective,
		PermissionSeedObjective,
	},
}

// HasPermission reports whether role grants permission.
func HasPermission(role, permission string) bool {
	perms, ok := rolePermissions[role]
	if !ok {
		return false
	}
	for _, p := range perms {
		if p == permission {
			return true
		}
	}
	return false
}

// ValidRole reports whether role is a known role name.
func ValidRole(role string) bool {
	_, ok := rolePermissions[role]
	return ok
}
