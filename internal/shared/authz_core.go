package shared

// Core platform permissions.
const (
	PermUsersView = "users.view"
	PermUsersEdit = "users.edit"

	PermRolesView = "roles.view"
	PermRolesEdit = "roles.edit"

	PermPermissionsView = "permissions.view"
	PermOverridesEdit   = "overrides.edit"

	PermAuditView = "audit.view"

	PermParishesView = "parishes.view"
	PermParishesEdit = "parishes.edit"
)

// CoreScopes lists all permissions related to the core platform.
func CoreScopes() []string {
	return []string{
		PermUsersView,
		PermUsersEdit,
		PermRolesView,
		PermRolesEdit,
		PermPermissionsView,
		PermOverridesEdit,
		PermAuditView,
		PermParishesView,
		PermParishesEdit,
	}
}
