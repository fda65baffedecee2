package shared

// Parish record permissions declared for RBAC.
const (
	PermMembersView   = "members.view"
	PermMembersEdit   = "members.edit"
	PermMembersDelete = "members.delete"

	PermSacramentsView = "sacraments.view"
	PermSacramentsEdit = "sacraments.edit"

	PermFinanceView    = "finance.view"
	PermFinanceEdit    = "finance.edit"
	PermFinanceApprove = "finance.approve"

	PermImportRun = "import.run"
	PermSyncPush  = "sync.push"
)

// ParishScopes lists all permissions related to parish records.
func ParishScopes() []string {
	return []string{
		PermMembersView,
		PermMembersEdit,
		PermMembersDelete,
		PermSacramentsView,
		PermSacramentsEdit,
		PermFinanceView,
		PermFinanceEdit,
		PermFinanceApprove,
		PermImportRun,
		PermSyncPush,
	}
}
