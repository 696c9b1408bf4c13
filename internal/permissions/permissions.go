package permissions

import "github.com/glassworks/authcore/model"

// Permissions understood by the surrounding application.
const (
	PermOrdersView      = "orders.view"
	PermOrdersManage    = "orders.manage"
	PermPurchasesView   = "purchases.view"
	PermPurchasesManage = "purchases.manage"
	PermInventoryView   = "inventory.view"
	PermInventoryManage = "inventory.manage"
	PermUsersManage     = "users.manage"
	PermAuditView       = "audit.view"
	PermReportsView     = "reports.view"
)

var rolePermissions = map[string][]string{
	model.RoleAdmin: {
		PermOrdersView, PermOrdersManage,
		PermPurchasesView, PermPurchasesManage,
		PermInventoryView, PermInventoryManage,
		PermUsersManage, PermAuditView, PermReportsView,
	},
	model.RoleSupervisor: {
		PermOrdersView, PermOrdersManage,
		PermPurchasesView, PermPurchasesManage,
		PermInventoryView, PermInventoryManage,
		PermReportsView,
	},
	model.RoleOperator: {
		PermOrdersView, PermOrdersManage,
		PermInventoryView,
	},
	model.RoleUser: {
		PermOrdersView, PermInventoryView,
	},
	model.RoleGuest: {},
}

// ForRole returns the permission set granted to a role. Unknown roles get
// no permissions.
func ForRole(role string) []string {
	perms := rolePermissions[role]
	out := make([]string, len(perms))
	copy(out, perms)
	return out
}

// Has reports whether perm is in the set.
func Has(set []string, perm string) bool {
	for _, p := range set {
		if p == perm {
			return true
		}
	}
	return false
}
