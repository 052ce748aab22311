package shared

// Administrative permission identifiers. They match list_id values in the
// lists table and are checked with exact equality.
const (
	PermRolesAdd    int64 = 124
	PermRolesView   int64 = 125
	PermRolesEdit   int64 = 126
	PermUsersAdd    int64 = 127
	PermUsersView   int64 = 128
	PermUsersEdit   int64 = 129
	PermUsersDelete int64 = 130
	PermRolesDelete int64 = 131
)

// Category identifiers used to group the administrative permissions.
const (
	CategoryRoleManagement int64 = 12
	CategoryUserManagement int64 = 13
)

// CoreScopes lists all administrative permissions.
func CoreScopes() []int64 {
	return []int64{
		PermRolesAdd,
		PermRolesView,
		PermRolesEdit,
		PermRolesDelete,
		PermUsersAdd,
		PermUsersView,
		PermUsersEdit,
		PermUsersDelete,
	}
}

// ScopeCategory reports the category a core scope belongs to, or 0 for ids
// outside CoreScopes.
func ScopeCategory(id int64) int64 {
	switch id {
	case PermRolesAdd, PermRolesView, PermRolesEdit, PermRolesDelete:
		return CategoryRoleManagement
	case PermUsersAdd, PermUsersView, PermUsersEdit, PermUsersDelete:
		return CategoryUserManagement
	}
	return 0
}
