package rbac

// Category groups related permission lists for the admin UI.
type Category struct {
	ID   int64  `json:"catId"`
	Name string `json:"catName"`
}

// ListItem is a fine-grained action; its ID is the permission identifier
// checked by the gate.
type ListItem struct {
	ID           int64  `json:"listId"`
	CategoryID   int64  `json:"catId"`
	CategoryName string `json:"catName,omitempty"`
	Name         string `json:"listName"`
}

// Grant ties one list (action) to a role.
type Grant struct {
	RoleID     int64
	CategoryID int64
	ListID     int64
}

// GrantGroup is the wire shape of a role's grants: one entry per category.
type GrantGroup struct {
	CategoryID int64   `json:"catId"`
	ListIDs    []int64 `json:"listId"`
}

// Account is the credential-store view of a user.
type Account struct {
	UserID     int64
	RoleID     int64
	ClientCode string
	Email      string
	Token      string
	Active     bool
}

// GroupGrants folds grant rows into per-category groups, keeping the order
// in which categories first appear.
func GroupGrants(grants []Grant) []GrantGroup {
	groups := make([]GrantGroup, 0)
	index := make(map[int64]int)
	for _, g := range grants {
		i, ok := index[g.CategoryID]
		if !ok {
			i = len(groups)
			index[g.CategoryID] = i
			groups = append(groups, GrantGroup{CategoryID: g.CategoryID})
		}
		groups[i].ListIDs = append(groups[i].ListIDs, g.ListID)
	}
	return groups
}

// FlattenGroups expands grouped input into grant rows for roleID. Groups
// without a category or without lists are skipped and duplicate triples
// collapse.
func FlattenGroups(roleID int64, groups []GrantGroup) []Grant {
	seen := make(map[Grant]struct{})
	grants := make([]Grant, 0)
	for _, group := range groups {
		if group.CategoryID <= 0 || len(group.ListIDs) == 0 {
			continue
		}
		for _, listID := range group.ListIDs {
			if listID <= 0 {
				continue
			}
			g := Grant{RoleID: roleID, CategoryID: group.CategoryID, ListID: listID}
			if _, dup := seen[g]; dup {
				continue
			}
			seen[g] = struct{}{}
			grants = append(grants, g)
		}
	}
	return grants
}
