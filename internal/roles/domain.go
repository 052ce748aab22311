package roles

import (
	"fmt"
	"time"

	"github.com/waari-travel/waari-erp/internal/rbac"
	"github.com/waari-travel/waari-erp/internal/shared"
)

// ErrRoleInUse is returned when deleting a role that users still hold.
var ErrRoleInUse = fmt.Errorf("%w: role is assigned to users", shared.ErrConflict)

// Role represents a tenant-scoped bundle of permission grants.
type Role struct {
	ID         int64     `json:"roleId"`
	Name       string    `json:"roleName"`
	Active     bool      `json:"isActive"`
	ClientCode string    `json:"clientcode"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// RoleDetail is a role with its grants grouped by category.
type RoleDetail struct {
	Role
	Permissions []rbac.GrantGroup `json:"permissions"`
}

// Option is a dropdown entry.
type Option struct {
	ID   int64  `json:"roleId"`
	Name string `json:"roleName"`
}

// PermissionInput grants the listed actions of one category.
type PermissionInput struct {
	CategoryID int64   `json:"catId" validate:"gt=0"`
	ListIDs    []int64 `json:"listIds" validate:"min=1,dive,gt=0"`
}

// CreateRoleInput is the payload for creating a role.
type CreateRoleInput struct {
	Name        string            `json:"roleName" validate:"required,max=120"`
	ClientCode  string            `json:"clientcode" validate:"omitempty,max=64"`
	Active      *bool             `json:"isActive"`
	Permissions []PermissionInput `json:"permissions" validate:"dive"`
}

// UpdateRoleInput is the payload for updating a role. Permissions replace the
// existing grant set entirely.
type UpdateRoleInput struct {
	Name        string            `json:"roleName" validate:"required,max=120"`
	Active      *bool             `json:"isActive"`
	Permissions []PermissionInput `json:"permissions" validate:"dive"`
}

// ListFilters narrows a role listing.
type ListFilters struct {
	ClientCode string
	Name       string
	Page       int
	PageSize   int
}

// ListResult is one page of roles.
type ListResult struct {
	Data       []Role            `json:"data"`
	Pagination shared.Pagination `json:"pagination"`
}
