package roles

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/waari-travel/waari-erp/internal/rbac"
	"github.com/waari-travel/waari-erp/internal/shared"
)

// Store defines data access methods for roles. Mutations that touch grants
// must be atomic. By-id methods are scoped to clientCode (role.ClientCode for
// updates) when it is non-empty and report shared.ErrNotFound otherwise.
type Store interface {
	CreateWithGrants(ctx context.Context, role Role, grants []rbac.Grant) (Role, error)
	UpdateWithGrants(ctx context.Context, role Role, grants []rbac.Grant) (Role, error)
	DeleteWithGrants(ctx context.Context, roleID int64, clientCode string) error
	Get(ctx context.Context, roleID int64, clientCode string) (Role, error)
	ListGrants(ctx context.Context, roleID int64) ([]rbac.Grant, error)
	List(ctx context.Context, filters ListFilters, limit, offset int) ([]Role, int, error)
	Dropdown(ctx context.Context, clientCode string) ([]Option, error)
}

// Service handles role business logic.
type Service struct {
	store  Store
	audit  shared.AuditRecorder
	logger *slog.Logger
}

// NewService builds Service instance.
func NewService(store Store, audit shared.AuditRecorder, logger *slog.Logger) *Service {
	if audit == nil {
		audit = shared.NopAuditRecorder{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, audit: audit, logger: logger}
}

// Create inserts a role in the caller's tenant together with its grants.
func (s *Service) Create(ctx context.Context, actor shared.Principal, in CreateRoleInput) (RoleDetail, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return RoleDetail{}, fmt.Errorf("roles: name: %w", shared.ErrValidation)
	}
	clientCode := strings.TrimSpace(in.ClientCode)
	switch {
	case clientCode == "":
		clientCode = actor.ClientCode
	case actor.ClientCode != "" && clientCode != actor.ClientCode:
		return RoleDetail{}, fmt.Errorf("roles: create in tenant %s: %w", clientCode, shared.ErrForbidden)
	}
	groups, err := toGroups(in.Permissions)
	if err != nil {
		return RoleDetail{}, err
	}
	active := true
	if in.Active != nil {
		active = *in.Active
	}

	grants := rbac.FlattenGroups(0, groups)
	role, err := s.store.CreateWithGrants(ctx, Role{Name: name, Active: active, ClientCode: clientCode}, grants)
	if err != nil {
		return RoleDetail{}, fmt.Errorf("roles: create: %w", err)
	}
	s.record(ctx, actor, "role.created", role.ID, map[string]any{"roleName": role.Name, "grants": len(grants)})
	return RoleDetail{Role: role, Permissions: rbac.GroupGrants(withRole(role.ID, grants))}, nil
}

// Update rewrites the role row and replaces its grant set.
func (s *Service) Update(ctx context.Context, actor shared.Principal, roleID int64, in UpdateRoleInput) (RoleDetail, error) {
	if roleID <= 0 {
		return RoleDetail{}, fmt.Errorf("roles: id: %w", shared.ErrValidation)
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return RoleDetail{}, fmt.Errorf("roles: name: %w", shared.ErrValidation)
	}
	groups, err := toGroups(in.Permissions)
	if err != nil {
		return RoleDetail{}, err
	}
	current, err := s.store.Get(ctx, roleID, actor.ClientCode)
	if err != nil {
		return RoleDetail{}, fmt.Errorf("roles: load %d: %w", roleID, err)
	}
	current.Name = name
	if in.Active != nil {
		current.Active = *in.Active
	}

	grants := rbac.FlattenGroups(roleID, groups)
	role, err := s.store.UpdateWithGrants(ctx, current, grants)
	if err != nil {
		return RoleDetail{}, fmt.Errorf("roles: update %d: %w", roleID, err)
	}
	s.record(ctx, actor, "role.updated", role.ID, map[string]any{"roleName": role.Name, "grants": len(grants)})
	return RoleDetail{Role: role, Permissions: rbac.GroupGrants(grants)}, nil
}

// Get returns a role of the caller's tenant with its grouped grants.
func (s *Service) Get(ctx context.Context, actor shared.Principal, roleID int64) (RoleDetail, error) {
	if roleID <= 0 {
		return RoleDetail{}, fmt.Errorf("roles: id: %w", shared.ErrValidation)
	}
	role, err := s.store.Get(ctx, roleID, actor.ClientCode)
	if err != nil {
		return RoleDetail{}, fmt.Errorf("roles: get %d: %w", roleID, err)
	}
	grants, err := s.store.ListGrants(ctx, roleID)
	if err != nil {
		return RoleDetail{}, fmt.Errorf("roles: grants %d: %w", roleID, err)
	}
	return RoleDetail{Role: role, Permissions: rbac.GroupGrants(grants)}, nil
}

// List returns one page of the tenant's roles, newest first.
func (s *Service) List(ctx context.Context, filters ListFilters) (ListResult, error) {
	filters.Name = strings.TrimSpace(filters.Name)
	page := shared.NewPagination(filters.Page, filters.PageSize, 0)
	items, total, err := s.store.List(ctx, filters, page.PerPage, page.Offset())
	if err != nil {
		return ListResult{}, fmt.Errorf("roles: list: %w", err)
	}
	if items == nil {
		items = []Role{}
	}
	return ListResult{Data: items, Pagination: shared.NewPagination(page.Page, page.PerPage, total)}, nil
}

// Dropdown returns the tenant's active roles ordered by name.
func (s *Service) Dropdown(ctx context.Context, clientCode string) ([]Option, error) {
	opts, err := s.store.Dropdown(ctx, clientCode)
	if err != nil {
		return nil, fmt.Errorf("roles: dropdown: %w", err)
	}
	if opts == nil {
		opts = []Option{}
	}
	return opts, nil
}

// Delete removes the role and all of its grants.
func (s *Service) Delete(ctx context.Context, actor shared.Principal, roleID int64) error {
	if roleID <= 0 {
		return fmt.Errorf("roles: id: %w", shared.ErrValidation)
	}
	if err := s.store.DeleteWithGrants(ctx, roleID, actor.ClientCode); err != nil {
		return fmt.Errorf("roles: delete %d: %w", roleID, err)
	}
	s.record(ctx, actor, "role.deleted", roleID, nil)
	return nil
}

func (s *Service) record(ctx context.Context, actor shared.Principal, action string, roleID int64, meta map[string]any) {
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor.UserID,
		Action:   action,
		Entity:   "role",
		EntityID: strconv.FormatInt(roleID, 10),
		Meta:     meta,
	})
	if err != nil {
		s.logger.Warn("audit record", slog.String("action", action), slog.Any("error", err))
	}
}

// toGroups rejects groups without a category or without lists.
func toGroups(in []PermissionInput) ([]rbac.GrantGroup, error) {
	groups := make([]rbac.GrantGroup, 0, len(in))
	for i, p := range in {
		if p.CategoryID <= 0 || len(p.ListIDs) == 0 {
			return nil, fmt.Errorf("roles: permissions[%d] needs catId and listIds: %w", i, shared.ErrValidation)
		}
		for _, id := range p.ListIDs {
			if id <= 0 {
				return nil, fmt.Errorf("roles: permissions[%d] list id %d: %w", i, id, shared.ErrValidation)
			}
		}
		groups = append(groups, rbac.GrantGroup{CategoryID: p.CategoryID, ListIDs: p.ListIDs})
	}
	return groups, nil
}

func withRole(roleID int64, grants []rbac.Grant) []rbac.Grant {
	out := make([]rbac.Grant, len(grants))
	for i, g := range grants {
		g.RoleID = roleID
		out[i] = g
	}
	return out
}
