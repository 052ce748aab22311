package rbac

import (
	"context"
	"fmt"

	"github.com/waari-travel/waari-erp/internal/shared"
)

// CatalogStore reads the permission catalog.
type CatalogStore interface {
	GrantStore
	ListCategories(ctx context.Context) ([]Category, error)
	ListListsByCategory(ctx context.Context, catID int64) ([]ListItem, error)
	ListAllLists(ctx context.Context) ([]ListItem, error)
}

// CatalogService exposes the permission catalog to the admin UI.
type CatalogService struct {
	store CatalogStore
}

// NewCatalogService constructs a CatalogService.
func NewCatalogService(store CatalogStore) *CatalogService {
	return &CatalogService{store: store}
}

// Categories returns all categories.
func (s *CatalogService) Categories(ctx context.Context) ([]Category, error) {
	return s.store.ListCategories(ctx)
}

// ListsByCategory returns the lists under one category.
func (s *CatalogService) ListsByCategory(ctx context.Context, catID int64) ([]ListItem, error) {
	if catID <= 0 {
		return nil, fmt.Errorf("rbac: category id: %w", shared.ErrValidation)
	}
	return s.store.ListListsByCategory(ctx, catID)
}

// AllLists returns every list with its category name.
func (s *CatalogService) AllLists(ctx context.Context) ([]ListItem, error) {
	return s.store.ListAllLists(ctx)
}

// GroupedPermissions returns the role's grants grouped by category.
func (s *CatalogService) GroupedPermissions(ctx context.Context, roleID int64) ([]GrantGroup, error) {
	grants, err := s.store.ListRoleGrants(ctx, roleID)
	if err != nil {
		return nil, err
	}
	return GroupGrants(grants), nil
}
