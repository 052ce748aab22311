// Package rbactest provides an in-memory credential and grant store for
// tests of packages that sit on top of the access checker.
package rbactest

import (
	"context"
	"sort"
	"sync"

	"github.com/waari-travel/waari-erp/internal/rbac"
	"github.com/waari-travel/waari-erp/internal/shared"
)

// Store is a concurrency-safe in-memory implementation of
// rbac.CredentialStore and rbac.CatalogStore.
type Store struct {
	mu         sync.Mutex
	accounts   []rbac.Account
	grants     map[int64][]rbac.Grant
	categories []rbac.Category
	lists      []rbac.ListItem

	// Err, when set, is returned by every read.
	Err error
	// Reads counts store reads, letting tests assert nothing is cached.
	Reads int
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{grants: make(map[int64][]rbac.Grant)}
}

// AddAccount appends an account. Duplicate tokens are allowed.
func (s *Store) AddAccount(a rbac.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts = append(s.accounts, a)
}

// SetToken updates the stored token of a user.
func (s *Store) SetToken(userID int64, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.accounts {
		if s.accounts[i].UserID == userID {
			s.accounts[i].Token = token
		}
	}
}

// SetActive toggles a user's active flag.
func (s *Store) SetActive(userID int64, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.accounts {
		if s.accounts[i].UserID == userID {
			s.accounts[i].Active = active
		}
	}
}

// Grant adds list ids under a category to a role.
func (s *Store) Grant(roleID, catID int64, listIDs ...int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range listIDs {
		s.grants[roleID] = append(s.grants[roleID], rbac.Grant{RoleID: roleID, CategoryID: catID, ListID: id})
	}
}

// AddCategory registers a category with its lists.
func (s *Store) AddCategory(c rbac.Category, lists ...rbac.ListItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories = append(s.categories, c)
	for _, l := range lists {
		l.CategoryID = c.ID
		l.CategoryName = c.Name
		s.lists = append(s.lists, l)
	}
}

// ReplaceRoleGrants swaps the role's grant set.
func (s *Store) ReplaceRoleGrants(_ context.Context, roleID int64, grants []rbac.Grant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grants[roleID] = append([]rbac.Grant(nil), grants...)
	return nil
}

// DeleteRoleGrants drops the role's grants.
func (s *Store) DeleteRoleGrants(_ context.Context, roleID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.grants, roleID)
	return nil
}

// FindActiveByToken implements rbac.CredentialStore. Lowest user id wins.
func (s *Store) FindActiveByToken(_ context.Context, token string) (rbac.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Reads++
	if s.Err != nil {
		return rbac.Account{}, s.Err
	}
	var match *rbac.Account
	for i := range s.accounts {
		a := &s.accounts[i]
		if a.Token != token || !a.Active || token == "" {
			continue
		}
		if match == nil || a.UserID < match.UserID {
			match = a
		}
	}
	if match == nil {
		return rbac.Account{}, shared.ErrNotFound
	}
	return *match, nil
}

// FindActiveByID implements rbac.CredentialStore.
func (s *Store) FindActiveByID(_ context.Context, userID int64) (rbac.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Reads++
	if s.Err != nil {
		return rbac.Account{}, s.Err
	}
	for _, a := range s.accounts {
		if a.UserID == userID && a.Active {
			return a, nil
		}
	}
	return rbac.Account{}, shared.ErrNotFound
}

// ListRoleGrants implements rbac.GrantStore.
func (s *Store) ListRoleGrants(_ context.Context, roleID int64) ([]rbac.Grant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Reads++
	if s.Err != nil {
		return nil, s.Err
	}
	return append([]rbac.Grant(nil), s.grants[roleID]...), nil
}

// ListCategories implements rbac.CatalogStore.
func (s *Store) ListCategories(context.Context) ([]rbac.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	cats := append([]rbac.Category(nil), s.categories...)
	sort.Slice(cats, func(i, j int) bool { return cats[i].Name < cats[j].Name })
	return cats, nil
}

// ListListsByCategory implements rbac.CatalogStore.
func (s *Store) ListListsByCategory(_ context.Context, catID int64) ([]rbac.ListItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	var out []rbac.ListItem
	for _, l := range s.lists {
		if l.CategoryID == catID {
			out = append(out, l)
		}
	}
	return out, nil
}

// ListAllLists implements rbac.CatalogStore.
func (s *Store) ListAllLists(context.Context) ([]rbac.ListItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	return append([]rbac.ListItem(nil), s.lists...), nil
}

var (
	_ rbac.CredentialStore = (*Store)(nil)
	_ rbac.CatalogStore    = (*Store)(nil)
)
