package rbac_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waari-travel/waari-erp/internal/rbac"
	"github.com/waari-travel/waari-erp/internal/rbac/rbactest"
)

func newCatalogRouter(t *testing.T) (http.Handler, *rbactest.Store) {
	t.Helper()
	store := rbactest.NewStore()
	store.AddAccount(rbac.Account{UserID: 1, RoleID: 7, Token: "admin", Active: true})
	store.AddCategory(rbac.Category{ID: 12, Name: "Role Management"},
		rbac.ListItem{ID: 124, Name: "Add Role"},
		rbac.ListItem{ID: 125, Name: "View Roles"})
	store.AddCategory(rbac.Category{ID: 13, Name: "User Management"},
		rbac.ListItem{ID: 128, Name: "View Users"})
	store.Grant(7, 12, 124, 125)
	store.Grant(7, 13, 128)

	checker := rbac.NewChecker(rbac.StoredTokenResolver{Store: store}, store)
	h := rbac.NewHandler(nil, rbac.NewCatalogService(store), rbac.Middleware{Checker: checker})
	r := chi.NewRouter()
	r.Route("/rbac", h.MountRoutes)
	return r, store
}

func TestCatalogRoutesRequireToken(t *testing.T) {
	router, _ := newCatalogRouter(t)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/rbac/categories", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestCatalogListsByCategory(t *testing.T) {
	router, _ := newCatalogRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/rbac/categories/12/lists", nil)
	req.Header.Set("token", "admin")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Data []rbac.ListItem `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	require.Len(t, body.Data, 2)
	assert.Equal(t, "Role Management", body.Data[0].CategoryName)
}

func TestCatalogRejectsBadCategoryID(t *testing.T) {
	router, _ := newCatalogRouter(t)

	for _, path := range []string{"/rbac/categories/abc/lists", "/rbac/categories/0/lists"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("token", "admin")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code, path)
	}
}

func TestMyPermissionsGroupsByCategory(t *testing.T) {
	router, _ := newCatalogRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/rbac/me/permissions", nil)
	req.Header.Set("token", "admin")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Permissions []rbac.GrantGroup `json:"permissions"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.Equal(t, []rbac.GrantGroup{
		{CategoryID: 12, ListIDs: []int64{124, 125}},
		{CategoryID: 13, ListIDs: []int64{128}},
	}, body.Permissions)
}
