package users_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waari-travel/waari-erp/internal/platform/httpx"
	"github.com/waari-travel/waari-erp/internal/rbac"
	"github.com/waari-travel/waari-erp/internal/shared"
	"github.com/waari-travel/waari-erp/internal/users"
)

func newUsersRouter(t *testing.T) http.Handler {
	t.Helper()
	svc, _, creds := newService(t)
	creds.AddAccount(rbac.Account{UserID: 1, RoleID: 500, ClientCode: "WAARI", Token: "admin", Active: true})
	creds.Grant(500, shared.CategoryUserManagement,
		shared.PermUsersAdd, shared.PermUsersView, shared.PermUsersEdit, shared.PermUsersDelete)
	creds.AddAccount(rbac.Account{UserID: 2, RoleID: 501, ClientCode: "WAARI", Token: "viewer", Active: true})
	creds.Grant(501, shared.CategoryUserManagement, shared.PermUsersView)

	checker := rbac.NewChecker(rbac.StoredTokenResolver{Store: creds}, creds)
	h := users.NewHandler(nil, svc, rbac.Middleware{Checker: checker})
	r := chi.NewRouter()
	r.Route("/users", h.MountRoutes)
	return r
}

func call(router http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("token", token)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

const createBody = `{"firstName":"Asha","email":"asha@waari.test","password":"s3cret-pass","roleId":7}`

func TestCreateUserEndpoint(t *testing.T) {
	router := newUsersRouter(t)

	rr := call(router, http.MethodPost, "/users", "admin", createBody)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.NotContains(t, rr.Body.String(), "password")

	rr = call(router, http.MethodPost, "/users", "admin", createBody)
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestCreateUserValidationErrors(t *testing.T) {
	router := newUsersRouter(t)

	rr := call(router, http.MethodPost, "/users", "admin", `{"email":"bad","password":"x"}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	var body httpx.ErrorBody
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.Contains(t, body.Errors, "firstName")
	assert.Contains(t, body.Errors, "email")
	assert.Contains(t, body.Errors, "password")
	assert.Contains(t, body.Errors, "roleId")
}

func TestViewerCannotMutate(t *testing.T) {
	router := newUsersRouter(t)
	require.Equal(t, http.StatusCreated, call(router, http.MethodPost, "/users", "admin", createBody).Code)

	assert.Equal(t, http.StatusOK, call(router, http.MethodGet, "/users", "viewer", "").Code)
	assert.Equal(t, http.StatusOK, call(router, http.MethodGet, "/users/100", "viewer", "").Code)
	assert.Equal(t, http.StatusForbidden, call(router, http.MethodPost, "/users", "viewer", createBody).Code)
	assert.Equal(t, http.StatusForbidden, call(router, http.MethodPut, "/users/100", "viewer", `{}`).Code)
	assert.Equal(t, http.StatusForbidden, call(router, http.MethodPatch, "/users/100/status", "viewer", `{"isActive":false}`).Code)
	assert.Equal(t, http.StatusForbidden, call(router, http.MethodDelete, "/users/100", "viewer", "").Code)
}

func TestStatusRequiresFlag(t *testing.T) {
	router := newUsersRouter(t)
	require.Equal(t, http.StatusCreated, call(router, http.MethodPost, "/users", "admin", createBody).Code)

	assert.Equal(t, http.StatusBadRequest, call(router, http.MethodPatch, "/users/100/status", "admin", `{}`).Code)

	rr := call(router, http.MethodPatch, "/users/100/status", "admin", `{"isActive":false}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"isActive":false`)
}

func TestDeleteUserEndpoint(t *testing.T) {
	router := newUsersRouter(t)
	require.Equal(t, http.StatusCreated, call(router, http.MethodPost, "/users", "admin", createBody).Code)

	assert.Equal(t, http.StatusOK, call(router, http.MethodDelete, "/users/100", "admin", "").Code)
	assert.Equal(t, http.StatusNotFound, call(router, http.MethodGet, "/users/100", "admin", "").Code)
}
