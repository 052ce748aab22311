package auth_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waari-travel/waari-erp/internal/auth"
	"github.com/waari-travel/waari-erp/internal/platform/httpx"
	"github.com/waari-travel/waari-erp/internal/rbac"
	"github.com/waari-travel/waari-erp/internal/rbac/rbactest"
)

func newAuthRouter(t *testing.T, limit int) (http.Handler, fixture) {
	t.Helper()
	f := newFixture(t, auth.OpaqueIssuer{})
	creds := rbactest.NewStore()
	creds.AddAccount(rbac.Account{UserID: 7, RoleID: 3, Token: "live", Active: true})
	checker := rbac.NewChecker(rbac.StoredTokenResolver{Store: creds}, creds)

	h := auth.NewHandler(nil, f.svc, rbac.Middleware{Checker: checker}, limit)
	r := chi.NewRouter()
	r.Route("/auth", h.MountRoutes)
	return r, f
}

func post(router http.Handler, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("token", token)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestLoginEndpoint(t *testing.T) {
	router, f := newAuthRouter(t, 100)

	rr := post(router, "/auth/login", `{"email":"asha@waari.test","password":"correct-horse"}`, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var result auth.LoginResult
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&result))
	assert.Equal(t, f.repo.token(7), result.Token)
	assert.Equal(t, int64(3), result.RoleID)
}

func TestLoginEndpointFailures(t *testing.T) {
	router, _ := newAuthRouter(t, 100)

	rr := post(router, "/auth/login", `{"email":"asha@waari.test","password":"nope"}`, "")
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	var body httpx.ErrorBody
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.Equal(t, "Invalid email or password", body.Message)

	rr = post(router, "/auth/login", `{"email":"off@waari.test","password":"correct-horse"}`, "")
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = post(router, "/auth/login", `{"email":"not-an-email"}`, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestLoginRateLimited(t *testing.T) {
	router, _ := newAuthRouter(t, 2)

	for i := 0; i < 2; i++ {
		rr := post(router, "/auth/login", `{"email":"asha@waari.test","password":"nope"}`, "")
		require.Equal(t, http.StatusUnauthorized, rr.Code)
	}
	rr := post(router, "/auth/login", `{"email":"asha@waari.test","password":"nope"}`, "")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
}

func TestLogoutRequiresToken(t *testing.T) {
	router, f := newAuthRouter(t, 100)

	assert.Equal(t, http.StatusUnauthorized, post(router, "/auth/logout", "", "").Code)

	f.repo.tokens[7] = "live"
	rr := post(router, "/auth/logout", "", "live")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, f.repo.token(7))
}

func TestOTPFlowOverHTTP(t *testing.T) {
	router, f := newAuthRouter(t, 100)

	rr := post(router, "/auth/forget-password", `{"email":"ghost@waari.test"}`, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = post(router, "/auth/forget-password", `{"email":"asha@waari.test"}`, "")
	require.Equal(t, http.StatusOK, rr.Code)
	code := f.mailer.code("asha@waari.test")

	rr = post(router, "/auth/verify-otp", `{"email":"asha@waari.test","otp":"abc"}`, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = post(router, "/auth/verify-otp", `{"email":"asha@waari.test","otp":"`+code+`"}`, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = post(router, "/auth/reset-password", `{"email":"asha@waari.test","otp":"`+code+`","newPassword":"battery-staple"}`, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = post(router, "/auth/verify-otp", `{"email":"asha@waari.test","otp":"`+code+`"}`, "")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
}
