package rbac_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waari-travel/waari-erp/internal/rbac"
	"github.com/waari-travel/waari-erp/internal/rbac/rbactest"
	"github.com/waari-travel/waari-erp/internal/shared"
)

const (
	roleR  int64 = 3
	userU  int64 = 11
	tokenU       = "tok-u"
)

func newCheckerFixture(t *testing.T) (*rbac.Checker, *rbactest.Store) {
	t.Helper()
	store := rbactest.NewStore()
	store.AddAccount(rbac.Account{UserID: userU, RoleID: roleR, ClientCode: "WAARI", Email: "u@waari.test", Token: tokenU, Active: true})
	store.Grant(roleR, 12, 124, 125)
	return rbac.NewChecker(rbac.StoredTokenResolver{Store: store}, store), store
}

func TestCheckAuthorizedWhenGrantsIntersect(t *testing.T) {
	checker, _ := newCheckerFixture(t)

	principal, err := checker.Check(context.Background(), tokenU, 124)
	require.NoError(t, err)
	assert.Equal(t, userU, principal.UserID)
	assert.Equal(t, roleR, principal.RoleID)
	assert.Equal(t, "WAARI", principal.ClientCode)
}

func TestCheckAnyOfRequiredSuffices(t *testing.T) {
	checker, _ := newCheckerFixture(t)

	_, err := checker.Check(context.Background(), tokenU, 999, 125)
	assert.NoError(t, err)
}

func TestCheckForbiddenWhenGrantsDisjoint(t *testing.T) {
	checker, _ := newCheckerFixture(t)

	_, err := checker.Check(context.Background(), tokenU, 999)
	assert.ErrorIs(t, err, shared.ErrForbidden)
	assert.Equal(t, rbac.DecisionForbidden, rbac.DecisionOf(err))
}

func TestCheckEmptyTokenIsUnauthenticated(t *testing.T) {
	checker, store := newCheckerFixture(t)

	for _, raw := range []string{"", "   "} {
		_, err := checker.Check(context.Background(), raw, 124)
		assert.ErrorIs(t, err, shared.ErrUnauthenticated)
	}
	assert.Zero(t, store.Reads, "empty token must be rejected before any lookup")
}

func TestCheckUnknownTokenIsUnauthenticated(t *testing.T) {
	checker, _ := newCheckerFixture(t)

	_, err := checker.Check(context.Background(), "nope", 124)
	assert.ErrorIs(t, err, shared.ErrUnauthenticated)
}

func TestCheckInactiveUserIsUnauthenticated(t *testing.T) {
	checker, store := newCheckerFixture(t)
	store.SetActive(userU, false)

	_, err := checker.Check(context.Background(), tokenU, 124)
	assert.ErrorIs(t, err, shared.ErrUnauthenticated)

	_, err = checker.Check(context.Background(), tokenU)
	assert.ErrorIs(t, err, shared.ErrUnauthenticated)
}

func TestCheckEmptyRequiredOnlyAuthenticates(t *testing.T) {
	store := rbactest.NewStore()
	store.AddAccount(rbac.Account{UserID: 1, RoleID: 50, Token: "t", Active: true})
	checker := rbac.NewChecker(rbac.StoredTokenResolver{Store: store}, store)

	principal, err := checker.Check(context.Background(), "t")
	require.NoError(t, err)
	assert.Equal(t, int64(50), principal.RoleID)
	assert.Equal(t, 1, store.Reads, "grants are not read for authentication-only checks")
}

func TestCheckIsIdempotentAndUncached(t *testing.T) {
	checker, store := newCheckerFixture(t)

	first, err := checker.Check(context.Background(), tokenU, 124)
	require.NoError(t, err)
	second, err := checker.Check(context.Background(), tokenU, 124)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 4, store.Reads, "each check reads user and grants again")
}

func TestCheckSeesGrantReplacement(t *testing.T) {
	store := rbactest.NewStore()
	store.AddAccount(rbac.Account{UserID: userU, RoleID: roleR, Token: tokenU, Active: true})
	store.Grant(roleR, 12, 124)
	checker := rbac.NewChecker(rbac.StoredTokenResolver{Store: store}, store)

	_, err := checker.Check(context.Background(), tokenU, 124)
	require.NoError(t, err)

	require.NoError(t, store.ReplaceRoleGrants(context.Background(), roleR, []rbac.Grant{{RoleID: roleR, CategoryID: 99, ListID: 999}}))

	_, err = checker.Check(context.Background(), tokenU, 124)
	assert.ErrorIs(t, err, shared.ErrForbidden)
}

func TestCheckDuplicateTokenFirstMatchWins(t *testing.T) {
	store := rbactest.NewStore()
	store.AddAccount(rbac.Account{UserID: 20, RoleID: 2, Token: "dup", Active: true})
	store.AddAccount(rbac.Account{UserID: 10, RoleID: 1, Token: "dup", Active: true})
	checker := rbac.NewChecker(rbac.StoredTokenResolver{Store: store}, store)

	principal, err := checker.Check(context.Background(), "dup")
	require.NoError(t, err)
	assert.Equal(t, int64(10), principal.UserID)
}

func TestCheckStoreFailureIsInternal(t *testing.T) {
	checker, store := newCheckerFixture(t)
	boom := errors.New("connection refused")
	store.Err = boom

	_, err := checker.Check(context.Background(), tokenU, 124)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, rbac.DecisionError, rbac.DecisionOf(err))
}
