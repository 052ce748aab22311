package rbac

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/waari-travel/waari-erp/internal/shared"
)

// GrantStore reads the grant rows of a role.
type GrantStore interface {
	ListRoleGrants(ctx context.Context, roleID int64) ([]Grant, error)
}

// Decision labels the outcome of an access check.
type Decision string

const (
	DecisionAuthorized      Decision = "authorized"
	DecisionUnauthenticated Decision = "unauthenticated"
	DecisionForbidden       Decision = "forbidden"
	DecisionError           Decision = "error"
)

// DecisionOf classifies the error returned by Checker.Check.
func DecisionOf(err error) Decision {
	switch {
	case err == nil:
		return DecisionAuthorized
	case errors.Is(err, shared.ErrUnauthenticated):
		return DecisionUnauthenticated
	case errors.Is(err, shared.ErrForbidden):
		return DecisionForbidden
	default:
		return DecisionError
	}
}

// Checker resolves a bearer token to a principal and verifies that the
// principal's role grants at least one of the required permissions.
// Nothing is cached: every call reads the user and the grants again.
type Checker struct {
	resolver TokenResolver
	grants   GrantStore
}

// NewChecker constructs a Checker.
func NewChecker(resolver TokenResolver, grants GrantStore) *Checker {
	return &Checker{resolver: resolver, grants: grants}
}

// Check returns the principal when access is allowed. An empty required set
// only authenticates. Errors are shared.ErrUnauthenticated,
// shared.ErrForbidden, or a wrapped store failure.
func (c *Checker) Check(ctx context.Context, raw string, required ...int64) (shared.Principal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return shared.Principal{}, shared.ErrUnauthenticated
	}

	acct, err := c.resolver.Resolve(ctx, raw)
	if err != nil {
		return shared.Principal{}, err
	}
	if !acct.Active {
		return shared.Principal{}, shared.ErrUnauthenticated
	}
	principal := shared.Principal{
		UserID:     acct.UserID,
		RoleID:     acct.RoleID,
		ClientCode: acct.ClientCode,
		Email:      acct.Email,
	}
	if len(required) == 0 {
		return principal, nil
	}

	grants, err := c.grants.ListRoleGrants(ctx, acct.RoleID)
	if err != nil {
		return shared.Principal{}, fmt.Errorf("rbac: load grants for role %d: %w", acct.RoleID, err)
	}
	if !intersects(grants, required) {
		return shared.Principal{}, shared.ErrForbidden
	}
	return principal, nil
}

func intersects(grants []Grant, required []int64) bool {
	granted := make(map[int64]struct{}, len(grants))
	for _, g := range grants {
		granted[g.ListID] = struct{}{}
	}
	for _, id := range required {
		if _, ok := granted[id]; ok {
			return true
		}
	}
	return false
}
