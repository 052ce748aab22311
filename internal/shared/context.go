package shared

import "context"

type principalContextKey struct{}

// Principal describes the authenticated operator behind a request.
type Principal struct {
	UserID     int64
	RoleID     int64
	ClientCode string
	Email      string
}

// ContextWithPrincipal stores the principal in context.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the principal from context.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(Principal)
	return p, ok
}
