package rbac

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/waari-travel/waari-erp/internal/platform/httpx"
	"github.com/waari-travel/waari-erp/internal/shared"
)

// DefaultTokenHeader carries the bearer token on every gated request.
const DefaultTokenHeader = "token"

const (
	msgTokenRequired = "Token is required"
	msgInvalidToken  = "Invalid Token"
	msgNoPermission  = "You do not have access permission for this"
)

// DecisionObserver receives the outcome of every gated request.
type DecisionObserver interface {
	ObserveDecision(decision string)
}

// Middleware wires RBAC authorization helpers for HTTP handlers.
type Middleware struct {
	Checker  *Checker
	Logger   *slog.Logger
	Header   string
	Observer DecisionObserver
}

// Authenticated only requires a valid token.
func (m Middleware) Authenticated() func(http.Handler) http.Handler {
	return m.guard(nil)
}

// RequireAny ensures the caller's role grants at least one of perms. On
// success the principal is attached to the request context. It panics at
// route registration when perms is empty or holds a non-positive id; use
// Authenticated for token-only routes.
func (m Middleware) RequireAny(perms ...int64) func(http.Handler) http.Handler {
	return m.guard(normalizePermissions(perms))
}

func (m Middleware) guard(required []int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := TokenFromRequest(r, m.Header)
			principal, err := m.Checker.Check(r.Context(), raw, required...)
			decision := DecisionOf(err)
			if m.Observer != nil {
				m.Observer.ObserveDecision(string(decision))
			}
			switch decision {
			case DecisionAuthorized:
				next.ServeHTTP(w, r.WithContext(shared.ContextWithPrincipal(r.Context(), principal)))
			case DecisionUnauthenticated:
				if raw == "" {
					httpx.Fail(w, http.StatusUnauthorized, msgTokenRequired)
					return
				}
				httpx.Fail(w, http.StatusUnauthorized, msgInvalidToken)
			case DecisionForbidden:
				if m.Logger != nil {
					m.Logger.Info("rbac denied",
						slog.String("path", r.URL.Path),
						slog.Any("required", required))
				}
				httpx.Fail(w, http.StatusForbidden, msgNoPermission)
			default:
				if m.Logger != nil {
					m.Logger.Error("rbac check", slog.Any("error", err), slog.String("path", r.URL.Path))
				}
				httpx.Fail(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
			}
		})
	}
}

// TokenFromRequest reads the token header, falling back to an
// "Authorization: Bearer" header.
func TokenFromRequest(r *http.Request, header string) string {
	if header == "" {
		header = DefaultTokenHeader
	}
	if raw := strings.TrimSpace(r.Header.Get(header)); raw != "" {
		return raw
	}
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

func normalizePermissions(perms []int64) []int64 {
	seen := make(map[int64]struct{}, len(perms))
	normalized := make([]int64, 0, len(perms))
	if len(perms) == 0 {
		panic("rbac: RequireAny needs at least one permission")
	}
	for _, p := range perms {
		if p <= 0 {
			panic(fmt.Sprintf("rbac: invalid permission id %d", p))
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		normalized = append(normalized, p)
	}
	return normalized
}
