package app

import (
	"log/slog"

	"github.com/waari-travel/waari-erp/internal/auth"
	"github.com/waari-travel/waari-erp/internal/rbac"
	"github.com/waari-travel/waari-erp/internal/platform/token"
)

// AccessStore backs the permission gate.
type AccessStore interface {
	rbac.CredentialStore
	rbac.GrantStore
}

// Access bundles the permission gate with the matching token issuer.
type Access struct {
	Gate   rbac.Middleware
	Issuer auth.TokenIssuer
}

// NewAccess selects the token scheme from configuration and builds the
// gate and the issuer that agree on it.
func NewAccess(cfg *Config, store AccessStore, observer rbac.DecisionObserver, logger *slog.Logger) Access {
	var (
		resolver rbac.TokenResolver
		issuer   auth.TokenIssuer
	)
	switch cfg.AuthScheme {
	case AuthSchemeJWT:
		codec := token.NewJWTCodec(cfg.JWTSecret, cfg.JWTTTL)
		resolver = rbac.JWTResolver{Store: store, Codec: codec}
		issuer = auth.JWTIssuer{Codec: codec}
	default:
		resolver = rbac.StoredTokenResolver{Store: store}
		issuer = auth.OpaqueIssuer{}
	}
	return Access{
		Gate: rbac.Middleware{
			Checker:  rbac.NewChecker(resolver, store),
			Logger:   logger,
			Header:   cfg.AuthHeader,
			Observer: observer,
		},
		Issuer: issuer,
	}
}
