package rbac

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/waari-travel/waari-erp/internal/platform/token"
	"github.com/waari-travel/waari-erp/internal/shared"
)

// CredentialStore looks up active users. Both methods return
// shared.ErrNotFound when no active user matches.
type CredentialStore interface {
	FindActiveByToken(ctx context.Context, token string) (Account, error)
	FindActiveByID(ctx context.Context, userID int64) (Account, error)
}

// TokenResolver maps a presented bearer token to an active account.
// Unknown, malformed or revoked tokens yield shared.ErrUnauthenticated.
type TokenResolver interface {
	Resolve(ctx context.Context, raw string) (Account, error)
}

// StoredTokenResolver resolves opaque tokens by direct lookup against
// users.token. When several rows carry the same token the lowest user id wins.
type StoredTokenResolver struct {
	Store CredentialStore
}

// Resolve implements TokenResolver.
func (r StoredTokenResolver) Resolve(ctx context.Context, raw string) (Account, error) {
	acct, err := r.Store.FindActiveByToken(ctx, raw)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Account{}, shared.ErrUnauthenticated
		}
		return Account{}, fmt.Errorf("rbac: resolve token: %w", err)
	}
	return acct, nil
}

// JWTResolver verifies signed tokens, then requires the user to be active and
// the token's jti to equal the stored token so logout revokes it.
type JWTResolver struct {
	Store CredentialStore
	Codec *token.JWTCodec
}

// Resolve implements TokenResolver.
func (r JWTResolver) Resolve(ctx context.Context, raw string) (Account, error) {
	claims, err := r.Codec.Parse(raw)
	if err != nil {
		return Account{}, shared.ErrUnauthenticated
	}
	userID, err := claims.UserID()
	if err != nil {
		return Account{}, shared.ErrUnauthenticated
	}
	acct, err := r.Store.FindActiveByID(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Account{}, shared.ErrUnauthenticated
		}
		return Account{}, fmt.Errorf("rbac: resolve jwt subject: %w", err)
	}
	if acct.Token == "" || subtle.ConstantTimeCompare([]byte(acct.Token), []byte(claims.ID)) != 1 {
		return Account{}, shared.ErrUnauthenticated
	}
	return acct, nil
}
