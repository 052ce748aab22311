package auth

import (
	"github.com/waari-travel/waari-erp/internal/platform/token"
)

// TokenIssuer mints the credential handed to a client at login. Presented is
// what the client sends back; stored is what lands in users.token.
type TokenIssuer interface {
	Issue(c Credential) (presented, stored string, err error)
}

// OpaqueIssuer issues random tokens that are stored verbatim.
type OpaqueIssuer struct{}

// Issue implements TokenIssuer.
func (OpaqueIssuer) Issue(Credential) (string, string, error) {
	t, err := token.NewOpaque()
	return t, t, err
}

// JWTIssuer issues signed tokens and stores their jti.
type JWTIssuer struct {
	Codec *token.JWTCodec
}

// Issue implements TokenIssuer.
func (i JWTIssuer) Issue(c Credential) (string, string, error) {
	return i.Codec.Issue(c.UserID, c.RoleID, c.ClientCode)
}
