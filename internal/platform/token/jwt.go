package token

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalid is returned for tokens that fail signature, expiry or claim checks.
var ErrInvalid = errors.New("token: invalid")

// Claims carried by access tokens. ID (jti) is persisted in users.token so a
// logout or a new login revokes the JWT.
type Claims struct {
	RoleID     int64  `json:"roleId"`
	ClientCode string `json:"clientcode,omitempty"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim.
func (c Claims) UserID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: subject %q", ErrInvalid, c.Subject)
	}
	return id, nil
}

// JWTCodec signs and verifies HS256 access tokens.
type JWTCodec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewJWTCodec constructs a codec. ttl <= 0 defaults to eight hours.
func NewJWTCodec(secret string, ttl time.Duration) *JWTCodec {
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}
	return &JWTCodec{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a token for the user and returns it with its jti.
func (c *JWTCodec) Issue(userID, roleID int64, clientCode string) (signed string, jti string, err error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", "", fmt.Errorf("token: new jti: %w", err)
	}
	now := c.now()
	claims := Claims{
		RoleID:     roleID,
		ClientCode: clientCode,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id.String(),
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}
	signed, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", "", fmt.Errorf("token: sign: %w", err)
	}
	return signed, claims.ID, nil
}

// Parse verifies the signature and expiry and returns the claims.
func (c *JWTCodec) Parse(raw string) (Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if claims.ID == "" {
		return Claims{}, fmt.Errorf("%w: missing jti", ErrInvalid)
	}
	return claims, nil
}
