// Package token issues and parses the bearer credentials presented in the
// token header.
package token

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

const opaqueBytes = 32

// NewOpaque returns a random URL-safe token suitable for storing in
// users.token.
func NewOpaque() (string, error) {
	buf := make([]byte, opaqueBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("token: read random: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
