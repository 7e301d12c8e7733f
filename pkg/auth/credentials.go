// Package auth verifies login credentials against the fixed account set.
package auth

import (
	"crypto/subtle"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// GuestUser is the identity granted without credentials. It is never a key
// in the credential map.
const GuestUser = "guest"

// Credentials is the fixed username -> secret map, built once from config.
// Secrets may be bcrypt hashes (recommended) or plaintext; plaintext is
// compared in constant time rather than with naive equality.
type Credentials struct {
	users map[string]string
}

// NewCredentials copies the configured account map.
func NewCredentials(users map[string]string) *Credentials {
	copied := make(map[string]string, len(users))
	for name, secret := range users {
		copied[strings.ToLower(name)] = secret
	}
	return &Credentials{users: copied}
}

// Known reports whether username is a configured account.
func (c *Credentials) Known(username string) bool {
	_, ok := c.users[username]
	return ok
}

// Verify checks password for username. The username must already be
// normalized to lowercase. Unknown users always fail.
func (c *Credentials) Verify(username, password string) bool {
	secret, ok := c.users[username]
	if !ok || password == "" {
		return false
	}

	if isBcryptHash(secret) {
		return bcrypt.CompareHashAndPassword([]byte(secret), []byte(password)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(secret), []byte(password)) == 1
}

func isBcryptHash(secret string) bool {
	return strings.HasPrefix(secret, "$2a$") ||
		strings.HasPrefix(secret, "$2b$") ||
		strings.HasPrefix(secret, "$2y$")
}
