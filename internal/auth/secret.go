// Package auth verifies the static shared secret carried by inbound
// deployment requests.
package auth

import (
	"crypto/subtle"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Verifier checks request secrets against the configured allow-list.
type Verifier struct {
	allowed []string
}

// NewVerifier creates a secret verifier. Entries prefixed with "$2" are
// treated as bcrypt hashes; all other entries are compared verbatim in
// constant time.
func NewVerifier(allowed []string) *Verifier {
	return &Verifier{allowed: allowed}
}

// Verify reports whether the provided secret matches any allowed entry.
func (v *Verifier) Verify(secret string) bool {
	if secret == "" {
		return false
	}
	for _, entry := range v.allowed {
		if strings.HasPrefix(entry, "$2") {
			if bcrypt.CompareHashAndPassword([]byte(entry), []byte(secret)) == nil {
				return true
			}
			continue
		}
		if subtle.ConstantTimeCompare([]byte(entry), []byte(secret)) == 1 {
			return true
		}
	}
	return false
}
