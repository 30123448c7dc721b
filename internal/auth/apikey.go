// SPDX-License-Identifier: MIT

package auth

import (
	"crypto/subtle"
	"strings"
)

// AuthorizeAPIKey returns true if got matches expected using constant-time
// comparison. Empty keys are always treated as unauthorized.
func AuthorizeAPIKey(got, expected string) bool {
	if strings.TrimSpace(expected) == "" || got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(expected)) == 1
}
