// Package session owns the authenticated connection lifecycle: token
// caching, silent refresh before expiry, and reconnection after network
// loss. It guarantees at most one in-flight refresh at a time.
package session

import (
	"errors"
	"time"
)

// ErrAuthRequired marks the session as unrecoverable without new
// credentials. All backend calls are rejected with it until a new token is
// supplied.
var ErrAuthRequired = errors.New("re-authentication required")

// Token is the credential record for the streaming catalog.
type Token struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// ValidFor reports whether the access token remains usable for at least
// margin beyond now.
func (t Token) ValidFor(now time.Time, margin time.Duration) bool {
	return t.AccessToken != "" && now.Add(margin).Before(t.ExpiresAt)
}
