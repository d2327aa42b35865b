package auth

import "time"

// AuthMethod indicates how authentication was performed.
type AuthMethod string

const (
	AuthMethodJWT    AuthMethod = "jwt"
	AuthMethodAPIKey AuthMethod = "api_key"
)

// Identity represents an authenticated caller.
type Identity struct {
	// Principal is the unique identifier of the caller.
	Principal string

	// Method indicates how authentication was performed.
	Method AuthMethod

	// Claims contains the raw token claims, if any.
	Claims map[string]any

	// ExpiresAt is when this identity expires (zero = never).
	ExpiresAt time.Time
}

// IsExpired checks if the identity has expired.
func (id *Identity) IsExpired() bool {
	if id.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().After(id.ExpiresAt)
}
