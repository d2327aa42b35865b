package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"
)

// DefaultAPIKeyHeader is the header read by the API key authenticator.
const DefaultAPIKeyHeader = "X-API-Key"

// APIKeyAuthenticator admits requests carrying one of a fixed set of keys.
// Keys are held as SHA-256 hashes and compared in constant time.
type APIKeyAuthenticator struct {
	header string
	keys   []apiKey
}

type apiKey struct {
	principal string
	hash      [sha256.Size]byte
}

// NewAPIKeyAuthenticator creates an authenticator for the given keys, mapped
// from principal to plaintext key. An empty header uses DefaultAPIKeyHeader.
func NewAPIKeyAuthenticator(header string, keys map[string]string) *APIKeyAuthenticator {
	if header == "" {
		header = DefaultAPIKeyHeader
	}
	a := &APIKeyAuthenticator{header: header}
	for principal, key := range keys {
		if key == "" {
			continue
		}
		a.keys = append(a.keys, apiKey{principal: principal, hash: sha256.Sum256([]byte(key))})
	}
	return a
}

// Name returns "api_key".
func (a *APIKeyAuthenticator) Name() string {
	return string(AuthMethodAPIKey)
}

// Supports returns true if the request carries the API key header.
func (a *APIKeyAuthenticator) Supports(r *http.Request) bool {
	return r.Header.Get(a.header) != ""
}

// Authenticate matches the request's key against the configured keys.
func (a *APIKeyAuthenticator) Authenticate(r *http.Request) (*Identity, error) {
	key := strings.TrimSpace(r.Header.Get(a.header))
	if key == "" {
		return nil, ErrMissingCredentials
	}

	sum := sha256.Sum256([]byte(key))
	var match *apiKey
	for i := range a.keys {
		// Compare against every key so timing does not reveal the match position.
		if subtle.ConstantTimeCompare(sum[:], a.keys[i].hash[:]) == 1 {
			match = &a.keys[i]
		}
	}
	if match == nil {
		return nil, ErrInvalidCredentials
	}

	return &Identity{
		Principal: match.principal,
		Method:    AuthMethodAPIKey,
		Claims:    map[string]any{"key_hash": hex.EncodeToString(match.hash[:8])},
	}, nil
}

var _ Authenticator = (*APIKeyAuthenticator)(nil)
