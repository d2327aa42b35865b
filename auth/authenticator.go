package auth

import "net/http"

// Authenticator validates the credentials carried by an HTTP request.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: Authenticate returns one of the package sentinel errors, possibly
//   wrapped, when the credentials are rejected.
type Authenticator interface {
	// Name returns a unique identifier for this authenticator.
	Name() string

	// Supports reports whether the request carries credentials of this kind.
	Supports(r *http.Request) bool

	// Authenticate validates the request's credentials.
	Authenticate(r *http.Request) (*Identity, error)
}
