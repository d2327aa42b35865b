// Package auth guards the health diagnostics endpoint.
//
// It provides API key and JWT authenticators and an HTTP middleware that
// admits a request when any configured authenticator accepts its
// credentials. Liveness and readiness probes stay unauthenticated; only the
// detailed endpoint, which exposes counter values, is wrapped.
package auth
