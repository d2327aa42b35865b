package auth

import (
	"errors"
	"net/http"

	"github.com/jonwraymond/counterhealth/observe"
)

// Require returns middleware that admits a request when one of the
// authenticators that supports it accepts its credentials. Rejected requests
// get 401 and never reach next. With no authenticators every request passes.
func Require(logger observe.Logger, authenticators ...Authenticator) func(http.Handler) http.Handler {
	if logger == nil {
		logger = observe.NopLogger()
	}
	logger = logger.WithComponent("auth")

	return func(next http.Handler) http.Handler {
		if len(authenticators) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			err := error(ErrMissingCredentials)
			for _, a := range authenticators {
				if !a.Supports(r) {
					continue
				}
				id, aerr := a.Authenticate(r)
				if aerr == nil && !id.IsExpired() {
					next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
					return
				}
				if aerr == nil {
					aerr = ErrTokenExpired
				}
				err = aerr
			}

			logger.Warn(r.Context(), "request rejected",
				observe.Field{Key: "path", Value: r.URL.Path},
				observe.Field{Key: "reason", Value: reason(err)},
			)
			w.Header().Set("WWW-Authenticate", `Bearer realm="counterhealth"`)
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		})
	}
}

func reason(err error) string {
	switch {
	case errors.Is(err, ErrMissingCredentials):
		return "missing credentials"
	case errors.Is(err, ErrTokenExpired):
		return "token expired"
	case errors.Is(err, ErrTokenMalformed):
		return "token malformed"
	default:
		return "invalid credentials"
	}
}
