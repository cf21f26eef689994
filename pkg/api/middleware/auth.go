package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/dd0wney/cluso-uaspace/pkg/auth"
	"github.com/dd0wney/cluso-uaspace/pkg/logging"
)

// IdentityFromContext returns the identity stored by Authenticate.
func IdentityFromContext(ctx context.Context) (*auth.Identity, bool) {
	id, ok := ctx.Value(IdentityContextKey).(*auth.Identity)
	return id, ok && id != nil
}

// WithIdentity stores id in ctx.
func WithIdentity(ctx context.Context, id *auth.Identity) context.Context {
	return context.WithValue(ctx, IdentityContextKey, id)
}

// credentials extracts Basic or Bearer credentials from the request.
func credentials(r *http.Request) auth.Credentials {
	if user, pass, ok := r.BasicAuth(); ok {
		return auth.Credentials{Username: user, Password: pass}
	}
	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return auth.Credentials{Token: strings.TrimSpace(token)}
	}
	return auth.Credentials{}
}

// Authenticate resolves the caller through a and stores the identity in the
// request context. Requests for which skip returns true pass through
// unauthenticated. Failures answer 401 with a JSON error body.
func Authenticate(a auth.Authenticator, logger logging.Logger, skip func(*http.Request) bool) Middleware {
	logger = logging.OrDefault(logger).With(logging.Component("auth"))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if a == nil || (skip != nil && skip(r)) {
				next.ServeHTTP(w, r)
				return
			}
			id, err := a.Authenticate(r.Context(), credentials(r))
			if err != nil {
				logger.Debug("authentication failed",
					logging.Path(r.URL.Path),
					logging.RequestID(GetRequestID(r)),
					logging.Error(err),
				)
				msg := "authentication required"
				if errors.Is(err, auth.ErrExpiredToken) {
					msg = "token has expired"
				}
				w.Header().Set("WWW-Authenticate", `Basic realm="uaspace", Bearer`)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(map[string]string{"error": msg})
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}
