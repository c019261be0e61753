package chi

import (
	"context"
	"net/http"
	"strings"

	"github.com/kailas-cloud/vecquery/internal/domain/access"
)

// exemptPaths are routes that bypass authentication (health, metrics).
var exemptPaths = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

type accessKey struct{}

// ContextWithAccess stores the caller's access in ctx.
func ContextWithAccess(ctx context.Context, acc access.Access) context.Context {
	return context.WithValue(ctx, accessKey{}, acc)
}

// AccessFromContext returns the caller's access. Without one nothing is allowed.
func AccessFromContext(ctx context.Context) access.Access {
	if acc, ok := ctx.Value(accessKey{}).(access.Access); ok {
		return acc
	}
	return access.Access{}
}

// BearerAuthMiddleware returns a middleware that validates Bearer tokens and
// attaches the caller's access: full keys grant global read-write, read-only
// keys global read. If both lists are empty, authentication is disabled and
// every caller gets full access.
func BearerAuthMiddleware(apiKeys, readOnlyKeys []string) func(http.Handler) http.Handler {
	validKeys := make(map[string]access.Access, len(apiKeys)+len(readOnlyKeys))
	for _, k := range readOnlyKeys {
		if k != "" {
			validKeys[k] = access.Global(access.Read)
		}
	}
	for _, k := range apiKeys {
		if k != "" {
			validKeys[k] = access.Full()
		}
	}

	return func(next http.Handler) http.Handler {
		if len(validKeys) == 0 {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				next.ServeHTTP(w, r.WithContext(ContextWithAccess(r.Context(), access.Full())))
			})
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := exemptPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			auth := r.Header.Get("Authorization")
			if auth == "" {
				writeError(w, http.StatusUnauthorized, CodeUnauthorized, "missing authorization header")
				return
			}

			const bearerPrefix = "Bearer "
			if !strings.HasPrefix(auth, bearerPrefix) {
				writeError(w, http.StatusUnauthorized, CodeUnauthorized, "authorization header must use Bearer scheme")
				return
			}

			acc, ok := validKeys[auth[len(bearerPrefix):]]
			if !ok {
				writeError(w, http.StatusUnauthorized, CodeUnauthorized, "invalid api key")
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithAccess(r.Context(), acc)))
		})
	}
}
