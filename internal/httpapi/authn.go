package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"bazara.org/internal/auth"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

var publicPaths = []string{
	"/v1/auth/register",
	"/v1/auth/login",
	"/metrics",
	"/healthz",
	"/readyz",
	"/",
}

func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		tc, err := a.cfg.Resolver.Resolve(r.Context(), token)
		if err != nil {
			handleFault(w, err)
			return
		}
		// Store-scoped requests pin the session to the store in the path; the
		// services re-verify against the resource's own store id.
		if storeID := storeIDFromPath(r.URL.Path); storeID != "" {
			tc = tc.WithStore(storeID)
		}
		next.ServeHTTP(w, r.WithContext(auth.ContextWithTenant(r.Context(), tc)))
	})
}

func storeIDFromPath(path string) string {
	const prefix = "/v1/stores/"
	if !strings.HasPrefix(path, prefix) {
		return ""
	}
	rest := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if rest == "" {
		return ""
	}
	return strings.SplitN(rest, "/", 2)[0]
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}
