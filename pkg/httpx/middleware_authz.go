package httpx

import (
	"net/http"
	"strings"
)

// ScopeExpander expands a granted scope set into every scope it implies
// (e.g. legacy "read" into the fine-grained "*:read" scopes). The identity
// expander is acceptable for callers with no legacy aliases.
type ScopeExpander func([]string) []string

// RequireScopes enforces that the caller's (expanded) scopes are a superset
// of every required scope. It fails closed with 403 insufficient_scope,
// naming the missing scopes so clients can request a wider grant.
func RequireScopes(expand ScopeExpander, required ...string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			granted := scopesFromCtx(r.Context())
			if expand != nil {
				granted = expand(granted)
			}

			have := make(map[string]struct{}, len(granted))
			for _, s := range granted {
				have[s] = struct{}{}
			}

			var missing []string
			for _, req := range required {
				if _, ok := have[req]; !ok {
					missing = append(missing, req)
				}
			}
			if len(missing) > 0 {
				writeBearerScopeError(w, missing)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RFC 6750-compliant error response for bearer insufficient_scope.
func writeBearerScopeError(w http.ResponseWriter, missing []string) {
	w.Header().
		Set("WWW-Authenticate", `Bearer error="insufficient_scope", scope="`+strings.Join(missing, " ")+`"`)
	WriteJSON(w, http.StatusForbidden, map[string]string{
		"error":             "insufficient_scope",
		"error_description": "missing required scope(s): " + strings.Join(missing, " "),
	})
}
