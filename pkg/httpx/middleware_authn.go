package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/hivework/taskhive/pkg/slogx"
)

// BearerVerifier resolves an opaque bearer token to its token info, or fails.
// The auth service's token verifier implements this against the credential
// store; failures are never distinguished to the caller beyond 401.
type BearerVerifier interface {
	VerifyBearer(ctx context.Context, token string) (TokenInfo, error)
}

func AuthnMiddleware(v BearerVerifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			authz := r.Header.Get("Authorization")
			if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
				writeBearerError(w, "missing bearer token")
				return
			}
			raw := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))

			info, err := v.VerifyBearer(ctx, raw)
			if err != nil {
				writeBearerError(w, "token verification failed")
				log.Warn("bearer token rejected", "err", err)
				return
			}

			// Inject into context for downstream handlers.
			ctx = context.WithValue(ctx, CtxKeyIdentityID, info.IdentityID)
			ctx = context.WithValue(ctx, CtxKeyScopes, info.Scopes)
			ctx = context.WithValue(ctx, CtxKeyToken, info)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RFC 6750-compliant error response for bearer auth.
func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	w.WriteHeader(http.StatusUnauthorized)
}
