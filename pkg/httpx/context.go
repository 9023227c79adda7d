package httpx

import (
	"context"
	"time"
)

// TokenInfo is the resolved view of a verified bearer token that handlers
// consume from the request context.
type TokenInfo struct {
	ClientID   string
	IdentityID string // empty for identity-less client_credentials tokens
	Scopes     []string
	ExpiresAt  time.Time
}

type ctxKey string

const (
	CtxKeyIdentityID ctxKey = "identity_id"
	CtxKeyScopes     ctxKey = "scopes"
	CtxKeyToken      ctxKey = "token_info"
)

// TokenInfoFromContext returns the verified token attached by AuthnMiddleware.
func TokenInfoFromContext(ctx context.Context) (TokenInfo, bool) {
	v, ok := ctx.Value(CtxKeyToken).(TokenInfo)
	return v, ok
}

// IdentityIDFromContext returns the authenticated identity, or "" when the
// token carries no identity.
func IdentityIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeyIdentityID).(string); ok {
		return v
	}
	return ""
}

func scopesFromCtx(ctx context.Context) []string {
	if v, ok := ctx.Value(CtxKeyScopes).([]string); ok {
		return v
	}
	return nil
}
