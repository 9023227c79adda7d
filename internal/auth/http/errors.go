package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/hivework/taskhive/internal/auth/domain"
	"github.com/hivework/taskhive/internal/auth/service"
	"github.com/hivework/taskhive/pkg/authsdk"
	"github.com/hivework/taskhive/pkg/httpx"
	"github.com/hivework/taskhive/pkg/slogx"
)

// writeGrantError maps service sentinel errors onto the OAuth2 error
// vocabulary. Anything unmapped is a server error and gets logged.
func writeGrantError(ctx context.Context, w http.ResponseWriter, grant string, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidClient):
		authsdk.ErrInvalidClient.WriteError(w)
	case errors.Is(err, service.ErrInvalidGrant),
		errors.Is(err, service.ErrInvalidRefresh),
		errors.Is(err, service.ErrInvalidState):
		authsdk.ErrInvalidGrant.WriteError(w)
	case errors.Is(err, service.ErrInvalidScope):
		authsdk.ErrInvalidScope.WriteError(w)
	case errors.Is(err, service.ErrInvalidRequest):
		authsdk.ErrInvalidRequest.WriteError(w)
	case errors.Is(err, service.ErrAuthorizationPending):
		authsdk.ErrAuthorizationPending.WriteError(w)
	case errors.Is(err, service.ErrSlowDown):
		authsdk.ErrSlowDown.WriteError(w)
	case errors.Is(err, service.ErrAccessDenied):
		authsdk.ErrAccessDenied.WriteError(w)
	case errors.Is(err, service.ErrExpiredToken):
		authsdk.ErrExpiredToken.WriteError(w)
	default:
		slogx.FromContext(ctx).Error("grant failed", "grant", grant, "err", err)
		authsdk.ErrServerError.WriteError(w)
	}
}

func writeTokenResponse(w http.ResponseWriter, pair *domain.TokenPair) {
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, authsdk.TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(pair.ExpiresIn.Seconds()),
		Scope:        strings.TrimSpace(pair.Scope),
	})
}
