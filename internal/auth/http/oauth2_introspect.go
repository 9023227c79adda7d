package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/hivework/taskhive/internal/auth/service"
	"github.com/hivework/taskhive/pkg/authsdk"
	"github.com/hivework/taskhive/pkg/httpx"
)

// IntrospectHandler serves POST /v1/oauth2/introspect per RFC 7662. Because
// tokens are store-backed the answer is always current: revoked tokens and
// tokens of deactivated identities report active=false immediately.
type IntrospectHandler struct {
	VerifyService *service.VerifyService
}

// ServeHTTP godoc
//
//	@Summary		Token Introspection Endpoint
//	@Description	Resolves an opaque access token to its current state per RFC 7662. Requires an authenticated caller.
//	@Tags			OAuth2
//	@Accept			application/x-www-form-urlencoded
//	@Produce		json
//	@Security		BearerAuth
//	@Param			token	formData	string							true	"The token to introspect"
//	@Success		200		{object}	authsdk.IntrospectionResponse	"active, client_id, scope, user_id, exp"
//	@Failure		400		{object}	authsdk.ErrorResponse			"error, error_description"
//	@Failure		401		{object}	authsdk.ErrorResponse			"error, error_description"
//	@Router			/v1/oauth2/introspect [post].
func (h *IntrospectHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseForm(); err != nil {
		authsdk.ErrInvalidFormBody.WriteError(w)
		return
	}

	token := strings.TrimSpace(r.Form.Get("token"))
	if token == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	v, err := h.VerifyService.Verify(ctx, token)
	if err != nil {
		// RFC 7662: an invalid token is not an error, it is inactive.
		if errors.Is(err, service.ErrInvalidToken) || errors.Is(err, service.ErrInactiveIdentity) {
			httpx.NoCache(w)
			httpx.WriteJSON(w, http.StatusOK, authsdk.IntrospectionResponse{Active: false})
			return
		}
		authsdk.ErrServerError.WriteError(w)
		return
	}

	resp := authsdk.IntrospectionResponse{
		Active:   true,
		ClientID: v.Token.ClientID,
		Scope:    strings.Join(v.Token.Scopes, " "),
		Exp:      v.Token.ExpiresAt.Unix(),
	}
	if v.Identity != nil {
		resp.UserID = v.Identity.ID
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, resp)
}
