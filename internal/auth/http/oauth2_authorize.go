package http

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/hivework/taskhive/internal/auth/service"
	"github.com/hivework/taskhive/pkg/authsdk"
	"github.com/hivework/taskhive/pkg/httpx"
	"github.com/hivework/taskhive/pkg/slogx"
)

// AuthorizeHandler processes OAuth2 authorization requests (authorization
// code flow). GET serves browsers that already hold a bearer session; POST
// accepts an interactive username/password login alongside the authorization
// parameters.
type AuthorizeHandler struct {
	AuthorizeService *service.AuthorizeService
	IdentityService  *service.IdentityService
	VerifyService    *service.VerifyService
}

// HandleGet godoc
//
//	@Summary		OAuth2 authorization endpoint (GET)
//	@Description	Issues an authorization code for an already-authenticated user (Bearer token).
//	@Description	Responds with a 302 redirect to redirect_uri carrying code and state.
//	@Tags			OAuth2
//	@Produce		json
//	@Param			response_type			query		string					true	"Must be 'code'"	default(code)
//	@Param			client_id				query		string					true	"OAuth2 client identifier"
//	@Param			redirect_uri			query		string					true	"Callback URI (must exactly match a registered redirect URI)"
//	@Param			scope					query		string					false	"Space-delimited list of scopes"
//	@Param			state					query		string					false	"Opaque value echoed back on the redirect"
//	@Param			code_challenge			query		string					false	"PKCE code challenge (required for public clients)"
//	@Param			code_challenge_method	query		string					false	"PKCE method (S256 or plain, defaults to S256)"
//	@Success		302						{string}	string					"Redirect to redirect_uri with code and state"
//	@Failure		400						{object}	authsdk.ErrorResponse	"error, error_description"
//	@Failure		401						{object}	authsdk.ErrorResponse	"error, error_description"
//	@Router			/v1/oauth2/authorize [get]
func (h *AuthorizeHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req := buildAuthorizeRequest(r.URL.Query())

	identityID := h.bearerIdentity(r)
	if identityID == "" {
		httpx.WriteJSON(w, http.StatusUnauthorized, authsdk.ErrorResponse{
			Error:            "login_required",
			ErrorDescription: "user authentication required",
		})
		return
	}
	req.IdentityID = identityID

	h.processAuthorize(ctx, w, r, req)
}

// HandlePost godoc
//
//	@Summary		OAuth2 authorization endpoint (POST)
//	@Description	Interactive variant: authenticates username/password from the form body, then issues a code.
//	@Tags			OAuth2
//	@Accept			application/x-www-form-urlencoded
//	@Produce		json
//	@Param			response_type			formData	string					true	"Must be 'code'"	default(code)
//	@Param			client_id				formData	string					true	"OAuth2 client identifier"
//	@Param			redirect_uri			formData	string					true	"Callback URI"
//	@Param			scope					formData	string					false	"Space-delimited list of scopes"
//	@Param			state					formData	string					false	"Opaque value echoed back on the redirect"
//	@Param			code_challenge			formData	string					false	"PKCE code challenge"
//	@Param			code_challenge_method	formData	string					false	"PKCE method (S256 or plain)"
//	@Param			username				formData	string					true	"Username"
//	@Param			password				formData	string					true	"Password"
//	@Success		302						{string}	string					"Redirect to redirect_uri with code and state"
//	@Failure		400						{object}	authsdk.ErrorResponse	"error, error_description"
//	@Failure		401						{object}	authsdk.ErrorResponse	"error, error_description"
//	@Router			/v1/oauth2/authorize [post]
func (h *AuthorizeHandler) HandlePost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseForm(); err != nil {
		authsdk.ErrInvalidFormBody.WriteError(w)
		return
	}

	req := buildAuthorizeRequest(r.Form)

	// A bearer session wins over form credentials when both are present.
	if identityID := h.bearerIdentity(r); identityID != "" {
		req.IdentityID = identityID
	} else {
		username := strings.TrimSpace(r.Form.Get("username"))
		password := r.Form.Get("password")
		if username == "" || password == "" {
			httpx.WriteJSON(w, http.StatusUnauthorized, authsdk.ErrorResponse{
				Error:            "login_required",
				ErrorDescription: "user authentication required",
			})
			return
		}

		identity, err := h.IdentityService.Authenticate(ctx, username, password)
		if err != nil {
			if errors.Is(err, service.ErrInvalidCredentials) {
				httpx.WriteJSON(w, http.StatusUnauthorized, authsdk.ErrorResponse{
					Error:            "invalid_credentials",
					ErrorDescription: "username or password incorrect",
				})
				return
			}
			slogx.FromContext(ctx).Error("authorize login failed", "err", err)
			authsdk.ErrServerError.WriteError(w)
			return
		}
		req.IdentityID = identity.ID
	}

	h.processAuthorize(ctx, w, r, req)
}

func (h *AuthorizeHandler) processAuthorize(ctx context.Context, w http.ResponseWriter, r *http.Request, req service.AuthorizeRequest) {
	resp, err := h.AuthorizeService.IssueAuthorizationCode(ctx, req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrLoginRequired):
			httpx.WriteJSON(w, http.StatusUnauthorized, authsdk.ErrorResponse{
				Error:            "login_required",
				ErrorDescription: "user authentication required",
			})
		default:
			writeGrantError(ctx, w, "authorize", err)
		}
		return
	}

	redirect, parseErr := url.Parse(resp.RedirectURI)
	if parseErr != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	q := redirect.Query()
	q.Set("code", resp.Code)
	if resp.State != "" {
		q.Set("state", resp.State)
	}
	redirect.RawQuery = q.Encode()

	httpx.NoCache(w)
	http.Redirect(w, r, redirect.String(), http.StatusFound)
}

func buildAuthorizeRequest(values url.Values) service.AuthorizeRequest {
	return service.AuthorizeRequest{
		ResponseType:        strings.TrimSpace(values.Get("response_type")),
		ClientID:            strings.TrimSpace(values.Get("client_id")),
		RedirectURI:         strings.TrimSpace(values.Get("redirect_uri")),
		Scope:               httpx.ParseSpaceDelimitedFields(values.Get("scope")),
		State:               values.Get("state"),
		CodeChallenge:       strings.TrimSpace(values.Get("code_challenge")),
		CodeChallengeMethod: strings.TrimSpace(values.Get("code_challenge_method")),
	}
}

// bearerIdentity resolves the Authorization header to a user identity, or ""
// when absent or invalid.
func (h *AuthorizeHandler) bearerIdentity(r *http.Request) string {
	authz := r.Header.Get("Authorization")
	if !strings.HasPrefix(authz, "Bearer ") {
		return ""
	}
	raw := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))

	info, err := h.VerifyService.VerifyBearer(r.Context(), raw)
	if err != nil {
		return ""
	}
	return info.IdentityID
}
