package http

import (
	"net/http"
	"strings"

	"github.com/hivework/taskhive/internal/auth/service"
	"github.com/hivework/taskhive/pkg/authsdk"
	"github.com/hivework/taskhive/pkg/httpx"
)

// DeviceHandler serves the RFC 8628 device authorization endpoints: session
// initiation by the device, approval and denial by the signed-in user.
type DeviceHandler struct {
	DeviceService   *service.DeviceService
	VerificationURI string
}

// HandleInitiate godoc
//
//	@Summary		Device Authorization Endpoint
//	@Description	Opens an RFC 8628 device-flow session. The device displays user_code and polls the token endpoint with device_code.
//	@Tags			OAuth2
//	@Accept			application/x-www-form-urlencoded
//	@Produce		json
//	@Param			client_id		formData	string								true	"Client identifier"
//	@Param			client_secret	formData	string								false	"Client secret (confidential clients)"
//	@Param			scope			formData	string								false	"Space-delimited list of scopes"
//	@Success		200				{object}	authsdk.DeviceAuthorizationResponse	"device_code, user_code, verification_uri, expires_in, interval"
//	@Failure		400				{object}	authsdk.ErrorResponse				"error, error_description"
//	@Failure		401				{object}	authsdk.ErrorResponse				"error, error_description"
//	@Router			/v1/oauth2/device/code [post].
func (h *DeviceHandler) HandleInitiate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseForm(); err != nil {
		authsdk.ErrInvalidFormBody.WriteError(w)
		return
	}

	clientID := strings.TrimSpace(r.Form.Get("client_id"))
	clientSecret := r.Form.Get("client_secret")
	scope := httpx.ParseSpaceDelimitedFields(r.Form.Get("scope"))

	if clientID == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	res, err := h.DeviceService.Initiate(ctx, clientID, clientSecret, scope)
	if err != nil {
		writeGrantError(ctx, w, "device_initiate", err)
		return
	}

	verificationURI := h.VerificationURI
	if verificationURI == "" {
		verificationURI = "/device"
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, authsdk.DeviceAuthorizationResponse{
		DeviceCode:              res.DeviceCode,
		UserCode:                res.UserCode,
		VerificationURI:         verificationURI,
		VerificationURIComplete: verificationURI + "?user_code=" + res.UserCode,
		ExpiresIn:               int64(res.ExpiresIn.Seconds()),
		Interval:                res.Interval,
	})
}

// HandleApprove godoc
//
//	@Summary		Approve a device session
//	@Description	Binds the signed-in user to a pending device session. Approving an already-decided or expired session fails.
//	@Tags			OAuth2
//	@Accept			application/x-www-form-urlencoded
//	@Produce		json
//	@Security		BearerAuth
//	@Param			user_code	formData	string					true	"User code shown on the device"
//	@Success		204			{string}	string					"approved"
//	@Failure		400			{object}	authsdk.ErrorResponse	"error, error_description"
//	@Failure		401			{object}	authsdk.ErrorResponse	"error, error_description"
//	@Router			/v1/oauth2/device/approve [post].
func (h *DeviceHandler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, true)
}

// HandleDeny godoc
//
//	@Summary		Deny a device session
//	@Description	Marks a pending device session denied. The polling device receives access_denied.
//	@Tags			OAuth2
//	@Accept			application/x-www-form-urlencoded
//	@Produce		json
//	@Security		BearerAuth
//	@Param			user_code	formData	string					true	"User code shown on the device"
//	@Success		204			{string}	string					"denied"
//	@Failure		400			{object}	authsdk.ErrorResponse	"error, error_description"
//	@Failure		401			{object}	authsdk.ErrorResponse	"error, error_description"
//	@Router			/v1/oauth2/device/deny [post].
func (h *DeviceHandler) HandleDeny(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, false)
}

func (h *DeviceHandler) decide(w http.ResponseWriter, r *http.Request, approve bool) {
	ctx := r.Context()

	identityID := httpx.IdentityIDFromContext(ctx)
	if identityID == "" {
		// client_credentials tokens with no identity cannot decide sessions.
		authsdk.ErrAccessDenied.WriteError(w)
		return
	}

	if err := r.ParseForm(); err != nil {
		authsdk.ErrInvalidFormBody.WriteError(w)
		return
	}

	userCode := r.Form.Get("user_code")
	if strings.TrimSpace(userCode) == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	var err error
	if approve {
		err = h.DeviceService.Approve(ctx, userCode, identityID)
	} else {
		err = h.DeviceService.Deny(ctx, userCode, identityID)
	}
	if err != nil {
		writeGrantError(ctx, w, "device_decide", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
