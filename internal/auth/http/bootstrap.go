package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/hivework/taskhive/internal/auth/service"
	"github.com/hivework/taskhive/pkg/authsdk"
	"github.com/hivework/taskhive/pkg/httpx"
	"github.com/hivework/taskhive/pkg/slogx"
)

type BootstrapHandler struct {
	BootstrapService *service.BootstrapService
}

// ServeHTTP handles first-run setup.
//
//	@Summary		Bootstrap the authentication system
//	@Description	Creates the first admin user and the first-party OAuth2 client. Refuses to run once any identity or client exists.
//	@Tags			Bootstrap
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.BootstrapRequest	true	"Admin credentials and client name"
//	@Success		201		{object}	authsdk.BootstrapResponse	"Created IDs and the one-time client secret"
//	@Failure		400		{object}	authsdk.ErrorResponse		"Invalid request body"
//	@Failure		409		{object}	authsdk.ErrorResponse		"System already bootstrapped"
//	@Router			/v1/bootstrap [post].
func (h *BootstrapHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req authsdk.BootstrapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, authsdk.ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "request body must be valid JSON",
		})
		return
	}

	result, err := h.BootstrapService.Bootstrap(ctx, service.BootstrapParams{
		Username:     strings.TrimSpace(req.AdminUsername),
		Password:     req.AdminPassword,
		ClientName:   strings.TrimSpace(req.ClientName),
		RedirectURIs: req.RedirectURIs,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAlreadyBootstrapped):
			httpx.WriteJSON(w, http.StatusConflict, authsdk.ErrorResponse{
				Error:            "already_bootstrapped",
				ErrorDescription: "system has already been bootstrapped",
			})
		case errors.Is(err, service.ErrInvalidRequest):
			httpx.WriteJSON(w, http.StatusBadRequest, authsdk.ErrorResponse{
				Error:            "invalid_request",
				ErrorDescription: "admin_username and admin_password are required",
			})
		default:
			slogx.FromContext(ctx).Error("bootstrap failed", "err", err)
			authsdk.ErrServerError.WriteError(w)
		}
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusCreated, authsdk.BootstrapResponse{
		AdminIdentityID: result.Identity.ID,
		ClientID:        result.Client.ID,
		ClientSecret:    result.ClientSecret,
	})
}
