package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hivework/taskhive/internal/auth/domain"
	"github.com/hivework/taskhive/internal/auth/service"
	"github.com/hivework/taskhive/internal/auth/store"
	"github.com/hivework/taskhive/pkg/authsdk"
	"github.com/hivework/taskhive/pkg/httpx"
	"github.com/hivework/taskhive/pkg/slogx"
)

// ClientsHandler covers client registration, service-account provisioning,
// and activation toggles. All routes sit behind the admin scope.
type ClientsHandler struct {
	ClientService   *service.ClientService
	IdentityService *service.IdentityService
}

type createClientRequest struct {
	Name         string   `json:"name"`
	RedirectURIs []string `json:"redirect_uris,omitempty"`
	GrantTypes   []string `json:"grant_types"`
	Scopes       []string `json:"scopes"`
	Public       bool     `json:"public"`
}

type clientResponse struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	RedirectURIs []string `json:"redirect_uris,omitempty"`
	GrantTypes   []string `json:"grant_types"`
	Scopes       []string `json:"scopes"`
	Public       bool     `json:"public"`
	Active       bool     `json:"active"`
	IdentityID   string   `json:"identity_id,omitempty"`

	// Secret is present only in the creation response.
	Secret string `json:"secret,omitempty"`
}

func mapClientResponse(c domain.Client, secret string) clientResponse {
	resp := clientResponse{
		ID:           c.ID,
		Name:         c.Name,
		RedirectURIs: c.RedirectURIs,
		GrantTypes:   c.GrantTypes,
		Scopes:       c.Scopes,
		Public:       c.Public,
		Active:       c.Active,
		Secret:       secret,
	}
	if c.IdentityID != nil {
		resp.IdentityID = *c.IdentityID
	}
	return resp
}

// HandleCreate godoc
//
//	@Summary		Register an OAuth client
//	@Description	Creates a client. Confidential clients receive a secret exactly once in the response.
//	@Tags			Clients
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			body	body		createClientRequest		true	"Client definition"
//	@Success		201		{object}	clientResponse			"The created client, including the one-time secret"
//	@Failure		400		{object}	authsdk.ErrorResponse	"error, error_description"
//	@Router			/v1/clients [post].
func (h *ClientsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	client, secret, err := h.ClientService.CreateClient(ctx, service.CreateClientParams{
		Name:         req.Name,
		RedirectURIs: req.RedirectURIs,
		GrantTypes:   req.GrantTypes,
		Scopes:       req.Scopes,
		Public:       req.Public,
	})
	if err != nil {
		writeGrantError(ctx, w, "client_create", err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, mapClientResponse(client, secret))
}

// HandleList godoc
//
//	@Summary	List registered clients
//	@Tags		Clients
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{array}	clientResponse
//	@Router		/v1/clients [get].
func (h *ClientsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	clients, err := h.ClientService.ListClients(ctx)
	if err != nil {
		slogx.FromContext(ctx).Error("list clients failed", "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	out := make([]clientResponse, 0, len(clients))
	for _, c := range clients {
		out = append(out, mapClientResponse(c, ""))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

type setActiveRequest struct {
	Active bool `json:"active"`
}

// HandleSetActive godoc
//
//	@Summary		Activate or deactivate a client
//	@Description	Tokens minted through a deactivated client fail verification immediately.
//	@Tags			Clients
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		string					true	"Client id"
//	@Param			body	body		setActiveRequest		true	"Desired state"
//	@Success		204		{string}	string					"updated"
//	@Failure		404		{object}	authsdk.ErrorResponse	"error, error_description"
//	@Router			/v1/clients/{id}/active [post].
func (h *ClientsHandler) HandleSetActive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req setActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	err := h.ClientService.SetActive(ctx, r.PathValue("id"), req.Active)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeNotFound(w)
			return
		}
		authsdk.ErrServerError.WriteError(w)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type createServiceAccountRequest struct {
	Name     string   `json:"name"`
	Username string   `json:"username"`
	Scopes   []string `json:"scopes"`
}

type serviceAccountResponse struct {
	Client   clientResponse `json:"client"`
	Identity struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	} `json:"identity"`
}

// HandleCreateServiceAccount godoc
//
//	@Summary		Provision a service account
//	@Description	Atomically creates a non-human identity and a linked client_credentials client.
//	@Description	Tokens minted through the client carry the identity, so automated actions stay attributable.
//	@Tags			Clients
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			body	body		createServiceAccountRequest	true	"Service account definition"
//	@Success		201		{object}	serviceAccountResponse		"Client (with one-time secret) and identity"
//	@Failure		400		{object}	authsdk.ErrorResponse		"error, error_description"
//	@Router			/v1/service-accounts [post].
func (h *ClientsHandler) HandleCreateServiceAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createServiceAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	client, identity, secret, err := h.ClientService.CreateServiceAccount(ctx, service.CreateServiceAccountParams{
		Name:     req.Name,
		Username: req.Username,
		Scopes:   req.Scopes,
	})
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			httpx.WriteJSON(w, http.StatusConflict, authsdk.ErrorResponse{
				Error:            "invalid_request",
				ErrorDescription: "username already taken",
			})
			return
		}
		writeGrantError(ctx, w, "service_account_create", err)
		return
	}

	var resp serviceAccountResponse
	resp.Client = mapClientResponse(client, secret)
	resp.Identity.ID = identity.ID
	resp.Identity.Username = identity.Username

	httpx.WriteJSON(w, http.StatusCreated, resp)
}

// HandleSetIdentityActive godoc
//
//	@Summary		Activate or deactivate an identity
//	@Description	Deactivation invalidates every live token the identity holds, at verification time.
//	@Tags			Clients
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		string					true	"Identity id"
//	@Param			body	body		setActiveRequest		true	"Desired state"
//	@Success		204		{string}	string					"updated"
//	@Failure		404		{object}	authsdk.ErrorResponse	"error, error_description"
//	@Router			/v1/identities/{id}/active [post].
func (h *ClientsHandler) HandleSetIdentityActive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req setActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	err := h.IdentityService.SetActive(ctx, r.PathValue("id"), req.Active)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeNotFound(w)
			return
		}
		authsdk.ErrServerError.WriteError(w)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func writeNotFound(w http.ResponseWriter) {
	httpx.WriteJSON(w, http.StatusNotFound, authsdk.ErrorResponse{
		Error:            "not_found",
		ErrorDescription: "no such resource",
	})
}
