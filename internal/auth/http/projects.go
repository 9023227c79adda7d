package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/hivework/taskhive/internal/auth/domain"
	"github.com/hivework/taskhive/internal/auth/service"
	"github.com/hivework/taskhive/internal/auth/store"
	"github.com/hivework/taskhive/pkg/authsdk"
	"github.com/hivework/taskhive/pkg/httpx"
	"github.com/hivework/taskhive/pkg/slogx"
)

// ProjectsHandler exposes project creation and the per-project access list.
// Every route resolves the calling identity from the bearer token first.
type ProjectsHandler struct {
	AccessService   *service.AccessService
	IdentityService *service.IdentityService
}

type createProjectRequest struct {
	Name string `json:"name"`
}

type projectResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	OwnerID   string    `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
}

type grantRequest struct {
	IdentityID string `json:"identity_id"`
	Role       string `json:"role"`
}

type grantResponse struct {
	IdentityID string    `json:"identity_id"`
	Role       string    `json:"role"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// actor resolves the authenticated identity behind the request, or writes an
// error response and returns false.
func (h *ProjectsHandler) actor(w http.ResponseWriter, r *http.Request) (domain.Identity, bool) {
	ctx := r.Context()

	identityID := httpx.IdentityIDFromContext(ctx)
	if identityID == "" {
		authsdk.ErrAccessDenied.WriteError(w)
		return domain.Identity{}, false
	}

	identity, err := h.IdentityService.Get(ctx, identityID)
	if err != nil {
		slogx.FromContext(ctx).Error("actor lookup failed", "identity_id", identityID, "err", err)
		authsdk.ErrServerError.WriteError(w)
		return domain.Identity{}, false
	}

	return identity, true
}

func writeAccessError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrProjectForbidden):
		authsdk.ErrAccessDenied.WriteError(w)
	case errors.Is(err, store.ErrNotFound):
		writeNotFound(w)
	default:
		slogx.FromContext(ctx).Error("project access operation failed", "err", err)
		authsdk.ErrServerError.WriteError(w)
	}
}

// HandleCreate godoc
//
//	@Summary		Create a project
//	@Description	The caller becomes the owner and holds admin implicitly.
//	@Tags			Projects
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			body	body		createProjectRequest	true	"Project definition"
//	@Success		201		{object}	projectResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"error, error_description"
//	@Router			/v1/projects [post].
func (h *ProjectsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var req createProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	project, err := h.AccessService.CreateProject(ctx, req.Name, actor.ID)
	if err != nil {
		writeAccessError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, projectResponse{
		ID:        project.ID,
		Name:      project.Name,
		OwnerID:   project.OwnerID,
		CreatedAt: project.CreatedAt,
	})
}

// HandleListAccess godoc
//
//	@Summary		List explicit grants on a project
//	@Description	The caller needs at least viewer on the project.
//	@Tags			Projects
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"Project id"
//	@Success		200	{array}		grantResponse
//	@Failure		403	{object}	authsdk.ErrorResponse	"error, error_description"
//	@Router			/v1/projects/{id}/access [get].
func (h *ProjectsHandler) HandleListAccess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	grants, err := h.AccessService.ListGrants(ctx, r.PathValue("id"), actor)
	if err != nil {
		writeAccessError(ctx, w, err)
		return
	}

	out := make([]grantResponse, 0, len(grants))
	for _, g := range grants {
		out = append(out, grantResponse{
			IdentityID: g.IdentityID,
			Role:       string(g.Role),
			UpdatedAt:  g.UpdatedAt,
		})
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleGrant godoc
//
//	@Summary		Grant a role on a project
//	@Description	The caller needs admin on the project. Regranting replaces the previous role.
//	@Tags			Projects
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		string					true	"Project id"
//	@Param			body	body		grantRequest			true	"Identity and role"
//	@Success		204		{string}	string					"granted"
//	@Failure		403		{object}	authsdk.ErrorResponse	"error, error_description"
//	@Router			/v1/projects/{id}/access [post].
func (h *ProjectsHandler) HandleGrant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var req grantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.IdentityID == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	role, err := domain.ParseProjectRole(req.Role)
	if err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	if err := h.AccessService.Grant(ctx, r.PathValue("id"), actor, req.IdentityID, role); err != nil {
		writeAccessError(ctx, w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleRevoke godoc
//
//	@Summary		Revoke an identity's grant on a project
//	@Description	The caller needs admin on the project.
//	@Tags			Projects
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id			path		string	true	"Project id"
//	@Param			identity	path		string	true	"Identity id"
//	@Success		204			{string}	string	"revoked"
//	@Failure		403			{object}	authsdk.ErrorResponse	"error, error_description"
//	@Router			/v1/projects/{id}/access/{identity} [delete].
func (h *ProjectsHandler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	if err := h.AccessService.Revoke(ctx, r.PathValue("id"), actor, r.PathValue("identity")); err != nil {
		writeAccessError(ctx, w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
