package service

import (
	"context"
	"errors"
	"time"

	"github.com/hivework/taskhive/internal/auth/domain"
	"github.com/hivework/taskhive/internal/auth/store"
	"github.com/hivework/taskhive/pkg/idx"
)

// ErrProjectForbidden is returned when an identity's effective role on a
// project is below what the operation requires.
var ErrProjectForbidden = errors.New("project_forbidden")

// AccessService resolves an identity's effective role on a project and
// manages the per-project grant rows. Role resolution is deliberately
// asymmetric: humans may fall back to a configured site-wide default, while
// service accounts get nothing without an explicit grant.
type AccessService struct {
	Store store.Store

	// FallbackRole is the role a human identity holds on projects it has no
	// explicit grant for. Defaults to none; deployments that want every
	// signed-in user to see every project set it to viewer.
	FallbackRole domain.ProjectRole
}

// ResolveRole computes the effective role of an identity on a project.
//
// Resolution order: system admins and project owners are admin outright; an
// explicit grant row wins next; otherwise service accounts get none and
// humans get the configured fallback.
func (s *AccessService) ResolveRole(ctx context.Context, projectID string, identity domain.Identity) (domain.ProjectRole, error) {
	project, err := s.Store.Projects().GetProjectByID(ctx, projectID)
	if err != nil {
		return domain.RoleNone, err
	}

	if identity.Admin || project.OwnerID == identity.ID {
		return domain.RoleAdmin, nil
	}

	grant, err := s.Store.ProjectAccess().GetProjectAccess(ctx, projectID, identity.ID)
	if err == nil {
		return grant.Role, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return domain.RoleNone, err
	}

	if identity.IsServiceAccount() {
		return domain.RoleNone, nil
	}
	return s.FallbackRole, nil
}

// Require fails with ErrProjectForbidden unless the identity's effective
// role meets the minimum.
func (s *AccessService) Require(ctx context.Context, projectID string, identity domain.Identity, min domain.ProjectRole) error {
	role, err := s.ResolveRole(ctx, projectID, identity)
	if err != nil {
		return err
	}
	if !role.AtLeast(min) {
		return ErrProjectForbidden
	}
	return nil
}

// CreateProject creates a project owned by the given identity.
func (s *AccessService) CreateProject(ctx context.Context, name, ownerID string) (domain.Project, error) {
	now := time.Now()
	project := domain.Project{
		ID:        idx.New().String(),
		Name:      name,
		OwnerID:   ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Store.Projects().CreateProject(ctx, project); err != nil {
		return domain.Project{}, err
	}
	return project, nil
}

// Grant gives an identity a role on a project. The actor must hold admin on
// the project; regranting replaces the previous role.
func (s *AccessService) Grant(ctx context.Context, projectID string, actor domain.Identity, identityID string, role domain.ProjectRole) error {
	if err := s.Require(ctx, projectID, actor, domain.RoleAdmin); err != nil {
		return err
	}

	// The grantee must exist; granting to a ghost is a caller error.
	if _, err := s.Store.Identities().GetIdentityByID(ctx, identityID); err != nil {
		return err
	}

	now := time.Now()
	return s.Store.ProjectAccess().UpsertProjectAccess(ctx, domain.ProjectAccess{
		ID:         idx.New().String(),
		ProjectID:  projectID,
		IdentityID: identityID,
		Role:       role,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
}

// Revoke removes an identity's explicit grant on a project.
func (s *AccessService) Revoke(ctx context.Context, projectID string, actor domain.Identity, identityID string) error {
	if err := s.Require(ctx, projectID, actor, domain.RoleAdmin); err != nil {
		return err
	}
	return s.Store.ProjectAccess().DeleteProjectAccess(ctx, projectID, identityID)
}

// ListGrants returns the explicit grant rows on a project. The actor needs
// at least viewer.
func (s *AccessService) ListGrants(ctx context.Context, projectID string, actor domain.Identity) ([]domain.ProjectAccess, error) {
	if err := s.Require(ctx, projectID, actor, domain.RoleViewer); err != nil {
		return nil, err
	}
	return s.Store.ProjectAccess().ListProjectAccess(ctx, projectID)
}
