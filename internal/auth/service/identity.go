package service

import (
	"context"
	"errors"

	"github.com/hivework/taskhive/internal/auth/domain"
	"github.com/hivework/taskhive/internal/auth/store"
	"github.com/hivework/taskhive/pkg/cryptox"
)

// IdentityService covers interactive login and identity lifecycle. Tokens of
// a deactivated identity die at verification time, so deactivation needs no
// token sweep of its own.
type IdentityService struct {
	Store store.Store
}

// Authenticate verifies a username/password pair for interactive flows.
// Every failure mode returns ErrInvalidCredentials so responses never reveal
// whether the username exists.
func (s *IdentityService) Authenticate(ctx context.Context, username, password string) (domain.Identity, error) {
	identity, err := s.Store.Identities().GetIdentityByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Identity{}, ErrInvalidCredentials
		}
		return domain.Identity{}, err
	}

	// Service accounts have no password and never log in interactively.
	if !identity.Active || identity.PasswordHash == "" {
		return domain.Identity{}, ErrInvalidCredentials
	}

	if err := cryptox.VerifySecret(password, identity.PasswordHash); err != nil {
		return domain.Identity{}, ErrInvalidCredentials
	}

	return identity, nil
}

// Get returns an identity by id.
func (s *IdentityService) Get(ctx context.Context, id string) (domain.Identity, error) {
	return s.Store.Identities().GetIdentityByID(ctx, id)
}

// SetActive deactivates or reactivates an identity. Deactivation immediately
// invalidates every live token the identity holds.
func (s *IdentityService) SetActive(ctx context.Context, id string, active bool) error {
	return s.Store.Identities().SetIdentityActive(ctx, id, active)
}
