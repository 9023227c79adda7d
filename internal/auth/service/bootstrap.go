package service

import (
	"context"
	"errors"
	"time"

	"github.com/hivework/taskhive/internal/auth/domain"
	"github.com/hivework/taskhive/internal/auth/scopes"
	"github.com/hivework/taskhive/internal/auth/store"
	"github.com/hivework/taskhive/pkg/cryptox"
	"github.com/hivework/taskhive/pkg/idx"
)

// ErrAlreadyBootstrapped is returned once any identity or client exists.
var ErrAlreadyBootstrapped = errors.New("already_bootstrapped")

// BootstrapService seeds an empty deployment with its first admin user and a
// first-party confidential client carrying every scope. It refuses to run
// twice.
type BootstrapService struct {
	Store store.Store
}

// BootstrapParams are the first-run inputs.
type BootstrapParams struct {
	Username     string
	Password     string
	ClientName   string
	RedirectURIs []string
}

// BootstrapResult echoes the created records plus the one-time client secret.
type BootstrapResult struct {
	Identity     domain.Identity
	Client       domain.Client
	ClientSecret string
}

// Bootstrap creates the first admin identity and client atomically.
func (s *BootstrapService) Bootstrap(ctx context.Context, p BootstrapParams) (*BootstrapResult, error) {
	now := time.Now()

	if p.Username == "" || p.Password == "" {
		return nil, ErrInvalidRequest
	}

	passwordHash, err := cryptox.HashSecret(p.Password)
	if err != nil {
		return nil, err
	}

	identity := domain.Identity{
		ID:           idx.New().String(),
		Username:     p.Username,
		DisplayName:  p.Username,
		PasswordHash: passwordHash,
		Kind:         domain.IdentityKindUser,
		Admin:        true,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	secret, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, err
	}
	secretHash, err := cryptox.HashSecret(secret)
	if err != nil {
		return nil, err
	}

	clientName := p.ClientName
	if clientName == "" {
		clientName = "taskhive-web"
	}
	redirectURIs := p.RedirectURIs
	if len(redirectURIs) == 0 {
		redirectURIs = []string{"http://localhost:3000/callback"}
	}

	client := domain.Client{
		ID:           idx.New().String(),
		Name:         clientName,
		SecretHash:   secretHash,
		RedirectURIs: redirectURIs,
		GrantTypes: []string{
			domain.GrantAuthorizationCode,
			domain.GrantRefreshToken,
			domain.GrantDeviceCode,
		},
		Scopes:    scopes.All(),
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		emptyIdentities, err := tx.Identities().IsEmpty(ctx)
		if err != nil {
			return err
		}
		emptyClients, err := tx.Clients().IsEmpty(ctx)
		if err != nil {
			return err
		}
		if !emptyIdentities || !emptyClients {
			return ErrAlreadyBootstrapped
		}

		if err := tx.Identities().CreateIdentity(ctx, identity); err != nil {
			return err
		}
		return tx.Clients().CreateClient(ctx, client)
	})
	if err != nil {
		return nil, err
	}

	return &BootstrapResult{
		Identity:     identity,
		Client:       client,
		ClientSecret: secret,
	}, nil
}
