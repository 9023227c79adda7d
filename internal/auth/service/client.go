package service

import (
	"context"
	"strings"
	"time"

	"github.com/hivework/taskhive/internal/auth/domain"
	"github.com/hivework/taskhive/internal/auth/scopes"
	"github.com/hivework/taskhive/internal/auth/store"
	"github.com/hivework/taskhive/pkg/cryptox"
	"github.com/hivework/taskhive/pkg/idx"
)

// ClientService registers OAuth clients and provisions service accounts.
// Client secrets are returned exactly once at creation; only the argon2id
// hash is stored.
type ClientService struct {
	Store store.Store
}

// CreateClientParams are the inputs for registering a client.
type CreateClientParams struct {
	Name         string
	RedirectURIs []string
	GrantTypes   []string
	Scopes       []string
	Public       bool
}

// CreateClient registers a new OAuth client. Confidential clients get a
// generated secret; public clients get none and must use PKCE.
func (s *ClientService) CreateClient(ctx context.Context, p CreateClientParams) (domain.Client, string, error) {
	now := time.Now()

	if strings.TrimSpace(p.Name) == "" {
		return domain.Client{}, "", ErrInvalidRequest
	}
	for _, sc := range p.Scopes {
		if !scopes.Known(sc) {
			return domain.Client{}, "", ErrInvalidScope
		}
	}

	client := domain.Client{
		ID:           idx.New().String(),
		Name:         strings.TrimSpace(p.Name),
		RedirectURIs: p.RedirectURIs,
		GrantTypes:   p.GrantTypes,
		Scopes:       p.Scopes,
		Public:       p.Public,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	var secret string
	if !p.Public {
		raw, err := cryptox.GenerateToken(cryptox.TokenSize256)
		if err != nil {
			return domain.Client{}, "", err
		}
		hash, err := cryptox.HashSecret(raw)
		if err != nil {
			return domain.Client{}, "", err
		}
		client.SecretHash = hash
		secret = raw
	}

	if err := s.Store.Clients().CreateClient(ctx, client); err != nil {
		return domain.Client{}, "", err
	}

	return client, secret, nil
}

// CreateServiceAccountParams are the inputs for provisioning a service
// account: a confidential client_credentials client linked to a dedicated
// non-human identity.
type CreateServiceAccountParams struct {
	Name     string
	Username string
	Scopes   []string
}

// CreateServiceAccount atomically creates the identity and its linked
// client. Tokens minted through the client carry the identity, so automated
// actions stay attributable, and deactivating the identity disables the
// grant entirely.
func (s *ClientService) CreateServiceAccount(ctx context.Context, p CreateServiceAccountParams) (domain.Client, domain.Identity, string, error) {
	now := time.Now()

	if strings.TrimSpace(p.Name) == "" || strings.TrimSpace(p.Username) == "" {
		return domain.Client{}, domain.Identity{}, "", ErrInvalidRequest
	}
	for _, sc := range p.Scopes {
		if !scopes.Known(sc) {
			return domain.Client{}, domain.Identity{}, "", ErrInvalidScope
		}
	}

	identity := domain.Identity{
		ID:          idx.New().String(),
		Username:    strings.TrimSpace(p.Username),
		DisplayName: strings.TrimSpace(p.Name),
		Kind:        domain.IdentityKindServiceAccount,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	raw, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return domain.Client{}, domain.Identity{}, "", err
	}
	hash, err := cryptox.HashSecret(raw)
	if err != nil {
		return domain.Client{}, domain.Identity{}, "", err
	}

	client := domain.Client{
		ID:         idx.New().String(),
		Name:       strings.TrimSpace(p.Name),
		SecretHash: hash,
		GrantTypes: []string{domain.GrantClientCredentials},
		Scopes:     p.Scopes,
		Active:     true,
		IdentityID: &identity.ID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Identities().CreateIdentity(ctx, identity); err != nil {
			return err
		}
		return tx.Clients().CreateClient(ctx, client)
	})
	if err != nil {
		return domain.Client{}, domain.Identity{}, "", err
	}

	return client, identity, raw, nil
}

// ListClients returns every registered client, newest first.
func (s *ClientService) ListClients(ctx context.Context) ([]domain.Client, error) {
	return s.Store.Clients().ListClients(ctx)
}

// SetActive deactivates or reactivates a client. Tokens minted through a
// deactivated client fail verification immediately.
func (s *ClientService) SetActive(ctx context.Context, id string, active bool) error {
	return s.Store.Clients().SetClientActive(ctx, id, active)
}
