package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/hivework/taskhive/internal/auth/domain"
	"github.com/hivework/taskhive/internal/auth/store"
	"github.com/hivework/taskhive/pkg/cryptox"
	"github.com/hivework/taskhive/pkg/httpx"
)

// VerifyService resolves opaque bearer tokens against the store. Because
// tokens are store-backed rather than self-contained, revocation and
// identity deactivation take effect on the very next verification.
type VerifyService struct {
	Store store.Store
}

// Verification is the resolved view of a valid token.
type Verification struct {
	Token    domain.AccessToken
	Identity *domain.Identity // nil for identity-less client_credentials tokens
}

// Verify resolves an opaque access token. It returns ErrInvalidToken for
// unknown, revoked, or expired tokens, and ErrInactiveIdentity when the
// token itself is live but its subject has been deactivated.
func (s *VerifyService) Verify(ctx context.Context, opaque string) (Verification, error) {
	now := time.Now()

	opaque = strings.TrimSpace(opaque)
	if opaque == "" {
		return Verification{}, ErrInvalidToken
	}

	token, err := s.Store.AccessTokens().GetAccessTokenByHash(ctx, cryptox.FingerprintToken(opaque))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Verification{}, ErrInvalidToken
		}
		return Verification{}, err
	}

	if token.Revoked || now.After(token.ExpiresAt) {
		return Verification{}, ErrInvalidToken
	}

	client, err := s.Store.Clients().GetClientByID(ctx, token.ClientID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Verification{}, ErrInvalidToken
		}
		return Verification{}, err
	}
	if !client.Active {
		return Verification{}, ErrInvalidToken
	}

	result := Verification{Token: token}

	if token.IdentityID != nil {
		identity, err := s.Store.Identities().GetIdentityByID(ctx, *token.IdentityID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return Verification{}, ErrInvalidToken
			}
			return Verification{}, err
		}
		if !identity.Active {
			return Verification{}, ErrInactiveIdentity
		}
		result.Identity = &identity
	}

	return result, nil
}

// VerifyBearer adapts Verify to the httpx.BearerVerifier interface used by
// the authn middleware.
func (s *VerifyService) VerifyBearer(ctx context.Context, token string) (httpx.TokenInfo, error) {
	v, err := s.Verify(ctx, token)
	if err != nil {
		return httpx.TokenInfo{}, err
	}

	info := httpx.TokenInfo{
		ClientID:  v.Token.ClientID,
		Scopes:    v.Token.Scopes,
		ExpiresAt: v.Token.ExpiresAt,
	}
	if v.Token.IdentityID != nil {
		info.IdentityID = *v.Token.IdentityID
	}
	return info, nil
}
