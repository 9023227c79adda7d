package service

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/hivework/taskhive/internal/auth/domain"
	"github.com/hivework/taskhive/internal/auth/scopes"
	"github.com/hivework/taskhive/internal/auth/store"
	"github.com/hivework/taskhive/pkg/cryptox"
	"github.com/hivework/taskhive/pkg/idx"
	"github.com/hivework/taskhive/pkg/slogx"
)

// TokenService implements the token endpoint grants. Access and refresh
// tokens are opaque strings; only their SHA-256 fingerprints are stored, so
// verification, introspection, and revocation all go through the store.
type TokenService struct {
	Store      store.Store
	Devices    *DeviceService
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// ExchangeAuthorizationCode implements the OAuth2 authorization_code grant.
//
// It authenticates the client (secret for confidential clients, PKCE for
// public ones), redeems the single-use code atomically, and issues a new
// access/refresh pair bound to the approving user.
func (s *TokenService) ExchangeAuthorizationCode(
	ctx context.Context,
	clientID, clientSecret, code, redirectURI, codeVerifier string,
) (*domain.TokenPair, error) {
	now := time.Now()
	l := slogx.FromContext(ctx)

	client, err := authenticateClient(ctx, s.Store, clientID, clientSecret, domain.GrantAuthorizationCode)
	if err != nil {
		return nil, err
	}

	code = strings.TrimSpace(code)
	redirectURI = strings.TrimSpace(redirectURI)
	codeVerifier = strings.TrimSpace(codeVerifier)
	if code == "" || redirectURI == "" {
		return nil, ErrInvalidGrant
	}

	codeHash := cryptox.FingerprintToken(code)

	var result *domain.TokenPair

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		authCode, err := tx.AuthorizationCodes().GetAuthorizationCodeByHash(ctx, codeHash)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidGrant
			}
			return err
		}

		if authCode.ClientID != client.ID {
			return ErrInvalidClient
		}
		if authCode.RedirectURI != redirectURI {
			return ErrInvalidGrant
		}
		if authCode.UsedAt != nil || now.After(authCode.ExpiresAt) {
			return ErrInvalidGrant
		}
		if !verifyCodeVerifier(authCode.CodeChallenge, authCode.CodeChallengeMethod, codeVerifier) {
			return ErrInvalidGrant
		}

		identity, err := tx.Identities().GetIdentityByID(ctx, authCode.IdentityID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidGrant
			}
			return err
		}
		if !identity.Active {
			l.Info("authorization_code redemption for inactive identity",
				slog.String("identity_id", identity.ID))
			return ErrInvalidGrant
		}

		// The conditional update elects exactly one winner among concurrent
		// redemptions of the same code.
		if err := tx.AuthorizationCodes().MarkAuthorizationCodeUsed(ctx, authCode.ID, now); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidGrant
			}
			return err
		}

		pair, err := s.mintPair(ctx, tx, client.ID, &identity.ID, authCode.Scopes, true, now)
		if err != nil {
			return err
		}

		result = pair
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// ExchangeRefreshToken implements the refresh_token grant with rotation: the
// presented token is revoked and a replacement issued in one transaction.
// Requested scopes may narrow the original grant but never widen it.
func (s *TokenService) ExchangeRefreshToken(
	ctx context.Context,
	clientID, clientSecret, refreshOpaque string,
	requestedScopes []string,
) (*domain.TokenPair, error) {
	now := time.Now()

	client, err := authenticateClient(ctx, s.Store, clientID, clientSecret, domain.GrantRefreshToken)
	if err != nil {
		return nil, err
	}

	fp := cryptox.FingerprintToken(strings.TrimSpace(refreshOpaque))

	var result *domain.TokenPair

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		rt, err := tx.RefreshTokens().GetRefreshTokenByHash(ctx, fp)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidRefresh
			}
			return err
		}

		if rt.Revoked || now.After(rt.ExpiresAt) {
			return ErrInvalidRefresh
		}
		if rt.ClientID != client.ID {
			return ErrInvalidClient
		}

		if rt.IdentityID != nil {
			identity, err := tx.Identities().GetIdentityByID(ctx, *rt.IdentityID)
			if err != nil {
				return err
			}
			if !identity.Active {
				return ErrInvalidRefresh
			}
		}

		// Narrowing only. Over-requesting is an error, never a truncation.
		effective := rt.Scopes
		if len(requestedScopes) > 0 {
			if !scopes.Within(requestedScopes, rt.Scopes) {
				return ErrInvalidScope
			}
			effective = requestedScopes
		}

		if err := tx.RefreshTokens().RevokeRefreshToken(ctx, fp); err != nil {
			return err
		}

		// Retire the access token that travelled with the old refresh token.
		if rt.AccessTokenID != "" {
			if err := tx.AccessTokens().RevokeAccessTokenByID(ctx, rt.AccessTokenID); err != nil {
				return err
			}
		}

		pair, err := s.mintPair(ctx, tx, client.ID, rt.IdentityID, effective, true, now)
		if err != nil {
			return err
		}

		result = pair
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// ExchangeClientCredentials implements the client_credentials grant for
// machine-to-machine callers. Only confidential clients qualify, and when a
// service-account identity is linked to the client the token carries it so
// automated actions stay attributable. No refresh token is issued; the
// client can always re-authenticate.
func (s *TokenService) ExchangeClientCredentials(
	ctx context.Context,
	clientID, clientSecret string,
	requestedScopes []string,
) (*domain.TokenPair, error) {
	now := time.Now()
	l := slogx.FromContext(ctx)

	client, err := authenticateClient(ctx, s.Store, clientID, clientSecret, domain.GrantClientCredentials)
	if err != nil {
		return nil, err
	}

	if client.SecretHash == "" {
		l.Warn("client_credentials grant attempted with public client",
			slog.String("client_id", clientID))
		return nil, ErrInvalidClient
	}

	var identityID *string
	if client.IdentityID != nil {
		identity, err := s.Store.Identities().GetIdentityByID(ctx, *client.IdentityID)
		if err != nil {
			return nil, err
		}
		// An inactive service account disables the whole grant, not just
		// attribution.
		if !identity.Active {
			l.Info("client_credentials grant rejected for inactive service account",
				slog.String("client_id", clientID),
				slog.String("identity_id", identity.ID))
			return nil, ErrInvalidClient
		}
		identityID = &identity.ID
	}

	effective := client.Scopes
	if len(requestedScopes) > 0 {
		if !scopes.Within(requestedScopes, client.Scopes) {
			return nil, ErrInvalidScope
		}
		effective = requestedScopes
	}
	if len(effective) == 0 {
		return nil, ErrInvalidScope
	}

	return s.mintPair(ctx, s.Store, client.ID, identityID, effective, false, now)
}

// ExchangeDeviceCode implements the device_code grant: each poll advances the
// device session state machine, and an approved session is consumed exactly
// once for its single token issuance.
func (s *TokenService) ExchangeDeviceCode(
	ctx context.Context,
	clientID, clientSecret, deviceCode string,
) (*domain.TokenPair, error) {
	now := time.Now()

	client, err := authenticateClient(ctx, s.Store, clientID, clientSecret, domain.GrantDeviceCode)
	if err != nil {
		return nil, err
	}

	session, err := s.Devices.Poll(ctx, client, deviceCode, now)
	if err != nil {
		return nil, err
	}

	// Consumption and minting commit together, so a mint failure cannot
	// strand an approval in the consumed state with no token issued.
	var result *domain.TokenPair

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := s.Devices.Consume(ctx, tx, session.ID, now); err != nil {
			return err
		}

		pair, err := s.mintPair(ctx, tx, client.ID, session.IdentityID, session.Scopes, true, now)
		if err != nil {
			return err
		}

		result = pair
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// RevokeToken revokes the presented opaque token, trying it first as a
// refresh token then as an access token. Per RFC 7009 an unknown token is
// not an error.
func (s *TokenService) RevokeToken(ctx context.Context, opaque string) error {
	fp := cryptox.FingerprintToken(strings.TrimSpace(opaque))

	rt, err := s.Store.RefreshTokens().GetRefreshTokenByHash(ctx, fp)
	if err == nil {
		// Revoking a refresh token also retires its paired access token.
		return s.Store.WithTx(ctx, func(tx store.Tx) error {
			if err := tx.RefreshTokens().RevokeRefreshToken(ctx, fp); err != nil {
				return err
			}
			if rt.AccessTokenID != "" {
				return tx.AccessTokens().RevokeAccessTokenByID(ctx, rt.AccessTokenID)
			}
			return nil
		})
	}
	if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	err = s.Store.AccessTokens().RevokeAccessToken(ctx, fp)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	return nil
}

// authenticateClient loads the client and checks its secret and grant
// registration. Public clients present no secret; confidential clients must
// authenticate on every token request.
func authenticateClient(ctx context.Context, st store.Store, clientID, clientSecret, grantType string) (domain.Client, error) {
	l := slogx.FromContext(ctx)

	client, err := st.Clients().GetClientByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Client{}, ErrInvalidClient
		}
		return domain.Client{}, err
	}

	if !client.Active {
		return domain.Client{}, ErrInvalidClient
	}

	if client.SecretHash != "" {
		if clientSecret == "" || cryptox.VerifySecret(clientSecret, client.SecretHash) != nil {
			l.Info("client authentication failed",
				slog.String("client_id", clientID),
				slog.String("grant_type", grantType))
			return domain.Client{}, ErrInvalidClient
		}
	}

	if !client.AllowsGrant(grantType) {
		return domain.Client{}, ErrInvalidClient
	}

	return client, nil
}

// mintPair creates and stores a new access token (and optionally a linked
// refresh token), returning the opaque strings. repos may be a transaction.
func (s *TokenService) mintPair(
	ctx context.Context,
	repos store.Repos,
	clientID string,
	identityID *string,
	scopeList []string,
	withRefresh bool,
	now time.Time,
) (*domain.TokenPair, error) {
	accessOpaque, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, err
	}

	access := domain.AccessToken{
		ID:         idx.New().String(),
		ClientID:   clientID,
		IdentityID: identityID,
		TokenHash:  cryptox.FingerprintToken(accessOpaque),
		Scopes:     scopeList,
		ExpiresAt:  now.Add(s.AccessTTL),
		CreatedAt:  now,
	}
	if err := repos.AccessTokens().CreateAccessToken(ctx, access); err != nil {
		return nil, err
	}

	pair := &domain.TokenPair{
		AccessToken: accessOpaque,
		TokenType:   "Bearer",
		ExpiresIn:   s.AccessTTL,
		Scope:       strings.Join(scopeList, " "),
	}

	if withRefresh {
		refreshOpaque, err := cryptox.GenerateToken(cryptox.TokenSize256)
		if err != nil {
			return nil, err
		}

		refresh := domain.RefreshToken{
			ID:            idx.New().String(),
			ClientID:      clientID,
			IdentityID:    identityID,
			AccessTokenID: access.ID,
			TokenHash:     cryptox.FingerprintToken(refreshOpaque),
			Scopes:        scopeList,
			ExpiresAt:     now.Add(s.RefreshTTL),
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := repos.RefreshTokens().CreateRefreshToken(ctx, refresh); err != nil {
			return nil, err
		}

		pair.RefreshToken = refreshOpaque
	}

	return pair, nil
}

func verifyCodeVerifier(challenge, method, verifier string) bool {
	challenge = strings.TrimSpace(challenge)
	if challenge == "" {
		// No PKCE challenge stored; accept regardless of verifier.
		return true
	}

	verifier = strings.TrimSpace(verifier)
	if verifier == "" {
		return false
	}

	method = strings.TrimSpace(method)
	switch {
	case method == "" || strings.EqualFold(method, "plain"):
		return subtle.ConstantTimeCompare([]byte(challenge), []byte(verifier)) == 1
	case strings.EqualFold(method, "S256"):
		sum := sha256.Sum256([]byte(verifier))
		expected := base64.RawURLEncoding.EncodeToString(sum[:])
		return subtle.ConstantTimeCompare([]byte(challenge), []byte(expected)) == 1
	default:
		return false
	}
}
