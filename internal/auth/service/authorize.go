package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/hivework/taskhive/internal/auth/domain"
	"github.com/hivework/taskhive/internal/auth/scopes"
	"github.com/hivework/taskhive/internal/auth/store"
	"github.com/hivework/taskhive/pkg/cryptox"
	"github.com/hivework/taskhive/pkg/idx"
)

// ErrLoginRequired is returned when the authorization endpoint is hit
// without an authenticated user and without credentials.
var ErrLoginRequired = errors.New("login_required")

// AuthorizeService issues authorization codes for the RFC 6749 section 4.1
// flow. Codes are short-lived, single-use, and bound to the exact
// redirect_uri and PKCE challenge presented at issuance.
type AuthorizeService struct {
	Store   store.Store
	CodeTTL time.Duration
}

// AuthorizeRequest captures the validated inputs required to issue a code.
// IdentityID is the already-authenticated user; handlers resolve it from a
// bearer token or an interactive login before calling the service.
type AuthorizeRequest struct {
	ResponseType        string
	ClientID            string
	RedirectURI         string
	Scope               []string
	State               string
	CodeChallenge       string
	CodeChallengeMethod string
	IdentityID          string
}

// AuthorizeCodeResponse carries the code and the redirect parameters the
// handler echoes back to the client.
type AuthorizeCodeResponse struct {
	Code        string
	RedirectURI string
	State       string
}

// IssueAuthorizationCode validates the request and mints a single-use code.
//
// Public clients must present a PKCE challenge; confidential clients may.
// The redirect_uri must exactly match one registered on the client, and the
// requested scopes must sit within the client's allowed set. Over-requesting
// is rejected, never truncated.
func (s *AuthorizeService) IssueAuthorizationCode(ctx context.Context, req AuthorizeRequest) (*AuthorizeCodeResponse, error) {
	now := time.Now()

	if req.ResponseType != "code" {
		return nil, ErrInvalidRequest
	}
	if req.IdentityID == "" {
		return nil, ErrLoginRequired
	}

	client, err := s.Store.Clients().GetClientByID(ctx, req.ClientID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidClient
		}
		return nil, err
	}
	if !client.Active || !client.AllowsGrant(domain.GrantAuthorizationCode) {
		return nil, ErrInvalidClient
	}

	redirectURI := strings.TrimSpace(req.RedirectURI)
	if redirectURI == "" || !client.HasRedirectURI(redirectURI) {
		return nil, ErrInvalidRequest
	}

	challenge := strings.TrimSpace(req.CodeChallenge)
	method := strings.TrimSpace(req.CodeChallengeMethod)
	if challenge == "" {
		if client.Public {
			// PKCE is mandatory for public clients.
			return nil, ErrInvalidRequest
		}
		method = ""
	} else {
		if method == "" {
			method = "S256"
		}
		if !strings.EqualFold(method, "S256") && !strings.EqualFold(method, "plain") {
			return nil, ErrInvalidRequest
		}
	}

	effective := client.Scopes
	if len(req.Scope) > 0 {
		if !scopes.Within(req.Scope, client.Scopes) {
			return nil, ErrInvalidScope
		}
		effective = req.Scope
	}
	if len(effective) == 0 {
		return nil, ErrInvalidScope
	}

	identity, err := s.Store.Identities().GetIdentityByID(ctx, req.IdentityID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidGrant
		}
		return nil, err
	}
	// Service accounts never hold interactive sessions.
	if !identity.Active || identity.IsServiceAccount() {
		return nil, ErrInvalidGrant
	}

	codeOpaque, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, err
	}

	code := domain.AuthorizationCode{
		ID:                  idx.New().String(),
		IdentityID:          identity.ID,
		ClientID:            client.ID,
		CodeHash:            cryptox.FingerprintToken(codeOpaque),
		RedirectURI:         redirectURI,
		Scopes:              effective,
		CodeChallenge:       challenge,
		CodeChallengeMethod: method,
		ExpiresAt:           now.Add(s.CodeTTL),
		CreatedAt:           now,
	}

	if err := s.Store.AuthorizationCodes().CreateAuthorizationCode(ctx, code); err != nil {
		return nil, err
	}

	return &AuthorizeCodeResponse{
		Code:        codeOpaque,
		RedirectURI: redirectURI,
		State:       req.State,
	}, nil
}
