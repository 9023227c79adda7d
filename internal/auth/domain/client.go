package domain

import (
	"slices"
	"time"
)

// OAuth2 grant types a client may be allowed to use.
const (
	GrantAuthorizationCode = "authorization_code"
	GrantRefreshToken      = "refresh_token"
	GrantClientCredentials = "client_credentials"
	GrantDeviceCode        = "device_code"
)

// Client is a registered OAuth application. Clients are deactivated rather
// than deleted so issued-token history stays attributable.
type Client struct {
	ID           string
	Name         string
	SecretHash   string   // empty for public (PKCE-only) clients
	RedirectURIs []string // exact-match set for the authorization_code grant
	GrantTypes   []string
	Scopes       []string // allowed scopes; tokens never exceed these
	Public       bool     // public clients must use PKCE and have no secret
	Active       bool
	IdentityID   *string // service-account identity for client_credentials
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AllowsGrant reports whether the client is registered for the grant type.
func (c Client) AllowsGrant(grantType string) bool {
	return slices.Contains(c.GrantTypes, grantType)
}

// HasRedirectURI reports whether uri exactly matches a registered redirect URI.
func (c Client) HasRedirectURI(uri string) bool {
	return slices.Contains(c.RedirectURIs, uri)
}
