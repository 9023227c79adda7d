package domain

import "time"

// TokenPair is what the token endpoint returns: an opaque access token and,
// for grants that issue one, an opaque refresh token.
type TokenPair struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token,omitempty"`
	TokenType    string        `json:"token_type,omitempty"` // typically "Bearer"
	ExpiresIn    time.Duration `json:"expires_in"`           // seconds until expiry
	Scope        string        `json:"scope,omitempty"`      // space-delimited
}

// AccessToken models a stored access token record. Tokens are opaque bearer
// strings held by clients; the database keeps only the fingerprint. Records
// are immutable once issued apart from the revoked marker.
type AccessToken struct {
	ID         string
	ClientID   string
	IdentityID *string // nil only for identity-less client_credentials tokens
	TokenHash  string  // base64url SHA-256 fingerprint
	Scopes     []string
	ExpiresAt  time.Time
	Revoked    bool
	CreatedAt  time.Time
}

// RefreshToken models the stored refresh token record.
type RefreshToken struct {
	ID            string
	ClientID      string
	IdentityID    *string
	TokenHash     string
	AccessTokenID string // rotation chain pointer: the access token this renews
	Scopes        []string
	ExpiresAt     time.Time
	Revoked       bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
