package domain

import "time"

// AuthorizationCode represents an OAuth 2.0 authorization code issuance.
// Codes are single-use: redemption flags UsedAt atomically, so a second
// redemption of the same code always fails.
type AuthorizationCode struct {
	ID                  string
	IdentityID          string // the user who approved the request
	ClientID            string
	CodeHash            string
	RedirectURI         string // must exactly match at redemption
	Scopes              []string
	CodeChallenge       string // empty when PKCE was not used
	CodeChallengeMethod string // "S256" or "plain"
	ExpiresAt           time.Time
	UsedAt              *time.Time
	CreatedAt           time.Time
}
