package domain

import "time"

// IdentityKind distinguishes humans from service accounts.
type IdentityKind string

const (
	IdentityKindUser           IdentityKind = "user"
	IdentityKindServiceAccount IdentityKind = "service_account"
)

// Identity is either a human user or a service account. A service account is
// an identity row with a locked (absent) credential, linked to exactly one
// client_credentials-capable client; it exists so automated actions carry an
// attributable subject instead of a bare client id.
type Identity struct {
	ID           string
	Username     string
	DisplayName  string
	PasswordHash string // argon2id encoded; empty for service accounts
	Kind         IdentityKind
	Admin        bool // system admin: full access to every project
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsServiceAccount reports whether the identity is a non-human actor.
func (i Identity) IsServiceAccount() bool {
	return i.Kind == IdentityKindServiceAccount
}
