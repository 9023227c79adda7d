package store

import (
	"context"
	"errors"
	"time"

	"github.com/hivework/taskhive/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite for now)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable, and WithTx for the handful of multi-step operations that must be
// atomic (code redemption, refresh rotation, device-code consumption).
type Store interface {
	Repos

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction, committing when fn returns nil
	// and rolling back otherwise. Prefer this over Tx directly.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Repos groups the sub-repositories shared by Store and Tx.
type Repos interface {
	Identities() Identities
	Clients() Clients
	AccessTokens() AccessTokens
	RefreshTokens() RefreshTokens
	AuthorizationCodes() AuthorizationCodes
	DeviceAuthorizations() DeviceAuthorizations
	Projects() Projects
	ProjectAccess() ProjectAccess
}

// Tx is a transactional store. It exposes the same repos but adds Commit/Rollback.
type Tx interface {
	Repos
	Commit() error
	Rollback() error
}

type Identities interface {
	// GetIdentityByID returns an identity (user or service account) by id.
	GetIdentityByID(ctx context.Context, id string) (domain.Identity, error)

	// GetIdentityByUsername is used during interactive login.
	GetIdentityByUsername(ctx context.Context, username string) (domain.Identity, error)

	// CreateIdentity inserts a new identity (id is provided by app via ULID).
	// Returns ErrAlreadyExists on username collision.
	CreateIdentity(ctx context.Context, i domain.Identity) error

	// SetIdentityActive flips the active marker. Deactivation invalidates
	// every still-unexpired token the identity carries at verification time.
	SetIdentityActive(ctx context.Context, id string, active bool) error

	// IsEmpty returns true if there are no identities (bootstrap check).
	IsEmpty(ctx context.Context) (bool, error)
}

type Clients interface {
	// GetClientByID fetches a client for grant processing.
	GetClientByID(ctx context.Context, id string) (domain.Client, error)

	// ListClients returns all clients ordered by creation date (newest first).
	ListClients(ctx context.Context) ([]domain.Client, error)

	// CreateClient inserts a new client (secret_hash empty for public clients).
	CreateClient(ctx context.Context, c domain.Client) error

	// SetClientActive deactivates or reactivates a client. Clients are never
	// hard-deleted; the audit trail of issued tokens depends on the row.
	SetClientActive(ctx context.Context, id string, active bool) error

	// IsEmpty returns true if there are no clients (bootstrap check).
	IsEmpty(ctx context.Context) (bool, error)
}

type AccessTokens interface {
	// CreateAccessToken stores a new access token record.
	CreateAccessToken(ctx context.Context, t domain.AccessToken) error

	// GetAccessTokenByHash returns the token record by its fingerprint.
	GetAccessTokenByHash(ctx context.Context, hash string) (domain.AccessToken, error)

	// RevokeAccessToken flips revoked=1 for the given fingerprint.
	RevokeAccessToken(ctx context.Context, hash string) error

	// RevokeAccessTokenByID revokes by row id. Refresh rotation uses it to
	// retire the access token paired with the rotated-out refresh token; a
	// missing row (already swept) is not an error.
	RevokeAccessTokenByID(ctx context.Context, id string) error

	// DeleteExpiredAccessTokens is storage hygiene only; expiry is always
	// checked at verification time.
	DeleteExpiredAccessTokens(ctx context.Context) error
}

type RefreshTokens interface {
	// CreateRefreshToken stores a new refresh token record.
	CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error

	// GetRefreshTokenByHash returns the token by its fingerprint.
	GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshToken, error)

	// RevokeRefreshToken flips revoked=1, sets updated_at.
	RevokeRefreshToken(ctx context.Context, hash string) error

	// DeleteExpiredRefreshTokens is optional housekeeping.
	DeleteExpiredRefreshTokens(ctx context.Context) error
}

type AuthorizationCodes interface {
	// CreateAuthorizationCode stores a freshly minted authorization code.
	CreateAuthorizationCode(ctx context.Context, code domain.AuthorizationCode) error

	// GetAuthorizationCodeByHash fetches a code by its fingerprint when redeeming.
	GetAuthorizationCodeByHash(ctx context.Context, hash string) (domain.AuthorizationCode, error)

	// MarkAuthorizationCodeUsed consumes a code. The update is conditional on
	// the code being unused, so exactly one concurrent redemption can win;
	// the losers get ErrNotFound.
	MarkAuthorizationCodeUsed(ctx context.Context, id string, usedAt time.Time) error

	// DeleteExpiredAuthorizationCodes removes codes that are no longer valid.
	DeleteExpiredAuthorizationCodes(ctx context.Context) error
}

type DeviceAuthorizations interface {
	// CreateDeviceAuthorization inserts a new pending record. Returns
	// ErrAlreadyExists when the user_code collides with a live record, in
	// which case the caller regenerates rather than failing the request.
	CreateDeviceAuthorization(ctx context.Context, d domain.DeviceAuthorization) error

	// GetDeviceAuthorizationByDeviceCodeHash fetches a record for polling.
	GetDeviceAuthorizationByDeviceCodeHash(ctx context.Context, hash string) (domain.DeviceAuthorization, error)

	// GetDeviceAuthorizationByUserCode fetches a record by normalized user
	// code for the browser approval path.
	GetDeviceAuthorizationByUserCode(ctx context.Context, userCode string) (domain.DeviceAuthorization, error)

	// DecideDeviceAuthorization transitions pending -> approved|denied,
	// binding the approving identity. Conditional on status still being
	// pending; returns ErrNotFound when the record is already terminal.
	DecideDeviceAuthorization(ctx context.Context, id string, status domain.DeviceStatus, identityID *string, at time.Time) error

	// TouchDeviceAuthorizationPoll records a poll and the (possibly widened)
	// interval for slow_down accounting.
	TouchDeviceAuthorizationPoll(ctx context.Context, id string, at time.Time, interval int) error

	// ConsumeDeviceAuthorization marks an approved record consumed.
	// Conditional on status=approved and not yet consumed, so exactly one
	// concurrent poller can mint tokens; the losers get ErrNotFound.
	ConsumeDeviceAuthorization(ctx context.Context, id string, at time.Time) error

	// DeleteExpiredDeviceAuthorizations is storage hygiene; it also frees
	// user codes for reuse. Protocol correctness never depends on it.
	DeleteExpiredDeviceAuthorizations(ctx context.Context) error
}

type Projects interface {
	// CreateProject inserts a new project owned by an identity.
	CreateProject(ctx context.Context, p domain.Project) error

	// GetProjectByID fetches a project.
	GetProjectByID(ctx context.Context, id string) (domain.Project, error)

	// ListProjects returns all projects ordered by creation date (newest first).
	ListProjects(ctx context.Context) ([]domain.Project, error)
}

type ProjectAccess interface {
	// UpsertProjectAccess creates or replaces the unique (project, identity)
	// grant row.
	UpsertProjectAccess(ctx context.Context, a domain.ProjectAccess) error

	// GetProjectAccess fetches the grant row for an identity on a project.
	GetProjectAccess(ctx context.Context, projectID, identityID string) (domain.ProjectAccess, error)

	// ListProjectAccess returns all grants on a project.
	ListProjectAccess(ctx context.Context, projectID string) ([]domain.ProjectAccess, error)

	// DeleteProjectAccess removes a grant.
	DeleteProjectAccess(ctx context.Context, projectID, identityID string) error
}
