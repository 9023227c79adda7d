package service

import "errors"

// Sentinel errors returned by the services. HTTP handlers map these onto the
// OAuth2 error vocabulary; services never touch HTTP status codes.
var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrInvalidClient      = errors.New("invalid_client")
	ErrInvalidGrant       = errors.New("invalid_grant")
	ErrInvalidScope       = errors.New("invalid_scope")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrInvalidRefresh     = errors.New("invalid_refresh_token")

	// Device flow poll outcomes (RFC 8628 section 3.5).
	ErrAuthorizationPending = errors.New("authorization_pending")
	ErrSlowDown             = errors.New("slow_down")
	ErrAccessDenied         = errors.New("access_denied")
	ErrExpiredToken         = errors.New("expired_token")

	// ErrInvalidState marks a device session operation against the wrong
	// state: an approve/deny attempt on a session that is no longer pending,
	// or a poll of an approval that was already consumed.
	ErrInvalidState = errors.New("invalid_state")

	// Verification failures.
	ErrInvalidToken     = errors.New("invalid_token")
	ErrInactiveIdentity = errors.New("inactive_identity")
)
