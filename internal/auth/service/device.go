package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hivework/taskhive/internal/auth/domain"
	"github.com/hivework/taskhive/internal/auth/scopes"
	"github.com/hivework/taskhive/internal/auth/store"
	"github.com/hivework/taskhive/pkg/cryptox"
	"github.com/hivework/taskhive/pkg/idx"
	"github.com/hivework/taskhive/pkg/slogx"
)

const (
	// maxUserCodeAttempts bounds regeneration when a freshly minted user code
	// collides with a live session.
	maxUserCodeAttempts = 5

	// slowDownStep is how many seconds the poll interval widens each time a
	// device polls faster than it was told to.
	slowDownStep = 5
)

// DeviceService runs the RFC 8628 device authorization flow: a constrained
// device obtains a device code and a short user code, the user approves or
// denies the session in a browser, and the device polls the token endpoint
// until the session reaches a terminal state.
type DeviceService struct {
	Store        store.Store
	CodeTTL      time.Duration
	PollInterval int // seconds between polls; widened on slow_down
}

// DeviceAuthorizationResult is what the device receives when a session is
// opened. DeviceCode and UserCode are returned exactly once; only their
// hashed/normalized forms are stored.
type DeviceAuthorizationResult struct {
	DeviceCode string
	UserCode   string // formatted for display, e.g. "BCDF-GHJK"
	ExpiresIn  time.Duration
	Interval   int
}

// Initiate opens a new pending device session for the client. The user code
// is unique among live sessions; on collision it is regenerated rather than
// failing the request.
func (s *DeviceService) Initiate(
	ctx context.Context,
	clientID, clientSecret string,
	requestedScopes []string,
) (*DeviceAuthorizationResult, error) {
	now := time.Now()
	l := slogx.FromContext(ctx)

	client, err := authenticateClient(ctx, s.Store, clientID, clientSecret, domain.GrantDeviceCode)
	if err != nil {
		return nil, err
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

	deviceCode, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, err
	}

	session := domain.DeviceAuthorization{
		ID:             idx.New().String(),
		ClientID:       client.ID,
		DeviceCodeHash: cryptox.FingerprintToken(deviceCode),
		Scopes:         effective,
		Status:         domain.DeviceStatusPending,
		PollInterval:   s.PollInterval,
		ExpiresAt:      now.Add(s.CodeTTL),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	for attempt := 0; ; attempt++ {
		userCode, err := cryptox.GenerateUserCode()
		if err != nil {
			return nil, err
		}
		session.UserCode = cryptox.NormalizeUserCode(userCode)

		err = s.Store.DeviceAuthorizations().CreateDeviceAuthorization(ctx, session)
		if err == nil {
			break
		}
		if errors.Is(err, store.ErrAlreadyExists) && attempt < maxUserCodeAttempts-1 {
			l.Debug("user code collision, regenerating",
				slog.Int("attempt", attempt+1))
			continue
		}
		return nil, err
	}

	return &DeviceAuthorizationResult{
		DeviceCode: deviceCode,
		UserCode:   cryptox.FormatUserCode(session.UserCode),
		ExpiresIn:  s.CodeTTL,
		Interval:   s.PollInterval,
	}, nil
}

// Approve binds the approving user to a pending session. Approving a session
// that was already decided, or that has expired, fails with ErrInvalidState
// rather than silently re-deciding.
func (s *DeviceService) Approve(ctx context.Context, userCode, identityID string) error {
	return s.decide(ctx, userCode, domain.DeviceStatusApproved, identityID)
}

// Deny marks a pending session denied. Same state rules as Approve.
func (s *DeviceService) Deny(ctx context.Context, userCode, identityID string) error {
	return s.decide(ctx, userCode, domain.DeviceStatusDenied, identityID)
}

func (s *DeviceService) decide(ctx context.Context, userCode string, status domain.DeviceStatus, identityID string) error {
	now := time.Now()

	normalized := cryptox.NormalizeUserCode(userCode)
	if normalized == "" {
		return ErrInvalidState
	}

	session, err := s.Store.DeviceAuthorizations().GetDeviceAuthorizationByUserCode(ctx, normalized)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidState
		}
		return err
	}

	if session.Terminal(now) {
		return ErrInvalidState
	}

	// Conditional on the row still being pending; a concurrent decision wins
	// and this one gets ErrInvalidState.
	err = s.Store.DeviceAuthorizations().DecideDeviceAuthorization(ctx, session.ID, status, &identityID, now)
	if errors.Is(err, store.ErrNotFound) {
		return ErrInvalidState
	}
	return err
}

// Poll advances the poll state machine for one token-endpoint poll. An
// approved, unconsumed session is returned for issuance; consuming it is the
// caller's job via Consume so that consumption commits together with the
// token mint.
func (s *DeviceService) Poll(
	ctx context.Context,
	client domain.Client,
	deviceCode string,
	now time.Time,
) (domain.DeviceAuthorization, error) {
	hash := cryptox.FingerprintToken(deviceCode)

	session, err := s.Store.DeviceAuthorizations().GetDeviceAuthorizationByDeviceCodeHash(ctx, hash)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.DeviceAuthorization{}, ErrInvalidGrant
		}
		return domain.DeviceAuthorization{}, err
	}

	if session.ClientID != client.ID {
		return domain.DeviceAuthorization{}, ErrInvalidGrant
	}

	// Expiry is derived lazily; no sweeper is needed for correctness.
	if session.Expired(now) {
		return domain.DeviceAuthorization{}, ErrExpiredToken
	}

	switch session.Status {
	case domain.DeviceStatusPending:
		interval := session.PollInterval
		tooFast := session.LastPolledAt != nil &&
			now.Sub(*session.LastPolledAt) < time.Duration(interval)*time.Second
		if tooFast {
			interval += slowDownStep
		}
		if err := s.Store.DeviceAuthorizations().TouchDeviceAuthorizationPoll(ctx, session.ID, now, interval); err != nil {
			return domain.DeviceAuthorization{}, err
		}
		if tooFast {
			return domain.DeviceAuthorization{}, ErrSlowDown
		}
		return domain.DeviceAuthorization{}, ErrAuthorizationPending

	case domain.DeviceStatusDenied:
		return domain.DeviceAuthorization{}, ErrAccessDenied

	case domain.DeviceStatusApproved:
		if session.ConsumedAt != nil {
			return domain.DeviceAuthorization{}, ErrInvalidState
		}
		return session, nil

	default:
		return domain.DeviceAuthorization{}, ErrInvalidGrant
	}
}

// Consume marks an approved session consumed. The conditional update elects
// one winner among concurrent polls; a loser gets ErrInvalidState. repos may
// be a transaction.
func (s *DeviceService) Consume(ctx context.Context, repos store.Repos, sessionID string, now time.Time) error {
	err := repos.DeviceAuthorizations().ConsumeDeviceAuthorization(ctx, sessionID, now)
	if errors.Is(err, store.ErrNotFound) {
		return ErrInvalidState
	}
	return err
}
