package service

import (
	"context"
	"time"

	"github.com/hivework/taskhive/internal/auth/store"
	"github.com/hivework/taskhive/pkg/slogx"
)

// HousekeepingService periodically deletes expired rows. This is storage
// hygiene only: expiry is always derived from timestamps at verification and
// poll time, so correctness never depends on the sweeper having run.
type HousekeepingService struct {
	Store    store.Store
	Interval time.Duration
}

// Run sweeps on a ticker until the context is cancelled.
func (s *HousekeepingService) Run(ctx context.Context) {
	l := slogx.FromContext(ctx)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil {
				l.Warn("housekeeping sweep failed", "err", err)
			}
		}
	}
}

// Sweep removes expired codes, device sessions, and tokens.
func (s *HousekeepingService) Sweep(ctx context.Context) error {
	if err := s.Store.AuthorizationCodes().DeleteExpiredAuthorizationCodes(ctx); err != nil {
		return err
	}
	if err := s.Store.DeviceAuthorizations().DeleteExpiredDeviceAuthorizations(ctx); err != nil {
		return err
	}
	if err := s.Store.AccessTokens().DeleteExpiredAccessTokens(ctx); err != nil {
		return err
	}
	return s.Store.RefreshTokens().DeleteExpiredRefreshTokens(ctx)
}
