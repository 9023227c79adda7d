package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hivework/taskhive/internal/auth/domain"
	"github.com/hivework/taskhive/internal/auth/scopes"
	"github.com/hivework/taskhive/internal/auth/store"
)

func TestDeviceFlow(t *testing.T) {
	st := newTestStore(t)
	user := seedUser(t, st, "dana", "password123")
	client, secret := seedClient(t, st,
		[]string{domain.GrantDeviceCode, domain.GrantRefreshToken},
		[]string{scopes.TasksRead, scopes.TasksWrite},
	)

	devices := &DeviceService{Store: st, CodeTTL: 30 * time.Minute, PollInterval: 5}
	tokens := &TokenService{Store: st, Devices: devices, AccessTTL: time.Hour, RefreshTTL: 24 * time.Hour}

	initiate := func(t *testing.T) *DeviceAuthorizationResult {
		t.Helper()
		res, err := devices.Initiate(context.Background(), client.ID, secret, []string{scopes.TasksRead})
		require.NoError(t, err)
		return res
	}

	t.Run("initiate returns codes and interval", func(t *testing.T) {
		res := initiate(t)
		assert.NotEmpty(t, res.DeviceCode)
		assert.Len(t, res.UserCode, 9, "grouped form XXXX-XXXX")
		assert.Equal(t, 5, res.Interval)
		assert.Equal(t, 30*time.Minute, res.ExpiresIn)
	})

	t.Run("pending poll then approve then tokens", func(t *testing.T) {
		res := initiate(t)

		_, err := tokens.ExchangeDeviceCode(context.Background(), client.ID, secret, res.DeviceCode)
		require.ErrorIs(t, err, ErrAuthorizationPending)

		require.NoError(t, devices.Approve(context.Background(), res.UserCode, user.ID))

		pair, err := tokens.ExchangeDeviceCode(context.Background(), client.ID, secret, res.DeviceCode)
		require.NoError(t, err)
		assert.NotEmpty(t, pair.AccessToken)
		assert.NotEmpty(t, pair.RefreshToken)

		verify := &VerifyService{Store: st}
		v, err := verify.Verify(context.Background(), pair.AccessToken)
		require.NoError(t, err)
		require.NotNil(t, v.Identity)
		assert.Equal(t, user.ID, v.Identity.ID)
	})

	t.Run("approval is consumed exactly once", func(t *testing.T) {
		res := initiate(t)
		require.NoError(t, devices.Approve(context.Background(), res.UserCode, user.ID))

		_, err := tokens.ExchangeDeviceCode(context.Background(), client.ID, secret, res.DeviceCode)
		require.NoError(t, err)

		_, err = tokens.ExchangeDeviceCode(context.Background(), client.ID, secret, res.DeviceCode)
		require.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("failed issuance does not strand the approval", func(t *testing.T) {
		res := initiate(t)
		require.NoError(t, devices.Approve(context.Background(), res.UserCode, user.ID))
		session := sessionByUserCode(t, st, res)

		// Abort a transaction after consuming, as a failed mint would.
		boom := errors.New("boom")
		err := st.WithTx(context.Background(), func(tx store.Tx) error {
			if err := devices.Consume(context.Background(), tx, session.ID, time.Now()); err != nil {
				return err
			}
			return boom
		})
		require.ErrorIs(t, err, boom)

		// The rollback leaves the approval intact for the next poll.
		pair, err := tokens.ExchangeDeviceCode(context.Background(), client.ID, secret, res.DeviceCode)
		require.NoError(t, err)
		assert.NotEmpty(t, pair.AccessToken)
	})

	t.Run("denied session reports access_denied", func(t *testing.T) {
		res := initiate(t)
		require.NoError(t, devices.Deny(context.Background(), res.UserCode, user.ID))

		_, err := tokens.ExchangeDeviceCode(context.Background(), client.ID, secret, res.DeviceCode)
		require.ErrorIs(t, err, ErrAccessDenied)
	})

	t.Run("deciding twice fails with invalid state", func(t *testing.T) {
		res := initiate(t)
		require.NoError(t, devices.Approve(context.Background(), res.UserCode, user.ID))

		require.ErrorIs(t, devices.Approve(context.Background(), res.UserCode, user.ID), ErrInvalidState)
		require.ErrorIs(t, devices.Deny(context.Background(), res.UserCode, user.ID), ErrInvalidState)
	})

	t.Run("user code input is normalized", func(t *testing.T) {
		res := initiate(t)

		sloppy := " " + res.UserCode[:4] + " " + res.UserCode[5:] + " "
		require.NoError(t, devices.Approve(context.Background(), sloppy, user.ID))
	})

	t.Run("polling too fast widens the interval", func(t *testing.T) {
		res := initiate(t)

		_, err := tokens.ExchangeDeviceCode(context.Background(), client.ID, secret, res.DeviceCode)
		require.ErrorIs(t, err, ErrAuthorizationPending)

		// Immediate re-poll is inside the 5s window.
		_, err = tokens.ExchangeDeviceCode(context.Background(), client.ID, secret, res.DeviceCode)
		require.ErrorIs(t, err, ErrSlowDown)

		session := sessionByUserCode(t, st, res)
		assert.Equal(t, 5+slowDownStep, session.PollInterval)
	})

	t.Run("unknown device code", func(t *testing.T) {
		_, err := tokens.ExchangeDeviceCode(context.Background(), client.ID, secret, "not-a-real-device-code")
		require.ErrorIs(t, err, ErrInvalidGrant)
	})

	t.Run("expired session lazily reports expired_token", func(t *testing.T) {
		short := &DeviceService{Store: st, CodeTTL: -time.Second, PollInterval: 5}
		res, err := short.Initiate(context.Background(), client.ID, secret, nil)
		require.NoError(t, err)

		shortTokens := &TokenService{Store: st, Devices: short, AccessTTL: time.Hour, RefreshTTL: 24 * time.Hour}
		_, err = shortTokens.ExchangeDeviceCode(context.Background(), client.ID, secret, res.DeviceCode)
		require.ErrorIs(t, err, ErrExpiredToken)

		// Expired sessions cannot be decided either.
		require.ErrorIs(t, short.Approve(context.Background(), res.UserCode, user.ID), ErrInvalidState)
	})

	t.Run("scope over-request rejected at initiation", func(t *testing.T) {
		_, err := devices.Initiate(context.Background(), client.ID, secret, []string{scopes.Admin})
		require.ErrorIs(t, err, ErrInvalidScope)
	})
}
