package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBootstrap(t *testing.T) {
	st := newTestStore(t)
	boot := &BootstrapService{Store: st}

	res, err := boot.Bootstrap(context.Background(), BootstrapParams{
		Username: "admin",
		Password: "correct-staple",
	})
	require.NoError(t, err)
	assert.True(t, res.Identity.Admin)
	assert.NotEmpty(t, res.ClientSecret)
	assert.NotEmpty(t, res.Client.Scopes)

	// Second run refuses.
	_, err = boot.Bootstrap(context.Background(), BootstrapParams{
		Username: "admin2",
		Password: "correct-staple",
	})
	require.ErrorIs(t, err, ErrAlreadyBootstrapped)

	// The created admin can actually log in.
	ids := &IdentityService{Store: st}
	_, err = ids.Authenticate(context.Background(), "admin", "correct-staple")
	require.NoError(t, err)

	// And the created client can run the device flow end to end.
	devices := &DeviceService{Store: st, CodeTTL: 30 * time.Minute, PollInterval: 5}
	_, err = devices.Initiate(context.Background(), res.Client.ID, res.ClientSecret, nil)
	require.NoError(t, err)
}
