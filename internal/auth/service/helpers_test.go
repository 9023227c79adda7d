package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hivework/taskhive/internal/auth/domain"
	"github.com/hivework/taskhive/internal/auth/store"
	"github.com/hivework/taskhive/internal/auth/store/drivers/sqlite"
	"github.com/hivework/taskhive/pkg/cryptox"
	"github.com/hivework/taskhive/pkg/idx"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	return st
}

func seedUser(t *testing.T, st store.Store, username, password string) domain.Identity {
	t.Helper()

	hash, err := cryptox.HashSecret(password)
	require.NoError(t, err)

	now := time.Now()
	identity := domain.Identity{
		ID:           idx.New().String(),
		Username:     username,
		DisplayName:  username,
		PasswordHash: hash,
		Kind:         domain.IdentityKindUser,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, st.Identities().CreateIdentity(context.Background(), identity))

	return identity
}

func seedServiceAccount(t *testing.T, st store.Store, username string) domain.Identity {
	t.Helper()

	now := time.Now()
	identity := domain.Identity{
		ID:          idx.New().String(),
		Username:    username,
		DisplayName: username,
		Kind:        domain.IdentityKindServiceAccount,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, st.Identities().CreateIdentity(context.Background(), identity))

	return identity
}

// seedClient creates a confidential client and returns it with its raw secret.
func seedClient(t *testing.T, st store.Store, grantTypes, clientScopes []string) (domain.Client, string) {
	t.Helper()

	secret := "test-secret-" + idx.New().String()
	hash, err := cryptox.HashSecret(secret)
	require.NoError(t, err)

	now := time.Now()
	client := domain.Client{
		ID:           idx.New().String(),
		Name:         "test client",
		SecretHash:   hash,
		RedirectURIs: []string{"https://app.example.com/callback"},
		GrantTypes:   grantTypes,
		Scopes:       clientScopes,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, st.Clients().CreateClient(context.Background(), client))

	return client, secret
}

func sessionByUserCode(t *testing.T, st store.Store, res *DeviceAuthorizationResult) domain.DeviceAuthorization {
	t.Helper()

	session, err := st.DeviceAuthorizations().GetDeviceAuthorizationByUserCode(
		context.Background(), cryptox.NormalizeUserCode(res.UserCode))
	require.NoError(t, err)
	return session
}

func seedPublicClient(t *testing.T, st store.Store, grantTypes, clientScopes []string) domain.Client {
	t.Helper()

	now := time.Now()
	client := domain.Client{
		ID:           idx.New().String(),
		Name:         "test public client",
		RedirectURIs: []string{"https://app.example.com/callback"},
		GrantTypes:   grantTypes,
		Scopes:       clientScopes,
		Public:       true,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, st.Clients().CreateClient(context.Background(), client))

	return client
}
