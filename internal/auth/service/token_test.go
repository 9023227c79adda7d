package service

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hivework/taskhive/internal/auth/domain"
	"github.com/hivework/taskhive/internal/auth/scopes"
)

func s256Challenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func issueCode(t *testing.T, authz *AuthorizeService, client domain.Client, identityID, verifier string, scope []string) string {
	t.Helper()

	resp, err := authz.IssueAuthorizationCode(context.Background(), AuthorizeRequest{
		ResponseType:        "code",
		ClientID:            client.ID,
		RedirectURI:         "https://app.example.com/callback",
		Scope:               scope,
		CodeChallenge:       s256Challenge(verifier),
		CodeChallengeMethod: "S256",
		IdentityID:          identityID,
	})
	require.NoError(t, err)
	return resp.Code
}

func TestExchangeAuthorizationCode(t *testing.T) {
	st := newTestStore(t)
	user := seedUser(t, st, "alice", "password123")
	client, secret := seedClient(t, st,
		[]string{domain.GrantAuthorizationCode, domain.GrantRefreshToken},
		[]string{scopes.TasksRead, scopes.TasksWrite},
	)

	authz := &AuthorizeService{Store: st, CodeTTL: 5 * time.Minute}
	tokens := &TokenService{Store: st, AccessTTL: time.Hour, RefreshTTL: 24 * time.Hour}

	t.Run("happy path with PKCE", func(t *testing.T) {
		verifier := "correct-horse-battery-staple-0123456789abcdef"
		code := issueCode(t, authz, client, user.ID, verifier, []string{scopes.TasksRead})

		pair, err := tokens.ExchangeAuthorizationCode(context.Background(),
			client.ID, secret, code, "https://app.example.com/callback", verifier)
		require.NoError(t, err)
		assert.NotEmpty(t, pair.AccessToken)
		assert.NotEmpty(t, pair.RefreshToken)
		assert.Equal(t, scopes.TasksRead, pair.Scope)
		assert.Equal(t, "Bearer", pair.TokenType)
	})

	t.Run("code is single use", func(t *testing.T) {
		verifier := "another-sufficiently-long-code-verifier-value"
		code := issueCode(t, authz, client, user.ID, verifier, nil)

		_, err := tokens.ExchangeAuthorizationCode(context.Background(),
			client.ID, secret, code, "https://app.example.com/callback", verifier)
		require.NoError(t, err)

		_, err = tokens.ExchangeAuthorizationCode(context.Background(),
			client.ID, secret, code, "https://app.example.com/callback", verifier)
		require.ErrorIs(t, err, ErrInvalidGrant)
	})

	t.Run("concurrent redemption elects one winner", func(t *testing.T) {
		verifier := "verifier-for-the-concurrent-redemption-case"
		code := issueCode(t, authz, client, user.ID, verifier, nil)

		const attempts = 8
		errs := make(chan error, attempts)

		var wg sync.WaitGroup
		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := tokens.ExchangeAuthorizationCode(context.Background(),
					client.ID, secret, code, "https://app.example.com/callback", verifier)
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)

		wins := 0
		for err := range errs {
			if err == nil {
				wins++
				continue
			}
			require.ErrorIs(t, err, ErrInvalidGrant)
		}
		assert.Equal(t, 1, wins, "the code must be spent exactly once")
	})

	t.Run("wrong verifier rejected", func(t *testing.T) {
		verifier := "the-original-verifier-that-was-used-at-issuance"
		code := issueCode(t, authz, client, user.ID, verifier, nil)

		_, err := tokens.ExchangeAuthorizationCode(context.Background(),
			client.ID, secret, code, "https://app.example.com/callback", "a-completely-different-verifier")
		require.ErrorIs(t, err, ErrInvalidGrant)
	})

	t.Run("redirect URI must match issuance", func(t *testing.T) {
		verifier := "yet-another-verifier-for-the-redirect-case-x"
		code := issueCode(t, authz, client, user.ID, verifier, nil)

		_, err := tokens.ExchangeAuthorizationCode(context.Background(),
			client.ID, secret, code, "https://evil.example.com/callback", verifier)
		require.ErrorIs(t, err, ErrInvalidGrant)
	})

	t.Run("wrong client secret rejected", func(t *testing.T) {
		verifier := "verifier-used-for-the-client-secret-test-case"
		code := issueCode(t, authz, client, user.ID, verifier, nil)

		_, err := tokens.ExchangeAuthorizationCode(context.Background(),
			client.ID, "not-the-secret", code, "https://app.example.com/callback", verifier)
		require.ErrorIs(t, err, ErrInvalidClient)
	})
}

func TestExchangeRefreshToken(t *testing.T) {
	st := newTestStore(t)
	user := seedUser(t, st, "bob", "password123")
	client, secret := seedClient(t, st,
		[]string{domain.GrantAuthorizationCode, domain.GrantRefreshToken},
		[]string{scopes.TasksRead, scopes.TasksWrite},
	)

	authz := &AuthorizeService{Store: st, CodeTTL: 5 * time.Minute}
	tokens := &TokenService{Store: st, AccessTTL: time.Hour, RefreshTTL: 24 * time.Hour}

	mint := func(t *testing.T, scope []string) *domain.TokenPair {
		verifier := "refresh-test-verifier-" + time.Now().Format("150405.000000000")
		code := issueCode(t, authz, client, user.ID, verifier, scope)
		pair, err := tokens.ExchangeAuthorizationCode(context.Background(),
			client.ID, secret, code, "https://app.example.com/callback", verifier)
		require.NoError(t, err)
		return pair
	}

	t.Run("rotation revokes the presented token", func(t *testing.T) {
		pair := mint(t, nil)

		rotated, err := tokens.ExchangeRefreshToken(context.Background(),
			client.ID, secret, pair.RefreshToken, nil)
		require.NoError(t, err)
		assert.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)

		// The old refresh token is dead.
		_, err = tokens.ExchangeRefreshToken(context.Background(),
			client.ID, secret, pair.RefreshToken, nil)
		require.ErrorIs(t, err, ErrInvalidRefresh)

		// So is the access token that travelled with it.
		verify := &VerifyService{Store: st}
		_, err = verify.Verify(context.Background(), pair.AccessToken)
		require.ErrorIs(t, err, ErrInvalidToken)

		// The new one still works.
		_, err = tokens.ExchangeRefreshToken(context.Background(),
			client.ID, secret, rotated.RefreshToken, nil)
		require.NoError(t, err)
	})

	t.Run("narrowing allowed, widening rejected", func(t *testing.T) {
		pair := mint(t, []string{scopes.TasksRead, scopes.TasksWrite})

		narrowed, err := tokens.ExchangeRefreshToken(context.Background(),
			client.ID, secret, pair.RefreshToken, []string{scopes.TasksRead})
		require.NoError(t, err)
		assert.Equal(t, scopes.TasksRead, narrowed.Scope)

		// The narrowed grant cannot be widened back.
		_, err = tokens.ExchangeRefreshToken(context.Background(),
			client.ID, secret, narrowed.RefreshToken, []string{scopes.TasksRead, scopes.TasksWrite})
		require.ErrorIs(t, err, ErrInvalidScope)
	})

	t.Run("deactivated identity kills the refresh chain", func(t *testing.T) {
		victim := seedUser(t, st, "carol", "password123")
		verifier := "refresh-deactivation-test-verifier-000000001"
		code := issueCode(t, authz, client, victim.ID, verifier, nil)
		pair, err := tokens.ExchangeAuthorizationCode(context.Background(),
			client.ID, secret, code, "https://app.example.com/callback", verifier)
		require.NoError(t, err)

		require.NoError(t, st.Identities().SetIdentityActive(context.Background(), victim.ID, false))

		_, err = tokens.ExchangeRefreshToken(context.Background(),
			client.ID, secret, pair.RefreshToken, nil)
		require.ErrorIs(t, err, ErrInvalidRefresh)
	})
}

func TestExchangeClientCredentials(t *testing.T) {
	st := newTestStore(t)

	t.Run("token carries the linked service account", func(t *testing.T) {
		sa := seedServiceAccount(t, st, "svc-reporter")
		client, secret := seedClient(t, st,
			[]string{domain.GrantClientCredentials},
			[]string{scopes.TasksRead},
		)
		linked := client
		linked.ID = linked.ID + "-sa"
		linked.IdentityID = &sa.ID
		require.NoError(t, st.Clients().CreateClient(context.Background(), linked))

		tokens := &TokenService{Store: st, AccessTTL: time.Hour, RefreshTTL: 24 * time.Hour}

		pair, err := tokens.ExchangeClientCredentials(context.Background(), linked.ID, secret, nil)
		require.NoError(t, err)
		assert.NotEmpty(t, pair.AccessToken)
		assert.Empty(t, pair.RefreshToken, "client_credentials issues no refresh token")

		verify := &VerifyService{Store: st}
		v, err := verify.Verify(context.Background(), pair.AccessToken)
		require.NoError(t, err)
		require.NotNil(t, v.Identity)
		assert.Equal(t, sa.ID, v.Identity.ID)
	})

	t.Run("unlinked client mints an unattributed token", func(t *testing.T) {
		client, secret := seedClient(t, st,
			[]string{domain.GrantClientCredentials},
			[]string{scopes.TasksRead},
		)

		tokens := &TokenService{Store: st, AccessTTL: time.Hour, RefreshTTL: 24 * time.Hour}

		pair, err := tokens.ExchangeClientCredentials(context.Background(), client.ID, secret, nil)
		require.NoError(t, err)

		verify := &VerifyService{Store: st}
		v, err := verify.Verify(context.Background(), pair.AccessToken)
		require.NoError(t, err)
		assert.Nil(t, v.Identity, "no linked service account, nothing to attribute")
	})

	t.Run("inactive service account disables the grant", func(t *testing.T) {
		sa := seedServiceAccount(t, st, "svc-disabled")
		client, secret := seedClient(t, st,
			[]string{domain.GrantClientCredentials},
			[]string{scopes.TasksRead},
		)
		linked := client
		linked.ID = linked.ID + "-sa"
		linked.IdentityID = &sa.ID
		require.NoError(t, st.Clients().CreateClient(context.Background(), linked))
		require.NoError(t, st.Identities().SetIdentityActive(context.Background(), sa.ID, false))

		tokens := &TokenService{Store: st, AccessTTL: time.Hour, RefreshTTL: 24 * time.Hour}

		_, err := tokens.ExchangeClientCredentials(context.Background(), linked.ID, secret, nil)
		require.ErrorIs(t, err, ErrInvalidClient)
	})

	t.Run("over-requested scope is an error, not a truncation", func(t *testing.T) {
		client, secret := seedClient(t, st,
			[]string{domain.GrantClientCredentials},
			[]string{scopes.TasksRead},
		)

		tokens := &TokenService{Store: st, AccessTTL: time.Hour, RefreshTTL: 24 * time.Hour}

		_, err := tokens.ExchangeClientCredentials(context.Background(),
			client.ID, secret, []string{scopes.TasksRead, scopes.Admin})
		require.ErrorIs(t, err, ErrInvalidScope)
	})

	t.Run("public client rejected", func(t *testing.T) {
		client := seedPublicClient(t, st,
			[]string{domain.GrantClientCredentials},
			[]string{scopes.TasksRead},
		)

		tokens := &TokenService{Store: st, AccessTTL: time.Hour, RefreshTTL: 24 * time.Hour}

		_, err := tokens.ExchangeClientCredentials(context.Background(), client.ID, "", nil)
		require.ErrorIs(t, err, ErrInvalidClient)
	})
}
