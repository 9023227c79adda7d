package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hivework/taskhive/pkg/authsdk"
)

type serviceAccountResult struct {
	Client struct {
		ID     string `json:"id"`
		Secret string `json:"secret"`
	} `json:"client"`
	Identity struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	} `json:"identity"`
}

func createServiceAccount(t *testing.T, e *env, bearer, name, username string, scopes []string) serviceAccountResult {
	t.Helper()

	status, body := e.postJSON(t, "/v1/service-accounts", map[string]any{
		"name":     name,
		"username": username,
		"scopes":   scopes,
	}, bearer)
	require.Equal(t, http.StatusCreated, status, "create service account: %s", body)

	var out serviceAccountResult
	require.NoError(t, json.Unmarshal(body, &out))
	require.NotEmpty(t, out.Client.Secret)
	return out
}

func TestClientCredentialsAttribution(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	admin := e.adminToken(t)
	sa := createServiceAccount(t, e, admin.AccessToken,
		"ci-runner", "ci-runner", []string{"tasks:read", "tasks:write"})

	tok, err := e.SDK.ClientCredentials(ctx, sa.Client.ID, sa.Client.Secret, nil)
	require.NoError(t, err)
	require.NotEmpty(t, tok.AccessToken)
	require.Empty(t, tok.RefreshToken, "client_credentials must not issue a refresh token")

	// The token is attributed to the service-account identity.
	intro, err := e.SDK.Introspect(ctx, admin.AccessToken, tok.AccessToken)
	require.NoError(t, err)
	require.True(t, intro.Active)
	require.Equal(t, sa.Client.ID, intro.ClientID)
	require.Equal(t, sa.Identity.ID, intro.UserID)
}

func TestClientCredentialsInactiveServiceAccount(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	admin := e.adminToken(t)
	sa := createServiceAccount(t, e, admin.AccessToken,
		"retired-bot", "retired-bot", []string{"tasks:read"})

	status, _ := e.postJSON(t, "/v1/identities/"+sa.Identity.ID+"/active",
		map[string]any{"active": false}, admin.AccessToken)
	require.Equal(t, http.StatusNoContent, status)

	_, err := e.SDK.ClientCredentials(ctx, sa.Client.ID, sa.Client.Secret, nil)
	var oauthErr *authsdk.OAuth2Error
	require.ErrorAs(t, err, &oauthErr)
	require.Equal(t, authsdk.ErrorCodeInvalidClient, oauthErr.Code)
}

func TestClientCredentialsScopeOverRequest(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	admin := e.adminToken(t)
	sa := createServiceAccount(t, e, admin.AccessToken,
		"narrow-bot", "narrow-bot", []string{"tasks:read"})

	_, err := e.SDK.ClientCredentials(ctx, sa.Client.ID, sa.Client.Secret, []string{"tasks:read", "admin"})
	var oauthErr *authsdk.OAuth2Error
	require.ErrorAs(t, err, &oauthErr)
	require.Equal(t, authsdk.ErrorCodeInvalidScope, oauthErr.Code)
}

func TestServiceAccountRequiresAdminScope(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	admin := e.adminToken(t)
	sa := createServiceAccount(t, e, admin.AccessToken,
		"unprivileged-bot", "unprivileged-bot", []string{"tasks:read"})

	tok, err := e.SDK.ClientCredentials(ctx, sa.Client.ID, sa.Client.Secret, nil)
	require.NoError(t, err)

	// A tasks:read token cannot drive the admin surface.
	status, _ := e.postJSON(t, "/v1/service-accounts", map[string]any{
		"name":     "sneaky",
		"username": "sneaky",
		"scopes":   []string{"tasks:read"},
	}, tok.AccessToken)
	require.Equal(t, http.StatusForbidden, status)
}
