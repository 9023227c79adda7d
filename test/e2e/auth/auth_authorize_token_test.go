package auth_test

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hivework/taskhive/pkg/authsdk"
)

func TestAuthorizationCodeFlow(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	verifier := "e2e-code-flow-verifier-0123456789"
	code := e.login(t, adminUsername, adminPassword, verifier, []string{"tasks:read", "projects:read"})

	tok, err := e.SDK.ExchangeCode(ctx, e.ClientID, e.ClientSecret, code, redirectURI, verifier)
	require.NoError(t, err)
	require.NotEmpty(t, tok.AccessToken)
	require.NotEmpty(t, tok.RefreshToken)
	require.ElementsMatch(t, []string{"tasks:read", "projects:read"}, strings.Fields(tok.Scope))

	// A code is single use; the replay must fail.
	_, err = e.SDK.ExchangeCode(ctx, e.ClientID, e.ClientSecret, code, redirectURI, verifier)
	var oauthErr *authsdk.OAuth2Error
	require.ErrorAs(t, err, &oauthErr)
	require.Equal(t, authsdk.ErrorCodeInvalidGrant, oauthErr.Code)
}

func TestAuthorizationCodeRejectsWrongVerifier(t *testing.T) {
	e := newEnv(t)

	code := e.login(t, adminUsername, adminPassword, "the-real-verifier-0123456789", nil)

	_, err := e.SDK.ExchangeCode(context.Background(),
		e.ClientID, e.ClientSecret, code, redirectURI, "a-different-verifier-987654321")
	var oauthErr *authsdk.OAuth2Error
	require.ErrorAs(t, err, &oauthErr)
	require.Equal(t, authsdk.ErrorCodeInvalidGrant, oauthErr.Code)
}

func TestAuthorizeRejectsBadPassword(t *testing.T) {
	e := newEnv(t)

	form := url.Values{
		"response_type":  {"code"},
		"client_id":      {e.ClientID},
		"redirect_uri":   {redirectURI},
		"code_challenge": {s256Challenge("whatever-verifier-0123456789")},
		"username":       {adminUsername},
		"password":       {"wrong-password"},
	}

	resp, err := http.PostForm(e.Server.URL+"/v1/oauth2/authorize", form)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuthorizeRejectsUnregisteredRedirect(t *testing.T) {
	e := newEnv(t)

	form := url.Values{
		"response_type":  {"code"},
		"client_id":      {e.ClientID},
		"redirect_uri":   {"http://evil.example.com/steal"},
		"code_challenge": {s256Challenge("whatever-verifier-0123456789")},
		"username":       {adminUsername},
		"password":       {adminPassword},
	}

	resp, err := http.PostForm(e.Server.URL+"/v1/oauth2/authorize", form)
	require.NoError(t, err)
	defer resp.Body.Close()

	// No redirect to an unregistered URI, ever.
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Empty(t, resp.Header.Get("Location"))
}

func TestTokenRejectsOverRequestedScope(t *testing.T) {
	e := newEnv(t)

	// The client holds every registered scope, so invent one beyond those.
	verifier := "scope-test-verifier-0123456789"
	form := url.Values{
		"response_type":  {"code"},
		"client_id":      {e.ClientID},
		"redirect_uri":   {redirectURI},
		"scope":          {"tasks:read not-a-real-scope"},
		"code_challenge": {s256Challenge(verifier)},
		"username":       {adminUsername},
		"password":       {adminPassword},
	}

	resp, err := http.PostForm(e.Server.URL+"/v1/oauth2/authorize", form)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTokenUnsupportedGrantType(t *testing.T) {
	e := newEnv(t)

	resp, err := http.PostForm(e.Server.URL+"/v1/oauth2/token", url.Values{
		"grant_type": {"password"},
		"client_id":  {e.ClientID},
	})
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
