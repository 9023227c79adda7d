package auth_test

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hivework/taskhive/internal/auth/domain"
	httpapi "github.com/hivework/taskhive/internal/auth/http"
	"github.com/hivework/taskhive/internal/auth/service"
	"github.com/hivework/taskhive/internal/auth/store/drivers/sqlite"
	"github.com/hivework/taskhive/pkg/authsdk"
	"github.com/hivework/taskhive/pkg/slogx"
)

/*
 * End-to-end tests drive the full HTTP surface through pkg/authsdk and plain
 * HTTP, against an in-process server backed by an in-memory database. Every
 * test gets a fresh environment, so rate limiter and database state never
 * bleed between tests.
 */

const (
	adminUsername = "admin"
	adminPassword = "Admin123!"
	clientName    = "e2e-client"
	redirectURI   = "http://localhost:3000/callback"
)

type env struct {
	Server *httptest.Server
	SDK    *authsdk.Client

	// Filled in by bootstrap.
	AdminIdentityID string
	ClientID        string
	ClientSecret    string
}

// newEnv boots the service in-process and bootstraps the first admin and
// client.
func newEnv(t *testing.T) *env {
	t.Helper()

	e := newEnvWithoutBootstrap(t)
	e.bootstrap(t)
	return e
}

func newEnvWithoutBootstrap(t *testing.T) *env {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	logger := slogx.New(slogx.Config{
		Service: "auth-service",
		Env:     "test",
		Level:   "error",
		Format:  "text",
	})

	devices := &service.DeviceService{Store: st, CodeTTL: 30 * time.Minute, PollInterval: 1}

	router := httpapi.NewRouter("e2e", st, logger)
	router.TokenService = &service.TokenService{
		Store:      st,
		Devices:    devices,
		AccessTTL:  time.Hour,
		RefreshTTL: 24 * time.Hour,
	}
	router.DeviceService = devices
	router.AuthorizeService = &service.AuthorizeService{Store: st, CodeTTL: 5 * time.Minute}
	router.VerifyService = &service.VerifyService{Store: st}
	router.IdentityService = &service.IdentityService{Store: st}
	router.ClientService = &service.ClientService{Store: st}
	router.AccessService = &service.AccessService{Store: st, FallbackRole: domain.RoleNone}
	router.BootstrapService = &service.BootstrapService{Store: st}
	router.ApplyRoutes()

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &env{
		Server: server,
		SDK:    authsdk.NewClient(server.URL),
	}
}

func (e *env) bootstrap(t *testing.T) {
	t.Helper()

	status, body := e.postJSON(t, "/v1/bootstrap", authsdk.BootstrapRequest{
		AdminUsername: adminUsername,
		AdminPassword: adminPassword,
		ClientName:    clientName,
		RedirectURIs:  []string{redirectURI},
	}, "")
	require.Equal(t, http.StatusCreated, status, "bootstrap failed: %s", body)

	var resp authsdk.BootstrapResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	require.NotEmpty(t, resp.ClientSecret)

	e.AdminIdentityID = resp.AdminIdentityID
	e.ClientID = resp.ClientID
	e.ClientSecret = resp.ClientSecret
}

// postJSON posts a JSON body, optionally with a bearer token, and returns the
// status code and raw response body.
func (e *env) postJSON(t *testing.T, path string, payload any, bearer string) (int, []byte) {
	t.Helper()

	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	req, err := http.NewRequestWithContext(context.Background(),
		http.MethodPost, e.Server.URL+path, bytes.NewReader(raw))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}

func (e *env) get(t *testing.T, path, bearer string) (int, []byte) {
	t.Helper()

	req, err := http.NewRequestWithContext(context.Background(),
		http.MethodGet, e.Server.URL+path, nil)
	require.NoError(t, err)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}

// s256Challenge derives the S256 code challenge for a PKCE verifier.
func s256Challenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// login runs the password form of the authorize endpoint and returns the
// authorization code from the redirect.
func (e *env) login(t *testing.T, username, password, verifier string, scopes []string) string {
	t.Helper()

	form := url.Values{
		"response_type":         {"code"},
		"client_id":             {e.ClientID},
		"redirect_uri":          {redirectURI},
		"state":                 {"e2e-state"},
		"code_challenge":        {s256Challenge(verifier)},
		"code_challenge_method": {"S256"},
		"username":              {username},
		"password":              {password},
	}
	if len(scopes) > 0 {
		form.Set("scope", strings.Join(scopes, " "))
	}

	// The redirect target is not a real server; capture the Location header
	// instead of following it.
	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	resp, err := client.PostForm(e.Server.URL+"/v1/oauth2/authorize", form)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)

	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "e2e-state", loc.Query().Get("state"))

	code := loc.Query().Get("code")
	require.NotEmpty(t, code)
	return code
}

// adminToken logs the bootstrap admin in and redeems the code, returning the
// full token response. The token carries every client scope.
func (e *env) adminToken(t *testing.T) *authsdk.TokenResponse {
	t.Helper()

	verifier := "e2e-admin-verifier-0123456789"
	code := e.login(t, adminUsername, adminPassword, verifier, nil)

	tok, err := e.SDK.ExchangeCode(context.Background(),
		e.ClientID, e.ClientSecret, code, redirectURI, verifier)
	require.NoError(t, err)
	require.Equal(t, "Bearer", tok.TokenType)
	return tok
}
