// Package authsdk is a small Go client for the taskhive auth service. It
// covers the token endpoint grants, the device flow (including interval and
// slow_down handling), and introspection.
package authsdk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to one auth service deployment.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	// pollOverride replaces the device-flow wait between polls when set.
	// Tests use it to avoid real multi-second sleeps.
	pollOverride time.Duration
}

// NewClient creates a Client with sane defaults.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

// postForm posts a form body and decodes either the success payload into out
// or an *OAuth2Error.
func (c *Client) postForm(ctx context.Context, path string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 400 {
		var oauthErr OAuth2Error
		if json.Unmarshal(body, &oauthErr) == nil && oauthErr.Code != "" {
			oauthErr.StatusCode = resp.StatusCode
			return &oauthErr
		}
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if out == nil {
		return nil
	}
	return json.Unmarshal(body, out)
}

// ClientCredentials runs the client_credentials grant.
func (c *Client) ClientCredentials(ctx context.Context, clientID, clientSecret string, scopes []string) (*TokenResponse, error) {
	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {clientID},
		"client_secret": {clientSecret},
	}
	if len(scopes) > 0 {
		form.Set("scope", strings.Join(scopes, " "))
	}

	var tok TokenResponse
	if err := c.postForm(ctx, "/v1/oauth2/token", form, &tok); err != nil {
		return nil, err
	}
	return &tok, nil
}

// ExchangeCode redeems an authorization code with PKCE.
func (c *Client) ExchangeCode(ctx context.Context, clientID, clientSecret, code, redirectURI, codeVerifier string) (*TokenResponse, error) {
	form := url.Values{
		"grant_type":   {"authorization_code"},
		"client_id":    {clientID},
		"code":         {code},
		"redirect_uri": {redirectURI},
	}
	if clientSecret != "" {
		form.Set("client_secret", clientSecret)
	}
	if codeVerifier != "" {
		form.Set("code_verifier", codeVerifier)
	}

	var tok TokenResponse
	if err := c.postForm(ctx, "/v1/oauth2/token", form, &tok); err != nil {
		return nil, err
	}
	return &tok, nil
}

// Refresh rotates a refresh token.
func (c *Client) Refresh(ctx context.Context, clientID, clientSecret, refreshToken string, scopes []string) (*TokenResponse, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"client_id":     {clientID},
		"refresh_token": {refreshToken},
	}
	if clientSecret != "" {
		form.Set("client_secret", clientSecret)
	}
	if len(scopes) > 0 {
		form.Set("scope", strings.Join(scopes, " "))
	}

	var tok TokenResponse
	if err := c.postForm(ctx, "/v1/oauth2/token", form, &tok); err != nil {
		return nil, err
	}
	return &tok, nil
}

// Revoke revokes an access or refresh token. Unknown tokens are not an error.
func (c *Client) Revoke(ctx context.Context, token string) error {
	return c.postForm(ctx, "/v1/oauth2/revoke", url.Values{"token": {token}}, nil)
}

// StartDeviceFlow opens a device authorization session.
func (c *Client) StartDeviceFlow(ctx context.Context, clientID, clientSecret string, scopes []string) (*DeviceAuthorizationResponse, error) {
	form := url.Values{"client_id": {clientID}}
	if clientSecret != "" {
		form.Set("client_secret", clientSecret)
	}
	if len(scopes) > 0 {
		form.Set("scope", strings.Join(scopes, " "))
	}

	var da DeviceAuthorizationResponse
	if err := c.postForm(ctx, "/v1/oauth2/device/code", form, &da); err != nil {
		return nil, err
	}
	return &da, nil
}

// PollDeviceToken polls the token endpoint until the user decides, the
// session expires, or the context is cancelled. It honors the advertised
// interval and widens it on slow_down.
func (c *Client) PollDeviceToken(ctx context.Context, clientID, clientSecret string, da *DeviceAuthorizationResponse) (*TokenResponse, error) {
	interval := time.Duration(da.Interval) * time.Second
	if interval <= 0 {
		interval = 5 * time.Second
	}

	form := url.Values{
		"grant_type":  {"urn:ietf:params:oauth:grant-type:device_code"},
		"client_id":   {clientID},
		"device_code": {da.DeviceCode},
	}
	if clientSecret != "" {
		form.Set("client_secret", clientSecret)
	}

	wait := func() time.Duration {
		if c.pollOverride > 0 {
			return c.pollOverride
		}
		return interval
	}

	timer := time.NewTimer(wait())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}

		var tok TokenResponse
		err := c.postForm(ctx, "/v1/oauth2/token", form, &tok)
		if err == nil {
			return &tok, nil
		}

		var oauthErr *OAuth2Error
		if !errors.As(err, &oauthErr) {
			return nil, err
		}

		switch oauthErr.Code {
		case ErrorCodeAuthorizationPending:
			// Keep waiting.
		case ErrorCodeSlowDown:
			interval += 5 * time.Second
		default:
			return nil, oauthErr
		}

		timer.Reset(wait())
	}
}

// Introspect resolves a token's current state.
func (c *Client) Introspect(ctx context.Context, bearer, token string) (*IntrospectionResponse, error) {
	form := url.Values{"token": {token}}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/oauth2/introspect", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+bearer)

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var out IntrospectionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}
