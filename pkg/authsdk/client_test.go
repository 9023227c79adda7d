package authsdk

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPollDeviceToken(t *testing.T) {
	var polls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "urn:ietf:params:oauth:grant-type:device_code", r.FormValue("grant_type"))

		polls++
		w.Header().Set("Content-Type", "application/json")
		switch polls {
		case 1:
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(ErrorResponse{Error: ErrorCodeAuthorizationPending})
		case 2:
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(ErrorResponse{Error: ErrorCodeSlowDown})
		default:
			_ = json.NewEncoder(w).Encode(TokenResponse{AccessToken: "tok", TokenType: "Bearer"})
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	c.pollOverride = time.Millisecond
	tok, err := c.PollDeviceToken(context.Background(), "client", "", &DeviceAuthorizationResponse{
		DeviceCode: "dev",
		Interval:   0,
	})
	require.NoError(t, err)
	assert.Equal(t, "tok", tok.AccessToken)
	assert.Equal(t, 3, polls)
}

func TestPollDeviceTokenDenied(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(ErrorResponse{Error: ErrorCodeAccessDenied, ErrorDescription: "denied"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	c.pollOverride = time.Millisecond
	_, err := c.PollDeviceToken(context.Background(), "client", "", &DeviceAuthorizationResponse{
		DeviceCode: "dev",
		Interval:   0,
	})

	var oauthErr *OAuth2Error
	require.ErrorAs(t, err, &oauthErr)
	assert.Equal(t, ErrorCodeAccessDenied, oauthErr.Code)
}
