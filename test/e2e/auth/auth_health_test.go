package auth_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hivework/taskhive/pkg/authsdk"
)

func TestHealthEndpoints(t *testing.T) {
	e := newEnvWithoutBootstrap(t)

	status, body := e.get(t, "/livez", "")
	require.Equal(t, http.StatusOK, status)

	var live authsdk.HealthResponse
	require.NoError(t, json.Unmarshal(body, &live))
	require.Equal(t, "ok", live.Status)
	require.Equal(t, "e2e", live.Version)

	status, body = e.get(t, "/readyz", "")
	require.Equal(t, http.StatusOK, status)

	var ready authsdk.HealthResponse
	require.NoError(t, json.Unmarshal(body, &ready))
	require.Equal(t, "ok", ready.Status)
	require.NotNil(t, ready.Checks)
	require.Equal(t, "ok", ready.Checks.Database)
}
