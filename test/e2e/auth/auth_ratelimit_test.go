package auth_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hivework/taskhive/pkg/authsdk"
)

func TestBootstrapIsStrictlyRateLimited(t *testing.T) {
	e := newEnvWithoutBootstrap(t)

	// The strict profile allows a burst of five; the sixth call must be
	// rejected regardless of payload validity.
	for i := 0; i < 5; i++ {
		status, _ := e.postJSON(t, "/v1/bootstrap", authsdk.BootstrapRequest{}, "")
		require.Equal(t, http.StatusBadRequest, status, "request %d", i)
	}

	status, _ := e.postJSON(t, "/v1/bootstrap", authsdk.BootstrapRequest{}, "")
	require.Equal(t, http.StatusTooManyRequests, status)
}
