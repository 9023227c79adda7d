package cryptox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashAndVerifySecret(t *testing.T) {
	t.Parallel()

	hash, err := HashSecret("correct horse battery staple")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(hash, "$argon2id$v=19$"))

	require.NoError(t, VerifySecret("correct horse battery staple", hash))
	require.Error(t, VerifySecret("wrong secret", hash))
}

func TestHashSecretSalts(t *testing.T) {
	t.Parallel()

	a, err := HashSecret("same input")
	require.NoError(t, err)
	b, err := HashSecret("same input")
	require.NoError(t, err)

	require.NotEqual(t, a, b)
}

func TestVerifySecretRejectsMalformedHashes(t *testing.T) {
	t.Parallel()

	cases := []string{
		"",
		"not-a-hash",
		"$argon2i$v=19$m=65536,t=3,p=4$c2FsdA$aGFzaA",
		"$argon2id$v=18$m=65536,t=3,p=4$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=65536,t=3,p=4$!!!$aGFzaA",
	}
	for _, c := range cases {
		require.Error(t, VerifySecret("anything", c))
	}
}
