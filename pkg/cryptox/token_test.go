package cryptox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRandomToken(t *testing.T) {
	secret, err := RandomToken(SigningSecretSize)
	require.NoError(t, err)
	require.Len(t, secret, 43)
	require.NotContains(t, secret, "=")

	other, err := RandomToken(SigningSecretSize)
	require.NoError(t, err)
	require.NotEqual(t, secret, other, "tokens should be unique")

	for _, size := range []int{0, -1} {
		token, err := RandomToken(size)
		require.Error(t, err)
		require.Empty(t, token)
	}
}

func TestFingerprintToken(t *testing.T) {
	a := FingerprintToken("token-a")
	require.Len(t, a, 43)
	require.Equal(t, a, FingerprintToken("token-a"), "fingerprint must be deterministic")
	require.NotEqual(t, a, FingerprintToken("token-b"))
	require.NotContains(t, a, "=")
}

func TestGenerateUserCode(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 200; i++ {
		code, err := GenerateUserCode()
		require.NoError(t, err)
		require.Len(t, code, 9)
		require.Equal(t, byte('-'), code[4])

		for _, r := range strings.ReplaceAll(code, "-", "") {
			require.True(t, strings.ContainsRune(UserCodeAlphabet, r), "unexpected rune %q", r)
		}
		seen[code] = struct{}{}
	}
	require.Greater(t, len(seen), 190, "codes should rarely collide")
}

func TestNormalizeUserCode(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"ABCD-EFGH", "ABCD-EFGH"},
		{"abcd-efgh", "ABCD-EFGH"},
		{"abcdefgh", "ABCD-EFGH"},
		{" abcd efgh ", "ABCD-EFGH"},
		{"AB-CD-EF-GH", "ABCD-EFGH"},
		{"short", "SHORT"},
		{"ABCD-EFG0", "ABCD-EFG0"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			require.Equal(t, tt.want, NormalizeUserCode(tt.in))
		})
	}
}
