package cryptox

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

// UserCodeAlphabet excludes characters that are easy to confuse when read
// aloud or typed (0/O, 1/I/L).
const UserCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const userCodeGroup = 4

// GenerateUserCode returns a human-typable code in XXXX-XXXX form drawn from
// UserCodeAlphabet.
func GenerateUserCode() (string, error) {
	max := big.NewInt(int64(len(UserCodeAlphabet)))

	var b strings.Builder
	b.Grow(2*userCodeGroup + 1)
	for i := 0; i < 2*userCodeGroup; i++ {
		if i == userCodeGroup {
			b.WriteByte('-')
		}
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate user code: %w", err)
		}
		b.WriteByte(UserCodeAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// NormalizeUserCode upper-cases the input, drops spaces and dashes and
// re-inserts the separator, so "abcd efgh" and "ABCD-EFGH" compare equal.
// Input that does not reduce to eight alphabet characters is returned
// upper-cased and trimmed so the lookup simply misses.
func NormalizeUserCode(code string) string {
	var raw strings.Builder
	for _, r := range strings.ToUpper(code) {
		if r == '-' || r == ' ' || r == '\t' {
			continue
		}
		raw.WriteRune(r)
	}

	s := raw.String()
	if len(s) != 2*userCodeGroup || strings.Trim(s, UserCodeAlphabet) != "" {
		return strings.ToUpper(strings.TrimSpace(code))
	}
	return s[:userCodeGroup] + "-" + s[userCodeGroup:]
}
