package cryptox

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

// userCodeAlphabet is the RFC 8628 recommended charset for human-typeable
// codes: uppercase consonants only, so visually ambiguous characters
// (0/O, 1/I/L, vowels that form words) never appear.
const userCodeAlphabet = "BCDFGHJKLMNPQRSTVWXZ"

// UserCodeLength is the number of random symbols in a user code
// (~34.5 bits with the 20-symbol alphabet).
const UserCodeLength = 8

// GenerateUserCode returns a short human-typeable code in grouped form,
// e.g. "BCDF-GHJK". The code is displayed to a user verbatim; comparisons
// must go through NormalizeUserCode.
func GenerateUserCode() (string, error) {
	symbols := make([]byte, UserCodeLength)
	for i := range symbols {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(userCodeAlphabet))))
		if err != nil {
			return "", fmt.Errorf("failed to generate user code: %w", err)
		}
		symbols[i] = userCodeAlphabet[n.Int64()]
	}

	half := UserCodeLength / 2
	return string(symbols[:half]) + "-" + string(symbols[half:]), nil
}

// NormalizeUserCode upper-cases a user-entered code and strips separators and
// whitespace, so "bcdf ghjk" and "BCDF-GHJK" compare equal.
func NormalizeUserCode(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	return strings.Map(func(r rune) rune {
		switch r {
		case '-', ' ', '\t':
			return -1
		}
		return r
	}, code)
}

// FormatUserCode renders a normalized code back into grouped display form.
func FormatUserCode(normalized string) string {
	if len(normalized) != UserCodeLength {
		return normalized
	}
	half := UserCodeLength / 2
	return normalized[:half] + "-" + normalized[half:]
}
