package mask

import (
	"strings"
)

// Restore replaces placeholder tokens in maskedText with their
// original values and returns the restored text plus the number of
// token KEYS that had at least one occurrence replaced (not the
// occurrence count). Tokens absent from the text are silently skipped,
// which supports partial demasking when the round-trip consumer only
// echoed back some tokens. Iteration order does not matter: tokens are
// non-overlapping literal substrings by construction.
//
// Restoration is not idempotent if an original value textually equals
// another token's literal form; that degenerate case is accepted.
func Restore(maskedText string, tokens TokenMap) (string, int) {
	restored := maskedText
	count := 0

	for token, original := range tokens {
		if !strings.Contains(restored, token) {
			continue
		}
		restored = strings.ReplaceAll(restored, token, original)
		count++
	}

	return restored, count
}
