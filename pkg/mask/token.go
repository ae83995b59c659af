// Package mask implements reversible masking: replacing detected
// entities with placeholder tokens and restoring originals from a
// token map.
package mask

import (
	"fmt"
	"regexp"

	"github.com/Tributary-ai-services/Cloakroom/pkg/detect"
)

// TokenMap maps placeholder tokens to the original values they
// replaced. Keys are unique within a session and never shared across
// sessions.
type TokenMap map[string]string

// tokenPattern matches the placeholder envelope: <TYPE_N> with an
// upper-case type name and a 1-based index. The envelope deliberately
// contains characters no detection pattern accepts, so a second
// detection pass never re-flags a token as sensitive.
var tokenPattern = regexp.MustCompile(`^<([A-Z][A-Z0-9_]*)_(\d+)>$`)

// FormatToken builds the placeholder for the nth entity of a type
// within one masking operation, e.g. <EMAIL_ADDRESS_1>.
func FormatToken(entityType detect.EntityType, index int) string {
	return fmt.Sprintf("<%s_%d>", entityType, index)
}

// ParseToken extracts the entity type from a placeholder token.
// It returns false for strings that are not placeholder tokens.
func ParseToken(token string) (detect.EntityType, bool) {
	groups := tokenPattern.FindStringSubmatch(token)
	if groups == nil {
		return "", false
	}
	return detect.EntityType(groups[1]), true
}

// Clone returns an independent copy of the token map. A nil map
// clones to an empty, non-nil map.
func (tm TokenMap) Clone() TokenMap {
	cloned := make(TokenMap, len(tm))
	for token, value := range tm {
		cloned[token] = value
	}
	return cloned
}

// TypeCounts returns a histogram of entity types in the token map,
// keyed by type name. Tokens that do not parse are counted under
// "UNKNOWN". Used for audit events; values are never inspected.
func (tm TokenMap) TypeCounts() map[string]int {
	counts := make(map[string]int, len(tm))
	for token := range tm {
		entityType, ok := ParseToken(token)
		if !ok {
			counts["UNKNOWN"]++
			continue
		}
		counts[string(entityType)]++
	}
	return counts
}

// TokenGenerator assigns unique placeholder tokens within a single
// masking operation. Counters are 1-based per entity type and local to
// the generator; a fresh generator is created for every mask call, so
// no locking is needed.
type TokenGenerator struct {
	counts map[detect.EntityType]int
}

// NewTokenGenerator creates a generator with all counters at zero.
func NewTokenGenerator() *TokenGenerator {
	return &TokenGenerator{
		counts: make(map[detect.EntityType]int),
	}
}

// Next increments the counter for the entity type and returns its
// placeholder token. Tokens from one generator are pairwise distinct.
func (g *TokenGenerator) Next(entityType detect.EntityType) string {
	g.counts[entityType]++
	return FormatToken(entityType, g.counts[entityType])
}
