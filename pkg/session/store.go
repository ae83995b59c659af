// Package session provides bounded-lifetime custody of token maps.
// Two backends share one contract: an in-process map living as long as
// the owning filter, and a NATS JetStream KV bucket with TTL for
// deployments where masking and demasking happen in different
// processes.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/Tributary-ai-services/Cloakroom/pkg/mask"
)

var (
	// ErrNotFound indicates no live session exists for the id. Expired
	// sessions are indistinguishable from deleted ones.
	ErrNotFound = errors.New("session not found")

	// ErrStoreUnavailable indicates the distributed backend could not
	// be reached. Callers may retry.
	ErrStoreUnavailable = errors.New("session store unavailable")
)

// DefaultTTL is the default session lifetime. Sessions bridge one
// request/response cycle, not long-term storage.
const DefaultTTL = 15 * time.Minute

// Store is the session store contract. A session is exclusively owned
// by the caller that created it; the store has custody only, for
// bounded time. Concurrent stores to the same id race and the last
// write wins.
type Store interface {
	// Store persists the token map under the session id, resetting the
	// expiration timer.
	Store(ctx context.Context, sessionID string, tokens mask.TokenMap) error

	// Get returns the session's token map, or ErrNotFound if the
	// session does not exist or has expired.
	Get(ctx context.Context, sessionID string) (mask.TokenMap, error)

	// Resolve maps each requested token to its original value. Tokens
	// absent from the session resolve to themselves: unknown tokens
	// are inert text, not errors. A wholly absent session returns
	// ErrNotFound.
	Resolve(ctx context.Context, sessionID string, tokens []string) (map[string]string, error)

	// Extend merges additional tokens into an existing session,
	// last-write-wins per key, and refreshes the TTL. It reports false
	// when the session does not exist.
	Extend(ctx context.Context, sessionID string, additional mask.TokenMap) (bool, error)

	// Delete removes the session, reporting whether it existed.
	Delete(ctx context.Context, sessionID string) (bool, error)

	// Close releases backend resources.
	Close() error
}

// resolveTokens implements the shared pass-through resolution policy.
func resolveTokens(tokens []string, tokenMap mask.TokenMap) map[string]string {
	resolved := make(map[string]string, len(tokens))
	for _, token := range tokens {
		if value, ok := tokenMap[token]; ok {
			resolved[token] = value
		} else {
			resolved[token] = token
		}
	}
	return resolved
}

// countResolved counts how many requested tokens were present.
func countResolved(tokens []string, tokenMap mask.TokenMap) int {
	n := 0
	for _, token := range tokens {
		if _, ok := tokenMap[token]; ok {
			n++
		}
	}
	return n
}
