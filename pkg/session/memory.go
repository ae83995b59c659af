package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Tributary-ai-services/Cloakroom/pkg/audit"
	"github.com/Tributary-ai-services/Cloakroom/pkg/mask"
)

// memoryEntry holds one session's token map with its expiry time.
type memoryEntry struct {
	tokens    mask.TokenMap
	expiresAt time.Time
}

// memoryStore implements Store using an in-memory map with TTL.
// Expired entries are reaped lazily on access, so the map only grows
// with live traffic.
type memoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	emitter audit.Emitter
}

// NewMemoryStore creates an in-process session store. A zero ttl uses
// DefaultTTL. The emitter may be nil to disable auditing.
func NewMemoryStore(ttl time.Duration, emitter audit.Emitter) Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &memoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		emitter: emitter,
	}
}

func (s *memoryStore) Store(_ context.Context, sessionID string, tokens mask.TokenMap) error {
	if sessionID == "" {
		return errors.New("session id is empty")
	}

	s.mu.Lock()
	s.entries[sessionID] = memoryEntry{
		tokens:    tokens.Clone(),
		expiresAt: time.Now().Add(s.ttl),
	}
	s.mu.Unlock()

	s.emitStore(audit.ActionMask, sessionID, tokens)
	return nil
}

func (s *memoryStore) Get(_ context.Context, sessionID string) (mask.TokenMap, error) {
	s.mu.RLock()
	entry, ok := s.entries[sessionID]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}

	if time.Now().After(entry.expiresAt) {
		// Entry has expired; clean it up
		s.mu.Lock()
		delete(s.entries, sessionID)
		s.mu.Unlock()
		return nil, ErrNotFound
	}

	return entry.tokens.Clone(), nil
}

func (s *memoryStore) Resolve(ctx context.Context, sessionID string, tokens []string) (map[string]string, error) {
	tokenMap, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	resolved := resolveTokens(tokens, tokenMap)

	if s.emitter != nil {
		event := audit.NewEvent(audit.ActionResolve, sessionID)
		event.TokensRequested = len(tokens)
		event.TokensResolved = countResolved(tokens, tokenMap)
		s.emitter.Emit(event)
	}

	return resolved, nil
}

func (s *memoryStore) Extend(ctx context.Context, sessionID string, additional mask.TokenMap) (bool, error) {
	existing, err := s.Get(ctx, sessionID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	merged := existing.Clone()
	for token, value := range additional {
		merged[token] = value
	}

	s.mu.Lock()
	s.entries[sessionID] = memoryEntry{
		tokens:    merged,
		expiresAt: time.Now().Add(s.ttl),
	}
	s.mu.Unlock()

	s.emitStore(audit.ActionExtend, sessionID, merged)
	return true, nil
}

func (s *memoryStore) Delete(_ context.Context, sessionID string) (bool, error) {
	s.mu.Lock()
	_, existed := s.entries[sessionID]
	delete(s.entries, sessionID)
	s.mu.Unlock()

	if existed && s.emitter != nil {
		s.emitter.Emit(audit.NewEvent(audit.ActionDelete, sessionID))
	}
	return existed, nil
}

func (s *memoryStore) Close() error {
	s.mu.Lock()
	s.entries = make(map[string]memoryEntry)
	s.mu.Unlock()
	return nil
}

// emitStore publishes a store-shaped event carrying the token count and
// entity-type histogram. Values never appear in events.
func (s *memoryStore) emitStore(action, sessionID string, tokens mask.TokenMap) {
	if s.emitter == nil {
		return
	}
	event := audit.NewEvent(action, sessionID)
	event.TokenCount = len(tokens)
	event.TokenTypes = tokens.TypeCounts()
	s.emitter.Emit(event)
}
