package detect

import (
	"sync"
)

// PatternRegistry manages pattern matchers keyed by entity type.
type PatternRegistry interface {
	// Register adds a matcher to the registry.
	Register(matcher PatternMatcher)

	// Get returns a matcher by ID.
	Get(id string) (PatternMatcher, bool)

	// GetByEntityType returns the matcher for an entity type.
	GetByEntityType(entityType EntityType) (PatternMatcher, bool)

	// GetAll returns all registered matchers in registration order.
	GetAll() []PatternMatcher

	// EntityTypes returns the entity types with a registered matcher.
	EntityTypes() []EntityType
}

// patternRegistry is the default PatternRegistry implementation.
type patternRegistry struct {
	mu       sync.RWMutex
	matchers map[string]PatternMatcher
	byType   map[EntityType]PatternMatcher
	order    []string
}

// NewPatternRegistry creates an empty pattern registry.
func NewPatternRegistry() PatternRegistry {
	return &patternRegistry{
		matchers: make(map[string]PatternMatcher),
		byType:   make(map[EntityType]PatternMatcher),
	}
}

// NewDefaultRegistry creates a registry with all built-in matchers.
func NewDefaultRegistry() PatternRegistry {
	registry := NewPatternRegistry()

	registry.Register(NewEmailMatcher())
	registry.Register(NewPhoneNumberMatcher())
	registry.Register(NewCreditCardMatcher())
	registry.Register(NewNationalIDMatcher())
	registry.Register(NewCryptoAddressMatcher())
	registry.Register(NewAPIKeyMatcher())
	registry.Register(NewIPAddressMatcher())
	registry.Register(NewIBANMatcher())
	registry.Register(NewMACAddressMatcher())

	return registry
}

// Register adds a matcher to the registry.
func (r *patternRegistry) Register(matcher PatternMatcher) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := matcher.GetID()
	if _, exists := r.matchers[id]; !exists {
		r.order = append(r.order, id)
	}
	r.matchers[id] = matcher
	r.byType[matcher.GetEntityType()] = matcher
}

// Get returns a matcher by ID.
func (r *patternRegistry) Get(id string) (PatternMatcher, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matcher, ok := r.matchers[id]
	return matcher, ok
}

// GetByEntityType returns the matcher for an entity type.
func (r *patternRegistry) GetByEntityType(entityType EntityType) (PatternMatcher, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matcher, ok := r.byType[entityType]
	return matcher, ok
}

// GetAll returns all registered matchers in registration order.
func (r *patternRegistry) GetAll() []PatternMatcher {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]PatternMatcher, 0, len(r.order))
	for _, id := range r.order {
		result = append(result, r.matchers[id])
	}
	return result
}

// EntityTypes returns the entity types with a registered matcher.
func (r *patternRegistry) EntityTypes() []EntityType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]EntityType, 0, len(r.order))
	for _, id := range r.order {
		result = append(result, r.matchers[id].GetEntityType())
	}
	return result
}
