package detect

import (
	"regexp"
)

// PatternMatcher detects one entity type through a group of named
// regex patterns.
type PatternMatcher interface {
	// GetID returns the matcher identifier, e.g. "pattern-email".
	GetID() string

	// GetEntityType returns the entity type this matcher emits.
	GetEntityType() EntityType

	// Match finds all pattern hits in text.
	Match(text string) []Entity

	// Patterns returns the named patterns in this group.
	Patterns() []NamedPattern
}

// NamedPattern pairs a compiled regex with the name it is reported
// under in Entity.Pattern.
type NamedPattern struct {
	Name    string
	Pattern *regexp.Regexp
}

// baseMatcher provides the common pattern-group machinery. Concrete
// matchers embed it and may override Match to post-filter hits
// (Luhn check, SSN structure, excluded IP ranges).
type baseMatcher struct {
	id         string
	entityType EntityType
	patterns   []NamedPattern
}

// GetID returns the matcher identifier.
func (m *baseMatcher) GetID() string {
	return m.id
}

// GetEntityType returns the entity type this matcher emits.
func (m *baseMatcher) GetEntityType() EntityType {
	return m.entityType
}

// Patterns returns the named patterns in this group.
func (m *baseMatcher) Patterns() []NamedPattern {
	return m.patterns
}

// Match applies every pattern in the group and emits one entity per
// non-overlapping regex hit with the fixed regex confidence.
func (m *baseMatcher) Match(text string) []Entity {
	return m.findAllMatches(text)
}

func (m *baseMatcher) findAllMatches(text string) []Entity {
	var entities []Entity
	for _, np := range m.patterns {
		for _, idx := range np.Pattern.FindAllStringIndex(text, -1) {
			start, end := idx[0], idx[1]
			entities = append(entities, Entity{
				Type:    m.entityType,
				Start:   start,
				End:     end,
				Score:   RegexConfidence,
				Text:    text[start:end],
				Pattern: np.Name,
			})
		}
	}
	return entities
}

// np is a shorthand constructor used by the matcher files.
func np(name, pattern string) NamedPattern {
	return NamedPattern{Name: name, Pattern: regexp.MustCompile(pattern)}
}
