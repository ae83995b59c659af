package mask

import (
	"sort"
	"strings"

	"github.com/Tributary-ai-services/Cloakroom/pkg/detect"
)

// FilterTypes returns the entities whose type is in the given set.
// Membership is a case-sensitive exact match. A nil or empty set keeps
// everything.
func FilterTypes(entities []detect.Entity, types map[detect.EntityType]bool) []detect.Entity {
	if len(types) == 0 {
		return entities
	}
	kept := make([]detect.Entity, 0, len(entities))
	for _, entity := range entities {
		if types[entity.Type] {
			kept = append(kept, entity)
		}
	}
	return kept
}

// Apply replaces each entity span in text with a placeholder token and
// returns the masked text plus the token map. The entity list must be
// non-overlapping (the analyzer's deduplication guarantees this);
// overlap-free spans let the output be assembled in one forward pass
// over the text, copying untouched slices between consecutive spans,
// so no offset ever becomes stale.
//
// Token indices follow document order: the first email in the text is
// <EMAIL_ADDRESS_1>, the second <EMAIL_ADDRESS_2>, and so on. Two
// spans with identical original values still receive distinct tokens;
// there is no value-level deduplication at this layer.
func Apply(text string, entities []detect.Entity) (string, TokenMap) {
	tokens := make(TokenMap, len(entities))
	if len(entities) == 0 {
		return text, tokens
	}

	ordered := make([]detect.Entity, len(entities))
	copy(ordered, entities)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Start < ordered[j].Start
	})

	generator := NewTokenGenerator()

	var builder strings.Builder
	builder.Grow(len(text))

	prev := 0
	for _, entity := range ordered {
		if entity.Start < prev || entity.End > len(text) {
			// Out-of-bounds or overlapping span; skip rather than
			// corrupt the output.
			continue
		}

		token := generator.Next(entity.Type)
		tokens[token] = entity.Text

		builder.WriteString(text[prev:entity.Start])
		builder.WriteString(token)
		prev = entity.End
	}
	builder.WriteString(text[prev:])

	return builder.String(), tokens
}
