package mask

import (
	"strings"
	"testing"

	"github.com/Tributary-ai-services/Cloakroom/pkg/detect"
)

func entityAt(text, match string, entityType detect.EntityType) detect.Entity {
	start := strings.Index(text, match)
	return detect.Entity{
		Type:  entityType,
		Start: start,
		End:   start + len(match),
		Score: detect.RegexConfidence,
		Text:  match,
	}
}

// ============================================================================
// Token Tests
// ============================================================================

func TestFormatToken(t *testing.T) {
	if got := FormatToken(detect.TypeEmailAddress, 1); got != "<EMAIL_ADDRESS_1>" {
		t.Errorf("FormatToken = %q, want %q", got, "<EMAIL_ADDRESS_1>")
	}
	if got := FormatToken(detect.TypeUSSSN, 12); got != "<US_SSN_12>" {
		t.Errorf("FormatToken = %q, want %q", got, "<US_SSN_12>")
	}
}

func TestParseToken(t *testing.T) {
	tests := []struct {
		token    string
		wantType detect.EntityType
		wantOK   bool
	}{
		{"<EMAIL_ADDRESS_1>", detect.TypeEmailAddress, true},
		{"<US_SSN_42>", detect.TypeUSSSN, true},
		{"<PERSON_3>", detect.TypePerson, true},
		{"EMAIL_ADDRESS_1", "", false},
		{"<email_address_1>", "", false},
		{"<EMAIL_ADDRESS_>", "", false},
		{"<_1>", "", false},
		{"plain text", "", false},
	}

	for _, tt := range tests {
		gotType, gotOK := ParseToken(tt.token)
		if gotOK != tt.wantOK || gotType != tt.wantType {
			t.Errorf("ParseToken(%q) = (%v, %v), want (%v, %v)",
				tt.token, gotType, gotOK, tt.wantType, tt.wantOK)
		}
	}
}

func TestTokenGenerator_PerTypeCounters(t *testing.T) {
	g := NewTokenGenerator()

	tokens := []string{
		g.Next(detect.TypeEmailAddress),
		g.Next(detect.TypePhoneNumber),
		g.Next(detect.TypeEmailAddress),
	}

	want := []string{"<EMAIL_ADDRESS_1>", "<PHONE_NUMBER_1>", "<EMAIL_ADDRESS_2>"}
	for i := range want {
		if tokens[i] != want[i] {
			t.Errorf("token[%d] = %q, want %q", i, tokens[i], want[i])
		}
	}
}

func TestTokenMap_TypeCounts(t *testing.T) {
	tm := TokenMap{
		"<EMAIL_ADDRESS_1>": "a@example.com",
		"<EMAIL_ADDRESS_2>": "b@example.com",
		"<PHONE_NUMBER_1>":  "555-123-4567",
		"garbage":           "value",
	}

	counts := tm.TypeCounts()
	if counts["EMAIL_ADDRESS"] != 2 {
		t.Errorf("EMAIL_ADDRESS count = %d, want 2", counts["EMAIL_ADDRESS"])
	}
	if counts["PHONE_NUMBER"] != 1 {
		t.Errorf("PHONE_NUMBER count = %d, want 1", counts["PHONE_NUMBER"])
	}
	if counts["UNKNOWN"] != 1 {
		t.Errorf("UNKNOWN count = %d, want 1", counts["UNKNOWN"])
	}
}

func TestTokenMap_Clone(t *testing.T) {
	original := TokenMap{"<PERSON_1>": "alice"}
	cloned := original.Clone()

	cloned["<PERSON_2>"] = "bob"
	if len(original) != 1 {
		t.Error("mutating clone affected original")
	}

	var nilMap TokenMap
	if got := nilMap.Clone(); got == nil || len(got) != 0 {
		t.Errorf("nil clone = %v, want empty map", got)
	}
}

// ============================================================================
// Apply Tests
// ============================================================================

func TestApply_DocumentOrderIndices(t *testing.T) {
	text := "Contact alice@example.com and bob@example.com"
	entities := []detect.Entity{
		entityAt(text, "bob@example.com", detect.TypeEmailAddress),
		entityAt(text, "alice@example.com", detect.TypeEmailAddress),
	}

	masked, tokens := Apply(text, entities)

	want := "Contact <EMAIL_ADDRESS_1> and <EMAIL_ADDRESS_2>"
	if masked != want {
		t.Errorf("masked = %q, want %q", masked, want)
	}
	if tokens["<EMAIL_ADDRESS_1>"] != "alice@example.com" {
		t.Errorf("token 1 = %q, want alice (document order)", tokens["<EMAIL_ADDRESS_1>"])
	}
	if tokens["<EMAIL_ADDRESS_2>"] != "bob@example.com" {
		t.Errorf("token 2 = %q, want bob (document order)", tokens["<EMAIL_ADDRESS_2>"])
	}
}

func TestApply_MixedTypes(t *testing.T) {
	text := "Call 555-123-4567 or mail alice@example.com"
	entities := []detect.Entity{
		entityAt(text, "alice@example.com", detect.TypeEmailAddress),
		entityAt(text, "555-123-4567", detect.TypePhoneNumber),
	}

	masked, tokens := Apply(text, entities)

	want := "Call <PHONE_NUMBER_1> or mail <EMAIL_ADDRESS_1>"
	if masked != want {
		t.Errorf("masked = %q, want %q", masked, want)
	}
	if len(tokens) != 2 {
		t.Errorf("token count = %d, want 2", len(tokens))
	}
}

func TestApply_DuplicateValuesGetDistinctTokens(t *testing.T) {
	text := "alice@example.com wrote to alice@example.com"
	first := entityAt(text, "alice@example.com", detect.TypeEmailAddress)
	secondStart := strings.LastIndex(text, "alice@example.com")
	second := detect.Entity{
		Type:  detect.TypeEmailAddress,
		Start: secondStart,
		End:   secondStart + len("alice@example.com"),
		Score: detect.RegexConfidence,
		Text:  "alice@example.com",
	}

	masked, tokens := Apply(text, []detect.Entity{first, second})

	want := "<EMAIL_ADDRESS_1> wrote to <EMAIL_ADDRESS_2>"
	if masked != want {
		t.Errorf("masked = %q, want %q", masked, want)
	}
	if tokens["<EMAIL_ADDRESS_1>"] != tokens["<EMAIL_ADDRESS_2>"] {
		t.Error("both tokens should map to the same original value")
	}
}

func TestApply_NoEntities(t *testing.T) {
	masked, tokens := Apply("nothing to hide", nil)
	if masked != "nothing to hide" {
		t.Errorf("masked = %q, want unchanged text", masked)
	}
	if len(tokens) != 0 {
		t.Errorf("tokens = %v, want empty", tokens)
	}
}

func TestApply_EntityAtBoundaries(t *testing.T) {
	text := "alice@example.com"
	entities := []detect.Entity{entityAt(text, text, detect.TypeEmailAddress)}

	masked, tokens := Apply(text, entities)
	if masked != "<EMAIL_ADDRESS_1>" {
		t.Errorf("masked = %q, want the token alone", masked)
	}
	if tokens["<EMAIL_ADDRESS_1>"] != text {
		t.Errorf("token value = %q, want %q", tokens["<EMAIL_ADDRESS_1>"], text)
	}
}

func TestApply_SkipsMalformedSpans(t *testing.T) {
	text := "short"
	entities := []detect.Entity{
		{Type: detect.TypePerson, Start: 2, End: 99, Score: 0.9, Text: "oops"},
	}

	masked, tokens := Apply(text, entities)
	if masked != text {
		t.Errorf("masked = %q, want unchanged text", masked)
	}
	if len(tokens) != 0 {
		t.Errorf("tokens = %v, want empty", tokens)
	}
}

// ============================================================================
// FilterTypes Tests
// ============================================================================

func TestFilterTypes(t *testing.T) {
	entities := []detect.Entity{
		{Type: detect.TypeEmailAddress},
		{Type: detect.TypePhoneNumber},
		{Type: detect.TypeCreditCard},
	}

	t.Run("nil set keeps everything", func(t *testing.T) {
		if got := FilterTypes(entities, nil); len(got) != 3 {
			t.Errorf("kept %d, want 3", len(got))
		}
	})

	t.Run("subset", func(t *testing.T) {
		kept := FilterTypes(entities, map[detect.EntityType]bool{
			detect.TypeEmailAddress: true,
			detect.TypeCreditCard:   true,
		})
		if len(kept) != 2 {
			t.Fatalf("kept %d, want 2", len(kept))
		}
		for _, e := range kept {
			if e.Type == detect.TypePhoneNumber {
				t.Error("phone number should have been filtered out")
			}
		}
	})

	t.Run("membership is case sensitive", func(t *testing.T) {
		kept := FilterTypes(entities, map[detect.EntityType]bool{
			"email_address": true,
		})
		if len(kept) != 0 {
			t.Errorf("kept %d, want 0 for lower-case type name", len(kept))
		}
	})
}

// ============================================================================
// Restore Tests
// ============================================================================

func TestRestore_RoundTrip(t *testing.T) {
	text := "Contact alice@example.com and call 555-123-4567"
	entities := []detect.Entity{
		entityAt(text, "alice@example.com", detect.TypeEmailAddress),
		entityAt(text, "555-123-4567", detect.TypePhoneNumber),
	}

	masked, tokens := Apply(text, entities)
	restored, count := Restore(masked, tokens)

	if restored != text {
		t.Errorf("round trip = %q, want %q", restored, text)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
}

func TestRestore_CountsKeysNotOccurrences(t *testing.T) {
	masked := "<PERSON_1> spoke, then <PERSON_1> left with <PERSON_2>"
	tokens := TokenMap{
		"<PERSON_1>": "alice",
		"<PERSON_2>": "bob",
	}

	restored, count := Restore(masked, tokens)

	if restored != "alice spoke, then alice left with bob" {
		t.Errorf("restored = %q", restored)
	}
	// <PERSON_1> appears twice but counts once.
	if count != 2 {
		t.Errorf("count = %d, want 2 distinct tokens", count)
	}
}

func TestRestore_PartialTokens(t *testing.T) {
	masked := "Only <EMAIL_ADDRESS_1> came back"
	tokens := TokenMap{
		"<EMAIL_ADDRESS_1>": "alice@example.com",
		"<PHONE_NUMBER_1>":  "555-123-4567",
	}

	restored, count := Restore(masked, tokens)

	if restored != "Only alice@example.com came back" {
		t.Errorf("restored = %q", restored)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1 (absent token skipped)", count)
	}
}

func TestRestore_EmptyTokenMap(t *testing.T) {
	restored, count := Restore("text with <PERSON_1>", TokenMap{})
	if restored != "text with <PERSON_1>" {
		t.Errorf("restored = %q, want unchanged", restored)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0", count)
	}
}
