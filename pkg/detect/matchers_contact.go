package detect

// EmailMatcher detects email addresses, including internationalized
// local parts and domains.
type EmailMatcher struct {
	baseMatcher
}

// NewEmailMatcher creates a new email matcher.
func NewEmailMatcher() *EmailMatcher {
	return &EmailMatcher{
		baseMatcher: baseMatcher{
			id:         "pattern-email",
			entityType: TypeEmailAddress,
			patterns: []NamedPattern{
				np("standard", `(?i)\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`),
				np("unicode_simple", `(?i)[A-Za-z0-9._%+-]+@[\w\-.]+\.[A-Za-z\x{0080}-\x{FFFF}]{2,}`),
				np("unicode_domain", `(?i)[A-Za-z0-9._%+-]+@[^\s@]+\.[A-Za-z]{2,}`),
				np("quoted", `(?i)"[^"]+"@[\w.-]+\.\w{2,}`),
			},
		},
	}
}

// PhoneNumberMatcher detects phone numbers across the number plans the
// original pattern corpus covers.
type PhoneNumberMatcher struct {
	baseMatcher
}

// NewPhoneNumberMatcher creates a new phone number matcher.
func NewPhoneNumberMatcher() *PhoneNumberMatcher {
	return &PhoneNumberMatcher{
		baseMatcher: baseMatcher{
			id:         "pattern-phone",
			entityType: TypePhoneNumber,
			patterns: []NamedPattern{
				// North America
				np("us_standard", `\b\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}\b`),
				np("us_international", `\+1[-.\s]?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}\b`),
				// UK
				np("uk_landline", `\b0\d{2,4}[-.\s]?\d{6,8}\b`),
				np("uk_mobile", `\b07\d{3}[-.\s]?\d{6}\b`),
				np("uk_international", `\+44[-.\s]?\d{2,4}[-.\s]?\d{6,8}\b`),
				// India
				np("india_mobile", `\b[6-9]\d{9}\b`),
				np("india_international", `\+91[-.\s]?[6-9]\d{9}\b`),
				// Australia
				np("australia_mobile", `\b04\d{2}[-.\s]?\d{3}[-.\s]?\d{3}\b`),
				np("australia_landline", `\b0[2-8][-.\s]?\d{4}[-.\s]?\d{4}\b`),
				np("australia_international", `\+61[-.\s]?[2-478][-.\s]?\d{4}[-.\s]?\d{4}\b`),
				// Germany
				np("germany", `\b0\d{2,5}[-.\s/]?\d{3,9}\b`),
				np("germany_international", `\+49[-.\s]?\d{2,5}[-.\s/]?\d{3,9}\b`),
				// France
				np("france", `\b0[1-9][-.\s]?\d{2}[-.\s]?\d{2}[-.\s]?\d{2}[-.\s]?\d{2}\b`),
				np("france_international", `\+33[-.\s]?[1-9][-.\s]?\d{2}[-.\s]?\d{2}[-.\s]?\d{2}[-.\s]?\d{2}\b`),
				// Japan
				np("japan", `\b0\d{1,4}[-.\s]?\d{1,4}[-.\s]?\d{4}\b`),
				np("japan_international", `\+81[-.\s]?\d{1,4}[-.\s]?\d{1,4}[-.\s]?\d{4}\b`),
				// China
				np("china_mobile", `\b1[3-9]\d{9}\b`),
				np("china_international", `\+86[-.\s]?1[3-9]\d{9}\b`),
				// Brazil
				np("brazil_mobile", `\b\(?\d{2}\)?[-.\s]?9[-.\s]?\d{4}[-.\s]?\d{4}\b`),
				np("brazil_international", `\+55[-.\s]?\(?\d{2}\)?[-.\s]?9?[-.\s]?\d{4}[-.\s]?\d{4}\b`),
				// Mexico
				np("mexico", `\b\(?\d{2,3}\)?[-.\s]?\d{3,4}[-.\s]?\d{4}\b`),
				np("mexico_international", `\+52[-.\s]?\d{2,3}[-.\s]?\d{3,4}[-.\s]?\d{4}\b`),
				// South Korea
				np("korea_mobile", `\b01[016789][-.\s]?\d{3,4}[-.\s]?\d{4}\b`),
				np("korea_international", `\+82[-.\s]?1[016789][-.\s]?\d{3,4}[-.\s]?\d{4}\b`),
				// Generic international
				np("international", `\+\d{1,3}[-.\s]?\(?\d{1,4}\)?[-.\s]?\d{1,4}[-.\s]?\d{1,9}\b`),
			},
		},
	}
}

// Match finds phone number hits and drops sequences whose digit count
// falls outside plausible phone number lengths.
func (m *PhoneNumberMatcher) Match(text string) []Entity {
	matches := m.findAllMatches(text)

	valid := make([]Entity, 0, len(matches))
	for _, match := range matches {
		digits := countDigits(match.Text)
		if digits >= 8 && digits <= 15 {
			valid = append(valid, match)
		}
	}
	return valid
}

func countDigits(s string) int {
	count := 0
	for _, c := range s {
		if c >= '0' && c <= '9' {
			count++
		}
	}
	return count
}
