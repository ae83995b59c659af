package detect

import (
	"strconv"
	"strings"
)

// CreditCardMatcher detects card numbers for the major networks.
type CreditCardMatcher struct {
	baseMatcher
}

// NewCreditCardMatcher creates a new credit card matcher.
func NewCreditCardMatcher() *CreditCardMatcher {
	return &CreditCardMatcher{
		baseMatcher: baseMatcher{
			id:         "pattern-credit-card",
			entityType: TypeCreditCard,
			patterns: []NamedPattern{
				np("visa_16", `\b4\d{15}\b`),
				np("visa_13", `\b4\d{12}\b`),
				np("visa_spaced", `\b4\d{3}[-\s]?\d{4}[-\s]?\d{4}[-\s]?\d{4}\b`),
				np("mastercard", `\b5[1-5]\d{14}\b`),
				np("mastercard_2series", `\b2(?:22[1-9]|2[3-9]\d|[3-6]\d{2}|7[01]\d|720)\d{12}\b`),
				np("mastercard_spaced", `\b5[1-5]\d{2}[-\s]?\d{4}[-\s]?\d{4}[-\s]?\d{4}\b`),
				np("amex", `\b3[47]\d{13}\b`),
				np("amex_spaced", `\b3[47]\d{2}[-\s]?\d{6}[-\s]?\d{5}\b`),
				np("discover", `\b6(?:011|5\d{2}|4[4-9]\d|22(?:1(?:2[6-9]|[3-9]\d)|[2-8]\d{2}|9(?:[01]\d|2[0-5])))\d{12}\b`),
				np("discover_spaced", `\b6011[-\s]?\d{4}[-\s]?\d{4}[-\s]?\d{4}\b`),
				np("diners", `\b3(?:0[0-5]|[68]\d)\d{11}\b`),
				np("jcb", `\b35(?:2[89]|[3-8]\d)\d{12}\b`),
				np("generic", `\b\d{4}[-\s]?\d{4}[-\s]?\d{4}[-\s]?\d{4}\b`),
			},
		},
	}
}

// Match finds card number hits that pass the Luhn checksum.
func (m *CreditCardMatcher) Match(text string) []Entity {
	matches := m.findAllMatches(text)

	valid := make([]Entity, 0, len(matches))
	for _, match := range matches {
		if isValidLuhn(match.Text) {
			valid = append(valid, match)
		}
	}
	return valid
}

// isValidLuhn validates a card number using the Luhn algorithm.
func isValidLuhn(cc string) bool {
	clean := strings.ReplaceAll(cc, "-", "")
	clean = strings.ReplaceAll(clean, " ", "")

	if len(clean) < 13 || len(clean) > 19 {
		return false
	}

	sum := 0
	alternate := false
	for i := len(clean) - 1; i >= 0; i-- {
		n := int(clean[i] - '0')
		if n < 0 || n > 9 {
			return false
		}
		if alternate {
			n *= 2
			if n > 9 {
				n = (n % 10) + 1
			}
		}
		sum += n
		alternate = !alternate
	}
	return sum%10 == 0
}

// NationalIDMatcher detects US SSNs and comparable national id formats.
type NationalIDMatcher struct {
	baseMatcher
}

// NewNationalIDMatcher creates a new national id matcher.
func NewNationalIDMatcher() *NationalIDMatcher {
	return &NationalIDMatcher{
		baseMatcher: baseMatcher{
			id:         "pattern-national-id",
			entityType: TypeUSSSN,
			patterns: []NamedPattern{
				np("us_ssn", `\b\d{3}-\d{2}-\d{4}\b`),
				np("us_ssn_nospace", `\b\d{9}\b`),
				np("uk_nino", `\b[A-Z]{2}\s?\d{6}\s?[A-D]\b`),
				np("canada_sin", `\b\d{3}[-\s]\d{3}[-\s]\d{3}\b`),
				np("france_insee", `\b[12]\s?\d{2}\s?\d{2}\s?\d{2}\s?\d{3}\s?\d{3}\s?\d{2}\b`),
				np("india_aadhaar", `\b\d{4}[-\s]\d{4}[-\s]\d{4}\b`),
			},
		},
	}
}

// Match finds national id hits. Candidates produced by the US SSN
// patterns must additionally satisfy SSA structure rules, which keeps
// arbitrary nine-digit numbers from flooding the results.
func (m *NationalIDMatcher) Match(text string) []Entity {
	matches := m.findAllMatches(text)

	valid := make([]Entity, 0, len(matches))
	for _, match := range matches {
		if strings.HasPrefix(match.Pattern, "us_ssn") && !isValidSSN(match.Text) {
			continue
		}
		valid = append(valid, match)
	}
	return valid
}

// isValidSSN checks SSA issuance rules: area not 000/666/900+, group
// not 00, serial not 0000.
func isValidSSN(ssn string) bool {
	clean := strings.ReplaceAll(ssn, "-", "")
	clean = strings.ReplaceAll(clean, " ", "")

	if len(clean) != 9 {
		return false
	}
	for _, c := range clean {
		if c < '0' || c > '9' {
			return false
		}
	}

	area, _ := strconv.Atoi(clean[0:3])
	if area == 0 || area == 666 || area >= 900 {
		return false
	}
	group, _ := strconv.Atoi(clean[3:5])
	if group == 0 {
		return false
	}
	serial, _ := strconv.Atoi(clean[5:9])
	return serial != 0
}

// IBANMatcher detects International Bank Account Numbers.
type IBANMatcher struct {
	baseMatcher
}

// NewIBANMatcher creates a new IBAN matcher.
func NewIBANMatcher() *IBANMatcher {
	return &IBANMatcher{
		baseMatcher: baseMatcher{
			id:         "pattern-iban",
			entityType: TypeIBANCode,
			patterns: []NamedPattern{
				np("iban_de", `\bDE\d{20}\b`),
				np("iban_gb", `\bGB\d{2}[A-Z]{4}\d{14}\b`),
				np("iban_fr", `\bFR\d{12}[A-Z0-9]{11}\d{2}\b`),
				np("iban_it", `\bIT\d{2}[A-Z]\d{10}[A-Z0-9]{12}\b`),
				np("iban_es", `\bES\d{22}\b`),
				np("iban", `\b[A-Z]{2}\d{2}[A-Z0-9]{11,30}\b`),
			},
		},
	}
}
