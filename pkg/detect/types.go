// Package detect provides sensitive-entity detection for the masking
// pipeline. It combines an external ML detector with a registry of
// compiled regex pattern groups and normalizes both into a single
// entity record shape.
package detect

import (
	"context"
)

// EntityType identifies the kind of sensitive data a span contains.
// It is an open vocabulary: detector labels that have no mapping are
// normalized into new type names at the boundary, so core masking logic
// never needs to change when a detector learns a new label.
type EntityType string

// Well-known entity types. Pattern matchers register under these;
// detector labels map onto them via labelMap.
const (
	TypeEmailAddress  EntityType = "EMAIL_ADDRESS"
	TypePhoneNumber   EntityType = "PHONE_NUMBER"
	TypeCreditCard    EntityType = "CREDIT_CARD"
	TypeUSSSN         EntityType = "US_SSN"
	TypeCryptoAddress EntityType = "CRYPTO_ADDRESS"
	TypeAPIKey        EntityType = "API_KEY"
	TypeIPAddress     EntityType = "IP_ADDRESS"
	TypeIBANCode      EntityType = "IBAN_CODE"
	TypeMACAddress    EntityType = "MAC_ADDRESS"
	TypePerson        EntityType = "PERSON"
	TypeLocation      EntityType = "LOCATION"
	TypePassword      EntityType = "PASSWORD"
	TypeJWTToken      EntityType = "JWT_TOKEN"
)

// Entity is one detected sensitive span.
//
// Start and End are half-open BYTE offsets into the source text
// (0 <= Start < End <= len(text)). Text is the matched substring
// captured at detection time; it stays valid after the source text has
// been rewritten by masking.
type Entity struct {
	Type    EntityType `json:"entity_type"`
	Start   int        `json:"start"`
	End     int        `json:"end"`
	Score   float64    `json:"score"`
	Text    string     `json:"text"`
	Pattern string     `json:"pattern,omitempty"` // pattern name for regex-origin detections
}

// Overlaps reports whether two spans share any byte.
func (e Entity) Overlaps(o Entity) bool {
	return (o.Start <= e.Start && e.Start < o.End) ||
		(e.Start <= o.Start && o.Start < e.End)
}

// Span is a raw detection from the external ML detector, prior to label
// normalization.
type Span struct {
	Label string  `json:"label"`
	Start int     `json:"start"`
	End   int     `json:"end"`
	Score float64 `json:"score"`
}

// Detector is the external entity-recognition engine. Implementations
// may call out over the network; failures are non-fatal to callers,
// which fall back to pattern-only detection.
type Detector interface {
	Detect(ctx context.Context, text string, labels []string, threshold float64) ([]Span, error)
}

// DefaultLabels is the label set requested from the ML detector.
var DefaultLabels = []string{
	"person", "email", "phone number", "social security number",
	"credit card", "bitcoin address", "ethereum address", "IBAN",
	"AWS key", "API key", "password", "JWT token",
	"address", "IP address", "medical license",
}

// DefaultThreshold is the confidence floor passed to the ML detector.
const DefaultThreshold = 0.5

// RegexConfidence is the fixed score assigned to regex-origin detections.
const RegexConfidence = 0.95
