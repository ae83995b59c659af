// Package filter orchestrates detection, masking, session custody, and
// demasking into the privacy filter surface applications consume.
package filter

import (
	"context"
	"errors"

	"github.com/Tributary-ai-services/Cloakroom/pkg/detect"
	"github.com/Tributary-ai-services/Cloakroom/pkg/mask"
)

// ErrInvalidArgument indicates a request that cannot be acted on, such
// as a demask call carrying neither a token map nor a session id.
var ErrInvalidArgument = errors.New("invalid argument")

// MaskRequest asks for sensitive entities in Text to be replaced with
// placeholder tokens.
type MaskRequest struct {
	// Text is the original text to mask.
	Text string

	// SessionID names the session the token map is stored under. Empty
	// means a fresh session id is generated.
	SessionID string

	// EntityTypes restricts masking to the listed types. Empty masks
	// every detected type. Detection itself is never restricted, so
	// EntitiesFound reports everything that was seen.
	EntityTypes []detect.EntityType
}

// MaskResult is the outcome of a mask operation.
type MaskResult struct {
	// MaskedText is the text with entity spans replaced by tokens.
	MaskedText string

	// Tokens maps each placeholder token to the value it replaced.
	Tokens mask.TokenMap

	// EntitiesFound lists every entity detected, before any
	// EntityTypes filtering.
	EntitiesFound []detect.Entity

	// SessionID identifies the session holding the token map.
	SessionID string
}

// DemaskRequest asks for placeholder tokens in MaskedText to be
// restored to their original values. A non-nil Tokens map takes
// precedence over SessionID, even when it is empty; at least one of
// the two must be supplied.
type DemaskRequest struct {
	MaskedText string
	Tokens     mask.TokenMap
	SessionID  string
}

// DemaskResult is the outcome of a demask operation.
type DemaskResult struct {
	// Text is the restored text.
	Text string

	// EntitiesRestored counts the distinct tokens that were found and
	// replaced, not individual occurrences.
	EntitiesRestored int
}

// LLMFunc is the caller-supplied model invocation used by the
// round-trip flow. It receives masked text and returns the model's
// response, which may echo tokens back.
type LLMFunc func(ctx context.Context, maskedPrompt string) (string, error)

// LLMFlowResult is the outcome of a mask -> invoke -> demask cycle.
type LLMFlowResult struct {
	// MaskedPrompt is what the model actually saw.
	MaskedPrompt string

	// MaskedResponse is the raw model output, tokens intact.
	MaskedResponse string

	// Response is the model output with tokens restored.
	Response string

	// SessionID identifies the session created for the exchange.
	SessionID string

	// EntitiesFound lists the entities detected in the prompt.
	EntitiesFound []detect.Entity
}

// Filter is the privacy filter surface. All operations are safe for
// concurrent use.
type Filter interface {
	// Mask detects sensitive entities in the request text, replaces
	// them with placeholder tokens, and stores the token map under the
	// session.
	Mask(ctx context.Context, req MaskRequest) (*MaskResult, error)

	// Demask restores original values using a directly supplied token
	// map or one fetched from the session. An expired or unknown
	// session restores nothing rather than failing.
	Demask(ctx context.Context, req DemaskRequest) (*DemaskResult, error)

	// Resolve maps individual tokens back to their values without
	// touching surrounding text. Unknown tokens resolve to themselves;
	// an unknown session is an error.
	Resolve(ctx context.Context, sessionID string, tokens []string) (map[string]string, error)

	// ExtendSession merges additional tokens into an existing session
	// and refreshes its TTL, reporting whether the session existed.
	ExtendSession(ctx context.Context, sessionID string, additional mask.TokenMap) (bool, error)

	// DeleteSession removes a session from every backend, reporting
	// whether it existed in any of them.
	DeleteSession(ctx context.Context, sessionID string) (bool, error)

	// ProcessWithLLM runs the full round trip: mask the prompt, invoke
	// the model with the masked text, demask the response.
	ProcessWithLLM(ctx context.Context, text string, invoke LLMFunc) (*LLMFlowResult, error)

	// Close releases backend resources.
	Close() error
}
