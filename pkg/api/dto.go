// Package api exposes the privacy filter over HTTP.
package api

// EntitySummary describes one detected entity in API responses. Spans
// are byte offsets into the submitted text. The matched text itself is
// not echoed back; the caller already holds the original.
type EntitySummary struct {
	Type  string  `json:"type"`
	Start int     `json:"start"`
	End   int     `json:"end"`
	Score float64 `json:"score"`
}

// MaskRequest is the POST /v1/mask request body.
type MaskRequest struct {
	Text        string   `json:"text" binding:"required"`
	SessionID   string   `json:"session_id"`
	EntityTypes []string `json:"entity_types"`
}

// MaskResponse is the POST /v1/mask response body.
type MaskResponse struct {
	MaskedText    string            `json:"masked_text"`
	Tokens        map[string]string `json:"token_map"`
	EntitiesFound []EntitySummary   `json:"entities_found"`
	SessionID     string            `json:"session_id"`
}

// DemaskRequest is the POST /v1/demask request body. Either token_map
// or session_id must be provided; a present token_map wins, even when
// empty.
type DemaskRequest struct {
	MaskedText string            `json:"masked_text" binding:"required"`
	Tokens     map[string]string `json:"token_map"`
	SessionID  string            `json:"session_id"`
}

// DemaskResponse is the POST /v1/demask response body.
type DemaskResponse struct {
	Text             string `json:"text"`
	EntitiesRestored int    `json:"entities_restored"`
}

// ResolveRequest is the POST /v1/resolve request body.
type ResolveRequest struct {
	SessionID string   `json:"session_id" binding:"required"`
	Tokens    []string `json:"tokens" binding:"required"`
}

// ResolveResponse is the POST /v1/resolve response body.
type ResolveResponse struct {
	Resolved map[string]string `json:"resolved"`
}

// ExtendRequest is the POST /v1/sessions/:id/extend request body.
type ExtendRequest struct {
	Tokens map[string]string `json:"token_map" binding:"required"`
}

// ExtendResponse is the POST /v1/sessions/:id/extend response body.
type ExtendResponse struct {
	Extended bool `json:"extended"`
}

// DeleteResponse is the DELETE /v1/sessions/:id response body.
type DeleteResponse struct {
	Deleted bool `json:"deleted"`
}

// LLMFlowRequest is the POST /v1/llm-flow request body. The flow is
// client-driven in two calls: the first carries user_input and no
// session_id, masking the input; the second carries llm_response plus
// the session_id from the first, demasking the model's output.
type LLMFlowRequest struct {
	UserInput   string `json:"user_input"`
	LLMResponse string `json:"llm_response"`
	SessionID   string `json:"session_id"`
}

// LLMFlowResponse is the POST /v1/llm-flow response body. MaskedInput
// is set on the first call, DemaskedResponse on the second.
type LLMFlowResponse struct {
	MaskedInput      string `json:"masked_input"`
	SessionID        string `json:"session_id"`
	DemaskedResponse string `json:"demasked_response,omitempty"`
}

// HealthResponse is the GET /healthz response body.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version,omitempty"`
}

// ErrorResponse is the error response body. Messages stay generic and
// never carry submitted text or token values.
type ErrorResponse struct {
	Error string `json:"error"`
}
