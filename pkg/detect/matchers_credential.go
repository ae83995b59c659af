package detect

// APIKeyMatcher detects credentials with recognizable issuer prefixes
// plus JWTs and UUID-shaped keys.
type APIKeyMatcher struct {
	baseMatcher
}

// NewAPIKeyMatcher creates a new API key matcher.
func NewAPIKeyMatcher() *APIKeyMatcher {
	return &APIKeyMatcher{
		baseMatcher: baseMatcher{
			id:         "pattern-api-key",
			entityType: TypeAPIKey,
			patterns: []NamedPattern{
				np("aws_access_key", `\bAKIA[0-9A-Z]{16}\b`),
				np("google_api", `\bAIza[0-9A-Za-z\-_]{35}\b`),
				np("github_token", `\bghp_[0-9a-zA-Z]{36}\b`),
				np("github_oauth", `\bgho_[0-9a-zA-Z]{36}\b`),
				np("stripe_live", `\bsk_live_[0-9a-zA-Z]{24}\b`),
				np("stripe_test", `\bsk_test_[0-9a-zA-Z]{24}\b`),
				np("openai", `\bsk-[a-zA-Z0-9]{48}\b`),
				np("azure", `\b[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\b`),
				np("jwt", `\beyJ[A-Za-z0-9-_=]+\.eyJ[A-Za-z0-9-_=]+\.[A-Za-z0-9-_.+/=]*\b`),
			},
		},
	}
}
