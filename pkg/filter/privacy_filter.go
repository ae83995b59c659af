package filter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Tributary-ai-services/Cloakroom/pkg/detect"
	"github.com/Tributary-ai-services/Cloakroom/pkg/mask"
	"github.com/Tributary-ai-services/Cloakroom/pkg/session"
)

// privacyFilter implements the Filter interface, orchestrating the
// detect -> mask -> store pipeline and its inverse.
//
// The local store always exists and serves same-process demasking even
// when the distributed backend is down. The remote store, when
// configured, makes sessions visible to other processes; a write
// failure there fails the mask call, because silently degrading to
// process-local custody would break cross-process demasking without
// anyone noticing.
type privacyFilter struct {
	analyzer *detect.Analyzer
	local    session.Store
	remote   session.Store
	logger   *slog.Logger
}

// FilterOption is a functional option for configuring a privacyFilter.
type FilterOption func(*privacyFilter)

// WithAnalyzer sets the entity analyzer.
func WithAnalyzer(a *detect.Analyzer) FilterOption {
	return func(f *privacyFilter) {
		f.analyzer = a
	}
}

// WithLocalStore replaces the default in-memory session store.
func WithLocalStore(s session.Store) FilterOption {
	return func(f *privacyFilter) {
		f.local = s
	}
}

// WithRemoteStore sets the distributed session store. Without one,
// sessions live only in this process.
func WithRemoteStore(s session.Store) FilterOption {
	return func(f *privacyFilter) {
		f.remote = s
	}
}

// WithLogger sets the filter logger.
func WithLogger(logger *slog.Logger) FilterOption {
	return func(f *privacyFilter) {
		f.logger = logger
	}
}

// New creates a privacy filter. With no options it runs pattern-only
// detection and keeps sessions in memory with the default TTL.
func New(opts ...FilterOption) Filter {
	f := &privacyFilter{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.analyzer == nil {
		f.analyzer = detect.NewAnalyzer(detect.WithLogger(f.logger))
	}
	if f.local == nil {
		f.local = session.NewMemoryStore(session.DefaultTTL, nil)
	}
	return f
}

// Mask detects entities, replaces them with tokens, and persists the
// token map. Detection always sees the full text; the EntityTypes
// restriction only controls which detections get masked.
func (f *privacyFilter) Mask(ctx context.Context, req MaskRequest) (*MaskResult, error) {
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	result := &MaskResult{
		MaskedText: req.Text,
		Tokens:     mask.TokenMap{},
		SessionID:  sessionID,
	}

	entities := f.analyzer.Analyze(ctx, req.Text)
	result.EntitiesFound = entities

	maskable := mask.FilterTypes(entities, typeSet(req.EntityTypes))
	masked, tokens := mask.Apply(req.Text, maskable)
	result.MaskedText = masked
	result.Tokens = tokens

	// The session is written even when the token map is empty, so the
	// returned session id is always live: Resolve on it answers with
	// pass-through instead of not-found, and follow-up exchanges can
	// extend it.
	start := time.Now()
	if err := f.local.Store(ctx, sessionID, tokens); err != nil {
		return nil, fmt.Errorf("storing session: %w", err)
	}
	if f.remote != nil {
		if err := f.remote.Store(ctx, sessionID, tokens); err != nil {
			return nil, fmt.Errorf("storing session: %w", err)
		}
	}

	f.logger.Debug("masked text",
		"session_id", sessionID,
		"entities", len(entities),
		"tokens", len(tokens),
		"store_duration", time.Since(start),
	)

	return result, nil
}

// Demask restores tokens in the masked text. A directly supplied token
// map wins over a session lookup, and an explicitly supplied empty map
// is used as-is rather than falling through to the session; a missing
// or expired session behaves as an empty map, so the text comes back
// unchanged with zero restorations.
func (f *privacyFilter) Demask(ctx context.Context, req DemaskRequest) (*DemaskResult, error) {
	tokens := req.Tokens
	if tokens == nil {
		if req.SessionID == "" {
			return nil, fmt.Errorf("%w: demask requires a token map or session id", ErrInvalidArgument)
		}

		fetched, err := f.getSession(ctx, req.SessionID)
		if errors.Is(err, session.ErrNotFound) {
			return &DemaskResult{Text: req.MaskedText}, nil
		}
		if err != nil {
			return nil, err
		}
		tokens = fetched
	}

	restored, count := mask.Restore(req.MaskedText, tokens)
	return &DemaskResult{Text: restored, EntitiesRestored: count}, nil
}

// Resolve maps tokens to values from the session. The local store is
// consulted first; the distributed store answers for sessions created
// by other processes.
func (f *privacyFilter) Resolve(ctx context.Context, sessionID string, tokens []string) (map[string]string, error) {
	resolved, err := f.local.Resolve(ctx, sessionID, tokens)
	if err == nil {
		return resolved, nil
	}
	if !errors.Is(err, session.ErrNotFound) {
		return nil, err
	}

	if f.remote != nil {
		return f.remote.Resolve(ctx, sessionID, tokens)
	}
	return nil, session.ErrNotFound
}

// ExtendSession merges tokens into the session in every backend that
// has it.
func (f *privacyFilter) ExtendSession(ctx context.Context, sessionID string, additional mask.TokenMap) (bool, error) {
	extended, err := f.local.Extend(ctx, sessionID, additional)
	if err != nil {
		return false, err
	}

	if f.remote != nil {
		remoteExtended, err := f.remote.Extend(ctx, sessionID, additional)
		if err != nil {
			return false, err
		}
		extended = extended || remoteExtended
	}

	return extended, nil
}

// DeleteSession removes the session from both backends. Backend errors
// are logged, not surfaced: after delete the session is gone from every
// backend that was reachable, and the TTL bounds the rest.
func (f *privacyFilter) DeleteSession(ctx context.Context, sessionID string) (bool, error) {
	existed, err := f.local.Delete(ctx, sessionID)
	if err != nil {
		f.logger.Warn("local session delete failed", "session_id", sessionID, "error", err)
	}

	if f.remote != nil {
		remoteExisted, err := f.remote.Delete(ctx, sessionID)
		if err != nil {
			f.logger.Warn("remote session delete failed", "session_id", sessionID, "error", err)
		}
		existed = existed || remoteExisted
	}

	return existed, nil
}

// ProcessWithLLM masks the prompt, invokes the model with the masked
// text, and restores tokens in the response using the token map from
// the mask step. The session outlives the call so follow-up exchanges
// can extend it.
func (f *privacyFilter) ProcessWithLLM(ctx context.Context, text string, invoke LLMFunc) (*LLMFlowResult, error) {
	if invoke == nil {
		return nil, fmt.Errorf("%w: llm invoker is nil", ErrInvalidArgument)
	}

	masked, err := f.Mask(ctx, MaskRequest{Text: text})
	if err != nil {
		return nil, err
	}

	response, err := invoke(ctx, masked.MaskedText)
	if err != nil {
		return nil, fmt.Errorf("invoking llm: %w", err)
	}

	restored, _ := mask.Restore(response, masked.Tokens)

	return &LLMFlowResult{
		MaskedPrompt:   masked.MaskedText,
		MaskedResponse: response,
		Response:       restored,
		SessionID:      masked.SessionID,
		EntitiesFound:  masked.EntitiesFound,
	}, nil
}

// Close releases resources held by the filter's session stores.
func (f *privacyFilter) Close() error {
	var errs []error
	if err := f.local.Close(); err != nil {
		errs = append(errs, fmt.Errorf("local store close: %w", err))
	}
	if f.remote != nil {
		if err := f.remote.Close(); err != nil {
			errs = append(errs, fmt.Errorf("remote store close: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// getSession fetches the token map, preferring the local store.
func (f *privacyFilter) getSession(ctx context.Context, sessionID string) (mask.TokenMap, error) {
	tokens, err := f.local.Get(ctx, sessionID)
	if err == nil {
		return tokens, nil
	}
	if !errors.Is(err, session.ErrNotFound) {
		return nil, err
	}

	if f.remote != nil {
		return f.remote.Get(ctx, sessionID)
	}
	return nil, session.ErrNotFound
}

func typeSet(types []detect.EntityType) map[detect.EntityType]bool {
	if len(types) == 0 {
		return nil
	}
	set := make(map[detect.EntityType]bool, len(types))
	for _, t := range types {
		set[t] = true
	}
	return set
}
