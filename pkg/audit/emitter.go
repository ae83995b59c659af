// Package audit publishes session-store audit events to an
// observability sink. Emission is best-effort by contract: it never
// blocks and never fails the primary operation, and events never carry
// plaintext entity values.
package audit

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Actions recorded in audit events.
const (
	ActionMask    = "mask"
	ActionResolve = "resolve"
	ActionExtend  = "extend"
	ActionDelete  = "delete"
)

// Event is one session-store audit record. It carries counts and an
// entity-type histogram, never the masked values themselves.
type Event struct {
	ID        string    `json:"id"`
	Action    string    `json:"action"`
	SessionID string    `json:"session_id"`
	Timestamp time.Time `json:"timestamp"`

	TokenCount int            `json:"token_count,omitempty"`
	TokenTypes map[string]int `json:"token_types,omitempty"`

	// Resolve-specific counters.
	TokensRequested int `json:"tokens_requested,omitempty"`
	TokensResolved  int `json:"tokens_resolved,omitempty"`
}

// NewEvent creates an event for the given action and session with a
// fresh id and timestamp.
func NewEvent(action, sessionID string) Event {
	return Event{
		ID:        uuid.NewString(),
		Action:    action,
		SessionID: sessionID,
		Timestamp: time.Now().UTC(),
	}
}

// Emitter publishes audit events. Implementations must not block the
// caller; events that cannot be delivered are dropped.
type Emitter interface {
	// Emit publishes an event best-effort.
	Emit(event Event)

	// Close flushes pending events and releases resources.
	Close() error
}

// EventCallback is invoked for each event published locally.
type EventCallback func(event Event)

// LocalEmitter is an in-process Emitter for library mode. It invokes
// registered callbacks synchronously, which keeps tests deterministic
// without requiring a broker.
type LocalEmitter struct {
	mu        sync.RWMutex
	callbacks []EventCallback
	closed    bool
}

// Ensure LocalEmitter implements the Emitter interface.
var _ Emitter = (*LocalEmitter)(nil)

// NewLocalEmitter creates an emitter that fans events out to callbacks.
func NewLocalEmitter() *LocalEmitter {
	return &LocalEmitter{}
}

// OnEvent registers a callback invoked for each emitted event.
// Multiple callbacks run in registration order.
func (e *LocalEmitter) OnEvent(cb EventCallback) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.callbacks = append(e.callbacks, cb)
}

// Emit invokes all registered callbacks with the event.
func (e *LocalEmitter) Emit(event Event) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.closed {
		return
	}
	for _, cb := range e.callbacks {
		cb(event)
	}
}

// Close stops event delivery.
func (e *LocalEmitter) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}
