package audit

import (
	"encoding/json"
	"sync"

	"github.com/nats-io/nats.go"
)

// DefaultSubjectPrefix is the NATS subject tree audit events publish
// under; the action name is appended, e.g. privacy.events.mask.
const DefaultSubjectPrefix = "privacy.events"

// NATSEmitter publishes audit events to per-action NATS subjects over
// an existing connection, typically the one the session store already
// holds. Publish errors are discarded: NATS core publish is itself
// fire-and-forget, which matches the audit contract exactly.
type NATSEmitter struct {
	conn     *nats.Conn
	prefix   string
	ownsConn bool
	mu       sync.RWMutex
	closed   bool
}

// Ensure NATSEmitter implements the Emitter interface.
var _ Emitter = (*NATSEmitter)(nil)

// NewNATSEmitter creates an emitter over an established connection.
// The emitter does not own the connection and will not close it.
func NewNATSEmitter(conn *nats.Conn, subjectPrefix string) *NATSEmitter {
	if subjectPrefix == "" {
		subjectPrefix = DefaultSubjectPrefix
	}
	return &NATSEmitter{conn: conn, prefix: subjectPrefix}
}

// NewNATSEmitterURL connects to the given NATS URL and creates an
// emitter that owns the connection, closing it on Close.
func NewNATSEmitterURL(url, subjectPrefix string) (*NATSEmitter, error) {
	conn, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, err
	}
	e := NewNATSEmitter(conn, subjectPrefix)
	e.ownsConn = true
	return e, nil
}

// Emit publishes the event to <prefix>.<action>.
func (e *NATSEmitter) Emit(event Event) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.closed || e.conn == nil {
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	// Best-effort: the error is dropped by contract.
	_ = e.conn.Publish(e.prefix+"."+event.Action, data)
}

// Close stops event delivery. A shared connection is left open; a
// connection created by NewNATSEmitterURL is closed.
func (e *NATSEmitter) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.closed = true
	if e.ownsConn && e.conn != nil {
		e.conn.Close()
	}
	return nil
}
