package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/Tributary-ai-services/Cloakroom/pkg/audit"
	"github.com/Tributary-ai-services/Cloakroom/pkg/crypt"
	"github.com/Tributary-ai-services/Cloakroom/pkg/mask"
)

// sessionKeyPrefix namespaces session keys inside the KV bucket. NATS
// KV keys only admit [-/_=.a-zA-Z0-9], so the separator is a dot.
const sessionKeyPrefix = "session."

// NATSStoreConfig configures the JetStream KV session store.
type NATSStoreConfig struct {
	// URL is the NATS server URL, e.g. nats://localhost:4222.
	URL string `json:"url"`

	// Bucket is the KV bucket name sessions live in.
	Bucket string `json:"bucket"`

	// TTL is the session lifetime, enforced server-side per key.
	TTL time.Duration `json:"ttl"`

	// ConnectTimeout bounds the initial connection attempt.
	ConnectTimeout time.Duration `json:"connect_timeout"`
}

// DefaultNATSStoreConfig returns default NATS store settings.
func DefaultNATSStoreConfig() *NATSStoreConfig {
	return &NATSStoreConfig{
		URL:            nats.DefaultURL,
		Bucket:         "cloakroom-sessions",
		TTL:            DefaultTTL,
		ConnectTimeout: 5 * time.Second,
	}
}

// natsStore implements Store on a NATS JetStream key-value bucket.
// The server enforces the TTL, so expiry works even when this process
// never reads the key again. Values are JSON token maps, optionally
// sealed by a crypt.Sealer so the broker only ever holds ciphertext.
//
// The connection is established lazily on first use and shared by all
// operations.
type natsStore struct {
	config  *NATSStoreConfig
	sealer  crypt.Sealer
	emitter audit.Emitter

	mu   sync.Mutex
	conn *nats.Conn
	kv   nats.KeyValue
}

// NewNATSStore creates a JetStream KV session store. The sealer and
// emitter may be nil to disable at-rest encryption and auditing
// respectively. No connection is made until the first operation.
func NewNATSStore(config *NATSStoreConfig, sealer crypt.Sealer, emitter audit.Emitter) Store {
	if config == nil {
		config = DefaultNATSStoreConfig()
	}
	if config.TTL <= 0 {
		config.TTL = DefaultTTL
	}
	return &natsStore{
		config:  config,
		sealer:  sealer,
		emitter: emitter,
	}
}

// bucket returns the KV handle, connecting and creating the bucket on
// first use. Creation is idempotent: an existing bucket is reused.
func (s *natsStore) bucket() (nats.KeyValue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.kv != nil {
		return s.kv, nil
	}

	conn, err := nats.Connect(s.config.URL,
		nats.Timeout(s.config.ConnectTimeout),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: connecting to %s: %v", ErrStoreUnavailable, s.config.URL, err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: jetstream context: %v", ErrStoreUnavailable, err)
	}

	kv, err := js.KeyValue(s.config.Bucket)
	if errors.Is(err, nats.ErrBucketNotFound) {
		kv, err = js.CreateKeyValue(&nats.KeyValueConfig{
			Bucket:  s.config.Bucket,
			TTL:     s.config.TTL,
			History: 1,
			Storage: nats.MemoryStorage,
		})
	}
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: opening bucket %q: %v", ErrStoreUnavailable, s.config.Bucket, err)
	}

	s.conn = conn
	s.kv = kv
	return kv, nil
}

func (s *natsStore) Store(_ context.Context, sessionID string, tokens mask.TokenMap) error {
	if sessionID == "" {
		return errors.New("session id is empty")
	}

	kv, err := s.bucket()
	if err != nil {
		return err
	}

	payload, err := s.encode(tokens)
	if err != nil {
		return err
	}

	if _, err := kv.Put(sessionKeyPrefix+sessionID, payload); err != nil {
		return fmt.Errorf("%w: storing session: %v", ErrStoreUnavailable, err)
	}

	s.emitStore(audit.ActionMask, sessionID, tokens)
	return nil
}

func (s *natsStore) Get(_ context.Context, sessionID string) (mask.TokenMap, error) {
	kv, err := s.bucket()
	if err != nil {
		return nil, err
	}

	entry, err := kv.Get(sessionKeyPrefix + sessionID)
	if errors.Is(err, nats.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading session: %v", ErrStoreUnavailable, err)
	}

	return s.decode(entry.Value())
}

func (s *natsStore) Resolve(ctx context.Context, sessionID string, tokens []string) (map[string]string, error) {
	tokenMap, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	resolved := resolveTokens(tokens, tokenMap)

	if s.emitter != nil {
		event := audit.NewEvent(audit.ActionResolve, sessionID)
		event.TokensRequested = len(tokens)
		event.TokensResolved = countResolved(tokens, tokenMap)
		s.emitter.Emit(event)
	}

	return resolved, nil
}

func (s *natsStore) Extend(ctx context.Context, sessionID string, additional mask.TokenMap) (bool, error) {
	existing, err := s.Get(ctx, sessionID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	merged := existing.Clone()
	for token, value := range additional {
		merged[token] = value
	}

	kv, err := s.bucket()
	if err != nil {
		return false, err
	}

	payload, err := s.encode(merged)
	if err != nil {
		return false, err
	}

	// Put resets the key's age, so the TTL is refreshed along with the
	// merged map.
	if _, err := kv.Put(sessionKeyPrefix+sessionID, payload); err != nil {
		return false, fmt.Errorf("%w: extending session: %v", ErrStoreUnavailable, err)
	}

	s.emitStore(audit.ActionExtend, sessionID, merged)
	return true, nil
}

func (s *natsStore) Delete(_ context.Context, sessionID string) (bool, error) {
	kv, err := s.bucket()
	if err != nil {
		return false, err
	}

	// Purge on a missing key succeeds, so existence is checked first to
	// report it accurately.
	if _, err := kv.Get(sessionKeyPrefix + sessionID); errors.Is(err, nats.ErrKeyNotFound) {
		return false, nil
	} else if err != nil {
		return false, fmt.Errorf("%w: reading session: %v", ErrStoreUnavailable, err)
	}

	if err := kv.Purge(sessionKeyPrefix + sessionID); err != nil {
		return false, fmt.Errorf("%w: deleting session: %v", ErrStoreUnavailable, err)
	}

	if s.emitter != nil {
		s.emitter.Emit(audit.NewEvent(audit.ActionDelete, sessionID))
	}
	return true, nil
}

func (s *natsStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
		s.kv = nil
	}
	return nil
}

// encode marshals the token map and seals it when a sealer is
// configured.
func (s *natsStore) encode(tokens mask.TokenMap) ([]byte, error) {
	payload, err := json.Marshal(tokens)
	if err != nil {
		return nil, fmt.Errorf("encoding session: %w", err)
	}
	if s.sealer != nil {
		if payload, err = s.sealer.Seal(payload); err != nil {
			return nil, fmt.Errorf("sealing session: %w", err)
		}
	}
	return payload, nil
}

// decode unseals (when configured) and unmarshals a stored value.
// Decryption failure surfaces as crypt.ErrDecryptionFailed, distinct
// from ErrNotFound: the session exists but cannot be read.
func (s *natsStore) decode(payload []byte) (mask.TokenMap, error) {
	if s.sealer != nil {
		opened, err := s.sealer.Open(payload)
		if err != nil {
			return nil, err
		}
		payload = opened
	}

	var tokens mask.TokenMap
	if err := json.Unmarshal(payload, &tokens); err != nil {
		return nil, fmt.Errorf("decoding session: %w", err)
	}
	return tokens, nil
}

func (s *natsStore) emitStore(action, sessionID string, tokens mask.TokenMap) {
	if s.emitter == nil {
		return
	}
	event := audit.NewEvent(action, sessionID)
	event.TokenCount = len(tokens)
	event.TokenTypes = tokens.TypeCounts()
	s.emitter.Emit(event)
}
