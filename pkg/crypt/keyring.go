// Package crypt encrypts session values at rest using time-rotated
// symmetric keys derived from a long-lived master secret. The master
// secret never encrypts payloads directly; each rotation period gets
// its own derived AES-256 key.
package crypt

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"golang.org/x/crypto/hkdf"
)

var (
	// ErrInvalidKeyMaterial indicates a malformed master secret. It is
	// raised at construction time, never deferred to first use.
	ErrInvalidKeyMaterial = errors.New("invalid key material")

	// ErrDecryptionFailed indicates ciphertext that does not
	// authenticate under any candidate key. Distinct from a missing
	// session: callers should treat it as corruption or wrong-key
	// configuration.
	ErrDecryptionFailed = errors.New("decryption failed")
)

const (
	// MasterSecretSize is the required master secret length in bytes.
	MasterSecretSize = 32

	// DefaultRotationPeriod is the length of one key rotation period.
	DefaultRotationPeriod = 24 * time.Hour

	// keyCacheCap bounds the derived-key cache; the oldest entry is
	// evicted when the cap is exceeded. Derived keys are never persisted.
	keyCacheCap = 10

	// keyContext is the fixed HKDF context string. Changing it
	// invalidates all previously derived keys.
	keyContext = "cloakroom/session-key/v1"
)

// cacheKey identifies a derived key by which master secret produced it
// and for which period.
type cacheKey struct {
	previous bool
	period   int64
}

// keyring derives and caches per-period keys. Writes to the cache are
// mutex-guarded; the cache is shared read-mostly state across requests.
type keyring struct {
	current  []byte
	previous []byte // nil outside a rotation window
	period   time.Duration
	now      func() time.Time

	mu    sync.Mutex
	cache map[cacheKey][]byte
	order []cacheKey
}

func newKeyring(current, previous []byte, period time.Duration, now func() time.Time) (*keyring, error) {
	if len(current) != MasterSecretSize {
		return nil, fmt.Errorf("%w: master secret must be %d bytes, got %d", ErrInvalidKeyMaterial, MasterSecretSize, len(current))
	}
	if previous != nil && len(previous) != MasterSecretSize {
		return nil, fmt.Errorf("%w: previous master secret must be %d bytes, got %d", ErrInvalidKeyMaterial, MasterSecretSize, len(previous))
	}
	if period <= 0 {
		period = DefaultRotationPeriod
	} else if period < time.Second {
		// periodIndex divides by whole seconds; anything shorter would
		// make the divisor zero.
		period = time.Second
	}
	if now == nil {
		now = time.Now
	}
	return &keyring{
		current:  current,
		previous: previous,
		period:   period,
		now:      now,
		cache:    make(map[cacheKey][]byte),
	}, nil
}

// periodIndex returns the rotation period containing t.
func (k *keyring) periodIndex(t time.Time) int64 {
	return t.Unix() / int64(k.period/time.Second)
}

// key returns the derived key for (secret, period), consulting the
// bounded cache first.
func (k *keyring) key(fromPrevious bool, period int64) ([]byte, error) {
	ck := cacheKey{previous: fromPrevious, period: period}

	k.mu.Lock()
	defer k.mu.Unlock()

	if key, ok := k.cache[ck]; ok {
		return key, nil
	}

	secret := k.current
	if fromPrevious {
		secret = k.previous
	}
	if secret == nil {
		return nil, fmt.Errorf("%w: no previous master secret configured", ErrInvalidKeyMaterial)
	}

	key, err := derivePeriodKey(secret, period)
	if err != nil {
		return nil, err
	}

	k.cache[ck] = key
	k.order = append(k.order, ck)
	if len(k.order) > keyCacheCap {
		oldest := k.order[0]
		k.order = k.order[1:]
		delete(k.cache, oldest)
	}

	return key, nil
}

// derivePeriodKey derives a 32-byte AES key from the master secret and
// period index via HKDF-SHA256. The period index is bound into the
// HKDF info parameter so each period yields an unrelated key.
func derivePeriodKey(secret []byte, period int64) ([]byte, error) {
	info := make([]byte, 0, len(keyContext)+8)
	info = append(info, keyContext...)
	info = binary.BigEndian.AppendUint64(info, uint64(period))

	reader := hkdf.New(sha256.New, secret, nil, info)
	key := make([]byte, MasterSecretSize)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("deriving period key: %w", err)
	}
	return key, nil
}
