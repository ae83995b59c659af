package crypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"
	"time"
)

// Sealer encrypts and decrypts opaque byte payloads. The session store
// uses it transparently; callers never see key material.
type Sealer interface {
	// Seal encrypts plaintext under the current period key.
	Seal(plaintext []byte) ([]byte, error)

	// Open decrypts ciphertext produced by Seal, trying the candidate
	// key/period combinations in order.
	Open(ciphertext []byte) ([]byte, error)
}

// PeriodSealer is an AES-256-GCM Sealer whose keys rotate with time.
// Encryption always uses the current master secret and current period.
// Decryption tries, in order: (current secret, current period),
// (current secret, previous period), then the same two periods under
// the previous master secret when one is configured. Two periods
// suffice because the session TTL is no longer than the rotation
// period, so no live ciphertext is ever older than one boundary.
type PeriodSealer struct {
	ring *keyring
}

// Ensure PeriodSealer implements the Sealer interface.
var _ Sealer = (*PeriodSealer)(nil)

// SealerOption is a functional option for configuring a PeriodSealer.
type SealerOption func(*sealerSettings)

type sealerSettings struct {
	previous []byte
	period   time.Duration
	now      func() time.Time
}

// WithPreviousSecret supplies the retiring master secret during a
// planned rotation window.
func WithPreviousSecret(secret []byte) SealerOption {
	return func(s *sealerSettings) {
		s.previous = secret
	}
}

// WithRotationPeriod overrides the key rotation period.
func WithRotationPeriod(period time.Duration) SealerOption {
	return func(s *sealerSettings) {
		s.period = period
	}
}

// WithClock overrides the time source. Used by tests to cross period
// boundaries deterministically.
func WithClock(now func() time.Time) SealerOption {
	return func(s *sealerSettings) {
		s.now = now
	}
}

// NewPeriodSealer creates a sealer from a 32-byte master secret.
// Malformed key material fails here, at configuration time.
func NewPeriodSealer(masterSecret []byte, opts ...SealerOption) (*PeriodSealer, error) {
	settings := &sealerSettings{}
	for _, opt := range opts {
		opt(settings)
	}

	ring, err := newKeyring(masterSecret, settings.previous, settings.period, settings.now)
	if err != nil {
		return nil, err
	}
	return &PeriodSealer{ring: ring}, nil
}

// Seal encrypts plaintext with AES-256-GCM under the current period
// key. The random 12-byte nonce is prepended to the ciphertext.
func (s *PeriodSealer) Seal(plaintext []byte) ([]byte, error) {
	key, err := s.ring.key(false, s.ring.periodIndex(s.ring.now()))
	if err != nil {
		return nil, err
	}

	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}

	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open decrypts ciphertext, attempting each candidate key in order.
// The first key that authenticates wins; if none does, Open returns
// ErrDecryptionFailed.
func (s *PeriodSealer) Open(ciphertext []byte) ([]byte, error) {
	period := s.ring.periodIndex(s.ring.now())

	attempts := []cacheKey{
		{previous: false, period: period},
		{previous: false, period: period - 1},
	}
	if s.ring.previous != nil {
		attempts = append(attempts,
			cacheKey{previous: true, period: period},
			cacheKey{previous: true, period: period - 1},
		)
	}

	for _, attempt := range attempts {
		key, err := s.ring.key(attempt.previous, attempt.period)
		if err != nil {
			return nil, err
		}

		aead, err := newAEAD(key)
		if err != nil {
			return nil, err
		}

		if len(ciphertext) < aead.NonceSize() {
			return nil, fmt.Errorf("%w: ciphertext too short", ErrDecryptionFailed)
		}

		nonce, sealed := ciphertext[:aead.NonceSize()], ciphertext[aead.NonceSize():]
		plaintext, err := aead.Open(nil, nonce, sealed, nil)
		if err == nil {
			return plaintext, nil
		}
	}

	return nil, ErrDecryptionFailed
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating AES cipher: %w", err)
	}
	return cipher.NewGCM(block)
}
