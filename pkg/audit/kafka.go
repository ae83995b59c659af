package audit

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/IBM/sarama"
)

// KafkaEmitterConfig configures the Kafka audit emitter.
type KafkaEmitterConfig struct {
	Brokers []string `json:"brokers"`
	Topic   string   `json:"topic"`

	FlushInterval time.Duration `json:"flush_interval"`
	BatchSize     int           `json:"batch_size"`
	Compression   string        `json:"compression"` // "none", "gzip", "snappy", "lz4"
	MaxRetries    int           `json:"max_retries"`
	RetryBackoff  time.Duration `json:"retry_backoff"`
}

// DefaultKafkaEmitterConfig returns default Kafka emitter settings.
func DefaultKafkaEmitterConfig() *KafkaEmitterConfig {
	return &KafkaEmitterConfig{
		Brokers:       []string{"localhost:9092"},
		Topic:         "cloakroom.audit.events",
		FlushInterval: time.Second,
		BatchSize:     100,
		Compression:   "snappy",
		MaxRetries:    3,
		RetryBackoff:  100 * time.Millisecond,
	}
}

// KafkaEmitter publishes audit events through sarama's AsyncProducer.
// Emit enqueues without blocking; when the producer's input channel is
// saturated the event is dropped, honoring the contract that auditing
// never backs up the masking path.
type KafkaEmitter struct {
	producer sarama.AsyncProducer
	topic    string
	mu       sync.RWMutex
	closed   bool
	wg       sync.WaitGroup
}

// Ensure KafkaEmitter implements the Emitter interface.
var _ Emitter = (*KafkaEmitter)(nil)

// NewKafkaEmitter creates a Kafka emitter with the given configuration.
func NewKafkaEmitter(config *KafkaEmitterConfig) (*KafkaEmitter, error) {
	if config == nil {
		config = DefaultKafkaEmitterConfig()
	}
	if len(config.Brokers) == 0 {
		return nil, errors.New("at least one Kafka broker is required")
	}

	producer, err := sarama.NewAsyncProducer(config.Brokers, buildSaramaConfig(config))
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	return newKafkaEmitterWithProducer(producer, config), nil
}

// NewKafkaEmitterWithProducer creates a KafkaEmitter with an injected
// producer. Primarily useful for testing with sarama/mocks.
func NewKafkaEmitterWithProducer(producer sarama.AsyncProducer, config *KafkaEmitterConfig) *KafkaEmitter {
	if config == nil {
		config = DefaultKafkaEmitterConfig()
	}
	return newKafkaEmitterWithProducer(producer, config)
}

func newKafkaEmitterWithProducer(producer sarama.AsyncProducer, config *KafkaEmitterConfig) *KafkaEmitter {
	e := &KafkaEmitter{
		producer: producer,
		topic:    config.Topic,
	}

	// Drain successes and errors so the producer never stalls. Publish
	// failures are intentionally discarded: audit is drop-on-failure.
	e.wg.Add(2)
	go func() {
		defer e.wg.Done()
		for range producer.Successes() {
		}
	}()
	go func() {
		defer e.wg.Done()
		for range producer.Errors() {
		}
	}()

	return e
}

// Emit enqueues the event for publishing, dropping it if the producer
// cannot accept it immediately.
func (e *KafkaEmitter) Emit(event Event) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.closed {
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	msg := &sarama.ProducerMessage{
		Topic: e.topic,
		Key:   sarama.StringEncoder(event.SessionID),
		Value: sarama.ByteEncoder(data),
	}

	select {
	case e.producer.Input() <- msg:
	default:
		// Producer saturated; drop rather than block the caller.
	}
}

// Close flushes pending events and closes the producer.
func (e *KafkaEmitter) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	e.producer.AsyncClose()
	e.wg.Wait()
	return nil
}

// buildSaramaConfig creates a sarama configuration from emitter settings.
func buildSaramaConfig(config *KafkaEmitterConfig) *sarama.Config {
	sc := sarama.NewConfig()

	sc.Producer.Return.Successes = true
	sc.Producer.Return.Errors = true

	if config.FlushInterval > 0 {
		sc.Producer.Flush.Frequency = config.FlushInterval
	}
	if config.BatchSize > 0 {
		sc.Producer.Flush.Messages = config.BatchSize
	}

	switch config.Compression {
	case "gzip":
		sc.Producer.Compression = sarama.CompressionGZIP
	case "snappy":
		sc.Producer.Compression = sarama.CompressionSnappy
	case "lz4":
		sc.Producer.Compression = sarama.CompressionLZ4
	default:
		sc.Producer.Compression = sarama.CompressionNone
	}

	// Audit events are best-effort; leader ack keeps latency low.
	sc.Producer.RequiredAcks = sarama.WaitForLocal

	if config.MaxRetries > 0 {
		sc.Producer.Retry.Max = config.MaxRetries
	}
	if config.RetryBackoff > 0 {
		sc.Producer.Retry.Backoff = config.RetryBackoff
	}

	return sc
}
