// Package config provides configuration loading and validation for the
// Cloakroom privacy filter. It supports YAML configuration files with
// environment variable substitution.
package config

import "time"

// Config is the top-level configuration structure mirroring
// cloakroom.yaml.
type Config struct {
	Service    ServiceConfig    `yaml:"service"`
	Detection  DetectionConfig  `yaml:"detection"`
	Sessions   SessionsConfig   `yaml:"sessions"`
	Encryption EncryptionConfig `yaml:"encryption"`
	Audit      AuditConfig      `yaml:"audit"`
	Server     ServerConfig     `yaml:"server"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServiceConfig holds service identification metadata.
type ServiceConfig struct {
	ID          string `yaml:"id"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// DetectionConfig holds entity detection settings.
type DetectionConfig struct {
	// Detector is the ML detector sidecar. When disabled, detection is
	// pattern-only.
	Detector DetectorConfig `yaml:"detector"`

	// Labels overrides the label set requested from the detector.
	Labels []string `yaml:"labels"`

	// Threshold is the detector confidence floor, 0 to 1.
	Threshold float64 `yaml:"threshold"`
}

// DetectorConfig holds the remote ML detector connection settings.
type DetectorConfig struct {
	Enabled bool          `yaml:"enabled"`
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// SessionsConfig holds session store settings.
type SessionsConfig struct {
	// TTL is the session lifetime for both backends.
	TTL time.Duration `yaml:"ttl"`

	// NATS configures the distributed backend. When disabled, sessions
	// are process-local only.
	NATS NATSConfig `yaml:"nats"`
}

// NATSConfig holds NATS JetStream KV connection settings.
type NATSConfig struct {
	Enabled        bool          `yaml:"enabled"`
	URL            string        `yaml:"url"`
	Bucket         string        `yaml:"bucket"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// EncryptionConfig holds at-rest encryption settings for the
// distributed session store. Secrets are base64-encoded 32-byte values,
// normally injected via environment variable substitution.
type EncryptionConfig struct {
	Enabled bool `yaml:"enabled"`

	MasterSecret   string `yaml:"master_secret"`
	PreviousSecret string `yaml:"previous_secret"`

	// RotationPeriod is the key derivation period.
	RotationPeriod time.Duration `yaml:"rotation_period"`
}

// AuditConfig holds audit event emission settings.
type AuditConfig struct {
	Enabled bool `yaml:"enabled"`

	// Sink selects the emitter backend: "kafka", "nats", or "local".
	Sink string `yaml:"sink"`

	Kafka KafkaConfig `yaml:"kafka"`

	// SubjectPrefix is the NATS subject tree for the nats sink.
	SubjectPrefix string `yaml:"subject_prefix"`
}

// KafkaConfig holds Kafka connection and producer settings for the
// audit sink.
type KafkaConfig struct {
	Brokers       []string      `yaml:"brokers"`
	Topic         string        `yaml:"topic"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	Compression   string        `yaml:"compression"`
	MaxRetries    int           `yaml:"max_retries"`
	RetryBackoff  time.Duration `yaml:"retry_backoff"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	HTTP HTTPServerConfig `yaml:"http"`
}

// HTTPServerConfig holds HTTP server settings.
type HTTPServerConfig struct {
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}
