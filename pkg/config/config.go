package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR} and ${VAR:-default} expressions.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// DefaultConfig returns a configuration suitable for local development:
// pattern-only detection, in-process sessions, no encryption, no audit
// sink.
func DefaultConfig() *Config {
	return &Config{
		Service: ServiceConfig{
			ID:          "cloakroom",
			Environment: "development",
		},
		Detection: DetectionConfig{
			Threshold: 0.5,
			Detector: DetectorConfig{
				Timeout: 10 * time.Second,
			},
		},
		Sessions: SessionsConfig{
			TTL: 15 * time.Minute,
			NATS: NATSConfig{
				URL:            "nats://localhost:4222",
				Bucket:         "cloakroom-sessions",
				ConnectTimeout: 5 * time.Second,
			},
		},
		Encryption: EncryptionConfig{
			RotationPeriod: 24 * time.Hour,
		},
		Audit: AuditConfig{
			Sink: "local",
		},
		Server: ServerConfig{
			HTTP: HTTPServerConfig{
				Port:         8080,
				ReadTimeout:  10 * time.Second,
				WriteTimeout: 10 * time.Second,
				IdleTimeout:  60 * time.Second,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadConfig reads a YAML config file, performs environment variable
// substitution on the raw bytes, then unmarshals into a Config struct
// on top of the defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	data = substituteEnvVars(data)

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// substituteEnvVars replaces ${VAR} and ${VAR:-default} patterns in content
// with the corresponding environment variable values. If a variable is not
// set and no default is provided, the expression is replaced with an empty
// string.
func substituteEnvVars(content []byte) []byte {
	result := envVarPattern.ReplaceAllFunc(content, func(match []byte) []byte {
		groups := envVarPattern.FindSubmatch(match)
		if groups == nil {
			return match
		}

		varName := string(groups[1])
		defaultVal := ""
		hasDefault := len(groups) > 2 && groups[2] != nil
		if hasDefault {
			defaultVal = string(groups[2])
		}

		val, ok := os.LookupEnv(varName)
		if !ok || val == "" {
			if hasDefault {
				return []byte(defaultVal)
			}
			return []byte("")
		}
		return []byte(val)
	})
	return result
}

// Validate performs basic validation on a loaded Config. It checks that
// required fields are set and that values are within expected ranges.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	if cfg.Service.ID == "" {
		return fmt.Errorf("service.id is required")
	}

	if cfg.Detection.Threshold < 0 || cfg.Detection.Threshold > 1 {
		return fmt.Errorf("detection.threshold must be between 0.0 and 1.0, got %f", cfg.Detection.Threshold)
	}
	if cfg.Detection.Detector.Enabled && cfg.Detection.Detector.URL == "" {
		return fmt.Errorf("detection.detector.url is required when the detector is enabled")
	}

	if cfg.Sessions.TTL < 0 {
		return fmt.Errorf("sessions.ttl must be non-negative, got %s", cfg.Sessions.TTL)
	}
	if cfg.Sessions.NATS.Enabled && cfg.Sessions.NATS.URL == "" {
		return fmt.Errorf("sessions.nats.url is required when nats is enabled")
	}

	if cfg.Encryption.Enabled {
		if _, err := cfg.Encryption.DecodeMasterSecret(); err != nil {
			return fmt.Errorf("encryption.master_secret: %w", err)
		}
		if _, err := cfg.Encryption.DecodePreviousSecret(); err != nil {
			return fmt.Errorf("encryption.previous_secret: %w", err)
		}
		if p := cfg.Encryption.RotationPeriod; p > 0 && p < time.Second {
			return fmt.Errorf("encryption.rotation_period must be at least 1s, got %s", p)
		}
	}

	sink := cfg.Audit.Sink
	if sink != "" {
		validSinks := map[string]bool{
			"kafka": true, "nats": true, "local": true,
		}
		if !validSinks[sink] {
			return fmt.Errorf("audit.sink %q is not valid; must be one of: kafka, nats, local", sink)
		}
	}
	if cfg.Audit.Enabled && cfg.Audit.Sink == "kafka" && len(cfg.Audit.Kafka.Brokers) == 0 {
		return fmt.Errorf("audit.kafka.brokers is required when the kafka sink is enabled")
	}

	level := cfg.Logging.Level
	if level != "" {
		validLevels := map[string]bool{
			"debug": true, "info": true, "warn": true, "error": true,
		}
		if !validLevels[level] {
			return fmt.Errorf("logging.level %q is not valid; must be one of: debug, info, warn, error", level)
		}
	}

	format := cfg.Logging.Format
	if format != "" {
		if format != "json" && format != "text" {
			return fmt.Errorf("logging.format %q is not valid; must be json or text", format)
		}
	}

	if cfg.Server.HTTP.Port < 0 {
		return fmt.Errorf("server.http.port must be non-negative, got %d", cfg.Server.HTTP.Port)
	}

	return nil
}

// DecodeMasterSecret decodes the base64-encoded master secret. The
// error never includes the configured value.
func (e EncryptionConfig) DecodeMasterSecret() ([]byte, error) {
	return decodeSecret(e.MasterSecret, true)
}

// DecodePreviousSecret decodes the base64-encoded previous secret.
// Returns nil when no previous secret is configured.
func (e EncryptionConfig) DecodePreviousSecret() ([]byte, error) {
	return decodeSecret(e.PreviousSecret, false)
}

func decodeSecret(encoded string, required bool) ([]byte, error) {
	if encoded == "" {
		if required {
			return nil, fmt.Errorf("secret is required")
		}
		return nil, nil
	}

	secret, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		// Deliberately drops the decode error: it can echo fragments of
		// the configured value.
		return nil, fmt.Errorf("secret is not valid base64")
	}
	if len(secret) != 32 {
		return nil, fmt.Errorf("secret must decode to 32 bytes, got %d", len(secret))
	}
	return secret, nil
}
