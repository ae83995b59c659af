package config

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// repoRoot returns the absolute path to the repository root by walking up
// from the test file location until it finds go.mod.
func repoRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find repository root (go.mod)")
		}
		dir = parent
	}
}

func testSecret() string {
	return base64.StdEncoding.EncodeToString(make([]byte, 32))
}

// -----------------------------------------------------------------------
// TestLoadConfig - Parse configs/cloakroom.yaml and verify key fields
// -----------------------------------------------------------------------

func TestLoadConfig(t *testing.T) {
	root := repoRoot(t)
	cfgPath := filepath.Join(root, "configs", "cloakroom.yaml")

	cfg, err := LoadConfig(cfgPath)
	if err != nil {
		t.Fatalf("LoadConfig(%s): %v", cfgPath, err)
	}

	// Service section
	if cfg.Service.ID != "cloakroom" {
		t.Errorf("service.id = %q, want %q", cfg.Service.ID, "cloakroom")
	}
	if cfg.Service.Environment != "development" {
		t.Errorf("service.environment = %q, want %q (default)", cfg.Service.Environment, "development")
	}

	// Detection section
	if cfg.Detection.Detector.Enabled {
		t.Error("detection.detector.enabled should be false")
	}
	if cfg.Detection.Detector.URL != "http://localhost:8081/detect" {
		t.Errorf("detection.detector.url = %q, want default", cfg.Detection.Detector.URL)
	}
	if cfg.Detection.Detector.Timeout != 10*time.Second {
		t.Errorf("detection.detector.timeout = %v, want %v", cfg.Detection.Detector.Timeout, 10*time.Second)
	}
	if cfg.Detection.Threshold != 0.5 {
		t.Errorf("detection.threshold = %f, want 0.5", cfg.Detection.Threshold)
	}

	// Sessions section
	if cfg.Sessions.TTL != 15*time.Minute {
		t.Errorf("sessions.ttl = %v, want %v", cfg.Sessions.TTL, 15*time.Minute)
	}
	if cfg.Sessions.NATS.Enabled {
		t.Error("sessions.nats.enabled should be false")
	}
	if cfg.Sessions.NATS.URL != "nats://localhost:4222" {
		t.Errorf("sessions.nats.url = %q, want default", cfg.Sessions.NATS.URL)
	}
	if cfg.Sessions.NATS.Bucket != "cloakroom-sessions" {
		t.Errorf("sessions.nats.bucket = %q, want %q", cfg.Sessions.NATS.Bucket, "cloakroom-sessions")
	}
	if cfg.Sessions.NATS.ConnectTimeout != 5*time.Second {
		t.Errorf("sessions.nats.connect_timeout = %v, want %v", cfg.Sessions.NATS.ConnectTimeout, 5*time.Second)
	}

	// Encryption section
	if cfg.Encryption.Enabled {
		t.Error("encryption.enabled should be false")
	}
	if cfg.Encryption.RotationPeriod != 24*time.Hour {
		t.Errorf("encryption.rotation_period = %v, want %v", cfg.Encryption.RotationPeriod, 24*time.Hour)
	}

	// Audit section
	if cfg.Audit.Enabled {
		t.Error("audit.enabled should be false")
	}
	if cfg.Audit.Sink != "local" {
		t.Errorf("audit.sink = %q, want %q", cfg.Audit.Sink, "local")
	}
	if cfg.Audit.SubjectPrefix != "privacy.events" {
		t.Errorf("audit.subject_prefix = %q, want %q", cfg.Audit.SubjectPrefix, "privacy.events")
	}
	if cfg.Audit.Kafka.Topic != "cloakroom.audit.events" {
		t.Errorf("audit.kafka.topic = %q, want %q", cfg.Audit.Kafka.Topic, "cloakroom.audit.events")
	}
	if cfg.Audit.Kafka.BatchSize != 100 {
		t.Errorf("audit.kafka.batch_size = %d, want 100", cfg.Audit.Kafka.BatchSize)
	}
	if cfg.Audit.Kafka.FlushInterval != 1*time.Second {
		t.Errorf("audit.kafka.flush_interval = %v, want %v", cfg.Audit.Kafka.FlushInterval, 1*time.Second)
	}
	if cfg.Audit.Kafka.Compression != "snappy" {
		t.Errorf("audit.kafka.compression = %q, want %q", cfg.Audit.Kafka.Compression, "snappy")
	}

	// Server section
	if cfg.Server.HTTP.Port != 8080 {
		t.Errorf("server.http.port = %d, want 8080", cfg.Server.HTTP.Port)
	}
	if cfg.Server.HTTP.ReadTimeout != 10*time.Second {
		t.Errorf("server.http.read_timeout = %v, want %v", cfg.Server.HTTP.ReadTimeout, 10*time.Second)
	}
	if cfg.Server.HTTP.IdleTimeout != 60*time.Second {
		t.Errorf("server.http.idle_timeout = %v, want %v", cfg.Server.HTTP.IdleTimeout, 60*time.Second)
	}

	// Logging (env var ${LOG_LEVEL:-info} defaults)
	if cfg.Logging.Level != "info" {
		t.Errorf("logging.level = %q, want %q (default)", cfg.Logging.Level, "info")
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("logging.format = %q, want %q", cfg.Logging.Format, "json")
	}
}

// -----------------------------------------------------------------------
// TestEnvVarSubstitution
// -----------------------------------------------------------------------

func TestEnvVarSubstitution(t *testing.T) {
	t.Run("simple var replacement", func(t *testing.T) {
		t.Setenv("TEST_CFG_VAR", "hello-world")
		out := substituteEnvVars([]byte("value: ${TEST_CFG_VAR}"))
		if string(out) != "value: hello-world" {
			t.Errorf("got %q, want %q", string(out), "value: hello-world")
		}
	})

	t.Run("var with default when unset", func(t *testing.T) {
		os.Unsetenv("TEST_CFG_UNSET")
		out := substituteEnvVars([]byte("value: ${TEST_CFG_UNSET:-fallback_value}"))
		if string(out) != "value: fallback_value" {
			t.Errorf("got %q, want %q", string(out), "value: fallback_value")
		}
	})

	t.Run("var with default when set", func(t *testing.T) {
		t.Setenv("TEST_CFG_SET", "override")
		out := substituteEnvVars([]byte("value: ${TEST_CFG_SET:-fallback}"))
		if string(out) != "value: override" {
			t.Errorf("got %q, want %q", string(out), "value: override")
		}
	})

	t.Run("unset var without default yields empty", func(t *testing.T) {
		os.Unsetenv("TEST_CFG_EMPTY")
		out := substituteEnvVars([]byte("value: ${TEST_CFG_EMPTY}"))
		if string(out) != "value: " {
			t.Errorf("got %q, want %q", string(out), "value: ")
		}
	})

	t.Run("multiple substitutions in same content", func(t *testing.T) {
		t.Setenv("TEST_A", "aaa")
		t.Setenv("TEST_B", "bbb")
		out := substituteEnvVars([]byte("${TEST_A} and ${TEST_B}"))
		if string(out) != "aaa and bbb" {
			t.Errorf("got %q, want %q", string(out), "aaa and bbb")
		}
	})

	t.Run("default with colon in value", func(t *testing.T) {
		os.Unsetenv("TEST_CFG_COLON")
		out := substituteEnvVars([]byte("url: ${TEST_CFG_COLON:-nats://localhost:4222}"))
		if string(out) != "url: nats://localhost:4222" {
			t.Errorf("got %q, want %q", string(out), "url: nats://localhost:4222")
		}
	})

	t.Run("empty string env var uses default", func(t *testing.T) {
		t.Setenv("TEST_CFG_EMPTYVAL", "")
		out := substituteEnvVars([]byte("value: ${TEST_CFG_EMPTYVAL:-default_val}"))
		if string(out) != "value: default_val" {
			t.Errorf("got %q, want %q", string(out), "value: default_val")
		}
	})

	t.Run("no env vars leaves content unchanged", func(t *testing.T) {
		input := "plain: value without substitution"
		out := substituteEnvVars([]byte(input))
		if string(out) != input {
			t.Errorf("got %q, want %q", string(out), input)
		}
	})
}

// -----------------------------------------------------------------------
// TestValidation
// -----------------------------------------------------------------------

func TestValidation(t *testing.T) {
	t.Run("nil config", func(t *testing.T) {
		if err := Validate(nil); err == nil {
			t.Error("expected error for nil config")
		}
	})

	t.Run("missing service id", func(t *testing.T) {
		if err := Validate(&Config{}); err == nil {
			t.Error("expected error for missing service.id")
		}
	})

	t.Run("threshold out of range", func(t *testing.T) {
		cfg := &Config{
			Service:   ServiceConfig{ID: "test"},
			Detection: DetectionConfig{Threshold: 1.5},
		}
		if err := Validate(cfg); err == nil {
			t.Error("expected error for threshold > 1.0")
		}
	})

	t.Run("detector enabled without url", func(t *testing.T) {
		cfg := &Config{
			Service: ServiceConfig{ID: "test"},
			Detection: DetectionConfig{
				Detector: DetectorConfig{Enabled: true},
			},
		}
		if err := Validate(cfg); err == nil {
			t.Error("expected error for enabled detector with no url")
		}
	})

	t.Run("nats enabled without url", func(t *testing.T) {
		cfg := &Config{
			Service: ServiceConfig{ID: "test"},
			Sessions: SessionsConfig{
				NATS: NATSConfig{Enabled: true},
			},
		}
		if err := Validate(cfg); err == nil {
			t.Error("expected error for enabled nats with no url")
		}
	})

	t.Run("encryption enabled without secret", func(t *testing.T) {
		cfg := &Config{
			Service:    ServiceConfig{ID: "test"},
			Encryption: EncryptionConfig{Enabled: true},
		}
		if err := Validate(cfg); err == nil {
			t.Error("expected error for enabled encryption with no master secret")
		}
	})

	t.Run("encryption with valid secret", func(t *testing.T) {
		cfg := &Config{
			Service: ServiceConfig{ID: "test"},
			Encryption: EncryptionConfig{
				Enabled:      true,
				MasterSecret: testSecret(),
			},
		}
		if err := Validate(cfg); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("sub-second rotation period", func(t *testing.T) {
		cfg := &Config{
			Service: ServiceConfig{ID: "test"},
			Encryption: EncryptionConfig{
				Enabled:        true,
				MasterSecret:   testSecret(),
				RotationPeriod: 100 * time.Millisecond,
			},
		}
		if err := Validate(cfg); err == nil {
			t.Error("expected error for rotation period below 1s")
		}
	})

	t.Run("invalid audit sink", func(t *testing.T) {
		cfg := &Config{
			Service: ServiceConfig{ID: "test"},
			Audit:   AuditConfig{Sink: "syslog"},
		}
		if err := Validate(cfg); err == nil {
			t.Error("expected error for invalid audit sink")
		}
	})

	t.Run("kafka sink without brokers", func(t *testing.T) {
		cfg := &Config{
			Service: ServiceConfig{ID: "test"},
			Audit:   AuditConfig{Enabled: true, Sink: "kafka"},
		}
		if err := Validate(cfg); err == nil {
			t.Error("expected error for kafka sink with no brokers")
		}
	})

	t.Run("invalid log level", func(t *testing.T) {
		cfg := &Config{
			Service: ServiceConfig{ID: "test"},
			Logging: LoggingConfig{Level: "verbose"},
		}
		if err := Validate(cfg); err == nil {
			t.Error("expected error for invalid log level")
		}
	})

	t.Run("invalid log format", func(t *testing.T) {
		cfg := &Config{
			Service: ServiceConfig{ID: "test"},
			Logging: LoggingConfig{Format: "xml"},
		}
		if err := Validate(cfg); err == nil {
			t.Error("expected error for invalid log format")
		}
	})

	t.Run("negative http port", func(t *testing.T) {
		cfg := &Config{
			Service: ServiceConfig{ID: "test"},
			Server: ServerConfig{
				HTTP: HTTPServerConfig{Port: -1},
			},
		}
		if err := Validate(cfg); err == nil {
			t.Error("expected error for negative http port")
		}
	})

	t.Run("valid minimal config", func(t *testing.T) {
		cfg := &Config{
			Service: ServiceConfig{ID: "test"},
		}
		if err := Validate(cfg); err != nil {
			t.Errorf("unexpected error for valid config: %v", err)
		}
	})

	t.Run("default config validates", func(t *testing.T) {
		if err := Validate(DefaultConfig()); err != nil {
			t.Errorf("unexpected error for default config: %v", err)
		}
	})
}

// -----------------------------------------------------------------------
// TestSecretDecoding
// -----------------------------------------------------------------------

func TestSecretDecoding(t *testing.T) {
	t.Run("valid 32-byte secret", func(t *testing.T) {
		e := EncryptionConfig{MasterSecret: testSecret()}
		secret, err := e.DecodeMasterSecret()
		if err != nil {
			t.Fatalf("DecodeMasterSecret: %v", err)
		}
		if len(secret) != 32 {
			t.Errorf("secret length = %d, want 32", len(secret))
		}
	})

	t.Run("missing master secret", func(t *testing.T) {
		e := EncryptionConfig{}
		if _, err := e.DecodeMasterSecret(); err == nil {
			t.Error("expected error for missing master secret")
		}
	})

	t.Run("missing previous secret is nil", func(t *testing.T) {
		e := EncryptionConfig{}
		secret, err := e.DecodePreviousSecret()
		if err != nil {
			t.Fatalf("DecodePreviousSecret: %v", err)
		}
		if secret != nil {
			t.Errorf("expected nil, got %d bytes", len(secret))
		}
	})

	t.Run("wrong length secret", func(t *testing.T) {
		e := EncryptionConfig{MasterSecret: base64.StdEncoding.EncodeToString(make([]byte, 16))}
		if _, err := e.DecodeMasterSecret(); err == nil {
			t.Error("expected error for 16-byte secret")
		}
	})

	t.Run("invalid base64 error omits the value", func(t *testing.T) {
		e := EncryptionConfig{MasterSecret: "not!!base64"}
		_, err := e.DecodeMasterSecret()
		if err == nil {
			t.Fatal("expected error for invalid base64")
		}
		if got := err.Error(); got != "secret is not valid base64" {
			t.Errorf("error = %q, should not echo the configured value", got)
		}
	})
}

// -----------------------------------------------------------------------
// TestLoadConfig_FileNotFound
// -----------------------------------------------------------------------

func TestLoadConfig_FileNotFound(t *testing.T) {
	_, err := LoadConfig("/nonexistent/config.yaml")
	if err == nil {
		t.Error("expected error for nonexistent config file")
	}
}

// -----------------------------------------------------------------------
// TestLoadConfig_InvalidYAML
// -----------------------------------------------------------------------

func TestLoadConfig_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "bad.yaml")
	if err := os.WriteFile(path, []byte("{{invalid yaml"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := LoadConfig(path)
	if err == nil {
		t.Error("expected error for invalid YAML")
	}
}

// -----------------------------------------------------------------------
// TestLoadConfig_EnvOverride
// -----------------------------------------------------------------------

func TestLoadConfig_EnvOverride(t *testing.T) {
	root := repoRoot(t)
	cfgPath := filepath.Join(root, "configs", "cloakroom.yaml")

	t.Setenv("LOG_LEVEL", "debug")
	cfg, err := LoadConfig(cfgPath)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("logging.level = %q, want %q (from env override)", cfg.Logging.Level, "debug")
	}
}
