// Package main provides the standalone Cloakroom server binary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Tributary-ai-services/Cloakroom/pkg/api"
	"github.com/Tributary-ai-services/Cloakroom/pkg/audit"
	"github.com/Tributary-ai-services/Cloakroom/pkg/config"
	"github.com/Tributary-ai-services/Cloakroom/pkg/crypt"
	"github.com/Tributary-ai-services/Cloakroom/pkg/detect"
	"github.com/Tributary-ai-services/Cloakroom/pkg/filter"
	"github.com/Tributary-ai-services/Cloakroom/pkg/session"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "configs/cloakroom.yaml", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("Cloakroom v%s (built %s)\n", Version, BuildTime)
		os.Exit(0)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Info("received signal, shutting down", "signal", sig.String())
		cancel()
	}()

	emitter, err := newEmitter(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating audit emitter: %w", err)
	}

	f, err := newFilter(cfg, emitter, logger)
	if err != nil {
		return fmt.Errorf("creating privacy filter: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			logger.Warn("filter close failed", "error", err)
		}
		if err := emitter.Close(); err != nil {
			logger.Warn("emitter close failed", "error", err)
		}
	}()

	if cfg.Service.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	handler := api.NewHandler(f,
		api.WithServiceInfo(cfg.Service.ID, Version),
		api.WithHandlerLogger(logger),
	)
	handler.Register(router)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.HTTP.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.HTTP.ReadTimeout,
		WriteTimeout: cfg.Server.HTTP.WriteTimeout,
		IdleTimeout:  cfg.Server.HTTP.IdleTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			"addr", server.Addr,
			"version", Version,
			"build", BuildTime,
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

// newLogger builds the process logger from config.
func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

// newEmitter builds the audit emitter selected in config. Auditing
// disabled yields a local emitter with no callbacks, which drops every
// event.
func newEmitter(cfg *config.Config, logger *slog.Logger) (audit.Emitter, error) {
	if !cfg.Audit.Enabled {
		return audit.NewLocalEmitter(), nil
	}

	switch cfg.Audit.Sink {
	case "kafka":
		return audit.NewKafkaEmitter(&audit.KafkaEmitterConfig{
			Brokers:       cfg.Audit.Kafka.Brokers,
			Topic:         cfg.Audit.Kafka.Topic,
			FlushInterval: cfg.Audit.Kafka.FlushInterval,
			BatchSize:     cfg.Audit.Kafka.BatchSize,
			Compression:   cfg.Audit.Kafka.Compression,
			MaxRetries:    cfg.Audit.Kafka.MaxRetries,
			RetryBackoff:  cfg.Audit.Kafka.RetryBackoff,
		})
	case "nats":
		return audit.NewNATSEmitterURL(cfg.Sessions.NATS.URL, cfg.Audit.SubjectPrefix)
	case "local", "":
		emitter := audit.NewLocalEmitter()
		emitter.OnEvent(func(event audit.Event) {
			logger.Info("audit event",
				"action", event.Action,
				"session_id", event.SessionID,
				"token_count", event.TokenCount,
			)
		})
		return emitter, nil
	default:
		return nil, fmt.Errorf("unsupported audit sink %q", cfg.Audit.Sink)
	}
}

// newFilter wires the detector, session stores, and sealer per config.
func newFilter(cfg *config.Config, emitter audit.Emitter, logger *slog.Logger) (filter.Filter, error) {
	analyzerOpts := []detect.AnalyzerOption{
		detect.WithLogger(logger),
	}
	if cfg.Detection.Detector.Enabled {
		analyzerOpts = append(analyzerOpts, detect.WithDetector(
			detect.NewRemoteDetector(&detect.RemoteDetectorConfig{
				URL:     cfg.Detection.Detector.URL,
				Timeout: cfg.Detection.Detector.Timeout,
			}),
		))
	}
	if len(cfg.Detection.Labels) > 0 {
		analyzerOpts = append(analyzerOpts, detect.WithLabels(cfg.Detection.Labels))
	}
	if cfg.Detection.Threshold > 0 {
		analyzerOpts = append(analyzerOpts, detect.WithThreshold(cfg.Detection.Threshold))
	}

	filterOpts := []filter.FilterOption{
		filter.WithAnalyzer(detect.NewAnalyzer(analyzerOpts...)),
		filter.WithLocalStore(session.NewMemoryStore(cfg.Sessions.TTL, emitter)),
		filter.WithLogger(logger),
	}

	if cfg.Sessions.NATS.Enabled {
		var sealer crypt.Sealer
		if cfg.Encryption.Enabled {
			master, err := cfg.Encryption.DecodeMasterSecret()
			if err != nil {
				return nil, err
			}

			sealerOpts := []crypt.SealerOption{}
			if previous, err := cfg.Encryption.DecodePreviousSecret(); err != nil {
				return nil, err
			} else if previous != nil {
				sealerOpts = append(sealerOpts, crypt.WithPreviousSecret(previous))
			}
			if cfg.Encryption.RotationPeriod > 0 {
				sealerOpts = append(sealerOpts, crypt.WithRotationPeriod(cfg.Encryption.RotationPeriod))
			}

			sealer, err = crypt.NewPeriodSealer(master, sealerOpts...)
			if err != nil {
				return nil, err
			}
		}

		filterOpts = append(filterOpts, filter.WithRemoteStore(
			session.NewNATSStore(&session.NATSStoreConfig{
				URL:            cfg.Sessions.NATS.URL,
				Bucket:         cfg.Sessions.NATS.Bucket,
				TTL:            cfg.Sessions.TTL,
				ConnectTimeout: cfg.Sessions.NATS.ConnectTimeout,
			}, sealer, emitter),
		))
	}

	return filter.New(filterOpts...), nil
}
